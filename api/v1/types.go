// Package v1 defines the request and response types of the HTTP API.
package v1

// CheckoutVerifyRequest asks the agent to open a checkout page and scrape its
// order summary. Country pins the VPN egress first; when empty the page is
// opened over the direct connection.
type CheckoutVerifyRequest struct {
	CheckoutURL string         `json:"checkoutUrl" binding:"required,url"`
	Country     string         `json:"country"`
	Currency    string         `json:"currency"`
	AuthToken   string         `json:"authToken"`
	UserData    map[string]any `json:"userData"`
}

// CheckoutPayCardRequest asks the agent to drive a full card payment.
type CheckoutPayCardRequest struct {
	CheckoutURL    string         `json:"checkoutUrl" binding:"required,url"`
	Country        string         `json:"country"`
	Currency       string         `json:"currency"`
	CardNumber     string         `json:"cardNumber" binding:"required"`
	CardExpiry     string         `json:"cardExpiry" binding:"required"`
	CardCvc        string         `json:"cardCvc" binding:"required"`
	CardholderName string         `json:"cardholderName"`
	AuthToken      string         `json:"authToken"`
	UserData       map[string]any `json:"userData"`
}

// CheckoutDetails mirrors the order summary scraped from the page.
type CheckoutDetails struct {
	ProductSummaryName        string `json:"productSummaryName"`
	ProductSummaryTotalAmount string `json:"productSummaryTotalAmount,omitempty"`
	LineItemProductName       string `json:"lineItemProductName,omitempty"`
	LineItemTotalAmount       string `json:"lineItemTotalAmount,omitempty"`
	SubtotalAmount            string `json:"subtotalAmount"`
	TotalAmount               string `json:"totalAmount"`
	TrialAmount               string `json:"trialAmount,omitempty"`
}

// LocationVerification reports where the tunnel actually egressed.
type LocationVerification struct {
	Success         bool   `json:"success"`
	DetectedCountry string `json:"detectedCountry,omitempty"`
	ExpectedCountry string `json:"expectedCountry,omitempty"`
	IP              string `json:"ip,omitempty"`
	City            string `json:"city,omitempty"`
	Region          string `json:"region,omitempty"`
	Country         string `json:"country,omitempty"`
	Message         string `json:"message,omitempty"`
}

// CheckoutData is the task-specific payload of a checkout response.
type CheckoutData struct {
	CheckoutDetails  *CheckoutDetails `json:"checkoutDetails,omitempty"`
	PaymentSucceeded *bool            `json:"paymentSucceeded,omitempty"`
	FinalURL         string           `json:"finalUrl,omitempty"`
	DeclineMessage   string           `json:"declineMessage,omitempty"`
	BeforeScreenshot string           `json:"beforeScreenshot,omitempty"`
	AfterScreenshot  string           `json:"afterScreenshot,omitempty"`
}

type CheckoutResponse struct {
	Success                 bool                  `json:"success"`
	Message                 string                `json:"message"`
	RunID                   string                `json:"runId,omitempty"`
	Data                    *CheckoutData         `json:"data,omitempty"`
	VPNLocationVerification *LocationVerification `json:"vpnLocationVerification,omitempty"`
}

type VPNStatusResponse struct {
	Connected bool   `json:"connected"`
	Country   string `json:"country,omitempty"`
	Error     string `json:"error,omitempty"`
}

type VPNDisconnectResponse struct {
	Success bool   `json:"success"`
	Forced  bool   `json:"forced"`
	Message string `json:"message"`
}

type Location struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type LocationsResponse struct {
	Locations []Location `json:"locations"`
}

type Run struct {
	ID               string                `json:"id"`
	Kind             string                `json:"kind"`
	Country          string                `json:"country,omitempty"`
	Currency         string                `json:"currency,omitempty"`
	Success          bool                  `json:"success"`
	Message          string                `json:"message,omitempty"`
	Verification     *LocationVerification `json:"vpnLocationVerification,omitempty"`
	BeforeScreenshot string                `json:"beforeScreenshot,omitempty"`
	AfterScreenshot  string                `json:"afterScreenshot,omitempty"`
	CreatedAt        string                `json:"createdAt"`
}

type RunListResponse struct {
	Runs      []Run `json:"runs"`
	Total     int   `json:"total"`
	Page      int   `json:"page"`
	PageCount int   `json:"pageCount"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
