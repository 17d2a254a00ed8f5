package models

import "time"

type RunKind string

const (
	RunKindVerify  RunKind = "verify"
	RunKindPayCard RunKind = "pay-card"
)

// CheckoutDetails holds the order summary scraped from the checkout page.
// Amounts are kept as displayed (currency symbol included) so callers can
// verify both price and currency.
type CheckoutDetails struct {
	ProductSummaryName        string `json:"productSummaryName"`
	ProductSummaryTotalAmount string `json:"productSummaryTotalAmount,omitempty"`
	LineItemProductName       string `json:"lineItemProductName,omitempty"`
	LineItemTotalAmount       string `json:"lineItemTotalAmount,omitempty"`
	SubtotalAmount            string `json:"subtotalAmount"`
	TotalAmount               string `json:"totalAmount"`
	TrialAmount               string `json:"trialAmount,omitempty"`
}

// PaymentOutcome is the result of driving a card payment through the
// checkout page.
type PaymentOutcome struct {
	PaymentSucceeded bool
	FinalURL         string
	DeclineMessage   string
	BeforeScreenshot string
	AfterScreenshot  string
}

// Card is the test card used to drive a payment.
type Card struct {
	Number         string
	Expiry         string
	CVC            string
	CardholderName string
}

// CheckoutTask describes a checkout page to drive. AuthToken and UserData,
// when present, are seeded into the membership app's local storage before
// navigation so the page loads an authenticated session.
type CheckoutTask struct {
	CheckoutURL string
	Country     string
	Currency    string
	AuthToken   string
	UserData    map[string]any
}

// PaymentTask is a checkout task that goes on to submit a card.
type PaymentTask struct {
	CheckoutTask
	Card Card
}

// Run records one automation task execution.
type Run struct {
	ID               string
	Kind             RunKind
	Country          string
	Currency         string
	Success          bool
	Message          string
	Verification     *LocationVerification
	BeforeScreenshot string
	AfterScreenshot  string
	CreatedAt        time.Time
}
