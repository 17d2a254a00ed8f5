package v1

import (
	"time"

	"github.com/qaforge/checkout-agent/internal/models"
)

// NewVerificationFromModel converts a verification snapshot to its API shape.
func NewVerificationFromModel(m *models.LocationVerification) *LocationVerification {
	if m == nil {
		return nil
	}
	return &LocationVerification{
		Success:         m.Success,
		DetectedCountry: m.DetectedCountry,
		ExpectedCountry: m.ExpectedCountry,
		IP:              m.IP,
		City:            m.City,
		Region:          m.Region,
		Country:         m.Country,
		Message:         m.Message,
	}
}

// NewCheckoutDetailsFromModel converts scraped checkout details.
func NewCheckoutDetailsFromModel(m *models.CheckoutDetails) *CheckoutDetails {
	if m == nil {
		return nil
	}
	return &CheckoutDetails{
		ProductSummaryName:        m.ProductSummaryName,
		ProductSummaryTotalAmount: m.ProductSummaryTotalAmount,
		LineItemProductName:       m.LineItemProductName,
		LineItemTotalAmount:       m.LineItemTotalAmount,
		SubtotalAmount:            m.SubtotalAmount,
		TotalAmount:               m.TotalAmount,
		TrialAmount:               m.TrialAmount,
	}
}

// NewRunFromModel converts a persisted run.
func NewRunFromModel(run models.Run) Run {
	return Run{
		ID:               run.ID,
		Kind:             string(run.Kind),
		Country:          run.Country,
		Currency:         run.Currency,
		Success:          run.Success,
		Message:          run.Message,
		Verification:     NewVerificationFromModel(run.Verification),
		BeforeScreenshot: run.BeforeScreenshot,
		AfterScreenshot:  run.AfterScreenshot,
		CreatedAt:        run.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewLocationFromModel converts a registry entry.
func NewLocationFromModel(loc models.Location) Location {
	return Location{
		Code:     loc.Code,
		Name:     loc.Name,
		Currency: loc.Currency,
	}
}

// CheckoutTask converts the verify request to its service task.
func (r *CheckoutVerifyRequest) CheckoutTask() models.CheckoutTask {
	return models.CheckoutTask{
		CheckoutURL: r.CheckoutURL,
		Country:     r.Country,
		Currency:    r.Currency,
		AuthToken:   r.AuthToken,
		UserData:    r.UserData,
	}
}

// PaymentTask converts the pay-card request to its service task.
func (r *CheckoutPayCardRequest) PaymentTask() models.PaymentTask {
	return models.PaymentTask{
		CheckoutTask: models.CheckoutTask{
			CheckoutURL: r.CheckoutURL,
			Country:     r.Country,
			Currency:    r.Currency,
			AuthToken:   r.AuthToken,
			UserData:    r.UserData,
		},
		Card: models.Card{
			Number:         r.CardNumber,
			Expiry:         r.CardExpiry,
			CVC:            r.CardCvc,
			CardholderName: r.CardholderName,
		},
	}
}
