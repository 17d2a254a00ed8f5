package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/qaforge/checkout-agent/api/v1"
	"github.com/qaforge/checkout-agent/internal/services"
	srvErrors "github.com/qaforge/checkout-agent/pkg/errors"
)

// VerifyCheckout opens a checkout page and returns its order summary
// (POST /checkout/verify)
func (h *Handler) VerifyCheckout(c *gin.Context) {
	var req v1.CheckoutVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.checkoutSrv.Verify(c.Request.Context(), req.CheckoutTask())
	if err != nil {
		h.checkoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, v1.CheckoutResponse{
		Success: true,
		Message: result.Run.Message,
		RunID:   result.Run.ID,
		Data: &v1.CheckoutData{
			CheckoutDetails: v1.NewCheckoutDetailsFromModel(result.Details),
		},
		VPNLocationVerification: v1.NewVerificationFromModel(result.Run.Verification),
	})
}

// PayCard drives a card payment through a checkout page
// (POST /checkout/pay-card)
func (h *Handler) PayCard(c *gin.Context) {
	var req v1.CheckoutPayCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.checkoutSrv.PayCard(c.Request.Context(), req.PaymentTask())
	if err != nil {
		h.checkoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, v1.CheckoutResponse{
		Success: true,
		Message: result.Run.Message,
		RunID:   result.Run.ID,
		Data: &v1.CheckoutData{
			PaymentSucceeded: &result.Outcome.PaymentSucceeded,
			FinalURL:         result.Outcome.FinalURL,
			DeclineMessage:   result.Outcome.DeclineMessage,
			BeforeScreenshot: result.Outcome.BeforeScreenshot,
			AfterScreenshot:  result.Outcome.AfterScreenshot,
		},
		VPNLocationVerification: v1.NewVerificationFromModel(result.Run.Verification),
	})
}

// checkoutError maps service failures to HTTP status codes. VPN and browser
// failures are the service's fault, not the caller's, except for unsupported
// locations and missing configuration.
func (h *Handler) checkoutError(c *gin.Context, err error) {
	log := zap.S().Named("checkout_handler")
	switch {
	case srvErrors.IsLocationNotSupportedError(err):
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
	case srvErrors.IsNotConfiguredError(err):
		c.JSON(http.StatusConflict, v1.ErrorResponse{Error: err.Error()})
	case srvErrors.IsDeviceLimitError(err):
		log.Errorw("device limit reached", "error", err)
		c.JSON(http.StatusConflict, v1.ErrorResponse{Error: err.Error()})
	case srvErrors.IsConnectTimeoutError(err):
		log.Errorw("vpn connect timed out", "error", err)
		c.JSON(http.StatusGatewayTimeout, v1.ErrorResponse{Error: err.Error()})
	default:
		log.Errorw("checkout task failed", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: err.Error()})
	}
}

var _ CheckoutRunner = (*services.CheckoutService)(nil)
