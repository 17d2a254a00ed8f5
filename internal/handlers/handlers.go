package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/qaforge/checkout-agent/internal/models"
	"github.com/qaforge/checkout-agent/internal/services"
)

// CheckoutRunner executes checkout tasks.
type CheckoutRunner interface {
	Verify(ctx context.Context, task models.CheckoutTask) (*services.CheckoutResult, error)
	PayCard(ctx context.Context, task models.PaymentTask) (*services.CheckoutResult, error)
}

// VPNManager exposes tunnel status and teardown.
type VPNManager interface {
	Status(ctx context.Context) models.VPNStatus
	Disconnect(ctx context.Context) models.DisconnectResult
}

// RunReader reads the persisted run history.
type RunReader interface {
	Get(ctx context.Context, id string) (*models.Run, error)
	List(ctx context.Context, filter services.RunFilter) ([]models.Run, int, error)
}

// LocationRegistry lists the supported egress locations.
type LocationRegistry interface {
	All() []models.Location
}

type Handler struct {
	checkoutSrv CheckoutRunner
	vpnSrv      VPNManager
	runSrv      RunReader
	registry    LocationRegistry
}

func New(checkoutSrv CheckoutRunner, vpnSrv VPNManager, runSrv RunReader, registry LocationRegistry) *Handler {
	return &Handler{
		checkoutSrv: checkoutSrv,
		vpnSrv:      vpnSrv,
		runSrv:      runSrv,
		registry:    registry,
	}
}

// RegisterRoutes mounts all API routes on the given group.
func RegisterRoutes(group *gin.RouterGroup, h *Handler) {
	group.GET("/health", h.GetHealth)
	group.POST("/checkout/verify", h.VerifyCheckout)
	group.POST("/checkout/pay-card", h.PayCard)
	group.GET("/vpn/status", h.GetVPNStatus)
	group.POST("/vpn/disconnect", h.DisconnectVPN)
	group.GET("/locations", h.GetLocations)
	group.GET("/runs", h.GetRuns)
	group.GET("/runs/:id", h.GetRun)
}
