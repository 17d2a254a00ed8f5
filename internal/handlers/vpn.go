package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/qaforge/checkout-agent/api/v1"
)

// GetVPNStatus reports the live tunnel state
// (GET /vpn/status)
func (h *Handler) GetVPNStatus(c *gin.Context) {
	status := h.vpnSrv.Status(c.Request.Context())
	c.JSON(http.StatusOK, v1.VPNStatusResponse{
		Connected: status.Connected,
		Country:   status.Country,
		Error:     status.Error,
	})
}

// DisconnectVPN tears the tunnel down
// (POST /vpn/disconnect)
func (h *Handler) DisconnectVPN(c *gin.Context) {
	result := h.vpnSrv.Disconnect(c.Request.Context())
	c.JSON(http.StatusOK, v1.VPNDisconnectResponse{
		Success: true,
		Forced:  result.Forced,
		Message: result.Message,
	})
}

// GetLocations lists the supported egress locations
// (GET /locations)
func (h *Handler) GetLocations(c *gin.Context) {
	locs := h.registry.All()
	apiLocs := make([]v1.Location, 0, len(locs))
	for _, loc := range locs {
		apiLocs = append(apiLocs, v1.NewLocationFromModel(loc))
	}
	c.JSON(http.StatusOK, v1.LocationsResponse{Locations: apiLocs})
}
