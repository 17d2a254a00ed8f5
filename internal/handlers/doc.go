// Package handlers implements the HTTP API layer of the checkout agent.
//
// Handlers delegate business logic to the services layer and focus on request
// validation, error-to-status mapping and model-to-API conversion. All
// handlers are methods on a single Handler struct holding the service
// dependencies behind small interfaces, so tests can swap in fakes:
//
//	type Handler struct {
//	    checkoutSrv CheckoutRunner
//	    vpnSrv      VPNManager
//	    runSrv      RunReader
//	    registry    LocationRegistry
//	}
//
// Routes:
//
//	GET  /health              liveness probe
//	POST /checkout/verify     scrape a checkout page's order summary
//	POST /checkout/pay-card   drive a card payment
//	GET  /vpn/status          live tunnel state
//	POST /vpn/disconnect      tear the tunnel down
//	GET  /locations           supported egress locations
//	GET  /runs                run history (filter + pagination)
//	GET  /runs/:id            single run
package handlers
