// Package services implements the business logic of the checkout agent.
//
// # VPNService
//
// Owns the single VPN tunnel. All transitions (connect, disconnect) are
// serialized behind one mutex: concurrent callers queue, and each observes a
// consistent state when its turn comes. A connect lazily initializes the
// adapter (login, tunnel protocol, LAN access, relay list), tears down any
// existing tunnel, then polls the adapter until it reports connected or the
// connect window closes. Once connected, the egress location is verified
// against the expected country; a mismatch is reported as data and never
// fails the connection. Disconnects always converge to the disconnected
// state, even when the adapter fails.
//
// # CheckoutService
//
// Orchestrates one checkout task end to end: validate the requested country
// against the locations registry, pin the egress through VPNService, drive
// the page via the browser client, persist the run, and tear the tunnel
// down when the task ends. Browser work runs through the serializing scheduler so
// only one page is ever driven at a time.
//
// # RunService
//
// Read access to the persisted run history with filtering and pagination.
package services
