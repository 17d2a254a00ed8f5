package models

type ConnectionState string

const (
	ConnectionStateUninitialized ConnectionState = "uninitialized"
	ConnectionStateIdle          ConnectionState = "idle"
	ConnectionStateConnecting    ConnectionState = "connecting"
	ConnectionStateConnected     ConnectionState = "connected"
	ConnectionStateDisconnecting ConnectionState = "disconnecting"
)

// VPNStatus is a point-in-time snapshot of the adapter state. It is produced
// by polling and never stored.
type VPNStatus struct {
	Connected bool
	Country   string
	Error     string
}

// LocationVerification is the outcome of one egress-location check against
// the geolocation service. Success means the detected country matched the
// expected one; a lookup failure leaves both codes empty and carries the
// error in Message.
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

// ConnectionResult is returned by a connect operation. Verification is set
// only when the tunnel came up; its own Success is independent of the
// connection outcome.
type ConnectionResult struct {
	Success      bool
	Country      string
	Message      string
	Verification *LocationVerification
}

// DisconnectResult always reports a disconnected manager. Forced marks the
// cases where the adapter command failed or timed out and the state was
// cleared regardless.
type DisconnectResult struct {
	Forced  bool
	Message string
}
