package models

// Location is one supported VPN relay location.
type Location struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}
