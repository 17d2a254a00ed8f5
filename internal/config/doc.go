// Package config defines the configuration structure for the checkout agent.
//
// Configuration is organized into logical sections (Server, VPN, Browser,
// Store, Auth) and is loaded from three layers in increasing precedence:
// struct defaults, an optional YAML config file, and CHECKOUT_AGENT_*
// environment variables (e.g. CHECKOUT_AGENT_VPN_ACCOUNT).
//
// # Server Configuration
//
//	┌───────────┬─────────┬──────────────────────────────────┐
//	│ Field     │ Default │ Description                      │
//	├───────────┼─────────┼──────────────────────────────────┤
//	│ Mode      │ "dev"   │ Server mode: "prod" or "dev"     │
//	│ HTTPPort  │ 3001    │ HTTP server listen port          │
//	└───────────┴─────────┴──────────────────────────────────┘
//
// # VPN Configuration
//
//	┌───────────────────┬──────────────────────────┬───────────────────────────────┐
//	│ Field             │ Default                  │ Description                   │
//	├───────────────────┼──────────────────────────┼───────────────────────────────┤
//	│ Account           │ ""                       │ Mullvad account number        │
//	│ TunnelProtocol    │ "wireguard"              │ Tunnel protocol to enforce    │
//	│ LocationsFile     │ "config/locations.json"  │ Supported locations registry  │
//	│ ConnectTimeout    │ 12s                      │ Tunnel establishment window   │
//	│ DisconnectTimeout │ 5s                       │ Teardown window               │
//	│ PollInterval      │ 1s                       │ Status poll cadence           │
//	└───────────────────┴──────────────────────────┴───────────────────────────────┘
//
// # Debug Logging
//
// DebugMap() returns the configuration as a map for structured logging with
// secrets (VPN account, auth secret) redacted:
//
//	log.Infow("configuration loaded", "config", cfg.DebugMap())
package config
