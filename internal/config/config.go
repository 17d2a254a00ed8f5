package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"
)

const envPrefix = "CHECKOUT_AGENT"

type Server struct {
	// Mode is "dev" or "prod". Prod switches gin to release mode.
	Mode     string `mapstructure:"mode" default:"dev"`
	HTTPPort int    `mapstructure:"http_port" default:"3001"`
}

type VPN struct {
	// Account is the Mullvad account number. Connects fail until it is set.
	Account           string        `mapstructure:"account"`
	TunnelProtocol    string        `mapstructure:"tunnel_protocol" default:"wireguard"`
	LocationsFile     string        `mapstructure:"locations_file" default:"config/locations.json"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout" default:"12s"`
	DisconnectTimeout time.Duration `mapstructure:"disconnect_timeout" default:"5s"`
	PollInterval      time.Duration `mapstructure:"poll_interval" default:"1s"`
}

type Browser struct {
	Headless bool `mapstructure:"headless" default:"true"`
	// AppURL is the membership app origin; auth state is seeded into its
	// local storage before navigating to a checkout page.
	AppURL         string        `mapstructure:"app_url"`
	Timeout        time.Duration `mapstructure:"timeout" default:"60s"`
	ScreenshotsDir string        `mapstructure:"screenshots_dir" default:"screenshots"`
}

type Store struct {
	Path string `mapstructure:"path" default:"data/runs.duckdb"`
}

type Auth struct {
	Enabled bool   `mapstructure:"enabled" default:"false"`
	Secret  string `mapstructure:"secret"`
}

type Configuration struct {
	Server    Server  `mapstructure:"server"`
	VPN       VPN     `mapstructure:"vpn"`
	Browser   Browser `mapstructure:"browser"`
	Store     Store   `mapstructure:"store"`
	Auth      Auth    `mapstructure:"auth"`
	LogLevel  string  `mapstructure:"log_level" default:"info"`
	LogFormat string  `mapstructure:"log_format" default:"console"`
}

// Load builds the configuration from defaults, an optional config file and
// CHECKOUT_AGENT_* environment variables, in increasing precedence.
func Load(configFile string) (*Configuration, error) {
	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	bindEnvKeys(v)

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AutomaticEnv only resolves keys viper already knows about, so every key is
// bound explicitly to make env-only configuration work without a file.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.mode",
		"server.http_port",
		"vpn.account",
		"vpn.tunnel_protocol",
		"vpn.locations_file",
		"vpn.connect_timeout",
		"vpn.disconnect_timeout",
		"vpn.poll_interval",
		"browser.headless",
		"browser.app_url",
		"browser.timeout",
		"browser.screenshots_dir",
		"store.path",
		"auth.enabled",
		"auth.secret",
		"log_level",
		"log_format",
	} {
		_ = v.BindEnv(key)
	}
}

func (c *Configuration) Validate() error {
	if c.Server.Mode != "dev" && c.Server.Mode != "prod" {
		return fmt.Errorf("invalid server mode %q, must be dev or prod", c.Server.Mode)
	}
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port %d", c.Server.HTTPPort)
	}
	if c.VPN.ConnectTimeout <= 0 || c.VPN.DisconnectTimeout <= 0 || c.VPN.PollInterval <= 0 {
		return fmt.Errorf("vpn timeouts and poll interval must be positive")
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("auth is enabled but no secret is configured")
	}
	return nil
}

// DebugMap returns the configuration for structured logging with secrets
// redacted.
func (c *Configuration) DebugMap() map[string]any {
	redact := func(s string) string {
		if s == "" {
			return ""
		}
		return "<redacted>"
	}
	return map[string]any{
		"server": map[string]any{
			"mode":      c.Server.Mode,
			"http_port": c.Server.HTTPPort,
		},
		"vpn": map[string]any{
			"account":            redact(c.VPN.Account),
			"tunnel_protocol":    c.VPN.TunnelProtocol,
			"locations_file":     c.VPN.LocationsFile,
			"connect_timeout":    c.VPN.ConnectTimeout.String(),
			"disconnect_timeout": c.VPN.DisconnectTimeout.String(),
			"poll_interval":      c.VPN.PollInterval.String(),
		},
		"browser": map[string]any{
			"headless":        c.Browser.Headless,
			"app_url":         c.Browser.AppURL,
			"timeout":         c.Browser.Timeout.String(),
			"screenshots_dir": c.Browser.ScreenshotsDir,
		},
		"store": map[string]any{
			"path": c.Store.Path,
		},
		"auth": map[string]any{
			"enabled": c.Auth.Enabled,
			"secret":  redact(c.Auth.Secret),
		},
		"log_level":  c.LogLevel,
		"log_format": c.LogFormat,
	}
}
