// Package vpncli drives the Mullvad command-line client. Every call shells
// out to the external binary; callers are expected to bound each invocation
// with a context since the client can hang on daemon hiccups.
package vpncli

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	srvErrors "github.com/qaforge/checkout-agent/pkg/errors"
)

const defaultBinary = "mullvad"

// CommandRunner executes one CLI invocation and returns its combined output.
// The exec-based implementation is the only one used in production; tests
// substitute an in-memory fake.
type CommandRunner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

type execRunner struct {
	binary string
}

func (r execRunner) Run(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, r.binary, args...).CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s %s: %w: %s", r.binary, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// Mullvad is the concrete adapter over the mullvad CLI.
type Mullvad struct {
	runner CommandRunner
	log    *zap.SugaredLogger
}

func New() *Mullvad {
	return NewWithRunner(execRunner{binary: defaultBinary})
}

func NewWithRunner(r CommandRunner) *Mullvad {
	return &Mullvad{
		runner: r,
		log:    zap.S().Named("vpncli"),
	}
}

// Login registers this device with the given account. A provider rejection
// because the account already holds the maximum number of devices is
// surfaced as a DeviceLimitError; it needs manual cleanup on the account and
// must not be retried.
func (m *Mullvad) Login(ctx context.Context, account string) error {
	out, err := m.runner.Run(ctx, "account", "login", account)
	if err != nil {
		if isDeviceLimit(out) || isDeviceLimit(err.Error()) {
			return srvErrors.NewDeviceLimitError(strings.TrimSpace(out))
		}
		return err
	}
	if isDeviceLimit(out) {
		return srvErrors.NewDeviceLimitError(strings.TrimSpace(out))
	}
	m.log.Debugw("account login succeeded")
	return nil
}

// IsLoggedIn reports whether the device still holds valid login state from a
// previous run. Reusing it avoids burning a device slot on every restart.
func (m *Mullvad) IsLoggedIn(ctx context.Context) (bool, error) {
	out, err := m.runner.Run(ctx, "account", "get")
	if err != nil {
		if strings.Contains(strings.ToLower(out+err.Error()), "not logged in") {
			return false, nil
		}
		return false, err
	}
	return !strings.Contains(strings.ToLower(out), "not logged in"), nil
}

func (m *Mullvad) SetTunnelProtocol(ctx context.Context, proto string) error {
	_, err := m.runner.Run(ctx, "relay", "set", "tunnel-protocol", proto)
	return err
}

// AllowLAN keeps the automation host reachable on the local network while
// the tunnel is up.
func (m *Mullvad) AllowLAN(ctx context.Context) error {
	_, err := m.runner.Run(ctx, "lan", "set", "allow")
	return err
}

func (m *Mullvad) UpdateRelayList(ctx context.Context) error {
	_, err := m.runner.Run(ctx, "relay", "update")
	return err
}

func (m *Mullvad) SetRelayLocation(ctx context.Context, country string) error {
	_, err := m.runner.Run(ctx, "relay", "set", "location", strings.ToLower(country))
	return err
}

func (m *Mullvad) Connect(ctx context.Context) error {
	_, err := m.runner.Run(ctx, "connect")
	return err
}

func (m *Mullvad) Disconnect(ctx context.Context) error {
	_, err := m.runner.Run(ctx, "disconnect")
	return err
}

// Status returns the raw status line, e.g. "Connected to se-got-wg-001 in
// Gothenburg, Sweden" or "Disconnected". Parsing is left to the caller.
func (m *Mullvad) Status(ctx context.Context) (string, error) {
	out, err := m.runner.Run(ctx, "status")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func isDeviceLimit(s string) bool {
	return strings.Contains(strings.ToLower(s), "too many devices")
}
