package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qaforge/checkout-agent/internal/models"
	srvErrors "github.com/qaforge/checkout-agent/pkg/errors"
)

const (
	defaultTunnelProtocol    = "wireguard"
	defaultConnectTimeout    = 12 * time.Second
	defaultDisconnectTimeout = 5 * time.Second
	defaultPollInterval      = 1 * time.Second
)

// VPNAdapter drives the underlying VPN client. Implementations must honor the
// context deadline on every call so a hung client cannot stall a transition.
type VPNAdapter interface {
	Login(ctx context.Context, account string) error
	IsLoggedIn(ctx context.Context) (bool, error)
	SetTunnelProtocol(ctx context.Context, protocol string) error
	AllowLAN(ctx context.Context) error
	UpdateRelayList(ctx context.Context) error
	SetRelayLocation(ctx context.Context, country string) error
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Status(ctx context.Context) (string, error)
}

// LocationVerifier checks the current egress location against an expected
// country. It reports outcomes as data and never fails a connection.
type LocationVerifier interface {
	Verify(ctx context.Context, expectedCountry string) *models.LocationVerification
}

type VPNOption func(s *VPNService)

func WithConnectTimeout(d time.Duration) VPNOption {
	return func(s *VPNService) { s.connectTimeout = d }
}

func WithDisconnectTimeout(d time.Duration) VPNOption {
	return func(s *VPNService) { s.disconnectTimeout = d }
}

func WithPollInterval(d time.Duration) VPNOption {
	return func(s *VPNService) { s.pollInterval = d }
}

func WithTunnelProtocol(p string) VPNOption {
	return func(s *VPNService) { s.tunnelProtocol = p }
}

func WithClock(now func() time.Time) VPNOption {
	return func(s *VPNService) { s.now = now }
}

// VPNService owns the tunnel lifecycle. A single operation mutex serializes
// every transition, so concurrent callers queue and each one observes a
// consistent state when its turn comes.
type VPNService struct {
	adapter  VPNAdapter
	verifier LocationVerifier
	account  string

	tunnelProtocol    string
	connectTimeout    time.Duration
	disconnectTimeout time.Duration
	pollInterval      time.Duration
	now               func() time.Time

	// opMu is held for the full duration of a connect or disconnect.
	// mu guards the state fields and is never held across adapter calls.
	opMu sync.Mutex
	mu   sync.Mutex

	initialized bool
	state       models.ConnectionState
	current     string

	log *zap.SugaredLogger
}

func NewVPNService(adapter VPNAdapter, verifier LocationVerifier, account string, opts ...VPNOption) *VPNService {
	s := &VPNService{
		adapter:           adapter,
		verifier:          verifier,
		account:           account,
		tunnelProtocol:    defaultTunnelProtocol,
		connectTimeout:    defaultConnectTimeout,
		disconnectTimeout: defaultDisconnectTimeout,
		pollInterval:      defaultPollInterval,
		now:               time.Now,
		state:             models.ConnectionStateUninitialized,
		log:               zap.S().Named("vpn"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize logs in and applies the one-time daemon settings. It is
// idempotent and runs lazily on the first Connect, so calling it up front is
// optional.
func (s *VPNService) Initialize(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.initialize(ctx)
}

func (s *VPNService) initialize(ctx context.Context) error {
	s.mu.Lock()
	done := s.initialized
	s.mu.Unlock()
	if done {
		return nil
	}

	if s.account == "" {
		return srvErrors.NewNotConfiguredError("vpn account is not set")
	}

	loggedIn, err := s.adapter.IsLoggedIn(ctx)
	if err != nil {
		s.log.Warnw("login state check failed, attempting login", "error", err)
	}
	if !loggedIn {
		if err := s.adapter.Login(ctx, s.account); err != nil {
			return err
		}
	}

	if err := s.adapter.SetTunnelProtocol(ctx, s.tunnelProtocol); err != nil {
		return err
	}
	if err := s.adapter.AllowLAN(ctx); err != nil {
		return err
	}

	// A stale relay list does not prevent connecting.
	if err := s.adapter.UpdateRelayList(ctx); err != nil {
		s.log.Warnw("relay list update failed", "error", err)
	}

	s.mu.Lock()
	s.initialized = true
	s.state = models.ConnectionStateIdle
	s.mu.Unlock()

	s.log.Info("vpn adapter initialized")
	return nil
}

// Connect establishes a tunnel exiting in the given country. It initializes
// lazily, tears down any existing tunnel first, then polls the adapter until
// it reports connected or the connect timeout elapses. On timeout or adapter
// failure the tunnel is torn down before the error is returned, so the
// service never stays half-connected.
func (s *VPNService) Connect(ctx context.Context, country string) (*models.ConnectionResult, error) {
	country = strings.ToLower(strings.TrimSpace(country))

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.initialize(ctx); err != nil {
		// A missing credential is a configuration problem, not a failure.
		if srvErrors.IsNotConfiguredError(err) {
			s.log.Warnw("vpn is not configured", "error", err)
		} else {
			s.log.Errorw("vpn initialization failed", "error", err)
		}
		return nil, err
	}

	if s.CurrentCountry() != "" {
		res := s.disconnect(ctx)
		if res.Forced {
			s.log.Warnw("teardown before reconnect was forced", "detail", res.Message)
		}
	}

	s.setState(models.ConnectionStateConnecting)
	s.log.Infow("connecting", "country", country)

	start := s.now()
	connectCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	if err := s.establish(connectCtx, country); err != nil {
		// The connect command may already have been issued even though no
		// country was recorded yet, so tear down unconditionally rather
		// than going through disconnect's already-disconnected check.
		if terr := s.teardown(context.WithoutCancel(ctx)); terr != nil {
			s.log.Warnw("cleanup after failed connect", "country", country, "error", terr)
		}
		if connectCtx.Err() != nil && ctx.Err() == nil {
			err = srvErrors.NewConnectTimeoutError(country, s.now().Sub(start))
		}
		s.log.Errorw("connect failed", "country", country, "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.current = country
	s.state = models.ConnectionStateConnected
	s.mu.Unlock()
	s.log.Infow("connected", "country", country, "elapsed", s.now().Sub(start))

	verification := s.verifier.Verify(ctx, country)
	msg := fmt.Sprintf("connected to %s", country)
	if !verification.Success {
		s.log.Warnw("egress location verification failed",
			"expected", verification.ExpectedCountry,
			"detected", verification.DetectedCountry)
		msg = fmt.Sprintf("connected to %s, egress verification failed", country)
	}

	return &models.ConnectionResult{
		Success:      true,
		Country:      country,
		Message:      msg,
		Verification: verification,
	}, nil
}

func (s *VPNService) establish(ctx context.Context, country string) error {
	if err := s.adapter.SetRelayLocation(ctx, country); err != nil {
		return err
	}
	if err := s.adapter.Connect(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		if s.pollStatus(ctx).Connected {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Disconnect tears the tunnel down. It always leaves the service in the
// disconnected state: when the adapter fails or the teardown window elapses,
// the result is marked forced and the state is cleared anyway.
func (s *VPNService) Disconnect(ctx context.Context) models.DisconnectResult {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.disconnect(ctx)
}

func (s *VPNService) disconnect(ctx context.Context) models.DisconnectResult {
	country := s.CurrentCountry()
	if country == "" {
		return models.DisconnectResult{Message: "already disconnected"}
	}

	s.setState(models.ConnectionStateDisconnecting)

	err := s.teardown(ctx)
	if err != nil {
		s.log.Warnw("disconnect failed, clearing state anyway", "country", country, "error", err)
		return models.DisconnectResult{
			Forced:  true,
			Message: fmt.Sprintf("forced disconnect from %s: %v", country, err),
		}
	}

	s.log.Infow("disconnected", "country", country)
	return models.DisconnectResult{Message: fmt.Sprintf("disconnected from %s", country)}
}

// teardown issues the adapter disconnect under the teardown window and clears
// the connection state. Unlike disconnect it never short-circuits, so the
// connect failure path can use it while current is still empty.
func (s *VPNService) teardown(ctx context.Context) error {
	dctx, cancel := context.WithTimeout(ctx, s.disconnectTimeout)
	defer cancel()
	err := s.adapter.Disconnect(dctx)

	s.mu.Lock()
	s.current = ""
	if s.initialized {
		s.state = models.ConnectionStateIdle
	} else {
		s.state = models.ConnectionStateUninitialized
	}
	s.mu.Unlock()
	return err
}

// Status reports the adapter's live view of the tunnel alongside the country
// this service last connected to. It does not take the operation mutex, so it
// stays responsive while a transition is in flight.
func (s *VPNService) Status(ctx context.Context) models.VPNStatus {
	sctx, cancel := context.WithTimeout(ctx, s.disconnectTimeout)
	defer cancel()
	status := s.pollStatus(sctx)
	status.Country = s.CurrentCountry()
	return status
}

func (s *VPNService) pollStatus(ctx context.Context) models.VPNStatus {
	out, err := s.adapter.Status(ctx)
	if err != nil {
		s.log.Debugw("status check failed", "error", err)
		return models.VPNStatus{Error: err.Error()}
	}
	return models.VPNStatus{Connected: parseConnected(out)}
}

// parseConnected interprets the adapter's status text. "Disconnected" and
// "Connecting" both contain the substring "connected", so order matters.
func parseConnected(out string) bool {
	l := strings.ToLower(out)
	switch {
	case strings.Contains(l, "disconnected"):
		return false
	case strings.Contains(l, "connecting"):
		return false
	default:
		return strings.Contains(l, "connected")
	}
}

// CurrentCountry returns the country of the active tunnel, or "" when there
// is none.
func (s *VPNService) CurrentCountry() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *VPNService) State() models.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *VPNService) setState(st models.ConnectionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
