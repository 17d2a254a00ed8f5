package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/qaforge/checkout-agent/internal/models"
	"github.com/qaforge/checkout-agent/internal/services"
	srvErrors "github.com/qaforge/checkout-agent/pkg/errors"
)

// fakeAdapter simulates the VPN client. pollsUntilUp controls how many status
// checks report disconnected after a connect before the tunnel comes up; a
// negative value means it never does.
type fakeAdapter struct {
	mu sync.Mutex

	loggedIn      bool
	loginErr      error
	relayErr      error
	connectErr    error
	disconnectErr error
	statusErr     error
	statusErrs    int
	pollsUntilUp  int

	connected bool
	pending   int
	calls     []string
}

func (f *fakeAdapter) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAdapter) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeAdapter) Login(_ context.Context, account string) error {
	f.record("login " + account)
	if f.loginErr != nil {
		return f.loginErr
	}
	f.loggedIn = true
	return nil
}

func (f *fakeAdapter) IsLoggedIn(context.Context) (bool, error) {
	f.record("is-logged-in")
	return f.loggedIn, nil
}

func (f *fakeAdapter) SetTunnelProtocol(_ context.Context, protocol string) error {
	f.record("tunnel-protocol " + protocol)
	return nil
}

func (f *fakeAdapter) AllowLAN(context.Context) error {
	f.record("allow-lan")
	return nil
}

func (f *fakeAdapter) UpdateRelayList(context.Context) error {
	f.record("relay-update")
	return nil
}

func (f *fakeAdapter) SetRelayLocation(_ context.Context, country string) error {
	f.record("relay-location " + country)
	return f.relayErr
}

func (f *fakeAdapter) Connect(context.Context) error {
	f.record("connect")
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.pending = f.pollsUntilUp
	f.connected = f.pollsUntilUp == 0
	f.mu.Unlock()
	return nil
}

func (f *fakeAdapter) Disconnect(context.Context) error {
	f.record("disconnect")
	if f.disconnectErr != nil {
		return f.disconnectErr
	}
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	return nil
}

func (f *fakeAdapter) Status(context.Context) (string, error) {
	f.record("status")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil && f.statusErrs != 0 {
		f.statusErrs--
		return "", f.statusErr
	}
	if f.pending > 0 {
		f.pending--
		if f.pending == 0 && f.pollsUntilUp > 0 {
			f.connected = true
		}
		if !f.connected {
			return "Connecting to relay...", nil
		}
	}
	if f.connected {
		return "Connected to relay", nil
	}
	return "Disconnected", nil
}

type fakeVerifier struct {
	mu       sync.Mutex
	result   *models.LocationVerification
	expected []string
}

func (f *fakeVerifier) Verify(_ context.Context, expectedCountry string) *models.LocationVerification {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expected = append(f.expected, expectedCountry)
	if f.result != nil {
		return f.result
	}
	return &models.LocationVerification{
		Success:         true,
		DetectedCountry: strings.ToUpper(expectedCountry),
		ExpectedCountry: expectedCountry,
		IP:              "1.2.3.4",
	}
}

var _ = Describe("VPNService", func() {
	var (
		adapter  *fakeAdapter
		verifier *fakeVerifier
		svc      *services.VPNService
		ctx      context.Context
	)

	newService := func(account string, opts ...services.VPNOption) *services.VPNService {
		base := []services.VPNOption{
			services.WithConnectTimeout(500 * time.Millisecond),
			services.WithDisconnectTimeout(200 * time.Millisecond),
			services.WithPollInterval(5 * time.Millisecond),
		}
		return services.NewVPNService(adapter, verifier, account, append(base, opts...)...)
	}

	BeforeEach(func() {
		adapter = &fakeAdapter{}
		verifier = &fakeVerifier{}
		ctx = context.Background()
		svc = newService("mullvad-account-1")
	})

	Describe("Connect", func() {
		It("should connect, verify the egress location and report success", func() {
			// Given a logged-out account and a tunnel that comes up on the first poll
			verifier.result = &models.LocationVerification{
				Success:         true,
				DetectedCountry: "DE",
				ExpectedCountry: "de",
				IP:              "1.2.3.4",
				City:            "Berlin",
			}

			// When connecting to Germany
			res, err := svc.Connect(ctx, "DE")

			// Then the tunnel is up and verification data is attached
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(res.Country).To(Equal("de"))
			Expect(res.Verification.Success).To(BeTrue())
			Expect(res.Verification.City).To(Equal("Berlin"))
			Expect(svc.CurrentCountry()).To(Equal("de"))
			Expect(svc.State()).To(Equal(models.ConnectionStateConnected))
			Expect(verifier.expected).To(Equal([]string{"de"}))
		})

		It("should set the relay location before connecting", func() {
			_, err := svc.Connect(ctx, "se")
			Expect(err).NotTo(HaveOccurred())

			var relayIdx, connectIdx int
			for i, c := range adapter.calls {
				switch c {
				case "relay-location se":
					relayIdx = i
				case "connect":
					connectIdx = i
				}
			}
			Expect(relayIdx).To(BeNumerically("<", connectIdx))
		})

		It("should initialize once across connects", func() {
			_, err := svc.Connect(ctx, "de")
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Connect(ctx, "se")
			Expect(err).NotTo(HaveOccurred())

			Expect(adapter.callCount("login")).To(Equal(1))
			Expect(adapter.callCount("tunnel-protocol")).To(Equal(1))
			Expect(adapter.callCount("allow-lan")).To(Equal(1))
		})

		It("should skip login when the adapter already holds a session", func() {
			adapter.loggedIn = true

			_, err := svc.Connect(ctx, "de")

			Expect(err).NotTo(HaveOccurred())
			Expect(adapter.callCount("login")).To(BeZero())
		})

		It("should fail without an account and leave the adapter untouched", func() {
			svc = newService("")

			res, err := svc.Connect(ctx, "de")

			Expect(res).To(BeNil())
			Expect(srvErrors.IsNotConfiguredError(err)).To(BeTrue())
			Expect(adapter.calls).To(BeEmpty())
			Expect(svc.State()).To(Equal(models.ConnectionStateUninitialized))
		})

		It("should log the missing credential as a warning, not an error", func() {
			core, logs := observer.New(zapcore.WarnLevel)
			restore := zap.ReplaceGlobals(zap.New(core))
			defer restore()

			svc = newService("")
			_, err := svc.Connect(ctx, "de")

			Expect(srvErrors.IsNotConfiguredError(err)).To(BeTrue())
			Expect(logs.FilterLevelExact(zapcore.ErrorLevel).Len()).To(BeZero())
			Expect(logs.FilterMessage("vpn is not configured").Len()).To(Equal(1))
		})

		It("should surface device-limit failures distinctly", func() {
			adapter.loginErr = srvErrors.NewDeviceLimitError("mullvad-account-1")

			_, err := svc.Connect(ctx, "de")

			Expect(srvErrors.IsDeviceLimitError(err)).To(BeTrue())
			Expect(svc.CurrentCountry()).To(BeEmpty())
		})

		It("should succeed with failed verification when egress does not match", func() {
			// Given a tunnel that lands in France instead of Germany
			verifier.result = &models.LocationVerification{
				Success:         false,
				DetectedCountry: "FR",
				ExpectedCountry: "de",
				IP:              "5.6.7.8",
			}

			res, err := svc.Connect(ctx, "de")

			// Then the connection itself still succeeds
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(res.Verification.Success).To(BeFalse())
			Expect(res.Verification.DetectedCountry).To(Equal("FR"))
			Expect(res.Message).To(ContainSubstring("verification failed"))
			Expect(svc.CurrentCountry()).To(Equal("de"))
		})

		It("should time out and tear down when the tunnel never comes up", func() {
			// Given an adapter whose status never reports connected
			adapter.pollsUntilUp = -1
			svc = newService("mullvad-account-1",
				services.WithConnectTimeout(50*time.Millisecond),
				services.WithPollInterval(5*time.Millisecond))

			res, err := svc.Connect(ctx, "jp")

			// Then the connect fails with a timeout and no tunnel remains
			Expect(res).To(BeNil())
			Expect(srvErrors.IsConnectTimeoutError(err)).To(BeTrue())
			var timeoutErr *srvErrors.ConnectTimeoutError
			Expect(errors.As(err, &timeoutErr)).To(BeTrue())
			Expect(timeoutErr.Country).To(Equal("jp"))
			Expect(svc.CurrentCountry()).To(BeEmpty())
			Expect(svc.State()).To(Equal(models.ConnectionStateIdle))
			// The connect command was already issued, so cleanup must reach
			// the adapter even though no country was recorded yet.
			Expect(adapter.callCount("disconnect")).To(Equal(1))
		})

		It("should tear down and fail when the relay cannot be set", func() {
			adapter.relayErr = fmt.Errorf("relay constraint rejected")

			_, err := svc.Connect(ctx, "de")

			Expect(err).To(MatchError(ContainSubstring("relay constraint rejected")))
			Expect(srvErrors.IsConnectTimeoutError(err)).To(BeFalse())
			Expect(svc.CurrentCountry()).To(BeEmpty())
			Expect(svc.State()).To(Equal(models.ConnectionStateIdle))
			Expect(adapter.callCount("disconnect")).To(Equal(1))
		})

		It("should tolerate transient status failures while polling", func() {
			adapter.pollsUntilUp = 2
			adapter.statusErr = fmt.Errorf("daemon busy")
			adapter.statusErrs = 2

			res, err := svc.Connect(ctx, "de")

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
		})

		It("should tear down an existing tunnel before reconnecting", func() {
			_, err := svc.Connect(ctx, "de")
			Expect(err).NotTo(HaveOccurred())

			res, err := svc.Connect(ctx, "se")

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Country).To(Equal("se"))
			Expect(adapter.callCount("disconnect")).To(Equal(1))
			Expect(svc.CurrentCountry()).To(Equal("se"))
		})

		It("should reconnect even when tearing down the previous tunnel fails", func() {
			_, err := svc.Connect(ctx, "de")
			Expect(err).NotTo(HaveOccurred())
			adapter.disconnectErr = fmt.Errorf("daemon unreachable")

			res, err := svc.Connect(ctx, "se")

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Country).To(Equal("se"))
			Expect(svc.CurrentCountry()).To(Equal("se"))
		})

		It("should serialize concurrent connects", func() {
			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i, country := range []string{"de", "se"} {
				wg.Add(1)
				go func(i int, country string) {
					defer wg.Done()
					_, errs[i] = svc.Connect(ctx, country)
				}(i, country)
			}
			wg.Wait()

			Expect(errs[0]).NotTo(HaveOccurred())
			Expect(errs[1]).NotTo(HaveOccurred())
			// The second caller tears down the first caller's tunnel.
			Expect(adapter.callCount("connect")).To(Equal(2))
			Expect(adapter.callCount("disconnect")).To(Equal(1))
			Expect(svc.CurrentCountry()).To(BeElementOf("de", "se"))
			Expect(svc.State()).To(Equal(models.ConnectionStateConnected))
		})
	})

	Describe("Disconnect", func() {
		It("should be a no-op when there is no tunnel", func() {
			res := svc.Disconnect(ctx)

			Expect(res.Forced).To(BeFalse())
			Expect(res.Message).To(Equal("already disconnected"))
			Expect(adapter.callCount("disconnect")).To(BeZero())
		})

		It("should disconnect an active tunnel", func() {
			_, err := svc.Connect(ctx, "de")
			Expect(err).NotTo(HaveOccurred())

			res := svc.Disconnect(ctx)

			Expect(res.Forced).To(BeFalse())
			Expect(res.Message).To(ContainSubstring("de"))
			Expect(svc.CurrentCountry()).To(BeEmpty())
			Expect(svc.State()).To(Equal(models.ConnectionStateIdle))
		})

		It("should clear state even when the adapter fails", func() {
			_, err := svc.Connect(ctx, "de")
			Expect(err).NotTo(HaveOccurred())
			adapter.disconnectErr = fmt.Errorf("daemon unreachable")

			res := svc.Disconnect(ctx)

			Expect(res.Forced).To(BeTrue())
			Expect(res.Message).To(ContainSubstring("forced"))
			Expect(svc.CurrentCountry()).To(BeEmpty())
			Expect(svc.State()).To(Equal(models.ConnectionStateIdle))
		})
	})

	Describe("Status", func() {
		It("should report a connected tunnel with its country", func() {
			_, err := svc.Connect(ctx, "de")
			Expect(err).NotTo(HaveOccurred())

			status := svc.Status(ctx)

			Expect(status.Connected).To(BeTrue())
			Expect(status.Country).To(Equal("de"))
			Expect(status.Error).To(BeEmpty())
		})

		It("should report disconnected before any connect", func() {
			status := svc.Status(ctx)

			Expect(status.Connected).To(BeFalse())
			Expect(status.Country).To(BeEmpty())
		})

		It("should carry the adapter error when the daemon is unreachable", func() {
			adapter.statusErr = fmt.Errorf("daemon unreachable")
			adapter.statusErrs = -1

			status := svc.Status(ctx)

			Expect(status.Connected).To(BeFalse())
			Expect(status.Error).To(ContainSubstring("unreachable"))
		})
	})
})
