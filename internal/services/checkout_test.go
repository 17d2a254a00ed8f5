package services_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/qaforge/checkout-agent/internal/locations"
	"github.com/qaforge/checkout-agent/internal/models"
	"github.com/qaforge/checkout-agent/internal/services"
	"github.com/qaforge/checkout-agent/internal/store"
	srvErrors "github.com/qaforge/checkout-agent/pkg/errors"
	"github.com/qaforge/checkout-agent/pkg/scheduler"
)

type fakeBrowser struct {
	mu         sync.Mutex
	details    *models.CheckoutDetails
	detailsErr error
	outcome    *models.PaymentOutcome
	payErr     error
	active     int
	maxActive  int
	delay      time.Duration
}

func (f *fakeBrowser) enter() {
	f.mu.Lock()
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
}

func (f *fakeBrowser) leave() {
	f.mu.Lock()
	f.active--
	f.mu.Unlock()
}

func (f *fakeBrowser) ReadCheckoutDetails(_ context.Context, _ models.CheckoutTask) (*models.CheckoutDetails, error) {
	f.enter()
	defer f.leave()
	if f.detailsErr != nil {
		return nil, f.detailsErr
	}
	return f.details, nil
}

func (f *fakeBrowser) PayCard(_ context.Context, _ models.PaymentTask) (*models.PaymentOutcome, error) {
	f.enter()
	defer f.leave()
	if f.payErr != nil {
		return nil, f.payErr
	}
	return f.outcome, nil
}

var _ = Describe("CheckoutService", func() {
	var (
		ctx      context.Context
		adapter  *fakeAdapter
		verifier *fakeVerifier
		browser  *fakeBrowser
		st       *store.Store
		sched    *scheduler.Scheduler
		svc      *services.CheckoutService
	)

	BeforeEach(func() {
		ctx = context.Background()
		adapter = &fakeAdapter{}
		verifier = &fakeVerifier{}
		browser = &fakeBrowser{
			details: &models.CheckoutDetails{
				ProductSummaryName: "Premium Membership",
				SubtotalAmount:     "€199.99",
				TotalAmount:        "€199.99",
			},
			outcome: &models.PaymentOutcome{
				PaymentSucceeded: true,
				FinalURL:         "https://app.example.com/membership",
				BeforeScreenshot: "screenshots/before.png",
				AfterScreenshot:  "screenshots/after.png",
			},
		}

		db, err := store.NewDB(":memory:")
		Expect(err).NotTo(HaveOccurred())
		st = store.NewStore(db)
		Expect(st.Migrate(ctx)).To(Succeed())

		sched = scheduler.NewScheduler()

		vpn := services.NewVPNService(adapter, verifier, "mullvad-account-1",
			services.WithConnectTimeout(500*time.Millisecond),
			services.WithDisconnectTimeout(200*time.Millisecond),
			services.WithPollInterval(5*time.Millisecond))

		registry := locations.NewRegistry(
			models.Location{Code: "de", Name: "Germany", Currency: "eur"},
			models.Location{Code: "se", Name: "Sweden", Currency: "sek"},
			models.Location{Code: "us", Name: "United States", Currency: "usd"},
		)

		svc = services.NewCheckoutService(vpn, browser, st, registry, sched)
	})

	AfterEach(func() {
		sched.Close()
		st.Close()
	})

	Describe("Verify", func() {
		It("should pin the country, scrape the page and persist the run", func() {
			res, err := svc.Verify(ctx, models.CheckoutTask{
				CheckoutURL: "https://checkout.stripe.com/c/pay/cs_test_1",
				Country:     "de",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Details.ProductSummaryName).To(Equal("Premium Membership"))
			Expect(res.Run.Kind).To(Equal(models.RunKindVerify))
			Expect(res.Run.Country).To(Equal("de"))
			// Currency falls back to the registry entry for the country
			Expect(res.Run.Currency).To(Equal("eur"))
			Expect(res.Run.Success).To(BeTrue())
			Expect(res.Run.Verification).NotTo(BeNil())

			// The tunnel is always released after the task
			Expect(adapter.callCount("disconnect")).To(Equal(1))

			stored, err := st.Runs().Get(ctx, res.Run.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Success).To(BeTrue())
		})

		It("should run without a VPN when no country is requested", func() {
			res, err := svc.Verify(ctx, models.CheckoutTask{
				CheckoutURL: "https://checkout.stripe.com/c/pay/cs_test_1",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Run.Verification).To(BeNil())
			Expect(adapter.calls).To(BeEmpty())
		})

		It("should reject an unsupported country", func() {
			_, err := svc.Verify(ctx, models.CheckoutTask{
				CheckoutURL: "https://checkout.stripe.com/c/pay/cs_test_1",
				Country:     "xx",
			})

			Expect(srvErrors.IsLocationNotSupportedError(err)).To(BeTrue())
			Expect(adapter.calls).To(BeEmpty())
		})

		It("should record a failed run when the VPN cannot connect", func() {
			adapter.loginErr = srvErrors.NewDeviceLimitError("mullvad-account-1")

			_, err := svc.Verify(ctx, models.CheckoutTask{
				CheckoutURL: "https://checkout.stripe.com/c/pay/cs_test_1",
				Country:     "de",
			})
			Expect(srvErrors.IsDeviceLimitError(err)).To(BeTrue())

			runs, err := st.Runs().List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(1))
			Expect(runs[0].Success).To(BeFalse())
		})

		It("should record a failed run and release the tunnel when scraping fails", func() {
			browser.detailsErr = fmt.Errorf("no checkout summary found")

			_, err := svc.Verify(ctx, models.CheckoutTask{
				CheckoutURL: "https://checkout.stripe.com/c/pay/cs_test_1",
				Country:     "de",
			})
			Expect(err).To(MatchError(ContainSubstring("no checkout summary")))

			Expect(adapter.callCount("disconnect")).To(Equal(1))
			runs, _ := st.Runs().List(ctx)
			Expect(runs).To(HaveLen(1))
			Expect(runs[0].Success).To(BeFalse())
		})

		It("should drive at most one page at a time", func() {
			browser.delay = 50 * time.Millisecond

			var wg sync.WaitGroup
			for range 3 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.Verify(ctx, models.CheckoutTask{
						CheckoutURL: "https://checkout.stripe.com/c/pay/cs_test_1",
					})
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			Expect(browser.maxActive).To(Equal(1))
		})
	})

	Describe("PayCard", func() {
		var task models.PaymentTask

		BeforeEach(func() {
			task = models.PaymentTask{
				CheckoutTask: models.CheckoutTask{
					CheckoutURL: "https://checkout.stripe.com/c/pay/cs_test_1",
					Country:     "se",
				},
				Card: models.Card{
					Number:         "4242424242424242",
					Expiry:         "12/30",
					CVC:            "123",
					CardholderName: "Test User",
				},
			}
		})

		It("should submit the payment and persist screenshots", func() {
			res, err := svc.PayCard(ctx, task)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Outcome.PaymentSucceeded).To(BeTrue())
			Expect(res.Run.Kind).To(Equal(models.RunKindPayCard))
			Expect(res.Run.Currency).To(Equal("sek"))

			stored, err := st.Runs().Get(ctx, res.Run.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.BeforeScreenshot).To(Equal("screenshots/before.png"))
			Expect(stored.AfterScreenshot).To(Equal("screenshots/after.png"))
		})

		It("should record a declined payment as an unsuccessful run", func() {
			browser.outcome = &models.PaymentOutcome{
				PaymentSucceeded: false,
				DeclineMessage:   "Your card was declined.",
			}

			res, err := svc.PayCard(ctx, task)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Outcome.PaymentSucceeded).To(BeFalse())
			Expect(res.Run.Success).To(BeFalse())
			Expect(res.Run.Message).To(ContainSubstring("declined"))
		})

		It("should keep an explicit currency over the registry default", func() {
			task.Currency = "usd"

			res, err := svc.PayCard(ctx, task)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Run.Currency).To(Equal("usd"))
		})
	})
})
