package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qaforge/checkout-agent/internal/locations"
	"github.com/qaforge/checkout-agent/internal/models"
	"github.com/qaforge/checkout-agent/internal/store"
	srvErrors "github.com/qaforge/checkout-agent/pkg/errors"
	"github.com/qaforge/checkout-agent/pkg/scheduler"
)

// CheckoutBrowser drives checkout pages. Implementations are not safe for
// concurrent page work, which is why tasks go through a single-task
// scheduler.
type CheckoutBrowser interface {
	ReadCheckoutDetails(ctx context.Context, task models.CheckoutTask) (*models.CheckoutDetails, error)
	PayCard(ctx context.Context, task models.PaymentTask) (*models.PaymentOutcome, error)
}

// CheckoutResult is the outcome of one checkout task. Details is set for
// verify runs, Outcome for pay-card runs.
type CheckoutResult struct {
	Run     *models.Run
	Details *models.CheckoutDetails
	Outcome *models.PaymentOutcome
}

// CheckoutService orchestrates a checkout task: pin the egress country via
// the VPN service, drive the page through the browser, and persist the run.
// Browser work is funneled through the serializing scheduler so only one page
// is driven at a time.
type CheckoutService struct {
	vpn       *VPNService
	browser   CheckoutBrowser
	store     *store.Store
	registry  *locations.Registry
	scheduler *scheduler.Scheduler
	log       *zap.SugaredLogger
}

func NewCheckoutService(
	vpn *VPNService,
	browser CheckoutBrowser,
	st *store.Store,
	registry *locations.Registry,
	sched *scheduler.Scheduler,
) *CheckoutService {
	return &CheckoutService{
		vpn:       vpn,
		browser:   browser,
		store:     st,
		registry:  registry,
		scheduler: sched,
		log:       zap.S().Named("checkout"),
	}
}

// Verify opens the checkout page and scrapes the order summary, optionally
// pinning the egress country first.
func (s *CheckoutService) Verify(ctx context.Context, task models.CheckoutTask) (*CheckoutResult, error) {
	return s.execute(ctx, models.RunKindVerify, &task, func(ctx context.Context, result *CheckoutResult) error {
		details, err := s.schedule(ctx, func(ctx context.Context) (any, error) {
			return s.browser.ReadCheckoutDetails(ctx, task)
		})
		if err != nil {
			return err
		}
		result.Details = details.(*models.CheckoutDetails)
		result.Run.Message = "checkout page verified"
		return nil
	})
}

// PayCard drives a full card payment through the checkout page.
func (s *CheckoutService) PayCard(ctx context.Context, task models.PaymentTask) (*CheckoutResult, error) {
	return s.execute(ctx, models.RunKindPayCard, &task.CheckoutTask, func(ctx context.Context, result *CheckoutResult) error {
		outcome, err := s.schedule(ctx, func(ctx context.Context) (any, error) {
			return s.browser.PayCard(ctx, task)
		})
		if err != nil {
			return err
		}
		result.Outcome = outcome.(*models.PaymentOutcome)
		result.Run.BeforeScreenshot = result.Outcome.BeforeScreenshot
		result.Run.AfterScreenshot = result.Outcome.AfterScreenshot
		if result.Outcome.PaymentSucceeded {
			result.Run.Message = "payment succeeded"
		} else {
			result.Run.Success = false
			result.Run.Message = "payment declined"
			if result.Outcome.DeclineMessage != "" {
				result.Run.Message = "payment declined: " + result.Outcome.DeclineMessage
			}
		}
		return nil
	})
}

func (s *CheckoutService) execute(
	ctx context.Context,
	kind models.RunKind,
	task *models.CheckoutTask,
	work func(ctx context.Context, result *CheckoutResult) error,
) (*CheckoutResult, error) {
	if task.Country != "" && !s.registry.Validate(task.Country) {
		return nil, srvErrors.NewLocationNotSupportedError(task.Country)
	}
	if task.Currency == "" && task.Country != "" {
		task.Currency = s.registry.CurrencyFor(task.Country)
	}

	result := &CheckoutResult{
		Run: &models.Run{
			ID:       uuid.NewString(),
			Kind:     kind,
			Country:  task.Country,
			Currency: task.Currency,
			Success:  true,
		},
	}

	if task.Country != "" {
		conn, err := s.vpn.Connect(ctx, task.Country)
		if err != nil {
			result.Run.Success = false
			result.Run.Message = err.Error()
			s.saveRun(ctx, result.Run)
			return nil, err
		}
		result.Run.Verification = conn.Verification
		// The tunnel must come down even when the request is cancelled.
		defer s.vpn.Disconnect(context.WithoutCancel(ctx))
	}

	if err := work(ctx, result); err != nil {
		result.Run.Success = false
		result.Run.Message = err.Error()
		s.saveRun(ctx, result.Run)
		return nil, err
	}

	s.saveRun(ctx, result.Run)
	return result, nil
}

// schedule runs browser work through the shared single-task scheduler and
// waits for it. The caller's ctx travels with the task, so an abandoned
// request resolves immediately even while queued behind other work.
func (s *CheckoutService) schedule(ctx context.Context, work scheduler.Work[any]) (any, error) {
	res := <-s.scheduler.AddWork(ctx, work).C()
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Data, nil
}

// Run history is best-effort: a storage hiccup must not fail a task that
// already completed.
func (s *CheckoutService) saveRun(ctx context.Context, run *models.Run) {
	if err := s.store.Runs().Save(context.WithoutCancel(ctx), run); err != nil {
		s.log.Errorw("saving run failed", "run", run.ID, "error", err)
	}
}
