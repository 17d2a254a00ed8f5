// Package browser drives Stripe checkout pages through a headless Chrome
// instance controlled via Rod.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/qaforge/checkout-agent/internal/models"
	srvErrors "github.com/qaforge/checkout-agent/pkg/errors"
)

// Stripe checkout DOM selectors. These track the markup Stripe serves and
// need revisiting when Stripe changes its checkout page.
const (
	selProductSummaryName   = ".ProductSummary-name"
	selProductSummaryAmount = ".ProductSummary-totalAmount"
	selLineItemName         = ".LineItem-productName"
	selLineItemAmount       = ".LineItem-tieredPricingAmounts, .LineItem-amount"
	selSubtotalAmount       = "#subtotal .CurrencyAmount, .OrderDetails-subtotal .CurrencyAmount"
	selTotalAmount          = ".OrderDetails-total .CurrencyAmount"
	selTrialAmount          = ".OrderDetails-trial .CurrencyAmount"

	selCardNumber     = "input[name=cardNumber]"
	selCardExpiry     = "input[name=cardExpiry]"
	selCardCvc        = "input[name=cardCvc]"
	selCardholderName = "input[name=billingName]"
	selSubmitButton   = ".SubmitButton"
	selFieldError     = ".FieldError, [role=alert]"
)

type Config struct {
	Headless bool
	// AppURL is the membership app origin; auth state is seeded into its
	// local storage before navigating to a checkout page.
	AppURL         string
	Timeout        time.Duration
	ScreenshotsDir string
}

func DefaultConfig() Config {
	return Config{
		Headless:       true,
		Timeout:        60 * time.Second,
		ScreenshotsDir: "screenshots",
	}
}

// Client wraps a shared Chrome instance. Pages are opened per task and closed
// when the task ends; the browser itself lives for the process lifetime.
type Client struct {
	browser *rod.Browser
	cfg     Config
	log     *zap.SugaredLogger
}

// NewClient launches Chrome and connects to it.
func NewClient(cfg Config) (*Client, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	url, err := l.Launch()
	if err != nil {
		return nil, srvErrors.NewBrowserError("launch", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, srvErrors.NewBrowserError("connect", err)
	}

	return &Client{
		browser: browser,
		cfg:     cfg,
		log:     zap.S().Named("browser"),
	}, nil
}

func (c *Client) Close() error {
	if c.browser != nil {
		return c.browser.Close()
	}
	return nil
}

// ReadCheckoutDetails opens the checkout page and scrapes the order summary.
func (c *Client) ReadCheckoutDetails(ctx context.Context, task models.CheckoutTask) (*models.CheckoutDetails, error) {
	page, err := c.openCheckout(ctx, task)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	details := &models.CheckoutDetails{
		ProductSummaryName:        c.textOf(page, selProductSummaryName),
		ProductSummaryTotalAmount: c.textOf(page, selProductSummaryAmount),
		LineItemProductName:       c.textOf(page, selLineItemName),
		LineItemTotalAmount:       c.textOf(page, selLineItemAmount),
		SubtotalAmount:            c.textOf(page, selSubtotalAmount),
		TotalAmount:               c.textOf(page, selTotalAmount),
		TrialAmount:               c.textOf(page, selTrialAmount),
	}

	if details.ProductSummaryName == "" && details.TotalAmount == "" {
		return nil, srvErrors.NewBrowserError("scrape",
			fmt.Errorf("no checkout summary found on %s", task.CheckoutURL))
	}

	c.log.Infow("checkout details scraped",
		"product", details.ProductSummaryName,
		"total", details.TotalAmount)
	return details, nil
}

// PayCard fills the card form and submits it, capturing screenshots before
// and after submission. A redirect away from the checkout origin counts as a
// successful payment; otherwise the page's field error is reported as a
// decline.
func (c *Client) PayCard(ctx context.Context, task models.PaymentTask) (*models.PaymentOutcome, error) {
	page, err := c.openCheckout(ctx, task.CheckoutTask)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	outcome := &models.PaymentOutcome{}
	outcome.BeforeScreenshot = c.screenshot(page, "before")

	fields := []struct {
		sel, value string
	}{
		{selCardNumber, task.Card.Number},
		{selCardExpiry, task.Card.Expiry},
		{selCardCvc, task.Card.CVC},
		{selCardholderName, task.Card.CardholderName},
	}
	for _, f := range fields {
		if err := c.fill(page, f.sel, f.value); err != nil {
			return nil, err
		}
	}

	submit, err := page.Element(selSubmitButton)
	if err != nil {
		return nil, srvErrors.NewBrowserError("submit", err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, srvErrors.NewBrowserError("submit", err)
	}

	// Stripe redirects to the merchant success URL on approval; declines
	// keep the checkout page open and surface a field error.
	if err := page.WaitStable(2 * time.Second); err != nil {
		c.log.Debugw("page did not settle after submit", "error", err)
	}
	finalURL := c.currentURL(page)
	outcome.FinalURL = finalURL
	outcome.PaymentSucceeded = finalURL != "" && !isCheckoutURL(finalURL, task.CheckoutURL)
	if !outcome.PaymentSucceeded {
		outcome.DeclineMessage = c.textOf(page, selFieldError)
	}
	outcome.AfterScreenshot = c.screenshot(page, "after")

	c.log.Infow("payment submitted",
		"succeeded", outcome.PaymentSucceeded,
		"finalUrl", finalURL)
	return outcome, nil
}

func (c *Client) openCheckout(ctx context.Context, task models.CheckoutTask) (*rod.Page, error) {
	page, err := c.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, srvErrors.NewBrowserError("open page", err)
	}
	page = page.Context(ctx).Timeout(c.cfg.Timeout)

	if task.AuthToken != "" && c.cfg.AppURL != "" {
		if err := c.seedSession(page, task); err != nil {
			page.Close()
			return nil, err
		}
	}

	if err := page.Navigate(task.CheckoutURL); err != nil {
		page.Close()
		return nil, srvErrors.NewBrowserError("navigate", err)
	}
	if err := page.WaitStable(time.Second); err != nil {
		page.Close()
		return nil, srvErrors.NewBrowserError("wait for page", err)
	}
	return page, nil
}

// seedSession loads the app origin and plants the auth token and user data in
// local storage, so the post-payment success page renders authenticated.
func (c *Client) seedSession(page *rod.Page, task models.CheckoutTask) error {
	if err := page.Navigate(c.cfg.AppURL); err != nil {
		return srvErrors.NewBrowserError("navigate to app", err)
	}
	if err := page.WaitLoad(); err != nil {
		return srvErrors.NewBrowserError("load app", err)
	}

	userData := "{}"
	if task.UserData != nil {
		data, err := json.Marshal(task.UserData)
		if err != nil {
			return srvErrors.NewBrowserError("encode user data", err)
		}
		userData = string(data)
	}

	_, err := page.Eval(`(token, userData) => {
		localStorage.setItem('authToken', token);
		localStorage.setItem('userData', userData);
	}`, task.AuthToken, userData)
	if err != nil {
		return srvErrors.NewBrowserError("seed session", err)
	}
	return nil
}

func (c *Client) fill(page *rod.Page, sel, value string) error {
	if value == "" {
		return nil
	}
	el, err := page.Element(sel)
	if err != nil {
		return srvErrors.NewBrowserError("find "+sel, err)
	}
	if err := el.Input(value); err != nil {
		return srvErrors.NewBrowserError("fill "+sel, err)
	}
	return nil
}

// textOf returns the trimmed text of the first matching element, or "" when
// the selector is absent. Checkout pages vary by product and locale, so a
// missing element is data, not a failure.
func (c *Client) textOf(page *rod.Page, sel string) string {
	has, el, err := page.Has(sel)
	if err != nil || !has {
		return ""
	}
	text, err := el.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func (c *Client) currentURL(page *rod.Page) string {
	info, err := page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// screenshot captures the page and returns the saved file path, or "" when
// capture fails. Screenshots are evidence, never a reason to fail a task.
func (c *Client) screenshot(page *rod.Page, label string) string {
	data, err := page.Screenshot(true, nil)
	if err != nil {
		c.log.Warnw("screenshot failed", "label", label, "error", err)
		return ""
	}
	if err := os.MkdirAll(c.cfg.ScreenshotsDir, 0o755); err != nil {
		c.log.Warnw("screenshot dir", "error", err)
		return ""
	}
	name := fmt.Sprintf("%s-%s.png", time.Now().UTC().Format("20060102-150405.000"), label)
	path := filepath.Join(c.cfg.ScreenshotsDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.log.Warnw("screenshot write failed", "path", path, "error", err)
		return ""
	}
	return path
}

func isCheckoutURL(current, original string) bool {
	cu, err := url.Parse(current)
	if err != nil {
		return false
	}
	ou, err := url.Parse(original)
	if err != nil {
		return false
	}
	return cu.Host == ou.Host
}
