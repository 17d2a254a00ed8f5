package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qaforge/checkout-agent/internal/config"
	"github.com/qaforge/checkout-agent/internal/handlers"
	"github.com/qaforge/checkout-agent/internal/locations"
	"github.com/qaforge/checkout-agent/internal/server"
	"github.com/qaforge/checkout-agent/internal/services"
	"github.com/qaforge/checkout-agent/internal/store"
	"github.com/qaforge/checkout-agent/pkg/browser"
	"github.com/qaforge/checkout-agent/pkg/geoip"
	"github.com/qaforge/checkout-agent/pkg/scheduler"
	"github.com/qaforge/checkout-agent/pkg/vpncli"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the checkout agent HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Configuration) error {
	log := zap.S().Named("agent")
	log.Infow("starting checkout agent", "config", cfg.DebugMap())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(cfg.Store.Path)
	if err != nil {
		return err
	}
	st := store.NewStore(db)
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	registry := locations.Load(cfg.VPN.LocationsFile)

	vpnSrv := services.NewVPNService(
		vpncli.New(),
		geoip.NewClient(),
		cfg.VPN.Account,
		services.WithTunnelProtocol(cfg.VPN.TunnelProtocol),
		services.WithConnectTimeout(cfg.VPN.ConnectTimeout),
		services.WithDisconnectTimeout(cfg.VPN.DisconnectTimeout),
		services.WithPollInterval(cfg.VPN.PollInterval),
	)

	browserClient, err := browser.NewClient(browser.Config{
		Headless:       cfg.Browser.Headless,
		AppURL:         cfg.Browser.AppURL,
		Timeout:        cfg.Browser.Timeout,
		ScreenshotsDir: cfg.Browser.ScreenshotsDir,
	})
	if err != nil {
		return err
	}
	defer browserClient.Close()

	// Browser tasks run strictly one at a time.
	sched := scheduler.NewScheduler()
	defer sched.Close()

	checkoutSrv := services.NewCheckoutService(vpnSrv, browserClient, st, registry, sched)
	runSrv := services.NewRunService(st)

	handler := handlers.New(checkoutSrv, vpnSrv, runSrv, registry)
	srv := server.NewServer(cfg, func(group *gin.RouterGroup) {
		handlers.RegisterRoutes(group, handler)
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Shutdown: stop accepting requests, then make sure no tunnel outlives
	// the process.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warnw("http shutdown failed", "error", err)
	}
	if res := vpnSrv.Disconnect(shutdownCtx); res.Forced {
		log.Warnw("final vpn teardown was forced", "detail", res.Message)
	}
	return nil
}
