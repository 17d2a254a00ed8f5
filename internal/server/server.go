// Package server provides the HTTP server for the checkout agent.
//
// The server uses the Gin web framework. All API routes live under /api and
// carry the logger and recovery middleware; when auth is enabled they also
// require a bearer JWT signed with the configured secret.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qaforge/checkout-agent/internal/config"
	"github.com/qaforge/checkout-agent/internal/server/middlewares"
)

// RegisterHandlersFn mounts API routes on the /api group.
type RegisterHandlersFn func(group *gin.RouterGroup)

type Server struct {
	cfg    *config.Configuration
	router *gin.Engine
	srv    *http.Server
	log    *zap.SugaredLogger
}

func NewServer(cfg *config.Configuration, registerFn RegisterHandlersFn) *Server {
	if cfg.Server.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middlewares.Logger())
	router.Use(ginzap.RecoveryWithZap(zap.L().Named("http"), true))

	api := router.Group("/api")
	if cfg.Auth.Enabled {
		api.Use(middlewares.Auth(cfg.Auth.Secret))
	}
	registerFn(api)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return &Server{
		cfg:    cfg,
		router: router,
		log:    zap.S().Named("server"),
	}
}

// Handler exposes the configured router, mainly for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Infow("http server listening", "addr", s.srv.Addr, "mode", s.cfg.Server.Mode)
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully, waiting for in-flight requests
// until the context expires.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	s.log.Info("shutting down http server")
	return s.srv.Shutdown(ctx)
}
