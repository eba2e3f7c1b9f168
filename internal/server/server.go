// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes menu extraction over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pdiddy/menu-engine/internal/store"
	"github.com/pdiddy/menu-engine/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// Menus resolves, looks up, and evicts stored menus.
type Menus interface {
	Resolve(ctx context.Context, req types.ExtractionRequest) (*types.MenuDocument, error)
	Lookup(ctx context.Context, req types.ExtractionRequest) (*types.MenuDocument, error)
	Evict(ctx context.Context, req types.ExtractionRequest) (bool, error)
	List(ctx context.Context, limit, skip int) ([]store.Record, int, error)
}

// Recognizer returns recognized menu text without structuring it.
type Recognizer interface {
	RecognizeOnly(ctx context.Context, req types.ExtractionRequest) (*types.SimpleResult, error)
}

// Server is the HTTP front end.
type Server struct {
	menus  Menus
	text   Recognizer
	cfg    types.ServerConfig
	logger *slog.Logger
	engine *gin.Engine
}

// New builds the router. Routes are served both at the root and under
// /api/v1.
func New(menus Menus, text Recognizer, cfg types.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{menus: menus, text: text, cfg: cfg, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(logger))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(errorResponder(logger))

	r.GET("/health", s.health)
	for _, prefix := range []string{"", "/api/v1"} {
		g := r.Group(prefix)
		g.POST("/extract-menu", s.extractMenu)
		g.POST("/extract-simple", s.extractSimple)
		g.GET("/menus", s.listMenus)
		g.GET("/menus/:name", s.getMenu)
		if cfg.JWTSecret != "" {
			g.DELETE("/menus/:name", requireAdmin([]byte(cfg.JWTSecret)), s.deleteMenu)
		} else {
			g.DELETE("/menus/:name", s.deleteMenu)
		}
	}
	s.engine = r
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = types.DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
