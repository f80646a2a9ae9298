// Package server provide http servers: main with public api and optional management server.
package server

//
// server.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-backend/internal/aerr"
	"gitlab.com/kabes/go-backend/internal/api"
	"gitlab.com/kabes/go-backend/internal/config"
)

const (
	defaultReadTimeout    = 60 * time.Second
	defaultWriteTimeout   = 60 * time.Second
	defaultMaxHeaderBytes = 1 << 20

	logKeyReqID = "req_id"
)

type Server struct {
	router chi.Router

	cfg *config.ServerConf
	s   *http.Server
}

func New(injector do.Injector) (*Server, error) {
	cfg := do.MustInvoke[*config.ServerConf](injector)
	publicAPI := do.MustInvoke[api.API](injector)
	webroot := cfg.MainServer.WebRoot

	router := chi.NewRouter()
	router.Use(newPeerAddrMiddleware)
	router.Use(middleware.RealIP)
	router.Use(hlog.NewHandler(log.Logger))
	router.Use(hlog.RequestIDHandler(logKeyReqID, "Request-Id"))

	if cfg.DebugFlags.HasFlag(config.DebugTrace) {
		router.Use(newTracingMiddleware(cfg))
	}

	router.Use(newLogMiddleware(cfg))
	router.Use(newRecoverMiddleware)

	router.Group(func(group chi.Router) {
		if cfg.EnableMetrics {
			group.Use(newPromMiddleware(prometheus.DefaultRegisterer, "api"))
		}

		group.Mount(webroot+"/", publicAPI.Routes())
	})

	if cfg.MgmtEnabledOnMainServer() {
		createMgmtRouters(injector, router, cfg, webroot)
	}

	return &Server{
		router: router,
		cfg:    cfg,
		s: &http.Server{
			Addr:           cfg.MainServer.Address,
			Handler:        router,
			ReadTimeout:    defaultReadTimeout,
			WriteTimeout:   defaultWriteTimeout,
			MaxHeaderBytes: defaultMaxHeaderBytes,
		},
	}, nil
}

// Handler return configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listen on configured address and serve requests in background.
func (s *Server) Start(ctx context.Context) error {
	logger := log.Ctx(ctx)
	scfg := s.cfg.MainServer

	if s.cfg.DebugFlags.HasFlag(config.DebugRouter) {
		logRoutes(ctx, "Server", s.router)
	}

	listener, err := newListener(ctx, scfg)
	if err != nil {
		return aerr.Wrapf(err, "start listen error")
	}

	logger.Log().Msgf("Server: listen on address=%s https=%v webroot=%q",
		listener.Addr(), scfg.TLSEnabled(), scfg.WebRoot)

	if s.cfg.MgmtEnabledOnMainServer() {
		logger.Warn().Msg("Server: management endpoints enabled on main server")
	}

	go func() {
		if err := s.s.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msgf("Server: serve error=%q", err)
		}
	}()

	return nil
}

// Shutdown stop server. Called by samber/do.
func (s *Server) Shutdown(ctx context.Context) error {
	logger := log.Ctx(ctx)
	logger.Debug().Msg("Server: stopping...")

	if err := s.s.Shutdown(ctx); err != nil {
		return aerr.Wrapf(err, "shutdown server failed")
	}

	logger.Debug().Msg("Server: stopped")

	return nil
}

//-------------------------------------------------------------

func logRoutes(ctx context.Context, name string, r chi.Routes) {
	logger := log.Ctx(ctx)

	walkFunc := func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		route = strings.ReplaceAll(route, "/*/", "/")
		logger.Debug().Msgf("%s: ROUTE: %s %s", name, method, route)

		return nil
	}

	if err := chi.Walk(r, walkFunc); err != nil {
		logger.Error().Err(err).Msgf("%s: routers walk error=%q", name, err)
	}
}

func newListener(ctx context.Context, cfg config.ListenConf) (net.Listener, error) {
	lc := net.ListenConfig{}

	l, err := lc.Listen(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, aerr.Wrapf(err, "listen failed").WithMeta("address", cfg.Address)
	}

	if !cfg.TLSEnabled() {
		return l, nil
	}

	cert, err := tls.LoadX509KeyPair(cfg.TLSCert, cfg.TLSKey)
	if err != nil {
		_ = l.Close()

		return nil, aerr.Wrapf(err, "load certificates failed").
			WithMeta("cert", cfg.TLSCert, "key", cfg.TLSKey)
	}

	tlscfg := tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	return tls.NewListener(l, &tlscfg), nil
}
