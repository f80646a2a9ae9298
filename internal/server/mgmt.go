package server

//
// mgmt.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	dochi "github.com/samber/do/http/chi/v2"
	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-backend/internal/aerr"
	"gitlab.com/kabes/go-backend/internal/config"
)

type MgmtServer struct {
	router chi.Router

	cfg *config.ServerConf
	s   *http.Server
}

func NewMgmt(injector do.Injector) (*MgmtServer, error) {
	cfg := do.MustInvoke[*config.ServerConf](injector)

	router := chi.NewRouter()

	createMgmtRouters(injector, router, cfg, cfg.MgmtServer.WebRoot)

	return &MgmtServer{
		router: router,
		cfg:    cfg,
		s: &http.Server{
			Addr:           cfg.MgmtServer.Address,
			Handler:        router,
			ReadTimeout:    defaultReadTimeout,
			WriteTimeout:   defaultWriteTimeout,
			MaxHeaderBytes: defaultMaxHeaderBytes,
		},
	}, nil
}

func (s *MgmtServer) Handler() http.Handler {
	return s.router
}

func (s *MgmtServer) Start(ctx context.Context) error {
	logger := log.Ctx(ctx)
	scfg := s.cfg.MgmtServer

	if s.cfg.DebugFlags.HasFlag(config.DebugRouter) {
		logRoutes(ctx, "MgmtServer", s.router)
	}

	listener, err := newListener(ctx, scfg)
	if err != nil {
		return aerr.Wrapf(err, "start listen error")
	}

	logger.Log().Msgf("MgmtServer: listen on address=%s https=%v webroot=%q",
		listener.Addr(), scfg.TLSEnabled(), scfg.WebRoot)

	go func() {
		if err := s.s.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msgf("MgmtServer: serve error=%q", err)
		}
	}()

	return nil
}

func (s *MgmtServer) Shutdown(ctx context.Context) error {
	logger := log.Ctx(ctx)
	logger.Debug().Msg("MgmtServer: stopping...")

	if err := s.s.Shutdown(ctx); err != nil {
		return aerr.Wrapf(err, "shutdown mgmt server failed")
	}

	logger.Debug().Msg("MgmtServer: stopped")

	return nil
}

//-------------------------------------------------------------

func createMgmtRouters(injector do.Injector, router *chi.Mux, cfg *config.ServerConf, webroot string) {
	router.Group(func(group chi.Router) {
		if !cfg.MgmtEnabledOnMainServer() {
			// main server already has this middlewares
			group.Use(hlog.NewHandler(log.Logger))
			group.Use(hlog.RequestIDHandler(logKeyReqID, "Request-Id"))
			group.Use(newSimpleLogMiddleware)
			group.Use(newRecoverMiddleware)
			group.Use(middleware.CleanPath)
		}

		group.Use(newAuthMgmtMiddleware(cfg))

		group.Get(webroot+"/ready", newReadyChecker(injector))

		if cfg.EnableMetrics {
			group.Method(http.MethodGet, webroot+"/metrics", newMetricsHandler(prometheus.DefaultRegisterer, prometheus.DefaultGatherer))
		}

		if cfg.DebugFlags.HasFlag(config.DebugGo) {
			group.Mount(webroot+"/debug", middleware.Profiler())
		}

		if cfg.DebugFlags.HasFlag(config.DebugTrace) {
			mountXTrace(group, webroot)
		}
	})

	if cfg.DebugFlags.HasFlag(config.DebugDo) {
		dochi.Use(router, webroot+"/debug/do", injector)
	}
}

//-------------------------------------------------------------

// newReadyChecker create handler for /ready endpoint; run health checks on all services.
func newReadyChecker(injector do.Injector) http.HandlerFunc {
	rootscope := injector.RootScope()

	return func(w http.ResponseWriter, r *http.Request) {
		logger := hlog.FromRequest(r)
		response := "ok"

		for service, err := range rootscope.HealthCheckWithContext(r.Context()) {
			if err != nil {
				logger.Error().Err(err).Str("service", service).
					Msgf("ReadyChecker: service=%q failed on healthcheck: %s", service, err)

				response = "error"
			}
		}

		if response != "ok" {
			render.Status(r, http.StatusServiceUnavailable)
		}

		render.PlainText(w, r, response)
	}
}

// newAuthMgmtMiddleware allow access only from networks accepted by AuthMgmtRequest.
func newAuthMgmtMiddleware(cfg *config.ServerConf) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if access, _ := cfg.AuthMgmtRequest(peerRequest(r)); !access {
				hlog.FromRequest(r).Warn().Str("remote", r.RemoteAddr).Msg("mgmt: access denied")
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
