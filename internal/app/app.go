// Package app assemble application: configuration, database and http servers.
package app

//
// app.go
// Copyright (C) 2026 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-backend/internal/aerr"
	"gitlab.com/kabes/go-backend/internal/api"
	"gitlab.com/kabes/go-backend/internal/config"
	"gitlab.com/kabes/go-backend/internal/db"
	"gitlab.com/kabes/go-backend/internal/server"
)

const ShutdownTimeout = 10 * time.Second

// App is configured and ready to serve application instance.
type App struct {
	injector *do.RootScope
	cfg      *config.ServerConf
	server   *server.Server

	InstanceID xid.ID
}

// New create application: bind configuration, connect to database, create schema
// and register routes. Returned error means application can't start.
func New(ctx context.Context, dbconf config.DBConfig, srvconf *config.ServerConf) (*App, error) {
	instanceID := xid.New()
	logger := log.Ctx(ctx).With().Str("instance_id", instanceID.String()).Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().Msgf("App: starting %s (%s)", config.AppName, config.VersionString)

	if err := srvconf.Validate(); err != nil {
		return nil, aerr.ApplyFor(aerr.ErrInvalidConf, err, "server config validation failed")
	}

	injector := do.New(db.Package, api.Package, server.Package)
	do.ProvideValue(injector, dbconf)
	do.ProvideValue(injector, srvconf)

	database, err := InitDatabase(ctx, injector)
	if err != nil {
		_ = ShutdownInjector(ctx, injector)

		return nil, err
	}

	if srvconf.EnableMetrics && srvconf.DebugFlags.HasFlag(config.DebugDBQueryMetrics) {
		if err := database.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			logger.Warn().Err(err).Msg("App: database metrics not available")
		}
	}

	srv, err := do.Invoke[*server.Server](injector)
	if err != nil {
		_ = ShutdownInjector(ctx, injector)

		return nil, aerr.Wrapf(err, "create server failed")
	}

	logger.Debug().Msgf("App: services=%v", injector.ListProvidedServices())

	return &App{
		injector:   injector,
		cfg:        srvconf,
		server:     srv,
		InstanceID: instanceID,
	}, nil
}

// InitDatabase open database and create schema within database scope.
func InitDatabase(ctx context.Context, injector do.Injector) (*db.Database, error) {
	database, err := do.Invoke[*db.Database](injector)
	if err != nil {
		return nil, aerr.Wrapf(err, "create database failed")
	}

	if err := database.Open(ctx); err != nil {
		return nil, aerr.Wrapf(err, "connect to database failed")
	}

	if version, err := database.ServerVersion(ctx); err == nil {
		log.Ctx(ctx).Info().Msgf("Database: server version=%q", version)
	}

	if err := db.InScope(ctx, database, database.CreateSchema); err != nil {
		return nil, aerr.Wrapf(err, "create database schema failed")
	}

	return database, nil
}

// Handler return http handler for main server.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Injector return application services container.
func (a *App) Injector() do.Injector {
	return a.injector
}

// Start run main server and, when configured on separate address, management server.
func (a *App) Start(ctx context.Context) error {
	if err := a.server.Start(ctx); err != nil {
		return aerr.Wrapf(err, "start server failed")
	}

	if a.cfg.SeparateMgmtEnabled() {
		msrv, err := do.Invoke[*server.MgmtServer](a.injector)
		if err != nil {
			return aerr.Wrapf(err, "create mgmt server failed")
		}

		if err := msrv.Start(ctx); err != nil {
			return aerr.Wrapf(err, "start mgmt server failed")
		}
	}

	return nil
}

// Shutdown stop servers and close database.
func (a *App) Shutdown(ctx context.Context) error {
	return ShutdownInjector(ctx, a.injector)
}

// ShutdownInjector stop all services in injector; wait no longer than ShutdownTimeout.
func ShutdownInjector(ctx context.Context, injector *do.RootScope) error {
	logger := log.Ctx(ctx)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()

	if report := injector.ShutdownWithContext(ctx); report != nil && !report.Succeed {
		logger.Error().Msgf("App: shutdown error=%q", report.Error())

		return aerr.Newf("shutdown failed: %s", report.Error())
	}

	logger.Debug().Msg("App: stopped")

	return nil
}
