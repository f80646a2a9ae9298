package cli

//
// serve.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/Merovius/systemd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"gitlab.com/kabes/go-backend/internal/app"
	"gitlab.com/kabes/go-backend/internal/config"
)

func newServeCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "start server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "address",
				Value:   ":5000",
				Usage:   "listen address",
				Aliases: []string{"a"},
				Sources: cli.EnvVars("BACKEND_SERVER_ADDRESS"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{
				Name:    "web-root",
				Value:   "/",
				Usage:   "path root",
				Sources: cli.EnvVars("BACKEND_SERVER_WEBROOT"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.BoolFlag{
				Name:    "enable-metrics",
				Usage:   "enable prometheus metrics (/metrics endpoint)",
				Sources: cli.EnvVars("BACKEND_SERVER_METRICS"),
			},
			&cli.StringFlag{
				Name:      "cert",
				Usage:     "tls certificate file",
				Sources:   cli.EnvVars("BACKEND_SERVER_CERT"),
				Config:    cli.StringConfig{TrimSpace: true},
				TakesFile: true,
			},
			&cli.StringFlag{
				Name:      "key",
				Usage:     "tls key file",
				Sources:   cli.EnvVars("BACKEND_SERVER_KEY"),
				Config:    cli.StringConfig{TrimSpace: true},
				TakesFile: true,
			},
			&cli.StringFlag{
				Name:    "mgmt-address",
				Value:   "",
				Usage:   "listen address for management endpoints; empty disable management; may be the same as main 'address'",
				Aliases: []string{"m"},
				Sources: cli.EnvVars("BACKEND_MGMT_SERVER_ADDRESS"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{
				Name:    "mgmt-access-list",
				Value:   "",
				Usage:   "list of ip or networks separated by ',' allowed to connected to mgmt endpoints.",
				Sources: cli.EnvVars("BACKEND_MGMT_SERVER_ACCESS_LIST"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
		},
		Action: wrap(startServerCmd),
	}
}

func serverConfFromCmd(clicmd *cli.Command) *config.ServerConf {
	return &config.ServerConf{
		MainServer: config.ListenConf{
			Address: clicmd.String("address"),
			WebRoot: clicmd.String("web-root"),
			TLSKey:  clicmd.String("key"),
			TLSCert: clicmd.String("cert"),
		},
		MgmtServer: config.ListenConf{
			Address: clicmd.String("mgmt-address"),
		},
		DebugFlags:     config.NewDebugFLags(clicmd.String("debug")),
		EnableMetrics:  clicmd.Bool("enable-metrics"),
		MgmtAccessList: clicmd.String("mgmt-access-list"),
	}
}

func startServerCmd(ctx context.Context, clicmd *cli.Command, dbconf config.DBConfig) error {
	logger := log.Ctx(ctx)
	srvconf := serverConfFromCmd(clicmd)

	logger.Debug().Msgf("Server: debug_flags=%q", srvconf.DebugFlags)

	application, err := app.New(ctx, dbconf, srvconf)
	if err != nil {
		return err
	}

	defer application.Shutdown(ctx)

	startSystemdWatchdog(logger)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := application.Start(ctx); err != nil {
		return err
	}

	systemd.NotifyReady()           //nolint:errcheck
	systemd.NotifyStatus("running") //nolint:errcheck

	<-ctx.Done()

	logger.Info().Msg("Server: stopping...")
	systemd.NotifyStatus("stopping") //nolint:errcheck

	return nil
}

func startSystemdWatchdog(logger *zerolog.Logger) {
	if ok, dur, err := systemd.AutoWatchdog(); ok {
		logger.Info().Msgf("Systemd: autowatchdog started; duration=%s", dur)
	} else if err != nil {
		logger.Warn().Err(err).Msgf("Systemd: autowatchdog start error=%q", err)
	}
}
