// Package cli implement command line interface.
package cli

//
// main.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"gitlab.com/kabes/go-backend/internal/aerr"
	"gitlab.com/kabes/go-backend/internal/config"
)

//nolint:forbidigo
func Main() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "print-version",
		Aliases: []string{"V"},
		Usage:   "Print version.",
	}

	if err := loadEnvFile(envFilePath(os.Args)); err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}

	cmd := newRootCmd()

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Print(formatError(err, cmd.String("log.level") == "debug"))
		os.Exit(1)
	}
}

// formatError prepare message printed when command failed; with details
// tags and stack are appended.
func formatError(err error, details bool) string {
	var msg strings.Builder

	usermsg := aerr.GetUserMessageOr(err, err.Error())
	if aerr.HasTag(err, aerr.ConfigurationError) {
		usermsg = "invalid configuration: " + usermsg
	}

	fmt.Fprintf(&msg, "Error: %s\n", usermsg)

	if details {
		fmt.Fprintf(&msg, "Cause: %s\n", err.Error())

		if tags := aerr.GetTags(err); len(tags) > 0 {
			fmt.Fprintf(&msg, "Tags: %s\n", strings.Join(tags, ", "))
		}

		for _, frame := range aerr.GetStack(err) {
			fmt.Fprintf(&msg, "  %s\n", frame)
		}
	}

	return msg.String()
}

func newRootCmd() *cli.Command {
	return &cli.Command{
		Name:    config.AppName,
		Usage:   "minimal web backend",
		Version: config.VersionString,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db.driver",
				Value:   config.DriverPostgres,
				Usage:   "Database driver (postgres, sqlite3)",
				Sources: cli.EnvVars("BACKEND_DB_DRIVER"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{
				Name:    "db.name",
				Usage:   "Database name; for sqlite3 - database file",
				Sources: cli.EnvVars("POSTGRES_DB"),
			},
			&cli.StringFlag{
				Name:    "db.user",
				Usage:   "Database user",
				Sources: cli.EnvVars("POSTGRES_USER"),
			},
			&cli.StringFlag{
				Name:    "db.password",
				Usage:   "Database user password",
				Sources: cli.EnvVars("POSTGRES_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "db.host",
				Value:   config.DefaultDBHost,
				Usage:   "Database server host",
				Sources: cli.EnvVars("POSTGRES_HOST"),
			},
			&cli.StringFlag{
				Name:    "db.port",
				Value:   config.DefaultDBPort,
				Usage:   "Database server port",
				Sources: cli.EnvVars("POSTGRES_PORT"),
			},
			&cli.StringFlag{
				Name:    "log.level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("BACKEND_LOGLEVEL"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{
				Name:    "log.format",
				Value:   "console",
				Usage:   "Log format (console, logfmt, json, journald, syslog)",
				Sources: cli.EnvVars("BACKEND_LOGFORMAT"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{Name: "debug", Usage: "Debug flags", Sources: cli.EnvVars("BACKEND_DEBUG")},
			&cli.StringFlag{
				Name:      "env-file",
				Value:     defaultEnvFile,
				Usage:     "Load environment variables from file; missing file is ignored",
				Sources:   cli.EnvVars(envFileEnvVar),
				TakesFile: true,
			},
		},
		Commands: []*cli.Command{
			newServeCmd(),
			databaseSubCmd(),
		},
	}
}

func databaseSubCmd() *cli.Command {
	return &cli.Command{
		Name:  "database",
		Usage: "manage database",
		Commands: []*cli.Command{
			newDatabaseInitCmd(),
			newDatabaseCheckCmd(),
		},
	}
}
