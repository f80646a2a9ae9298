package cli

//
// database.go
// Copyright (C) 2026 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"
	"gitlab.com/kabes/go-backend/internal/app"
	"gitlab.com/kabes/go-backend/internal/config"
	"gitlab.com/kabes/go-backend/internal/db"
)

func newDatabaseInitCmd() *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "create database schema",
		Action: wrap(databaseInitCmd),
	}
}

func databaseInitCmd(ctx context.Context, _ *cli.Command, dbconf config.DBConfig) error {
	injector := newDatabaseInjector(dbconf)
	defer app.ShutdownInjector(ctx, injector)

	if _, err := app.InitDatabase(ctx, injector); err != nil {
		return err
	}

	fmt.Println("Database schema ready") //nolint:forbidigo

	return nil
}

//-------------------------------------------------------------

func newDatabaseCheckCmd() *cli.Command {
	return &cli.Command{
		Name:   "check",
		Usage:  "check database configuration and connection",
		Action: wrap(databaseCheckCmd),
	}
}

//nolint:forbidigo
func databaseCheckCmd(ctx context.Context, _ *cli.Command, dbconf config.DBConfig) error {
	fmt.Printf("Driver:  %s\n", dbconf.Driver)
	fmt.Printf("DSN:     %s\n", dbconf.Redacted())

	if dbconf.Driver == config.DriverPostgres {
		fmt.Printf("URI:     %s\n", maskedURI(dbconf))
	}

	injector := newDatabaseInjector(dbconf)
	defer app.ShutdownInjector(ctx, injector)

	database := do.MustInvoke[*db.Database](injector)
	if err := database.Open(ctx); err != nil {
		return err
	}

	version, err := database.ServerVersion(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Version: %s\n", version)

	if err := database.HealthCheck(ctx); err != nil {
		return err
	}

	fmt.Println("Health:  ok")

	return nil
}

func newDatabaseInjector(dbconf config.DBConfig) *do.RootScope {
	injector := do.New(db.Package)
	do.ProvideValue(injector, dbconf)

	return injector
}

// maskedURI return uri with password replaced by asterisks.
func maskedURI(dbconf config.DBConfig) string {
	if dbconf.Password != "" {
		dbconf.Password = "xxxxx"
	}

	return dbconf.URI()
}
