package db

//
// schema.go
// Copyright (C) 2026 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-backend/internal/aerr"
	"gitlab.com/kabes/go-backend/internal/config"
)

//go:embed schema
var embedSchema embed.FS

// CreateSchema create all schema objects that not exists yet.
// Scripts must be idempotent: they are applied on every call and no version is stored.
func (d *Database) CreateSchema(ctx context.Context) error {
	logger := log.Ctx(ctx)

	dialect, dir := goose.DialectPostgres, "schema/postgres"
	if d.driver == config.DriverSqlite {
		dialect, dir = goose.DialectSQLite3, "schema/sqlite3"
	}

	schemadir, err := fs.Sub(embedSchema, dir)
	if err != nil {
		panic(fmt.Errorf("prepare schema fs failed: %w", err))
	}

	provider, err := goose.NewProvider(dialect, d.db.DB, schemadir, goose.WithDisableVersioning(true))
	if err != nil {
		return aerr.ApplyFor(aerr.ErrDatabase, err, "prepare schema scripts failed")
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return aerr.ApplyFor(aerr.ErrDatabase, err, "create schema failed")
	}

	for _, res := range results {
		logger.Debug().Msgf("Database: schema script: %s", res)
	}

	logger.Info().Msgf("Database: schema ready; scripts=%d", len(results))

	return nil
}
