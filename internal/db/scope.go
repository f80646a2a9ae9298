package db

//
// scope.go
// Copyright (C) 2026 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"

	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-backend/internal/aerr"
	"gitlab.com/kabes/go-backend/internal/config"
)

// schemaLockID is key of postgresql advisory lock held while schema is created.
const schemaLockID = 7_364_512_001

// InScope run `fun` while exclusive schema lock is held. For PostgreSQL lock is
// session advisory lock on dedicated connection; lock and connection are released
// when `fun` finish, also on error or panic.
func InScope(ctx context.Context, d *Database, fun func(context.Context) error) error {
	if d.driver != config.DriverPostgres {
		return fun(ctx)
	}

	logger := log.Ctx(ctx)

	conn, err := d.GetConnection(ctx)
	if err != nil {
		return err
	}

	defer d.CloseConnection(ctx, conn)

	logger.Debug().Msg("Database: acquiring schema lock...")

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", schemaLockID); err != nil {
		return aerr.ApplyFor(aerr.ErrDatabase, err, "acquire schema lock failed")
	}

	defer func() {
		// use not-cancelled context; lock must be released even when ctx is done
		if _, err := conn.ExecContext(context.WithoutCancel(ctx),
			"SELECT pg_advisory_unlock($1)", schemaLockID); err != nil {
			logger.Error().Err(err).Msg("Database: release schema lock failed")
		}

		logger.Debug().Msg("Database: schema lock released")
	}()

	return fun(ctx)
}
