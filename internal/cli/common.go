package cli

//
// common.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"gitlab.com/kabes/go-backend/internal/aerr"
	"gitlab.com/kabes/go-backend/internal/config"
)

func wrap(
	cmdfunc func(ctx context.Context, clicmd *cli.Command, dbconf config.DBConfig) error,
) func(ctx context.Context, clicmd *cli.Command) error {
	return func(ctx context.Context, clicmd *cli.Command) error {
		if err := initializeLogger(clicmd.String("log.level"), clicmd.String("log.format")); err != nil {
			return err
		}

		ctx = log.Logger.WithContext(ctx)

		dbconf := dbConfigFromCmd(clicmd)
		if err := dbconf.Validate(); err != nil {
			return aerr.Wrapf(err, "invalid database configuration")
		}

		return cmdfunc(ctx, clicmd, dbconf)
	}
}

func dbConfigFromCmd(clicmd *cli.Command) config.DBConfig {
	return config.NewDBConfig(
		clicmd.String("db.driver"),
		clicmd.String("db.name"),
		clicmd.String("db.user"),
		clicmd.String("db.password"),
		clicmd.String("db.host"),
		clicmd.String("db.port"),
	)
}
