// Package db manage connection to the database and its schema.
package db

//
// db.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-backend/internal/aerr"
	"gitlab.com/kabes/go-backend/internal/config"
)

const (
	ConnMaxIdleTime = 300 * time.Second
	ConnMaxLifetime = 600 * time.Second
	MaxIdleConns    = 1
	MaxOpenConns    = 10
)

type Database struct {
	db      *sqlx.DB
	driver  string
	connstr string
	// redacted connstr for logs
	logconnstr string

	metricsReg       prometheus.Registerer
	metricsCollector prometheus.Collector
}

func NewDatabaseI(i do.Injector) (*Database, error) {
	dbconf := do.MustInvoke[config.DBConfig](i)

	return NewDatabase(dbconf)
}

func NewDatabase(dbconf config.DBConfig) (*Database, error) {
	if err := dbconf.Validate(); err != nil {
		return nil, aerr.Wrapf(err, "invalid database configuration")
	}

	connstr := dbconf.DSN()

	if dbconf.Driver == config.DriverSqlite {
		var err error
		if connstr, err = prepareSqliteConnstr(connstr); err != nil {
			return nil, err
		}
	}

	return &Database{
		driver:     dbconf.Driver,
		connstr:    connstr,
		logconnstr: dbconf.Redacted(),
	}, nil
}

// Open connect to database and check connection.
func (d *Database) Open(ctx context.Context) error {
	logger := log.Ctx(ctx)
	logger.Info().Msgf("Database: connecting to driver=%q connstr=%q", d.driver, d.logconnstr)

	driver := d.driver
	if driver == config.DriverPostgres {
		driver = "pgx"
	}

	db, err := sqlx.Open(driver, d.connstr)
	if err != nil {
		return aerr.ApplyFor(aerr.ErrDatabase, err, "open database failed").
			WithMeta("connstr", d.logconnstr)
	}

	db.SetConnMaxIdleTime(ConnMaxIdleTime)
	db.SetConnMaxLifetime(ConnMaxLifetime)
	db.SetMaxIdleConns(MaxIdleConns)
	db.SetMaxOpenConns(MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return aerr.ApplyFor(aerr.ErrDatabase, err, "ping database failed", "can't connect to database").
			WithMeta("connstr", d.logconnstr)
	}

	d.db = db

	logger.Debug().Msg("Database: connected")

	return nil
}

// Shutdown close database. Called by samber/do.
func (d *Database) Shutdown(ctx context.Context) error {
	if d.db == nil {
		return nil
	}

	logger := log.Ctx(ctx)
	logger.Debug().Msg("Database: closing...")

	if d.metricsCollector != nil {
		d.metricsReg.Unregister(d.metricsCollector)
		d.metricsReg, d.metricsCollector = nil, nil
	}

	err := d.db.Close()
	d.db = nil

	if err != nil {
		return aerr.ApplyFor(aerr.ErrDatabase, err, "close db error")
	}

	return nil
}

// HealthCheck ping database. Called by samber/do.
func (d *Database) HealthCheck(ctx context.Context) error {
	if d.db == nil {
		return aerr.ErrDatabase.WithMsg("database not opened")
	}

	if err := d.db.PingContext(ctx); err != nil {
		return aerr.ApplyFor(aerr.ErrDatabase, err, "ping database failed")
	}

	return nil
}

func (d *Database) Driver() string {
	return d.driver
}

func (d *Database) GetConnection(ctx context.Context) (*sqlx.Conn, error) {
	conn, err := d.db.Connx(ctx)
	if err != nil {
		return nil, aerr.ApplyFor(aerr.ErrDatabase, err, "failed open connection")
	}

	return conn, nil
}

func (d *Database) CloseConnection(ctx context.Context, conn *sqlx.Conn) {
	if err := conn.Close(); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Database: close connection failed")
	}
}

// ServerVersion return version reported by database server.
func (d *Database) ServerVersion(ctx context.Context) (string, error) {
	query := "SHOW server_version"
	if d.driver == config.DriverSqlite {
		query = "SELECT sqlite_version()"
	}

	var version string
	if err := d.db.GetContext(ctx, &version, query); err != nil {
		return "", aerr.ApplyFor(aerr.ErrDatabase, err, "get server version failed")
	}

	return version, nil
}

// RegisterMetrics register collector for connection pool statistics. Collector
// is unregistered on Shutdown.
func (d *Database) RegisterMetrics(reg prometheus.Registerer) error {
	if d.db == nil {
		return aerr.ErrDatabase.WithMsg("database not opened")
	}

	collector := collectors.NewDBStatsCollector(d.db.DB, "main")
	if err := reg.Register(collector); err != nil {
		return aerr.ApplyFor(aerr.ErrDatabase, err, "register database metrics failed")
	}

	d.metricsReg, d.metricsCollector = reg, collector

	return nil
}

//------------------------------------------------------------------------------

func prepareSqliteConnstr(connstr string) (string, error) {
	if connstr == "" {
		return "", aerr.ErrInvalidConf.WithUserMsg("invalid (empty) database connection string")
	}

	if connstr == ":memory:" {
		return ":memory:?_fk=ON", nil
	}

	parsed, err := url.Parse(connstr)
	if err != nil {
		return "", aerr.ApplyFor(aerr.ErrInvalidConf, err, "", "failed to parse database connections string")
	}

	if parsed.Path == "" {
		return "", aerr.ErrInvalidConf.WithUserMsg("invalid database connection string - missing path")
	}

	query := parsed.Query()
	if !query.Has("_fk") && !query.Has("__foreign_keys") {
		query.Set("_fk", "ON")
	}

	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}
