package config

//
// dbconfig.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"net"
	"net/url"

	"gitlab.com/kabes/go-backend/internal/aerr"
)

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite3"

	DefaultDBHost = "db"
	DefaultDBPort = "5432"

	// URIScheme is scheme used in URI; kept for compatibility with existing deployments.
	URIScheme = "postgresql+psycopg2"
)

// DBConfig hold database connection parameters. Values are not escaped nor validated
// until serialized by URI, DSN or Redacted.
type DBConfig struct {
	Driver   string
	Database string
	User     string
	Password string
	Host     string
	Port     string
}

func NewDBConfig(driver, database, user, password, host, port string) DBConfig {
	return DBConfig{
		Driver:   mapDriverName(driver),
		Database: database,
		User:     user,
		Password: password,
		Host:     host,
		Port:     port,
	}
}

// Validate check only driver name; missing credentials surface as connection error.
func (d *DBConfig) Validate() error {
	switch d.Driver {
	case DriverPostgres, DriverSqlite:
		return nil
	case "":
		return aerr.ErrValidation.WithUserMsg("database driver can't be empty")
	default:
		return aerr.ErrValidation.WithUserMsg("invalid (unsupported) database driver %q", d.Driver)
	}
}

// URI return connection string in form
// `postgresql+psycopg2://{user}:{password}@{host}:{port}/{database}`.
// Values are put as-is, without any escaping.
func (d *DBConfig) URI() string {
	return URIScheme + "://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Database
}

// DSN return connection string for sql driver.
func (d *DBConfig) DSN() string {
	if d.Driver == DriverSqlite {
		return d.Database
	}

	return d.pgURL().String()
}

// Redacted return DSN with masked password; for logging.
func (d *DBConfig) Redacted() string {
	if d.Driver == DriverSqlite {
		return d.Database
	}

	return d.pgURL().Redacted()
}

func (d *DBConfig) pgURL() *url.URL {
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, d.Port),
		Path:   "/" + d.Database,
	}

	switch {
	case d.Password != "":
		u.User = url.UserPassword(d.User, d.Password)
	case d.User != "":
		u.User = url.User(d.User)
	}

	return u
}

func mapDriverName(driver string) string {
	switch driver {
	case "sqlite", "sqlite3":
		return DriverSqlite
	case "pg", "pgx", "postgresql", "postgres":
		return DriverPostgres
	}

	return driver
}
