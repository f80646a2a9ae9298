package cli

//
// cli_test.go
// Copyright (C) 2026 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"gitlab.com/kabes/go-backend/internal/aerr"
	"gitlab.com/kabes/go-backend/internal/assert"
	"gitlab.com/kabes/go-backend/internal/config"
)

// unsetEnv remove variable for test duration; original value is restored on cleanup.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()

	for _, key := range keys {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

// runProbe run root command with probe subcommand that capture resolved configuration.
func runProbe(t *testing.T, args ...string) (config.DBConfig, *config.ServerConf) {
	t.Helper()

	var (
		dbconf  config.DBConfig
		srvconf *config.ServerConf
	)

	root := newRootCmd()
	serve := newServeCmd()
	serve.Name = "probe"
	serve.Action = func(_ context.Context, clicmd *cli.Command) error {
		dbconf = dbConfigFromCmd(clicmd)
		srvconf = serverConfFromCmd(clicmd)

		return nil
	}
	root.Commands = append(root.Commands, serve)

	assert.NoErr(t, root.Run(context.Background(), append([]string{config.AppName}, args...)))

	return dbconf, srvconf
}

func TestDBConfigFromEnv(t *testing.T) {
	unsetEnv(t, "POSTGRES_HOST", "POSTGRES_PORT", "BACKEND_DB_DRIVER")
	t.Setenv("POSTGRES_DB", "app")
	t.Setenv("POSTGRES_USER", "user")
	t.Setenv("POSTGRES_PASSWORD", "secret")

	dbconf, _ := runProbe(t, "probe")

	assert.Equal(t, dbconf, config.DBConfig{
		Driver:   config.DriverPostgres,
		Database: "app",
		User:     "user",
		Password: "secret",
		Host:     "db",
		Port:     "5432",
	})
	assert.Equal(t, dbconf.URI(), "postgresql+psycopg2://user:secret@db:5432/app")
}

func TestDBConfigKeepWhitespace(t *testing.T) {
	unsetEnv(t, "BACKEND_DB_DRIVER")
	t.Setenv("POSTGRES_DB", "app ")
	t.Setenv("POSTGRES_USER", " bob ")
	t.Setenv("POSTGRES_PASSWORD", " p@ss ")
	t.Setenv("POSTGRES_HOST", " dbhost")
	t.Setenv("POSTGRES_PORT", "5432 ")

	dbconf, _ := runProbe(t, "probe")

	assert.Equal(t, dbconf.URI(), "postgresql+psycopg2:// bob : p@ss @ dbhost:5432 /app ")
}

func TestDBConfigEmptyHostPort(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "")
	t.Setenv("POSTGRES_PORT", "")

	dbconf, _ := runProbe(t, "probe")

	assert.Equal(t, dbconf.Host, "")
	assert.Equal(t, dbconf.Port, "")
}

func TestDBConfigMissingEnv(t *testing.T) {
	unsetEnv(t, "POSTGRES_DB", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_HOST", "POSTGRES_PORT",
		"BACKEND_DB_DRIVER")

	dbconf, _ := runProbe(t, "probe")

	assert.NoErr(t, dbconf.Validate())
	assert.Equal(t, dbconf.URI(), "postgresql+psycopg2://:@db:5432/")
}

func TestDBConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "envhost")
	t.Setenv("POSTGRES_PORT", "6543")

	dbconf, _ := runProbe(t, "--db.host", "flaghost", "probe")

	assert.Equal(t, dbconf.Host, "flaghost")
	assert.Equal(t, dbconf.Port, "6543")
}

func TestServerConfDefaults(t *testing.T) {
	unsetEnv(t, "BACKEND_SERVER_ADDRESS", "BACKEND_SERVER_WEBROOT", "BACKEND_SERVER_METRICS",
		"BACKEND_MGMT_SERVER_ADDRESS", "BACKEND_DEBUG")

	_, srvconf := runProbe(t, "probe")

	assert.NoErr(t, srvconf.Validate())
	assert.Equal(t, srvconf.MainServer.Address, ":5000")
	assert.Equal(t, srvconf.MainServer.WebRoot, "")
	assert.True(t, !srvconf.EnableMetrics)
	assert.True(t, !srvconf.SeparateMgmtEnabled())
	assert.True(t, !srvconf.MgmtEnabledOnMainServer())
}

func TestEnvFilePath(t *testing.T) {
	unsetEnv(t, envFileEnvVar)

	assert.Equal(t, envFilePath([]string{"app", "serve"}), ".env")
	assert.Equal(t, envFilePath([]string{"app", "--env-file", "a.env", "serve"}), "a.env")
	assert.Equal(t, envFilePath([]string{"app", "--env-file=b.env", "serve"}), "b.env")
	assert.Equal(t, envFilePath([]string{"app", "-env-file=c.env"}), "c.env")
	assert.Equal(t, envFilePath([]string{"app", "env-file=c.env"}), ".env")

	t.Setenv(envFileEnvVar, "from-env.env")
	assert.Equal(t, envFilePath([]string{"app", "serve"}), "from-env.env")
	assert.Equal(t, envFilePath([]string{"app", "--env-file", "a.env"}), "a.env")
}

func TestLoadEnvFile(t *testing.T) {
	unsetEnv(t, "POSTGRES_DB", "POSTGRES_USER")
	t.Setenv("POSTGRES_PASSWORD", "from-process")

	path := filepath.Join(t.TempDir(), "test.env")
	content := "POSTGRES_DB=fromfile\nPOSTGRES_USER=fileuser\nPOSTGRES_PASSWORD=from-file\n"
	assert.NoErr(t, os.WriteFile(path, []byte(content), 0o600))

	assert.NoErr(t, loadEnvFile(path))
	assert.Equal(t, os.Getenv("POSTGRES_DB"), "fromfile")
	assert.Equal(t, os.Getenv("POSTGRES_USER"), "fileuser")
	// process environment wins
	assert.Equal(t, os.Getenv("POSTGRES_PASSWORD"), "from-process")
}

func TestLoadEnvFileMissing(t *testing.T) {
	assert.NoErr(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	assert.NoErr(t, loadEnvFile(""))
}

func TestMaskedURI(t *testing.T) {
	dbconf := config.NewDBConfig("postgres", "app", "user", "secret", "db", "5432")

	assert.Equal(t, maskedURI(dbconf), "postgresql+psycopg2://user:xxxxx@db:5432/app")
	assert.Equal(t, dbconf.Password, "secret")
}

func TestLogfmtWriter(t *testing.T) {
	var buf bytes.Buffer

	logger := zerolog.New(newLogfmtWriter(&buf))
	logger.Info().Str("key", "value").Msg("hello world")

	out := buf.String()
	assert.Contains(t, out, "level=info")
	assert.Contains(t, out, `msg="hello world"`)
	assert.Contains(t, out, "key=value")
}

func TestResolveLogFormat(t *testing.T) {
	assert.Equal(t, resolveLogFormat("json"), logFormatJSON)
	assert.Equal(t, resolveLogFormat("logfmt"), logFormatLogfmt)

	def := resolveLogFormat("")
	assert.True(t, def == logFormatConsole || def == logFormatLogfmt)
}

func TestFormatError(t *testing.T) {
	dberr := aerr.ApplyFor(aerr.ErrDatabase, errors.New("dial tcp: refused"), "ping failed", "can't connect to database")
	err := aerr.Wrapf(dberr, "connect to database failed")

	assert.Equal(t, formatError(err, false), "Error: can't connect to database\n")

	out := formatError(err, true)
	assert.Contains(t, out, "Error: can't connect to database\n")
	assert.Contains(t, out, "Cause: connect to database failed: ping failed: dial tcp: refused\n")
	assert.Contains(t, out, "Tags: "+aerr.InternalError+"\n")
	assert.Contains(t, out, "cli.TestFormatError")

	conferr := aerr.ApplyFor(aerr.ErrInvalidConf, errors.New("bad"), "load env file failed", "can't load environment file")
	assert.Equal(t, formatError(conferr, false), "Error: invalid configuration: can't load environment file\n")

	assert.Equal(t, formatError(errors.New("plain"), false), "Error: plain\n")
}
