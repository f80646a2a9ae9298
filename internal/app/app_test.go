package app

//
// app_test.go
// Copyright (C) 2026 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-backend/internal/aerr"
	"gitlab.com/kabes/go-backend/internal/assert"
	"gitlab.com/kabes/go-backend/internal/config"
	"gitlab.com/kabes/go-backend/internal/db"
)

func testContext(t *testing.T) context.Context {
	t.Helper()

	logger := log.Output(zerolog.NewTestWriter(t))

	return logger.WithContext(context.Background())
}

func newTestApp(t *testing.T, srvconf *config.ServerConf) *App {
	t.Helper()

	ctx := testContext(t)
	dbconf := config.NewDBConfig("sqlite", filepath.Join(t.TempDir(), "app.db"), "", "", "", "")

	app, err := New(ctx, dbconf, srvconf)
	if err != nil {
		t.Fatalf("create app error: %#+v", err)
	}

	t.Cleanup(func() { _ = app.Shutdown(ctx) })

	return app
}

func getJSON(t *testing.T, handler http.Handler, path string) (int, map[string]string) {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]string
	if rec.Code == http.StatusOK {
		assert.NoErr(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}

	return rec.Code, body
}

func TestAppRoutes(t *testing.T) {
	app := newTestApp(t, &config.ServerConf{MainServer: config.ListenConf{Address: ":5000"}})

	code, body := getJSON(t, app.Handler(), "/")
	assert.Equal(t, code, http.StatusOK)
	assert.Equal(t, body, map[string]string{"message": "Hello from Flask!"})

	code, body = getJSON(t, app.Handler(), "/health")
	assert.Equal(t, code, http.StatusOK)
	assert.Equal(t, body, map[string]string{"status": "healthy"})

	code, _ = getJSON(t, app.Handler(), "/not-exists")
	assert.Equal(t, code, http.StatusNotFound)
}

func TestAppDatabaseHealth(t *testing.T) {
	app := newTestApp(t, &config.ServerConf{MainServer: config.ListenConf{Address: ":5000"}})

	database := do.MustInvoke[*db.Database](app.Injector())
	assert.NoErr(t, database.HealthCheck(t.Context()))
}

func TestAppReadyOnMainServer(t *testing.T) {
	app := newTestApp(t, &config.ServerConf{
		MainServer: config.ListenConf{Address: ":5000"},
		MgmtServer: config.ListenConf{Address: ":5000"},
	})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)

	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, rec.Body.String(), "ok")
}

func TestAppTwiceOnSameDatabase(t *testing.T) {
	ctx := testContext(t)
	dbconf := config.NewDBConfig("sqlite", filepath.Join(t.TempDir(), "app.db"), "", "", "", "")

	for range 2 {
		app, err := New(ctx, dbconf, &config.ServerConf{MainServer: config.ListenConf{Address: ":5000"}})
		assert.NoErr(t, err)

		assert.NoErr(t, app.Shutdown(ctx))
	}
}

func TestAppInvalidServerConf(t *testing.T) {
	ctx := testContext(t)
	dbconf := config.NewDBConfig("sqlite", ":memory:", "", "", "", "")

	_, err := New(ctx, dbconf, &config.ServerConf{})
	assert.Err(t, err)
	assert.True(t, aerr.HasTag(err, aerr.ConfigurationError))
}

func TestAppUnreachableDatabase(t *testing.T) {
	ctx, cancel := context.WithTimeout(testContext(t), 5*time.Second)
	defer cancel()

	dbconf := config.NewDBConfig("postgres", "app", "user", "secret", "127.0.0.1", "1")

	app, err := New(ctx, dbconf, &config.ServerConf{MainServer: config.ListenConf{Address: ":5000"}})
	assert.Err(t, err)
	assert.True(t, app == nil)
	assert.Equal(t, aerr.GetUserMessage(err), "can't connect to database")
}
