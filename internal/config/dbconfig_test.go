package config

//
// dbconfig_test.go
// Copyright (C) 2026 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"fmt"
	"testing"

	"gitlab.com/kabes/go-backend/internal/assert"
	"gitlab.com/kabes/go-backend/internal/aerr"
)

func TestDBConfigURI(t *testing.T) {
	tests := []struct {
		conf     DBConfig
		expected string
	}{
		{
			NewDBConfig("postgres", "app", "user", "secret", "db", "5432"),
			"postgresql+psycopg2://user:secret@db:5432/app",
		},
		{
			NewDBConfig("postgres", "", "", "", "", ""),
			"postgresql+psycopg2://:@:/",
		},
		{
			NewDBConfig("postgres", "", "", "", DefaultDBHost, DefaultDBPort),
			"postgresql+psycopg2://:@db:5432/",
		},
		{
			// no escaping
			NewDBConfig("postgres", "my db", "us@r", "p:ss/w?rd", "10.0.0.1", "6543"),
			"postgresql+psycopg2://us@r:p:ss/w?rd@10.0.0.1:6543/my db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.conf.URI(), tt.expected)
		})
	}
}

func TestDBConfigDSN(t *testing.T) {
	tests := []struct {
		conf     DBConfig
		dsn      string
		redacted string
	}{
		{
			NewDBConfig("pg", "app", "user", "secret", "db", "5432"),
			"postgres://user:secret@db:5432/app",
			"postgres://user:xxxxx@db:5432/app",
		},
		{
			NewDBConfig("postgresql", "app", "us@r", "p:ss/w?rd", "db", "5432"),
			"postgres://us%40r:p%3Ass%2Fw%3Frd@db:5432/app",
			"postgres://us%40r:xxxxx@db:5432/app",
		},
		{
			NewDBConfig("postgres", "app", "user", "", "::1", "5432"),
			"postgres://user@[::1]:5432/app",
			"postgres://user@[::1]:5432/app",
		},
		{
			NewDBConfig("sqlite", "/tmp/test.db", "", "", "", ""),
			"/tmp/test.db",
			"/tmp/test.db",
		},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("dsn-%d", i), func(t *testing.T) {
			assert.Equal(t, tt.conf.DSN(), tt.dsn)
			assert.Equal(t, tt.conf.Redacted(), tt.redacted)
		})
	}
}

func TestDBConfigValidate(t *testing.T) {
	tests := []struct {
		driver string
		experr bool
	}{
		{"postgres", false},
		{"pg", false},
		{"postgresql", false},
		{"sqlite", false},
		{"sqlite3", false},
		{"", true},
		{"mysql", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			// empty credentials are accepted
			conf := NewDBConfig(tt.driver, "", "", "", "", "")

			err := conf.Validate()
			if tt.experr {
				assert.Err(t, err)
				assert.True(t, aerr.HasTag(err, aerr.ValidationError))
			} else {
				assert.NoErr(t, err)
			}
		})
	}
}
