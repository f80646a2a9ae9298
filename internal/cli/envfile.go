package cli

//
// envfile.go
// Copyright (C) 2026 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gitlab.com/kabes/go-backend/internal/aerr"
)

const (
	defaultEnvFile = ".env"
	envFileEnvVar  = "BACKEND_ENV_FILE"
	envFileFlag    = "env-file"
)

// envFilePath find env file name in arguments or environment. Flags are
// resolved from environment so the file must be loaded before cli parse
// arguments.
func envFilePath(args []string) string {
	for idx, arg := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || name != envFileFlag {
			continue
		}

		if hasValue {
			return value
		}

		if idx+1 < len(args) {
			return args[idx+1]
		}
	}

	if path, ok := os.LookupEnv(envFileEnvVar); ok {
		return path
	}

	return defaultEnvFile
}

// loadEnvFile load variables from dotenv file; variables already defined in
// environment are not overwritten.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return aerr.ApplyFor(aerr.ErrInvalidConf, err, "load env file failed",
			"can't load environment file").WithMeta("path", path)
	}

	return nil
}
