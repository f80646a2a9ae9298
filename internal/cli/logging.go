package cli

//
// logging.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"fmt"
	"io"
	stdlog "log"
	"log/syslog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/journald"
	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-backend/internal/aerr"
	"gitlab.com/kabes/go-backend/internal/config"
)

const (
	logFormatConsole  = "console"
	logFormatLogfmt   = "logfmt"
	logFormatJSON     = "json"
	logFormatJournald = "journald"
	logFormatSyslog   = "syslog"
)

var logFormats = []string{ //nolint:gochecknoglobals
	logFormatConsole, logFormatLogfmt, logFormatJSON, logFormatJournald, logFormatSyslog,
}

// initializeLogger configure global logger; also redirect standard log to zerolog.
func initializeLogger(level, format string) error {
	zerolog.ErrorMarshalFunc = aerr.ErrorMarshalFunc //nolint:reassign

	writer, err := newLogWriter(resolveLogFormat(format))
	if err != nil {
		return err
	}

	log.Logger = log.Output(writer).With().Timestamp().Caller().Logger()

	if l, err := zerolog.ParseLevel(level); err == nil && level != "" {
		zerolog.SetGlobalLevel(l)
	} else {
		log.Error().Msgf("logger: unknown log level %q; using info", level)
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)

	return nil
}

func newLogWriter(format string) (io.Writer, error) {
	switch format {
	case logFormatJSON:
		return os.Stderr, nil

	case logFormatSyslog:
		syslogwriter, err := syslog.New(syslog.LOG_USER, config.AppName)
		if err != nil {
			return nil, aerr.ApplyFor(aerr.ErrInvalidConf, err, "init syslog failed")
		}

		return zerolog.SyslogLevelWriter(syslogwriter), nil

	case logFormatJournald:
		return journald.NewJournalDWriter(), nil

	case logFormatLogfmt:
		return newLogfmtWriter(os.Stderr), nil

	default:
		return newConsoleWriter(os.Stderr, outputIsConsole()), nil
	}
}

// resolveLogFormat check log format name. Unknown or empty format is replaced
// by console or logfmt according to stderr is terminal or not.
func resolveLogFormat(format string) string {
	if slices.Contains(logFormats, format) {
		return format
	}

	if format != "" {
		log.Error().Msgf("logger: unknown log format %q; using default", format)
	}

	if outputIsConsole() {
		return logFormatConsole
	}

	return logFormatLogfmt
}

func newConsoleWriter(out io.Writer, console bool) zerolog.ConsoleWriter {
	// full datetime when log is written to file
	tformat := time.RFC3339
	if console {
		tformat = time.TimeOnly
	}

	return zerolog.ConsoleWriter{ //nolint:exhaustruct
		Out:        out,
		NoColor:    !console,
		TimeFormat: tformat,
	}
}

func outputIsConsole() bool {
	fileInfo, _ := os.Stderr.Stat()

	return fileInfo != nil && (fileInfo.Mode()&os.ModeCharDevice) != 0
}

// newLogfmtWriter create writer that produce logfmt lines (key=value).
func newLogfmtWriter(out io.Writer) zerolog.ConsoleWriter {
	quoted := func(i any) string {
		return strconv.Quote(fmt.Sprint(i))
	}

	return zerolog.ConsoleWriter{ //nolint:exhaustruct
		Out:             out,
		NoColor:         true,
		TimeFormat:      time.RFC3339,
		FormatLevel:     func(i any) string { return fmt.Sprintf("level=%v", i) },
		FormatTimestamp: func(i any) string { return fmt.Sprintf("ts=%v", i) },
		FormatMessage: func(i any) string {
			if i == nil {
				return "msg=\"\""
			}

			return "msg=" + quoted(i)
		},
		FormatCaller: func(i any) string {
			c := fmt.Sprint(i)
			if strings.ContainsAny(c, " \"") {
				c = strconv.Quote(c)
			}

			return "caller=" + c
		},
		FormatErrFieldValue: quoted,
	}
}
