package server

//
// middlewares.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"gitlab.com/kabes/go-backend/internal/aerr"
	"gitlab.com/kabes/go-backend/internal/config"
)

type logResponseWriter struct {
	http.ResponseWriter

	status int
	size   int
}

func (r *logResponseWriter) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}

	size, err := r.ResponseWriter.Write(b)
	r.size += size

	if err != nil {
		return size, aerr.Wrap(err)
	}

	return size, nil
}

func (r *logResponseWriter) WriteHeader(status int) {
	r.ResponseWriter.WriteHeader(status)

	if r.status == 0 {
		r.status = status
	}
}

func (r *logResponseWriter) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}

	return r.status
}

//-------------------------------------------------------------

func responseLogLevel(status int) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest && status != http.StatusNotFound:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

func newSimpleLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if shouldSkipLogRequest(request) {
			next.ServeHTTP(writer, request)

			return
		}

		start := time.Now()
		llog := hlog.FromRequest(request)

		llog.Info().
			Str("url", request.URL.Redacted()).
			Str("remote", request.RemoteAddr).
			Str("method", request.Method).
			Msg("webhandler: request start")

		lrw := &logResponseWriter{ResponseWriter: writer}

		defer func() {
			llog.WithLevel(responseLogLevel(lrw.statusCode())).
				Str("uri", request.RequestURI).
				Int("status", lrw.statusCode()).
				Int("size", lrw.size).
				Dur("duration", time.Since(start)).
				Msg("webhandler: request finished")
		}()

		next.ServeHTTP(lrw, request)
	})
}

//-------------------------------------------------------------

// newFullLogMiddleware log request and response with headers and bodies.
func newFullLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if shouldSkipLogRequest(request) {
			next.ServeHTTP(writer, request)

			return
		}

		start := time.Now()
		llog := hlog.FromRequest(request)

		llog.Info().
			Str("url", request.URL.Redacted()).
			Str("remote", request.RemoteAddr).
			Str("method", request.Method).
			Msg("webhandler: request start")

		var reqBody, respBody bytes.Buffer

		request.Body = io.NopCloser(io.TeeReader(request.Body, &reqBody))
		lrw := middleware.NewWrapResponseWriter(writer, request.ProtoMajor)

		lrw.Tee(&respBody)

		defer func() {
			llog.Debug().
				Str("request_body", reqBody.String()).
				Interface("req_headers", request.Header).
				Msg("webhandler: request data")
			llog.Debug().
				Str("response_body", respBody.String()).
				Interface("resp_headers", lrw.Header()).
				Msg("webhandler: response data")

			llog.WithLevel(responseLogLevel(lrw.Status())).
				Str("uri", request.RequestURI).
				Int("status", lrw.Status()).
				Int("size", lrw.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("webhandler: request finished")
		}()

		next.ServeHTTP(lrw, request)
	})
}

//-------------------------------------------------------------

// shouldSkipLogRequest return true for metrics and debug endpoints.
func shouldSkipLogRequest(request *http.Request) bool {
	path := request.URL.Path

	return strings.Contains(path, "/metrics") || strings.Contains(path, "/debug/")
}

func newLogMiddleware(cfg *config.ServerConf) func(http.Handler) http.Handler {
	if cfg.DebugFlags.HasFlag(config.DebugMsgBody) {
		return newFullLogMiddleware
	}

	return newSimpleLogMiddleware
}

//-------------------------------------------------------------

func newRecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			logger := hlog.FromRequest(req)

			switch t := rec.(type) {
			case error:
				if errors.Is(t, http.ErrAbortHandler) {
					panic(t)
				}

				logger.Error().Err(t).Msg("panic when handling request")
			case string:
				logger.Error().Str("err", t).Msg("panic when handling request")
			default:
				logger.Error().Str("err", fmt.Sprintf("%v", t)).Msg("panic when handling request")
			}

			if req.Header.Get("Connection") != "Upgrade" {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, req)
	})
}

//-------------------------------------------------------------

type peerAddrKey struct{}

// newPeerAddrMiddleware remember address of connection peer before RealIP replace
// RemoteAddr with value from request headers.
func newPeerAddrMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerAddrKey{}, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// peerRequest return request with RemoteAddr set to connection peer address.
func peerRequest(r *http.Request) *http.Request {
	addr, ok := r.Context().Value(peerAddrKey{}).(string)
	if !ok || addr == r.RemoteAddr {
		return r
	}

	req := r.WithContext(r.Context())
	req.RemoteAddr = addr

	return req
}
