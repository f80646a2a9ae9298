package server

//
// trace.go
// Copyright (C) 2026 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"net/http"
	"runtime/pprof"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"gitlab.com/kabes/go-backend/internal/config"
	xtrace "golang.org/x/net/trace"
)

// newTracingMiddleware register each request in x/net/trace; results are
// available on /debug/requests and /debug/events of management endpoint.
func newTracingMiddleware(cfg *config.ServerConf) func(http.Handler) http.Handler {
	xtrace.AuthRequest = func(req *http.Request) (bool, bool) {
		return cfg.AuthMgmtRequest(peerRequest(req))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if shouldSkipLogRequest(request) {
				next.ServeHTTP(writer, request)

				return
			}

			ctx := request.Context()
			reqid := "?"

			if id, ok := hlog.IDFromCtx(ctx); ok {
				reqid = id.String()
				pprof.SetGoroutineLabels(pprof.WithLabels(ctx, pprof.Labels(logKeyReqID, reqid)))
			}

			tr := xtrace.New("server", request.Method+" "+request.URL.Path+" req_id="+reqid)
			defer tr.Finish()

			tlrw := &logResponseWriter{ResponseWriter: writer}

			next.ServeHTTP(tlrw, request.WithContext(xtrace.NewContext(ctx, tr)))

			tr.LazyPrintf("status=%d size=%d", tlrw.statusCode(), tlrw.size)

			if tlrw.statusCode() >= http.StatusInternalServerError {
				tr.SetError()
			}
		})
	}
}

func mountXTrace(group chi.Router, webroot string) {
	group.Get(webroot+"/debug/requests", xtrace.Traces)
	group.Get(webroot+"/debug/events", xtrace.Events)
}
