package server

//
// instrumentation.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var defaultBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2} //nolint:gochecknoglobals

// newPromMiddleware instrument handlers; metrics are labeled by `handler`.
// Collectors already registered in reg are reused.
func newPromMiddleware(reg prometheus.Registerer, name string) func(http.Handler) http.Handler {
	reg = prometheus.WrapRegistererWith(prometheus.Labels{"handler": name}, reg)

	requestsTotal := register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Tracks the number of HTTP requests.",
		}, []string{"method", "code"},
	))
	requestDuration := register(reg, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Tracks the latencies for HTTP requests.",
			Buckets: defaultBuckets,
		},
		[]string{"method", "code"},
	))
	responseSize := register(reg, prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "http_response_size_bytes",
			Help: "Tracks the size of HTTP responses.",
		},
		[]string{"method", "code"},
	))
	inFlight := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "A gauge of requests currently being served.",
	}))

	return func(next http.Handler) http.Handler {
		base := promhttp.InstrumentHandlerInFlight(inFlight, next)
		base = promhttp.InstrumentHandlerResponseSize(responseSize, base)
		base = promhttp.InstrumentHandlerDuration(requestDuration, base)

		return promhttp.InstrumentHandlerCounter(requestsTotal, base)
	}
}

func register[T prometheus.Collector](reg prometheus.Registerer, col T) T {
	if err := reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}

		panic(err)
	}

	return col
}

func newMetricsHandler(reg prometheus.Registerer, gatherer prometheus.Gatherer) http.Handler {
	return promhttp.InstrumentMetricHandler(
		reg,
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{DisableCompression: true}),
	)
}
