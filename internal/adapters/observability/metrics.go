package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docrep", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docrep", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docrep", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docrep", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docrep", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels/errors."},
		[]string{"cache", "event"}, // event: hit|miss|set|del|error
	)
	SourceOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docrep", Name: "source_outcomes_total", Help: "Source adapter outcomes per mode."},
		[]string{"source", "mode", "outcome"}, // outcome: ok|empty|error
	)
	SummarizerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docrep", Name: "summarizer_calls_total", Help: "Text summarizer calls."},
		[]string{"provider", "outcome"},
	)
)

// Serve exposes reg on a separate listener. An empty addr disables it and returns nil.
func Serve(addr string, reg *prometheus.Registry) *http.Server {
	if addr == "" {
		return nil // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return srv
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents, SourceOutcomes, SummarizerCalls)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del|error
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveSource(source, mode, outcome string) {
	SourceOutcomes.WithLabelValues(source, mode, outcome).Inc()
}

func ObserveSummarizer(provider, outcome string) {
	SummarizerCalls.WithLabelValues(provider, outcome).Inc()
}
