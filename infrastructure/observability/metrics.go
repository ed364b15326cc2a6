// Package observability holds the metrics recorders and the tracing bootstrap.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "graph"

// Recorder implements ports.Metrics with Prometheus collectors
type Recorder struct {
	connectionRequests  *prometheus.CounterVec
	connectionResponses *prometheus.CounterVec
	introRequests       *prometheus.CounterVec
	introResponses      *prometheus.CounterVec
	quotaRejections     *prometheus.CounterVec
	storeLatency        *prometheus.HistogramVec
	httpDuration        *prometheus.HistogramVec
}

var _ ports.Metrics = (*Recorder)(nil)

// NewRecorder creates the collectors and registers them with reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		connectionRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_requests_total",
			Help:      "Connection requests by outcome",
		}, []string{"outcome"}),
		connectionResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_responses_total",
			Help:      "Connection responses by decision",
		}, []string{"decision"}),
		introRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intro_requests_total",
			Help:      "Introduction requests by outcome",
		}, []string{"outcome"}),
		introResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intro_responses_total",
			Help:      "Introduction responses by decision",
		}, []string{"decision"}),
		quotaRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejections_total",
			Help:      "Requests refused by a quota counter",
		}, []string{"counter"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_seconds",
			Help:      "Latency of store operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		r.connectionRequests,
		r.connectionResponses,
		r.introRequests,
		r.introResponses,
		r.quotaRejections,
		r.storeLatency,
		r.httpDuration,
	)
	return r
}

func (r *Recorder) RecordConnectionRequest(outcome string) {
	r.connectionRequests.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordConnectionResponse(decision string) {
	r.connectionResponses.WithLabelValues(decision).Inc()
}

func (r *Recorder) RecordIntroRequest(outcome string) {
	r.introRequests.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordIntroResponse(decision string) {
	r.introResponses.WithLabelValues(decision).Inc()
}

func (r *Recorder) RecordQuotaRejection(counter string) {
	r.quotaRejections.WithLabelValues(counter).Inc()
}

func (r *Recorder) RecordStoreLatency(operation string, d time.Duration) {
	r.storeLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// Middleware observes request latency keyed by the chi route pattern, so
// path parameters do not explode label cardinality.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.httpDuration.WithLabelValues(req.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

// Multi fans every record out to several recorders
type Multi []ports.Metrics

var _ ports.Metrics = Multi(nil)

func (m Multi) RecordConnectionRequest(outcome string) {
	for _, r := range m {
		r.RecordConnectionRequest(outcome)
	}
}

func (m Multi) RecordConnectionResponse(decision string) {
	for _, r := range m {
		r.RecordConnectionResponse(decision)
	}
}

func (m Multi) RecordIntroRequest(outcome string) {
	for _, r := range m {
		r.RecordIntroRequest(outcome)
	}
}

func (m Multi) RecordIntroResponse(decision string) {
	for _, r := range m {
		r.RecordIntroResponse(decision)
	}
}

func (m Multi) RecordQuotaRejection(counter string) {
	for _, r := range m {
		r.RecordQuotaRejection(counter)
	}
}

func (m Multi) RecordStoreLatency(operation string, d time.Duration) {
	for _, r := range m {
		r.RecordStoreLatency(operation, d)
	}
}
