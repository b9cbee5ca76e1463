package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
	"github.com/shravanasati/mearas/router"
)

// unmatchedRoute labels requests that matched no route, keeping raw paths
// out of the label set.
const unmatchedRoute = "unmatched"

// Metrics records per-route request counts and latencies in Prometheus
// collectors.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
	gatherer prometheus.Gatherer
}

// NewMetrics registers the request collectors with reg. A nil reg uses a
// fresh registry. Handler can only expose reg when it is also a Gatherer.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Requests served, by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time spent producing the response.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Requests currently being served.",
		}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.inflight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m, nil
}

// Middleware records every request that passes through it. The route label
// is the matched pattern, so it must run outside the router's dispatch.
func (m *Metrics) Middleware() router.Middleware {
	return func(next handler.Handler) handler.Handler {
		return func(r *request.Request) response.Response {
			m.inflight.Inc()
			defer m.inflight.Dec()

			start := time.Now()
			resp := response.From(next(r))

			route := router.MatchedPattern(r)
			if route == "" {
				route = unmatchedRoute
			}
			status := strconv.Itoa(int(resp.GetStatusCode()))
			m.requests.WithLabelValues(r.Method, route, status).Inc()
			m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			return resp
		}
	}
}

// ErrNoGatherer is returned by Gather when the registerer given to
// NewMetrics cannot be gathered from.
var ErrNoGatherer = errors.New("metrics: registerer is not a gatherer")

// Gather encodes the current metrics in the exposition format chosen from
// the Accept header.
func (m *Metrics) Gather(accept string) ([]byte, expfmt.Format, error) {
	if m.gatherer == nil {
		return nil, "", ErrNoGatherer
	}
	families, err := m.gatherer.Gather()
	if err != nil {
		return nil, "", err
	}

	format := expfmt.Negotiate(http.Header{"Accept": []string{accept}})
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, format)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, "", err
		}
	}
	return buf.Bytes(), format, nil
}

// Handler serves the metrics for a scrape endpoint.
func (m *Metrics) Handler() handler.Handler {
	return func(r *request.Request) response.Response {
		body, format, err := m.Gather(r.Headers.Get("Accept"))
		if err != nil {
			return handler.ErrorResponse(err)
		}
		resp := response.NewBytesResponse(body)
		resp.GetHeaders().Set("Content-Type", string(format))
		return resp
	}
}
