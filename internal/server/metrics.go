package server

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nhdewitt/ticker-from-tcp/internal/request"
	"github.com/nhdewitt/ticker-from-tcp/internal/response"
)

const namespace = "ticker"

var kindLabels = map[request.ParseErrorKind]string{
	request.InvalidFormat:          "invalid_format",
	request.InvalidMethod:          "invalid_method",
	request.InvalidRequestLine:     "invalid_request_line",
	request.InvalidHeader:          "invalid_header",
	request.MissingRequiredHeaders: "missing_required_headers",
	request.URLParse:               "url_parse",
}

// Metrics records connection and request counters. A nil *Metrics records
// nothing.
type Metrics struct {
	connections prometheus.Counter
	active      prometheus.Gauge
	requests    *prometheus.CounterVec
	parseErrors *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics registers the server collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		connections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Connections accepted.",
		}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Connections currently being served.",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Responses written, by request method and status code.",
		}, []string{"method", "status"}),
		parseErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Requests rejected by the parser, by error kind.",
		}, []string{"kind"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from accept to response written.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

func (m *Metrics) connOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
	m.active.Inc()
}

func (m *Metrics) connClosed() {
	if m == nil {
		return
	}
	m.active.Dec()
}

func (m *Metrics) parseFailed(err error) {
	if m == nil {
		return
	}
	kind := "other"
	var perr *request.ParseError
	if errors.As(err, &perr) {
		if l, ok := kindLabels[perr.Kind]; ok {
			kind = l
		}
	}
	m.parseErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) observe(method string, status response.StatusCode, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(int(status))).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}
