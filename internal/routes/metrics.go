package routes

import (
	"bytes"
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/nhdewitt/ticker-from-tcp/internal/request"
	"github.com/nhdewitt/ticker-from-tcp/internal/response"
	"github.com/nhdewitt/ticker-from-tcp/internal/router"
)

const MetricsPath = "/metrics"

// Metrics exposes a Prometheus registry in the text exposition format.
type Metrics struct {
	gatherer prometheus.Gatherer
}

func NewMetrics(g prometheus.Gatherer) *Metrics {
	return &Metrics{gatherer: g}
}

func (m *Metrics) PathMatches(path string) bool {
	return path == MetricsPath
}

func (m *Metrics) MethodMatches(method request.Method) bool {
	return method == request.MethodGet
}

func (m *Metrics) Handle(context.Context, *request.Request) (*response.Response, error) {
	families, err := m.gatherer.Gather()
	if err != nil {
		return nil, router.Errorf(response.StatusInternalServerError, err, "failed to gather metrics")
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, format)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, router.Errorf(response.StatusInternalServerError, err, "failed to encode metrics")
		}
	}
	return response.OK().WithRaw(buf.Bytes(), string(format)), nil
}
