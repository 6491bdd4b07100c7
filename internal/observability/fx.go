package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vendaro/vendaro/internal/observability/metrics"
	"go.uber.org/fx"
)

// Module wires the prometheus registry and application instruments.
var Module = fx.Module("observability",
	fx.Provide(func() *prometheus.Registry {
		reg := prometheus.NewRegistry()
		return reg
	}),
	fx.Provide(func(reg *prometheus.Registry) prometheus.Registerer { return reg }),
	fx.Provide(func(reg prometheus.Registerer) *metrics.Metrics {
		return metrics.New(reg)
	}),
)
