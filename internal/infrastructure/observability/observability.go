package observability

import (
	"github.com/Zhima-Mochi/colleshop/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/colleshop/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/colleshop/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/colleshop/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// provider serves registered instruments and falls back to no-ops for unknown keys, so a
// use case asking for a metric nobody registered keeps working.
type provider struct {
	tracer     observability.Tracer
	logger     observability.Logger
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

// New assembles an Observability backed by the supplied tracer, logger and metric instruments.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	p := &provider{
		tracer:     tracer,
		logger:     logger,
		counters:   make(map[observability.MetricKey]observability.Counter, len(counters)),
		histograms: make(map[observability.MetricKey]observability.Histogram, len(histograms)),
	}
	for k, v := range counters {
		if v != nil {
			p.counters[k] = v
		}
	}
	for k, v := range histograms {
		if v != nil {
			p.histograms[k] = v
		}
	}
	return p
}

// NewService wires the production stack: the global OTel tracer, zap and Prometheus collectors
// registered on reg.
func NewService(serviceName string, log *zap.Logger, reg prometheus.Registerer) observability.Observability {
	counters, histograms := prometrics.Instruments(prometrics.New(reg, "", ""))
	return New(oteltrace.New(serviceName), zaplogger.Wrap(log), counters, histograms)
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p }

func (p *provider) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := p.counters[name]; ok {
		return c
	}
	return observability.NopCounter()
}

func (p *provider) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := p.histograms[name]; ok {
		return h
	}
	return observability.NopHistogram()
}
