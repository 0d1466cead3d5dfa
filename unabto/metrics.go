package unabto

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/TheusHen/unabto-go/unabto/app"
)

// resultOther labels results outside the known uNabto codes.
const resultOther = "other"

type metrics struct {
	dispatches *prometheus.CounterVec
	ticks      prometheus.Counter
	handlers   prometheus.Gauge
}

// newMetrics builds the facade collectors. Facades sharing a registerer
// share its collectors, so their series add up.
func newMetrics(reg prometheus.Registerer, log *zap.Logger) *metrics {
	m := &metrics{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "unabto_dispatch_total", Help: "queries dispatched, by result"},
			[]string{"result"},
		),
		ticks: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "unabto_ticks_total", Help: "stack ticks driven by the facade"},
		),
		handlers: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "unabto_registered_handlers", Help: "query handlers in the registry"},
		),
	}
	if reg != nil {
		m.dispatches = register(reg, log, m.dispatches)
		m.ticks = register(reg, log, m.ticks)
		m.handlers = register(reg, log, m.handlers)
	}
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, log *zap.Logger, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	log.Warn("metrics not registered", zap.Error(err))
	return c
}

func (m *metrics) dispatched(res app.Result) {
	label := resultOther
	if res.Known() {
		label = res.String()
	}
	m.dispatches.WithLabelValues(label).Inc()
}
