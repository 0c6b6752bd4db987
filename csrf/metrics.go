package csrf

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts issuance and validation outcomes. A nil *Metrics records
// nothing.
type Metrics struct {
	TokensIssued prometheus.Counter
	Decisions    *prometheus.CounterVec
	Failures     *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them on reg (or the default
// registerer if nil). Collectors already registered under the same names are
// reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		TokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "csrf_tokens_issued_total",
			Help: "CSRF tokens generated for requests without a token cookie.",
		}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "csrf_decisions_total",
			Help: "CSRF firewall decisions by outcome.",
		}, []string{"decision"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "csrf_failures_total",
			Help: "Fatal CSRF stage errors by kind.",
		}, []string{"kind"}),
	}

	var err error
	if m.TokensIssued, err = register(reg, m.TokensIssued); err != nil {
		return nil, err
	}
	if m.Decisions, err = register(reg, m.Decisions); err != nil {
		return nil, err
	}
	if m.Failures, err = register(reg, m.Failures); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) issued() {
	if m != nil {
		m.TokensIssued.Inc()
	}
}

func (m *Metrics) decision(d Decision) {
	if m != nil {
		m.Decisions.WithLabelValues(d.String()).Inc()
	}
}

func (m *Metrics) failure(err error) {
	if m == nil {
		return
	}
	kind := "other"
	switch {
	case errors.Is(err, ErrRandomSource):
		kind = "random_source"
	case errors.Is(err, ErrMissingTokenAttribute):
		kind = "missing_attribute"
	}
	m.Failures.WithLabelValues(kind).Inc()
}
