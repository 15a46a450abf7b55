package retry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts retry loop activity. A nil *Metrics records nothing.
type Metrics struct {
	Attempts *prometheus.CounterVec
	Retries  *prometheus.CounterVec
	Failures *prometheus.CounterVec
}

// NewMetrics creates the retry counters and registers them on reg. A nil
// reg leaves them unregistered. Counters already registered on reg are
// reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reddit_extractor_attempts_total",
				Help: "Total number of remote operation attempts",
			},
			[]string{"kind"},
		),
		Retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reddit_extractor_retries_total",
				Help: "Total number of retries after a transient failure",
			},
			[]string{"kind"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reddit_extractor_failures_total",
				Help: "Total number of operations that surfaced an error",
			},
			[]string{"kind", "reason"},
		),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	m.Attempts, err = register(reg, m.Attempts)
	if err != nil {
		return nil, err
	}
	m.Retries, err = register(reg, m.Retries)
	if err != nil {
		return nil, err
	}
	m.Failures, err = register(reg, m.Failures)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *Metrics) attempt(kind Kind) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) retry(kind Kind) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) failure(kind Kind, reason string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(kind.String(), reason).Inc()
}
