package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "statebag"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry         *prometheus.Registry
	mutationsApplied prometheus.Counter
	mutationsSkipped prometheus.Counter
	persistFailed    prometheus.Counter
	notifications    prometheus.Counter
	loadCorrupt      prometheus.Counter
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      name,
		Help:      help,
	})
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	applied := newCounter("mutations_applied_total", "Total number of property mutations applied and persisted.")
	skipped := newCounter("mutations_skipped_total", "Total number of property mutations skipped by a presence guard.")
	persistFailed := newCounter("persist_failed_total", "Total number of state writes that failed to encode or reach the backing store.")
	notifications := newCounter("notifications_total", "Total number of listener invocations.")
	loadCorrupt := newCounter("load_corrupt_total", "Total number of persisted payloads that could not be decoded on open.")

	registry.MustRegister(applied, skipped, persistFailed, notifications, loadCorrupt)

	m := &Metrics{
		MutationsApplied: promCounter{applied},
		MutationsSkipped: promCounter{skipped},
		PersistFailed:    promCounter{persistFailed},
		Notifications:    promCounter{notifications},
		LoadCorrupt:      promCounter{loadCorrupt},
	}

	return &Prometheus{
		Metrics:          m,
		registry:         registry,
		mutationsApplied: applied,
		mutationsSkipped: skipped,
		persistFailed:    persistFailed,
		notifications:    notifications,
		loadCorrupt:      loadCorrupt,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
