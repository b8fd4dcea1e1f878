// Package metric exposes navgate's Prometheus counters.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IncrementalCounter is a labelled counter.
type IncrementalCounter interface {
	Increment(val ...string)
}

// Counter wraps a prometheus.CounterVec.
type Counter struct {
	Name string
	Help string

	vec *prometheus.CounterVec
}

func (c *Counter) Increment(val ...string) {
	c.vec.WithLabelValues(val...).Inc()
}

// Vec exposes the underlying vector.
func (c *Counter) Vec() *prometheus.CounterVec {
	return c.vec
}

// NewCounterWithRegistry creates a counter vector and registers it with reg.
func NewCounterWithRegistry(reg prometheus.Registerer, name, help string, labels ...string) *Counter {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: help,
	}, labels)

	reg.MustRegister(counter)

	return &Counter{
		Name: name,
		Help: help,
		vec:  counter,
	}
}

// Metrics holds the counters the navigation service records.
type Metrics struct {
	// Selections counts child or leaf selections, labelled by top-level menu slug.
	Selections IncrementalCounter
	// Transitions counts disclosure state changes, labelled by the new state.
	Transitions IncrementalCounter
	// Lookups counts capability lookups, labelled hit, miss or error.
	Lookups IncrementalCounter
}

// Lookup result labels.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

// New registers the navgate counters with reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Selections: NewCounterWithRegistry(reg, "navgate_menu_selections_total",
			"Menu entries selected, by top-level menu.", "menu"),
		Transitions: NewCounterWithRegistry(reg, "navgate_disclosure_transitions_total",
			"Disclosure state transitions, by resulting state.", "state"),
		Lookups: NewCounterWithRegistry(reg, "navgate_capability_lookups_total",
			"Capability lookups, by result.", "result"),
	}
}

// Nop returns metrics backed by a throwaway registry.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

// HandlerFor returns an HTTP handler serving the metrics gathered by reg.
func HandlerFor(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
