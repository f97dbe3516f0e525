// Package metrics exports reactive event and property statistics to
// Prometheus.
//
// The Collector pulls a reactive.Stats snapshot from every registered
// source at scrape time, so registering a source costs nothing on the
// notification path.
package metrics

import (
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/reactive"
)

// Source is anything that reports reactive statistics. *reactive.Event and
// *reactive.Property satisfy it.
type Source interface {
	Stats() reactive.Stats
}

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "reactive").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

func defaultConfig() Config {
	return Config{Namespace: "reactive"}
}

// Collector is a prometheus.Collector over named reactive sources.
//
// Metrics collected, each labelled with the source name as "registry":
//   - reactive_invocations_total: notification cycles started
//   - reactive_callbacks_total: callbacks executed
//   - reactive_callback_panics_total: callbacks that panicked
//   - reactive_callback_seconds_total: time spent in callbacks
//   - reactive_subscribers: currently registered callbacks
//   - reactive_poisoned: 1 while the registry is poisoned
type Collector struct {
	mu      sync.RWMutex
	sources map[string]Source

	invocations *prometheus.Desc
	callbacks   *prometheus.Desc
	panics      *prometheus.Desc
	seconds     *prometheus.Desc
	subscribers *prometheus.Desc
	poisoned    *prometheus.Desc
}

// NewCollector creates an empty collector.
func NewCollector(opts ...Option) *Collector {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(cfg.Namespace, "", name),
			help,
			[]string{"registry"},
			cfg.ConstLabels,
		)
	}

	return &Collector{
		sources:     make(map[string]Source),
		invocations: desc("invocations_total", "Total number of notification cycles started"),
		callbacks:   desc("callbacks_total", "Total number of callbacks executed"),
		panics:      desc("callback_panics_total", "Total number of callbacks that panicked"),
		seconds:     desc("callback_seconds_total", "Total time spent in callbacks in seconds"),
		subscribers: desc("subscribers", "Number of registered callbacks"),
		poisoned:    desc("poisoned", "Whether the registry is poisoned (1) or not (0)"),
	}
}

// Add registers src under name, replacing any source with the same name.
func (c *Collector) Add(name string, src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[name] = src
}

// Remove unregisters the source with the given name.
func (c *Collector) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, name)
}

// Names returns the registered source names in sorted order.
func (c *Collector) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.invocations
	ch <- c.callbacks
	ch <- c.panics
	ch <- c.seconds
	ch <- c.subscribers
	ch <- c.poisoned
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	sources := make(map[string]Source, len(c.sources))
	for name, src := range c.sources {
		sources[name] = src
	}
	c.mu.RUnlock()

	for name, src := range sources {
		st := src.Stats()

		poisoned := 0.0
		if st.Poisoned {
			poisoned = 1
		}

		ch <- prometheus.MustNewConstMetric(c.invocations, prometheus.CounterValue, float64(st.Invocations), name)
		ch <- prometheus.MustNewConstMetric(c.callbacks, prometheus.CounterValue, float64(st.Callbacks), name)
		ch <- prometheus.MustNewConstMetric(c.panics, prometheus.CounterValue, float64(st.Panics), name)
		ch <- prometheus.MustNewConstMetric(c.seconds, prometheus.CounterValue, st.CallbackTime.Seconds(), name)
		ch <- prometheus.MustNewConstMetric(c.subscribers, prometheus.GaugeValue, float64(st.Subscribers), name)
		ch <- prometheus.MustNewConstMetric(c.poisoned, prometheus.GaugeValue, poisoned, name)
	}
}

var _ prometheus.Collector = (*Collector)(nil)
