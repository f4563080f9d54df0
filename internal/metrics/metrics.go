// Package metrics exposes the prometheus instrumentation for the
// transition core: gas consumption, command outcomes, and module-cache
// effectiveness.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every collector the core registers. Callers that embed
// the core in a larger service register Registry.Collectors() against
// their own prometheus.Registerer.
type Registry struct {
	GasUsed          prometheus.Histogram
	CommandsTotal    *prometheus.CounterVec
	ModuleCacheHits  prometheus.Counter
	ModuleCacheMiss  prometheus.Counter
	ModuleCompileDur prometheus.Histogram
}

// NewRegistry constructs a fresh, unregistered set of collectors.
func NewRegistry() *Registry {
	return &Registry{
		GasUsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "txruntime",
			Name:      "gas_used",
			Help:      "Gas consumed per transaction.",
			Buckets:   prometheus.ExponentialBuckets(1000, 2, 16),
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txruntime",
			Name:      "commands_total",
			Help:      "Commands executed, partitioned by kind and exit code.",
		}, []string{"kind", "exit_code"}),
		ModuleCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txruntime",
			Name:      "module_cache_hits_total",
			Help:      "Compiled-module cache hits.",
		}),
		ModuleCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txruntime",
			Name:      "module_cache_misses_total",
			Help:      "Compiled-module cache misses (resulted in a compile).",
		}),
		ModuleCompileDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "txruntime",
			Name:      "module_compile_duration_seconds",
			Help:      "Wall-clock time spent compiling a Wasm module.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Collectors returns every collector in the registry, for bulk registration.
func (r *Registry) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		r.GasUsed, r.CommandsTotal, r.ModuleCacheHits, r.ModuleCacheMiss, r.ModuleCompileDur,
	}
}
