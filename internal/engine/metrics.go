package engine

import metrics "github.com/rcrowley/go-metrics"

// Metrics holds the engine's counters and gauges in a go-metrics registry.
// Counters are cumulative for as long as the registry lives, which spans
// engines rebuilt through ShareMetrics. Gauges always describe the engine
// that last updated them.
type Metrics struct {
	registry metrics.Registry

	submitted metrics.Counter
	rejected  metrics.Counter
	admitted  metrics.Counter
	completed metrics.Counter
	ticks     metrics.Counter

	pending metrics.Gauge
	running metrics.Gauge
	nodes   metrics.Gauge
}

func newMetrics() *Metrics {
	r := metrics.NewRegistry()
	return &Metrics{
		registry:  r,
		submitted: metrics.NewRegisteredCounter("jobs.submitted", r),
		rejected:  metrics.NewRegisteredCounter("submit.rejected", r),
		admitted:  metrics.NewRegisteredCounter("jobs.admitted", r),
		completed: metrics.NewRegisteredCounter("jobs.completed", r),
		ticks:     metrics.NewRegisteredCounter("ticks", r),
		pending:   metrics.NewRegisteredGauge("jobs.pending", r),
		running:   metrics.NewRegisteredGauge("jobs.running", r),
		nodes:     metrics.NewRegisteredGauge("nodes", r),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() metrics.Registry { return m.registry }

// Values flattens every counter and gauge into a name -> value map.
func (m *Metrics) Values() map[string]int64 {
	out := make(map[string]int64)
	m.registry.Each(func(name string, i interface{}) {
		switch metric := i.(type) {
		case metrics.Counter:
			out[name] = metric.Count()
		case metrics.Gauge:
			out[name] = metric.Value()
		}
	})
	return out
}
