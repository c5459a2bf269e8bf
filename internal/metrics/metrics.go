// Package metrics exposes Prometheus counters for conversions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the conversion counters. A nil *Metrics records nothing.
type Metrics struct {
	Conversions  *prometheus.CounterVec
	CRSFallbacks prometheus.Counter
	CRSCacheHits prometheus.Counter
}

// New registers the counters with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Conversions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfgeo_conversions_total",
				Help: "Conversions by target kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		CRSFallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "cfgeo_crs_parse_fallbacks_total",
			Help: "CRS strings that failed to parse as WKT and were retried as Proj strings.",
		}),
		CRSCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "cfgeo_crs_cache_hits_total",
			Help: "CRS strings served from the parse cache.",
		}),
	}
}

// Conversion counts one conversion to kind.
func (m *Metrics) Conversion(kind string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.Conversions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Fallback() {
	if m != nil {
		m.CRSFallbacks.Inc()
	}
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.CRSCacheHits.Inc()
	}
}
