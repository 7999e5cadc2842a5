package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives cache and event counters. Implementations must be safe
// for concurrent use.
type Recorder interface {
	CacheHit(resource string, stale bool)
	CacheMiss(resource string)
	Refresh(resource string, background bool, err error)
	EventPublished(resource, operation string)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) CacheHit(string, bool)         {}
func (Nop) CacheMiss(string)              {}
func (Nop) Refresh(string, bool, error)   {}
func (Nop) EventPublished(string, string) {}

// Prometheus records observations as Prometheus counters.
type Prometheus struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	events    *prometheus.CounterVec
}

// NewPrometheus creates the counters and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Reads served from the resource cache.",
		}, []string{"resource", "stale"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Reads that found no cached collection.",
		}, []string{"resource"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue",
			Subsystem: "cache",
			Name:      "refreshes_total",
			Help:      "Backend fetches by mode and outcome.",
		}, []string{"resource", "mode", "outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Change events published to subscribers.",
		}, []string{"resource", "operation"}),
	}

	for _, c := range []prometheus.Collector{p.hits, p.misses, p.refreshes, p.events} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) CacheHit(resource string, stale bool) {
	label := "false"
	if stale {
		label = "true"
	}
	p.hits.WithLabelValues(resource, label).Inc()
}

func (p *Prometheus) CacheMiss(resource string) {
	p.misses.WithLabelValues(resource).Inc()
}

func (p *Prometheus) Refresh(resource string, background bool, err error) {
	mode := "foreground"
	if background {
		mode = "background"
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	p.refreshes.WithLabelValues(resource, mode, outcome).Inc()
}

func (p *Prometheus) EventPublished(resource, operation string) {
	p.events.WithLabelValues(resource, operation).Inc()
}
