package pipeline

import (
	"sync/atomic"
	"time"
)

// Metrics collects render outcomes. Injected so the orchestrator never owns
// process-global state; the default is an atomic counter set.
type Metrics interface {
	ObserveRender(d time.Duration, err error)
}

// Counters is the default Metrics: lock-free counters plus a running total
// for the average render time.
type Counters struct {
	renders    atomic.Uint64
	failures   atomic.Uint64
	totalNanos atomic.Int64
}

// NewCounters returns an empty counter set.
func NewCounters() *Counters { return &Counters{} }

func (c *Counters) ObserveRender(d time.Duration, err error) {
	c.renders.Add(1)
	c.totalNanos.Add(int64(d))
	if err != nil {
		c.failures.Add(1)
	}
}

// Snapshot is a point-in-time view for the metrics endpoint.
type Snapshot struct {
	Renders       uint64  `json:"qr_generation_count"`
	Failures      uint64  `json:"qr_generation_failures"`
	AverageMillis float64 `json:"average_qr_generation_ms"`
}

func (c *Counters) Snapshot() Snapshot {
	n := c.renders.Load()
	s := Snapshot{Renders: n, Failures: c.failures.Load()}
	if n > 0 {
		s.AverageMillis = float64(c.totalNanos.Load()) / float64(n) / float64(time.Millisecond)
	}
	return s
}

// nopMetrics backs a nil injection.
type nopMetrics struct{}

func (nopMetrics) ObserveRender(time.Duration, error) {}
