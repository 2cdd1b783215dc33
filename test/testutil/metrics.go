package testutil

import (
	"sync"

	"github.com/davidjurgens/potato-sub003/types"
)

// CountingMetrics is a MetricsCollector that counts calls per label. Tests
// assert on the counters after driving the engine.
type CountingMetrics struct {
	mu sync.Mutex

	Assignments         map[string]int
	NoWork              map[string]int
	ReservationRetries  int
	StrategyFaults      map[string]int
	RandomFallbacks     map[string]int
	Outcomes            map[string]int
	ItemsInFlight       int
	SweepPasses         int
	Reclaimed           int
	InvariantViolations []string
	SignalsApplied      map[string]int
	StaleSignals        map[string]int
	SignalsDropped      map[string]int
}

var _ types.MetricsCollector = (*CountingMetrics)(nil)

// NewCountingMetrics creates a CountingMetrics with all maps initialized.
func NewCountingMetrics() *CountingMetrics {
	return &CountingMetrics{
		Assignments:     make(map[string]int),
		NoWork:          make(map[string]int),
		StrategyFaults:  make(map[string]int),
		RandomFallbacks: make(map[string]int),
		Outcomes:        make(map[string]int),
		SignalsApplied:  make(map[string]int),
		StaleSignals:    make(map[string]int),
		SignalsDropped:  make(map[string]int),
	}
}

func (c *CountingMetrics) RecordAssignment(strategy string, _ float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Assignments[strategy]++
}

func (c *CountingMetrics) RecordNoWork(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.NoWork[reason]++
}

func (c *CountingMetrics) RecordReservationRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ReservationRetries++
}

func (c *CountingMetrics) RecordStrategyFault(strategy string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StrategyFaults[strategy]++
}

func (c *CountingMetrics) RecordRandomFallback(strategy string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RandomFallbacks[strategy]++
}

func (c *CountingMetrics) RecordOutcome(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Outcomes[outcome]++
}

func (c *CountingMetrics) SetItemsInFlight(count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ItemsInFlight = count
}

func (c *CountingMetrics) RecordSweep(reclaimed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SweepPasses++
	c.Reclaimed += reclaimed
}

func (c *CountingMetrics) RecordInvariantViolation(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InvariantViolations = append(c.InvariantViolations, itemID)
}

func (c *CountingMetrics) RecordSignalApplied(kind string, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SignalsApplied[kind] += count
}

func (c *CountingMetrics) RecordStaleSignal(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StaleSignals[kind]++
}

func (c *CountingMetrics) RecordSignalDropped(kind string, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SignalsDropped[kind] += count
}

// Snapshot returns copies of the counter maps for race-free assertions.
func (c *CountingMetrics) Snapshot() (applied, stale map[string]int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	applied = make(map[string]int, len(c.SignalsApplied))
	for k, v := range c.SignalsApplied {
		applied[k] = v
	}
	stale = make(map[string]int, len(c.StaleSignals))
	for k, v := range c.StaleSignals {
		stale[k] = v
	}

	return applied, stale
}
