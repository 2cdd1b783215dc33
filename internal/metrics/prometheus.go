package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/davidjurgens/potato-sub003/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	assignments     *prometheus.HistogramVec
	noWork          *prometheus.CounterVec
	reserveRetries  prometheus.Counter
	strategyFaults  *prometheus.CounterVec
	randomFallbacks *prometheus.CounterVec
	outcomes        *prometheus.CounterVec

	inFlightGauge       prometheus.Gauge
	sweepReclaims       prometheus.Counter
	sweepPasses         prometheus.Counter
	invariantViolations prometheus.Counter

	signalsApplied *prometheus.CounterVec
	signalsStale   *prometheus.CounterVec
	signalsDropped *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "assign" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "assign"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.assignments = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "assignment_duration_seconds",
			Help:      "NextInstance latency for completed assignments by strategy.",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		}, []string{"strategy"})

		p.noWork = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "no_work_total",
			Help:      "NextInstance calls that returned no work, by reason.",
		}, []string{"reason"})

		p.reserveRetries = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "reservation_retries_total",
			Help:      "Reservations lost to capacity races and retried.",
		})

		p.strategyFaults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "strategy_faults_total",
			Help:      "Strategy panics or malformed results degraded to random.",
		}, []string{"strategy"})

		p.randomFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "random_fallbacks_total",
			Help:      "Signal-driven selections that fell back to random because no signal was populated.",
		}, []string{"strategy"})

		p.outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "outcomes_total",
			Help:      "Resolved reservations by outcome (annotated/abandoned).",
		}, []string{"outcome"})

		p.inFlightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "store",
			Name:      "reservations_in_flight",
			Help:      "Current outstanding reservations across all items.",
		})

		p.sweepReclaims = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "store",
			Name:      "sweep_reclaimed_total",
			Help:      "Reservations reclaimed by the TTL sweeper.",
		})

		p.sweepPasses = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "store",
			Name:      "sweep_passes_total",
			Help:      "Sweeper passes executed.",
		})

		p.invariantViolations = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "store",
			Name:      "invariant_violations_total",
			Help:      "Detected capacity invariant breaches. Any non-zero value indicates a concurrency bug and must alert.",
		})

		p.signalsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "signal",
			Name:      "applied_total",
			Help:      "Signal updates applied, by kind.",
		}, []string{"kind"})

		p.signalsStale = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "signal",
			Name:      "stale_total",
			Help:      "Signal batches discarded by the generation guard, by kind.",
		}, []string{"kind"})

		p.signalsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "signal",
			Name:      "dropped_total",
			Help:      "Signal updates dropped because the ingestor channel was full, by kind.",
		}, []string{"kind"})

		collectors := []prometheus.Collector{
			p.assignments, p.noWork, p.reserveRetries, p.strategyFaults,
			p.randomFallbacks, p.outcomes, p.inFlightGauge, p.sweepReclaims,
			p.sweepPasses, p.invariantViolations, p.signalsApplied,
			p.signalsStale, p.signalsDropped,
		}
		for _, c := range collectors {
			// AlreadyRegisteredError is tolerated so two collectors with the
			// same namespace can share a registry in tests.
			_ = p.reg.Register(c)
		}
	})
}

// RecordAssignment records a completed assignment's latency.
func (p *PrometheusCollector) RecordAssignment(strategy string, duration float64) {
	p.ensureRegistered()
	p.assignments.WithLabelValues(strategy).Observe(duration)
}

// RecordNoWork records a NextInstance call that found nothing.
func (p *PrometheusCollector) RecordNoWork(reason string) {
	p.ensureRegistered()
	p.noWork.WithLabelValues(reason).Inc()
}

// RecordReservationRetry records a reservation lost to a capacity race.
func (p *PrometheusCollector) RecordReservationRetry() {
	p.ensureRegistered()
	p.reserveRetries.Inc()
}

// RecordStrategyFault records a strategy failure degraded to random.
func (p *PrometheusCollector) RecordStrategyFault(strategy string) {
	p.ensureRegistered()
	p.strategyFaults.WithLabelValues(strategy).Inc()
}

// RecordRandomFallback records an explicit signal-absence fallback.
func (p *PrometheusCollector) RecordRandomFallback(strategy string) {
	p.ensureRegistered()
	p.randomFallbacks.WithLabelValues(strategy).Inc()
}

// RecordOutcome records a resolved reservation.
func (p *PrometheusCollector) RecordOutcome(outcome string) {
	p.ensureRegistered()
	p.outcomes.WithLabelValues(outcome).Inc()
}

// SetItemsInFlight sets the outstanding reservation gauge.
func (p *PrometheusCollector) SetItemsInFlight(count int) {
	p.ensureRegistered()
	p.inFlightGauge.Set(float64(count))
}

// RecordSweep records one sweeper pass.
func (p *PrometheusCollector) RecordSweep(reclaimed int) {
	p.ensureRegistered()
	p.sweepPasses.Inc()
	p.sweepReclaims.Add(float64(reclaimed))
}

// RecordInvariantViolation records a capacity invariant breach.
func (p *PrometheusCollector) RecordInvariantViolation(_ /* itemID */ string) {
	p.ensureRegistered()
	p.invariantViolations.Inc()
}

// RecordSignalApplied records applied signal updates.
func (p *PrometheusCollector) RecordSignalApplied(kind string, count int) {
	p.ensureRegistered()
	p.signalsApplied.WithLabelValues(kind).Add(float64(count))
}

// RecordStaleSignal records a generation-guard discard.
func (p *PrometheusCollector) RecordStaleSignal(kind string) {
	p.ensureRegistered()
	p.signalsStale.WithLabelValues(kind).Inc()
}

// RecordSignalDropped records updates dropped on a full ingestor channel.
func (p *PrometheusCollector) RecordSignalDropped(kind string, count int) {
	p.ensureRegistered()
	p.signalsDropped.WithLabelValues(kind).Add(float64(count))
}
