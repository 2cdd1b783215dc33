package assign

import (
	"time"

	"github.com/davidjurgens/potato-sub003/strategy"
)

// Option configures an Engine with optional dependencies.
type Option func(*engineOptions)

// engineOptions holds optional Engine configuration.
type engineOptions struct {
	logger      Logger
	metrics     MetricsCollector
	hooks       *Hooks
	registry    *strategy.Registry
	strategy    SelectionStrategy
	clock       func() time.Time
	strictStore bool
}

// withStrictStore makes store invariant breaches panic instead of being
// logged and rejected. Test-only; production keeps serving and alerts
// through metrics.
func withStrictStore() Option {
	return func(o *engineOptions) {
		o.strictStore = true
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Example:
//
//	logger := zap.NewExample().Sugar()
//	eng, err := assign.NewEngine(&cfg, items, assign.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *engineOptions) {
		o.metrics = metrics
	}
}

// WithHooks sets lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Example:
//
//	hooks := &assign.Hooks{
//	    OnReclusterRequested: func(ctx context.Context, gen int64) error {
//	        go runClusteringJob(ctx, gen)
//	        return nil
//	    },
//	}
//	eng, err := assign.NewEngine(&cfg, items, assign.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *engineOptions) {
		o.hooks = hooks
	}
}

// WithRegistry sets a custom strategy registry. Use this to add strategies
// beyond the built-ins before the engine resolves
// Config.AssignmentStrategy.
func WithRegistry(registry *strategy.Registry) Option {
	return func(o *engineOptions) {
		o.registry = registry
	}
}

// WithStrategy bypasses the registry entirely and installs the given
// strategy instance. Config.AssignmentStrategy is ignored.
func WithStrategy(s SelectionStrategy) Option {
	return func(o *engineOptions) {
		o.strategy = s
	}
}

// WithClock overrides the engine's time source. Tests use this to expire
// reservations without sleeping.
func WithClock(clock func() time.Time) Option {
	return func(o *engineOptions) {
		o.clock = clock
	}
}
