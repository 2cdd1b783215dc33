package assign

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/davidjurgens/potato-sub003/strategy"
)

// QualificationConfig controls static category access.
//
// A user is qualified for a category once their expertise score reaches
// Threshold with at least MinQuestions graded consensus samples behind it.
type QualificationConfig struct {
	// Threshold is the minimum expertise score in [0,1].
	Threshold float64 `yaml:"threshold"`

	// MinQuestions is the minimum number of graded samples per category.
	MinQuestions int `yaml:"minQuestions"`
}

// DynamicConfig controls expertise-weighted category selection.
type DynamicConfig struct {
	// LearningRate blends recomputed consensus scores into existing ones:
	// score = old + LearningRate*(new-old). Must be in (0,1].
	LearningRate float64 `yaml:"learningRate"`

	// BaseProbability is the per-category probability floor so no category
	// is ever fully excluded from a user's draws. Must be in [0,1).
	BaseProbability float64 `yaml:"baseProbability"`

	// UpdateInterval batches expertise signal writes; the profile updates at
	// most once per interval per user. <= 0 applies updates on arrival.
	UpdateInterval time.Duration `yaml:"updateInterval"`
}

// CategoryAssignmentConfig configures the category strategy.
type CategoryAssignmentConfig struct {
	// Mode is "static" (hard qualification filter) or "dynamic"
	// (expertise-weighted category draw).
	Mode string `yaml:"mode"`

	// Fallback applies when a user qualifies for no category:
	// "uncategorized", "random", or "none".
	Fallback string `yaml:"fallback"`

	Qualification QualificationConfig `yaml:"qualification"`
	Dynamic       DynamicConfig       `yaml:"dynamic"`
}

// DiversityOrderingConfig configures cluster-based ordering.
type DiversityOrderingConfig struct {
	// NumClusters is the cluster count requested from the external
	// clustering job. Informational to the engine; the job owns the actual
	// clustering.
	NumClusters int `yaml:"numClusters"`

	// ReclusterThreshold is the fraction of observed clusters a user must
	// have drawn from before a recluster request fires. 1.0 means all.
	ReclusterThreshold float64 `yaml:"reclusterThreshold"`
}

// Config is the configuration for the Engine.
//
// All duration fields accept standard Go duration strings like "30s", "5m".
type Config struct {
	// AssignmentStrategy names the active selection strategy. Built-ins:
	// random, fixed_order, least_annotated, max_diversity, category,
	// cluster, active_learning, llm_confidence.
	AssignmentStrategy string `yaml:"assignmentStrategy"`

	// MaxAnnotationsPerItem is the per-item completion target. -1 (or 0,
	// normalized at default time) means unlimited.
	MaxAnnotationsPerItem int `yaml:"maxAnnotationsPerItem"`

	// MaxAnnotationsPerUser caps one user's submissions. -1 means unlimited.
	MaxAnnotationsPerUser int `yaml:"maxAnnotationsPerUser"`

	// RandomSeed makes a run reproducible. 0 picks a fresh seed at startup.
	RandomSeed uint64 `yaml:"randomSeed"`

	// ReservationTTL is how long an uncommitted reservation may stay
	// outstanding before the sweeper reclaims it. Without the sweeper an
	// abandoned session would hold the item's capacity forever.
	ReservationTTL time.Duration `yaml:"reservationTtl"`

	// SweepInterval is the sweeper cadence.
	SweepInterval time.Duration `yaml:"sweepInterval"`

	// SignalQueueSize is each signal ingestor channel's buffer.
	SignalQueueSize int `yaml:"signalQueueSize"`

	// ProfileDBPath is the SQLite database where expertise profiles persist
	// across restarts. Empty disables persistence; ":memory:" is ephemeral.
	ProfileDBPath string `yaml:"profileDbPath"`

	CategoryAssignment CategoryAssignmentConfig `yaml:"categoryAssignment"`
	DiversityOrdering  DiversityOrderingConfig  `yaml:"diversityOrdering"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		AssignmentStrategy:    strategy.NameRandom,
		MaxAnnotationsPerItem: -1,
		MaxAnnotationsPerUser: -1,
		ReservationTTL:        30 * time.Minute,
		SweepInterval:         time.Minute,
		SignalQueueSize:       256,
		CategoryAssignment: CategoryAssignmentConfig{
			Mode:     strategy.ModeStatic,
			Fallback: strategy.FallbackNone,
			Qualification: QualificationConfig{
				Threshold:    0.7,
				MinQuestions: 10,
			},
			Dynamic: DynamicConfig{
				LearningRate:    0.3,
				BaseProbability: 0.1,
				UpdateInterval:  30 * time.Second,
			},
		},
		DiversityOrdering: DiversityOrderingConfig{
			NumClusters:        10,
			ReclusterThreshold: 1.0,
		},
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Zero annotation caps are normalized to -1 (unlimited): a dataset that
// allows zero annotations has no reason to exist.
func SetDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.AssignmentStrategy == "" {
		cfg.AssignmentStrategy = def.AssignmentStrategy
	}
	if cfg.MaxAnnotationsPerItem == 0 {
		cfg.MaxAnnotationsPerItem = -1
	}
	if cfg.MaxAnnotationsPerUser == 0 {
		cfg.MaxAnnotationsPerUser = -1
	}
	if cfg.ReservationTTL == 0 {
		cfg.ReservationTTL = def.ReservationTTL
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.SignalQueueSize == 0 {
		cfg.SignalQueueSize = def.SignalQueueSize
	}
	if cfg.CategoryAssignment.Mode == "" {
		cfg.CategoryAssignment.Mode = def.CategoryAssignment.Mode
	}
	if cfg.CategoryAssignment.Fallback == "" {
		cfg.CategoryAssignment.Fallback = def.CategoryAssignment.Fallback
	}
	if cfg.CategoryAssignment.Qualification.Threshold == 0 {
		cfg.CategoryAssignment.Qualification.Threshold = def.CategoryAssignment.Qualification.Threshold
	}
	if cfg.CategoryAssignment.Dynamic.LearningRate == 0 {
		cfg.CategoryAssignment.Dynamic.LearningRate = def.CategoryAssignment.Dynamic.LearningRate
	}
	if cfg.CategoryAssignment.Dynamic.BaseProbability == 0 {
		cfg.CategoryAssignment.Dynamic.BaseProbability = def.CategoryAssignment.Dynamic.BaseProbability
	}
	if cfg.CategoryAssignment.Dynamic.UpdateInterval == 0 {
		cfg.CategoryAssignment.Dynamic.UpdateInterval = def.CategoryAssignment.Dynamic.UpdateInterval
	}
	if cfg.DiversityOrdering.NumClusters == 0 {
		cfg.DiversityOrdering.NumClusters = def.DiversityOrdering.NumClusters
	}
	if cfg.DiversityOrdering.ReclusterThreshold == 0 {
		cfg.DiversityOrdering.ReclusterThreshold = def.DiversityOrdering.ReclusterThreshold
	}
}

// Validate checks configuration constraints and returns an error for invalid
// values.
//
// Hard validation rules:
//   - annotation caps are -1 or positive
//   - ReservationTTL and SweepInterval are positive
//   - qualification threshold in [0,1], min questions >= 0
//   - learning rate in (0,1], base probability in [0,1)
//   - recluster threshold in (0,1]
//
// Returns:
//   - error: validation error wrapping ErrInvalidConfig, nil if valid
func (cfg *Config) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf(format+": %w", append(args, ErrInvalidConfig)...)
	}

	if cfg.MaxAnnotationsPerItem < -1 || cfg.MaxAnnotationsPerItem == 0 {
		return fail("MaxAnnotationsPerItem must be -1 (unlimited) or positive, got %d", cfg.MaxAnnotationsPerItem)
	}
	if cfg.MaxAnnotationsPerUser < -1 || cfg.MaxAnnotationsPerUser == 0 {
		return fail("MaxAnnotationsPerUser must be -1 (unlimited) or positive, got %d", cfg.MaxAnnotationsPerUser)
	}
	if cfg.ReservationTTL <= 0 {
		return fail("ReservationTTL must be > 0, got %v", cfg.ReservationTTL)
	}
	if cfg.SweepInterval <= 0 {
		return fail("SweepInterval must be > 0, got %v", cfg.SweepInterval)
	}

	q := cfg.CategoryAssignment.Qualification
	if q.Threshold < 0 || q.Threshold > 1 {
		return fail("qualification threshold %v out of [0,1]", q.Threshold)
	}
	if q.MinQuestions < 0 {
		return fail("qualification minQuestions must be >= 0, got %d", q.MinQuestions)
	}

	d := cfg.CategoryAssignment.Dynamic
	if d.LearningRate <= 0 || d.LearningRate > 1 {
		return fail("dynamic learningRate %v out of (0,1]", d.LearningRate)
	}
	if d.BaseProbability < 0 || d.BaseProbability >= 1 {
		return fail("dynamic baseProbability %v out of [0,1)", d.BaseProbability)
	}

	div := cfg.DiversityOrdering
	if div.NumClusters < 1 {
		return fail("diversity numClusters must be >= 1, got %d", div.NumClusters)
	}
	if div.ReclusterThreshold <= 0 || div.ReclusterThreshold > 1 {
		return fail("diversity reclusterThreshold %v out of (0,1]", div.ReclusterThreshold)
	}

	return nil
}

// LoadConfig reads a YAML configuration file, applies defaults, and
// validates the result.
//
// Parameters:
//   - path: YAML file path
//
// Returns:
//   - Config: loaded configuration
//   - error: read, parse, or validation error
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
