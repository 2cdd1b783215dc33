package assign

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Run("validates", func(t *testing.T) {
		cfg := DefaultConfig()
		require.NoError(t, cfg.Validate())
	})

	t.Run("caps default to unlimited", func(t *testing.T) {
		cfg := DefaultConfig()
		require.Equal(t, -1, cfg.MaxAnnotationsPerItem)
		require.Equal(t, -1, cfg.MaxAnnotationsPerUser)
	})
}

func TestSetDefaults(t *testing.T) {
	t.Run("fills a zero config", func(t *testing.T) {
		var cfg Config
		SetDefaults(&cfg)
		require.NoError(t, cfg.Validate())
		require.Equal(t, "random", cfg.AssignmentStrategy)
		require.Equal(t, -1, cfg.MaxAnnotationsPerItem)
		require.Equal(t, 30*time.Minute, cfg.ReservationTTL)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		cfg := Config{
			AssignmentStrategy:    "fixed_order",
			MaxAnnotationsPerItem: 3,
			SweepInterval:         5 * time.Second,
		}
		SetDefaults(&cfg)
		require.Equal(t, "fixed_order", cfg.AssignmentStrategy)
		require.Equal(t, 3, cfg.MaxAnnotationsPerItem)
		require.Equal(t, 5*time.Second, cfg.SweepInterval)
	})
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return DefaultConfig()
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero per-item cap", func(c *Config) { c.MaxAnnotationsPerItem = 0 }},
		{"negative per-item cap below -1", func(c *Config) { c.MaxAnnotationsPerItem = -2 }},
		{"zero per-user cap", func(c *Config) { c.MaxAnnotationsPerUser = 0 }},
		{"zero reservation ttl", func(c *Config) { c.ReservationTTL = 0 }},
		{"zero sweep interval", func(c *Config) { c.SweepInterval = 0 }},
		{"threshold above 1", func(c *Config) { c.CategoryAssignment.Qualification.Threshold = 1.5 }},
		{"negative min questions", func(c *Config) { c.CategoryAssignment.Qualification.MinQuestions = -1 }},
		{"zero learning rate", func(c *Config) { c.CategoryAssignment.Dynamic.LearningRate = 0 }},
		{"base probability of 1", func(c *Config) { c.CategoryAssignment.Dynamic.BaseProbability = 1 }},
		{"zero clusters", func(c *Config) { c.DiversityOrdering.NumClusters = 0 }},
		{"recluster threshold above 1", func(c *Config) { c.DiversityOrdering.ReclusterThreshold = 1.1 }},
	}

	for _, tc := range tests {
		t.Run("rejects "+tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("parses yaml and applies defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
assignmentStrategy: category
maxAnnotationsPerItem: 3
reservationTtl: 10m
categoryAssignment:
  mode: dynamic
  fallback: random
  qualification:
    threshold: 0.8
    minQuestions: 5
  dynamic:
    learningRate: 0.5
    baseProbability: 0.1
    updateInterval: 1m
`), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		require.Equal(t, "category", cfg.AssignmentStrategy)
		require.Equal(t, 3, cfg.MaxAnnotationsPerItem)
		require.Equal(t, 10*time.Minute, cfg.ReservationTTL)
		require.Equal(t, "dynamic", cfg.CategoryAssignment.Mode)
		require.InDelta(t, 0.8, cfg.CategoryAssignment.Qualification.Threshold, 1e-9)
		require.Equal(t, time.Minute, cfg.CategoryAssignment.Dynamic.UpdateInterval)
		// untouched fields pick up defaults
		require.Equal(t, -1, cfg.MaxAnnotationsPerUser)
		require.Equal(t, time.Minute, cfg.SweepInterval)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("maxAnnotationsPerItem: -5\n"), 0o600))

		_, err := LoadConfig(path)
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}
