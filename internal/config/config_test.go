package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/docshelf-dev/docshelf/internal/config"
)

func TestDefault_HappyPath(t *testing.T) {
	c := qt.New(t)
	cfg := config.Default()
	c.Assert(cfg, qt.IsNotNil)
	c.Assert(cfg.Cache.TTLSeconds, qt.Equals, 300)
	c.Assert(cfg.Cache.SweepIntervalSeconds, qt.Equals, 60)
	c.Assert(cfg.Cache.Coalesce, qt.IsTrue)
	c.Assert(cfg.Cache.TTL(), qt.Equals, 300*time.Second)
	c.Assert(cfg.Cache.SweepInterval(), qt.Equals, time.Minute)
}

func TestLoad_HappyPath(t *testing.T) {
	c := qt.New(t)

	c.Run("non-existent file returns defaults without error", func(c *qt.C) {
		cfg, err := config.Load("/nonexistent/config.yaml")
		c.Assert(err, qt.IsNil)
		c.Assert(cfg, qt.IsNotNil)
		c.Assert(cfg.Cache.TTLSeconds, qt.Equals, 300)
	})

	tests := []struct {
		name          string
		yaml          string
		wantTTL       int
		wantSweep     int
		wantCoalesce  bool
	}{
		{
			name:         "full cache section overrides all fields",
			yaml:         "cache:\n  ttl_seconds: 120\n  sweep_interval_seconds: 30\n  coalesce: false\n",
			wantTTL:      120,
			wantSweep:    30,
			wantCoalesce: false,
		},
		{
			name:         "partial section keeps other defaults",
			yaml:         "cache:\n  ttl_seconds: 600\n",
			wantTTL:      600,
			wantSweep:    60,
			wantCoalesce: true,
		},
		{
			name:         "non-positive values are ignored",
			yaml:         "cache:\n  ttl_seconds: -5\n  sweep_interval_seconds: 0\n",
			wantTTL:      300,
			wantSweep:    60,
			wantCoalesce: true,
		},
		{
			name:         "unrelated keys are ignored",
			yaml:         "crawler:\n  depth: 3\n",
			wantTTL:      300,
			wantSweep:    60,
			wantCoalesce: true,
		},
	}

	for _, tc := range tests {
		c.Run(tc.name, func(c *qt.C) {
			path := filepath.Join(c.TB.TempDir(), "config.yaml")
			err := os.WriteFile(path, []byte(tc.yaml), 0o600)
			c.Assert(err, qt.IsNil)

			cfg, err := config.Load(path)
			c.Assert(err, qt.IsNil)
			c.Assert(cfg.Cache.TTLSeconds, qt.Equals, tc.wantTTL)
			c.Assert(cfg.Cache.SweepIntervalSeconds, qt.Equals, tc.wantSweep)
			c.Assert(cfg.Cache.Coalesce, qt.Equals, tc.wantCoalesce)
		})
	}
}

func TestLoad_FailurePath(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte("cache: [not a map"), 0o600)
	c.Assert(err, qt.IsNil)

	_, err = config.Load(path)
	c.Assert(err, qt.IsNotNil)
}
