// Package config handles configuration loading and shelf home resolution.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Config types
// ---------------------------------------------------------------------------

// CacheConfig holds settings for the context cache tiers.
type CacheConfig struct {
	TTLSeconds           int  `yaml:"ttl_seconds"`            // entry lifetime, both tiers
	SweepIntervalSeconds int  `yaml:"sweep_interval_seconds"` // min wall-clock gap between opportunistic sweeps
	Coalesce             bool `yaml:"coalesce"`               // share one backend query between concurrent misses
}

// TTL returns the entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// SweepInterval returns the sweep throttle as a duration.
func (c CacheConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// ShelfConfig is the root per-home configuration.
type ShelfConfig struct {
	Cache CacheConfig `yaml:"cache"`
}

// Default returns a ShelfConfig populated with sensible defaults.
func Default() *ShelfConfig {
	return &ShelfConfig{
		Cache: CacheConfig{
			TTLSeconds:           300,
			SweepIntervalSeconds: 60,
			Coalesce:             true,
		},
	}
}

// Load reads a per-home config.yaml from path.
// If the file does not exist it returns Default() with no error.
// Missing keys retain their default values.
func Load(path string) (*ShelfConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	// Unmarshal into a plain map so we can apply only the keys that are present.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if ca, ok := raw["cache"].(map[string]any); ok {
		if v, ok := ca["ttl_seconds"].(int); ok && v > 0 {
			cfg.Cache.TTLSeconds = v
		}
		if v, ok := ca["sweep_interval_seconds"].(int); ok && v > 0 {
			cfg.Cache.SweepIntervalSeconds = v
		}
		if v, ok := ca["coalesce"].(bool); ok {
			cfg.Cache.Coalesce = v
		}
	}

	return cfg, nil
}

// ---------------------------------------------------------------------------
// Shelf home resolution
// ---------------------------------------------------------------------------

// globalConfigPath returns the path to the global docshelf config file.
// This file stores only shelf_home (and future global settings).
func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docshelf", "config.yaml"), nil
}

// normalizePath expands ~ and makes the path absolute.
func normalizePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(os.ExpandEnv(path))
}

// ResolveShelfHome returns the shelf home path and the source of the
// resolution. Priority: SHELF_HOME env → persisted global config → ~/.docshelf
// source is one of "env", "config", or "default".
func ResolveShelfHome() (path, source string) {
	if env := os.Getenv("SHELF_HOME"); env != "" {
		p, err := normalizePath(env)
		if err == nil {
			return p, "env"
		}
	}

	if persisted, ok, _ := GetPersistedShelfHome(); ok {
		return persisted, "config"
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".docshelf"), "default"
}

// GetShelfHome returns the resolved shelf home path.
func GetShelfHome() string {
	path, _ := ResolveShelfHome()
	return path
}

// GetPersistedShelfHome reads shelf_home from the global config.
// Returns ("", false, nil) if not set.
func GetPersistedShelfHome() (string, bool, error) {
	cfgPath, err := globalConfigPath()
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(cfgPath)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return "", false, nil
	}

	val, _ := raw["shelf_home"].(string)
	val = strings.TrimSpace(val)
	if val == "" {
		return "", false, nil
	}

	p, err := normalizePath(val)
	if err != nil {
		return "", false, err
	}
	return p, true, nil
}

// SetPersistedShelfHome normalizes path and persists it in the global config.
// Returns the normalized path.
func SetPersistedShelfHome(path string) (string, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return "", err
	}

	cfgPath, err := globalConfigPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", err
	}

	// Read existing global config, preserving any other keys.
	var raw map[string]any
	if data, err := os.ReadFile(cfgPath); err == nil {
		_ = yaml.Unmarshal(data, &raw)
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	raw["shelf_home"] = normalized

	out, err := yaml.Marshal(raw)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(cfgPath, out, 0o600); err != nil {
		return "", err
	}
	return normalized, nil
}

// ClearPersistedShelfHome removes shelf_home from the global config.
// Returns true if the key was present and removed.
// If the file becomes empty after removal it is deleted.
func ClearPersistedShelfHome() (bool, error) {
	cfgPath, err := globalConfigPath()
	if err != nil {
		return false, err
	}

	data, err := os.ReadFile(cfgPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return false, nil
	}

	if _, ok := raw["shelf_home"]; !ok {
		return false, nil
	}
	delete(raw, "shelf_home")

	if len(raw) == 0 {
		_ = os.Remove(cfgPath)
		return true, nil
	}

	out, err := yaml.Marshal(raw)
	if err != nil {
		return false, err
	}
	return true, os.WriteFile(cfgPath, out, 0o600)
}
