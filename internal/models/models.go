// Package models defines the core value objects of the shelf/box context system.
package models

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"
)

// EntityType identifies the kind of entity a context describes.
type EntityType string

// The two addressable entity kinds.
const (
	EntityShelf EntityType = "shelf"
	EntityBox   EntityType = "box"
)

// Valid reports whether t is a recognised entity type.
func (t EntityType) Valid() bool {
	return t == EntityShelf || t == EntityBox
}

// BoxType identifies how a box is filled.
type BoxType string

// The three box kinds.
const (
	BoxDrag BoxType = "drag" // web-crawl
	BoxRag  BoxType = "rag"  // document-upload
	BoxBag  BoxType = "bag"  // raw storage
)

// ValidBoxTypes lists the accepted box type values.
var ValidBoxTypes = []BoxType{BoxDrag, BoxRag, BoxBag}

// Valid reports whether t is a recognised box type.
func (t BoxType) Valid() bool {
	for _, v := range ValidBoxTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ValidationError reports a malformed value object. It always fires at
// construction time, before any store or cache is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

var (
	entityNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	versionRe    = regexp.MustCompile(`^(\d+\.){1,2}\d+(-[A-Za-z0-9]+)?$`)
)

// ValidateEntityName checks the shelf/box naming rules.
func ValidateEntityName(name string) error {
	if name == "" {
		return &ValidationError{Field: "entity_name", Reason: "must not be empty"}
	}
	if !entityNameRe.MatchString(name) {
		return &ValidationError{Field: "entity_name", Reason: fmt.Sprintf("%q contains characters outside [A-Za-z0-9_-]", name)}
	}
	return nil
}

// ---------------------------------------------------------------------------
// ConfigurationState
// ---------------------------------------------------------------------------

// ConfigurationState describes the setup/version/content status of one entity.
// Instances are validated at construction and never mutated afterwards.
type ConfigurationState struct {
	IsConfigured     bool       `json:"is_configured"`
	HasContent       bool       `json:"has_content"`
	ConfigVersion    string     `json:"configuration_version"`
	SetupCompletedAt *time.Time `json:"setup_completed_at,omitempty"`
	NeedsMigration   bool       `json:"needs_migration"`
}

// NewConfigurationState constructs a validated ConfigurationState.
// setupAt must be set exactly when configured is true.
func NewConfigurationState(configured, hasContent bool, version string, setupAt *time.Time, needsMigration bool) (ConfigurationState, error) {
	s := ConfigurationState{
		IsConfigured:     configured,
		HasContent:       hasContent,
		ConfigVersion:    version,
		SetupCompletedAt: setupAt,
		NeedsMigration:   needsMigration,
	}
	if err := s.Validate(); err != nil {
		return ConfigurationState{}, err
	}
	return s, nil
}

// DefaultConfigurationState is the state of an entity that has never been set up.
func DefaultConfigurationState() ConfigurationState {
	return ConfigurationState{ConfigVersion: "1.0"}
}

// FallbackConfigurationState is the degraded state used when a persisted
// configuration blob cannot be parsed: unconfigured and flagged for migration,
// so the entity surfaces as "needs re-setup" instead of crashing the command.
func FallbackConfigurationState() ConfigurationState {
	return ConfigurationState{ConfigVersion: "1.0", NeedsMigration: true}
}

// Validate checks the version format and the setup-timestamp pairing.
func (s ConfigurationState) Validate() error {
	if !versionRe.MatchString(s.ConfigVersion) {
		return &ValidationError{Field: "configuration_version", Reason: fmt.Sprintf("%q is not a valid version string", s.ConfigVersion)}
	}
	if s.IsConfigured && s.SetupCompletedAt == nil {
		return &ValidationError{Field: "setup_completed_at", Reason: "must be set when is_configured is true"}
	}
	if !s.IsConfigured && s.SetupCompletedAt != nil {
		return &ValidationError{Field: "setup_completed_at", Reason: "must be unset when is_configured is false"}
	}
	return nil
}

// IsReady reports whether the entity is configured and needs no migration.
func (s ConfigurationState) IsReady() bool {
	return s.IsConfigured && !s.NeedsMigration
}

// NeedsSetup reports whether the entity requires (re-)setup.
func (s ConfigurationState) NeedsSetup() bool {
	return !s.IsConfigured || s.NeedsMigration
}

// Equal reports structural equality, comparing timestamps by instant.
func (s ConfigurationState) Equal(o ConfigurationState) bool {
	if s.IsConfigured != o.IsConfigured ||
		s.HasContent != o.HasContent ||
		s.ConfigVersion != o.ConfigVersion ||
		s.NeedsMigration != o.NeedsMigration {
		return false
	}
	switch {
	case s.SetupCompletedAt == nil && o.SetupCompletedAt == nil:
		return true
	case s.SetupCompletedAt == nil || o.SetupCompletedAt == nil:
		return false
	default:
		return s.SetupCompletedAt.Equal(*o.SetupCompletedAt)
	}
}

// ParseConfigBlob deserialises a persisted configuration blob. An empty blob
// means the entity was never configured. A corrupt or pre-migration blob is
// logged and degrades to FallbackConfigurationState; it never returns an error.
func ParseConfigBlob(blob []byte) ConfigurationState {
	if len(blob) == 0 {
		return DefaultConfigurationState()
	}
	var s ConfigurationState
	if err := json.Unmarshal(blob, &s); err != nil {
		slog.Warn("config blob unparseable, falling back to needs-migration", "err", err)
		return FallbackConfigurationState()
	}
	if err := s.Validate(); err != nil {
		slog.Warn("config blob invalid, falling back to needs-migration", "err", err)
		return FallbackConfigurationState()
	}
	return s
}

// ---------------------------------------------------------------------------
// CommandContext
// ---------------------------------------------------------------------------

// CommandContext is the fully resolved state of one named entity.
// A context is built fresh on every resolution and never mutated; a newer
// resolution supersedes it.
type CommandContext struct {
	EntityName     string             `json:"entity_name"`
	EntityType     EntityType         `json:"entity_type"`
	EntityExists   bool               `json:"entity_exists"`
	IsEmpty        *bool              `json:"is_empty,omitempty"`
	Config         ConfigurationState `json:"configuration_state"`
	LastModified   time.Time          `json:"last_modified"`
	ContentSummary string             `json:"content_summary,omitempty"`
}

// NewCommandContext constructs a validated CommandContext.
// isEmpty must be nil exactly when the entity does not exist.
func NewCommandContext(entityType EntityType, name string, exists bool, isEmpty *bool, cfg ConfigurationState, lastModified time.Time, summary string) (*CommandContext, error) {
	if !entityType.Valid() {
		return nil, &ValidationError{Field: "entity_type", Reason: fmt.Sprintf("unknown entity type %q", entityType)}
	}
	if err := ValidateEntityName(name); err != nil {
		return nil, err
	}
	if !exists && isEmpty != nil {
		return nil, &ValidationError{Field: "is_empty", Reason: "must be unset when the entity does not exist"}
	}
	if exists && isEmpty == nil {
		return nil, &ValidationError{Field: "is_empty", Reason: "must be set when the entity exists"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &CommandContext{
		EntityName:     name,
		EntityType:     entityType,
		EntityExists:   exists,
		IsEmpty:        isEmpty,
		Config:         cfg,
		LastModified:   lastModified,
		ContentSummary: summary,
	}, nil
}

// Equal reports structural equality, comparing timestamps by instant.
func (c *CommandContext) Equal(o *CommandContext) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.EntityName != o.EntityName ||
		c.EntityType != o.EntityType ||
		c.EntityExists != o.EntityExists ||
		c.ContentSummary != o.ContentSummary ||
		!c.Config.Equal(o.Config) ||
		!c.LastModified.Equal(o.LastModified) {
		return false
	}
	switch {
	case c.IsEmpty == nil && o.IsEmpty == nil:
		return true
	case c.IsEmpty == nil || o.IsEmpty == nil:
		return false
	default:
		return *c.IsEmpty == *o.IsEmpty
	}
}
