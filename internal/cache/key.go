// Package cache implements the two-tier context cache: a process-local
// ephemeral tier (L1) and a durable tier (L2) persisted alongside
// application data.
package cache

import (
	"strings"

	"github.com/docshelf-dev/docshelf/internal/models"
)

// DefaultTTL is the cache entry lifetime used when no override is configured.
const DefaultTTL = 300 // seconds

// Key addresses one cached entity context. Scope is the owning shelf for
// box keys and empty for shelf keys.
type Key struct {
	EntityType models.EntityType
	Name       string
	Scope      string
}

// NewKey builds a cache key for the given entity coordinates.
func NewKey(entityType models.EntityType, name, scope string) Key {
	return Key{EntityType: entityType, Name: name, Scope: scope}
}

// String renders the key as "type:name" or "type:name:scope".
func (k Key) String() string {
	parts := []string{string(k.EntityType), k.Name}
	if k.Scope != "" {
		parts = append(parts, k.Scope)
	}
	return strings.Join(parts, ":")
}

// TypePrefix returns the prefix matching every key of the given entity type.
func TypePrefix(entityType models.EntityType) string {
	return string(entityType) + ":"
}
