// Package resolver orchestrates entity-context resolution: L1 cache, then L2,
// then the storage backend, populating both tiers on the way back.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/docshelf-dev/docshelf/internal/cache"
	"github.com/docshelf-dev/docshelf/internal/models"
	"github.com/docshelf-dev/docshelf/internal/store"
)

// Backend is the storage collaborator queried on a full cache miss.
// *store.Store implements it.
type Backend interface {
	GetShelfInfo(name string) (store.ShelfInfo, error)
	GetBoxInfo(name, scope string) (store.BoxInfo, error)
}

// Resolver answers "what is the state of this entity" with a two-tier cache
// in front of the backend. Instances are safe for concurrent use.
type Resolver struct {
	backend  Backend
	l1       *cache.Ephemeral
	l2       *cache.Durable
	coalesce bool
	group    singleflight.Group
}

// New creates a Resolver over the given backend and cache tiers.
// When coalesce is true, concurrent misses for the same key share one
// backend query; when false, they race benignly and both write the caches.
func New(backend Backend, l1 *cache.Ephemeral, l2 *cache.Durable, coalesce bool) *Resolver {
	return &Resolver{backend: backend, l1: l1, l2: l2, coalesce: coalesce}
}

// Resolve returns the current context for the named entity.
// Inputs are validated before any cache or store is touched; backend and
// cache-store failures propagate as *store.StorageError.
func (r *Resolver) Resolve(_ context.Context, entityType models.EntityType, name, scope string) (*models.CommandContext, error) {
	if err := validateInputs(entityType, name, scope); err != nil {
		return nil, err
	}

	k := cache.NewKey(entityType, name, scope)
	if got, ok := r.l1.Get(k); ok {
		return got, nil
	}

	if !r.coalesce {
		return r.resolveMiss(k)
	}
	v, err, _ := r.group.Do(k.String(), func() (any, error) {
		return r.resolveMiss(k)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.CommandContext), nil
}

// resolveMiss handles the L1-miss path: L2, then backend, then cache fill.
func (r *Resolver) resolveMiss(k cache.Key) (*models.CommandContext, error) {
	if got, ok, err := r.l2.Get(k); err != nil {
		return nil, err
	} else if ok {
		r.l1.Put(k, got, r.l2.TTL())
		return got, nil
	}

	built, err := r.query(k)
	if err != nil {
		return nil, err
	}

	// L2 first so a crash between the writes can only lose the cheaper tier.
	if err := r.l2.Put(k, built, 0); err != nil {
		return nil, err
	}
	r.l1.Put(k, built, r.l2.TTL())

	if n, ran, err := r.l2.MaybeSweep(); err != nil {
		slog.Warn("cache sweep failed", "err", err)
	} else if ran && n > 0 {
		slog.Debug("swept expired cache rows", "count", n)
	}

	return built, nil
}

// query asks the backend for raw entity state and builds a fresh context.
func (r *Resolver) query(k cache.Key) (*models.CommandContext, error) {
	if k.EntityType == models.EntityShelf {
		info, err := r.backend.GetShelfInfo(k.Name)
		if err != nil {
			return nil, err
		}
		if !info.Exists {
			return missingContext(k)
		}
		empty := info.BoxCount == 0
		return models.NewCommandContext(
			models.EntityShelf, k.Name, true, &empty,
			models.ParseConfigBlob(info.ConfigBlob),
			info.LastModified,
			shelfSummary(info.BoxCount),
		)
	}

	info, err := r.backend.GetBoxInfo(k.Name, k.Scope)
	if err != nil {
		return nil, err
	}
	if !info.Exists {
		return missingContext(k)
	}
	empty := info.ContentCount == 0
	return models.NewCommandContext(
		models.EntityBox, k.Name, true, &empty,
		models.ParseConfigBlob(info.ConfigBlob),
		info.LastModified,
		boxSummary(info.BoxType, info.ContentCount),
	)
}

// Invalidate removes the entry for one entity from both tiers, reporting
// whether either tier held it. Clearing both tiers keeps a later resolve
// from serving the pre-invalidation value out of the surviving tier.
func (r *Resolver) Invalidate(entityType models.EntityType, name, scope string) (bool, error) {
	if err := validateInputs(entityType, name, scope); err != nil {
		return false, err
	}
	k := cache.NewKey(entityType, name, scope)
	l1Removed := r.l1.Invalidate(k)
	l2Removed, err := r.l2.Invalidate(k)
	if err != nil {
		return false, err
	}
	return l1Removed || l2Removed, nil
}

// InvalidateType removes every cached entry of the given entity type from
// both tiers and returns how many durable rows were removed.
func (r *Resolver) InvalidateType(entityType models.EntityType) (int, error) {
	if !entityType.Valid() {
		return 0, &models.ValidationError{Field: "entity_type", Reason: fmt.Sprintf("unknown entity type %q", entityType)}
	}
	r.l1.InvalidateType(entityType)
	return r.l2.InvalidateType(entityType)
}

// CacheStats returns hit/miss accounting for the durable tier.
func (r *Resolver) CacheStats() (cache.Stats, error) {
	return r.l2.Stats()
}

// SweepExpired force-runs an expired-row sweep on the durable tier.
func (r *Resolver) SweepExpired() (int, error) {
	return r.l2.SweepExpired()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func validateInputs(entityType models.EntityType, name, scope string) error {
	if !entityType.Valid() {
		return &models.ValidationError{Field: "entity_type", Reason: fmt.Sprintf("unknown entity type %q", entityType)}
	}
	if err := models.ValidateEntityName(name); err != nil {
		return err
	}
	if scope != "" {
		if entityType != models.EntityBox {
			return &models.ValidationError{Field: "scope", Reason: "only box lookups take a shelf scope"}
		}
		if err := models.ValidateEntityName(scope); err != nil {
			return &models.ValidationError{Field: "scope", Reason: err.Error()}
		}
	}
	return nil
}

// missingContext is the context built for an entity the backend cannot find.
func missingContext(k cache.Key) (*models.CommandContext, error) {
	return models.NewCommandContext(
		k.EntityType, k.Name, false, nil,
		models.DefaultConfigurationState(), time.Time{}, "",
	)
}

func shelfSummary(boxes int) string {
	switch boxes {
	case 0:
		return "empty"
	case 1:
		return "1 box"
	default:
		return fmt.Sprintf("%d boxes", boxes)
	}
}

func boxSummary(boxType models.BoxType, count int) string {
	if count == 0 {
		return "empty"
	}
	noun := "items"
	switch boxType {
	case models.BoxDrag:
		noun = "pages"
	case models.BoxRag:
		noun = "documents"
	case models.BoxBag:
		noun = "files"
	}
	if count == 1 {
		noun = noun[:len(noun)-1]
	}
	return fmt.Sprintf("%d %s", count, noun)
}
