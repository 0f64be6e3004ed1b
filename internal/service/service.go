// Package service wires together configuration, the SQLite store, the two
// cache tiers, and the resolver behind one handle used by the CLI and the
// MCP server.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docshelf-dev/docshelf/internal/cache"
	"github.com/docshelf-dev/docshelf/internal/config"
	"github.com/docshelf-dev/docshelf/internal/models"
	"github.com/docshelf-dev/docshelf/internal/resolver"
	"github.com/docshelf-dev/docshelf/internal/status"
	"github.com/docshelf-dev/docshelf/internal/store"
)

// configVersion is written into an entity's config blob when setup completes.
const configVersion = "1.0"

// Service orchestrates all shelf/box context operations.
type Service struct {
	ShelfHome string
	Config    *config.ShelfConfig

	store    *store.Store
	resolver *resolver.Resolver
}

// New initialises a Service rooted at shelfHome.
// If shelfHome is empty it is resolved via config.GetShelfHome.
func New(shelfHome string) (*Service, error) {
	if shelfHome == "" {
		shelfHome = config.GetShelfHome()
	}

	if err := os.MkdirAll(shelfHome, 0o755); err != nil {
		return nil, fmt.Errorf("service.New: create shelf home: %w", err)
	}

	cfg, err := config.Load(filepath.Join(shelfHome, "config.yaml"))
	if err != nil {
		return nil, fmt.Errorf("service.New: load config: %w", err)
	}

	st, err := store.Open(filepath.Join(shelfHome, "shelf.db"))
	if err != nil {
		return nil, fmt.Errorf("service.New: open store: %w", err)
	}

	l2 := cache.NewDurable(st, cfg.Cache.TTL(), cfg.Cache.SweepInterval())
	res := resolver.New(st, cache.NewEphemeral(), l2, cfg.Cache.Coalesce)

	return &Service{
		ShelfHome: shelfHome,
		Config:    cfg,
		store:     st,
		resolver:  res,
	}, nil
}

// Close releases all resources held by the service.
func (s *Service) Close() error {
	return s.store.Close()
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// EntityStatus bundles a resolved context with its classification and the
// suggested next steps.
type EntityStatus struct {
	Context *models.CommandContext
	Status  status.Status
	BoxType models.BoxType
	Actions []status.Action
}

// ShelfStatus resolves and classifies the named shelf.
func (s *Service) ShelfStatus(ctx context.Context, name string) (*EntityStatus, error) {
	resolved, err := s.resolver.Resolve(ctx, models.EntityShelf, name, "")
	if err != nil {
		return nil, err
	}
	st := status.Classify(resolved)
	return &EntityStatus{
		Context: resolved,
		Status:  st,
		Actions: status.SuggestedActions(resolved, st, ""),
	}, nil
}

// BoxStatus resolves and classifies the named box. The box type, needed to
// tailor actions for empty boxes, is a point lookup outside the cached path.
func (s *Service) BoxStatus(ctx context.Context, name, scope string) (*EntityStatus, error) {
	resolved, err := s.resolver.Resolve(ctx, models.EntityBox, name, scope)
	if err != nil {
		return nil, err
	}

	var boxType models.BoxType
	if resolved.EntityExists {
		info, err := s.store.GetBoxInfo(name, scope)
		if err != nil {
			return nil, err
		}
		boxType = info.BoxType
	}

	st := status.Classify(resolved)
	actions := status.SuggestedActions(resolved, st, boxType)
	if scope != "" {
		for i := range actions {
			actions[i].Command = strings.ReplaceAll(actions[i].Command, "<shelf>", scope)
		}
	}

	return &EntityStatus{
		Context: resolved,
		Status:  st,
		BoxType: boxType,
		Actions: actions,
	}, nil
}

// ---------------------------------------------------------------------------
// Entity writes
// ---------------------------------------------------------------------------

// CreateShelf creates a new, unconfigured shelf and drops any cached context
// for its name.
func (s *Service) CreateShelf(name string) error {
	if err := models.ValidateEntityName(name); err != nil {
		return err
	}
	if _, err := s.store.CreateShelf(name); err != nil {
		return err
	}
	_, err := s.resolver.Invalidate(models.EntityShelf, name, "")
	return err
}

// CreateBox creates a new, unconfigured box under shelf. Both the box's and
// the owning shelf's cached contexts are dropped, since the shelf's box
// count just changed.
func (s *Service) CreateBox(shelf, name string, boxType models.BoxType) error {
	if err := models.ValidateEntityName(shelf); err != nil {
		return err
	}
	if err := models.ValidateEntityName(name); err != nil {
		return err
	}
	if !boxType.Valid() {
		return &models.ValidationError{Field: "box_type", Reason: fmt.Sprintf("unknown box type %q", boxType)}
	}
	if _, err := s.store.CreateBox(shelf, name, boxType); err != nil {
		return err
	}
	if err := s.invalidateBox(name, shelf); err != nil {
		return err
	}
	_, err := s.resolver.Invalidate(models.EntityShelf, shelf, "")
	return err
}

// invalidateBox drops the box's cached context under its scoped key and,
// because scopeless lookups match the box on any shelf, under the scopeless
// key as well.
func (s *Service) invalidateBox(name, scope string) error {
	if _, err := s.resolver.Invalidate(models.EntityBox, name, scope); err != nil {
		return err
	}
	if scope != "" {
		if _, err := s.resolver.Invalidate(models.EntityBox, name, ""); err != nil {
			return err
		}
	}
	return nil
}

// SetupShelf marks the shelf as configured at the current config version.
func (s *Service) SetupShelf(name string) error {
	if err := models.ValidateEntityName(name); err != nil {
		return err
	}
	if err := s.store.MarkShelfConfigured(name, configVersion); err != nil {
		return err
	}
	_, err := s.resolver.Invalidate(models.EntityShelf, name, "")
	return err
}

// SetBoxContent records the box's item count after an ingest run and drops
// the now stale cached contexts for the box and its shelf.
func (s *Service) SetBoxContent(name, scope string, count int) error {
	if err := models.ValidateEntityName(name); err != nil {
		return err
	}
	if count < 0 {
		return &models.ValidationError{Field: "content_count", Reason: "must be non-negative"}
	}
	if err := s.store.SetBoxContentCount(name, scope, count); err != nil {
		return err
	}
	if err := s.invalidateBox(name, scope); err != nil {
		return err
	}
	if scope != "" {
		if _, err := s.resolver.Invalidate(models.EntityShelf, scope, ""); err != nil {
			return err
		}
	}
	return nil
}

// SetupBox marks the box as configured at the current config version.
func (s *Service) SetupBox(name, scope string) error {
	if err := models.ValidateEntityName(name); err != nil {
		return err
	}
	if err := s.store.MarkBoxConfigured(name, scope, configVersion); err != nil {
		return err
	}
	return s.invalidateBox(name, scope)
}

// DeleteShelf removes the shelf and all of its boxes, reporting whether the
// shelf existed. Cache keys for a shelf's boxes are not enumerable by shelf,
// so the whole box namespace is dropped along with the shelf's own entry.
func (s *Service) DeleteShelf(name string) (bool, error) {
	if err := models.ValidateEntityName(name); err != nil {
		return false, err
	}
	deleted, err := s.store.DeleteShelf(name)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}
	if _, err := s.resolver.Invalidate(models.EntityShelf, name, ""); err != nil {
		return false, err
	}
	if _, err := s.resolver.InvalidateType(models.EntityBox); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteBox removes a box, reporting whether it existed.
func (s *Service) DeleteBox(name, scope string) (bool, error) {
	if err := models.ValidateEntityName(name); err != nil {
		return false, err
	}
	deleted, err := s.store.DeleteBox(name, scope)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}
	if err := s.invalidateBox(name, scope); err != nil {
		return false, err
	}
	if scope != "" {
		if _, err := s.resolver.Invalidate(models.EntityShelf, scope, ""); err != nil {
			return false, err
		}
	}
	return true, nil
}

// ---------------------------------------------------------------------------
// Cache management
// ---------------------------------------------------------------------------

// CacheStats returns hit/miss accounting for the durable cache tier.
func (s *Service) CacheStats() (cache.Stats, error) {
	return s.resolver.CacheStats()
}

// SweepCache force-runs an expired-row sweep and returns the removed count.
func (s *Service) SweepCache() (int, error) {
	return s.resolver.SweepExpired()
}

// InvalidateEntity drops the cached context for one entity from both tiers.
func (s *Service) InvalidateEntity(entityType models.EntityType, name, scope string) (bool, error) {
	return s.resolver.Invalidate(entityType, name, scope)
}

// InvalidateType drops every cached context of the given entity type.
func (s *Service) InvalidateType(entityType models.EntityType) (int, error) {
	return s.resolver.InvalidateType(entityType)
}
