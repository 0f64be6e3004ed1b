package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/docshelf-dev/docshelf/internal/models"
)

// RowStore is the durable row surface the L2 cache persists through.
// *store.Store implements it; tests substitute an in-memory version.
type RowStore interface {
	CacheGet(key string, now time.Time) ([]byte, bool, error)
	CachePut(key string, payload []byte, createdAt, expiresAt time.Time) error
	CacheDelete(key string) (bool, error)
	CacheDeletePrefix(prefix string) (int, error)
	CacheDeleteExpired(now time.Time) (int, error)
	CacheCount() (int, error)
}

// Stats is a snapshot of L2 hit/miss accounting.
type Stats struct {
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	HitRate      float64 `json:"hit_rate"`
	TotalEntries int     `json:"total_entries"`
}

// Durable is the L2 cache: rows in the application database that survive
// across CLI invocations. This is the tier that matters for call-to-call
// latency, since L1 dies with the process.
type Durable struct {
	rows    RowStore
	ttl     time.Duration
	now     func() time.Time
	sweeper *rate.Limiter

	mu     sync.Mutex
	hits   int64
	misses int64
}

// NewDurable creates an L2 cache over rows. Non-positive ttl and
// sweepInterval fall back to the 300s/60s defaults.
func NewDurable(rows RowStore, ttl, sweepInterval time.Duration) *Durable {
	if ttl <= 0 {
		ttl = DefaultTTL * time.Second
	}
	if sweepInterval <= 0 {
		sweepInterval = 60 * time.Second
	}
	return &Durable{
		rows:    rows,
		ttl:     ttl,
		now:     time.Now,
		sweeper: rate.NewLimiter(rate.Every(sweepInterval), 1),
	}
}

// TTL returns the entry lifetime this cache writes with.
func (c *Durable) TTL() time.Duration { return c.ttl }

// Get returns the cached context for k if a row exists and has not expired.
// An unparseable payload is dropped and treated as a miss; a payload whose
// configuration portion violates invariants degrades to the needs-migration
// fallback state instead of failing the lookup.
func (c *Durable) Get(k Key) (*models.CommandContext, bool, error) {
	payload, ok, err := c.rows.CacheGet(k.String(), c.now())
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", k, err)
	}
	if !ok {
		c.record(false)
		return nil, false, nil
	}

	var ctx models.CommandContext
	if err := json.Unmarshal(payload, &ctx); err != nil {
		slog.Warn("dropping unparseable cache row", "key", k.String(), "err", err)
		_, _ = c.rows.CacheDelete(k.String())
		c.record(false)
		return nil, false, nil
	}
	if err := ctx.Config.Validate(); err != nil {
		slog.Warn("cached config invalid, degrading to needs-migration", "key", k.String(), "err", err)
		ctx.Config = models.FallbackConfigurationState()
	}

	c.record(true)
	return &ctx, true, nil
}

// Put upserts the row for k, computing expires_at from the given ttl
// (or the cache default when ttl is non-positive).
func (c *Durable) Put(k Key, ctx *models.CommandContext, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	payload, err := json.Marshal(ctx)
	if err != nil {
		return fmt.Errorf("cache put %s: marshal: %w", k, err)
	}
	now := c.now()
	if err := c.rows.CachePut(k.String(), payload, now, now.Add(ttl)); err != nil {
		return fmt.Errorf("cache put %s: %w", k, err)
	}
	return nil
}

// Invalidate removes the row for k, reporting whether one existed.
func (c *Durable) Invalidate(k Key) (bool, error) {
	ok, err := c.rows.CacheDelete(k.String())
	if err != nil {
		return false, fmt.Errorf("cache invalidate %s: %w", k, err)
	}
	return ok, nil
}

// InvalidateType removes every row of the given entity type and returns how
// many were removed.
func (c *Durable) InvalidateType(entityType models.EntityType) (int, error) {
	n, err := c.rows.CacheDeletePrefix(TypePrefix(entityType))
	if err != nil {
		return 0, fmt.Errorf("cache invalidate %s*: %w", entityType, err)
	}
	return n, nil
}

// SweepExpired deletes every row already past expiry and returns the count.
func (c *Durable) SweepExpired() (int, error) {
	n, err := c.rows.CacheDeleteExpired(c.now())
	if err != nil {
		return 0, fmt.Errorf("cache sweep: %w", err)
	}
	return n, nil
}

// MaybeSweep runs SweepExpired at most once per sweep interval of wall-clock
// time; other calls are no-ops. It is called opportunistically on the write
// path so expired rows do not pile up without a dedicated janitor.
func (c *Durable) MaybeSweep() (int, bool, error) {
	if !c.sweeper.Allow() {
		return 0, false, nil
	}
	n, err := c.SweepExpired()
	return n, true, err
}

// Stats returns hit/miss accounting plus the current row count.
// Counters are per-process; the row count reflects the durable table.
func (c *Durable) Stats() (Stats, error) {
	total, err := c.rows.CacheCount()
	if err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}

	c.mu.Lock()
	hits, misses := c.hits, c.misses
	c.mu.Unlock()

	s := Stats{Hits: hits, Misses: misses, TotalEntries: total}
	if lookups := hits + misses; lookups > 0 {
		s.HitRate = float64(hits) / float64(lookups)
	}
	return s, nil
}

func (c *Durable) record(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}
