package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/docshelf-dev/docshelf/internal/models"
)

// entry is one L1 cache slot.
type entry struct {
	ctx       *models.CommandContext
	createdAt time.Time
	ttl       time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// Ephemeral is the L1 cache: a mutex-guarded in-process map that lives only
// for the duration of one CLI invocation. It avoids repeated L2/store lookups
// when a batch command resolves the same entity more than once.
type Ephemeral struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time
}

// NewEphemeral creates an empty L1 cache.
func NewEphemeral() *Ephemeral {
	return &Ephemeral{
		m:   make(map[string]entry),
		now: time.Now,
	}
}

// Get returns the cached context for k, if present and unexpired.
// Expired entries are removed on the way out.
func (c *Ephemeral) Get(k Key) (*models.CommandContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[k.String()]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.m, k.String())
		return nil, false
	}
	return e.ctx, true
}

// Put stores ctx under k for ttl.
func (c *Ephemeral) Put(k Key, ctx *models.CommandContext, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[k.String()] = entry{ctx: ctx, createdAt: c.now(), ttl: ttl}
}

// Invalidate removes the entry for k, reporting whether one was present.
func (c *Ephemeral) Invalidate(k Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.m[k.String()]
	delete(c.m, k.String())
	return ok
}

// InvalidateType removes every entry of the given entity type and returns
// how many were removed.
func (c *Ephemeral) InvalidateType(entityType models.EntityType) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := TypePrefix(entityType)
	removed := 0
	for key := range c.m {
		if strings.HasPrefix(key, prefix) {
			delete(c.m, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, including any that have
// expired but not yet been dropped.
func (c *Ephemeral) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
