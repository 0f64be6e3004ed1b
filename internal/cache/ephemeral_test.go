package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/docshelf-dev/docshelf/internal/models"
)

// testContext builds a minimal valid context for cache tests.
func testContext(t *testing.T, name string) *models.CommandContext {
	t.Helper()
	empty := true
	ctx, err := models.NewCommandContext(models.EntityShelf, name, true, &empty,
		models.DefaultConfigurationState(), time.Now().UTC(), "empty")
	if err != nil {
		t.Fatalf("testContext: %v", err)
	}
	return ctx
}

func TestKey_String(t *testing.T) {
	c := qt.New(t)

	c.Assert(NewKey(models.EntityShelf, "docs", "").String(), qt.Equals, "shelf:docs")
	c.Assert(NewKey(models.EntityBox, "api", "docs").String(), qt.Equals, "box:api:docs")
	c.Assert(TypePrefix(models.EntityShelf), qt.Equals, "shelf:")
}

func TestEphemeral_HappyPath(t *testing.T) {
	c := qt.New(t)

	l1 := NewEphemeral()
	k := NewKey(models.EntityShelf, "docs", "")
	want := testContext(t, "docs")

	_, ok := l1.Get(k)
	c.Assert(ok, qt.IsFalse)

	l1.Put(k, want, 300*time.Second)
	got, ok := l1.Get(k)
	c.Assert(ok, qt.IsTrue)
	c.Assert(got.Equal(want), qt.IsTrue)
}

func TestEphemeral_TTLBoundary(t *testing.T) {
	c := qt.New(t)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := t0
	l1 := NewEphemeral()
	l1.now = func() time.Time { return now }

	k := NewKey(models.EntityShelf, "docs", "")
	l1.Put(k, testContext(t, "docs"), 300*time.Second)

	now = t0.Add(299 * time.Second)
	_, ok := l1.Get(k)
	c.Assert(ok, qt.IsTrue, qt.Commentf("entry must still be live at t0+299s"))

	now = t0.Add(301 * time.Second)
	_, ok = l1.Get(k)
	c.Assert(ok, qt.IsFalse, qt.Commentf("entry must be gone at t0+301s"))

	// Expired entries are dropped on read, not just hidden.
	c.Assert(l1.Len(), qt.Equals, 0)
}

func TestEphemeral_Invalidate(t *testing.T) {
	c := qt.New(t)

	l1 := NewEphemeral()
	k := NewKey(models.EntityShelf, "docs", "")
	l1.Put(k, testContext(t, "docs"), time.Minute)

	c.Assert(l1.Invalidate(k), qt.IsTrue)
	c.Assert(l1.Invalidate(k), qt.IsFalse)
	_, ok := l1.Get(k)
	c.Assert(ok, qt.IsFalse)
}

func TestEphemeral_InvalidateType(t *testing.T) {
	c := qt.New(t)

	l1 := NewEphemeral()
	l1.Put(NewKey(models.EntityShelf, "a", ""), testContext(t, "a"), time.Minute)
	l1.Put(NewKey(models.EntityShelf, "b", ""), testContext(t, "b"), time.Minute)
	l1.Put(NewKey(models.EntityBox, "c", ""), testContext(t, "c"), time.Minute)

	c.Assert(l1.InvalidateType(models.EntityShelf), qt.Equals, 2)
	c.Assert(l1.Len(), qt.Equals, 1)

	_, ok := l1.Get(NewKey(models.EntityBox, "c", ""))
	c.Assert(ok, qt.IsTrue)
}

func TestEphemeral_ConcurrentAccess(t *testing.T) {
	c := qt.New(t)

	l1 := NewEphemeral()
	contexts := make([]*models.CommandContext, 4)
	for i := range contexts {
		contexts[i] = testContext(t, fmt.Sprintf("shelf%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := contexts[i%4]
			k := NewKey(models.EntityShelf, ctx.EntityName, "")
			for j := 0; j < 100; j++ {
				l1.Put(k, ctx, time.Minute)
				if got, ok := l1.Get(k); ok && got.EntityName != ctx.EntityName {
					t.Errorf("cross-contaminated read: got %q want %q", got.EntityName, ctx.EntityName)
				}
			}
		}(i)
	}
	wg.Wait()

	c.Assert(l1.Len(), qt.Equals, 4)
}
