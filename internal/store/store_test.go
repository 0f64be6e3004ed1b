package store_test

import (
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/docshelf-dev/docshelf/internal/models"
	"github.com/docshelf-dev/docshelf/internal/store"
)

// openTestStore opens a fresh SQLite database in a temp directory and
// registers t.Cleanup to close it.
func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "shelf.db"))
	if err != nil {
		t.Fatalf("openTestStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// ---------------------------------------------------------------------------
// Open
// ---------------------------------------------------------------------------

func TestOpen_HappyPath(t *testing.T) {
	c := qt.New(t)
	s := openTestStore(t)
	c.Assert(s, qt.IsNotNil)
}

// ---------------------------------------------------------------------------
// Shelves
// ---------------------------------------------------------------------------

func TestCreateShelf_HappyPath(t *testing.T) {
	c := qt.New(t)
	s := openTestStore(t)

	id, err := s.CreateShelf("docs")
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Not(qt.Equals), "")

	info, err := s.GetShelfInfo("docs")
	c.Assert(err, qt.IsNil)
	c.Assert(info.Exists, qt.IsTrue)
	c.Assert(info.BoxCount, qt.Equals, 0)
	c.Assert(info.ConfigBlob, qt.IsNil)
	c.Assert(info.LastModified.IsZero(), qt.IsFalse)
}

func TestCreateShelf_FailurePath(t *testing.T) {
	c := qt.New(t)
	s := openTestStore(t)

	_, err := s.CreateShelf("docs")
	c.Assert(err, qt.IsNil)

	_, err = s.CreateShelf("docs")
	c.Assert(err, qt.ErrorIs, store.ErrExists)
	c.Assert(err, qt.ErrorAs, new(*store.StorageError))
}

func TestGetShelfInfo_Missing(t *testing.T) {
	c := qt.New(t)
	s := openTestStore(t)

	info, err := s.GetShelfInfo("ghost")
	c.Assert(err, qt.IsNil)
	c.Assert(info.Exists, qt.IsFalse)
}

func TestMarkShelfConfigured_HappyPath(t *testing.T) {
	c := qt.New(t)
	s := openTestStore(t)

	_, err := s.CreateShelf("docs")
	c.Assert(err, qt.IsNil)
	c.Assert(s.MarkShelfConfigured("docs", "1.2.0"), qt.IsNil)

	info, err := s.GetShelfInfo("docs")
	c.Assert(err, qt.IsNil)

	cfg := models.ParseConfigBlob(info.ConfigBlob)
	c.Assert(cfg.IsConfigured, qt.IsTrue)
	c.Assert(cfg.ConfigVersion, qt.Equals, "1.2.0")
	c.Assert(cfg.SetupCompletedAt, qt.IsNotNil)
	c.Assert(cfg.HasContent, qt.IsFalse)
}

func TestMarkShelfConfigured_FailurePath(t *testing.T) {
	c := qt.New(t)
	s := openTestStore(t)

	err := s.MarkShelfConfigured("ghost", "1.0")
	c.Assert(err, qt.ErrorIs, store.ErrNotFound)
}

func TestDeleteShelf(t *testing.T) {
	c := qt.New(t)
	s := openTestStore(t)

	_, err := s.CreateShelf("docs")
	c.Assert(err, qt.IsNil)
	_, err = s.CreateBox("docs", "api", models.BoxRag)
	c.Assert(err, qt.IsNil)

	ok, err := s.DeleteShelf("docs")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	info, err := s.GetBoxInfo("api", "docs")
	c.Assert(err, qt.IsNil)
	c.Assert(info.Exists, qt.IsFalse, qt.Commentf("boxes must be removed with their shelf"))

	ok, err = s.DeleteShelf("docs")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
}

// ---------------------------------------------------------------------------
// Boxes
// ---------------------------------------------------------------------------

func TestCreateBox_HappyPath(t *testing.T) {
	c := qt.New(t)
	s := openTestStore(t)

	_, err := s.CreateShelf("docs")
	c.Assert(err, qt.IsNil)

	id, err := s.CreateBox("docs", "api", models.BoxDrag)
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Not(qt.Equals), "")

	info, err := s.GetBoxInfo("api", "docs")
	c.Assert(err, qt.IsNil)
	c.Assert(info.Exists, qt.IsTrue)
	c.Assert(info.BoxType, qt.Equals, models.BoxDrag)
	c.Assert(info.ContentCount, qt.Equals, 0)

	shelfInfo, err := s.GetShelfInfo("docs")
	c.Assert(err, qt.IsNil)
	c.Assert(shelfInfo.BoxCount, qt.Equals, 1)
}

func TestCreateBox_FailurePath(t *testing.T) {
	c := qt.New(t)
	s := openTestStore(t)

	c.Run("missing shelf", func(c *qt.C) {
		_, err := s.CreateBox("ghost", "api", models.BoxRag)
		c.Assert(err, qt.ErrorIs, store.ErrNotFound)
	})

	c.Run("duplicate box name in the same shelf", func(c *qt.C) {
		_, err := s.CreateShelf("docs")
		c.Assert(err, qt.IsNil)
		_, err = s.CreateBox("docs", "api", models.BoxRag)
		c.Assert(err, qt.IsNil)
		_, err = s.CreateBox("docs", "api", models.BoxBag)
		c.Assert(err, qt.ErrorIs, store.ErrExists)
	})
}

func TestGetBoxInfo_ScopeFiltering(t *testing.T) {
	c := qt.New(t)
	s := openTestStore(t)

	_, err := s.CreateShelf("alpha")
	c.Assert(err, qt.IsNil)
	_, err = s.CreateShelf("beta")
	c.Assert(err, qt.IsNil)
	_, err = s.CreateBox("alpha", "api", models.BoxDrag)
	c.Assert(err, qt.IsNil)
	_, err = s.CreateBox("beta", "api", models.BoxRag)
	c.Assert(err, qt.IsNil)

	info, err := s.GetBoxInfo("api", "beta")
	c.Assert(err, qt.IsNil)
	c.Assert(info.BoxType, qt.Equals, models.BoxRag)

	info, err = s.GetBoxInfo("api", "")
	c.Assert(err, qt.IsNil)
	c.Assert(info.Exists, qt.IsTrue, qt.Commentf("empty scope matches any shelf"))

	info, err = s.GetBoxInfo("api", "gamma")
	c.Assert(err, qt.IsNil)
	c.Assert(info.Exists, qt.IsFalse)
}

func TestSetBoxContentCount(t *testing.T) {
	c := qt.New(t)
	s := openTestStore(t)

	_, err := s.CreateShelf("docs")
	c.Assert(err, qt.IsNil)
	_, err = s.CreateBox("docs", "api", models.BoxRag)
	c.Assert(err, qt.IsNil)
	c.Assert(s.MarkBoxConfigured("api", "docs", "1.0"), qt.IsNil)

	c.Assert(s.SetBoxContentCount("api", "docs", 12), qt.IsNil)

	info, err := s.GetBoxInfo("api", "docs")
	c.Assert(err, qt.IsNil)
	c.Assert(info.ContentCount, qt.Equals, 12)

	cfg := models.ParseConfigBlob(info.ConfigBlob)
	c.Assert(cfg.HasContent, qt.IsTrue)
	c.Assert(cfg.IsConfigured, qt.IsTrue, qt.Commentf("configured state must survive content updates"))
}

// ---------------------------------------------------------------------------
// Cache rows
// ---------------------------------------------------------------------------

func TestCacheRows_HappyPath(t *testing.T) {
	c := qt.New(t)
	s := openTestStore(t)

	now := time.Now().UTC()
	c.Assert(s.CachePut("shelf:docs", []byte(`{"x":1}`), now, now.Add(time.Hour)), qt.IsNil)

	payload, ok, err := s.CacheGet("shelf:docs", now)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	c.Assert(string(payload), qt.Equals, `{"x":1}`)

	// Upsert overwrites the existing row.
	c.Assert(s.CachePut("shelf:docs", []byte(`{"x":2}`), now, now.Add(time.Hour)), qt.IsNil)
	payload, ok, err = s.CacheGet("shelf:docs", now)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	c.Assert(string(payload), qt.Equals, `{"x":2}`)

	n, err := s.CacheCount()
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 1)
}

func TestCacheRows_ExpiryFiltering(t *testing.T) {
	c := qt.New(t)
	s := openTestStore(t)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Assert(s.CachePut("shelf:docs", []byte(`{}`), t0, t0.Add(300*time.Second)), qt.IsNil)

	_, ok, err := s.CacheGet("shelf:docs", t0.Add(299*time.Second))
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	_, ok, err = s.CacheGet("shelf:docs", t0.Add(301*time.Second))
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse, qt.Commentf("expired rows are filtered, not eagerly deleted"))

	n, err := s.CacheCount()
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 1, qt.Commentf("the expired row is still stored"))

	n, err = s.CacheDeleteExpired(t0.Add(301 * time.Second))
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 1)
}

func TestCacheDeletePrefix(t *testing.T) {
	c := qt.New(t)
	s := openTestStore(t)

	now := time.Now().UTC()
	exp := now.Add(time.Hour)
	c.Assert(s.CachePut("shelf:a", []byte(`{}`), now, exp), qt.IsNil)
	c.Assert(s.CachePut("shelf:b", []byte(`{}`), now, exp), qt.IsNil)
	c.Assert(s.CachePut("box:c", []byte(`{}`), now, exp), qt.IsNil)

	n, err := s.CacheDeletePrefix("shelf:")
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 2)

	_, ok, err := s.CacheGet("box:c", now)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue, qt.Commentf("box rows must survive a shelf pattern delete"))
}

func TestCacheDelete(t *testing.T) {
	c := qt.New(t)
	s := openTestStore(t)

	now := time.Now().UTC()
	c.Assert(s.CachePut("shelf:docs", []byte(`{}`), now, now.Add(time.Hour)), qt.IsNil)

	ok, err := s.CacheDelete("shelf:docs")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	ok, err = s.CacheDelete("shelf:docs")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
}

// ---------------------------------------------------------------------------
// Meta
// ---------------------------------------------------------------------------

func TestMeta(t *testing.T) {
	c := qt.New(t)
	s := openTestStore(t)

	_, ok, err := s.GetMeta("last_sweep")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	c.Assert(s.SetMeta("last_sweep", "2026-08-30"), qt.IsNil)

	val, ok, err := s.GetMeta("last_sweep")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	c.Assert(val, qt.Equals, "2026-08-30")
}

func TestSchemaVersion(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(t.TempDir(), "shelf.db")

	s, err := store.Open(path)
	c.Assert(err, qt.IsNil)

	val, ok, err := s.GetMeta("schema_version")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	c.Assert(val, qt.Equals, "1")

	c.Assert(s.SetMeta("schema_version", "99"), qt.IsNil)
	c.Assert(s.Close(), qt.IsNil)

	_, err = store.Open(path)
	c.Assert(err, qt.IsNotNil)
	c.Assert(err, qt.ErrorMatches, `.*schema version 99.*`)
}
