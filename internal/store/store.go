// Package store manages the SQLite database holding shelves, boxes, and the
// durable context cache.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver with database/sql

	"github.com/docshelf-dev/docshelf/internal/models"
)

func init() { //nolint:gochecknoinits // registers sqlite-vec with go-sqlite3 before any DB connection opens
	// The crawl/index pipeline creates vec0 virtual tables in the same
	// database; registering the extension up front keeps existence and
	// count queries working against such databases.
	vec.Auto()
}

// Sentinel errors for entity writes.
var (
	ErrExists   = errors.New("already exists")
	ErrNotFound = errors.New("not found")
)

// StorageError wraps a backend or durable-cache failure. It is always
// propagated to the caller, never masked by cached data.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// Store wraps a *sql.DB with the path it was opened from.
type Store struct {
	db   *sql.DB
	path string
}

// schemaVersion is stamped into the meta table on first open. Databases
// written by a newer binary refuse to open rather than corrupt silently.
const schemaVersion = "1"

// Open opens (or creates) the SQLite database at path and initialises the schema.
func Open(path string) (*Store, error) {
	sqldb, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, storageErr("open", err)
	}
	s := &Store{db: sqldb, path: path}
	if err := s.createSchema(); err != nil {
		_ = sqldb.Close()
		return nil, storageErr("open schema", err)
	}
	if err := s.checkSchemaVersion(); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) checkSchemaVersion() error {
	got, ok, err := s.GetMeta("schema_version")
	if err != nil {
		return err
	}
	if !ok {
		return s.SetMeta("schema_version", schemaVersion)
	}
	if got != schemaVersion {
		return storageErr("open", fmt.Errorf("database schema version %s, want %s", got, schemaVersion))
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

func (s *Store) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS shelves (
			id         TEXT PRIMARY KEY,
			name       TEXT UNIQUE NOT NULL,
			config     TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS boxes (
			id            TEXT PRIMARY KEY,
			shelf_name    TEXT NOT NULL,
			name          TEXT NOT NULL,
			box_type      TEXT NOT NULL,
			content_count INTEGER NOT NULL DEFAULT 0,
			config        TEXT,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL,
			UNIQUE(shelf_name, name)
		)`,
		`CREATE TABLE IF NOT EXISTS context_cache (
			cache_key  TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS context_cache_expiry ON context_cache(expires_at)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("createSchema exec: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Entity info queries (backend collaborator surface)
// ---------------------------------------------------------------------------

// ShelfInfo is the raw backend answer for one shelf.
type ShelfInfo struct {
	Exists       bool
	BoxCount     int
	ConfigBlob   []byte
	LastModified time.Time
}

// BoxInfo is the raw backend answer for one box.
type BoxInfo struct {
	Exists       bool
	BoxType      models.BoxType
	ContentCount int
	ConfigBlob   []byte
	LastModified time.Time
}

// GetShelfInfo reports existence, box count, config blob, and last
// modification time for the named shelf.
func (s *Store) GetShelfInfo(name string) (ShelfInfo, error) {
	var config sql.NullString
	var updatedAt string
	err := s.db.QueryRow(
		`SELECT config, updated_at FROM shelves WHERE name = ?`, name,
	).Scan(&config, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ShelfInfo{}, nil
	}
	if err != nil {
		return ShelfInfo{}, storageErr("shelf info", err)
	}

	var count int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM boxes WHERE shelf_name = ?`, name,
	).Scan(&count); err != nil {
		return ShelfInfo{}, storageErr("shelf box count", err)
	}

	return ShelfInfo{
		Exists:       true,
		BoxCount:     count,
		ConfigBlob:   blobOf(config),
		LastModified: parseTime(updatedAt),
	}, nil
}

// GetBoxInfo reports existence, type, content count, config blob, and last
// modification time for the named box. An empty scope matches the box in any
// shelf; a non-empty scope restricts the lookup to that shelf.
func (s *Store) GetBoxInfo(name, scope string) (BoxInfo, error) {
	query := `SELECT box_type, content_count, config, updated_at FROM boxes WHERE name = ?`
	args := []any{name}
	if scope != "" {
		query += ` AND shelf_name = ?`
		args = append(args, scope)
	}
	query += ` LIMIT 1`

	var boxType string
	var count int
	var config sql.NullString
	var updatedAt string
	err := s.db.QueryRow(query, args...).Scan(&boxType, &count, &config, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return BoxInfo{}, nil
	}
	if err != nil {
		return BoxInfo{}, storageErr("box info", err)
	}

	return BoxInfo{
		Exists:       true,
		BoxType:      models.BoxType(boxType),
		ContentCount: count,
		ConfigBlob:   blobOf(config),
		LastModified: parseTime(updatedAt),
	}, nil
}

// ---------------------------------------------------------------------------
// Entity writes
// ---------------------------------------------------------------------------

// CreateShelf inserts a new shelf and returns its ID.
// Returns ErrExists if a shelf with that name already exists.
func (s *Store) CreateShelf(name string) (string, error) {
	var existing string
	err := s.db.QueryRow(`SELECT id FROM shelves WHERE name = ?`, name).Scan(&existing)
	if err == nil {
		return "", storageErr("create shelf", fmt.Errorf("shelf %q: %w", name, ErrExists))
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", storageErr("create shelf", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.Exec(
		`INSERT INTO shelves (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, name, now, now,
	); err != nil {
		return "", storageErr("create shelf", err)
	}
	return id, nil
}

// CreateBox inserts a new box under shelf and returns its ID.
// Returns ErrNotFound if the shelf does not exist and ErrExists if the shelf
// already holds a box with that name.
func (s *Store) CreateBox(shelf, name string, boxType models.BoxType) (string, error) {
	var shelfID string
	err := s.db.QueryRow(`SELECT id FROM shelves WHERE name = ?`, shelf).Scan(&shelfID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storageErr("create box", fmt.Errorf("shelf %q: %w", shelf, ErrNotFound))
	}
	if err != nil {
		return "", storageErr("create box", err)
	}

	var existing string
	err = s.db.QueryRow(
		`SELECT id FROM boxes WHERE shelf_name = ? AND name = ?`, shelf, name,
	).Scan(&existing)
	if err == nil {
		return "", storageErr("create box", fmt.Errorf("box %q: %w", name, ErrExists))
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", storageErr("create box", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.Exec(
		`INSERT INTO boxes (id, shelf_name, name, box_type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, shelf, name, string(boxType), now, now,
	); err != nil {
		return "", storageErr("create box", err)
	}
	s.touchShelf(shelf)
	return id, nil
}

// MarkShelfConfigured writes a configured-state blob for the shelf.
// Returns ErrNotFound if the shelf does not exist.
func (s *Store) MarkShelfConfigured(name, version string) error {
	info, err := s.GetShelfInfo(name)
	if err != nil {
		return err
	}
	if !info.Exists {
		return storageErr("configure shelf", fmt.Errorf("shelf %q: %w", name, ErrNotFound))
	}

	blob, err := configuredBlob(version, info.BoxCount > 0)
	if err != nil {
		return storageErr("configure shelf", err)
	}
	_, err = s.db.Exec(
		`UPDATE shelves SET config = ?, updated_at = ? WHERE name = ?`,
		string(blob), time.Now().UTC().Format(time.RFC3339Nano), name,
	)
	return storageErr("configure shelf", err)
}

// MarkBoxConfigured writes a configured-state blob for the box.
// Returns ErrNotFound if the box does not exist.
func (s *Store) MarkBoxConfigured(name, scope, version string) error {
	info, err := s.GetBoxInfo(name, scope)
	if err != nil {
		return err
	}
	if !info.Exists {
		return storageErr("configure box", fmt.Errorf("box %q: %w", name, ErrNotFound))
	}

	blob, err := configuredBlob(version, info.ContentCount > 0)
	if err != nil {
		return storageErr("configure box", err)
	}
	_, err = s.boxExec(
		`UPDATE boxes SET config = ?, updated_at = ?`,
		[]any{string(blob), time.Now().UTC().Format(time.RFC3339Nano)},
		name, scope,
	)
	return storageErr("configure box", err)
}

// SetBoxContentCount records how many content items the box holds and keeps
// the has_content flag of its config blob in sync.
// Returns ErrNotFound if the box does not exist.
func (s *Store) SetBoxContentCount(name, scope string, count int) error {
	info, err := s.GetBoxInfo(name, scope)
	if err != nil {
		return err
	}
	if !info.Exists {
		return storageErr("set box content", fmt.Errorf("box %q: %w", name, ErrNotFound))
	}

	cfg := models.ParseConfigBlob(info.ConfigBlob)
	cfg.HasContent = count > 0
	blob, err := json.Marshal(cfg)
	if err != nil {
		return storageErr("set box content", err)
	}

	_, err = s.boxExec(
		`UPDATE boxes SET content_count = ?, config = ?, updated_at = ?`,
		[]any{count, string(blob), time.Now().UTC().Format(time.RFC3339Nano)},
		name, scope,
	)
	return storageErr("set box content", err)
}

// DeleteShelf removes a shelf and all of its boxes.
// Returns true if a shelf was found and deleted.
func (s *Store) DeleteShelf(name string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM shelves WHERE name = ?`, name)
	if err != nil {
		return false, storageErr("delete shelf", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}
	if _, err := s.db.Exec(`DELETE FROM boxes WHERE shelf_name = ?`, name); err != nil {
		return false, storageErr("delete shelf boxes", err)
	}
	return true, nil
}

// DeleteBox removes a box. Returns true if a box was found and deleted.
func (s *Store) DeleteBox(name, scope string) (bool, error) {
	res, err := s.boxExec(`DELETE FROM boxes`, nil, name, scope)
	if err != nil {
		return false, storageErr("delete box", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 && scope != "" {
		s.touchShelf(scope)
	}
	return n > 0, nil
}

// ---------------------------------------------------------------------------
// Durable cache rows (L2 surface)
// ---------------------------------------------------------------------------

// CacheGet returns the payload for key if its row has not expired at now.
func (s *Store) CacheGet(key string, now time.Time) ([]byte, bool, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM context_cache WHERE cache_key = ? AND expires_at > ?`,
		key, now.UnixNano(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageErr("cache get", err)
	}
	return []byte(payload), true, nil
}

// CachePut upserts the row for key, overwriting any existing row.
func (s *Store) CachePut(key string, payload []byte, createdAt, expiresAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO context_cache (cache_key, payload, created_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		key, string(payload), createdAt.UnixNano(), expiresAt.UnixNano(),
	)
	return storageErr("cache put", err)
}

// CacheDelete removes the row for key, reporting whether one existed.
func (s *Store) CacheDelete(key string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM context_cache WHERE cache_key = ?`, key)
	if err != nil {
		return false, storageErr("cache delete", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CacheDeletePrefix removes every row whose key starts with prefix and
// returns the count.
func (s *Store) CacheDeletePrefix(prefix string) (int, error) {
	res, err := s.db.Exec(
		`DELETE FROM context_cache WHERE cache_key LIKE ? ESCAPE '\'`,
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return 0, storageErr("cache delete prefix", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CacheDeleteExpired removes every row already past expiry at now.
func (s *Store) CacheDeleteExpired(now time.Time) (int, error) {
	res, err := s.db.Exec(
		`DELETE FROM context_cache WHERE expires_at <= ?`, now.UnixNano(),
	)
	if err != nil {
		return 0, storageErr("cache delete expired", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CacheCount returns the number of rows currently stored, expired or not.
func (s *Store) CacheCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM context_cache`).Scan(&n)
	return n, storageErr("cache count", err)
}

// ---------------------------------------------------------------------------
// Meta
// ---------------------------------------------------------------------------

// GetMeta returns the value for key, or ("", false, nil) if not set.
func (s *Store) GetMeta(key string) (string, bool, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr("meta get", err)
	}
	return val, true, nil
}

// SetMeta upserts a key-value pair in the meta table.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value,
	)
	return storageErr("meta set", err)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// boxExec runs stmt against the box matched by name and optional scope,
// appending the WHERE clause and its parameters.
func (s *Store) boxExec(stmt string, params []any, name, scope string) (sql.Result, error) {
	stmt += ` WHERE name = ?`
	params = append(params, name)
	if scope != "" {
		stmt += ` AND shelf_name = ?`
		params = append(params, scope)
	}
	return s.db.Exec(stmt, params...) // #nosec G202 -- appended clauses use hardcoded column names only; values flow through ? bound parameters
}

// touchShelf bumps a shelf's updated_at after one of its boxes changed.
func (s *Store) touchShelf(name string) {
	if _, err := s.db.Exec(
		`UPDATE shelves SET updated_at = ? WHERE name = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), name,
	); err != nil {
		slog.Debug("touchShelf skipped", "shelf", name, "err", err)
	}
}

// configuredBlob builds the config blob written when an entity completes setup.
func configuredBlob(version string, hasContent bool) ([]byte, error) {
	now := time.Now().UTC()
	cfg, err := models.NewConfigurationState(true, hasContent, version, &now, false)
	if err != nil {
		return nil, err
	}
	return json.Marshal(cfg)
}

func blobOf(v sql.NullString) []byte {
	if !v.Valid || v.String == "" {
		return nil
	}
	return []byte(v.String)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// escapeLike escapes LIKE wildcards in a literal prefix so entity names
// containing _ cannot widen a pattern delete.
func escapeLike(prefix string) string {
	prefix = strings.ReplaceAll(prefix, `\`, `\\`)
	prefix = strings.ReplaceAll(prefix, `%`, `\%`)
	return strings.ReplaceAll(prefix, `_`, `\_`)
}
