package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jobsift/jobsift/internal/model"
)

// SQLiteCache persists analysis results keyed by posting fingerprint, bounded
// by entry age and total serialized size.
type SQLiteCache struct {
	db      *sql.DB
	maxSize int64
	maxAge  time.Duration
	logger  *slog.Logger

	// mu serializes writes so size accounting never reads a stale total.
	// Lookups go straight to the database except for lazy expiry.
	mu         sync.Mutex
	totalBytes int64
}

var _ model.ResultCache = (*SQLiteCache)(nil)

// NewSQLiteCache opens (or creates) the cache database at dbPath and ensures
// the analysis_cache table exists. maxSizeMB bounds total serialized bytes;
// expirationDays bounds entry age.
func NewSQLiteCache(dbPath string, maxSizeMB, expirationDays int, logger *slog.Logger) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging cache db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS analysis_cache (
		fingerprint TEXT PRIMARY KEY,
		result      TEXT NOT NULL,
		size_bytes  INTEGER NOT NULL,
		created_at  DATETIME NOT NULL
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating analysis_cache table: %w", err)
	}

	c := &SQLiteCache{
		db:      db,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		maxAge:  time.Duration(expirationDays) * 24 * time.Hour,
		logger:  logger,
	}

	if err := c.reloadTotal(); err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

// reloadTotal seeds the running size total from the table. Callers hold mu or
// have exclusive access (constructor).
func (c *SQLiteCache) reloadTotal() error {
	err := c.db.QueryRow("SELECT COALESCE(SUM(size_bytes), 0) FROM analysis_cache").Scan(&c.totalBytes)
	if err != nil {
		return fmt.Errorf("summing cache size: %w", err)
	}
	return nil
}

// Lookup returns the cached result for fp, or (nil, nil) when absent. An entry
// older than the expiration bound is removed and reported as a miss.
func (c *SQLiteCache) Lookup(fp model.Fingerprint) (*model.AnalysisResult, error) {
	var (
		raw       string
		sizeBytes int64
		createdAt time.Time
	)
	err := c.db.QueryRow(
		"SELECT result, size_bytes, created_at FROM analysis_cache WHERE fingerprint = ?",
		string(fp),
	).Scan(&raw, &sizeBytes, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", fp.Short(), err)
	}

	if time.Since(createdAt) > c.maxAge {
		c.removeExpired(fp, sizeBytes)
		return nil, nil
	}

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("decoding cached result for %s: %w", fp.Short(), err)
	}
	return &result, nil
}

// removeExpired deletes a single expired entry found during Lookup.
// Best-effort: a failure leaves the entry for the next cleanup pass.
func (c *SQLiteCache) removeExpired(fp model.Fingerprint, sizeBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.Exec("DELETE FROM analysis_cache WHERE fingerprint = ?", string(fp))
	if err != nil {
		c.logger.Warn("removing expired cache entry failed", "fingerprint", fp.Short(), "error", err)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		c.totalBytes -= sizeBytes
	}
}

// Store inserts or overwrites the entry for fp with the current timestamp,
// then evicts oldest entries while the total size exceeds the bound. Eviction
// never fails the store.
func (c *SQLiteCache) Store(fp model.Fingerprint, result model.AnalysisResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result for %s: %w", fp.Short(), err)
	}
	size := int64(len(raw))

	c.mu.Lock()
	defer c.mu.Unlock()

	// Overwrites must not double-count the previous entry's size.
	var prevSize int64
	err = c.db.QueryRow(
		"SELECT size_bytes FROM analysis_cache WHERE fingerprint = ?", string(fp),
	).Scan(&prevSize)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("checking existing entry for %s: %w", fp.Short(), err)
	}

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO analysis_cache (fingerprint, result, size_bytes, created_at) VALUES (?, ?, ?, ?)",
		string(fp), string(raw), size, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("storing result for %s: %w", fp.Short(), err)
	}

	c.totalBytes += size - prevSize
	c.evictOverSize()
	return nil
}

// evictOverSize removes entries oldest-first until the total fits the size
// bound. Callers hold mu. Errors are logged, never returned.
func (c *SQLiteCache) evictOverSize() {
	for c.totalBytes > c.maxSize {
		var (
			fp   string
			size int64
		)
		err := c.db.QueryRow(
			"SELECT fingerprint, size_bytes FROM analysis_cache ORDER BY created_at ASC, fingerprint ASC LIMIT 1",
		).Scan(&fp, &size)
		if err == sql.ErrNoRows {
			return
		}
		if err != nil {
			c.logger.Warn("cache eviction scan failed", "error", err)
			return
		}

		if _, err := c.db.Exec("DELETE FROM analysis_cache WHERE fingerprint = ?", fp); err != nil {
			c.logger.Warn("cache eviction delete failed", "fingerprint", fp, "error", err)
			return
		}
		c.totalBytes -= size
		c.logger.Debug("evicted cache entry", "fingerprint", fp, "size_bytes", size)
	}
}

// ClearExpired removes all entries older than the expiration bound and
// returns how many were deleted. Run at startup when cleanup_on_startup is set.
func (c *SQLiteCache) ClearExpired() (int, error) {
	cutoff := time.Now().Add(-c.maxAge)

	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.Exec("DELETE FROM analysis_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("clearing expired entries: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleared entries: %w", err)
	}

	if err := c.reloadTotal(); err != nil {
		return int(removed), err
	}
	return int(removed), nil
}

// ClearAll drops every entry, used when option changes invalidate prior results.
func (c *SQLiteCache) ClearAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec("DELETE FROM analysis_cache"); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	c.totalBytes = 0
	return nil
}

// Stats reports entry count, total size and the age range of stored entries.
func (c *SQLiteCache) Stats() (model.CacheStats, error) {
	var stats model.CacheStats
	err := c.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM analysis_cache",
	).Scan(&stats.Entries, &stats.TotalBytes)
	if err != nil {
		return model.CacheStats{}, fmt.Errorf("reading cache stats: %w", err)
	}

	if stats.Entries > 0 {
		err = c.db.QueryRow(
			"SELECT MIN(created_at), MAX(created_at) FROM analysis_cache",
		).Scan(&stats.Oldest, &stats.Newest)
		if err != nil {
			return model.CacheStats{}, fmt.Errorf("reading cache age range: %w", err)
		}
	}
	return stats, nil
}

// Entries returns every cached entry, newest first, for the diagnostic
// browser. Read-only.
func (c *SQLiteCache) Entries() ([]Entry, error) {
	rows, err := c.db.Query(
		"SELECT fingerprint, result, size_bytes, created_at FROM analysis_cache ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("listing cache entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e   Entry
			raw string
		)
		if err := rows.Scan(&e.Fingerprint, &raw, &e.SizeBytes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning cache entry: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &e.Result); err != nil {
			return nil, fmt.Errorf("decoding cache entry %s: %w", e.Fingerprint, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Entry is one persisted cache record with its bookkeeping fields.
type Entry struct {
	Fingerprint string
	Result      model.AnalysisResult
	SizeBytes   int64
	CreatedAt   time.Time
}

// Close closes the underlying database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
