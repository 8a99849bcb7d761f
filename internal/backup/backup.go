// Package backup provides the persistent main-image backup store.
//
// The store is a small SQLite key-value table holding a single live
// record: the last main image the user chose, with a write timestamp and
// the source that wrote it. Reads honor a 5-minute freshness window;
// anything older, malformed, or placeholder-valued is treated as "no
// backup available" rather than an error.
//
// The database also carries dead keys left behind by an earlier
// persistence scheme. They are swept (deleted, never read) whenever an
// integrity auto-clean runs.
package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/formstep/mediasync/internal/gallery"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// MainImageKey is the well-known key of the live backup record.
const MainImageKey = "blogMediaMainImageBackup"

// MaxAge is the freshness window: records older than this are ignored.
const MaxAge = 5 * time.Minute

// LegacyKeys are dead keys from the pre-reconciliation persistence
// scheme. They are deleted on auto-clean and never read.
var LegacyKeys = []string{
	"blogMediaSliderPersistenceBackup",
	"blogMediaStep_media",
	"blogMediaStep_selectedFileNames",
	"blogMediaStep_mainImage",
}

// record is the JSON document stored under MainImageKey.
//
// MainImage is a pointer so an explicit null round-trips: null means the
// user cleared the main image, a missing field means a malformed record.
type record struct {
	MainImage *string `json:"mainImage"`
	Timestamp int64   `json:"timestamp"`
	Source    string  `json:"source"`
}

// Store wraps the backup database connection.
type Store struct {
	conn   *sql.DB
	path   string
	logger *log.Logger
	now    func() time.Time
}

// Open creates or opens the backup database at the specified path.
//
// The database is opened in embedded mode with WAL so the daemon and the
// CLI inspection commands can read concurrently. The caller MUST call
// Close() when done.
//
// If logger is nil, a default logger writing to stderr is used.
func Open(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[backup] ", log.LstdFlags)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open backup database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping backup database: %w", err)
	}

	s := &Store{
		conn:   conn,
		path:   path,
		logger: logger,
		now:    time.Now,
	}

	// WAL for concurrent readers, short busy timeout for CLI access.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection, checkpointing the WAL first.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Printf("Warning: failed to checkpoint WAL: %v", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close backup database: %w", err)
	}
	s.conn = nil
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS backup_records (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize backup schema: %w", err)
	}
	return nil
}

// WriteBackup persists the main image (empty string stores an explicit
// null) under MainImageKey, overwriting any prior record.
//
// Writes are best-effort: serialization and storage failures are logged
// and swallowed so a full disk never takes down the caller.
func (s *Store) WriteBackup(mainImage, source string) {
	rec := record{
		Timestamp: s.now().UnixMilli(),
		Source:    source,
	}
	if mainImage != "" {
		rec.MainImage = &mainImage
	}

	data, err := json.Marshal(rec)
	if err != nil {
		s.logger.Printf("Warning: failed to marshal backup record: %v", err)
		return
	}

	if err := s.put(MainImageKey, string(data)); err != nil {
		s.logger.Printf("Warning: failed to write backup: %v", err)
	}
}

// ReadBackup returns the backed-up main image, if a usable one exists.
//
// The record must parse, carry a string (or null) main image and a
// numeric timestamp, be younger than MaxAge, and not be a placeholder
// marker. Every failure mode returns ("", false); malformed data is
// logged, never surfaced as an error.
func (s *Store) ReadBackup() (string, bool) {
	raw, err := s.get(MainImageKey)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		s.logger.Printf("Warning: failed to read backup: %v", err)
		return "", false
	}

	// Decode into a loose map first so a record with the wrong field
	// types fails closed instead of being coerced.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		s.logger.Printf("Warning: malformed backup record: %v", err)
		return "", false
	}

	tsRaw, ok := fields["timestamp"]
	if !ok {
		return "", false
	}
	var ts int64
	if err := json.Unmarshal(tsRaw, &ts); err != nil {
		s.logger.Printf("Warning: backup timestamp is not numeric")
		return "", false
	}

	imgRaw, ok := fields["mainImage"]
	if !ok {
		return "", false
	}
	var img *string
	if err := json.Unmarshal(imgRaw, &img); err != nil {
		s.logger.Printf("Warning: backup mainImage is not a string")
		return "", false
	}
	if img == nil || *img == "" {
		return "", false
	}

	age := s.now().Sub(time.UnixMilli(ts))
	if age > MaxAge {
		s.logger.Printf("Ignoring stale backup (age %v)", age.Round(time.Second))
		return "", false
	}

	if gallery.IsPlaceholder(*img) {
		s.logger.Printf("Ignoring placeholder backup value")
		return "", false
	}

	return *img, true
}

// SweepLegacyKeys deletes the dead keys from the prior persistence
// scheme. Best-effort; failures are logged.
func (s *Store) SweepLegacyKeys() {
	for _, key := range LegacyKeys {
		if err := s.delete(key); err != nil {
			s.logger.Printf("Warning: failed to sweep legacy key %s: %v", key, err)
		}
	}
}

// Purge removes the live backup record and all legacy keys. Called by
// the integrity auto-clean so a later restore cannot resurrect data the
// cleanup just threw away.
func (s *Store) Purge() {
	if err := s.delete(MainImageKey); err != nil {
		s.logger.Printf("Warning: failed to purge backup record: %v", err)
	}
	s.SweepLegacyKeys()
}

// Keys returns all keys currently present, for inspection commands.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT key FROM backup_records ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to list backup keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan backup key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backup keys: %w", err)
	}
	return keys, nil
}

// Raw returns the raw stored value for a key, for inspection commands.
func (s *Store) Raw(key string) (string, error) {
	return s.get(key)
}

func (s *Store) put(key, value string) error {
	query := `
	INSERT INTO backup_records (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
	`
	_, err := s.conn.Exec(query, key, value, s.now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) get(key string) (string, error) {
	var value string
	err := s.conn.QueryRow("SELECT value FROM backup_records WHERE key = ?", key).Scan(&value)
	return value, err
}

func (s *Store) delete(key string) error {
	_, err := s.conn.Exec("DELETE FROM backup_records WHERE key = ?", key)
	return err
}
