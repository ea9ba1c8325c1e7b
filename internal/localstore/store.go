// Package localstore is the client-side key-value store. Every mutation is
// written here first; remote sync happens after, so local durability never
// depends on the network. Backed by SQLite, with an in-memory fallback for
// the rest of the session if the disk store stops accepting writes.
package localstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/claude/gymtrack/internal/models"
	"github.com/claude/gymtrack/internal/stats"
)

// Well-known store keys.
const (
	KeySettings       = "settings"
	KeySettingsETag   = "settings_etag"
	KeyWorkoutLog     = "workout_log"
	KeySyncQueue      = "sync_queue"
	KeyMigrationDone  = "migration_complete"
	KeyAuth           = "auth"
	KeyTheme          = "theme"
	KeyEquipmentCache = "equipment_cache"
	KeyViewState      = "view_state"
)

// Cleanup bounds applied when the disk store rejects a write.
const (
	cleanupWorkoutMaxAge = 30 * 24 * time.Hour
	cleanupQueueKeep     = 50
)

// Store is a key-value store over SQLite. Values are JSON documents.
// Safe for concurrent use.
type Store struct {
	log *slog.Logger

	// OnQuotaExceeded is called once if the store degrades to its
	// in-memory fallback. Set before first use.
	OnQuotaExceeded func()

	mu       sync.Mutex
	db       *sql.DB
	mem      map[string]string
	degraded bool
}

// Open opens (or creates) the store database at dir/local.db.
func Open(dir string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "local.db"))
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating kv table: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Degraded reports whether the store has fallen back to in-memory mode.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// SetJSON serializes v and stores it under key. A write failure triggers a
// bounded cleanup (old workouts dropped, sync queue truncated) and exactly
// one retry; if the retry also fails the store degrades to memory for the
// rest of the session and the quota handler fires.
func (s *Store) SetJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", key, err)
	}
	return s.SetRaw(key, string(data))
}

// SetRaw stores an already-serialized value under key.
func (s *Store) SetRaw(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.degraded {
		s.mem[key] = value
		return nil
	}

	err := s.write(key, value)
	if err == nil {
		return nil
	}
	s.log.Warn("local store write failed, running cleanup", "key", key, "error", err)

	s.cleanupLocked()

	if err := s.write(key, value); err != nil {
		s.log.Error("local store write failed after cleanup, falling back to memory", "key", key, "error", err)
		s.degradeLocked()
		s.mem[key] = value
		return nil
	}
	return nil
}

// GetJSON reads the value under key into dst. Returns false when the key is
// absent. A stored value that is not parseable JSON is returned verbatim
// when dst is a *string, matching how legacy plain-string values behave.
func (s *Store) GetJSON(key string, dst any) (bool, error) {
	raw, ok, err := s.GetRaw(key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		if sp, isString := dst.(*string); isString {
			*sp = raw
			return true, nil
		}
		return true, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// GetRaw reads the serialized value under key.
func (s *Store) GetRaw(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.degraded {
		v, ok := s.mem[key]
		return v, ok, nil
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

// Remove deletes the value under key.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.degraded {
		delete(s.mem, key)
		return nil
	}
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}

// Keys lists all stored keys.
func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.degraded {
		keys := make([]string, 0, len(s.mem))
		for k := range s.mem {
			keys = append(keys, k)
		}
		return keys, nil
	}

	rows, err := s.db.Query(`SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) write(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	return err
}

// cleanupLocked frees space by dropping workout-log entries older than 30
// days and truncating the sync queue to its most recent items. Best effort;
// errors leave the affected key untouched.
func (s *Store) cleanupLocked() {
	if raw, err := s.readLocked(KeyWorkoutLog); err == nil {
		var doc models.WorkoutLogDocument
		if json.Unmarshal([]byte(raw), &doc) == nil {
			cutoff := time.Now().Add(-cleanupWorkoutMaxAge)
			kept := doc.Workouts[:0]
			for _, w := range doc.Workouts {
				if w.Date.After(cutoff) {
					kept = append(kept, w)
				}
			}
			if len(kept) < len(doc.Workouts) {
				s.log.Warn("cleanup dropping old workouts",
					"dropped", len(doc.Workouts)-len(kept), "kept", len(kept))
				doc.Workouts = kept
				doc.Statistics = stats.Compute(doc.Workouts)
				if data, err := json.Marshal(doc); err == nil {
					_ = s.write(KeyWorkoutLog, string(data))
				}
			}
		}
	}

	if raw, err := s.readLocked(KeySyncQueue); err == nil {
		var items []models.QueueItem
		if json.Unmarshal([]byte(raw), &items) == nil && len(items) > cleanupQueueKeep {
			s.log.Warn("cleanup truncating sync queue",
				"dropped", len(items)-cleanupQueueKeep, "kept", cleanupQueueKeep)
			items = items[len(items)-cleanupQueueKeep:]
			if data, err := json.Marshal(items); err == nil {
				_ = s.write(KeySyncQueue, string(data))
			}
		}
	}
}

func (s *Store) readLocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	return value, err
}

// degradeLocked switches to the in-memory fallback, seeding it with
// whatever can still be read from disk.
func (s *Store) degradeLocked() {
	s.degraded = true
	s.mem = map[string]string{}

	rows, err := s.db.Query(`SELECT key, value FROM kv`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var k, v string
			if rows.Scan(&k, &v) == nil {
				s.mem[k] = v
			}
		}
	}

	if s.OnQuotaExceeded != nil {
		s.OnQuotaExceeded()
	}
}
