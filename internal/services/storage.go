package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pagepulse-companion/internal/common"
	"pagepulse-companion/internal/interfaces"
	"pagepulse-companion/internal/models"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	bolt "go.etcd.io/bbolt"
)

const (
	historyBucket  = "history"
	metadataBucket = "metadata"
	// entriesKey holds the current schema: one ordered JSON array of
	// HistoryEntry, newest first. legacyKey holds the earlier unkeyed
	// array of raw results, read at most once.
	entriesKey    = "entries"
	legacyKey     = "results"
	lastUpdateKey = "last_update"
)

type historyStorage struct {
	db     *bolt.DB
	config *common.StorageConfig
	logger arbor.ILogger

	mu      sync.RWMutex
	entries []models.HistoryEntry
	loaded  bool
}

// NewHistoryStorage opens the bbolt database backing the analysis history
func NewHistoryStorage(config *common.StorageConfig, logger arbor.ILogger) (interfaces.HistoryStore, error) {
	dbDir := filepath.Dir(config.DatabasePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(config.DatabasePath, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(historyBucket)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(metadataBucket)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &historyStorage{
		db:     db,
		config: config,
		logger: logger,
	}, nil
}

func (s *historyStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LoadOrMigrate reads the current-schema record on first access. When it is
// absent, the legacy unkeyed array is migrated once: each item gets a
// synthesized unique id and a strictly-decreasing createdAt so insertion
// order is preserved as recency order. The legacy record is deleted after
// migration and never read again.
func (s *historyStorage) LoadOrMigrate() ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	return s.copyEntriesLocked(), nil
}

func (s *historyStorage) ensureLoadedLocked() error {
	if s.loaded {
		return nil
	}

	entries := []models.HistoryEntry{}
	migrated := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(historyBucket))

		if data := bucket.Get([]byte(entriesKey)); data != nil {
			return json.Unmarshal(data, &entries)
		}

		if legacy := bucket.Get([]byte(legacyKey)); legacy != nil {
			var rawResults []map[string]interface{}
			if err := json.Unmarshal(legacy, &rawResults); err != nil {
				s.logger.Warn().Err(err).Msg("Legacy history record is unreadable, starting empty")
			} else {
				entries = migrateLegacyResults(rawResults)
				migrated = len(entries)
			}
		}

		// Writing the current key here (even when empty) retires the
		// legacy record for good
		payload, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		if err := bucket.Put([]byte(entriesKey), payload); err != nil {
			return err
		}
		if err := bucket.Delete([]byte(legacyKey)); err != nil {
			return err
		}

		metaBucket := tx.Bucket([]byte(metadataBucket))
		lastUpdateData, _ := time.Now().MarshalBinary()
		return metaBucket.Put([]byte(lastUpdateKey), lastUpdateData)
	})
	if err != nil {
		return common.NewStorageError("HISTORY_LOAD_FAILED", "failed to load history").WithCause(err)
	}

	s.entries = entries
	s.loaded = true

	if migrated > 0 {
		s.logger.Info().Int("count", migrated).Msg("Migrated legacy history records")
	}

	return nil
}

// migrateLegacyResults synthesizes identity for legacy items. Timestamps
// step back one second per position so index 0 stays the most recent.
func migrateLegacyResults(rawResults []map[string]interface{}) []models.HistoryEntry {
	entries := make([]models.HistoryEntry, 0, len(rawResults))
	base := time.Now().UTC()

	for i, raw := range rawResults {
		entries = append(entries, models.HistoryEntry{
			ID:             uuid.NewString(),
			CreatedAt:      base.Add(-time.Duration(i) * time.Second),
			URL:            getString(raw, "url"),
			Title:          getString(raw, "title"),
			AnalysisResult: *NormalizeAnalysis(raw),
		})
	}

	return entries
}

// Append prepends the entry and rewrites the whole persisted record.
// Entries arriving without identity get one here, mirroring what migration
// does for legacy items.
func (s *historyStorage) Append(entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return err
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	updated := make([]models.HistoryEntry, 0, len(s.entries)+1)
	updated = append(updated, entry)
	updated = append(updated, s.entries...)

	if err := s.persistLocked(updated); err != nil {
		return err
	}
	s.entries = updated

	s.logger.Debug().
		Str("id", entry.ID).
		Str("url", entry.URL).
		Int("total", len(updated)).
		Msg("History entry appended")

	return nil
}

// DeleteMany removes all entries whose id is in ids, preserving the
// relative order of survivors. A set with no matches is a no-op, not an
// error.
func (s *historyStorage) DeleteMany(ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}

	kept := make([]models.HistoryEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if _, drop := idSet[entry.ID]; !drop {
			kept = append(kept, entry)
		}
	}

	removed := len(s.entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := s.persistLocked(kept); err != nil {
		return 0, err
	}
	s.entries = kept

	s.logger.Debug().Int("removed", removed).Int("remaining", len(kept)).Msg("History entries deleted")

	return removed, nil
}

// ClearAll empties the history record
func (s *historyStorage) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return err
	}

	empty := []models.HistoryEntry{}
	if err := s.persistLocked(empty); err != nil {
		return err
	}
	s.entries = empty
	return nil
}

// Entries returns a snapshot copy of the in-memory list, newest first
func (s *historyStorage) Entries() []models.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyEntriesLocked()
}

func (s *historyStorage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// LastUpdate reports when the record was last rewritten, formatted for the
// status endpoint; empty when nothing has been written yet
func (s *historyStorage) LastUpdate() (string, error) {
	var lastUpdate time.Time

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(metadataBucket)).Get([]byte(lastUpdateKey))
		if data == nil {
			return nil
		}
		return lastUpdate.UnmarshalBinary(data)
	})
	if err != nil {
		return "", err
	}
	if lastUpdate.IsZero() {
		return "", nil
	}
	return lastUpdate.Format("2006-01-02 15:04"), nil
}

// persistLocked rewrites the entire history record in one transaction.
// There is no incremental append at the storage layer.
func (s *historyStorage) persistLocked(entries []models.HistoryEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return common.NewStorageError("HISTORY_ENCODE_FAILED", "failed to encode history").WithCause(err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(historyBucket)).Put([]byte(entriesKey), payload); err != nil {
			return err
		}
		lastUpdateData, _ := time.Now().MarshalBinary()
		return tx.Bucket([]byte(metadataBucket)).Put([]byte(lastUpdateKey), lastUpdateData)
	})
	if err != nil {
		return common.NewStorageError("HISTORY_WRITE_FAILED", "failed to persist history").WithCause(err)
	}
	return nil
}

func (s *historyStorage) copyEntriesLocked() []models.HistoryEntry {
	out := make([]models.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
