package services_test

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"pagepulse-companion/internal/common"
	"pagepulse-companion/internal/interfaces"
	"pagepulse-companion/internal/models"
	"pagepulse-companion/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func newStoreAt(t *testing.T, dbPath string) interfaces.HistoryStore {
	t.Helper()

	store, err := services.NewHistoryStorage(&common.StorageConfig{DatabasePath: dbPath}, common.GetLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestStore(t *testing.T) (interfaces.HistoryStore, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "history.db")
	return newStoreAt(t, dbPath), dbPath
}

func testEntry(url, title, overview string) models.HistoryEntry {
	return models.HistoryEntry{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		URL:       url,
		Title:     title,
		AnalysisResult: models.AnalysisResult{
			Overview: overview,
			Sections: []models.AnalysisSection{},
		},
	}
}

// seedLegacyRecord writes the old unkeyed array directly into the database
// file, simulating a file left behind by an earlier release
func seedLegacyRecord(t *testing.T, dbPath string, rawResults []map[string]interface{}) {
	t.Helper()

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	defer db.Close()

	payload, err := json.Marshal(rawResults)
	require.NoError(t, err)

	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte("history"))
		if err != nil {
			return err
		}
		return bucket.Put([]byte("results"), payload)
	}))
}

// readRecord reads a raw record out of the history bucket; the store must
// be closed first because bbolt holds an exclusive file lock
func readRecord(t *testing.T, dbPath, key string) []byte {
	t.Helper()

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	defer db.Close()

	var data []byte
	require.NoError(t, db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte("history"))
		if bucket == nil {
			return nil
		}
		if v := bucket.Get([]byte(key)); v != nil {
			data = append([]byte{}, v...)
		}
		return nil
	}))
	return data
}

func TestHistoryStorage_FreshDatabaseIsEmpty(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	entries, err := store.LoadOrMigrate()
	require.NoError(t, err)

	assert.NotNil(t, entries)
	assert.Empty(t, entries)
	assert.Zero(t, store.Count())
}

func TestHistoryStorage_AppendPrependsNewestFirst(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	_, err := store.LoadOrMigrate()
	require.NoError(t, err)

	first := testEntry("https://one.example", "One", "First analysis.")
	second := testEntry("https://two.example", "Two", "Second analysis.")

	require.NoError(t, store.Append(first))
	require.NoError(t, store.Append(second))

	entries := store.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)
	assert.Equal(t, 2, store.Count())
}

func TestHistoryStorage_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "history.db")

	store := newStoreAt(t, dbPath)
	_, err := store.LoadOrMigrate()
	require.NoError(t, err)

	entry := testEntry("https://persist.example", "Persist", "Survives restarts.")
	require.NoError(t, store.Append(entry))
	require.NoError(t, store.Close())

	reopened := newStoreAt(t, dbPath)
	entries, err := reopened.LoadOrMigrate()
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, entry, entries[0])
}

func TestHistoryStorage_AppendFillsMissingIdentity(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	_, err := store.LoadOrMigrate()
	require.NoError(t, err)

	require.NoError(t, store.Append(models.HistoryEntry{URL: "https://anon.example"}))

	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestHistoryStorage_DeleteManyPreservesOrder(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	_, err := store.LoadOrMigrate()
	require.NoError(t, err)

	a := testEntry("https://a.example", "A", "")
	b := testEntry("https://b.example", "B", "")
	c := testEntry("https://c.example", "C", "")
	d := testEntry("https://d.example", "D", "")
	for _, entry := range []models.HistoryEntry{a, b, c, d} {
		require.NoError(t, store.Append(entry))
	}

	// Stored order is d, c, b, a; removing c must not disturb the rest
	removed, err := store.DeleteMany([]string{c.ID, "no-such-id"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries := store.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, d.ID, entries[0].ID)
	assert.Equal(t, b.ID, entries[1].ID)
	assert.Equal(t, a.ID, entries[2].ID)
}

func TestHistoryStorage_DeleteManyNoMatchesIsNoOp(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	_, err := store.LoadOrMigrate()
	require.NoError(t, err)

	entry := testEntry("https://keep.example", "Keep", "")
	require.NoError(t, store.Append(entry))

	removed, err := store.DeleteMany([]string{"ghost-1", "ghost-2"})
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = store.DeleteMany(nil)
	require.NoError(t, err)
	assert.Zero(t, removed)

	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
}

func TestHistoryStorage_ClearAll(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "history.db")

	store := newStoreAt(t, dbPath)
	_, err := store.LoadOrMigrate()
	require.NoError(t, err)

	require.NoError(t, store.Append(testEntry("https://gone.example", "Gone", "")))
	require.NoError(t, store.ClearAll())
	assert.Zero(t, store.Count())
	require.NoError(t, store.Close())

	reopened := newStoreAt(t, dbPath)
	entries, err := reopened.LoadOrMigrate()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryStorage_MigratesLegacyRecord(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "history.db")

	seedLegacyRecord(t, dbPath, []map[string]interface{}{
		{
			"url":               "https://one.example",
			"title":             "One",
			"what_this_site_is": "First legacy result.",
			"strengths":         []string{"Fast checkout"},
			"overall_score":     7,
		},
		{"url": "https://two.example", "title": "Two", "overview": "Second legacy result."},
		{"url": "https://three.example", "title": "Three"},
	})

	store := newStoreAt(t, dbPath)
	entries, err := store.LoadOrMigrate()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Insertion order survives as recency order
	assert.Equal(t, "https://one.example", entries[0].URL)
	assert.Equal(t, "https://two.example", entries[1].URL)
	assert.Equal(t, "https://three.example", entries[2].URL)

	// Legacy fields are normalized during migration
	assert.Equal(t, "First legacy result.", entries[0].Overview)
	require.Len(t, entries[0].Sections, 1)
	assert.Equal(t, "Strengths", entries[0].Sections[0].Title)
	assert.InDelta(t, 7, entries[0].Score.Value, 0.001)
	assert.Equal(t, "Second legacy result.", entries[1].Overview)

	// Synthesized ids are unique, timestamps strictly decreasing
	seen := map[string]bool{}
	for _, entry := range entries {
		assert.NotEmpty(t, entry.ID)
		assert.False(t, seen[entry.ID], "duplicate id %s", entry.ID)
		seen[entry.ID] = true
	}
	assert.True(t, entries[0].CreatedAt.After(entries[1].CreatedAt))
	assert.True(t, entries[1].CreatedAt.After(entries[2].CreatedAt))

	require.NoError(t, store.Close())

	// The legacy record is gone and the current one is in place
	assert.Nil(t, readRecord(t, dbPath, "results"))
	assert.NotNil(t, readRecord(t, dbPath, "entries"))

	// A reopen loads the migrated entries as-is, with the same ids
	reopened := newStoreAt(t, dbPath)
	entriesAgain, err := reopened.LoadOrMigrate()
	require.NoError(t, err)
	require.Len(t, entriesAgain, 3)
	for i := range entries {
		assert.Equal(t, entries[i].ID, entriesAgain[i].ID)
	}
}

func TestHistoryStorage_UnreadableLegacyRecordStartsEmpty(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "history.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte("history"))
		if err != nil {
			return err
		}
		return bucket.Put([]byte("results"), []byte("{not json"))
	}))
	require.NoError(t, db.Close())

	store := newStoreAt(t, dbPath)
	entries, err := store.LoadOrMigrate()
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, store.Close())
	assert.Nil(t, readRecord(t, dbPath, "results"))
}

func TestHistoryStorage_LastUpdateSetAfterWrite(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	_, err := store.LoadOrMigrate()
	require.NoError(t, err)

	lastUpdate, err := store.LastUpdate()
	require.NoError(t, err)
	assert.NotEmpty(t, lastUpdate)
}

func TestHistoryStorage_LoadOrMigrateRepeatedCallsAreStable(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "history.db")
	seedLegacyRecord(t, dbPath, []map[string]interface{}{
		{"url": "https://legacy.example", "title": "Legacy"},
	})

	store := newStoreAt(t, dbPath)

	first, err := store.LoadOrMigrate()
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, store.Append(testEntry("https://new.example", "New", "Fresh analysis.")))

	// A second call must not re-run migration or drop the appended entry
	again, err := store.LoadOrMigrate()
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, "https://new.example", again[0].URL)
	assert.Equal(t, first[0].ID, again[1].ID)
}
