// Package store provides a thin bbolt wrapper for bodacc's local data store.
//
// The store is an explicit archive, not a cache: results are written only
// when a command is run with --store, and nothing expires on its own.
//
// Buckets:
//
//	statistics — statistics results keyed by the engine's cache key
//	weather    — economic-weather reports keyed by reference month (YYYY-MM)
//	snapshots  — saved command lines for reproducible workflows
//	_meta      — internal: schema version, created_at
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/derickschaefer/bodacc/internal/model"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

const (
	BucketStatistics = "statistics"
	BucketWeather    = "weather"
	BucketSnapshots  = "snapshots"
	bucketInternal   = "_meta"
)

// AllBuckets lists every user-facing bucket for stats and clear operations.
var AllBuckets = []string{BucketStatistics, BucketWeather, BucketSnapshots}

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

func openDB(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}
	return db, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{BucketStatistics, BucketWeather, BucketSnapshots, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		meta := tx.Bucket([]byte(bucketInternal))
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// SchemaVersion returns the schema version recorded in the database.
func (s *Store) SchemaVersion() (string, error) {
	var v string
	err := s.db.View(func(tx *bolt.Tx) error {
		v = string(tx.Bucket([]byte(bucketInternal)).Get([]byte("schema_version")))
		return nil
	})
	return v, err
}

// ─── Generic JSON helpers ─────────────────────────────────────────────────────

func (s *Store) put(bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s entry: %w", bucket, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}

func (s *Store) get(bucket, key string, v any) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, v)
	})
	return found, err
}

func list[T any](s *Store, bucket string) ([]T, error) {
	var out []T
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).ForEach(func(k, v []byte) error {
			var item T
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("decoding %s/%s: %w", bucket, k, err)
			}
			out = append(out, item)
			return nil
		})
	})
	return out, err
}

// ─── Statistics ───────────────────────────────────────────────────────────────

// StoredStatistics is one archived statistics result.
type StoredStatistics struct {
	Key     string                  `json:"key"`
	Filters model.StatisticsFilters `json:"filters"`
	SavedAt time.Time               `json:"saved_at"`
	Data    *model.StatisticsData   `json:"data"`
}

// PutStatistics archives data under key, replacing any earlier entry.
func (s *Store) PutStatistics(key string, f model.StatisticsFilters, data *model.StatisticsData) error {
	return s.put(BucketStatistics, key, StoredStatistics{Key: key, Filters: f, SavedAt: time.Now().UTC(), Data: data})
}

// GetStatistics returns (entry, true, nil) if key is archived.
func (s *Store) GetStatistics(key string) (StoredStatistics, bool, error) {
	var st StoredStatistics
	ok, err := s.get(BucketStatistics, key, &st)
	return st, ok, err
}

// ListStatistics returns archived statistics, most recent first.
func (s *Store) ListStatistics() ([]StoredStatistics, error) {
	out, err := list[StoredStatistics](s, BucketStatistics)
	slices.SortFunc(out, func(a, b StoredStatistics) int { return b.SavedAt.Compare(a.SavedAt) })
	return out, err
}

// ─── Weather ──────────────────────────────────────────────────────────────────

// StoredWeather is one archived weather report.
type StoredWeather struct {
	Month   string               `json:"month"`
	SavedAt time.Time            `json:"saved_at"`
	Report  *model.WeatherReport `json:"report"`
}

// PutWeather archives r under its reference month.
func (s *Store) PutWeather(r *model.WeatherReport) error {
	month := r.ReferenceFrom
	if len(month) >= 7 {
		month = month[:7]
	}
	if month == "" {
		return fmt.Errorf("weather report has no reference month")
	}
	return s.put(BucketWeather, month, StoredWeather{Month: month, SavedAt: time.Now().UTC(), Report: r})
}

// GetWeather returns the report archived for month (YYYY-MM).
func (s *Store) GetWeather(month string) (StoredWeather, bool, error) {
	var w StoredWeather
	ok, err := s.get(BucketWeather, month, &w)
	return w, ok, err
}

// ListWeather returns archived reports in month order. bbolt iterates keys
// in byte order, which for YYYY-MM is chronological.
func (s *Store) ListWeather() ([]StoredWeather, error) {
	return list[StoredWeather](s, BucketWeather)
}

// ─── Snapshots ────────────────────────────────────────────────────────────────

// Snapshot represents a saved command for reproducible workflows.
type Snapshot struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CommandLine string    `json:"command_line"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewSnapshot returns a snapshot with a fresh ID.
func NewSnapshot(name, commandLine string) Snapshot {
	return Snapshot{
		ID:          uuid.NewString()[:8],
		Name:        name,
		CommandLine: commandLine,
		CreatedAt:   time.Now().UTC(),
	}
}

// PutSnapshot saves a snapshot. The key is snap:<ID>.
func (s *Store) PutSnapshot(snap Snapshot) error {
	return s.put(BucketSnapshots, "snap:"+snap.ID, snap)
}

// GetSnapshot retrieves a snapshot by ID.
func (s *Store) GetSnapshot(id string) (Snapshot, bool, error) {
	var snap Snapshot
	ok, err := s.get(BucketSnapshots, "snap:"+id, &snap)
	return snap, ok, err
}

// FindSnapshot looks a snapshot up by ID, then by name.
func (s *Store) FindSnapshot(ref string) (Snapshot, bool, error) {
	if snap, ok, err := s.GetSnapshot(ref); err != nil || ok {
		return snap, ok, err
	}
	snaps, err := s.ListSnapshots()
	if err != nil {
		return Snapshot{}, false, err
	}
	for _, snap := range snaps {
		if snap.Name == ref {
			return snap, true, nil
		}
	}
	return Snapshot{}, false, nil
}

// ListSnapshots returns all snapshots in creation order.
func (s *Store) ListSnapshots() ([]Snapshot, error) {
	out, err := list[Snapshot](s, BucketSnapshots)
	slices.SortStableFunc(out, func(a, b Snapshot) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, err
}

// DeleteSnapshot removes a snapshot by ID. It reports whether one existed.
func (s *Store) DeleteSnapshot(id string) (bool, error) {
	existed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketSnapshots))
		key := []byte("snap:" + id)
		existed = b.Get(key) != nil
		return b.Delete(key)
	})
	return existed, err
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Bytes int64  `json:"bytes"`
}

// Stats returns row counts and approximate sizes for all buckets, in
// AllBuckets order.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			st := BucketStats{Name: name}
			_ = b.ForEach(func(k, v []byte) error {
				st.Count++
				st.Bytes += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, st)
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	if !slices.Contains(AllBuckets, name) {
		return fmt.Errorf("unknown bucket %q (valid: %v)", name, AllBuckets)
	}
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}

// Compact rewrites the database into a fresh file to reclaim space freed
// by deletes, then swaps it in place. It returns the file sizes before and
// after.
func (s *Store) Compact() (before, after int64, err error) {
	path := s.db.Path()
	before, err = fileSize(path)
	if err != nil {
		return 0, 0, err
	}

	tmp := path + ".compact"
	_ = os.Remove(tmp)
	dst, err := openDB(tmp)
	if err != nil {
		return 0, 0, err
	}
	if err := bolt.Compact(dst, s.db, 64<<20); err != nil {
		dst.Close()
		os.Remove(tmp)
		return 0, 0, fmt.Errorf("compacting: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return 0, 0, err
	}
	if err := s.db.Close(); err != nil {
		return 0, 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, 0, fmt.Errorf("replacing db: %w", err)
	}
	if s.db, err = openDB(path); err != nil {
		return 0, 0, err
	}
	after, err = fileSize(path)
	return before, after, err
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

