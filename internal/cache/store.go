package cache

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/phi-engine/internal/tensor"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key         TEXT PRIMARY KEY,
	shape       BLOB NOT NULL,
	payload     BLOB NOT NULL,
	size        INTEGER NOT NULL,
	touched_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_touched ON cache_entries(touched_at);
`

// #endregion schema

// #region store-struct

// Store persists cached tensors (notably the exponential Hamming cost
// matrices) across processes. It offers exactly the get/put/evict-by-LRU
// semantics the memoization layer needs and nothing else.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor

// OpenStore opens a sqlite database and runs migrations.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle so collaborators (the analysis log) can
// share one database file.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// #endregion constructor

// #region get-put

// PutTensor stores a tensor under the given key, replacing any previous
// value and refreshing its recency.
func (s *Store) PutTensor(key string, t *tensor.Dense) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(
		`INSERT INTO cache_entries (key, shape, payload, size, touched_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   shape = excluded.shape,
		   payload = excluded.payload,
		   size = excluded.size,
		   touched_at = excluded.touched_at`,
		key, shapeToBlob(t.Shape()), dataToBlob(t.Ravel()), Sizeof(t), now,
	)
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// GetTensor loads a tensor by key and refreshes its recency. The second
// return value reports whether the key existed.
func (s *Store) GetTensor(key string) (*tensor.Dense, bool, error) {
	var shapeBlob, payload []byte
	err := s.db.QueryRow(
		`SELECT shape, payload FROM cache_entries WHERE key = ?`, key,
	).Scan(&shapeBlob, &payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.Exec(`UPDATE cache_entries SET touched_at = ? WHERE key = ?`, now, key); err != nil {
		return nil, false, fmt.Errorf("touch cache entry: %w", err)
	}
	t, err := tensor.FromData(blobToData(payload), blobToShape(shapeBlob)...)
	if err != nil {
		return nil, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return t, true, nil
}

// #endregion get-put

// #region evict

// EvictToBudget deletes least-recently-touched entries until the stored
// bytes fit the budget. Returns the number of evicted entries.
func (s *Store) EvictToBudget(budget int64) (int64, error) {
	var used int64
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(size), 0) FROM cache_entries`).Scan(&used); err != nil {
		return 0, fmt.Errorf("cache usage: %w", err)
	}
	var evicted int64
	for used > budget {
		var key string
		var size int64
		err := s.db.QueryRow(
			`SELECT key, size FROM cache_entries ORDER BY touched_at ASC LIMIT 1`,
		).Scan(&key, &size)
		if err == sql.ErrNoRows {
			break
		}
		if err != nil {
			return evicted, fmt.Errorf("pick eviction victim: %w", err)
		}
		if _, err := s.db.Exec(`DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
			return evicted, fmt.Errorf("evict cache entry: %w", err)
		}
		used -= size
		evicted++
	}
	return evicted, nil
}

// #endregion evict

// #region inspect

// Entry describes one persisted cache row for inspection tooling.
type Entry struct {
	Key       string
	Size      int64
	TouchedAt time.Time
}

// Entries lists the persisted rows, most recently touched first.
func (s *Store) Entries() ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT key, size, touched_at FROM cache_entries ORDER BY touched_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var touched string
		if err := rows.Scan(&e.Key, &e.Size, &touched); err != nil {
			return nil, err
		}
		e.TouchedAt, _ = time.Parse(time.RFC3339Nano, touched)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion inspect

// #region blobs

func shapeToBlob(shape []int) []byte {
	blob := make([]byte, 8*len(shape))
	for i, s := range shape {
		binary.LittleEndian.PutUint64(blob[i*8:], uint64(s))
	}
	return blob
}

func blobToShape(blob []byte) []int {
	shape := make([]int, len(blob)/8)
	for i := range shape {
		shape[i] = int(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return shape
}

func dataToBlob(data []float64) []byte {
	blob := make([]byte, 8*len(data))
	for i, f := range data {
		binary.LittleEndian.PutUint64(blob[i*8:], math.Float64bits(f))
	}
	return blob
}

func blobToData(blob []byte) []float64 {
	data := make([]float64, len(blob)/8)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return data
}

// #endregion blobs
