// Package store is the cache façade (§4.H/§4.J): a Badger-backed
// cache_entries table plus four secondary indexes, fronted by an
// in-process LRU of deserialized results.
package store

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cadabra-cache/cadabra/pkg/analysis"
)

// Options configures a Store.
type Options struct {
	// DataDir is the Badger data directory. Empty means an
	// in-memory database.
	DataDir string
	// InMemory forces an in-memory database regardless of DataDir.
	InMemory bool
	// LRUCapacity bounds the in-process front cache of deserialized
	// results. Defaults to 1000 when zero.
	LRUCapacity int
}

func (o Options) withDefaults() Options {
	if o.LRUCapacity <= 0 {
		o.LRUCapacity = 1000
	}
	return o
}

// Store is the cache façade. All methods are safe for concurrent use.
// Register, Get and Metrics each run in a single Badger transaction.
// Invalidate and ClearTable read their candidates in separate read
// transactions and then delete all chosen entries in one write
// transaction, so the candidate read and the delete are not one
// atomic unit.
type Store struct {
	db  *badger.DB
	lru *lru.Cache[string, *CacheEntry]
}

// CacheEntry is the value stored under the cache table, kept alongside
// its CacheKey so invalidate can re-run the full decider rather than
// trusting the fingerprint alone (§4.F collision note).
type CacheEntry struct {
	Fingerprint      string            `json:"fingerprint"`
	ResultBlob       []byte            `json:"result_blob"`
	CacheKey         analysis.CacheKey `json:"cache_key"`
	RegisteredAtUnix int64             `json:"registered_at_unix"`
}

// Open opens (or creates) the Badger database at opts.DataDir.
func Open(opts Options) (*Store, error) {
	opts = opts.withDefaults()

	var badgerOpts badger.Options
	if opts.InMemory || opts.DataDir == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(opts.DataDir)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}

	front, err := lru.New[string, *CacheEntry](opts.LRUCapacity)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create lru: %w", err)
	}

	return &Store{db: db, lru: front}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
