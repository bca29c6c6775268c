package store

import (
	"encoding/json"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/cadabra-cache/cadabra/pkg/analysis"
	"github.com/cadabra-cache/cadabra/pkg/invalidate"
)

// Register stores result under k.Fingerprint and populates the four
// secondary indexes (§4.H). All index inserts are insert-or-ignore;
// the cache row itself is insert-or-replace.
func (s *Store) Register(k analysis.CacheKey, result []byte, registeredAtUnix int64) error {
	entry := &CacheEntry{
		Fingerprint:      k.Fingerprint,
		ResultBlob:       result,
		CacheKey:         k,
		RegisteredAtUnix: registeredAtUnix,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return storageFailed("marshal cache entry: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(cacheKey(k.Fingerprint), data); err != nil {
			return err
		}
		for _, t := range k.Tables {
			if err := txn.Set(byTableKey(t.Table, k.Fingerprint), nil); err != nil {
				return err
			}
			for _, rowID := range primaryKeyValues(t) {
				if err := txn.Set(byRowKey(t.Table, rowID, k.Fingerprint), nil); err != nil {
					return err
				}
			}
			for _, col := range selectedColumnNames(t) {
				if err := txn.Set(byColumnKey(t.Table, col, k.Fingerprint), nil); err != nil {
					return err
				}
			}
			if k.Classification == analysis.ClassAggregate {
				if err := txn.Set(byAggregateKey(t.Table, k.Fingerprint), nil); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return storageFailed("register %s: %w", k.Fingerprint, err)
	}

	s.lru.Add(k.Fingerprint, entry)
	return nil
}

// Get returns the stored result for fp, checking the in-process LRU
// first. ok is false when no entry exists.
func (s *Store) Get(fp string) (result []byte, ok bool, err error) {
	if entry, hit := s.lru.Get(fp); hit {
		return entry.ResultBlob, true, nil
	}

	var entry CacheEntry
	found := false
	txErr := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(fp))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if txErr != nil {
		return nil, false, storageFailed("get %s: %w", fp, txErr)
	}
	if !found {
		return nil, false, nil
	}

	s.lru.Add(fp, &entry)
	return entry.ResultBlob, true, nil
}

// Invalidate computes the candidate fingerprint set for w, runs the
// decider against each candidate's stored CacheKey, and deletes the
// chosen entries (cache row plus all four index rows) in one write
// transaction. Returns the number of entries deleted.
func (s *Store) Invalidate(w analysis.WriteInfo) (int, error) {
	candidates, err := s.candidateFingerprints(w)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	toDelete := make([]string, 0, len(candidates))
	for fp := range candidates {
		entry, ok, err := s.loadEntry(fp)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		if invalidate.ShouldInvalidate(entry.CacheKey, w) {
			toDelete = append(toDelete, fp)
		}
	}

	deleted, err := s.deleteEntries(toDelete)
	if err != nil {
		return 0, err
	}
	for _, fp := range deleted {
		s.lru.Remove(fp)
	}
	return len(deleted), nil
}

// WouldInvalidate runs the same candidate enumeration and decider pass
// as Invalidate but never deletes, for read-only "what would happen"
// callers (the HTTP façade's should-invalidate route).
func (s *Store) WouldInvalidate(w analysis.WriteInfo) (int, error) {
	candidates, err := s.candidateFingerprints(w)
	if err != nil {
		return 0, err
	}

	count := 0
	for fp := range candidates {
		entry, ok, err := s.loadEntry(fp)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		if invalidate.ShouldInvalidate(entry.CacheKey, w) {
			count++
		}
	}
	return count, nil
}

// ClearTable deletes every cache entry that references table name.
// Returns the number of entries actually deleted, so calling it twice
// in a row yields N then 0.
func (s *Store) ClearTable(name string) (int, error) {
	fps, err := s.scanPrefix(byTablePrefix(name))
	if err != nil {
		return 0, err
	}
	unique := dedupe(fps)
	deleted, err := s.deleteEntries(unique)
	if err != nil {
		return 0, err
	}
	for _, fp := range deleted {
		s.lru.Remove(fp)
	}
	return len(deleted), nil
}

// Metrics is a snapshot of cache and index sizes (§4.H metrics()).
type Metrics struct {
	CacheEntries         int            `json:"cache_entries"`
	EntriesPerTable      map[string]int `json:"entries_per_table"`
	ByTableIndexSize     int            `json:"by_table_index_size"`
	ByRowIndexSize       int            `json:"by_row_index_size"`
	ByColumnIndexSize    int            `json:"by_column_index_size"`
	ByAggregateIndexSize int            `json:"by_aggregate_index_size"`
}

func (s *Store) Metrics() (Metrics, error) {
	m := Metrics{EntriesPerTable: map[string]int{}}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			switch {
			case strings.HasPrefix(key, prefixCache):
				m.CacheEntries++
			case strings.HasPrefix(key, prefixByTable):
				m.ByTableIndexSize++
				// Table names can't contain ':', but a row-lookup
				// fingerprint can (fingerprint.go rowLookupFingerprint),
				// so the table/fingerprint boundary is the first ':',
				// not the last.
				rest := strings.TrimPrefix(key, prefixByTable)
				table := rest
				if idx := strings.Index(rest, ":"); idx >= 0 {
					table = rest[:idx]
				}
				m.EntriesPerTable[table]++
			case strings.HasPrefix(key, prefixByRow):
				m.ByRowIndexSize++
			case strings.HasPrefix(key, prefixByColumn):
				m.ByColumnIndexSize++
			case strings.HasPrefix(key, prefixByAggregate):
				m.ByAggregateIndexSize++
			}
		}
		return nil
	})
	if err != nil {
		return Metrics{}, storageFailed("metrics: %w", err)
	}
	return m, nil
}

func (s *Store) loadEntry(fp string) (*CacheEntry, bool, error) {
	if entry, hit := s.lru.Get(fp); hit {
		return entry, true, nil
	}
	var entry CacheEntry
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(fp))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return nil, false, storageFailed("load entry %s: %w", fp, err)
	}
	if !found {
		return nil, false, nil
	}
	return &entry, true, nil
}

// candidateFingerprints implements the enumeration rule of §4.H
// invalidate(): by_row + by_column when affectedRows/modifiedColumns
// are known, always by_table, plus by_aggregate for INSERT/DELETE.
func (s *Store) candidateFingerprints(w analysis.WriteInfo) (map[string]struct{}, error) {
	out := map[string]struct{}{}

	add := func(fps []string) { for _, fp := range fps { out[fp] = struct{}{} } }

	if len(w.AffectedRows) > 0 {
		for _, rowID := range w.AffectedRows {
			fps, err := s.scanPrefix(byRowPrefix(w.Table, rowID))
			if err != nil {
				return nil, err
			}
			add(fps)
		}
		if len(w.ModifiedColumns) > 0 {
			for _, col := range w.ModifiedColumns {
				fps, err := s.scanPrefix(byColumnPrefix(w.Table, strings.ToLower(col)))
				if err != nil {
					return nil, err
				}
				add(fps)
			}
		}
	}

	fps, err := s.scanPrefix(byTablePrefix(w.Table))
	if err != nil {
		return nil, err
	}
	add(fps)

	if w.Operation == analysis.WriteInsert || w.Operation == analysis.WriteDelete {
		fps, err := s.scanPrefix(byAggregatePrefix(w.Table))
		if err != nil {
			return nil, err
		}
		add(fps)
	}

	return out, nil
}

// scanPrefix returns the fingerprint suffix of every key under prefix.
// The suffix is recovered by trimming the exact prefix bytes rather
// than splitting on ":", since a row-lookup fingerprint
// ("users:id=10:row-lookup") itself contains colons.
func (s *Store) scanPrefix(prefix []byte) ([]string, error) {
	var fps []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			fps = append(fps, string(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, storageFailed("scan prefix: %w", err)
	}
	return fps, nil
}

// deleteEntries removes the cache row and every secondary-index row
// for each fingerprint in fps, under one write transaction, by
// re-deriving each index key from the stored CacheKey. Returns the
// subset of fps that actually had a cache row (fingerprints already
// absent from Badger are silently skipped, not counted as deleted).
func (s *Store) deleteEntries(fps []string) ([]string, error) {
	if len(fps) == 0 {
		return nil, nil
	}
	deleted := make([]string, 0, len(fps))
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, fp := range fps {
			item, err := txn.Get(cacheKey(fp))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			var entry CacheEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return err
			}

			if err := txn.Delete(cacheKey(fp)); err != nil {
				return err
			}
			for _, t := range entry.CacheKey.Tables {
				if err := txn.Delete(byTableKey(t.Table, fp)); err != nil {
					return err
				}
				for _, rowID := range primaryKeyValues(t) {
					if err := txn.Delete(byRowKey(t.Table, rowID, fp)); err != nil {
						return err
					}
				}
				for _, col := range selectedColumnNames(t) {
					if err := txn.Delete(byColumnKey(t.Table, col, fp)); err != nil {
						return err
					}
				}
				if entry.CacheKey.Classification == analysis.ClassAggregate {
					if err := txn.Delete(byAggregateKey(t.Table, fp)); err != nil {
						return err
					}
				}
			}
			deleted = append(deleted, fp)
		}
		return nil
	})
	if err != nil {
		return nil, storageFailed("delete entries: %w", err)
	}
	return deleted, nil
}

func dedupe(fps []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(fps))
	for _, fp := range fps {
		if !seen[fp] {
			seen[fp] = true
			out = append(out, fp)
		}
	}
	return out
}

// primaryKeyValues returns the row identifiers to index for t, i.e.
// the values of an equality/IN condition on an id/uuid column — the
// same primary-key test the classifier uses (§4.E).
func primaryKeyValues(t analysis.TableAccess) []string {
	var ids []string
	for _, c := range t.Conditions {
		if c.Operator != analysis.OpEq && c.Operator != analysis.OpIn {
			continue
		}
		bare := c.Column
		if idx := strings.LastIndex(bare, "."); idx >= 0 {
			bare = bare[idx+1:]
		}
		lower := strings.ToLower(bare)
		if lower != "id" && lower != "uuid" {
			continue
		}
		switch c.Operator {
		case analysis.OpEq:
			ids = append(ids, toStringValue(c.Value))
		case analysis.OpIn:
			if list, ok := c.Value.([]interface{}); ok {
				for _, v := range list {
					ids = append(ids, toStringValue(v))
				}
			}
		}
	}
	return ids
}

// selectedColumnNames returns t's selected columns, excluding "*",
// with any aggregate wrapper stripped (§4.H register()).
func selectedColumnNames(t analysis.TableAccess) []string {
	var cols []string
	for _, col := range t.Columns {
		if col == "*" || strings.HasSuffix(col, ".*") {
			continue
		}
		bare := invalidate.StripAggregateWrapper(col)
		if bare == "*" || bare == "" {
			continue
		}
		cols = append(cols, strings.ToLower(bare))
	}
	return cols
}

func toStringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return jsonScalar(val)
	}
}

func jsonScalar(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	s := string(b)
	return strings.Trim(s, `"`)
}
