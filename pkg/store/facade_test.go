package store

import (
	"testing"

	"github.com/cadabra-cache/cadabra/pkg/analysis"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func analyzeSelect(t *testing.T, sql string, params interface{}) analysis.CacheKey {
	t.Helper()
	k, err := analysis.New().AnalyzeSelect(sql, params)
	if err != nil {
		t.Fatalf("AnalyzeSelect(%q): %v", sql, err)
	}
	return *k
}

func analyzeWrite(t *testing.T, sql string, params interface{}) analysis.WriteInfo {
	t.Helper()
	w, err := analysis.New().AnalyzeWrite(sql, params)
	if err != nil {
		t.Fatalf("AnalyzeWrite(%q): %v", sql, err)
	}
	return *w
}

func TestRegisterAndGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	k := analyzeSelect(t, "SELECT * FROM users WHERE id = ?", []interface{}{10})

	if err := s.Register(k, []byte(`{"id":10,"name":"ann"}`), 1000); err != nil {
		t.Fatalf("Register: %v", err)
	}

	blob, ok, err := s.Get(k.Fingerprint)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected entry to be present")
	}
	if string(blob) != `{"id":10,"name":"ann"}` {
		t.Fatalf("unexpected blob: %s", blob)
	}
}

func TestGetMissingReturnsNotOK(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Get("does-not-exist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing entry")
	}
}

func TestInvalidateDeletesOnColumnOverlap(t *testing.T) {
	s := openTestStore(t)
	k := analyzeSelect(t, "SELECT name FROM users WHERE id = ?", []interface{}{10})
	if err := s.Register(k, []byte(`{}`), 1000); err != nil {
		t.Fatalf("Register: %v", err)
	}

	w := analyzeWrite(t, "UPDATE users SET name = ? WHERE id = ?", []interface{}{"new", 10})
	n, err := s.Invalidate(w)
	if err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted = %d, want 1", n)
	}
	if _, ok, _ := s.Get(k.Fingerprint); ok {
		t.Fatal("expected entry to be gone after invalidation")
	}
}

func TestInvalidatePreservesNonOverlapping(t *testing.T) {
	s := openTestStore(t)
	k := analyzeSelect(t, "SELECT name FROM users WHERE id = ?", []interface{}{10})
	if err := s.Register(k, []byte(`{}`), 1000); err != nil {
		t.Fatalf("Register: %v", err)
	}

	w := analyzeWrite(t, "UPDATE users SET email = ? WHERE id = ?", []interface{}{"x@y", 10})
	n, err := s.Invalidate(w)
	if err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if n != 0 {
		t.Fatalf("deleted = %d, want 0", n)
	}
	if _, ok, _ := s.Get(k.Fingerprint); !ok {
		t.Fatal("expected entry to survive non-overlapping write")
	}
}

func TestClearTableIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	k := analyzeSelect(t, "SELECT * FROM users WHERE id = ?", []interface{}{10})
	if err := s.Register(k, []byte(`{}`), 1000); err != nil {
		t.Fatalf("Register: %v", err)
	}

	n1, err := s.ClearTable("users")
	if err != nil {
		t.Fatalf("ClearTable: %v", err)
	}
	if n1 != 1 {
		t.Fatalf("first clear = %d, want 1", n1)
	}

	n2, err := s.ClearTable("users")
	if err != nil {
		t.Fatalf("ClearTable: %v", err)
	}
	if n2 != 0 {
		t.Fatalf("second clear = %d, want 0", n2)
	}
}

func TestInsertAlwaysInvalidatesMatchingTable(t *testing.T) {
	s := openTestStore(t)
	k := analyzeSelect(t, "SELECT * FROM users WHERE status = 'active'", nil)
	if err := s.Register(k, []byte(`{}`), 1000); err != nil {
		t.Fatalf("Register: %v", err)
	}

	w := analyzeWrite(t, "INSERT INTO users (id, name) VALUES (?, ?)", []interface{}{99, "New"})
	n, err := s.Invalidate(w)
	if err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted = %d, want 1", n)
	}
}

func TestMetricsCountsEntries(t *testing.T) {
	s := openTestStore(t)
	k := analyzeSelect(t, "SELECT * FROM users WHERE id = ?", []interface{}{10})
	if err := s.Register(k, []byte(`{}`), 1000); err != nil {
		t.Fatalf("Register: %v", err)
	}

	m, err := s.Metrics()
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if m.CacheEntries != 1 {
		t.Fatalf("cache entries = %d, want 1", m.CacheEntries)
	}
	if m.EntriesPerTable["users"] != 1 {
		t.Fatalf("entries for users = %d, want 1", m.EntriesPerTable["users"])
	}
}
