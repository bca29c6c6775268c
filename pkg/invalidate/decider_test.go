package invalidate

import (
	"testing"

	"github.com/cadabra-cache/cadabra/pkg/analysis"
)

func mustAnalyzeSelect(t *testing.T, a *analysis.Analyzer, sql string, params interface{}) analysis.CacheKey {
	t.Helper()
	k, err := a.AnalyzeSelect(sql, params)
	if err != nil {
		t.Fatalf("AnalyzeSelect(%q): %v", sql, err)
	}
	return *k
}

func mustAnalyzeWrite(t *testing.T, a *analysis.Analyzer, sql string, params interface{}) analysis.WriteInfo {
	t.Helper()
	w, err := a.AnalyzeWrite(sql, params)
	if err != nil {
		t.Fatalf("AnalyzeWrite(%q): %v", sql, err)
	}
	return *w
}

func TestShouldInvalidateColumnOverlap(t *testing.T) {
	a := analysis.New()
	k := mustAnalyzeSelect(t, a, "SELECT name FROM users WHERE id = ?", []interface{}{10})
	w := mustAnalyzeWrite(t, a, "UPDATE users SET email = ? WHERE id = ?", []interface{}{"x@y", 10})
	if ShouldInvalidate(k, w) {
		t.Fatal("expected no invalidation: selected column (name) does not overlap modified column (email)")
	}
}

func TestShouldInvalidateRowNonOverlapForInCache(t *testing.T) {
	a := analysis.New()
	k := mustAnalyzeSelect(t, a, "SELECT * FROM users WHERE id IN (?)", []interface{}{[]interface{}{1, 2, 3}})
	w := mustAnalyzeWrite(t, a, "UPDATE users SET name = ? WHERE id = ?", []interface{}{"X", 99})
	if ShouldInvalidate(k, w) {
		t.Fatal("expected no invalidation: affected row 99 is not in the cached IN-list")
	}
}

func TestShouldInvalidateInsertAlwaysInvalidates(t *testing.T) {
	a := analysis.New()
	k := mustAnalyzeSelect(t, a, "SELECT * FROM users WHERE status = 'active'", nil)
	w := mustAnalyzeWrite(t, a, "INSERT INTO users (id, name) VALUES (?, ?)", []interface{}{99, "New"})
	if !ShouldInvalidate(k, w) {
		t.Fatal("expected invalidation: INSERT always invalidates matching tables")
	}
}

func TestShouldInvalidateRangeNonOverlap(t *testing.T) {
	a := analysis.New()
	k := mustAnalyzeSelect(t, a, "SELECT COUNT(*) FROM users WHERE created_at >= '2024-01-01'", nil)
	w := mustAnalyzeWrite(t, a, "UPDATE users SET name = 'X' WHERE created_at < '2023-01-01'", nil)
	if ShouldInvalidate(k, w) {
		t.Fatal("expected no invalidation: disjoint created_at ranges")
	}
}

func TestShouldInvalidateTableGate(t *testing.T) {
	a := analysis.New()
	k := mustAnalyzeSelect(t, a, "SELECT * FROM users WHERE id = ?", []interface{}{10})
	w := mustAnalyzeWrite(t, a, "UPDATE orders SET status = ? WHERE id = ?", []interface{}{"shipped", 1})
	if ShouldInvalidate(k, w) {
		t.Fatal("expected no invalidation: write targets a different table")
	}
}

func TestShouldInvalidateRowOverlapMatches(t *testing.T) {
	a := analysis.New()
	k := mustAnalyzeSelect(t, a, "SELECT name FROM users WHERE id = ?", []interface{}{10})
	w := mustAnalyzeWrite(t, a, "UPDATE users SET name = ? WHERE id = ?", []interface{}{"new-name", 10})
	if !ShouldInvalidate(k, w) {
		t.Fatal("expected invalidation: same row, overlapping column")
	}
}

// Column overlap only ever reads the anchor table's selected columns
// (table zero); a write to a non-anchor joined table's non-join
// column is invisible to it unless join-column overlap also catches
// it. This mirrors the documented "conditions attach to table zero
// only" simplification extended to columns, not a decider bug.
func TestShouldInvalidateJoinNonAnchorColumnNotDetected(t *testing.T) {
	a := analysis.New()
	k := mustAnalyzeSelect(t, a, "SELECT orders.id, users.name FROM orders JOIN users ON orders.user_id = users.id", nil)
	w := mustAnalyzeWrite(t, a, "UPDATE users SET name = ? WHERE id = ?", []interface{}{"X", 5})
	if ShouldInvalidate(k, w) {
		t.Fatal("expected no invalidation: modified column is only selected on the non-anchor joined table")
	}
}

func TestShouldInvalidateJoinKeyColumnDetectedViaJoinOverlap(t *testing.T) {
	a := analysis.New()
	k := mustAnalyzeSelect(t, a, "SELECT orders.id, users.name FROM orders JOIN users ON orders.user_id = users.id", nil)
	w := mustAnalyzeWrite(t, a, "UPDATE users SET id = ? WHERE id = ?", []interface{}{5, 5})
	if !ShouldInvalidate(k, w) {
		t.Fatal("expected invalidation: modified column participates in the join's ON clause")
	}
}
