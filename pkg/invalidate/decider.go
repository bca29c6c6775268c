// Package invalidate holds the single analysis that decides whether a
// cached SELECT must be dropped in response to a write (§4.G). It
// reads the full analysis.CacheKey and analysis.WriteInfo; nothing
// downstream of this package ever reasons about invalidation from the
// fingerprint alone.
package invalidate

import (
	"strings"

	"github.com/cadabra-cache/cadabra/pkg/analysis"
)

// ShouldInvalidate returns true unless non-overlap between k and w can
// be proven. Every branch that cannot prove disjointness falls through
// to true — the conservative default §9 requires any future branch to
// preserve.
func ShouldInvalidate(k analysis.CacheKey, w analysis.WriteInfo) bool {
	if !tableGateOpen(k, w) {
		return false
	}

	switch w.Operation {
	case analysis.WriteInsert:
		return true
	case analysis.WriteDelete:
		return shouldInvalidateDelete(k, w)
	case analysis.WriteUpdate:
		return shouldInvalidateUpdate(k, w)
	default:
		return true
	}
}

func tableGateOpen(k analysis.CacheKey, w analysis.WriteInfo) bool {
	for _, t := range k.Tables {
		if t.Table == w.Table {
			return true
		}
	}
	return false
}

func anchor(k analysis.CacheKey) analysis.TableAccess {
	if len(k.Tables) == 0 {
		return analysis.TableAccess{}
	}
	return k.Tables[0]
}

func shouldInvalidateDelete(k analysis.CacheKey, w analysis.WriteInfo) bool {
	if k.Classification == analysis.ClassAggregate || k.Classification == analysis.ClassJoin {
		return true
	}
	cached := anchor(k)
	if len(w.Conditions) > 0 && len(cached.Conditions) > 0 && rangesDisjoint(cached.Conditions, w.Conditions) {
		return false
	}
	if len(w.AffectedRows) > 0 && hasEqualityOrIn(cached.Conditions) {
		return rowOverlap(cached.Conditions, w.AffectedRows)
	}
	return true
}

func shouldInvalidateUpdate(k analysis.CacheKey, w analysis.WriteInfo) bool {
	cached := anchor(k)

	// An aggregate's selected columns ("COUNT(*)", "SUM(total)") don't
	// name the WHERE/GROUP BY columns a modified column might overlap
	// with, so columnOverlap can't prove disjointness here; only range
	// analysis can, and otherwise the conservative default applies.
	if k.Classification == analysis.ClassAggregate {
		if len(w.Conditions) > 0 && len(cached.Conditions) > 0 && rangesDisjoint(cached.Conditions, w.Conditions) {
			return false
		}
		return true
	}

	if len(w.ModifiedColumns) == 0 {
		// Rare: only range/row-overlap checks apply.
		if len(w.Conditions) > 0 && len(cached.Conditions) > 0 && rangesDisjoint(cached.Conditions, w.Conditions) {
			return false
		}
		if len(w.AffectedRows) > 0 && hasEqualityOrIn(cached.Conditions) {
			return rowOverlap(cached.Conditions, w.AffectedRows)
		}
		return true
	}

	colOverlap := columnOverlap(cached.Columns, w.ModifiedColumns)
	joinOverlap := false
	if k.Classification == analysis.ClassJoin {
		joinOverlap = joinColumnOverlap(cached.JoinConditions, w.ModifiedColumns, w.Table)
	}

	if !colOverlap && !joinOverlap {
		return false
	}

	if len(w.Conditions) > 0 && len(cached.Conditions) > 0 && rangesDisjoint(cached.Conditions, w.Conditions) {
		return false
	}

	if k.Classification == analysis.ClassJoin && (colOverlap || joinOverlap) {
		if len(w.AffectedRows) > 0 && len(cached.Conditions) > 0 {
			return rowOverlap(cached.Conditions, w.AffectedRows)
		}
		return true
	}

	// Single-table with column overlap.
	if len(w.AffectedRows) > 0 && len(cached.Conditions) > 0 {
		return rowOverlap(cached.Conditions, w.AffectedRows)
	}
	return true
}

// columnOverlap reports whether the cached selected-column list
// overlaps modifiedColumns: a bare "*" always overlaps, otherwise each
// selected entry is stripped of any aggregate wrapper (`FUNC(col)` →
// `col`) before comparing.
func columnOverlap(selected, modified []string) bool {
	modSet := make(map[string]bool, len(modified))
	for _, m := range modified {
		modSet[strings.ToLower(m)] = true
	}
	for _, s := range selected {
		if s == "*" || strings.HasSuffix(s, ".*") {
			return true
		}
		bare := strings.ToLower(StripAggregateWrapper(s))
		if modSet[bare] {
			return true
		}
	}
	return false
}

// StripAggregateWrapper strips an aggregate call's outer wrapper
// (`FUNC(col)` -> `col`, `FUNC(t.col)` -> `col`), leaving any other
// column expression unchanged. Exported so pkg/store's column index
// keys use the same normalization as this package's overlap check.
func StripAggregateWrapper(col string) string {
	open := strings.IndexByte(col, '(')
	closeIdx := strings.LastIndexByte(col, ')')
	if open < 0 || closeIdx < 0 || closeIdx < open {
		return col
	}
	inner := col[open+1 : closeIdx]
	inner = strings.TrimSpace(inner)
	if inner == "*" {
		return inner
	}
	if idx := strings.LastIndex(inner, "."); idx >= 0 {
		inner = inner[idx+1:]
	}
	return inner
}

// joinColumnOverlap reports whether any modified column participates
// as leftColumn/rightColumn in a JoinCondition whose corresponding
// side is writeTable.
func joinColumnOverlap(joins []analysis.JoinCondition, modified []string, writeTable string) bool {
	modSet := make(map[string]bool, len(modified))
	for _, m := range modified {
		modSet[strings.ToLower(m)] = true
	}
	for _, j := range joins {
		if j.LeftTable == writeTable && modSet[strings.ToLower(j.LeftColumn)] {
			return true
		}
		if j.RightTable == writeTable && modSet[strings.ToLower(j.RightColumn)] {
			return true
		}
	}
	return false
}

func hasEqualityOrIn(conds []analysis.Condition) bool {
	for _, c := range conds {
		if c.Operator == analysis.OpEq || c.Operator == analysis.OpIn {
			return true
		}
	}
	return false
}

// rowOverlap compares the cached table's equality/IN conditions
// against the write's affected row identifiers.
func rowOverlap(conds []analysis.Condition, affectedRows []string) bool {
	affected := make(map[string]bool, len(affectedRows))
	for _, r := range affectedRows {
		affected[r] = true
	}

	found := false
	for _, c := range conds {
		switch c.Operator {
		case analysis.OpEq:
			found = true
			if affected[toStr(c.Value)] {
				return true
			}
		case analysis.OpIn:
			found = true
			for _, v := range toList(c.Value) {
				if affected[toStr(v)] {
					return true
				}
			}
		}
	}
	if !found {
		return true
	}
	return false
}
