package invalidate

import (
	"fmt"
	"strconv"

	"github.com/cadabra-cache/cadabra/pkg/analysis"
)

// bound is an ordered scalar: either a float64 (numeric columns) or a
// string (everything else, including ISO-8601 date/time literals,
// whose lexicographic order matches chronological order). A column's
// mode is decided once, from every value seen on it across both sides,
// so `created_at >= '2024-01-01'` compares correctly against
// `created_at < '2023-01-01'` without a date parser.
type bound struct {
	numeric bool
	f       float64
	s       string
}

func boundLess(a, b bound) bool {
	if a.numeric && b.numeric {
		return a.f < b.f
	}
	return a.s < b.s
}

func boundEqual(a, b bound) bool {
	if a.numeric && b.numeric {
		return a.f == b.f
	}
	return a.s == b.s
}

// interval is a closed-or-open range with inclusivity flags.
type interval struct {
	hasLow, hasHigh   bool
	low, high         bound
	lowIncl, highIncl bool
}

// rangesDisjoint groups cached and write conditions by column and
// reports true iff at least one shared column can be proven disjoint
// (§4.G range analysis).
func rangesDisjoint(cached, write []analysis.Condition) bool {
	cachedByCol := groupByColumn(cached)
	writeByCol := groupByColumn(write)

	for col, cconds := range cachedByCol {
		wconds, ok := writeByCol[col]
		if !ok {
			continue
		}
		numeric := allNumeric(cconds) && allNumeric(wconds)

		cr, cok := buildInterval(cconds, numeric)
		wr, wok := buildInterval(wconds, numeric)
		if !cok || !wok {
			continue
		}
		if disjointIntervals(cr, wr) {
			return true
		}
	}
	return false
}

func groupByColumn(conds []analysis.Condition) map[string][]analysis.Condition {
	m := map[string][]analysis.Condition{}
	for _, c := range conds {
		_, bare := tableQualifierStrip(c.Column)
		m[bare] = append(m[bare], c)
	}
	return m
}

func tableQualifierStrip(col string) (qualifier, bare string) {
	for i := len(col) - 1; i >= 0; i-- {
		if col[i] == '.' {
			return col[:i], col[i+1:]
		}
	}
	return "", col
}

func allNumeric(conds []analysis.Condition) bool {
	for _, c := range conds {
		for _, v := range conditionScalars(c) {
			if _, ok := toFloat(v); !ok {
				return false
			}
		}
	}
	return true
}

func conditionScalars(c analysis.Condition) []interface{} {
	switch c.Operator {
	case analysis.OpBetween, analysis.OpIn:
		return toList(c.Value)
	default:
		if c.Value == nil {
			return nil
		}
		return []interface{}{c.Value}
	}
}

func toBound(v interface{}, numeric bool) (bound, bool) {
	if numeric {
		f, ok := toFloat(v)
		if !ok {
			return bound{}, false
		}
		return bound{numeric: true, f: f}, true
	}
	return bound{s: toStr(v)}, true
}

// buildInterval merges every condition on one column into a single
// interval; multiple conditions narrow it (e.g. `>= a AND < b`).
func buildInterval(conds []analysis.Condition, numeric bool) (interval, bool) {
	var r interval
	for _, c := range conds {
		switch c.Operator {
		case analysis.OpEq:
			b, ok := toBound(c.Value, numeric)
			if !ok {
				return r, false
			}
			narrow(&r, b, true, b, true)
		case analysis.OpGt:
			b, ok := toBound(c.Value, numeric)
			if !ok {
				return r, false
			}
			narrowLow(&r, b, false)
		case analysis.OpGte:
			b, ok := toBound(c.Value, numeric)
			if !ok {
				return r, false
			}
			narrowLow(&r, b, true)
		case analysis.OpLt:
			b, ok := toBound(c.Value, numeric)
			if !ok {
				return r, false
			}
			narrowHigh(&r, b, false)
		case analysis.OpLte:
			b, ok := toBound(c.Value, numeric)
			if !ok {
				return r, false
			}
			narrowHigh(&r, b, true)
		case analysis.OpBetween:
			list := toList(c.Value)
			if len(list) != 2 {
				return r, false
			}
			lo, lok := toBound(list[0], numeric)
			hi, hok := toBound(list[1], numeric)
			if !lok || !hok {
				return r, false
			}
			narrow(&r, lo, true, hi, true)
		case analysis.OpIn:
			list := toList(c.Value)
			if len(list) == 0 {
				return r, false
			}
			var lo, hi bound
			for i, v := range list {
				b, ok := toBound(v, numeric)
				if !ok {
					return r, false
				}
				if i == 0 || boundLess(b, lo) {
					lo = b
				}
				if i == 0 || boundLess(hi, b) {
					hi = b
				}
			}
			narrow(&r, lo, true, hi, true)
		default:
			return r, false
		}
	}
	if !r.hasLow && !r.hasHigh {
		return r, false
	}
	return r, true
}

func narrow(r *interval, lo bound, loIncl bool, hi bound, hiIncl bool) {
	narrowLow(r, lo, loIncl)
	narrowHigh(r, hi, hiIncl)
}

func narrowLow(r *interval, v bound, incl bool) {
	if !r.hasLow || boundLess(r.low, v) || (boundEqual(v, r.low) && !incl) {
		r.hasLow = true
		r.low = v
		r.lowIncl = incl
	}
}

func narrowHigh(r *interval, v bound, incl bool) {
	if !r.hasHigh || boundLess(v, r.high) || (boundEqual(v, r.high) && !incl) {
		r.hasHigh = true
		r.high = v
		r.highIncl = incl
	}
}

// disjointIntervals implements the boundary rule from §4.G: [a,b] and
// [c,d] are disjoint iff b<c, d<a, b=c with not-both-inclusive, or
// a=d with not-both-inclusive. A one-sided bound that the other
// interval doesn't constrain on the relevant side is treated as
// overlap (cannot prove disjoint).
func disjointIntervals(a, b interval) bool {
	if a.hasHigh && b.hasLow {
		if boundLess(a.high, b.low) {
			return true
		}
		if boundEqual(a.high, b.low) && !(a.highIncl && b.lowIncl) {
			return true
		}
	}
	if b.hasHigh && a.hasLow {
		if boundLess(b.high, a.low) {
			return true
		}
		if boundEqual(b.high, a.low) && !(b.highIncl && a.lowIncl) {
			return true
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toList(v interface{}) []interface{} {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	return list
}

func toStr(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
