package analysis

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	spaceAroundPunc = regexp.MustCompile(`\s*([(),])\s*`)
	backtickIdent   = regexp.MustCompile("`([A-Za-z_][A-Za-z0-9_]*)`")
	aliasDef        = regexp.MustCompile(`(?i)(FROM|JOIN)\s+([A-Za-z_][A-Za-z0-9_]*)(?:\s+AS)?\s+(t[0-9]+)\b`)
	inListPattern   = regexp.MustCompile(`(?i)\bIN\s*\(([^()]*)\)`)
)

// Normalize produces a canonical textual rendering of sql: collapsed
// whitespace, no space padding around commas/parens, backticks
// stripped from simple identifiers, ORM-style aliases (t0, t1, ...)
// rewritten back to their table names, and the contents of every
// `IN (...)` literal reordered (numeric ascending if every member
// parses as a number, lexicographic otherwise). The result is carried
// as CacheKey.NormalizedSQL for diagnostics only — fingerprinting
// operates on the structured form, not this string.
func Normalize(sql string) string {
	s := strings.TrimSpace(whitespaceRun.ReplaceAllString(sql, " "))
	s = spaceAroundPunc.ReplaceAllString(s, "$1")
	s = backtickIdent.ReplaceAllString(s, "$1")
	s = rewriteAliases(s)
	s = reorderInLists(s)
	return s
}

func rewriteAliases(s string) string {
	aliases := map[string]string{}
	for _, m := range aliasDef.FindAllStringSubmatch(s, -1) {
		aliases[m[3]] = m[2]
	}
	if len(aliases) == 0 {
		return s
	}
	return regexp.MustCompile(`\bt[0-9]+\b`).ReplaceAllStringFunc(s, func(alias string) string {
		if table, ok := aliases[alias]; ok {
			return table
		}
		return alias
	})
}

func reorderInLists(s string) string {
	return inListPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := inListPattern.FindStringSubmatch(m)
		inner := sub[1]
		parts := splitTopLevel(inner)
		if len(parts) < 2 {
			return m
		}
		sorted := sortValues(parts)
		prefix := m[:strings.Index(strings.ToUpper(m), "IN")+2]
		return prefix + "(" + strings.Join(sorted, ",") + ")"
	})
}

// splitTopLevel splits a comma list while respecting single-quoted
// string literals (a comma inside quotes does not separate items).
func splitTopLevel(s string) []string {
	var parts []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' && !inQuote:
			inQuote = true
			cur.WriteByte(c)
		case c == '\'' && inQuote:
			inQuote = false
			cur.WriteByte(c)
		case c == ',' && !inQuote:
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 || len(parts) > 0 {
		parts = append(parts, strings.TrimSpace(cur.String()))
	}
	return parts
}

func sortValues(values []string) []string {
	allNumeric := true
	for _, v := range values {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			allNumeric = false
			break
		}
	}
	sorted := append([]string(nil), values...)
	if allNumeric {
		sort.Slice(sorted, func(i, j int) bool {
			a, _ := strconv.ParseFloat(sorted[i], 64)
			b, _ := strconv.ParseFloat(sorted[j], 64)
			return a < b
		})
	} else {
		sort.Strings(sorted)
	}
	return sorted
}
