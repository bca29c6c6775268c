package analysis

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	inQuestionPattern = regexp.MustCompile(`(?i)IN\s*\(\s*\?\s*\)|\?`)
	dollarPattern     = regexp.MustCompile(`\$(\d+)`)
	namedPattern      = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)
)

// BindParams inlines bound parameters into sql so later analysis
// stages see literal values instead of placeholders (§4.A). params
// may be an ordered slice (positional `?`/`$N` styles), a
// map[string]interface{} (named `:name` style), or nil. At most one
// placeholder style is expected to appear in sql; if none is detected,
// or params carries nothing, sql is returned unchanged.
func BindParams(sql string, params interface{}) (string, error) {
	positional, named, hasParams := splitParams(params)

	if strings.Contains(sql, "?") {
		if !hasParams {
			return sql, nil
		}
		return bindPositionalQuestion(sql, positional)
	}
	if dollarPattern.MatchString(sql) {
		if !hasParams {
			return sql, nil
		}
		return bindDollar(sql, positional), nil
	}
	if namedPattern.MatchString(sql) {
		if !hasParams {
			return sql, nil
		}
		return bindNamed(sql, named), nil
	}
	return sql, nil
}

func splitParams(params interface{}) (positional []interface{}, named map[string]interface{}, has bool) {
	switch p := params.(type) {
	case nil:
		return nil, nil, false
	case []interface{}:
		return p, nil, len(p) > 0
	case map[string]interface{}:
		return nil, p, len(p) > 0
	default:
		return nil, nil, false
	}
}

func bindPositionalQuestion(sql string, params []interface{}) (string, error) {
	idx := 0
	var sb strings.Builder
	last := 0
	matches := inQuestionPattern.FindAllStringIndex(sql, -1)
	for _, m := range matches {
		start, end := m[0], m[1]
		sb.WriteString(sql[last:start])

		if idx >= len(params) {
			sb.WriteString(sql[start:end])
			last = end
			continue
		}
		val := params[idx]
		idx++

		matched := sql[start:end]
		if matched != "?" {
			// IN (?) form: reuse the surrounding parens.
			list := toList(val)
			rendered := make([]string, 0, len(list))
			for _, v := range list {
				rendered = append(rendered, formatValue(v))
			}
			sb.WriteString("IN (" + strings.Join(rendered, ",") + ")")
		} else {
			sb.WriteString(formatValue(val))
		}
		last = end
	}
	sb.WriteString(sql[last:])
	return sb.String(), nil
}

func bindDollar(sql string, params []interface{}) string {
	return dollarPattern.ReplaceAllStringFunc(sql, func(m string) string {
		n, err := strconv.Atoi(dollarPattern.FindStringSubmatch(m)[1])
		if err != nil || n < 1 || n > len(params) {
			return m
		}
		return formatValue(params[n-1])
	})
}

func bindNamed(sql string, named map[string]interface{}) string {
	return namedPattern.ReplaceAllStringFunc(sql, func(m string) string {
		name := m[1:]
		val, ok := named[name]
		if !ok {
			return m
		}
		return formatValue(val)
	})
}

func toList(v interface{}) []interface{} {
	if list, ok := v.([]interface{}); ok {
		return list
	}
	return []interface{}{v}
}

func formatValue(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	switch val := v.(type) {
	case []interface{}:
		rendered := make([]string, 0, len(val))
		for _, item := range val {
			rendered = append(rendered, formatValue(item))
		}
		return "(" + strings.Join(rendered, ",") + ")"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", val)
	}
}
