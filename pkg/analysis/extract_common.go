package analysis

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
)

// flattenConditions walks a WHERE/ON expression tree and reduces it to
// a flat Condition list. AND and OR are both flattened by
// concatenation: every condition is treated as if conjunctive. This is
// unsound for disjunctions (`WHERE id=1 OR id=2` becomes
// indistinguishable from the AND form) — a documented limitation
// carried over deliberately rather than silently "fixed", since fixing
// it changes what the fingerprint and decider consider equivalent.
func flattenConditions(expr ast.ExprNode) ([]Condition, bool) {
	if expr == nil {
		return nil, false
	}

	switch n := expr.(type) {
	case *ast.ParenthesesExpr:
		return flattenConditions(n.Expr)

	case *ast.BinaryOperationExpr:
		switch n.Op.String() {
		case "&&", "||":
			leftConds, leftSub := flattenConditions(n.L)
			rightConds, rightSub := flattenConditions(n.R)
			return append(leftConds, rightConds...), leftSub || rightSub
		default:
			cond, sub, ok := convertComparison(n)
			if !ok {
				return nil, sub
			}
			return []Condition{cond}, sub
		}

	default:
		cond, sub, ok := convertLeaf(expr)
		if !ok {
			return nil, sub
		}
		return []Condition{cond}, sub
	}
}

var comparisonOps = map[string]Operator{
	"=":  OpEq,
	"!=": OpNeq,
	"<>": OpNeq,
	">":  OpGt,
	"<":  OpLt,
	">=": OpGte,
	"<=": OpLte,
}

// convertComparison handles a leaf binary comparison (=, !=, >, <, >=,
// <=). One side must be a column reference and the other a literal or
// correlated subquery; anything else cannot be turned into a
// Condition and is reported via the subquery flag only.
func convertComparison(n *ast.BinaryOperationExpr) (Condition, bool, bool) {
	op, ok := comparisonOps[n.Op.String()]
	if !ok {
		return Condition{}, false, false
	}

	col, colOK := columnRefName(n.L)
	val, valOK := literalValue(n.R)
	if !colOK {
		col, colOK = columnRefName(n.R)
		val, valOK = literalValue(n.L)
	}
	if _, isSub := n.L.(*ast.SubqueryExpr); isSub {
		return Condition{}, true, false
	}
	if _, isSub := n.R.(*ast.SubqueryExpr); isSub {
		return Condition{}, true, false
	}
	if !colOK {
		return Condition{}, false, false
	}
	if !valOK {
		return Condition{}, false, false
	}
	return Condition{Column: col, Operator: op, Value: val}, false, true
}

// convertLeaf handles IN/NOT IN, BETWEEN/NOT BETWEEN, IS [NOT] NULL,
// LIKE/NOT LIKE and EXISTS/NOT EXISTS leaves.
func convertLeaf(expr ast.ExprNode) (Condition, bool, bool) {
	switch n := expr.(type) {
	case *ast.PatternInExpr:
		col, ok := columnRefName(n.Expr)
		if !ok {
			return Condition{}, false, false
		}
		if n.Sel != nil {
			// IN (<SELECT ...>) — recorded only via hasSubquery.
			return Condition{}, true, false
		}
		values := make([]interface{}, 0, len(n.List))
		for _, item := range n.List {
			if v, ok := literalValue(item); ok {
				values = append(values, v)
			}
		}
		op := OpIn
		if n.Not {
			op = OpNotIn
		}
		return Condition{Column: col, Operator: op, Value: values}, false, true

	case *ast.BetweenExpr:
		col, ok := columnRefName(n.Expr)
		if !ok {
			return Condition{}, false, false
		}
		low, _ := literalValue(n.Left)
		high, _ := literalValue(n.Right)
		op := OpBetween
		if n.Not {
			op = OpNotBetween
		}
		return Condition{Column: col, Operator: op, Value: []interface{}{low, high}}, false, true

	case *ast.IsNullExpr:
		col, ok := columnRefName(n.Expr)
		if !ok {
			return Condition{}, false, false
		}
		op := OpIsNull
		if n.Not {
			op = OpIsNotNull
		}
		return Condition{Column: col, Operator: op}, false, true

	case *ast.PatternLikeOrIlikeExpr:
		col, ok := columnRefName(n.Expr)
		if !ok {
			return Condition{}, false, false
		}
		pattern, _ := literalValue(n.Pattern)
		op := OpLike
		if n.Not {
			op = OpNotLike
		}
		return Condition{Column: col, Operator: op, Value: pattern}, false, true

	case *ast.ExistsSubqueryExpr:
		op := OpExists
		if n.Not {
			op = OpNotExists
		}
		return Condition{Column: "EXISTS", Operator: op}, true, true

	case *ast.SubqueryExpr:
		return Condition{}, true, false

	default:
		return Condition{}, false, false
	}
}

// columnRefName returns the (possibly qualified) column name for a
// ColumnNameExpr, or ok=false for anything else.
func columnRefName(expr ast.ExprNode) (string, bool) {
	col, ok := expr.(*ast.ColumnNameExpr)
	if !ok {
		return "", false
	}
	return qualifiedColumnName(col), true
}

func qualifiedColumnName(col *ast.ColumnNameExpr) string {
	name := col.Name.Name.String()
	if col.Name.Table.L != "" {
		return col.Name.Table.String() + "." + name
	}
	return name
}

// literalValue extracts a Go value from a value expression.
func literalValue(expr ast.ExprNode) (interface{}, bool) {
	if expr == nil {
		return nil, false
	}
	if v, ok := expr.(ast.ValueExpr); ok {
		return v.GetValue(), true
	}
	return nil, false
}

// tableQualifier returns the leading "qualifier." prefix of a column
// string, if any, and the bare suffix.
func tableQualifier(col string) (qualifier, bare string) {
	if idx := strings.LastIndex(col, "."); idx >= 0 {
		return col[:idx], col[idx+1:]
	}
	return "", col
}

// toStringValue renders a bound literal value (as extracted by
// literalValue) to its plain string form, used for row identifiers and
// fingerprint rendering.
func toStringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// resolveOwner picks which TableAccess a condition/column belongs to
// given its qualifier (alias or table name), falling back to the
// anchor table (index 0) when unqualified or unresolvable — the
// deliberate simplification spec.md §4.C documents.
func resolveOwner(qualifier string, aliasToTable map[string]string, tableOrder []string) string {
	if qualifier == "" {
		return tableOrder[0]
	}
	if table, ok := aliasToTable[qualifier]; ok {
		return table
	}
	return tableOrder[0]
}
