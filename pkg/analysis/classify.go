package analysis

import "strings"

// classify buckets a selectShape into one of the four Classification
// values (§4.E): complex wins whenever a subquery or set operation is
// present; otherwise an aggregate function in the select list wins;
// otherwise more than one table makes it a join; otherwise a bare
// equality/IN condition on an id/uuid column makes it a row-lookup;
// anything left over is complex.
func classify(s *selectShape) Classification {
	switch {
	case s.HasSubquery || s.SetOperation != "":
		return ClassComplex
	case s.HasAggregate:
		return ClassAggregate
	case len(s.Tables) > 1:
		return ClassJoin
	case hasPrimaryKeyCondition(s.Tables[0]):
		return ClassRowLookup
	default:
		return ClassComplex
	}
}

// hasPrimaryKeyCondition reports whether t carries an equality or IN
// condition on a column named id or uuid (case-insensitive).
func hasPrimaryKeyCondition(t TableAccess) bool {
	for _, c := range t.Conditions {
		if c.Operator != OpEq && c.Operator != OpIn {
			continue
		}
		_, bare := tableQualifier(c.Column)
		lower := strings.ToLower(bare)
		if lower == "id" || lower == "uuid" {
			return true
		}
	}
	return false
}
