package analysis

import (
	"github.com/pingcap/tidb/pkg/parser/ast"
)

// extractWrite walks an INSERT/UPDATE/DELETE statement into a
// WriteInfo. AffectedRows is populated only when the WHERE clause
// reduces to exactly one condition and that condition is a direct
// equality or IN — anything else (several conditions, ranges, joins,
// subqueries) leaves it empty and the decider falls back to
// column/table-level reasoning.
func extractWrite(stmt ast.StmtNode) (*WriteInfo, error) {
	switch n := stmt.(type) {
	case *ast.InsertStmt:
		return extractInsert(n)
	case *ast.UpdateStmt:
		return extractUpdate(n)
	case *ast.DeleteStmt:
		return extractDelete(n)
	default:
		return nil, newUnsupported("statement is not INSERT/UPDATE/DELETE")
	}
}

func extractInsert(n *ast.InsertStmt) (*WriteInfo, error) {
	table, ok := singleTableName(n.Table)
	if !ok {
		return nil, newUnsupported("INSERT target table could not be resolved")
	}
	modified := make([]string, 0, len(n.Columns))
	for _, col := range n.Columns {
		modified = append(modified, col.Name.String())
	}
	for _, assign := range n.Setlist {
		modified = append(modified, assign.Column.Name.String())
	}
	return &WriteInfo{
		Table:           table,
		Operation:       WriteInsert,
		ModifiedColumns: modified,
	}, nil
}

func extractUpdate(n *ast.UpdateStmt) (*WriteInfo, error) {
	if n.TableRefs == nil || n.TableRefs.TableRefs == nil {
		return nil, newUnsupported("UPDATE has no target table")
	}
	table, ok := singleTableName(n.TableRefs.TableRefs)
	if !ok {
		return nil, newUnsupported("UPDATE target table could not be resolved")
	}

	modified := make([]string, 0, len(n.List))
	for _, assign := range n.List {
		modified = append(modified, assign.Column.Name.String())
	}

	var conds []Condition
	if n.Where != nil {
		conds, _ = flattenConditions(n.Where)
	}

	return &WriteInfo{
		Table:           table,
		Operation:       WriteUpdate,
		ModifiedColumns: modified,
		Conditions:      conds,
		AffectedRows:    affectedRowsFromConditions(conds),
	}, nil
}

func extractDelete(n *ast.DeleteStmt) (*WriteInfo, error) {
	if n.TableRefs == nil || n.TableRefs.TableRefs == nil {
		return nil, newUnsupported("DELETE has no target table")
	}
	table, ok := singleTableName(n.TableRefs.TableRefs)
	if !ok {
		return nil, newUnsupported("DELETE target table could not be resolved")
	}

	var conds []Condition
	if n.Where != nil {
		conds, _ = flattenConditions(n.Where)
	}

	return &WriteInfo{
		Table:        table,
		Operation:    WriteDelete,
		Conditions:   conds,
		AffectedRows: affectedRowsFromConditions(conds),
	}, nil
}

// singleTableName resolves a FROM/target clause that must name
// exactly one plain table (no joins, no derived tables).
func singleTableName(node ast.ResultSetNode) (string, bool) {
	src, ok := node.(*ast.TableSource)
	if ok {
		tn, ok := src.Source.(*ast.TableName)
		if !ok {
			return "", false
		}
		return tn.Name.String(), true
	}
	if join, ok := node.(*ast.Join); ok && join.Right == nil {
		return singleTableName(join.Left)
	}
	if tn, ok := node.(*ast.TableName); ok {
		return tn.Name.String(), true
	}
	return "", false
}

// affectedRowsFromConditions recovers concrete row identifiers when
// the write is keyed by a bare equality or IN list on a single column
// (`WHERE id = 7`, `WHERE id IN (1,2,3)`). Anything else — ranges,
// multiple ANDed columns, OR, subqueries — yields no affected rows.
func affectedRowsFromConditions(conds []Condition) []string {
	if len(conds) != 1 {
		return nil
	}
	c := conds[0]
	switch c.Operator {
	case OpEq:
		if s, ok := scalarString(c.Value); ok {
			return []string{s}
		}
	case OpIn:
		if list, ok := c.Value.([]interface{}); ok {
			rows := make([]string, 0, len(list))
			for _, v := range list {
				if s, ok := scalarString(v); ok {
					rows = append(rows, s)
				}
			}
			return rows
		}
	}
	return nil
}

func scalarString(v interface{}) (string, bool) {
	if v == nil {
		return "", false
	}
	return toStringValue(v), true
}
