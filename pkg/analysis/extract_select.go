package analysis

import (
	"regexp"
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
)

// selectShape is the intermediate result of walking a SELECT (or a
// branch of a set operation) before classification and fingerprinting.
type selectShape struct {
	Tables       []TableAccess
	OrderBy      []OrderByItem
	Limit        *int
	Offset       *int
	Distinct     bool
	HasSubquery  bool
	HasAggregate bool
	SetOperation SetOperation
}

var aggregateNamePattern = regexp.MustCompile(`(?i)^(COUNT|SUM|AVG|MIN|MAX|GROUP_CONCAT)\s*\(`)

// extractSelect walks stmt (a *ast.SelectStmt or *ast.SetOprStmt) and
// produces the shape AnalyzeSelect needs. Set operations take their
// table/column shape from the first branch and their ORDER BY/LIMIT
// from the operation's own trailing clause, per §4.C.
func extractSelect(stmt ast.StmtNode) (*selectShape, error) {
	switch n := stmt.(type) {
	case *ast.SelectStmt:
		return extractSingleSelect(n)
	case *ast.SetOprStmt:
		return extractSetOpr(n)
	default:
		return nil, newUnsupported("statement is not a SELECT")
	}
}

func extractSetOpr(n *ast.SetOprStmt) (*selectShape, error) {
	if n.SelectList == nil || len(n.SelectList.Selects) == 0 {
		return nil, newUnsupported("set operation has no branches")
	}
	first, ok := n.SelectList.Selects[0].(*ast.SelectStmt)
	if !ok {
		return nil, newUnsupported("set operation branch is not a plain SELECT")
	}
	shape, err := extractSingleSelect(first)
	if err != nil {
		return nil, err
	}
	shape.SetOperation = setOperationOf(n.SelectList.Selects)

	if n.OrderBy != nil {
		shape.OrderBy = extractOrderBy(n.OrderBy)
	}
	if n.Limit != nil {
		shape.Limit, shape.Offset = extractLimit(n.Limit)
	}
	return shape, nil
}

func setOperationOf(selects []ast.Node) SetOperation {
	for _, s := range selects {
		sel, ok := s.(*ast.SelectStmt)
		if !ok || sel.AfterSetOperator == nil {
			continue
		}
		switch *sel.AfterSetOperator {
		case ast.Union:
			return SetUnion
		case ast.UnionAll:
			return SetUnionAll
		case ast.Intersect:
			return SetIntersect
		case ast.Except:
			return SetExcept
		}
	}
	return SetUnion
}

func extractSingleSelect(sel *ast.SelectStmt) (*selectShape, error) {
	if sel.From == nil || sel.From.TableRefs == nil {
		return nil, newUnsupported("SELECT has no FROM clause")
	}

	tables, aliasToTable, joinSub, err := extractFrom(sel.From.TableRefs)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, newUnsupported("no table reference could be resolved")
	}
	tableOrder := make([]string, len(tables))
	for i, t := range tables {
		tableOrder[i] = t.Table
	}

	hasSubquery := joinSub
	hasAggregate := false

	if sel.Fields != nil {
		for _, field := range sel.Fields.Fields {
			text, isAgg, fieldSub := columnFieldString(field)
			hasSubquery = hasSubquery || fieldSub
			hasAggregate = hasAggregate || isAgg
			owner := columnOwner(text, aliasToTable, tableOrder)
			assignColumn(tables, owner, text)
		}
	}

	if sel.Where != nil {
		conds, condSub := flattenConditions(sel.Where)
		hasSubquery = hasSubquery || condSub
		tables[0].Conditions = append(tables[0].Conditions, conds...)
	}

	if sel.Having != nil && sel.Having.Expr != nil {
		_, havingSub := flattenConditions(sel.Having.Expr)
		hasSubquery = hasSubquery || havingSub
	}

	shape := &selectShape{
		Tables:       tables,
		Distinct:     sel.Distinct,
		HasSubquery:  hasSubquery,
		HasAggregate: hasAggregate,
		SetOperation: "",
	}
	if sel.OrderBy != nil {
		shape.OrderBy = extractOrderBy(sel.OrderBy)
	}
	if sel.Limit != nil {
		shape.Limit, shape.Offset = extractLimit(sel.Limit)
	}
	return shape, nil
}

// extractFrom walks the join tree rooted at refs, returning the
// TableAccess list in left-to-right appearance order, an alias/name to
// canonical-table-name map, and whether any FROM item is itself a
// derived subquery.
func extractFrom(refs ast.ResultSetNode) ([]TableAccess, map[string]string, bool, error) {
	aliasToTable := map[string]string{}
	hasSubquery := false
	var order []string
	seen := map[string]bool{}

	var walk func(node ast.ResultSetNode) []JoinCondition
	walk = func(node ast.ResultSetNode) []JoinCondition {
		switch n := node.(type) {
		case *ast.Join:
			leftJoins := walk(n.Left)
			var rightJoins []JoinCondition
			if n.Right != nil {
				rightJoins = walk(n.Right)
			}
			joins := append(leftJoins, rightJoins...)
			if n.On != nil {
				if jc, ok := equiJoinCondition(n.On.Expr, aliasToTable, joinTypeOf(n)); ok {
					joins = append(joins, jc)
				} else {
					_, sub := flattenConditions(n.On.Expr)
					hasSubquery = hasSubquery || sub
				}
			}
			return joins

		case *ast.TableSource:
			switch src := n.Source.(type) {
			case *ast.TableName:
				table := src.Name.String()
				alias := n.AsName.String()
				key := alias
				if key == "" {
					key = table
				}
				aliasToTable[table] = table
				if alias != "" {
					aliasToTable[alias] = table
				}
				if !seen[key] {
					seen[key] = true
					order = append(order, key)
				}
			default:
				hasSubquery = true
			}
			return nil

		default:
			return nil
		}
	}

	joins := walk(refs)

	tables := make([]TableAccess, 0, len(order))
	tableByKey := map[string]int{}
	for _, key := range order {
		table := aliasToTable[key]
		alias := ""
		if key != table {
			alias = key
		}
		tableByKey[key] = len(tables)
		tables = append(tables, TableAccess{Table: table, Alias: alias})
	}

	if len(tables) > 0 {
		tables[0].JoinConditions = append(tables[0].JoinConditions, joins...)
	}

	return tables, aliasToTable, hasSubquery, nil
}

func joinTypeOf(j *ast.Join) JoinType {
	switch j.Tp {
	case ast.LeftJoin:
		return JoinLeft
	case ast.RightJoin:
		return JoinRight
	case ast.CrossJoin:
		return JoinCross
	default:
		return JoinInner
	}
}

// equiJoinCondition recognizes `left.col = right.col` exactly; any
// other ON-clause shape is not structurally captured (see
// JoinCondition doc).
func equiJoinCondition(expr ast.ExprNode, aliasToTable map[string]string, jt JoinType) (JoinCondition, bool) {
	bin, ok := expr.(*ast.BinaryOperationExpr)
	if !ok || bin.Op.String() != "=" {
		return JoinCondition{}, false
	}
	lcol, lok := bin.L.(*ast.ColumnNameExpr)
	rcol, rok := bin.R.(*ast.ColumnNameExpr)
	if !lok || !rok {
		return JoinCondition{}, false
	}
	leftTable, lresolved := aliasToTable[lcol.Name.Table.String()]
	rightTable, rresolved := aliasToTable[rcol.Name.Table.String()]
	if !lresolved || !rresolved {
		return JoinCondition{}, false
	}
	return JoinCondition{
		LeftTable:   leftTable,
		LeftColumn:  lcol.Name.Name.String(),
		RightTable:  rightTable,
		RightColumn: rcol.Name.Name.String(),
		JoinType:    jt,
	}, true
}

// columnFieldString renders a SELECT field to text, preferring an
// exact qualified-column rendering and falling back to the field's
// original source span for expressions (aggregates, functions,
// arithmetic) — which reproduces "COUNT(*)"/"SUM(price)" faithfully
// without hand-rolling an expression printer.
func columnFieldString(field *ast.SelectField) (text string, isAggregate bool, hasSubquery bool) {
	if field.WildCard != nil {
		if field.WildCard.Table.L != "" {
			return field.WildCard.Table.String() + ".*", false, false
		}
		return "*", false, false
	}
	if col, ok := field.Expr.(*ast.ColumnNameExpr); ok {
		return qualifiedColumnName(col), false, false
	}
	if _, ok := field.Expr.(*ast.AggregateFuncExpr); ok {
		isAggregate = true
	}
	if _, ok := field.Expr.(*ast.SubqueryExpr); ok {
		hasSubquery = true
	}
	text = strings.TrimSpace(field.Expr.Text())
	if text == "" {
		text = field.AsName.String()
	}
	if !isAggregate && aggregateNamePattern.MatchString(text) {
		isAggregate = true
	}
	return text, isAggregate, hasSubquery
}

// columnOwner decides which table a rendered column string belongs to
// by looking for exactly one known alias/table mentioned in it.
func columnOwner(text string, aliasToTable map[string]string, tableOrder []string) string {
	qualifier, _ := tableQualifier(text)
	if table, ok := aliasToTable[qualifier]; ok && qualifier != "" {
		return table
	}
	match := ""
	for alias := range aliasToTable {
		if alias == "" {
			continue
		}
		if strings.Contains(text, alias+".") {
			if match != "" && match != alias {
				return tableOrder[0]
			}
			match = alias
		}
	}
	if match == "" {
		return tableOrder[0]
	}
	return resolveOwner(match, aliasToTable, tableOrder)
}

func assignColumn(tables []TableAccess, owner string, text string) {
	for i := range tables {
		if tables[i].Table == owner {
			tables[i].Columns = append(tables[i].Columns, text)
			return
		}
	}
	tables[0].Columns = append(tables[0].Columns, text)
}

func extractOrderBy(ob *ast.OrderByClause) []OrderByItem {
	items := make([]OrderByItem, 0, len(ob.Items))
	for _, item := range ob.Items {
		col, ok := columnRefName(item.Expr)
		if !ok {
			col = strings.TrimSpace(item.Expr.Text())
		}
		order := "ASC"
		if item.Desc {
			order = "DESC"
		}
		items = append(items, OrderByItem{Column: col, Order: order})
	}
	return items
}

func extractLimit(l *ast.Limit) (limit, offset *int) {
	if l.Count != nil {
		if v, ok := literalValue(l.Count); ok {
			limit = toIntPtr(v)
		}
	}
	if l.Offset != nil {
		if v, ok := literalValue(l.Offset); ok {
			offset = toIntPtr(v)
		}
	}
	return limit, offset
}

func toIntPtr(v interface{}) *int {
	switch n := v.(type) {
	case int64:
		r := int(n)
		return &r
	case uint64:
		r := int(n)
		return &r
	case int:
		return &n
	default:
		return nil
	}
}
