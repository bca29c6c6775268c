package analysis

import (
	"sort"
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"

	cadabraparser "github.com/cadabra-cache/cadabra/pkg/parser"
)

// Analyzer composes the parameter binder, SQL parser adapter,
// normalizer, AST extractor, classifier and fingerprinter into the
// two public entry points: AnalyzeSelect and AnalyzeWrite (§4.I).
type Analyzer struct {
	parser *cadabraparser.Adapter
}

// New creates an Analyzer with its own parser instance.
func New() *Analyzer {
	return &Analyzer{parser: cadabraparser.New()}
}

// AnalyzeSelect turns a SELECT (optionally parameterized) into a
// complete CacheKey: bind → parse → normalize → extract → classify →
// fingerprint.
func (a *Analyzer) AnalyzeSelect(sql string, params interface{}) (*CacheKey, error) {
	bound, err := BindParams(sql, params)
	if err != nil {
		return nil, newParseFailed(err)
	}

	stmt, err := a.parser.Parse(bound)
	if err != nil {
		return nil, newParseFailed(err)
	}

	switch stmt.(type) {
	case *ast.SelectStmt, *ast.SetOprStmt:
	default:
		return nil, newUnsupported("statement is not a SELECT")
	}

	shape, err := extractSelect(stmt)
	if err != nil {
		return nil, err
	}

	sortColumns(shape.Tables)

	k := &CacheKey{
		Tables:        shape.Tables,
		NormalizedSQL: Normalize(bound),
		OrderBy:       shape.OrderBy,
		Limit:         shape.Limit,
		Offset:        shape.Offset,
		Distinct:      shape.Distinct,
		HasSubquery:   shape.HasSubquery,
		SetOperation:  shape.SetOperation,
	}
	k.Classification = classify(shape)
	k.Fingerprint = fingerprint(k)
	return k, nil
}

// AnalyzeWrite turns an INSERT/UPDATE/DELETE (optionally
// parameterized) into a WriteInfo: bind → parse → extract, restricted
// to the write-statement subset (§4.I).
func (a *Analyzer) AnalyzeWrite(sql string, params interface{}) (*WriteInfo, error) {
	bound, err := BindParams(sql, params)
	if err != nil {
		return nil, newParseFailed(err)
	}

	stmt, err := a.parser.Parse(bound)
	if err != nil {
		return nil, newParseFailed(err)
	}

	switch stmt.(type) {
	case *ast.InsertStmt, *ast.UpdateStmt, *ast.DeleteStmt:
	default:
		return nil, newUnsupported("statement is not INSERT/UPDATE/DELETE")
	}

	info, err := extractWrite(stmt)
	if err != nil {
		return nil, err
	}
	sort.Strings(info.ModifiedColumns)
	sort.Strings(info.AffectedRows)
	return info, nil
}

func sortColumns(tables []TableAccess) {
	for i := range tables {
		sort.Slice(tables[i].Columns, func(a, b int) bool {
			return strings.ToLower(tables[i].Columns[a]) < strings.ToLower(tables[i].Columns[b])
		})
	}
}
