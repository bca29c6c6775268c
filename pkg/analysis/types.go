// Package analysis turns SQL text into the structured descriptors the
// rest of the module keys and invalidates the cache by: CacheKey for
// SELECTs, WriteInfo for INSERT/UPDATE/DELETE.
package analysis

import "fmt"

// Operator is the set of comparison operators a Condition can carry.
type Operator string

const (
	OpEq          Operator = "="
	OpNeq         Operator = "!="
	OpGt          Operator = ">"
	OpLt          Operator = "<"
	OpGte         Operator = ">="
	OpLte         Operator = "<="
	OpIn          Operator = "IN"
	OpNotIn       Operator = "NOT_IN"
	OpLike        Operator = "LIKE"
	OpNotLike     Operator = "NOT_LIKE"
	OpBetween     Operator = "BETWEEN"
	OpNotBetween  Operator = "NOT_BETWEEN"
	OpIsNull      Operator = "IS_NULL"
	OpIsNotNull   Operator = "IS_NOT_NULL"
	OpExists      Operator = "EXISTS"
	OpNotExists   Operator = "NOT_EXISTS"
)

// JoinType mirrors the SQL join keyword. Cadabra's dialect hint is
// MySQL-compatible, which has no FULL JOIN syntax, so JoinFull is
// never produced by the extractor; it is kept because downstream
// analysis (the decider) is written against the full enum.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
)

// Classification buckets a SELECT by shape, per the classifier (§4.E).
type Classification string

const (
	ClassRowLookup Classification = "row-lookup"
	ClassAggregate Classification = "aggregate"
	ClassJoin      Classification = "join"
	ClassComplex   Classification = "complex"
)

// SetOperation names a set operator tying multiple SELECT branches.
type SetOperation string

const (
	SetUnion     SetOperation = "UNION"
	SetUnionAll  SetOperation = "UNION_ALL"
	SetIntersect SetOperation = "INTERSECT"
	SetExcept    SetOperation = "EXCEPT"
)

// Condition is a single WHERE-clause predicate. Value holds a scalar,
// an ordered list (IN/NOT_IN), a 2-element slice (BETWEEN/NOT_BETWEEN),
// or nil (null-tests, EXISTS/NOT_EXISTS).
type Condition struct {
	Column   string      `json:"column"`
	Operator Operator    `json:"operator"`
	Value    interface{} `json:"value,omitempty"`
}

// JoinCondition captures a structurally-recognized equi-join
// `leftTable.leftColumn = rightTable.rightColumn`. Any other ON-clause
// shape is not recorded; it survives only in NormalizedSQL, which the
// fingerprint does not use.
type JoinCondition struct {
	LeftTable   string   `json:"left_table"`
	LeftColumn  string   `json:"left_column"`
	RightTable  string   `json:"right_table"`
	RightColumn string   `json:"right_column"`
	JoinType    JoinType `json:"join_type"`
}

// TableAccess describes one table reference within a SELECT. For
// multi-table queries, only tables[0] carries the full aggregated
// Conditions/JoinConditions set (see CacheKey doc); this is a
// deliberate simplification inherited from the source design, not an
// oversight — the decider only ever reads conditions off table zero.
type TableAccess struct {
	Table          string          `json:"table"`
	Alias          string          `json:"alias,omitempty"`
	Columns        []string        `json:"columns"`
	Conditions     []Condition     `json:"conditions"`
	JoinConditions []JoinCondition `json:"join_conditions,omitempty"`
}

// OrderByItem is one ORDER BY term.
type OrderByItem struct {
	Column string `json:"column"`
	Order  string `json:"order"` // ASC or DESC
}

// CacheKey is the full semantic descriptor of a cacheable SELECT.
// Fingerprint is a pure function of every other field except
// NormalizedSQL (see pkg/analysis/fingerprint.go); nothing may mutate
// a CacheKey after its Fingerprint has been computed.
type CacheKey struct {
	Tables        []TableAccess   `json:"tables"`
	Classification Classification `json:"classification"`
	NormalizedSQL string          `json:"normalized_sql"`
	OrderBy       []OrderByItem   `json:"order_by,omitempty"`
	Limit         *int            `json:"limit,omitempty"`
	Offset        *int            `json:"offset,omitempty"`
	Distinct      bool            `json:"distinct,omitempty"`
	HasSubquery   bool            `json:"has_subquery,omitempty"`
	SetOperation  SetOperation    `json:"set_operation,omitempty"`
	Fingerprint   string          `json:"fingerprint"`
}

// WriteOperation names the write statement kind a WriteInfo describes.
type WriteOperation string

const (
	WriteInsert WriteOperation = "INSERT"
	WriteUpdate WriteOperation = "UPDATE"
	WriteDelete WriteOperation = "DELETE"
)

// WriteInfo is the semantic descriptor of an INSERT/UPDATE/DELETE
// extracted for invalidation analysis. AffectedRows is populated only
// when row identifiers can be recovered directly from equality/IN
// conditions. ModifiedColumns holds the SET columns of an UPDATE and
// the named columns of an INSERT; it is empty for DELETE.
type WriteInfo struct {
	Table           string         `json:"table"`
	Operation       WriteOperation `json:"operation"`
	AffectedRows    []string       `json:"affected_rows,omitempty"`
	ModifiedColumns []string       `json:"modified_columns,omitempty"`
	Conditions      []Condition    `json:"conditions,omitempty"`
}

// ErrorKind names the two analysis failure domains of §7; the third,
// StorageFailed, belongs to pkg/store.
type ErrorKind string

const (
	ParseFailed ErrorKind = "ParseFailed"
	Unsupported ErrorKind = "Unsupported"
)

// Error is the typed failure returned by AnalyzeSelect/AnalyzeWrite.
// There are no sentinel-value errors in this module; callers branch
// on Kind.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newParseFailed(err error) *Error {
	return &Error{Kind: ParseFailed, Err: err}
}

func newUnsupported(msg string) *Error {
	return &Error{Kind: Unsupported, Err: fmt.Errorf("%s", msg)}
}
