package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// fingerprint computes CacheKey.Fingerprint (§4.F). It tries the
// human-readable row-lookup shape first and falls back to the
// structural hash.
func fingerprint(k *CacheKey) string {
	if fp, ok := rowLookupFingerprint(k); ok {
		return fp
	}
	return structuralFingerprint(k)
}

func rowLookupFingerprint(k *CacheKey) (string, bool) {
	if k.Classification != ClassRowLookup {
		return "", false
	}
	if len(k.Tables) != 1 {
		return "", false
	}
	if len(k.OrderBy) != 0 || k.Limit != nil || k.Offset != nil || k.Distinct || k.HasSubquery || k.SetOperation != "" {
		return "", false
	}
	table := k.Tables[0]
	if len(table.Conditions) != 1 {
		return "", false
	}
	c := table.Conditions[0]
	if c.Operator != OpEq && c.Operator != OpIn {
		return "", false
	}
	_, bare := tableQualifier(c.Column)
	lower := strings.ToLower(bare)
	if lower != "id" && lower != "uuid" {
		return "", false
	}

	var valueText string
	if c.Operator == OpEq {
		valueText = toStringValue(c.Value)
	} else {
		list, ok := c.Value.([]interface{})
		if !ok {
			return "", false
		}
		values := make([]string, 0, len(list))
		for _, v := range list {
			values = append(values, toStringValue(v))
		}
		sort.Strings(values)
		valueText = strings.Join(values, ",")
	}

	return table.Table + ":" + bare + "=" + valueText + ":row-lookup", true
}

// canonicalTable and canonicalRecord mirror CacheKey/TableAccess but
// with every list pre-sorted, so json.Marshal (which already sorts map
// keys) yields a fully canonical byte sequence.
type canonicalCondition struct {
	Column   string      `json:"column"`
	Operator Operator    `json:"operator"`
	Value    interface{} `json:"value,omitempty"`
}

type canonicalJoinCondition struct {
	LeftTable   string   `json:"left_table"`
	LeftColumn  string   `json:"left_column"`
	RightTable  string   `json:"right_table"`
	RightColumn string   `json:"right_column"`
	JoinType    JoinType `json:"join_type"`
}

type canonicalTable struct {
	Table          string                   `json:"table"`
	Alias          string                   `json:"alias,omitempty"`
	Columns        []string                 `json:"columns"`
	Conditions     []canonicalCondition     `json:"conditions"`
	JoinConditions []canonicalJoinCondition `json:"join_conditions,omitempty"`
}

type canonicalRecord struct {
	Tables         []canonicalTable `json:"tables"`
	Classification Classification   `json:"classification"`
	OrderBy        []OrderByItem    `json:"order_by,omitempty"`
	Limit          *int             `json:"limit,omitempty"`
	Offset         *int             `json:"offset,omitempty"`
	Distinct       bool             `json:"distinct,omitempty"`
	HasSubquery    bool             `json:"has_subquery,omitempty"`
	SetOperation   SetOperation     `json:"set_operation,omitempty"`
}

func structuralFingerprint(k *CacheKey) string {
	record := canonicalRecord{
		Classification: k.Classification,
		OrderBy:        k.OrderBy,
		Limit:          k.Limit,
		Offset:         k.Offset,
		Distinct:       k.Distinct,
		HasSubquery:    k.HasSubquery,
		SetOperation:   k.SetOperation,
	}
	for _, t := range k.Tables {
		record.Tables = append(record.Tables, canonicalizeTable(t))
	}

	data, err := json.Marshal(record)
	if err != nil {
		// json.Marshal on this struct tree only fails for
		// unsupported value types inside Condition.Value, which
		// literalValue never produces; treat as unreachable.
		panic("analysis: canonical record failed to marshal: " + err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

func canonicalizeTable(t TableAccess) canonicalTable {
	columns := append([]string(nil), t.Columns...)
	sort.Strings(columns)

	conds := make([]canonicalCondition, 0, len(t.Conditions))
	for _, c := range t.Conditions {
		value := c.Value
		if c.Operator == OpIn || c.Operator == OpNotIn {
			value = canonicalizeValue(value)
		}
		conds = append(conds, canonicalCondition{
			Column:   c.Column,
			Operator: c.Operator,
			Value:    value,
		})
	}
	sort.Slice(conds, func(i, j int) bool { return conds[i].Column < conds[j].Column })

	joins := make([]canonicalJoinCondition, 0, len(t.JoinConditions))
	for _, jc := range t.JoinConditions {
		joins = append(joins, canonicalJoinCondition{
			LeftTable:   jc.LeftTable,
			LeftColumn:  jc.LeftColumn,
			RightTable:  jc.RightTable,
			RightColumn: jc.RightColumn,
			JoinType:    jc.JoinType,
		})
	}
	sort.Slice(joins, func(i, j int) bool { return joins[i].LeftTable < joins[j].LeftTable })

	return canonicalTable{
		Table:          t.Table,
		Alias:          t.Alias,
		Columns:        columns,
		Conditions:     conds,
		JoinConditions: joins,
	}
}

// canonicalizeValue sorts list-shaped condition values so that
// equivalent IN lists (any input order) hash identically. Two-element
// BETWEEN pairs are left in [low, high] order since that order is
// semantically meaningful.
func canonicalizeValue(v interface{}) interface{} {
	list, ok := v.([]interface{})
	if !ok {
		return v
	}
	strs := make([]string, len(list))
	for i, item := range list {
		strs[i] = toStringValue(item)
	}
	sortMixed(strs)
	out := make([]interface{}, len(strs))
	for i, s := range strs {
		out[i] = s
	}
	return out
}

func sortMixed(values []string) {
	allNumeric := true
	for _, v := range values {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			allNumeric = false
			break
		}
	}
	if allNumeric {
		sort.Slice(values, func(i, j int) bool {
			a, _ := strconv.ParseFloat(values[i], 64)
			b, _ := strconv.ParseFloat(values[j], 64)
			return a < b
		})
		return
	}
	sort.Strings(values)
}
