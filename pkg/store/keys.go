package store

import "fmt"

// Key prefixes for the cache table plus its four secondary indexes
// (§3/§4.H). Every index is a Badger key-existence row: the
// fingerprint set a prefix scan returns IS the index.
const (
	prefixCache       = "cache:"
	prefixByTable     = "by_table:"
	prefixByRow       = "by_row:"
	prefixByColumn    = "by_column:"
	prefixByAggregate = "by_aggregate:"
)

func cacheKey(fp string) []byte {
	return []byte(prefixCache + fp)
}

func byTableKey(table, fp string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixByTable, table, fp))
}

func byTablePrefix(table string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixByTable, table))
}

func byRowKey(table, rowID, fp string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s", prefixByRow, table, rowID, fp))
}

func byRowPrefix(table, rowID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:", prefixByRow, table, rowID))
}

func byColumnKey(table, column, fp string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s", prefixByColumn, table, column, fp))
}

func byColumnPrefix(table, column string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:", prefixByColumn, table, column))
}

func byAggregateKey(table, fp string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixByAggregate, table, fp))
}

func byAggregatePrefix(table string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixByAggregate, table))
}
