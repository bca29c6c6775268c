package httpapi

// analyzeRequest is the body of POST /analyze, /invalidate and
// /should-invalidate — all three accept a sql statement plus optional
// bind params. POST /register uses registerRequest.
type analyzeRequest struct {
	SQL    string      `json:"sql"`
	Params interface{} `json:"params,omitempty"`
}

// registerRequest extends analyzeRequest with the opaque result to
// cache and an optional TTL hint (accepted, not yet enforced by the
// store — eviction here is LRU-capacity and invalidation driven, not
// time driven).
type registerRequest struct {
	SQL    string      `json:"sql"`
	Params interface{} `json:"params,omitempty"`
	Result string      `json:"result"` // base64
	TTL    *int        `json:"ttl,omitempty"`
}

// analyzeResponse is the body of POST /analyze.
type analyzeResponse struct {
	Fingerprint   string   `json:"fingerprint"`
	Classification string  `json:"classification"`
	Tables        []string `json:"tables"`
	NormalizedSQL string   `json:"normalized_sql"`
}

// registerResponse is the body of POST /register.
type registerResponse struct {
	Success     bool   `json:"success"`
	Fingerprint string `json:"fingerprint"`
}

// cacheGetResponse is the body of GET /cache/{fingerprint}.
type cacheGetResponse struct {
	Result *string `json:"result"` // base64, nil when absent
}

// invalidateResponse is the body of POST /invalidate.
type invalidateResponse struct {
	Success     bool        `json:"success"`
	Invalidated writeInfoDTO `json:"invalidated"`
	Count       int         `json:"count"`
}

// writeInfoDTO mirrors analysis.WriteInfo for the wire, keeping the
// HTTP contract stable even if the internal struct's json tags change.
type writeInfoDTO struct {
	Table           string   `json:"table"`
	Operation       string   `json:"operation"`
	AffectedRows    []string `json:"affected_rows,omitempty"`
	ModifiedColumns []string `json:"modified_columns,omitempty"`
}

// shouldInvalidateResponse is the body of POST /should-invalidate. It
// reports whether ANY currently-registered cache entry would be
// invalidated by this write, without mutating the store.
type shouldInvalidateResponse struct {
	ShouldInvalidate bool `json:"should_invalidate"`
}

// clearTableResponse is the body of DELETE /table/{name}.
type clearTableResponse struct {
	Success bool   `json:"success"`
	Table   string `json:"table"`
	Count   int    `json:"count"`
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     int64  `json:"timestamp"`
}

// statsResponse is the body of GET /stats: the store's metrics plus
// process-level counters the HTTP façade itself tracks.
type statsResponse struct {
	CacheEntries         int            `json:"cache_entries"`
	EntriesPerTable      map[string]int `json:"entries_per_table"`
	ByTableIndexSize     int            `json:"by_table_index_size"`
	ByRowIndexSize       int            `json:"by_row_index_size"`
	ByColumnIndexSize    int            `json:"by_column_index_size"`
	ByAggregateIndexSize int            `json:"by_aggregate_index_size"`
	RequestsTotal        int64          `json:"requests_total"`
	InvalidationsTotal   int64          `json:"invalidations_total"`
	UptimeSeconds        int64          `json:"uptime_seconds"`
}

// errorResponse is the body of any non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
