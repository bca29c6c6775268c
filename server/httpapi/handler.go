package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cadabra-cache/cadabra/pkg/analysis"
	"github.com/cadabra-cache/cadabra/pkg/store"
)

// metricsSink receives per-request observations. server/metrics
// implements this; tests can leave it nil (NewHandler tolerates that).
type metricsSink interface {
	ObserveRequest(route string, status int)
	ObserveInvalidations(n int)
}

// Handler wires the analysis and cache façades onto the HTTP routes
// described in §6. It carries no state of its own beyond request
// counters; all durable state lives in the store.
type Handler struct {
	analyzer *analysis.Analyzer
	cache    *store.Store
	metrics  metricsSink
	started  time.Time

	requestsTotal      atomic.Int64
	invalidationsTotal atomic.Int64
}

// NewHandler builds a Handler bound to cache. metrics may be nil.
func NewHandler(cache *store.Store, metrics metricsSink) *Handler {
	return &Handler{
		analyzer: analysis.New(),
		cache:    cache,
		metrics:  metrics,
		started:  time.Now(),
	}
}

// Mux returns a configured http.ServeMux implementing every route in
// the HTTP façade table (§6) except GET /metrics, which NewServer
// mounts when a metrics registry is supplied.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", h.track("/analyze", h.handleAnalyze))
	mux.HandleFunc("POST /register", h.track("/register", h.handleRegister))
	mux.HandleFunc("GET /cache/{fingerprint}", h.track("/cache", h.handleCacheGet))
	mux.HandleFunc("POST /invalidate", h.track("/invalidate", h.handleInvalidate))
	mux.HandleFunc("POST /should-invalidate", h.track("/should-invalidate", h.handleShouldInvalidate))
	mux.HandleFunc("DELETE /table/{name}", h.track("/table", h.handleClearTable))
	mux.HandleFunc("GET /health", h.track("/health", h.handleHealth))
	mux.HandleFunc("GET /stats", h.track("/stats", h.handleStats))
	return mux
}

// track wraps a handler so its response status reaches the metrics
// sink under a fixed, low-cardinality route label (never the raw path,
// which would include fingerprints/table names).
func (h *Handler) track(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(sw, r)
		if h.metrics != nil {
			h.metrics.ObserveRequest(route, sw.statusCode)
		}
	}
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	h.requestsTotal.Add(1)

	var req analyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	k, err := h.analyzer.AnalyzeSelect(req.SQL, req.Params)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	tables := make([]string, 0, len(k.Tables))
	for _, t := range k.Tables {
		tables = append(tables, t.Table)
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Fingerprint:    k.Fingerprint,
		Classification: string(k.Classification),
		Tables:         tables,
		NormalizedSQL:  k.NormalizedSQL,
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	h.requestsTotal.Add(1)

	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := base64.StdEncoding.DecodeString(req.Result)
	if err != nil {
		writeError(w, http.StatusBadRequest, "result must be base64-encoded: "+err.Error())
		return
	}

	k, err := h.analyzer.AnalyzeSelect(req.SQL, req.Params)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	if err := h.cache.Register(*k, result, time.Now().Unix()); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{Success: true, Fingerprint: k.Fingerprint})
}

func (h *Handler) handleCacheGet(w http.ResponseWriter, r *http.Request) {
	h.requestsTotal.Add(1)

	fp := r.PathValue("fingerprint")
	blob, ok, err := h.cache.Get(fp)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, cacheGetResponse{Result: nil})
		return
	}

	encoded := base64.StdEncoding.EncodeToString(blob)
	writeJSON(w, http.StatusOK, cacheGetResponse{Result: &encoded})
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	h.requestsTotal.Add(1)

	var req analyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	info, err := h.analyzer.AnalyzeWrite(req.SQL, req.Params)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	count, err := h.cache.Invalidate(*info)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	h.invalidationsTotal.Add(int64(count))
	if h.metrics != nil {
		h.metrics.ObserveInvalidations(count)
	}

	writeJSON(w, http.StatusOK, invalidateResponse{
		Success: true,
		Count:   count,
		Invalidated: writeInfoDTO{
			Table:           info.Table,
			Operation:       string(info.Operation),
			AffectedRows:    info.AffectedRows,
			ModifiedColumns: info.ModifiedColumns,
		},
	})
}

func (h *Handler) handleShouldInvalidate(w http.ResponseWriter, r *http.Request) {
	h.requestsTotal.Add(1)

	var req analyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	info, err := h.analyzer.AnalyzeWrite(req.SQL, req.Params)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	count, err := h.cache.WouldInvalidate(*info)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, shouldInvalidateResponse{ShouldInvalidate: count > 0})
}

func (h *Handler) handleClearTable(w http.ResponseWriter, r *http.Request) {
	h.requestsTotal.Add(1)

	name := r.PathValue("name")
	count, err := h.cache.ClearTable(name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	h.invalidationsTotal.Add(int64(count))
	if h.metrics != nil {
		h.metrics.ObserveInvalidations(count)
	}

	writeJSON(w, http.StatusOK, clearTableResponse{Success: true, Table: name, Count: count})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Timestamp:     time.Now().Unix(),
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	m, err := h.cache.Metrics()
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		CacheEntries:         m.CacheEntries,
		EntriesPerTable:      m.EntriesPerTable,
		ByTableIndexSize:     m.ByTableIndexSize,
		ByRowIndexSize:       m.ByRowIndexSize,
		ByColumnIndexSize:    m.ByColumnIndexSize,
		ByAggregateIndexSize: m.ByAggregateIndexSize,
		RequestsTotal:        h.requestsTotal.Load(),
		InvalidationsTotal:   h.invalidationsTotal.Load(),
		UptimeSeconds:        int64(time.Since(h.started).Seconds()),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeAnalysisError maps analysis.Error's two kinds (§7) onto HTTP
// status codes: both are caller mistakes (bad or unsupported SQL), so
// both surface as 400.
func writeAnalysisError(w http.ResponseWriter, err error) {
	if aerr, ok := err.(*analysis.Error); ok {
		writeError(w, http.StatusBadRequest, aerr.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

// writeStoreError maps store.Error (StorageFailed, §7) onto 500.
func writeStoreError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, err.Error())
}
