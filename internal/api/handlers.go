package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/warehouse-sla-monitor/internal/dataset"
	"github.com/ignite/warehouse-sla-monitor/internal/pkg/logger"
	"github.com/ignite/warehouse-sla-monitor/internal/sla"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	store     *dataset.Store
	metrics   *sla.MetricSet
	cache     *dataset.ResultCache // nil when redis is disabled
	maxUpload int64
}

// NewHandlers creates a new Handlers instance
func NewHandlers(store *dataset.Store, metrics *sla.MetricSet, maxUpload int64) *Handlers {
	return &Handlers{store: store, metrics: metrics, maxUpload: maxUpload}
}

// SetResultCache wires the optional redis result cache
func (h *Handlers) SetResultCache(cache *dataset.ResultCache) {
	h.cache = cache
}

// HealthCheck reports service liveness
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"datasets": len(h.store.List()),
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleUploadDataset ingests a CSV upload (multipart "file" part or raw
// body) and stores it content-addressed. Re-uploading identical bytes
// answers with the existing dataset.
func (h *Handlers) HandleUploadDataset(w http.ResponseWriter, r *http.Request) {
	raw, name, err := readUpload(r, h.maxUpload)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(raw) == 0 {
		respondError(w, http.StatusBadRequest, "empty upload")
		return
	}

	ds, existed, err := h.store.Put(name, raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unusable dataset: %v", err))
		return
	}

	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	respondJSON(w, status, datasetInfo(ds, h.metrics))
}

// HandleListDatasets lists loaded datasets, newest first
func (h *Handlers) HandleListDatasets(w http.ResponseWriter, r *http.Request) {
	list := h.store.List()
	out := make([]map[string]interface{}, 0, len(list))
	for _, ds := range list {
		out = append(out, datasetInfo(ds, h.metrics))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"datasets": out})
}

// HandleGetDataset returns one dataset's metadata
func (h *Handlers) HandleGetDataset(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, datasetInfo(ds, h.metrics))
}

// HandleDeleteDataset drops a dataset and purges its cached results
func (h *Handlers) HandleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "datasetID")
	if err := h.store.Delete(id); err != nil {
		respondError(w, http.StatusNotFound, "dataset not found")
		return
	}
	if h.cache != nil {
		h.cache.Purge(r.Context(), id)
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// summaryResponse is the overview table plus its threshold metadata.
type summaryResponse struct {
	Metric    string       `json:"metric"`
	Mode      string       `json:"mode"`
	GroupBy   string       `json:"group_by"`
	Direction string       `json:"direction"`
	Threshold float64      `json:"threshold"`
	Groups    []summaryRow `json:"groups"`
}

type summaryRow struct {
	sla.GroupSummary
	Breach bool `json:"breach"`
}

// HandleSummary computes the per-group overview for one metric.
func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	q, err := parseQuery(r, h.metrics, ds)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var resp summaryResponse
	cacheKey := ""
	if h.cache != nil {
		cacheKey = h.cache.Key(ds.ID, "summary", q.fingerprint())
		if h.cache.Get(r.Context(), cacheKey, &resp) {
			respondJSON(w, http.StatusOK, resp)
			return
		}
	}

	filtered := sla.Apply(ds.Records, q.filter, q.groupBy)
	rows := sla.Summarize(filtered, q.groupBy, q.metric)
	if q.sortWorst {
		rows = sla.RankWorstFirst(rows, q.metric.Direction)
	}

	resp = summaryResponse{
		Metric:    q.metric.Name,
		Mode:      q.metric.Mode.String(),
		GroupBy:   q.groupBy.String(),
		Direction: q.metric.Direction.String(),
		Threshold: q.metric.BarThreshold,
		Groups:    make([]summaryRow, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Groups = append(resp.Groups, summaryRow{
			GroupSummary: row,
			Breach:       sla.Breaches(row.Value, q.metric.BarThreshold, q.metric.Direction),
		})
	}

	if h.cache != nil {
		h.cache.Set(r.Context(), cacheKey, resp)
	}
	respondJSON(w, http.StatusOK, resp)
}

// trendResponse is the bucketed series for one group value.
type trendResponse struct {
	Metric      string           `json:"metric"`
	Mode        string           `json:"mode"`
	Target      string           `json:"target"`
	Granularity string           `json:"granularity"`
	TargetLine  float64          `json:"target_line"`
	Direction   string           `json:"direction"`
	Points      []sla.TrendPoint `json:"points"`
}

// HandleTrend computes the resampled trend series for one group value.
// A target that vanishes after filtering yields an empty series, not an
// error.
func (h *Handlers) HandleTrend(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	q, err := parseQuery(r, h.metrics, ds)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	target := strings.TrimSpace(r.URL.Query().Get("target"))
	if target == "" {
		respondError(w, http.StatusBadRequest, "target group value is required")
		return
	}

	var resp trendResponse
	cacheKey := ""
	if h.cache != nil {
		cacheKey = h.cache.Key(ds.ID, "trend", q.fingerprint()+"&target="+target)
		if h.cache.Get(r.Context(), cacheKey, &resp) {
			respondJSON(w, http.StatusOK, resp)
			return
		}
	}

	q.filter.Targets = []string{target}
	filtered := sla.Apply(ds.Records, q.filter, q.groupBy)
	points := sla.Resample(filtered, q.metric, q.granularity)

	resp = trendResponse{
		Metric:      q.metric.Name,
		Mode:        q.metric.Mode.String(),
		Target:      target,
		Granularity: q.granularity.String(),
		TargetLine:  q.metric.TrendTarget,
		Direction:   q.metric.Direction.String(),
		Points:      points,
	}
	if resp.Points == nil {
		resp.Points = []sla.TrendPoint{}
	}

	if h.cache != nil {
		h.cache.Set(r.Context(), cacheKey, resp)
	}
	respondJSON(w, http.StatusOK, resp)
}

// query carries the parsed, validated request parameters.
type query struct {
	metric      sla.Metric
	groupBy     sla.GroupBy
	granularity sla.Granularity
	filter      sla.Filter
	sortWorst   bool
}

func parseQuery(r *http.Request, metrics *sla.MetricSet, ds *dataset.Dataset) (query, error) {
	var q query
	values := r.URL.Query()

	metricName := values.Get("metric")
	if metricName == "" {
		metricName = "ship_24h"
	}
	m, err := metrics.Get(metricName)
	if err != nil {
		return q, err
	}
	if !m.ComputableWith(ds.Availability) {
		return q, fmt.Errorf("metric %q is not computable: dataset lacks its source columns", m.Name)
	}
	q.metric = m

	if q.groupBy, err = sla.ParseGroupBy(values.Get("group_by")); err != nil {
		return q, err
	}
	if q.groupBy == sla.GroupByCarrier && !ds.Availability.Carrier {
		return q, errors.New("dataset has no carrier column")
	}
	if q.granularity, err = sla.ParseGranularity(values.Get("granularity")); err != nil {
		return q, err
	}

	if q.filter.From, err = parseDate(values.Get("from")); err != nil {
		return q, err
	}
	if q.filter.To, err = parseDate(values.Get("to")); err != nil {
		return q, err
	}
	q.filter.Countries = splitList(values.Get("countries"))
	q.filter.Carriers = splitList(values.Get("carriers"))
	q.filter.Targets = splitList(values.Get("targets"))

	switch values.Get("sort") {
	case "", "none":
	case "worst":
		q.sortWorst = true
	default:
		return q, fmt.Errorf("unknown sort %q", values.Get("sort"))
	}
	return q, nil
}

// fingerprint canonicalizes the query for cache keying: sorted keys,
// sorted list values.
func (q query) fingerprint() string {
	parts := []string{
		"metric=" + q.metric.Name,
		"group_by=" + q.groupBy.String(),
		"granularity=" + q.granularity.String(),
		"sort_worst=" + fmt.Sprint(q.sortWorst),
	}
	if q.filter.From != nil {
		parts = append(parts, "from="+q.filter.From.Format("2006-01-02"))
	}
	if q.filter.To != nil {
		parts = append(parts, "to="+q.filter.To.Format("2006-01-02"))
	}
	parts = append(parts, "countries="+sortedCSV(q.filter.Countries))
	parts = append(parts, "carriers="+sortedCSV(q.filter.Carriers))
	parts = append(parts, "targets="+sortedCSV(q.filter.Targets))
	sort.Strings(parts)
	return strings.Join(parts, "&")
}

func sortedCSV(values []string) string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return url.QueryEscape(strings.Join(out, ","))
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	t = t.UTC()
	return &t, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (h *Handlers) dataset(w http.ResponseWriter, r *http.Request) (*dataset.Dataset, bool) {
	id := chi.URLParam(r, "datasetID")
	ds, err := h.store.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "dataset not found")
		return nil, false
	}
	return ds, true
}

func datasetInfo(ds *dataset.Dataset, metrics *sla.MetricSet) map[string]interface{} {
	computable := []string{}
	for _, m := range metrics.Computable(ds.Availability) {
		computable = append(computable, m.Name)
	}
	info := map[string]interface{}{
		"id":           ds.ID,
		"name":         ds.Name,
		"rows":         ds.Rows,
		"availability": ds.Availability,
		"metrics":      computable,
		"loaded_at":    ds.LoadedAt,
	}
	if ds.MinAuditTime != nil {
		info["min_audit_date"] = ds.MinAuditTime.Format("2006-01-02")
	}
	if ds.MaxAuditTime != nil {
		info["max_audit_date"] = ds.MaxAuditTime.Format("2006-01-02")
	}
	return info
}

func readUpload(r *http.Request, maxBytes int64) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return nil, "", fmt.Errorf("parse upload: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", errors.New(`multipart upload needs a "file" part`)
		}
		defer file.Close()
		raw, err := io.ReadAll(file)
		if err != nil {
			return nil, "", fmt.Errorf("read upload: %w", err)
		}
		return raw, header.Filename, nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	return raw, "upload.csv", nil
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("encode response failed", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
