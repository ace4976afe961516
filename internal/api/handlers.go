package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dshills/regtree/internal/searcher"
	"github.com/dshills/regtree/internal/storage"
	"github.com/dshills/regtree/pkg/types"
)

type entryResponse struct {
	ID           int64  `json:"id"`
	RegulationID int64  `json:"regulation_id"`
	ParentID     *int64 `json:"parent_id"`
	UnitLabel    string `json:"unit_label"`
	Rank         string `json:"rank"`
	Depth        int    `json:"depth"`
	Content      string `json:"content"`
	SpanStart    int    `json:"span_start"`
	SpanEnd      int    `json:"span_end"`
	Label        string `json:"label,omitempty"`
	Distance     int    `json:"distance,omitempty"` // Descendants only
}

func newEntryResponse(e *storage.Entry) entryResponse {
	return entryResponse{
		ID:           e.ID,
		RegulationID: e.RegulationID,
		ParentID:     e.ParentID,
		UnitLabel:    e.UnitLabel,
		Rank:         e.Rank.String(),
		Depth:        e.Depth,
		Content:      e.Content,
		SpanStart:    e.SpanStart,
		SpanEnd:      e.SpanEnd,
		Label:        e.Label,
	}
}

type regulationResponse struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	EntryCount int       `json:"entry_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// handleStatus reports store statistics.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.store.GetStatus(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"regulations":    status.Regulations,
		"entries":        status.Entries,
		"labeled":        status.LabeledCount,
		"roots":          status.RootCount,
		"schema_version": status.SchemaVersion,
		"size_mb":        status.SizeMB,
		"backend":        status.Backend,
		"healthy":        status.Health.DatabaseAccessible,
	})
}

// handleListRegulations lists every stored regulation.
func (s *Server) handleListRegulations(w http.ResponseWriter, r *http.Request) {
	regs, err := s.store.ListRegulations(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}

	out := make([]regulationResponse, 0, len(regs))
	for _, reg := range regs {
		out = append(out, regulationResponse{
			ID:         reg.ID,
			Title:      reg.Title,
			EntryCount: reg.EntryCount,
			CreatedAt:  reg.CreatedAt,
		})
	}
	writeJSON(w, map[string]any{"regulations": out})
}

// handleGetRegulation returns a regulation's preamble and all of its entries
// in source order.
func (s *Server) handleGetRegulation(w http.ResponseWriter, r *http.Request) {
	title := pathParam(r, "title")

	reg, err := s.store.GetRegulationByTitle(r.Context(), title)
	if err != nil {
		s.storeError(w, err)
		return
	}

	entries, err := s.store.ListEntriesByRegulation(r.Context(), reg.ID)
	if err != nil {
		s.storeError(w, err)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, newEntryResponse(e))
	}
	writeJSON(w, map[string]any{
		"id":       reg.ID,
		"title":    reg.Title,
		"preamble": reg.Preamble,
		"entries":  out,
	})
}

// handleGetEntry returns a single entry.
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	e, err := s.store.GetEntry(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, newEntryResponse(e))
}

// handleEntryContext returns an entry with its ancestors and subtree.
func (s *Server) handleEntryContext(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	c, err := s.assembler.Context(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}

	ancestors := make([]entryResponse, 0, len(c.Ancestors))
	for _, a := range c.Ancestors {
		ancestors = append(ancestors, newEntryResponse(a))
	}
	descendants := make([]entryResponse, 0, len(c.Descendants))
	for _, d := range c.Descendants {
		e := newEntryResponse(d.Entry)
		e.Distance = d.Distance
		descendants = append(descendants, e)
	}

	writeJSON(w, map[string]any{
		"entry":       newEntryResponse(c.Entry),
		"hierarchy":   c.Breadcrumb(),
		"content":     c.Content(),
		"ancestors":   ancestors,
		"descendants": descendants,
	})
}

// handleHierarchy returns the unit label path of an entry.
func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	crumbs, err := s.assembler.ConcatenateUnitLabels(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"hierarchy": crumbs})
}

// handleSearch runs a content search.
//
//	GET /api/search?q=護欄&mode=literal&regulation=...&limit=20&context=true&dedup=true
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := searcher.Request{
		Query:       q.Get("q"),
		Mode:        storage.SearchMode(q.Get("mode")),
		WithContext: queryBool(q, "context", true),
		Deduplicate: queryBool(q, "dedup", true),
		UseCache:    false, // the CLI may write to the same database
	}
	if req.Query == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		req.Limit = limit
	}

	if title := q.Get("regulation"); title != "" {
		reg, err := s.store.GetRegulationByTitle(r.Context(), title)
		if err != nil {
			s.storeError(w, err)
			return
		}
		req.RegulationID = reg.ID
	}

	resp, err := s.searcher.Search(r.Context(), req)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	type match struct {
		Rank      int           `json:"rank"`
		Hierarchy string        `json:"hierarchy"`
		Text      string        `json:"text"`
		Entry     entryResponse `json:"entry"`
	}
	results := make([]match, 0, len(resp.Results))
	for _, m := range resp.Results {
		results = append(results, match{
			Rank:      m.Rank,
			Hierarchy: m.Breadcrumb,
			Text:      m.Text,
			Entry:     newEntryResponse(m.Entry),
		})
	}

	writeJSON(w, map[string]any{
		"query":         req.Query,
		"mode":          resp.Mode,
		"total_results": resp.TotalResults,
		"duplicates":    resp.Duplicates,
		"cache_hit":     resp.CacheHit,
		"results":       results,
	})
}

// storeError maps store errors to HTTP status codes.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, types.ErrForestConsistency):
		s.log.Error("forest consistency violation", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
	default:
		s.log.Error("store error", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

// entryID parses the entryID path parameter, writing a 400 on failure.
func entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil || id < 1 {
		jsonError(w, "entry id must be a positive integer", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// pathParam returns a decoded path parameter. Titles are usually CJK and
// arrive percent-encoded.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if strings.Contains(v, "%") {
		if decoded, err := url.PathUnescape(v); err == nil {
			return decoded
		}
	}
	return v
}

func queryBool(q url.Values, key string, def bool) bool {
	v := q.Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
