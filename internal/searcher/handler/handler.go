// Package handler serves the search engine over HTTP: ranked queries,
// index maintenance, cache control, and the stats the engine keeps.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/codesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/tracing"
)

// Engine is the part of *indexer.Engine the HTTP surface drives.
type Engine interface {
	Search(query string, topK int) ([]indexer.SearchResult, error)
	Reindex(root string) (indexer.Stats, error)
	UpdateFile(path string) error
	RemoveFile(path string) error
	Stats() (indexer.Stats, error)
	Files() ([]string, error)
	Generation() uint64
}

type Tracker interface {
	Track(event any)
}

type SearchResponse struct {
	Query      string                 `json:"query"`
	Terms      []string               `json:"terms"`
	Results    []indexer.SearchResult `json:"results"`
	Count      int                    `json:"count"`
	CacheHit   bool                   `json:"cache_hit"`
	LatencyMs  int64                  `json:"latency_ms"`
	Generation uint64                 `json:"generation"`
}

type Option func(*Handler)

func WithCache(c *cache.QueryCache) Option {
	return func(h *Handler) { h.cache = c }
}

func WithTracker(t Tracker) Option {
	return func(h *Handler) { h.tracker = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

type Handler struct {
	engine  Engine
	cache   *cache.QueryCache
	tracker Tracker
	metrics *metrics.Metrics
	cfg     config.SearchConfig
	logger  *slog.Logger
}

func New(engine Engine, cfg config.SearchConfig, opts ...Option) *Handler {
	def := config.Default().Search
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = max(def.MaxLimit, cfg.DefaultLimit)
	}
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = def.MaxQueryLength
	}
	h := &Handler{
		engine: engine,
		cfg:    cfg,
		logger: slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	if len(query) > h.cfg.MaxQueryLength {
		h.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("query exceeds %d bytes", h.cfg.MaxQueryLength))
		return
	}

	limit := h.cfg.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, h.cfg.MaxLimit)
	}

	ctx, span := tracing.Start(ctx, "search")
	defer func() {
		span.End()
		span.Log(log)
	}()

	terms := tokenizer.Tokenize(query)
	generation := h.engine.Generation()
	compute := func() ([]indexer.SearchResult, error) {
		_, engineSpan := tracing.Start(ctx, "engine")
		defer engineSpan.End()
		results, err := h.search(ctx, query, limit)
		engineSpan.Set("results", len(results))
		return results, err
	}

	var (
		results  []indexer.SearchResult
		cacheHit bool
		err      error
	)
	cacheStatus := "disabled"
	if h.cache != nil && len(terms) > 0 {
		results, cacheHit, err = h.cache.GetOrCompute(ctx, query, limit, generation, compute)
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		results, err = compute()
	}

	elapsed := time.Since(start)
	span.Set("cache", cacheStatus)
	h.metrics.ObserveSearch(cacheStatus, elapsed.Seconds(), len(results), err)
	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		h.writeAppError(w, err)
		return
	}

	log.Info("search completed",
		"query", query,
		"returned", len(results),
		"cache_hit", cacheHit,
		"latency_ms", elapsed.Milliseconds(),
	)
	if h.tracker != nil {
		eventType := analytics.EventSearch
		if len(results) == 0 {
			eventType = analytics.EventZeroResult
		}
		h.tracker.Track(analytics.SearchEvent{
			Type:      eventType,
			Query:     query,
			Terms:     terms,
			Returned:  len(results),
			LatencyMs: elapsed.Milliseconds(),
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:      query,
		Terms:      terms,
		Results:    results,
		Count:      len(results),
		CacheHit:   cacheHit,
		LatencyMs:  elapsed.Milliseconds(),
		Generation: generation,
	})
}

// search runs the query against the engine, giving up after the configured
// timeout. The engine call itself cannot be cancelled and finishes in the
// background.
func (h *Handler) search(ctx context.Context, query string, limit int) ([]indexer.SearchResult, error) {
	var results []indexer.SearchResult
	err := resilience.WithTimeout(ctx, h.cfg.Timeout, "search", func(context.Context) error {
		var err error
		results, err = h.engine.Search(query, limit)
		return err
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	}
	return results, err
}

type reindexRequest struct {
	Root string `json:"root"`
}

func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeAppError(w, err)
		return
	}
	if req.Root == "" {
		h.writeError(w, http.StatusBadRequest, "root is required")
		return
	}
	info, err := os.Stat(req.Root)
	if err != nil || !info.IsDir() {
		h.writeAppError(w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"root %q is not a directory", req.Root))
		return
	}

	start := time.Now()
	stats, err := h.engine.Reindex(req.Root)
	if err != nil {
		logger.FromContext(r.Context()).Error("reindex failed", "root", req.Root, "error", err)
		h.writeAppError(w, err)
		return
	}
	h.trackIndex("reindex", req.Root, stats.TotalFiles, stats.TotalSymbols, start)
	h.writeJSON(w, http.StatusOK, stats)
}

type fileRequest struct {
	Path string `json:"path"`
}

func (h *Handler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	h.fileOp(w, r, "update", h.engine.UpdateFile)
}

func (h *Handler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	h.fileOp(w, r, "remove", h.engine.RemoveFile)
}

func (h *Handler) fileOp(w http.ResponseWriter, r *http.Request, op string, apply func(string) error) {
	var req fileRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeAppError(w, err)
		return
	}
	if req.Path == "" {
		h.writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	start := time.Now()
	if err := apply(req.Path); err != nil {
		logger.FromContext(r.Context()).Error("file "+op+" failed", "path", req.Path, "error", err)
		h.writeAppError(w, err)
		return
	}
	h.metrics.FileEvent("api", op)
	h.trackIndex(op, req.Path, 1, 0, start)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":     op + "d",
		"path":       req.Path,
		"generation": h.engine.Generation(),
	})
}

// Stats reports index counters. ?files=true adds the indexed file list.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats()
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	resp := map[string]any{
		"index":      stats,
		"generation": h.engine.Generation(),
	}
	if withFiles, _ := strconv.ParseBool(r.URL.Query().Get("files")); withFiles {
		files, err := h.engine.Files()
		if err != nil {
			h.writeAppError(w, err)
			return
		}
		resp["files"] = files
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) trackIndex(op, path string, files, symbols int, start time.Time) {
	if h.tracker == nil {
		return
	}
	h.tracker.Track(analytics.IndexEvent{
		Type:      analytics.EventIndex,
		Op:        op,
		Source:    "api",
		Path:      path,
		Files:     files,
		Symbols:   symbols,
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
	})
}

const maxBodyBytes = 64 << 10

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid request body: %v", err)
	}
	return nil
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	} else if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	h.writeError(w, status, msg)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
