// Package indexer owns the searchable index of one project: it walks the
// project, extracts symbols, keeps the inverted index current as files
// change, and answers ranked queries.
package indexer

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer/extractor"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer/walker"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/codesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/metrics"
)

// Stats are the aggregate counters of the current index. Languages counts
// symbols per language name.
type Stats struct {
	TotalFiles   int            `json:"total_files"`
	TotalSymbols int            `json:"total_symbols"`
	TotalTerms   int            `json:"total_terms"`
	Languages    map[string]int `json:"languages"`
	ElapsedMs    int64          `json:"elapsed_ms"`
}

type SearchResult struct {
	Symbol extractor.Symbol `json:"symbol"`
	Score  float64          `json:"score"`
}

type Option func(*Engine)

// WithParser replaces the tree-sitter parser.
func WithParser(p extractor.Parser) Option {
	return func(e *Engine) { e.extractor = extractor.New(p) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine serialises every operation behind one mutex. A full Reindex holds
// it for the whole walk, so a concurrent Search waits and then sees the new
// index, never a partial one.
type Engine struct {
	mu       sync.Mutex
	st       *state
	poisoned bool
	closed   bool

	generation atomic.Uint64
	cfg        config.IndexConfig
	extractor  *extractor.Extractor
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewEngine(cfg config.IndexConfig, opts ...Option) *Engine {
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = config.Default().Index.MaxFileBytes
	}
	e := &Engine{
		st:     newState(),
		cfg:    cfg,
		logger: slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.extractor == nil {
		e.extractor = extractor.New(nil)
	}
	return e
}

// Reindex discards the current index and indexes every supported file
// below root. Files that cannot be read, are too large, or have an
// unsupported extension are skipped. A root that does not exist yields an
// empty index.
func (e *Engine) Reindex(root string) (Stats, error) {
	var stats Stats
	err := e.mutate("reindex", func() error {
		start := time.Now()
		next := newState()

		w := walker.New(absPath(root), walker.Options{
			IgnorePatterns:   e.cfg.IgnorePatterns,
			IncludeHidden:    e.cfg.IncludeHidden,
			RespectGitignore: e.cfg.RespectGitignore,
		})
		walkErr := w.Walk(func(path string, info fs.FileInfo) error {
			lang, ok := extractor.DetectLanguage(path)
			if !ok || info.Size() > e.cfg.MaxFileBytes {
				return nil
			}
			source, err := os.ReadFile(path)
			if err != nil {
				e.logger.Debug("skipping unreadable file", "path", path, "error", err)
				return nil
			}
			next.addFile(path, e.extractor.Extract(path, source, lang))
			return nil
		})
		if walkErr != nil {
			e.logger.Warn("project walk failed, index is empty", "root", root, "error", walkErr)
		}

		next.elapsedMs = time.Since(start).Milliseconds()
		e.st = next
		stats = next.stats()

		e.logger.Info("reindex complete",
			"root", root,
			"files", stats.TotalFiles,
			"symbols", stats.TotalSymbols,
			"terms", stats.TotalTerms,
			"elapsed_ms", stats.ElapsedMs,
		)
		return nil
	})
	return stats, err
}

// Search returns at most topK symbols ranked by BM25 against query. An
// empty query or index gives an empty result.
func (e *Engine) Search(query string, topK int) ([]SearchResult, error) {
	terms := tokenizer.Tokenize(query)
	var results []SearchResult
	err := e.read(func() {
		results = make([]SearchResult, 0, max(0, min(topK, e.st.symbolCount)))
		if len(terms) == 0 || topK <= 0 {
			return
		}
		for _, sd := range e.st.idx.Search(terms, topK) {
			sym := e.st.symbol(sd.DocID)
			if sym == nil {
				continue
			}
			results = append(results, SearchResult{Symbol: *sym, Score: sd.Score})
		}
	})
	return results, err
}

// UpdateFile replaces the indexed symbols of path with its current
// contents. Unsupported, oversized, and unreadable files are left alone.
func (e *Engine) UpdateFile(path string) error {
	path = absPath(path)
	lang, ok := extractor.DetectLanguage(path)
	if !ok {
		e.logger.Debug("update skipped, unsupported language", "path", path)
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		e.logger.Debug("update skipped, cannot stat file", "path", path, "error", err)
		return nil
	}
	if info.Size() > e.cfg.MaxFileBytes {
		e.logger.Debug("update skipped, file too large",
			"path", path,
			"size", info.Size(),
			"limit", e.cfg.MaxFileBytes,
		)
		return nil
	}
	source, err := os.ReadFile(path)
	if err != nil {
		e.logger.Debug("update skipped, cannot read file", "path", path, "error", err)
		return nil
	}
	symbols := e.extractor.Extract(path, source, lang)

	return e.mutate("update", func() error {
		e.st.removeFile(path)
		e.st.addFile(path, symbols)
		e.logger.Debug("file updated", "path", path, "symbols", len(e.st.fileDocs[path]))
		return nil
	})
}

// RemoveFile drops every symbol of path. Removing a file that was never
// indexed does nothing.
func (e *Engine) RemoveFile(path string) error {
	path = absPath(path)
	return e.mutate("remove", func() error {
		if e.st.removeFile(path) {
			e.logger.Debug("file removed", "path", path)
		}
		return nil
	})
}

func (e *Engine) Stats() (Stats, error) {
	var stats Stats
	err := e.read(func() { stats = e.st.stats() })
	return stats, err
}

// Files lists the indexed file paths in sorted order.
func (e *Engine) Files() ([]string, error) {
	var files []string
	err := e.read(func() { files = e.st.files() })
	return files, err
}

// Generation increases on every mutation. Results cached under one
// generation are stale once it changes.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

// Close releases the index. Every later call fails with ErrClosed.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.st = newState()
	e.generation.Add(1)
}

func (e *Engine) usable() error {
	if e.closed {
		return apperrors.ErrClosed
	}
	if e.poisoned {
		return apperrors.ErrIndexPoisoned
	}
	return nil
}

// mutate runs fn under the lock. A panic inside fn may leave the state half
// written, so it poisons the engine for good.
func (e *Engine) mutate(op string, fn func() error) (err error) {
	start := time.Now()
	var stats Stats
	defer func() {
		e.metrics.ObserveIndex(op, time.Since(start).Seconds(), err,
			stats.TotalFiles, stats.TotalSymbols, stats.TotalTerms)
	}()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usable(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	defer func() {
		if r := recover(); r != nil {
			e.poisoned = true
			e.logger.Error("index mutation panicked, engine poisoned", "op", op, "panic", r)
			err = fmt.Errorf("%s: %w: %v", op, apperrors.ErrIndexPoisoned, r)
		}
	}()

	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	e.generation.Add(1)
	stats = e.st.stats()
	return nil
}

// read runs fn under the lock. Queries do not change state, so a panic
// fails only the current call.
func (e *Engine) read(fn func()) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usable(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("index read panicked", "panic", r)
			err = fmt.Errorf("%w: %v", apperrors.ErrInternal, r)
		}
	}()
	fn()
	return nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
