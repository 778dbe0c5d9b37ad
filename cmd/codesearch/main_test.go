package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.py"),
		[]byte("def login(user, password):\n    return verify(user, password)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.py"),
		[]byte("def read_file(path):\n    return open(path).read()\n"), 0o644))
	return dir
}

func TestIndexCommand(t *testing.T) {
	out := execute(t, "index", project(t), "--json")

	var stats indexer.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Contains(t, stats.Languages, "python")
}

func TestSearchCommand(t *testing.T) {
	dir := project(t)
	out := execute(t, "search", dir, "login", "--json", "--limit", "3")

	var results []indexer.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.NotEmpty(t, results)
	assert.Equal(t, filepath.Join(dir, "auth.py"), results[0].Symbol.FilePath)
}

func TestRunLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/search", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cache_hit":true,"results":[]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	stats := runLoad(ctx, srv.URL, []string{"a b"}, 2, 5)

	require.Positive(t, stats.total)
	assert.Zero(t, stats.failed)
	assert.Equal(t, stats.total, stats.cacheHits)
	assert.Equal(t, stats.total, stats.statuses[http.StatusOK])

	var buf bytes.Buffer
	stats.report(&buf, 200*time.Millisecond)
	assert.Contains(t, buf.String(), "latency p99")
}

func TestLatencyPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), latencyPercentile(sorted, 50))
	assert.Equal(t, time.Duration(10), latencyPercentile(sorted, 99))
	assert.Equal(t, time.Duration(1), latencyPercentile(sorted, 0))
	assert.Zero(t, latencyPercentile(nil, 50))
}
