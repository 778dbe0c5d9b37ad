package indexer

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/config"
)

func benchProject(b *testing.B, files int) string {
	b.Helper()
	dir := b.TempDir()
	words := []string{"parse", "config", "session", "token", "request", "cache", "search", "render"}
	for i := range files {
		src := fmt.Sprintf("def %s_%s_%d(value):\n    return %s(value)\n",
			words[i%len(words)], words[(i+1)%len(words)], i, words[(i+2)%len(words)])
		path := filepath.Join(dir, fmt.Sprintf("pkg%d", i%10), fmt.Sprintf("mod%d.py", i))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			b.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			b.Fatal(err)
		}
	}
	return dir
}

func BenchmarkEngineReindex(b *testing.B) {
	for _, files := range []int{100, 1000} {
		dir := benchProject(b, files)
		b.Run(fmt.Sprintf("files_%d", files), func(b *testing.B) {
			e := NewEngine(config.Default().Index, WithParser(chunkOnly{}))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := e.Reindex(dir); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkEngineSearch(b *testing.B) {
	e := NewEngine(config.Default().Index, WithParser(chunkOnly{}))
	if _, err := e.Reindex(benchProject(b, 2000)); err != nil {
		b.Fatal(err)
	}
	queries := []string{"parse config", "session token", "cache", "render request value"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Search(queries[i%len(queries)], 10); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEngineUpdateFile(b *testing.B) {
	dir := benchProject(b, 1000)
	e := NewEngine(config.Default().Index, WithParser(chunkOnly{}))
	if _, err := e.Reindex(dir); err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(dir, "pkg0", "mod0.py")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := e.UpdateFile(path); err != nil {
			b.Fatal(err)
		}
	}
}
