// Package walker lists the source files of a project directory. Hidden
// entries, configured ignore globs, and .gitignore rules are skipped.
package walker

import (
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	ignore "github.com/sabhiram/go-gitignore"
)

type Options struct {
	// IgnorePatterns are filepath.Match globs. A pattern without a slash
	// matches an entry's base name; one with a slash matches its path
	// relative to the root.
	IgnorePatterns []string
	IncludeHidden  bool
	// RespectGitignore applies the .gitignore of the root and of every
	// directory below it. A negation re-includes only paths excluded by
	// the same file.
	RespectGitignore bool
}

type Walker struct {
	root   string
	opts   Options
	logger *slog.Logger

	mu sync.Mutex
	// gitignores caches the compiled .gitignore of each directory, keyed by
	// its slash path relative to the root. nil means the directory has none.
	gitignores map[string]*ignore.GitIgnore
}

func New(root string, opts Options) *Walker {
	return &Walker{
		root:       filepath.Clean(root),
		opts:       opts,
		logger:     slog.Default().With("component", "walker"),
		gitignores: make(map[string]*ignore.GitIgnore),
	}
}

// Walk calls fn for every regular file below the root that is not
// ignored. Unreadable entries are skipped. Walking stops at the first
// error fn returns.
func (w *Walker) Walk(fn func(path string, info fs.FileInfo) error) error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug("skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() && path != w.root {
				return filepath.SkipDir
			}
			if path == w.root {
				return err
			}
			return nil
		}
		if path == w.root {
			return nil
		}
		if w.Ignored(path, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		return fn(path, info)
	})
}

// Ignored reports whether path, which must lie below the root, is
// excluded from indexing. The file watcher applies the same rules.
func (w *Walker) Ignored(p string, isDir bool) bool {
	rel, err := filepath.Rel(w.root, p)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") {
		return true
	}

	parts := strings.Split(rel, "/")
	for i, part := range parts {
		if !w.opts.IncludeHidden && strings.HasPrefix(part, ".") {
			return true
		}
		// Ancestors are checked too, so paths reported by the watcher for
		// files deep in an ignored directory are excluded.
		prefix := strings.Join(parts[:i+1], "/")
		if w.matchesGlob(prefix, part) {
			return true
		}
		if w.opts.RespectGitignore && w.gitignored(prefix, isDir || i < len(parts)-1) {
			return true
		}
	}
	return false
}

func (w *Walker) matchesGlob(rel, base string) bool {
	for _, pattern := range w.opts.IgnorePatterns {
		target := base
		if strings.Contains(pattern, "/") {
			target = rel
		}
		if ok, _ := filepath.Match(pattern, target); ok {
			return true
		}
	}
	return false
}

// gitignored checks rel against the .gitignore of every directory above
// it, each matching paths relative to its own directory.
func (w *Walker) gitignored(rel string, isDir bool) bool {
	dir := path.Dir(rel)
	for {
		if gi := w.gitignore(dir); gi != nil {
			target := rel
			if dir != "." {
				target = strings.TrimPrefix(rel, dir+"/")
			}
			if isDir {
				target += "/"
			}
			if gi.MatchesPath(target) {
				return true
			}
		}
		if dir == "." {
			return false
		}
		dir = path.Dir(dir)
	}
}

func (w *Walker) gitignore(dir string) *ignore.GitIgnore {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gi, ok := w.gitignores[dir]; ok {
		return gi
	}
	file := filepath.Join(w.root, filepath.FromSlash(dir), ".gitignore")
	gi, err := ignore.CompileIgnoreFile(file)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Debug("cannot read gitignore", "path", file, "error", err)
		}
		gi = nil
	}
	w.gitignores[dir] = gi
	return gi
}
