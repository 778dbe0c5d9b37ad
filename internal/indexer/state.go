package indexer

import (
	"maps"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer/extractor"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer/tokenizer"
)

// state is everything one index generation owns. symbols is an arena of
// doc slots: a nil entry is a free slot whose id sits on freeIDs.
type state struct {
	idx         *index.Index
	symbols     []*extractor.Symbol
	freeIDs     []int
	fileDocs    map[string][]int
	languages   map[string]int
	symbolCount int
	elapsedMs   int64
}

func newState() *state {
	return &state{
		idx:       index.New(),
		fileDocs:  make(map[string][]int),
		languages: make(map[string]int),
	}
}

func (s *state) alloc() int {
	if n := len(s.freeIDs); n > 0 {
		id := s.freeIDs[n-1]
		s.freeIDs = s.freeIDs[:n-1]
		return id
	}
	s.symbols = append(s.symbols, nil)
	return len(s.symbols) - 1
}

// addFile indexes the symbols of path. The caller removes any previous
// docs of path first. A symbol whose text yields no terms could never
// match, so it gets no slot, and a file left with no docs is not recorded.
func (s *state) addFile(path string, symbols []extractor.Symbol) {
	docs := make([]int, 0, len(symbols))
	for i := range symbols {
		terms := tokenizer.Tokenize(symbols[i].IndexText())
		if len(terms) == 0 {
			continue
		}
		sym := symbols[i]
		id := s.alloc()
		s.symbols[id] = &sym
		s.idx.Add(id, terms)
		docs = append(docs, id)
		s.languages[sym.Language]++
		s.symbolCount++
	}
	if len(docs) == 0 {
		return
	}
	s.fileDocs[path] = docs
}

// removeFile drops every doc of path. Postings are scrubbed before a slot
// goes back on the free list, so a recycled id never inherits terms.
func (s *state) removeFile(path string) bool {
	docs, ok := s.fileDocs[path]
	if !ok {
		return false
	}
	for _, id := range docs {
		s.idx.Remove(id)
		sym := s.symbols[id]
		if sym == nil {
			continue
		}
		if s.languages[sym.Language]--; s.languages[sym.Language] <= 0 {
			delete(s.languages, sym.Language)
		}
		s.symbolCount--
		s.symbols[id] = nil
		s.freeIDs = append(s.freeIDs, id)
	}
	delete(s.fileDocs, path)
	return true
}

func (s *state) symbol(id int) *extractor.Symbol {
	if id < 0 || id >= len(s.symbols) {
		return nil
	}
	return s.symbols[id]
}

func (s *state) files() []string {
	files := make([]string, 0, len(s.fileDocs))
	for path := range s.fileDocs {
		files = append(files, path)
	}
	sort.Strings(files)
	return files
}

func (s *state) stats() Stats {
	return Stats{
		TotalFiles:   len(s.fileDocs),
		TotalSymbols: s.symbolCount,
		TotalTerms:   s.idx.TermCount(),
		Languages:    maps.Clone(s.languages),
		ElapsedMs:    s.elapsedMs,
	}
}
