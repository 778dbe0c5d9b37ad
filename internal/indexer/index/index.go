// Package index holds the in-memory inverted index: per-term postings, per
// document lengths, and the corpus statistics BM25 needs. Doc ids are small
// integers handed out by the caller; the index only records which are live.
//
// An Index is not safe for concurrent use. The owning engine serialises
// every call behind its own lock.
package index

import "github.com/Adithya-Monish-Kumar-K/codesearch/internal/searcher/ranker"

type Index struct {
	// postings maps term -> doc id -> term frequency.
	postings map[string]map[int]int
	// docLengths is indexed by doc id; 0 means the id is not live.
	docLengths []int
	// docTerms lists the distinct terms of each live doc so Remove only
	// touches the posting lists that can hold the id.
	docTerms    map[int][]string
	docCount    int
	totalLength int
	avgLength   float64
}

func New() *Index {
	return &Index{
		postings: make(map[string]map[int]int),
		docTerms: make(map[int][]string),
	}
}

// Add indexes terms under docID, replacing whatever the id held before.
// A doc with no terms cannot be live, so an empty terms slice leaves the id
// removed.
func (ix *Index) Add(docID int, terms []string) {
	if docID < 0 {
		return
	}
	ix.Remove(docID)
	if len(terms) == 0 {
		return
	}

	freqs := make(map[string]int, len(terms))
	distinct := make([]string, 0, len(terms))
	for _, term := range terms {
		if freqs[term] == 0 {
			distinct = append(distinct, term)
		}
		freqs[term]++
	}

	for docID >= len(ix.docLengths) {
		ix.docLengths = append(ix.docLengths, 0)
	}
	ix.docLengths[docID] = len(terms)
	ix.docTerms[docID] = distinct

	for term, freq := range freqs {
		docs, ok := ix.postings[term]
		if !ok {
			docs = make(map[int]int)
			ix.postings[term] = docs
		}
		docs[docID] = freq
	}

	ix.docCount++
	ix.totalLength += len(terms)
	ix.recomputeAvg()
}

// Remove scrubs docID from every posting list and marks it not live. It is
// a no-op for ids that are not live. Posting lists left empty are dropped.
func (ix *Index) Remove(docID int) {
	if !ix.IsLive(docID) {
		return
	}
	for _, term := range ix.docTerms[docID] {
		docs := ix.postings[term]
		delete(docs, docID)
		if len(docs) == 0 {
			delete(ix.postings, term)
		}
	}
	delete(ix.docTerms, docID)

	ix.totalLength -= ix.docLengths[docID]
	ix.docLengths[docID] = 0
	ix.docCount--
	ix.recomputeAvg()
}

func (ix *Index) recomputeAvg() {
	if ix.docCount == 0 {
		ix.avgLength = 0
		return
	}
	ix.avgLength = float64(ix.totalLength) / float64(ix.docCount)
}

// Search ranks live documents against queryTerms with BM25.
func (ix *Index) Search(queryTerms []string, topK int) []ranker.ScoredDoc {
	return ranker.Rank(ix, queryTerms, topK)
}

// IsLive reports whether docID currently holds a document.
func (ix *Index) IsLive(docID int) bool {
	return docID >= 0 && docID < len(ix.docLengths) && ix.docLengths[docID] > 0
}

func (ix *Index) DocLength(docID int) int {
	if docID < 0 || docID >= len(ix.docLengths) {
		return 0
	}
	return ix.docLengths[docID]
}

// TotalDocs is the live document count.
func (ix *Index) TotalDocs() int {
	return ix.docCount
}

// TermCount is the number of distinct terms with at least one posting.
func (ix *Index) TermCount() int {
	return len(ix.postings)
}

// AvgDocLength is the mean length of live documents, 0 for an empty index.
func (ix *Index) AvgDocLength() float64 {
	return ix.avgLength
}
