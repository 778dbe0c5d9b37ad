package index

import "github.com/Adithya-Monish-Kumar-K/codesearch/internal/searcher/ranker"

// DocFreq is the number of live documents containing term.
func (ix *Index) DocFreq(term string) int {
	return len(ix.postings[term])
}

// EachPosting calls fn for every posting of term, in no particular order.
// fn must not modify the index.
func (ix *Index) EachPosting(term string, fn func(ranker.Posting)) {
	for docID, freq := range ix.postings[term] {
		fn(ranker.Posting{DocID: docID, Frequency: freq})
	}
}
