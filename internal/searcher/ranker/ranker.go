// Package ranker implements Okapi BM25 scoring over posting lists.
package ranker

import (
	"math"
	"sort"
)

const (
	k1 = 1.2
	b  = 0.75
)

// Posting is one (document, term frequency) entry of a term's posting list.
type Posting struct {
	DocID     int `json:"doc_id"`
	Frequency int `json:"frequency"`
}

// ScoredDoc is a ranked document.
type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
}

// Corpus is the read view the ranker needs from an index. Implementations
// are called while the caller holds whatever lock protects them.
type Corpus interface {
	// DocFreq is the number of documents holding term.
	DocFreq(term string) int
	// EachPosting visits the postings of term in any order.
	EachPosting(term string, fn func(Posting))
	DocLength(docID int) int
	TotalDocs() int
	AvgDocLength() float64
}

// Rank scores every document that shares a term with the query and returns
// the best limit of them, highest score first. Query terms are taken as
// given: a term repeated in the query contributes once per occurrence.
// Equal scores are ordered by ascending doc id.
func Rank(c Corpus, queryTerms []string, limit int) []ScoredDoc {
	totalDocs := c.TotalDocs()
	if totalDocs == 0 || len(queryTerms) == 0 || limit <= 0 {
		return []ScoredDoc{}
	}
	avgDocLength := math.Max(c.AvgDocLength(), 1.0)

	scores := make(map[int]float64)
	for _, term := range queryTerms {
		docFreq := c.DocFreq(term)
		if docFreq == 0 {
			continue
		}
		idf := computeIDF(totalDocs, docFreq)
		c.EachPosting(term, func(p Posting) {
			docLength := c.DocLength(p.DocID)
			if docLength == 0 {
				return
			}
			scores[p.DocID] += idf * computeTFNorm(float64(p.Frequency), float64(docLength), avgDocLength)
		})
	}

	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ScoredDoc{DocID: docID, Score: score})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

// computeIDF is the BM25+1 variant, floored at zero so very common terms
// never subtract from a score.
func computeIDF(totalDocs int, docFreq int) float64 {
	n := float64(totalDocs)
	df := float64(docFreq)
	return math.Max(0, math.Log((n-df+0.5)/(df+0.5)+1))
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}
