package ranker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCorpus struct {
	postings map[string][]Posting
	lengths  map[int]int
}

func (f *fakeCorpus) DocFreq(term string) int { return len(f.postings[term]) }
func (f *fakeCorpus) DocLength(docID int) int  { return f.lengths[docID] }

func (f *fakeCorpus) EachPosting(term string, fn func(Posting)) {
	for _, p := range f.postings[term] {
		fn(p)
	}
}

func (f *fakeCorpus) TotalDocs() int {
	n := 0
	for _, l := range f.lengths {
		if l > 0 {
			n++
		}
	}
	return n
}

func (f *fakeCorpus) AvgDocLength() float64 {
	total, n := 0, 0
	for _, l := range f.lengths {
		if l > 0 {
			total += l
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

func TestComputeIDF(t *testing.T) {
	// ln((10-1+0.5)/(1+0.5)+1)
	assert.InDelta(t, math.Log(9.5/1.5+1), computeIDF(10, 1), 1e-12)
	assert.GreaterOrEqual(t, computeIDF(1, 1), 0.0)
	assert.Greater(t, computeIDF(100, 1), computeIDF(100, 50))
}

func TestComputeTFNormSaturates(t *testing.T) {
	low := computeTFNorm(1, 10, 10)
	high := computeTFNorm(100, 10, 10)

	assert.Greater(t, high, low)
	assert.Less(t, high, k1+1)
}

func TestComputeTFNormPenalisesLongDocs(t *testing.T) {
	assert.Greater(t, computeTFNorm(2, 5, 10), computeTFNorm(2, 50, 10))
}

func TestRankOrdersByScore(t *testing.T) {
	c := &fakeCorpus{
		postings: map[string][]Posting{
			"user":  {{DocID: 0, Frequency: 1}, {DocID: 2, Frequency: 3}},
			"login": {{DocID: 0, Frequency: 1}},
		},
		lengths: map[int]int{0: 5, 1: 5, 2: 5},
	}

	got := Rank(c, []string{"user", "login"}, 10)

	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].DocID)
	assert.Equal(t, 2, got[1].DocID)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestRankTieBreaksByDocID(t *testing.T) {
	c := &fakeCorpus{
		postings: map[string][]Posting{
			"user": {{DocID: 7, Frequency: 1}, {DocID: 3, Frequency: 1}, {DocID: 5, Frequency: 1}},
		},
		lengths: map[int]int{3: 4, 5: 4, 7: 4, 9: 4},
	}

	got := Rank(c, []string{"user"}, 10)

	require.Len(t, got, 3)
	assert.Equal(t, []int{3, 5, 7}, []int{got[0].DocID, got[1].DocID, got[2].DocID})
}

func TestRankSkipsZeroLengthDocs(t *testing.T) {
	c := &fakeCorpus{
		postings: map[string][]Posting{
			"user": {{DocID: 0, Frequency: 1}, {DocID: 1, Frequency: 1}},
		},
		lengths: map[int]int{0: 3, 1: 0, 2: 3},
	}

	got := Rank(c, []string{"user"}, 10)

	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].DocID)
}

func TestRankTruncatesToLimit(t *testing.T) {
	postings := make([]Posting, 0, 20)
	lengths := make(map[int]int, 40)
	for i := 0; i < 40; i++ {
		lengths[i] = 3
		if i < 20 {
			postings = append(postings, Posting{DocID: i, Frequency: 1 + i%3})
		}
	}
	c := &fakeCorpus{postings: map[string][]Posting{"x1": postings}, lengths: lengths}

	assert.Len(t, Rank(c, []string{"x1"}, 5), 5)
	assert.Empty(t, Rank(c, []string{"x1"}, 0))
}

func TestRankEmptyInputs(t *testing.T) {
	empty := &fakeCorpus{postings: map[string][]Posting{}, lengths: map[int]int{}}
	assert.Empty(t, Rank(empty, []string{"user"}, 5))

	c := &fakeCorpus{
		postings: map[string][]Posting{"user": {{DocID: 0, Frequency: 1}}},
		lengths:  map[int]int{0: 1},
	}
	assert.Empty(t, Rank(c, nil, 5))
	assert.Empty(t, Rank(c, []string{"missing"}, 5))
}

func TestRankRepeatedQueryTermAccumulates(t *testing.T) {
	c := &fakeCorpus{
		postings: map[string][]Posting{
			"user": {{DocID: 0, Frequency: 1}},
		},
		lengths: map[int]int{0: 2, 1: 2, 2: 2},
	}

	once := Rank(c, []string{"user"}, 1)
	twice := Rank(c, []string{"user", "user"}, 1)

	require.Len(t, once, 1)
	require.Len(t, twice, 1)
	assert.InDelta(t, 2*once[0].Score, twice[0].Score, 1e-12)
}
