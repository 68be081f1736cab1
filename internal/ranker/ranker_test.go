package ranker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gdelt-trends/internal/ranker"
	"gdelt-trends/internal/trend"
)

func TestRankBagTieBreak(t *testing.T) {
	got := ranker.RankBag([]string{"a", "b", "a", "c", "b", "d"}, 2)
	assert.Equal(t, []trend.Keyword{
		{Word: "a", Count: 2},
		{Word: "b", Count: 2},
	}, got)
}

func TestRankByCountFoldsCaseInsensitively(t *testing.T) {
	got := ranker.RankByCount([]trend.Keyword{
		{Word: "Covid", Count: 2},
		{Word: "covid", Count: 3},
		{Word: "flu", Count: 1},
	}, 10)
	assert.Equal(t, 2, len(got))
	assert.Equal(t, "covid", got[0].Word)
	assert.Equal(t, 5, got[0].Count)
}

func TestRankByCountSkipsMissingWord(t *testing.T) {
	got := ranker.RankByCount([]trend.Keyword{
		{Word: "", Count: 5},
		{Word: "covid", Count: 1},
	}, 10)
	assert.Equal(t, 1, len(got))
	assert.Equal(t, "covid", got[0].Word)
}

func TestRankByCountUnionsDocuments(t *testing.T) {
	got := ranker.RankByCount([]trend.Keyword{
		{Word: "covid", Count: 1, Documents: map[string]bool{"doc1": true}},
		{Word: "covid", Count: 1, Documents: map[string]bool{"doc2": true}},
	}, 10)
	assert.Equal(t, 1, len(got))
	assert.ElementsMatch(t, []string{"doc1", "doc2"}, got[0].DocumentIDs())
}

func TestRankByCountInvariants(t *testing.T) {
	input := []trend.Keyword{
		{Word: "a", Count: 4}, {Word: "b", Count: 1}, {Word: "c", Count: 9},
	}
	out := ranker.RankByCount(input, 2)
	assert.LessOrEqual(t, len(out), 2)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].Count, out[i].Count)
	}
}
