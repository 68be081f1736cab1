package tokenizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gdelt-trends/internal/tokenizer"
	"gdelt-trends/internal/trend"
)

func TestSplitAndClean(t *testing.T) {
	got := tokenizer.SplitAndClean("TAX_POLITICAL;AND;example.com;google.com/news;1.2,3.4,5.6,7.8;covid-19;TH")
	assert.Equal(t, []string{"tax_political", "covid-19"}, got)
}

func TestSplitAndCleanEmpty(t *testing.T) {
	assert.Nil(t, tokenizer.SplitAndClean(""))
}

func TestIsNoise(t *testing.T) {
	cases := map[string]bool{
		"th":                 true, // too short
		"covid-19":           false,
		"https://example.com": true,
		"www.example.com":    true,
		"example.com":        true,
		"1.2,3.4,5.6,7.8":    true,
		"111222333":          true, // all digits
		"tax_political":      false,
		"covid19variant":     false,
	}
	for in, want := range cases {
		assert.Equalf(t, want, tokenizer.IsNoise(in), "token=%q", in)
	}
}

func TestIsNumericVector(t *testing.T) {
	assert.True(t, tokenizer.IsNumericVector("1.2,3.4,5.6,7.8"))
	assert.True(t, tokenizer.IsNumericVector("1,2,3,4"))
	assert.False(t, tokenizer.IsNumericVector("1,2,3"))
	assert.False(t, tokenizer.IsNumericVector("covid-19"))
}

func TestFilterNoise(t *testing.T) {
	in := []trend.Keyword{
		{Word: "covid-19", Count: 3},
		{Word: "example.com", Count: 1},
		{Word: "th", Count: 9},
	}
	got := tokenizer.FilterNoise(in)
	assert.Len(t, got, 1)
	assert.Equal(t, "covid-19", got[0].Word)
}

func TestFilterNumericVectors(t *testing.T) {
	in := []trend.Keyword{
		{Word: "covid-19", Count: 3},
		{Word: "1.2,3.4,5.6,7.8", Count: 1},
		{Word: "example.com", Count: 1},
	}
	got := tokenizer.FilterNumericVectors(in)
	assert.Len(t, got, 2)
}
