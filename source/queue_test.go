package source_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gaurav-prasanna/subdigest/source"
)

func TestQueue_DedupKeepsOrder(t *testing.T) {
	q := source.NewQueue("stocks", "investing", "r/Stocks", " ", "/r/ETFs_Europe/", "INVESTING")
	assert.Equal(t, []string{"stocks", "investing", "ETFs_Europe"}, q.All())
	assert.Equal(t, 3, q.Len())

	var got []string
	for q.HasNext() {
		got = append(got, q.Next())
	}
	assert.Equal(t, q.All(), got)
	assert.False(t, q.HasNext())
}

func TestNormalizeSubreddit(t *testing.T) {
	tests := map[string]string{
		"stocks":             "stocks",
		"  r/wallstreetbets": "wallstreetbets",
		"/r/ValueInvesting/": "ValueInvesting",
		"R/StockMarket":      "StockMarket",
		"r/":                 "r",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, source.NormalizeSubreddit(in))
		})
	}
}

func TestValidateSubreddit(t *testing.T) {
	for _, ok := range []string{"stocks", "ETFs_Europe", "wallstreetbets", "a1"} {
		assert.NoError(t, source.ValidateSubreddit(ok), ok)
	}
	for _, bad := range []string{"", "a", "_under", "has space", "way_too_long_for_reddit_names", "dash-name"} {
		assert.ErrorIs(t, source.ValidateSubreddit(bad), source.ErrInvalidSubreddit, bad)
	}
}
