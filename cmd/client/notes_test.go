package main

import (
	"bytes"
	"testing"

	"github.com/atinyakov/QuoteKeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want models.NoteFilter
	}{
		{"defaults", nil, models.NoteFilter{Sort: models.SortNewest}},
		{"all flags", []string{"--sort", "alphabetical", "--category", "Latin", "--favorites", "--search", "carpe"},
			models.NoteFilter{Sort: models.SortAlphabetical, Category: "Latin", FavoritesOnly: true, Search: "carpe"}},
		{"shorthands", []string{"-s", "oldest", "-c", "Life", "-f"},
			models.NoteFilter{Sort: models.SortOldest, Category: "Life", FavoritesOnly: true}},
		{"words are the search", []string{"-f", "stay", "hungry"},
			models.NoteFilter{Sort: models.SortNewest, FavoritesOnly: true, Search: "stay hungry"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseListArgs(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseListArgs_Errors(t *testing.T) {
	for _, args := range [][]string{
		{"--sort", "random"},
		{"--search", "a", "b"},
		{"--unknown"},
	} {
		_, err := parseListArgs(args)
		assert.Error(t, err, args)
	}
}

func TestPrintLocalCounts(t *testing.T) {
	var buf bytes.Buffer
	printLocalCounts(&buf, 5, 2)
	assert.Equal(t, "5 quotes stored locally, 2 favorites\n", buf.String())
}
