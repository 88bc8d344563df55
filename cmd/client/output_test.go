package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/atinyakov/QuoteKeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1", "42"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 42}, ids)

	for _, bad := range []string{"x", "0", "-3"} {
		_, err := parseIDs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b", preview("a\n  b"))

	long := strings.Repeat("ş", 100)
	got := preview(long)
	assert.Equal(t, previewLen, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestPrintNotes(t *testing.T) {
	var buf bytes.Buffer
	printNotes(&buf, nil)
	assert.Equal(t, "No quotes yet.\n", buf.String())

	buf.Reset()
	printNotes(&buf, []models.LocalNote{{
		LocalID: 3, Content: "Hayat güzeldir", Author: "Anonymous", Category: "General",
		IsFavorite: true, CreatedAt: time.Now(), State: models.Pending,
	}})
	out := buf.String()
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "Hayat güzeldir")
	assert.Contains(t, out, "*")
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, models.SyncReport{Attempted: 3, Synced: 2, Failed: 1})
	assert.Equal(t, "Synced 2 of 3 pending notes (1 still pending)\n", buf.String())
}
