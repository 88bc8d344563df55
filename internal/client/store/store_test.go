package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/atinyakov/QuoteKeeper/internal/apperr"
	"github.com/atinyakov/QuoteKeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "quotes.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func pendingNote(content string) models.LocalNote {
	return models.LocalNote{
		ClientRef: "ref-" + content,
		Content:   content,
		Author:    models.DefaultAuthor,
		Category:  models.DefaultCategory,
		CreatedAt: time.Now(),
		State:     models.Pending,
	}
}

func syncedNote(content string, serverID int64) models.LocalNote {
	n := pendingNote(content)
	n.ServerID = &serverID
	n.State = models.Synced
	return n
}

func TestInsertGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, pendingNote("Hayat güzeldir"))
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.LocalID)
	assert.Equal(t, "Hayat güzeldir", got.Content)
	assert.Equal(t, models.Pending, got.State)
	assert.Nil(t, got.ServerID)

	missing, err := s.Get(ctx, id+100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInsert_EmptyContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, content := range []string{"", "   "} {
		_, err := s.Insert(ctx, pendingNote(content))
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
	}

	n, err := s.CountWhere(ctx, func(models.LocalNote) bool { return true })
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsert_StateInvariant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bad := pendingNote("x")
	bad.State = models.Synced
	_, err := s.Insert(ctx, bad)
	assert.True(t, apperr.IsValidation(err))

	bad = pendingNote("y")
	bad.ServerID = models.Ptr(int64(3))
	_, err = s.Insert(ctx, bad)
	assert.True(t, apperr.IsValidation(err))
}

func TestLocalIDsAreNotReused(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Insert(ctx, pendingNote("a"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, first))

	second, err := s.Insert(ctx, pendingNote("b"))
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func TestFindByServerID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, pendingNote("local only"))
	require.NoError(t, err)
	id, err := s.Insert(ctx, syncedNote("remote", 7))
	require.NoError(t, err)

	got, err := s.FindByServerID(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.LocalID)
	assert.Equal(t, int64(7), *got.ServerID)

	none, err := s.FindByServerID(ctx, 8)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, pendingNote("before"))
	require.NoError(t, err)

	created := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	err = s.Update(ctx, id, models.NotePatch{
		Content:    models.Ptr("after"),
		IsFavorite: models.Ptr(true),
		ServerID:   models.Ptr(int64(42)),
		State:      models.Ptr(models.Synced),
		CreatedAt:  &created,
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Content)
	assert.True(t, got.IsFavorite)
	assert.Equal(t, models.Synced, got.State)
	assert.Equal(t, int64(42), *got.ServerID)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, models.DefaultAuthor, got.Author)
}

func TestUpdate_Errors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, 99, models.NotePatch{IsFavorite: models.Ptr(true)})
	assert.True(t, apperr.IsNotFound(err))

	err = s.Update(ctx, 99, models.NotePatch{})
	assert.True(t, apperr.IsNotFound(err))

	id, err := s.Insert(ctx, pendingNote("keep"))
	require.NoError(t, err)
	err = s.Update(ctx, id, models.NotePatch{Content: models.Ptr(" ")})
	assert.True(t, apperr.IsValidation(err))

	// Synced without a server id violates the table constraint.
	err = s.Update(ctx, id, models.NotePatch{State: models.Ptr(models.Synced)})
	assert.Error(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.Pending, got.State)
}

func TestDelete_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, pendingNote("gone"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))
	require.NoError(t, s.Delete(ctx, id))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRestore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, syncedNote("back", 5))
	require.NoError(t, err)
	snapshot, err := s.Get(ctx, id)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))
	require.NoError(t, s.Restore(ctx, *snapshot))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *snapshot, *got)

	assert.True(t, apperr.IsValidation(s.Restore(ctx, pendingNote("no id"))))
}

func TestListAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, n := range []models.LocalNote{pendingNote("p1"), syncedNote("s1", 1), pendingNote("p2")} {
		n.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := s.Insert(ctx, n)
		require.NoError(t, err)
	}

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "p2", all[0].Content)
	assert.Equal(t, "p1", all[2].Content)

	pending, err := s.ListByState(ctx, models.Pending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "p1", pending[0].Content)

	count, err := s.CountByState(ctx, models.Pending)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = s.CountWhere(ctx, func(n models.LocalNote) bool { return n.State == models.Synced })
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, s.Clear(ctx))
	all, err = s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestReopenIsDurable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	id, err := s.Insert(ctx, pendingNote("persisted"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "persisted", got.Content)
}

func TestListAll_SameCreatedAtNewestInsertFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	at := time.Now().Add(-time.Minute)
	var ids []int64
	for i, content := range []string{"first", "second", "third"} {
		n := syncedNote(content, int64(i+1))
		n.CreatedAt = at
		id, err := s.Insert(ctx, n)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{all[0].LocalID, all[1].LocalID, all[2].LocalID})
}

func seedFilterable(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	notes := []models.LocalNote{
		{Content: "Veni vidi vici", Author: "Caesar", Category: "Latin"},
		{Content: "Hayat güzeldir", Author: "Nazım", Category: "Life", IsFavorite: true},
		{Content: "carpe diem", Author: "Horace", Category: "Latin", IsFavorite: true},
		{Content: "Stay hungry", Author: "Jobs", Category: "General"},
	}
	for i, n := range notes {
		n.ClientRef = n.Content
		n.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		n.State = models.Pending
		_, err := s.Insert(ctx, n)
		require.NoError(t, err)
	}
}

func contents(notes []models.LocalNote) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Content)
	}
	return out
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	seedFilterable(t, s)

	tests := []struct {
		name   string
		filter models.NoteFilter
		want   []string
	}{
		{"default is newest", models.NoteFilter{}, []string{"Stay hungry", "carpe diem", "Hayat güzeldir", "Veni vidi vici"}},
		{"oldest", models.NoteFilter{Sort: models.SortOldest}, []string{"Veni vidi vici", "Hayat güzeldir", "carpe diem", "Stay hungry"}},
		{"alphabetical ignores case", models.NoteFilter{Sort: models.SortAlphabetical}, []string{"carpe diem", "Hayat güzeldir", "Stay hungry", "Veni vidi vici"}},
		{"category", models.NoteFilter{Category: "Latin", Sort: models.SortOldest}, []string{"Veni vidi vici", "carpe diem"}},
		{"favorites", models.NoteFilter{FavoritesOnly: true}, []string{"carpe diem", "Hayat güzeldir"}},
		{"category and favorites", models.NoteFilter{Category: "Latin", FavoritesOnly: true}, []string{"carpe diem"}},
		{"search content", models.NoteFilter{Search: "VIDI"}, []string{"Veni vidi vici"}},
		{"search author", models.NoteFilter{Search: "horace"}, []string{"carpe diem"}},
		{"search folds unicode", models.NoteFilter{Search: "GÜZEL"}, []string{"Hayat güzeldir"}},
		{"no match", models.NoteFilter{Category: "Missing"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, contents(got))
		})
	}
}

func TestCategories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.CategorySummary{Categories: []models.CategoryCount{}}, empty)

	seedFilterable(t, s)
	sum, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.CategorySummary{
		All:       4,
		Favorites: 2,
		Categories: []models.CategoryCount{
			{Name: "Latin", Count: 2},
			{Name: "General", Count: 1},
			{Name: "Life", Count: 1},
		},
	}, sum)
}
