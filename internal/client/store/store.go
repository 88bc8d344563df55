// Package store implements the client-side mirror of the server's notes: a
// durable SQLite table keyed by local id with secondary indices on server id,
// sync state, creation time, category and favorite flag.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/QuoteKeeper/internal/apperr"
	"github.com/atinyakov/QuoteKeeper/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is fixed-width so that text ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const noteColumns = `local_id, server_id, client_ref, content, author, category, is_favorite, created_at, state`

// Predicate selects notes for CountWhere.
type Predicate func(models.LocalNote) bool

// Store is the SQLite-backed local note store. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open creates or opens the store at path. Use ":memory:" only for throwaway stores.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection serializes writers and keeps ":memory:" stores coherent.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert adds a new note and returns its freshly assigned local id.
// Any LocalID already set on n is ignored.
func (s *Store) Insert(ctx context.Context, n models.LocalNote) (int64, error) {
	if err := validate(n); err != nil {
		return 0, err
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (server_id, client_ref, content, author, category, is_favorite, created_at, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, nullInt(n.ServerID), n.ClientRef, n.Content, n.Author, n.Category, n.IsFavorite, formatTime(n.CreatedAt), n.State.String())
	if err != nil {
		return 0, fmt.Errorf("insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert note: last id: %w", err)
	}
	return id, nil
}

// Restore re-inserts a previously deleted note under its original local id.
func (s *Store) Restore(ctx context.Context, n models.LocalNote) error {
	if n.LocalID <= 0 {
		return apperr.Validation("restore requires a local id")
	}
	if err := validate(n); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.LocalID, nullInt(n.ServerID), n.ClientRef, n.Content, n.Author, n.Category, n.IsFavorite, formatTime(n.CreatedAt), n.State.String())
	if err != nil {
		return fmt.Errorf("restore note %d: %w", n.LocalID, err)
	}
	return nil
}

// Get returns the note with the given local id, or nil if there is none.
func (s *Store) Get(ctx context.Context, localID int64) (*models.LocalNote, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE local_id = ?`, localID)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note %d: %w", localID, err)
	}
	return &n, nil
}

// FindByServerID returns the first local note mirroring serverID, or nil.
// Duplicates are not prevented; the lowest local id wins.
func (s *Store) FindByServerID(ctx context.Context, serverID int64) (*models.LocalNote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+noteColumns+` FROM notes WHERE server_id = ? ORDER BY local_id LIMIT 1
	`, serverID)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by server id %d: %w", serverID, err)
	}
	return &n, nil
}

// Update merges the non-nil fields of p into the note.
func (s *Store) Update(ctx context.Context, localID int64, p models.NotePatch) error {
	var (
		sets []string
		args []any
	)
	if p.ServerID != nil {
		sets, args = append(sets, "server_id = ?"), append(args, *p.ServerID)
	}
	if p.Content != nil {
		if strings.TrimSpace(*p.Content) == "" {
			return apperr.Validation("content is required")
		}
		sets, args = append(sets, "content = ?"), append(args, *p.Content)
	}
	if p.Author != nil {
		sets, args = append(sets, "author = ?"), append(args, *p.Author)
	}
	if p.Category != nil {
		sets, args = append(sets, "category = ?"), append(args, *p.Category)
	}
	if p.IsFavorite != nil {
		sets, args = append(sets, "is_favorite = ?"), append(args, *p.IsFavorite)
	}
	if p.CreatedAt != nil {
		sets, args = append(sets, "created_at = ?"), append(args, formatTime(*p.CreatedAt))
	}
	if p.State != nil {
		sets, args = append(sets, "state = ?"), append(args, p.State.String())
	}

	if len(sets) == 0 {
		found, err := s.Get(ctx, localID)
		if err != nil {
			return err
		}
		if found == nil {
			return apperr.NotFound("note %d not found", localID)
		}
		return nil
	}

	args = append(args, localID)
	res, err := s.db.ExecContext(ctx, `UPDATE notes SET `+strings.Join(sets, ", ")+` WHERE local_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update note %d: %w", localID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update note %d: rows affected: %w", localID, err)
	}
	if n == 0 {
		return apperr.NotFound("note %d not found", localID)
	}
	return nil
}

// Delete removes the note. Deleting a missing note is not an error.
func (s *Store) Delete(ctx context.Context, localID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE local_id = ?`, localID); err != nil {
		return fmt.Errorf("delete note %d: %w", localID, err)
	}
	return nil
}

// ListAll returns a snapshot of every note, newest first. Notes with the same
// creation time come out most recently inserted first.
func (s *Store) ListAll(ctx context.Context) ([]models.LocalNote, error) {
	return s.query(ctx, `SELECT `+noteColumns+` FROM notes ORDER BY `+orderClause(models.SortNewest))
}

func orderClause(sort models.SortOrder) string {
	switch sort {
	case models.SortOldest:
		return "created_at ASC, local_id ASC"
	case models.SortAlphabetical:
		return "content COLLATE NOCASE ASC, local_id ASC"
	default:
		return "created_at DESC, local_id DESC"
	}
}

// List returns the notes selected by f in its sort order. Category and
// favorite filters run on their indices. The search is matched in Go because
// SQLite folds case for ASCII only.
func (s *Store) List(ctx context.Context, f models.NoteFilter) ([]models.LocalNote, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		where, args = append(where, "category = ?"), append(args, f.Category)
	}
	if f.FavoritesOnly {
		where = append(where, "is_favorite = 1")
	}
	q := `SELECT ` + noteColumns + ` FROM notes`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY ` + orderClause(f.Sort)

	notes, err := s.query(ctx, q, args...)
	if err != nil || f.Search == "" {
		return notes, err
	}
	needle := strings.ToLower(f.Search)
	matched := notes[:0]
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Content), needle) || strings.Contains(strings.ToLower(n.Author), needle) {
			matched = append(matched, n)
		}
	}
	return matched, nil
}

// Categories summarizes the local notes in the shape the server's category
// endpoint answers with, so the sidebar counts are available offline.
func (s *Store) Categories(ctx context.Context) (models.CategorySummary, error) {
	var sum models.CategorySummary
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(is_favorite), 0) FROM notes
	`).Scan(&sum.All, &sum.Favorites)
	if err != nil {
		return sum, fmt.Errorf("categories: totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM notes
		GROUP BY category
		ORDER BY COUNT(*) DESC, category ASC
	`)
	if err != nil {
		return sum, fmt.Errorf("categories: %w", err)
	}
	defer rows.Close()

	sum.Categories = make([]models.CategoryCount, 0)
	for rows.Next() {
		var c models.CategoryCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return sum, fmt.Errorf("scan: %w", err)
		}
		sum.Categories = append(sum.Categories, c)
	}
	return sum, rows.Err()
}

// ListByState returns the notes in the given state, oldest first so that
// pending notes are replayed in creation order.
func (s *Store) ListByState(ctx context.Context, state models.SyncState) ([]models.LocalNote, error) {
	return s.query(ctx, `
		SELECT `+noteColumns+` FROM notes WHERE state = ? ORDER BY created_at, local_id
	`, state.String())
}

// CountByState counts notes in the given state using the state index.
func (s *Store) CountByState(ctx context.Context, state models.SyncState) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE state = ?`, state.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s notes: %w", state, err)
	}
	return n, nil
}

// CountWhere counts the notes matching pred.
func (s *Store) CountWhere(ctx context.Context, pred Predicate) (int, error) {
	notes, err := s.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, note := range notes {
		if pred(note) {
			n++
		}
	}
	return n, nil
}

// Clear removes every note.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM notes`); err != nil {
		return fmt.Errorf("clear notes: %w", err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]models.LocalNote, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []models.LocalNote{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(sc scanner) (models.LocalNote, error) {
	var (
		n         models.LocalNote
		serverID  sql.NullInt64
		createdAt string
		state     string
	)
	if err := sc.Scan(&n.LocalID, &serverID, &n.ClientRef, &n.Content, &n.Author, &n.Category, &n.IsFavorite, &createdAt, &state); err != nil {
		return n, err
	}
	if serverID.Valid {
		n.ServerID = &serverID.Int64
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return n, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	n.CreatedAt = t
	if n.State, err = models.ParseSyncState(state); err != nil {
		return n, err
	}
	return n, nil
}

func validate(n models.LocalNote) error {
	if strings.TrimSpace(n.Content) == "" {
		return apperr.Validation("content is required")
	}
	if (n.State == models.Synced) != (n.ServerID != nil) {
		return apperr.Validation("server id must be set if and only if the note is synced")
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
