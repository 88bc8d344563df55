// Package repository provides PostgreSQL persistence for notes.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/QuoteKeeper/internal/apperr"
	"github.com/atinyakov/QuoteKeeper/internal/models"
	"github.com/lib/pq"
)

const noteColumns = `id, content, author, category, is_favorite, created_at, updated_at`

// PostgresNoteRepository implements note storage against a PostgreSQL database.
// Deleted notes are only marked with deleted_at and stay invisible to every read.
type PostgresNoteRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresNoteRepository creates a repository over db.
func NewPostgresNoteRepository(db *sql.DB) *PostgresNoteRepository {
	return &PostgresNoteRepository{DB: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (models.Note, error) {
	var n models.Note
	err := row.Scan(&n.ID, &n.Content, &n.Author, &n.Category, &n.IsFavorite, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func orderClause(sort models.SortOrder) string {
	switch sort {
	case models.SortOldest:
		return "created_at ASC, id ASC"
	case models.SortAlphabetical:
		return "content ASC, id ASC"
	default:
		return "created_at DESC, id DESC"
	}
}

// ListNotes returns live notes in the requested order. A non-empty search
// keeps notes whose content or author contains it, case-insensitively.
func (r *PostgresNoteRepository) ListNotes(ctx context.Context, sort models.SortOrder, search string) ([]models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE deleted_at IS NULL`
	var args []any
	if search != "" {
		query += ` AND (content ILIKE $1 OR author ILIKE $1)`
		args = append(args, "%"+escapeLike(search)+"%")
	}
	query += ` ORDER BY ` + orderClause(sort)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListNotes: %w", err)
	}
	defer rows.Close()

	notes := make([]models.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListNotes: %w", err)
	}
	return notes, nil
}

// GetNote fetches a live note by id.
func (r *PostgresNoteRepository) GetNote(ctx context.Context, id int64) (*models.Note, error) {
	n, err := scanNote(r.DB.QueryRowContext(ctx, `
		SELECT `+noteColumns+` FROM notes WHERE id = $1 AND deleted_at IS NULL
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("note %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("GetNote: %w", err)
	}
	return &n, nil
}

// CreateNote inserts n. When clientRef is set and a note with the same
// reference already exists, that note is returned and created is false.
func (r *PostgresNoteRepository) CreateNote(ctx context.Context, n models.Note, clientRef string) (note *models.Note, created bool, err error) {
	ref := sql.NullString{String: clientRef, Valid: clientRef != ""}

	inserted, err := scanNote(r.DB.QueryRowContext(ctx, `
		INSERT INTO notes (client_ref, content, author, category, is_favorite)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (client_ref) DO NOTHING
		RETURNING `+noteColumns,
		ref, n.Content, n.Author, n.Category, n.IsFavorite))
	if err == nil {
		return &inserted, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) || !ref.Valid {
		return nil, false, fmt.Errorf("CreateNote: %w", err)
	}

	existing, err := scanNote(r.DB.QueryRowContext(ctx, `
		SELECT `+noteColumns+` FROM notes WHERE client_ref = $1
	`, clientRef))
	if err != nil {
		return nil, false, fmt.Errorf("CreateNote: lookup %q: %w", clientRef, err)
	}
	return &existing, false, nil
}

// UpdateNote applies the non-nil fields of req and bumps updated_at.
func (r *PostgresNoteRepository) UpdateNote(ctx context.Context, id int64, req models.UpdateNoteRequest) (*models.Note, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if req.Content != nil {
		add("content", *req.Content)
	}
	if req.Author != nil {
		add("author", *req.Author)
	}
	if req.Category != nil {
		add("category", *req.Category)
	}
	if req.IsFavorite != nil {
		add("is_favorite", *req.IsFavorite)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE notes SET %s WHERE id = $%d AND deleted_at IS NULL RETURNING %s`,
		strings.Join(sets, ", "), len(args), noteColumns)

	n, err := scanNote(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("note %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("UpdateNote: %w", err)
	}
	return &n, nil
}

// DeleteNote soft-deletes a live note.
func (r *PostgresNoteRepository) DeleteNote(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE notes SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("DeleteNote: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("note %d not found", id)
	}
	return nil
}

// DeleteNotes soft-deletes every live note in ids. Unknown ids are ignored.
func (r *PostgresNoteRepository) DeleteNotes(ctx context.Context, ids []int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE notes SET deleted_at = NOW() WHERE id = ANY($1) AND deleted_at IS NULL
	`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("DeleteNotes: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Categories counts live notes overall, favorites, and per category ordered by count.
func (r *PostgresNoteRepository) Categories(ctx context.Context) (models.CategorySummary, error) {
	var sum models.CategorySummary
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_favorite) FROM notes WHERE deleted_at IS NULL
	`).Scan(&sum.All, &sum.Favorites)
	if err != nil {
		return sum, fmt.Errorf("Categories: totals: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM notes
		WHERE deleted_at IS NULL
		GROUP BY category
		ORDER BY COUNT(*) DESC, category ASC
	`)
	if err != nil {
		return sum, fmt.Errorf("Categories: %w", err)
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

// escapeLike makes % and _ in user input match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
