// Package service holds the server's note rules, delegating persistence to a repository.
package service

import (
	"context"
	"strings"

	"github.com/atinyakov/QuoteKeeper/internal/apperr"
	"github.com/atinyakov/QuoteKeeper/internal/models"
	"github.com/atinyakov/QuoteKeeper/internal/validation"
)

// NoteRepository defines the persistence operations needed by the NoteService.
type NoteRepository interface {
	// ListNotes returns live notes ordered by sort and filtered by search.
	ListNotes(ctx context.Context, sort models.SortOrder, search string) ([]models.Note, error)
	// GetNote fetches one live note.
	GetNote(ctx context.Context, id int64) (*models.Note, error)
	// CreateNote inserts a note, returning the existing one for a repeated clientRef.
	CreateNote(ctx context.Context, n models.Note, clientRef string) (*models.Note, bool, error)
	// UpdateNote applies a partial update.
	UpdateNote(ctx context.Context, id int64, req models.UpdateNoteRequest) (*models.Note, error)
	// DeleteNote soft-deletes one note.
	DeleteNote(ctx context.Context, id int64) error
	// DeleteNotes soft-deletes several notes and reports how many were live.
	DeleteNotes(ctx context.Context, ids []int64) (int64, error)
	// Categories summarizes live notes by category.
	Categories(ctx context.Context) (models.CategorySummary, error)
}

// NoteService implements the note API's business rules.
type NoteService struct {
	repo     NoteRepository
	validate *validation.Validator
}

// NewNoteService constructs a NoteService over repo.
func NewNoteService(repo NoteRepository) *NoteService {
	return &NoteService{repo: repo, validate: validation.New()}
}

// List returns notes for the given sort key and search text.
func (s *NoteService) List(ctx context.Context, sort, search string) ([]models.Note, error) {
	return s.repo.ListNotes(ctx, models.ParseSortOrder(sort), strings.TrimSpace(search))
}

// Get returns one note.
func (s *NoteService) Get(ctx context.Context, id int64) (*models.Note, error) {
	return s.repo.GetNote(ctx, id)
}

// Create validates req, fills in the default author and category and stores it.
// created is false when clientRef matched an earlier note.
func (s *NoteService) Create(ctx context.Context, req models.CreateNoteRequest, clientRef string) (note *models.Note, created bool, err error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, false, err
	}
	n := models.Note{
		Content:    req.Content,
		Author:     orDefault(req.Author, models.DefaultAuthor),
		Category:   orDefault(req.Category, models.DefaultCategory),
		IsFavorite: req.IsFavorite,
	}
	return s.repo.CreateNote(ctx, n, strings.TrimSpace(clientRef))
}

// Update applies a partial update. Blank author or category fall back to the defaults.
func (s *NoteService) Update(ctx context.Context, id int64, req models.UpdateNoteRequest) (*models.Note, error) {
	if req.Empty() {
		return nil, apperr.Validation("no fields to update")
	}
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}
	if req.Author != nil {
		req.Author = models.Ptr(orDefault(*req.Author, models.DefaultAuthor))
	}
	if req.Category != nil {
		req.Category = models.Ptr(orDefault(*req.Category, models.DefaultCategory))
	}
	return s.repo.UpdateNote(ctx, id, req)
}

// Delete soft-deletes one note.
func (s *NoteService) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteNote(ctx, id)
}

// DeleteMany soft-deletes every note in req.IDs.
func (s *NoteService) DeleteMany(ctx context.Context, req models.BulkDeleteRequest) (int64, error) {
	if err := s.validate.Validate(req); err != nil {
		return 0, err
	}
	return s.repo.DeleteNotes(ctx, req.IDs)
}

// Categories returns the sidebar counts.
func (s *NoteService) Categories(ctx context.Context) (models.CategorySummary, error) {
	return s.repo.Categories(ctx)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
