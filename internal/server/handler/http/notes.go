// Package http provides the HTTP handlers of the notes API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/atinyakov/QuoteKeeper/internal/apperr"
	"github.com/atinyakov/QuoteKeeper/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// IdempotencyHeader carries the client's reference for a note being created.
const IdempotencyHeader = "Idempotency-Key"

// NoteService defines the operations the NoteHandler needs.
type NoteService interface {
	List(ctx context.Context, sort, search string) ([]models.Note, error)
	Get(ctx context.Context, id int64) (*models.Note, error)
	Create(ctx context.Context, req models.CreateNoteRequest, clientRef string) (*models.Note, bool, error)
	Update(ctx context.Context, id int64, req models.UpdateNoteRequest) (*models.Note, error)
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, req models.BulkDeleteRequest) (int64, error)
	Categories(ctx context.Context) (models.CategorySummary, error)
}

// NoteHandler serves the /notes and /categories endpoints.
type NoteHandler struct {
	NoteService NoteService
	Log         *zap.Logger
}

type messageResponse struct {
	Message string `json:"message"`
}

// List handles GET /api/notes?sort=&search=.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	notes, err := h.NoteService.List(r.Context(), q.Get("sort"), q.Get("search"))
	if err != nil {
		h.fail(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// Get handles GET /api/notes/{id}.
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	note, err := h.NoteService.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Create handles POST /api/notes. A repeated Idempotency-Key answers 200
// with the note created the first time instead of 201.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	note, created, err := h.NoteService.Create(r.Context(), req, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.fail(w, "create note", err)
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, note)
}

// Update handles PUT /api/notes/{id}.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	var req models.UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	note, err := h.NoteService.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Delete handles DELETE /api/notes/{id}.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	if err := h.NoteService.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete note", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Note deleted successfully"})
}

// DeleteMany handles DELETE /api/notes with a {"ids": [...]} body.
func (h *NoteHandler) DeleteMany(w http.ResponseWriter, r *http.Request) {
	var req models.BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if _, err := h.NoteService.DeleteMany(r.Context(), req); err != nil {
		h.fail(w, "delete notes", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Notes deleted successfully"})
}

// Categories handles GET /api/categories.
func (h *NoteHandler) Categories(w http.ResponseWriter, r *http.Request) {
	sum, err := h.NoteService.Categories(r.Context())
	if err != nil {
		h.fail(w, "categories", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Health handles GET /api/health.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func noteID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// fail writes err with the status its apperr code maps to. Internal
// errors are logged and their details kept out of the response.
func (h *NoteHandler) fail(w http.ResponseWriter, op string, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Code != apperr.CodeInternal {
		http.Error(w, appErr.Message, appErr.Code.HTTPStatus())
		return
	}
	if h.Log != nil {
		h.Log.Error(op+" failed", zap.Error(err))
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
