// Package models defines the core data structures shared by the server,
// the remote gateway and the client-side sync layer.
package models

import (
	"fmt"
	"time"
)

const (
	// DefaultAuthor is stored when a note is created without an author.
	DefaultAuthor = "Anonymous"
	// DefaultCategory is stored when a note is created without a category.
	DefaultCategory = "General"
)

// Note is the server-side representation of a quote, as it travels over the wire.
type Note struct {
	// ID is the server-assigned identifier.
	ID int64 `json:"id"`
	// Content is the quote text.
	Content string `json:"content"`
	// Author is the person or source of the quote.
	Author string `json:"author"`
	// Category groups notes in the sidebar.
	Category string `json:"category"`
	// IsFavorite marks the note as a favorite.
	IsFavorite bool `json:"isFavorite"`
	// CreatedAt is the server creation timestamp.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the last modification timestamp.
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateNoteRequest is the body of POST /notes.
type CreateNoteRequest struct {
	Content    string `json:"content" validate:"required,notblank"`
	Author     string `json:"author"`
	Category   string `json:"category"`
	IsFavorite bool   `json:"isFavorite,omitempty"`
}

// UpdateNoteRequest is the body of PUT /notes/{id}. Nil fields are left untouched.
type UpdateNoteRequest struct {
	Content    *string `json:"content,omitempty" validate:"omitnil,notblank"`
	Author     *string `json:"author,omitempty"`
	Category   *string `json:"category,omitempty"`
	IsFavorite *bool   `json:"isFavorite,omitempty"`
}

// Empty reports whether the request carries no field to update.
func (r UpdateNoteRequest) Empty() bool {
	return r.Content == nil && r.Author == nil && r.Category == nil && r.IsFavorite == nil
}

// BulkDeleteRequest is the body of DELETE /notes.
type BulkDeleteRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

// CategoryCount is a single row of the category sidebar.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CategorySummary is the body of GET /categories.
type CategorySummary struct {
	All        int             `json:"all"`
	Favorites  int             `json:"favorites"`
	Categories []CategoryCount `json:"categories"`
}

// SortOrder selects the ordering of a note listing.
type SortOrder string

const (
	// SortNewest orders by creation time, most recent first.
	SortNewest SortOrder = "newest"
	// SortOldest orders by creation time, oldest first.
	SortOldest SortOrder = "oldest"
	// SortAlphabetical orders by content.
	SortAlphabetical SortOrder = "alphabetical"
)

// ParseSortOrder maps a query value to a SortOrder. Unknown values fall back to SortNewest.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(s) {
	case SortOldest, SortAlphabetical:
		return SortOrder(s)
	default:
		return SortNewest
	}
}

// NoteFilter narrows and orders a local note listing. Zero fields do not filter.
type NoteFilter struct {
	Sort SortOrder
	// Search keeps notes whose content or author contains it, ignoring case.
	Search string
	// Category keeps notes of exactly this category.
	Category string
	// FavoritesOnly keeps favorite notes.
	FavoritesOnly bool
}

// SyncState is the synchronization status of a locally mirrored note.
type SyncState uint8

const (
	// Pending means the note has not been confirmed by the server yet.
	Pending SyncState = iota
	// Synced means the server accepted the note and assigned it an ID.
	Synced
)

// String returns the persisted form of the state.
func (s SyncState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Synced:
		return "synced"
	default:
		return fmt.Sprintf("SyncState(%d)", uint8(s))
	}
}

// ParseSyncState is the inverse of SyncState.String.
func ParseSyncState(s string) (SyncState, error) {
	switch s {
	case "pending":
		return Pending, nil
	case "synced":
		return Synced, nil
	default:
		return Pending, fmt.Errorf("unknown sync state %q", s)
	}
}

// LocalNote is a note mirrored in the client-side store together with its sync metadata.
type LocalNote struct {
	// LocalID is assigned by the local store and never reused.
	LocalID int64 `json:"localId"`
	// ServerID is nil until the note is accepted by the server.
	ServerID *int64 `json:"serverId,omitempty"`
	// ClientRef is a UUID sent as the idempotency key when the note is pushed.
	ClientRef string `json:"clientRef"`
	// Content is the quote text. Never empty.
	Content string `json:"content" validate:"required,notblank"`
	// Author is the person or source of the quote.
	Author string `json:"author"`
	// Category groups notes in the sidebar.
	Category string `json:"category"`
	// IsFavorite marks the note as a favorite.
	IsFavorite bool `json:"isFavorite"`
	// CreatedAt is set once; the server's value wins after reconciliation.
	CreatedAt time.Time `json:"createdAt"`
	// State is the sync state; Synced iff ServerID is set.
	State SyncState `json:"syncState"`
}

// NotePatch carries a partial update of a LocalNote. Nil fields are left untouched.
type NotePatch struct {
	ServerID   *int64
	Content    *string
	Author     *string
	Category   *string
	IsFavorite *bool
	CreatedAt  *time.Time
	State      *SyncState
}

// SyncReport summarizes a sync-all-pending pass.
type SyncReport struct {
	// Attempted is the number of pending notes found at the start of the pass.
	Attempted int `json:"attempted"`
	// Synced is the number of notes confirmed by the server during the pass.
	Synced int `json:"synced"`
	// Failed is the number of notes still pending afterwards.
	Failed int `json:"failed"`
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
