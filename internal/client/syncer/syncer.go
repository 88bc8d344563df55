// Package syncer keeps the local note mirror and the server in step.
//
// Every mutation is applied to the local store first and mirrored to the
// server afterwards. Notes the server has not confirmed stay Pending and are
// replayed by SyncAllPending. Remote failures never escape the engine except
// where a caller explicitly asks for them (Reconcile, DeleteMany).
package syncer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/QuoteKeeper/internal/apperr"
	"github.com/atinyakov/QuoteKeeper/internal/client/gateway"
	"github.com/atinyakov/QuoteKeeper/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LocalStore is the subset of the local store the engine needs.
type LocalStore interface {
	Insert(ctx context.Context, n models.LocalNote) (int64, error)
	Restore(ctx context.Context, n models.LocalNote) error
	Get(ctx context.Context, localID int64) (*models.LocalNote, error)
	FindByServerID(ctx context.Context, serverID int64) (*models.LocalNote, error)
	Update(ctx context.Context, localID int64, p models.NotePatch) error
	Delete(ctx context.Context, localID int64) error
	ListAll(ctx context.Context) ([]models.LocalNote, error)
	List(ctx context.Context, f models.NoteFilter) ([]models.LocalNote, error)
	ListByState(ctx context.Context, state models.SyncState) ([]models.LocalNote, error)
	CountByState(ctx context.Context, state models.SyncState) (int, error)
}

// RemoteGateway is the subset of the notes API the engine needs.
type RemoteGateway interface {
	List(ctx context.Context, p gateway.ListParams) ([]models.Note, error)
	Create(ctx context.Context, req models.CreateNoteRequest, idempotencyKey string) (models.Note, error)
	Update(ctx context.Context, id int64, req models.UpdateNoteRequest) (models.Note, error)
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) error
}

// Connectivity reports whether the server is believed reachable.
type Connectivity interface {
	Online() bool
}

// ConnectivityFunc adapts a function to Connectivity.
type ConnectivityFunc func() bool

// Online implements Connectivity.
func (f ConnectivityFunc) Online() bool { return f() }

// AlwaysOnline is a Connectivity that never reports offline.
type AlwaysOnline struct{}

// Online implements Connectivity.
func (AlwaysOnline) Online() bool { return true }

// NewNote is the user input for Create.
type NewNote struct {
	Content  string
	Author   string
	Category string
}

// EditNote is the user input for Edit. Nil fields are left untouched.
type EditNote struct {
	Content  *string
	Author   *string
	Category *string
}

// Ref addresses a note either by local id or by server id.
type Ref struct {
	ID     int64
	Server bool
}

// LocalRef addresses a note by local id.
func LocalRef(id int64) Ref { return Ref{ID: id} }

// ServerRef addresses a note by server id.
func ServerRef(id int64) Ref { return Ref{ID: id, Server: true} }

func (r Ref) String() string {
	if r.Server {
		return fmt.Sprintf("server note %d", r.ID)
	}
	return fmt.Sprintf("local note %d", r.ID)
}

// Engine orchestrates the local store and the remote gateway.
type Engine struct {
	store  LocalStore
	remote RemoteGateway
	conn   Connectivity
	log    *zap.Logger
	now    func() time.Time

	// inflight collapses concurrent pushes of the same local note into one request.
	inflight singleflight.Group
}

// New creates an Engine. A nil conn means AlwaysOnline; a nil logger means no logging.
func New(store LocalStore, remote RemoteGateway, conn Connectivity, log *zap.Logger) *Engine {
	if conn == nil {
		conn = AlwaysOnline{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store:  store,
		remote: remote,
		conn:   conn,
		log:    log,
		now:    time.Now,
	}
}

// Create stores a new Pending note and, when online, pushes it right away.
// Only validation and local store failures are returned.
func (e *Engine) Create(ctx context.Context, in NewNote) (int64, error) {
	if strings.TrimSpace(in.Content) == "" {
		return 0, apperr.Validation("content is required")
	}

	note := models.LocalNote{
		ClientRef: uuid.NewString(),
		Content:   in.Content,
		Author:    withDefault(in.Author, models.DefaultAuthor),
		Category:  withDefault(in.Category, models.DefaultCategory),
		CreatedAt: e.now(),
		State:     models.Pending,
	}
	localID, err := e.store.Insert(ctx, note)
	if err != nil {
		return 0, err
	}
	e.log.Debug("note stored locally", zap.Int64("local_id", localID))

	if !e.conn.Online() {
		e.log.Info("offline, note will be synced later", zap.Int64("local_id", localID))
		return localID, nil
	}
	if _, err := e.Push(ctx, localID); err != nil {
		e.log.Warn("push after create failed", zap.Int64("local_id", localID), zap.Error(err))
	}
	return localID, nil
}

// Push sends a Pending note to the server and marks it Synced on success.
// It returns the resulting state. Remote failures leave the note Pending and
// are not returned; only local store failures are.
func (e *Engine) Push(ctx context.Context, localID int64) (models.SyncState, error) {
	v, err, _ := e.inflight.Do(strconv.FormatInt(localID, 10), func() (any, error) {
		return e.push(ctx, localID)
	})
	if err != nil {
		return models.Pending, err
	}
	return v.(models.SyncState), nil
}

func (e *Engine) push(ctx context.Context, localID int64) (models.SyncState, error) {
	note, err := e.store.Get(ctx, localID)
	if err != nil {
		return models.Pending, err
	}
	if note == nil {
		return models.Pending, apperr.NotFound("note %d not found", localID)
	}
	if note.State == models.Synced {
		return models.Synced, nil
	}

	// Send the current field values so edits made while Pending are not lost.
	created, err := e.remote.Create(ctx, models.CreateNoteRequest{
		Content:    note.Content,
		Author:     note.Author,
		Category:   note.Category,
		IsFavorite: note.IsFavorite,
	}, note.ClientRef)
	if err != nil {
		e.log.Warn("push failed, note stays pending",
			zap.Int64("local_id", localID),
			zap.Int("status", apperr.StatusOf(err)),
			zap.Error(err),
		)
		return models.Pending, nil
	}

	if err := e.foldMirror(ctx, *note, created); err != nil {
		return models.Pending, err
	}

	err = e.store.Update(ctx, localID, models.NotePatch{
		ServerID: models.Ptr(created.ID),
		State:    models.Ptr(models.Synced),
	})
	if apperr.IsNotFound(err) {
		// Deleted locally while the request was in flight.
		e.log.Info("note deleted during push, removing remote copy",
			zap.Int64("local_id", localID), zap.Int64("server_id", created.ID))
		e.bestEffortDelete(ctx, created.ID)
		return models.Pending, nil
	}
	if err != nil {
		return models.Pending, err
	}

	e.log.Info("note synced", zap.Int64("local_id", localID), zap.Int64("server_id", created.ID))
	return models.Synced, nil
}

// foldMirror handles a create the server had already applied under the same
// idempotency key while the note was still Pending locally. A reconcile in
// between may have mirrored that server note as a separate Synced record; it
// is removed so the pushed note becomes the only local copy. The server copy
// is then brought up to the note's current fields.
func (e *Engine) foldMirror(ctx context.Context, note models.LocalNote, created models.Note) error {
	mirror, err := e.store.FindByServerID(ctx, created.ID)
	if err != nil {
		return err
	}
	if mirror != nil && mirror.LocalID != note.LocalID {
		if err := e.store.Delete(ctx, mirror.LocalID); err != nil {
			return err
		}
		e.log.Info("folded mirrored copy into pushed note",
			zap.Int64("local_id", note.LocalID),
			zap.Int64("mirror_local_id", mirror.LocalID),
			zap.Int64("server_id", created.ID),
		)
	}

	req := models.UpdateNoteRequest{}
	if created.Content != note.Content {
		req.Content = models.Ptr(note.Content)
	}
	if created.Author != note.Author {
		req.Author = models.Ptr(note.Author)
	}
	if created.Category != note.Category {
		req.Category = models.Ptr(note.Category)
	}
	if created.IsFavorite != note.IsFavorite {
		req.IsFavorite = models.Ptr(note.IsFavorite)
	}
	if req.Empty() {
		return nil
	}
	if _, err := e.remote.Update(ctx, created.ID, req); err != nil {
		e.log.Warn("refreshing server copy failed",
			zap.Int64("local_id", note.LocalID), zap.Int64("server_id", created.ID), zap.Error(err))
	}
	return nil
}

// SyncAllPending pushes every Pending note, one at a time.
func (e *Engine) SyncAllPending(ctx context.Context) (models.SyncReport, error) {
	pending, err := e.store.ListByState(ctx, models.Pending)
	if err != nil {
		return models.SyncReport{}, err
	}

	report := models.SyncReport{Attempted: len(pending)}
	e.log.Info("syncing pending notes", zap.Int("count", len(pending)))

	for _, note := range pending {
		if err := ctx.Err(); err != nil {
			report.Failed = report.Attempted - report.Synced
			return report, err
		}
		state, err := e.Push(ctx, note.LocalID)
		if err != nil && !apperr.IsNotFound(err) {
			report.Failed = report.Attempted - report.Synced
			return report, err
		}
		if state == models.Synced {
			report.Synced++
		}
	}
	report.Failed = report.Attempted - report.Synced

	e.log.Info("pending sync finished",
		zap.Int("synced", report.Synced), zap.Int("failed", report.Failed))
	return report, nil
}

// Reconcile merges the server's full note list into the local store. Remote
// values win for every note the server knows; Synced notes the server no
// longer has are removed. Pending notes are never touched.
func (e *Engine) Reconcile(ctx context.Context) error {
	remote, err := e.remote.List(ctx, gateway.ListParams{Sort: models.SortNewest})
	if err != nil {
		return err
	}

	seen := make(map[int64]struct{}, len(remote))
	for _, rn := range remote {
		seen[rn.ID] = struct{}{}
		if err := e.mergeRemote(ctx, rn); err != nil {
			return err
		}
	}

	synced, err := e.store.ListByState(ctx, models.Synced)
	if err != nil {
		return err
	}
	pruned := 0
	for _, n := range synced {
		if n.ServerID == nil {
			continue
		}
		if _, ok := seen[*n.ServerID]; ok {
			continue
		}
		if err := e.store.Delete(ctx, n.LocalID); err != nil {
			return err
		}
		pruned++
	}

	e.log.Debug("reconciled", zap.Int("remote", len(remote)), zap.Int("pruned", pruned))
	return nil
}

func (e *Engine) mergeRemote(ctx context.Context, rn models.Note) error {
	existing, err := e.store.FindByServerID(ctx, rn.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		_, err := e.store.Insert(ctx, models.LocalNote{
			ServerID:   models.Ptr(rn.ID),
			ClientRef:  uuid.NewString(),
			Content:    rn.Content,
			Author:     rn.Author,
			Category:   rn.Category,
			IsFavorite: rn.IsFavorite,
			CreatedAt:  rn.CreatedAt,
			State:      models.Synced,
		})
		return err
	}
	return e.store.Update(ctx, existing.LocalID, models.NotePatch{
		ServerID:   models.Ptr(rn.ID),
		Content:    models.Ptr(rn.Content),
		Author:     models.Ptr(rn.Author),
		Category:   models.Ptr(rn.Category),
		IsFavorite: models.Ptr(rn.IsFavorite),
		CreatedAt:  models.Ptr(rn.CreatedAt),
		State:      models.Ptr(models.Synced),
	})
}

// Notes returns the local notes, reconciled with the server when online.
// If reconciliation fails the cached snapshot is returned unchanged.
func (e *Engine) Notes(ctx context.Context) ([]models.LocalNote, error) {
	cached, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if !e.conn.Online() {
		return cached, nil
	}
	if err := e.Reconcile(ctx); err != nil {
		e.log.Warn("reconcile failed, serving cached notes", zap.Error(err))
		return cached, nil
	}
	return e.store.ListAll(ctx)
}

// Find is Notes narrowed and ordered by f. Filtering runs on the local
// store, so it answers offline with whatever the mirror holds.
func (e *Engine) Find(ctx context.Context, f models.NoteFilter) ([]models.LocalNote, error) {
	if e.conn.Online() {
		if err := e.Reconcile(ctx); err != nil {
			e.log.Warn("reconcile failed, filtering cached notes", zap.Error(err))
		}
	}
	return e.store.List(ctx, f)
}

// ToggleFavorite flips the favorite flag locally and returns the new value.
// Synced notes are mirrored to the server on a best-effort basis; a remote
// failure is logged and the local flag is kept.
func (e *Engine) ToggleFavorite(ctx context.Context, ref Ref) (bool, error) {
	note, err := e.resolve(ctx, ref)
	if err != nil {
		return false, err
	}

	fav := !note.IsFavorite
	if err := e.store.Update(ctx, note.LocalID, models.NotePatch{IsFavorite: &fav}); err != nil {
		return false, err
	}

	if note.State == models.Synced && e.conn.Online() {
		if _, err := e.remote.Update(ctx, *note.ServerID, models.UpdateNoteRequest{IsFavorite: &fav}); err != nil {
			e.log.Warn("favorite sync failed",
				zap.Int64("local_id", note.LocalID), zap.Int64("server_id", *note.ServerID), zap.Error(err))
		}
	}
	return fav, nil
}

// Edit changes the content, author or category of a note. Synced notes are
// mirrored to the server on a best-effort basis; Pending notes carry the edit
// into their next push.
func (e *Engine) Edit(ctx context.Context, ref Ref, in EditNote) error {
	if in.Content != nil && strings.TrimSpace(*in.Content) == "" {
		return apperr.Validation("content is required")
	}
	note, err := e.resolve(ctx, ref)
	if err != nil {
		return err
	}

	patch := models.NotePatch{Content: in.Content, Author: in.Author, Category: in.Category}
	if in.Author != nil {
		patch.Author = models.Ptr(withDefault(*in.Author, models.DefaultAuthor))
	}
	if in.Category != nil {
		patch.Category = models.Ptr(withDefault(*in.Category, models.DefaultCategory))
	}
	if err := e.store.Update(ctx, note.LocalID, patch); err != nil {
		return err
	}

	if note.State == models.Synced && e.conn.Online() {
		req := models.UpdateNoteRequest{Content: patch.Content, Author: patch.Author, Category: patch.Category}
		if req.Empty() {
			return nil
		}
		if _, err := e.remote.Update(ctx, *note.ServerID, req); err != nil {
			e.log.Warn("edit sync failed",
				zap.Int64("local_id", note.LocalID), zap.Int64("server_id", *note.ServerID), zap.Error(err))
		}
	}
	return nil
}

// Delete removes a note locally and, if it was Synced, from the server on a
// best-effort basis. Deleting a missing note is a no-op.
func (e *Engine) Delete(ctx context.Context, ref Ref) error {
	note, err := e.resolve(ctx, ref)
	if apperr.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := e.store.Delete(ctx, note.LocalID); err != nil {
		return err
	}
	if note.State == models.Synced && e.conn.Online() {
		e.bestEffortDelete(ctx, *note.ServerID)
	}
	return nil
}

// DeleteMany removes several notes locally and the Synced ones from the server
// in a single request. If that request fails outright, every removed note is
// restored and a transient error is returned.
func (e *Engine) DeleteMany(ctx context.Context, localIDs []int64) error {
	var (
		removed   []models.LocalNote
		serverIDs []int64
	)
	for _, id := range localIDs {
		note, err := e.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if note == nil {
			continue
		}
		if err := e.store.Delete(ctx, id); err != nil {
			e.rollback(ctx, removed)
			return err
		}
		removed = append(removed, *note)
		if note.State == models.Synced {
			serverIDs = append(serverIDs, *note.ServerID)
		}
	}

	if len(serverIDs) == 0 || !e.conn.Online() {
		return nil
	}
	if err := e.remote.DeleteMany(ctx, serverIDs); err != nil {
		e.log.Warn("bulk delete failed, restoring notes", zap.Int("count", len(removed)), zap.Error(err))
		e.rollback(ctx, removed)
		return err
	}
	return nil
}

func (e *Engine) rollback(ctx context.Context, notes []models.LocalNote) {
	for _, n := range notes {
		if err := e.store.Restore(ctx, n); err != nil {
			e.log.Error("restore note failed", zap.Int64("local_id", n.LocalID), zap.Error(err))
		}
	}
}

// PendingCount returns the number of notes waiting for the server.
func (e *Engine) PendingCount(ctx context.Context) (int, error) {
	return e.store.CountByState(ctx, models.Pending)
}

func (e *Engine) bestEffortDelete(ctx context.Context, serverID int64) {
	if err := e.remote.Delete(ctx, serverID); err != nil {
		e.log.Warn("remote delete failed", zap.Int64("server_id", serverID), zap.Error(err))
	}
}

func (e *Engine) resolve(ctx context.Context, ref Ref) (*models.LocalNote, error) {
	var (
		note *models.LocalNote
		err  error
	)
	if ref.Server {
		note, err = e.store.FindByServerID(ctx, ref.ID)
	} else {
		note, err = e.store.Get(ctx, ref.ID)
	}
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, apperr.NotFound("%s not found", ref)
	}
	return note, nil
}

func withDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
