package http

import (
	"net/http"

	"github.com/atinyakov/QuoteKeeper/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the notes API under /api.
//
// Routes:
//
//	GET    /api/health
//	GET    /api/notes?sort=&search=
//	POST   /api/notes
//	DELETE /api/notes           (bulk, body {"ids": [...]})
//	GET    /api/notes/{id}
//	PUT    /api/notes/{id}
//	DELETE /api/notes/{id}
//	GET    /api/categories
//
// Requests with a body must be application/json.
func NewRouter(noteHandler *NoteHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", Health)
		r.Get("/categories", noteHandler.Categories)

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", noteHandler.List)
			r.Post("/", noteHandler.Create)
			r.Delete("/", noteHandler.DeleteMany)

			r.Get("/{id}", noteHandler.Get)
			r.Put("/{id}", noteHandler.Update)
			r.Delete("/{id}", noteHandler.Delete)
		})
	})

	return r
}
