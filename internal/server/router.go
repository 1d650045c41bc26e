package server

import (
	"net/http"

	"github.com/pokvault/pokvault/internal/api"
	"github.com/pokvault/pokvault/internal/api/handlers"
	"github.com/pokvault/pokvault/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	AuthValidator middleware.AuthValidator
	InternalKey   string
	PokHandler    *handlers.PokHandler
	AdminHandler  *handlers.AdminHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APITokenAuth(cfg.AuthValidator))

		r.Route("/poks", func(r chi.Router) {
			r.Post("/", cfg.PokHandler.Create)
			r.Get("/search", cfg.PokHandler.Search)
			r.Get("/{id}", cfg.PokHandler.Get)
			r.Put("/{id}", cfg.PokHandler.Update)
			r.Delete("/{id}", cfg.PokHandler.Delete)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.InternalKeyAuth(cfg.InternalKey))

		r.Post("/admin/backfill-embeddings", cfg.AdminHandler.BackfillEmbeddings)
	})

	return r
}
