package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Ops-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			r.Get("/knowledge", apiHandler.SearchKnowledgeHandler)
			r.Get("/knowledge/recent", apiHandler.RecentKnowledgeHandler)
			r.Delete("/knowledge", apiHandler.DeleteKnowledgeHandler)
			r.Get("/activity", apiHandler.ActivityHandler)
		})
	})

	return r
}
