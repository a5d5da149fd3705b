package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/deps"
	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/handlers"
)

func init() { Register(registerCategories) }

func registerCategories(r chi.Router, d deps.Deps) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", handlers.ListCategories(d))
		r.Post("/", handlers.CreateCategory(d))
		r.Get("/{categoryID}", handlers.GetCategory(d))
		r.Delete("/{categoryID}", handlers.DeleteCategory(d))
	})
}
