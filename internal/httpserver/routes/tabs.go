package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/deps"
	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/handlers"
)

func init() { Register(registerTabs) }

func registerTabs(r chi.Router, d deps.Deps) {
	r.Route("/tabs", func(r chi.Router) {
		r.Get("/", handlers.ListGroups(d))
		r.Post("/", handlers.SaveTab(d))

		r.Route("/{groupID}", func(r chi.Router) {
			r.Get("/", handlers.GetGroup(d))
			r.Delete("/urls", handlers.RemoveGroupURL(d))

			r.Put("/category", handlers.AssignCategory(d))
			r.Post("/autocategorize", handlers.AutoCategorize(d))
			r.Put("/url-subcategory", handlers.SetURLSubCategory(d))
			r.Put("/subcategory-order", handlers.SetSubCategoryOrder(d))

			r.Route("/subcategories", func(r chi.Router) {
				r.Post("/", handlers.AddSubCategory(d))
				r.Put("/{name}", handlers.RenameSubCategory(d))
				r.Delete("/{name}", handlers.RemoveSubCategory(d))
				r.Put("/{name}/keywords", handlers.SetCategoryKeywords(d))
			})
		})
	})
}
