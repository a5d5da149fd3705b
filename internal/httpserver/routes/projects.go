package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/deps"
	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/handlers"
)

func init() { Register(registerProjects) }

func registerProjects(r chi.Router, d deps.Deps) {
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", handlers.ListProjects(d))
		r.Post("/", handlers.CreateProject(d))

		// Order routes come before {projectID} so "order" never parses as an id.
		r.Get("/order", handlers.GetProjectOrder(d))
		r.Put("/order", handlers.SetProjectOrder(d))

		r.Route("/{projectID}", func(r chi.Router) {
			r.Put("/", handlers.RenameProject(d))
			r.Delete("/", handlers.DeleteProject(d))
			r.Post("/urls", handlers.AddProjectURL(d))
			r.Delete("/urls", handlers.RemoveProjectURL(d))
		})
	})
}
