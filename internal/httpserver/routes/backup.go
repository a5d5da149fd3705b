package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/deps"
	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/handlers"
)

func init() { Register(registerBackup) }

func registerBackup(r chi.Router, d deps.Deps) {
	r.Get("/backup", handlers.ExportBackup(d))
	r.Post("/backup/import", handlers.ImportBackup(d))
}
