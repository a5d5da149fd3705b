package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/deps"
	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/handlers"
)

func init() { Register(registerMaintenance) }

func registerMaintenance(r chi.Router, d deps.Deps) {
	r.Post("/maintenance/gc", handlers.TriggerGC(d))
}
