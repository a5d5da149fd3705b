package handlers

import (
	"net/http"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/deps"
)

// GetSettings returns the user settings document, defaults included.
func GetSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := d.Settings.Get(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	}
}

// PutSettings replaces the user settings document.
func PutSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var settings domain.UserSettings
		if !decodeJSON(w, r, &settings) {
			return
		}
		if settings.AutoDeletePeriod == "" {
			settings.AutoDeletePeriod = domain.TTLNever
		}

		if err := d.Settings.Put(r.Context(), settings); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	}
}
