package handlers

import (
	"net/http"

	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/deps"
)

type triggerResponse struct {
	Triggered bool `json:"triggered"`
}

// TriggerGC asks the garbage collector for an immediate pass. The send
// is non-blocking: if a pass is already queued, this request folds into
// it.
func TriggerGC(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.GCTrigger <- struct{}{}:
		default:
		}
		writeJSON(w, http.StatusAccepted, triggerResponse{Triggered: true})
	}
}
