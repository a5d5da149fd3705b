package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/deps"
)

type componentStatus struct {
	OK          bool   `json:"ok"`
	RulesLoaded *int   `json:"rules_loaded,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Impact      string `json:"impact,omitempty"`
	Error       string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the health of the daemon's moving parts: the Redis
// backing store and the optional keyword rule pack.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"redis":    checkRedis(r.Context(), d),
			"keywords": checkKeywords(d),
		}

		mode := "operational"
		if !components["redis"].OK {
			mode = "unavailable" // nothing works without the backing store
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       mode,
			Components: components,
		})
	}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     false,
			Impact: "all-operations-failing",
			Error:  "client not initialized",
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(pingCtx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Impact: "all-operations-failing",
			Error:  err.Error(),
		}
	}
	return componentStatus{OK: true, Mode: "optimal"}
}

func checkKeywords(d deps.Deps) componentStatus {
	if d.KeywordsFile == "" || d.KeywordPack == nil {
		return componentStatus{
			OK:     true,
			Mode:   "disabled",
			Impact: "new-groups-start-without-seed-rules",
		}
	}
	count := d.KeywordPack.Count()
	return componentStatus{
		OK:          true,
		RulesLoaded: &count,
	}
}
