package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/deps"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
)

type saveTabRequest struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	FavIconURL string `json:"favIconUrl"`
}

// SaveTab persists one browser tab: the URL lands in the record store
// and the id in its domain's group.
func SaveTab(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saveTabRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		group, err := d.Groups.AddURL(r.Context(), strings.TrimSpace(req.URL), req.Title, req.FavIconURL)
		if err != nil {
			d.Logger.Debug("save tab rejected",
				logger.String("url", req.URL),
				logger.Error(err))
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, group)
	}
}

// ListGroups returns every DomainGroup.
func ListGroups(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups, err := d.Groups.All(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if groups == nil {
			groups = []domain.DomainGroup{}
		}
		writeJSON(w, http.StatusOK, groups)
	}
}

type groupResponse struct {
	Group *domain.DomainGroup `json:"group"`
	URLs  []domain.UrlRecord  `json:"urls"`
}

// GetGroup returns one group with its url references resolved to full
// records, in group order.
func GetGroup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "groupID")

		group, err := d.Groups.Get(r.Context(), groupID)
		if err != nil {
			writeError(w, err)
			return
		}

		records, err := d.URLs.GetByIDs(r.Context(), group.URLIDs)
		if err != nil {
			writeError(w, err)
			return
		}
		if records == nil {
			records = []domain.UrlRecord{}
		}

		writeJSON(w, http.StatusOK, groupResponse{Group: group, URLs: records})
	}
}

// RemoveGroupURL removes one URL from a group. Removing the last URL
// removes the group itself. Missing group or URL is a no-op.
func RemoveGroupURL(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "groupID")
		rawURL := r.URL.Query().Get("url")
		if rawURL == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url query parameter is required"})
			return
		}

		if err := d.Groups.RemoveURL(r.Context(), groupID, rawURL); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
