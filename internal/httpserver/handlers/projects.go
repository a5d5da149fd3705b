package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/deps"
)

// ListProjects returns every project.
func ListProjects(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := d.Projects.All(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if projects == nil {
			projects = []domain.Project{}
		}
		writeJSON(w, http.StatusOK, projects)
	}
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateProject creates a named project. Names are unique
// case-insensitively.
func CreateProject(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProjectRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		project, err := d.Projects.Create(r.Context(), req.Name, req.Description)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, project)
	}
}

type renameProjectRequest struct {
	Name string `json:"name"`
}

// RenameProject renames a project with the same uniqueness rules as
// creation.
func RenameProject(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req renameProjectRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := d.Projects.Rename(r.Context(), chi.URLParam(r, "projectID"), req.Name); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteProject removes a project and its slot in the order array. Its
// url records stay for the garbage collector to judge.
func DeleteProject(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Projects.Delete(r.Context(), chi.URLParam(r, "projectID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type projectURLRequest struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	FavIconURL string `json:"favIconUrl"`
	Notes      string `json:"notes"`
	Category   string `json:"category"`
}

// AddProjectURL saves a URL into a project with optional notes and a
// project-local category.
func AddProjectURL(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req projectURLRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		err := d.Projects.AddURL(r.Context(), chi.URLParam(r, "projectID"),
			req.URL, req.Title, req.FavIconURL, req.Notes, req.Category)
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RemoveProjectURL removes one URL from a project. Unlike groups, an
// emptied project survives.
func RemoveProjectURL(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawURL := r.URL.Query().Get("url")
		if rawURL == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url query parameter is required"})
			return
		}

		if err := d.Projects.RemoveURL(r.Context(), chi.URLParam(r, "projectID"), rawURL); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type projectOrderResponse struct {
	Order []string `json:"order"`
}

// GetProjectOrder returns the display order, self-healed to cover every
// live project.
func GetProjectOrder(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := d.Projects.Order(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if order == nil {
			order = []string{}
		}
		writeJSON(w, http.StatusOK, projectOrderResponse{Order: order})
	}
}

type projectOrderRequest struct {
	Order []string `json:"order"`
}

// SetProjectOrder replaces the display order wholesale.
func SetProjectOrder(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req projectOrderRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := d.Projects.SetOrder(r.Context(), req.Order); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
