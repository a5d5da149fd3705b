package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TarouTanakaYokohama/tabbin/internal/category"
	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/deps"
)

// ListCategories returns every parent category with its domain views
// recomputed from the mapping document.
func ListCategories(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := d.Categories.All(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if categories == nil {
			categories = []domain.ParentCategory{}
		}
		writeJSON(w, http.StatusOK, categories)
	}
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

// CreateCategory creates a parent category. Names are unique
// case-insensitively.
func CreateCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCategoryRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		cat, err := d.Categories.CreateParentCategory(r.Context(), req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, cat)
	}
}

// GetCategory returns one parent category.
func GetCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat, err := d.Categories.Get(r.Context(), chi.URLParam(r, "categoryID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cat)
	}
}

// DeleteCategory removes a parent category; its domains become
// uncategorized.
func DeleteCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Categories.DeleteParentCategory(r.Context(), chi.URLParam(r, "categoryID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type assignCategoryRequest struct {
	CategoryID string `json:"categoryId"` // empty unassigns the domain
}

// AssignCategory moves a group's domain into a parent category. A
// domain belongs to at most one category, so any previous assignment is
// replaced.
func AssignCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req assignCategoryRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.CategoryID == "" {
			req.CategoryID = category.NoCategory
		}

		if err := d.Categories.AssignDomainToCategory(r.Context(), chi.URLParam(r, "groupID"), req.CategoryID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
