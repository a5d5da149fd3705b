package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/deps"
)

type subCategoryRequest struct {
	Name string `json:"name"`
}

// AddSubCategory adds a sub-category label to a group's set.
func AddSubCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subCategoryRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := d.Categories.AddSubCategory(r.Context(), chi.URLParam(r, "groupID"), req.Name); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type renameSubCategoryRequest struct {
	NewName string `json:"newName"`
}

// RenameSubCategory renames a sub-category everywhere it appears in the
// group: the set, both order arrays, keyword rules, and url labels.
func RenameSubCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req renameSubCategoryRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		groupID := chi.URLParam(r, "groupID")
		name := chi.URLParam(r, "name")
		if err := d.Categories.RenameSubCategory(r.Context(), groupID, name, req.NewName); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RemoveSubCategory deletes a sub-category; labeled urls fall back to
// uncategorized.
func RemoveSubCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "groupID")
		name := chi.URLParam(r, "name")
		if err := d.Categories.RemoveSubCategory(r.Context(), groupID, name); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type keywordsRequest struct {
	Keywords []string `json:"keywords"`
}

// SetCategoryKeywords replaces the keyword list backing a sub-category's
// auto-categorization rule.
func SetCategoryKeywords(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req keywordsRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		groupID := chi.URLParam(r, "groupID")
		name := chi.URLParam(r, "name")
		if err := d.Categories.SetCategoryKeywords(r.Context(), groupID, name, req.Keywords); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type urlSubCategoryRequest struct {
	URLID string `json:"urlId"`
	Name  string `json:"name"` // empty clears the label
}

// SetURLSubCategory labels (or clears) a single url within a group.
func SetURLSubCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req urlSubCategoryRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := d.Categories.SetURLSubCategory(r.Context(), chi.URLParam(r, "groupID"), req.URLID, req.Name); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type subCategoryOrderRequest struct {
	Order                  []string `json:"order"`
	OrderWithUncategorized []string `json:"orderWithUncategorized"`
}

// SetSubCategoryOrder replaces both display-order arrays.
func SetSubCategoryOrder(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subCategoryOrderRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := d.Categories.SetSubCategoryOrder(r.Context(), chi.URLParam(r, "groupID"), req.Order, req.OrderWithUncategorized); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type autoCategorizeResponse struct {
	Relabeled int `json:"relabeled"`
}

// AutoCategorize re-labels every url in the group from its keyword
// rules.
func AutoCategorize(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		relabeled, err := d.Categories.AutoCategorizeTabs(r.Context(), chi.URLParam(r, "groupID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, autoCategorizeResponse{Relabeled: relabeled})
	}
}
