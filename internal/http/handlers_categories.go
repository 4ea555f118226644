package http

import (
	"net/http"

	"github.com/ndegwamoche/budget-tracker/internal/services"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.categories.List(r.Context(), ownerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		views = append(views, toCategoryView(c))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": views})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var input services.CategoryInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}

	cat, err := s.categories.Create(r.Context(), ownerID(r.Context()), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryView(cat))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var input services.CategoryInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}

	cat, err := s.categories.Update(r.Context(), ownerID(r.Context()), r.PathValue("id"), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryView(cat))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.categories.Delete(r.Context(), ownerID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
