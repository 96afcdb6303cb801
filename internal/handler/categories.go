package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/membergate/membergate/internal/apperr"
	"github.com/membergate/membergate/internal/cache"
	"github.com/membergate/membergate/internal/model"
	"github.com/membergate/membergate/internal/store"
)

// CategoriesHandler serves the category list to members and category CRUD
// to admins. Reads go through the feed cache; every mutation invalidates
// both the category and content key families, since feed entries embed
// their category.
type CategoriesHandler struct {
	store *store.Store
	cache cache.Cache
}

// NewCategoriesHandler creates a CategoriesHandler.
func NewCategoriesHandler(st *store.Store, c cache.Cache) *CategoriesHandler {
	return &CategoriesHandler{store: st, cache: c}
}

const categoriesCacheKey = "categories:all"

// List returns all categories in display order.
// GET /api/categories, GET /api/admin/categories
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	if body, ok := h.cache.Get(r.Context(), categoriesCacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
		return
	}

	cats, err := h.store.ListCategories(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	if cats == nil {
		cats = []model.Category{}
	}

	body, err := json.Marshal(map[string]interface{}{"categories": cats})
	if err != nil {
		writeAppError(w, err)
		return
	}
	h.cache.Set(r.Context(), categoriesCacheKey, body, cache.CategoryTTL)

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

type categoryRequest struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Order int    `json:"order"`
}

// Create adds a new category.
// POST /api/admin/categories
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Slug == "" {
		writeError(w, http.StatusBadRequest, "Name and slug are required")
		return
	}

	cat := &model.Category{Name: req.Name, Slug: req.Slug, SortOrder: req.Order}
	if err := h.store.CreateCategory(r.Context(), cat); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeAppError(w, apperr.Conflict("Slug is already in use"))
			return
		}
		writeAppError(w, err)
		return
	}

	h.invalidate(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"category": cat})
}

// Update replaces a category's name, slug, and order.
// PUT /api/admin/categories/{categoryID}
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "categoryID")

	var req categoryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Slug == "" {
		writeError(w, http.StatusBadRequest, "Name and slug are required")
		return
	}

	cat, err := h.store.GetCategory(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	cat.Name = req.Name
	cat.Slug = req.Slug
	cat.SortOrder = req.Order

	if err := h.store.UpdateCategory(r.Context(), cat); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeAppError(w, apperr.Conflict("Slug is already in use"))
			return
		}
		writeAppError(w, err)
		return
	}

	h.invalidate(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"category": cat})
}

type categoryPatchRequest struct {
	Name  *string `json:"name"`
	Slug  *string `json:"slug"`
	Order *int    `json:"order"`
}

// Patch partially updates a category; used for reordering.
// PATCH /api/admin/categories/{categoryID}
func (h *CategoriesHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "categoryID")

	var req categoryPatchRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cat, err := h.store.GetCategory(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if req.Name != nil {
		cat.Name = *req.Name
	}
	if req.Slug != nil {
		cat.Slug = *req.Slug
	}
	if req.Order != nil {
		cat.SortOrder = *req.Order
	}

	if err := h.store.UpdateCategory(r.Context(), cat); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeAppError(w, apperr.Conflict("Slug is already in use"))
			return
		}
		writeAppError(w, err)
		return
	}

	h.invalidate(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"category": cat})
}

// Delete removes a category. Categories that still have contents cannot be
// deleted.
// DELETE /api/admin/categories/{categoryID}
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "categoryID")

	count, err := h.store.CountContentsInCategory(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if count > 0 {
		writeAppError(w, apperr.State("Cannot delete a category that has contents"))
		return
	}

	if err := h.store.DeleteCategory(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}

	h.invalidate(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *CategoriesHandler) invalidate(ctx context.Context) {
	h.cache.DeleteByPrefix(ctx, "categories:")
	h.cache.DeleteByPrefix(ctx, "contents:")
}
