package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/membergate/membergate/internal/apperr"
	"github.com/membergate/membergate/internal/model"
	"github.com/membergate/membergate/internal/service"
	"github.com/membergate/membergate/internal/store"
)

// AdminsHandler manages admin accounts.
type AdminsHandler struct {
	store *store.Store
}

// NewAdminsHandler creates an AdminsHandler.
func NewAdminsHandler(st *store.Store) *AdminsHandler {
	return &AdminsHandler{store: st}
}

// List returns all admin accounts. Password hashes never serialize.
// GET /api/admin/admins
func (h *AdminsHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.store.ListAdmins(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"admins": admins})
}

type createAdminRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Create adds a new admin account.
// POST /api/admin/admins
func (h *AdminsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAdminRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Email, password, and name are required")
		return
	}

	hash, err := service.HashPassword(req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}

	admin := &model.Admin{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
	}
	if err := h.store.CreateAdmin(r.Context(), admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeAppError(w, apperr.Conflict("Email is already registered"))
			return
		}
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"admin": admin})
}

// Delete removes an admin account. The last remaining admin can never be
// deleted.
// DELETE /api/admin/admins/{adminID}
func (h *AdminsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "adminID")

	count, err := h.store.CountAdmins(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	if count <= 1 {
		writeAppError(w, apperr.State("Cannot delete the last admin"))
		return
	}

	if err := h.store.DeleteAdmin(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
