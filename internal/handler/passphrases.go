package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/membergate/membergate/internal/apperr"
	"github.com/membergate/membergate/internal/model"
	"github.com/membergate/membergate/internal/store"
)

// PassphrasesHandler manages the monthly member passphrases.
type PassphrasesHandler struct {
	store *store.Store
}

// NewPassphrasesHandler creates a PassphrasesHandler.
func NewPassphrasesHandler(st *store.Store) *PassphrasesHandler {
	return &PassphrasesHandler{store: st}
}

// List returns all passphrases, newest month first.
// GET /api/admin/passphrase
func (h *PassphrasesHandler) List(w http.ResponseWriter, r *http.Request) {
	pps, err := h.store.ListPassPhrases(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"passphrases": pps})
}

type createPassphraseRequest struct {
	Phrase string `json:"phrase"`
	Month  int    `json:"month"`
	Year   int    `json:"year"`
}

// Create registers a passphrase for a (month, year). At most one phrase
// may exist per calendar month.
// POST /api/admin/passphrase
func (h *PassphrasesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPassphraseRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Phrase == "" || req.Month == 0 || req.Year == 0 {
		writeError(w, http.StatusBadRequest, "Phrase, month, and year are required")
		return
	}
	if req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusBadRequest, "Month must be between 1 and 12")
		return
	}

	pp := &model.PassPhrase{
		Phrase: req.Phrase,
		Month:  req.Month,
		Year:   req.Year,
	}
	if err := h.store.CreatePassPhrase(r.Context(), pp); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeAppError(w, apperr.Conflict("A passphrase for this month is already registered"))
			return
		}
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"passphrase": pp})
}

// Delete removes a passphrase and opportunistically prunes expired session
// audit rows.
// DELETE /api/admin/passphrase/{passphraseID}
func (h *PassphrasesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "passphraseID")

	if err := h.store.DeletePassPhrase(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}

	// Best effort; stale audit rows are harmless.
	_, _ = h.store.DeleteExpiredSessions(r.Context(), time.Now())

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
