package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/sheetcharts-be/internal/models"
	"github.com/isdelr/sheetcharts-be/internal/services"
	"github.com/rs/zerolog/log"
)

// AdminHandler handles the admin-only user management and stats routes.
type AdminHandler struct {
	users services.UserServiceProvider
	stats services.StatsServiceProvider
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(users services.UserServiceProvider, stats services.StatsServiceProvider) *AdminHandler {
	return &AdminHandler{users: users, stats: stats}
}

// Stats returns the usage counters.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListUsers returns every account.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Block prevents a user from logging in.
func (h *AdminHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

// Unblock restores a user's ability to log in.
func (h *AdminHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *AdminHandler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	id := chi.URLParam(r, "id")
	user, err := h.users.SetBlocked(r.Context(), id, blocked)
	if err != nil {
		writeError(w, r, err)
		return
	}

	msg := "User unblocked"
	if blocked {
		msg = "User blocked"
	}
	log.Info().Str("user_id", id).Bool("blocked", blocked).Msg(msg)
	writeJSON(w, http.StatusOK, struct {
		Msg  string      `json:"msg"`
		User models.User `json:"user"`
	}{Msg: msg, User: user})
}

// Delete removes a user account. Their uploads are kept.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.users.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	log.Info().Str("user_id", id).Msg("User deleted")
	writeMsg(w, http.StatusOK, "User deleted")
}
