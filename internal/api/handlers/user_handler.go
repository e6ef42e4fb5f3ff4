package handlers

import (
	"net/http"

	"github.com/isdelr/sheetcharts-be/internal/apperr"
	"github.com/isdelr/sheetcharts-be/internal/auth"
	"github.com/isdelr/sheetcharts-be/internal/models"
	"github.com/isdelr/sheetcharts-be/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles signup, login and the current-user lookup.
type UserHandler struct {
	service services.UserServiceProvider
	tokens  *auth.TokenIssuer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, tokens *auth.TokenIssuer) *UserHandler {
	return &UserHandler{service: service, tokens: tokens}
}

// SignupPayload defines the structure for signup requests.
type SignupPayload struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup handles new user registration.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload SignupPayload
	if err := decodeJSON(w, r, &payload, maxCredentialsBody); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.CreateUser(r.Context(), payload.Username, payload.Password, payload.Role)
	if err != nil {
		if apperr.KindOf(err) != apperr.InternalKind {
			log.Debug().Err(err).Str("username", payload.Username).Msg("Signup rejected")
		}
		writeError(w, r, err)
		return
	}

	log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("User signed up")
	writeMsg(w, http.StatusCreated, "Signup successful")
}

// Login handles user authentication and JWT generation.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := decodeJSON(w, r, &payload, maxCredentialsBody); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.Authenticate(r.Context(), payload.Username, payload.Password)
	if err != nil {
		if apperr.KindOf(err) != apperr.InternalKind {
			log.Warn().Str("username", payload.Username).Str("reason", apperr.Message(err)).Msg("Failed authentication attempt")
		}
		writeError(w, r, err)
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// GetMe returns the identity carried by the caller's token.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":       user.ID,
		"username": user.Username,
		"role":     string(user.Role),
	})
}
