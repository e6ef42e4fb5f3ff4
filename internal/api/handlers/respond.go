package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/isdelr/sheetcharts-be/internal/apperr"
	"github.com/isdelr/sheetcharts-be/internal/auth"
	"github.com/rs/zerolog/log"
)

// msgResponse is the envelope for every error and plain acknowledgement.
type msgResponse struct {
	Msg string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, msgResponse{Msg: msg})
}

// writeError maps err to its status and client-safe message. Internal causes
// are logged and never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.InternalKind {
		log.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}
	writeMsg(w, kind.HTTPStatus(), apperr.Message(err))
}

// maxCredentialsBody caps the small JSON bodies of the auth routes.
const maxCredentialsBody = 64 << 10

// decodeJSON reads a JSON body of at most limit bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Wrap(apperr.ValidationKind, "Request body too large", err)
		}
		return apperr.Wrap(apperr.ValidationKind, "Invalid request body", err)
	}
	return nil
}

// callerID returns the authenticated user id set by the auth middleware.
func callerID(r *http.Request) (string, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return "", false
	}
	return claims.UserID, true
}
