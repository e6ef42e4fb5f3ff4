package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/isdelr/sheetcharts-be/internal/apperr"
	"github.com/isdelr/sheetcharts-be/internal/models"
	"github.com/isdelr/sheetcharts-be/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubUsers implements only what the admin routes call.
type stubUsers struct {
	services.UserServiceProvider
	blocked map[string]bool
}

func (s *stubUsers) SetBlocked(_ context.Context, id string, blocked bool) (models.User, error) {
	if id != "u1" {
		return models.User{}, apperr.NotFound("User not found")
	}
	s.blocked[id] = blocked
	return models.User{ID: id, Username: "ann", Role: models.RoleUser, IsBlocked: blocked}, nil
}

func (s *stubUsers) DeleteUser(_ context.Context, id string) error {
	return errors.New("constraint violation in users table")
}

func adminRouter(h *AdminHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/stats", h.Stats)
	r.Put("/users/{id}/block", h.Block)
	r.Put("/users/{id}/unblock", h.Unblock)
	r.Delete("/users/{id}", h.Delete)
	return r
}

func TestStatsInternalErrorDoesNotLeak(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery(`SELECT COUNT`).WillReturnError(errors.New("database is locked"))

	h := NewAdminHandler(&stubUsers{}, services.NewStatsService(db))
	rec := httptest.NewRecorder()
	adminRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"msg":"Server error"}`, rec.Body.String())
}

func TestBlockAndUnblock(t *testing.T) {
	users := &stubUsers{blocked: map[string]bool{}}
	router := adminRouter(NewAdminHandler(users, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/users/u1/block", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"msg":"User blocked","user":{"id":"u1","username":"ann","role":"user","isBlocked":true,"createdAt":"0001-01-01T00:00:00Z"}}`, rec.Body.String())
	assert.True(t, users.blocked["u1"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/users/u1/unblock", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, users.blocked["u1"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/users/zz/block", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"msg":"User not found"}`, rec.Body.String())
}

func TestDeleteInternalError(t *testing.T) {
	router := adminRouter(NewAdminHandler(&stubUsers{}, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/u1", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "constraint")
}
