package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/isdelr/sheetcharts-be/internal/apperr"
	"github.com/isdelr/sheetcharts-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 64
	minPasswordLen = 6
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	CreateUser(ctx context.Context, username, password string, role models.Role) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.UserSummary, error)
	SetBlocked(ctx context.Context, id string, blocked bool) (models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// UserService provides business logic for user management.
type UserService struct {
	db     *sql.DB
	events EventRecorder
	cost   int
}

// NewUserService creates a new UserService. events may be nil.
func NewUserService(db *sql.DB, events EventRecorder) *UserService {
	return &UserService{db: db, events: events, cost: bcrypt.DefaultCost}
}

const userColumns = "id, username, password_hash, role, is_blocked, last_login, created_at"

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var user models.User
	var lastLogin sql.NullTime
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.IsBlocked, &lastLogin, &user.CreatedAt)
	if err != nil {
		return models.User{}, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time.UTC()
		user.LastLogin = &t
	}
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperr.NotFound("User not found")
		}
		return models.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *UserService) getUserByUsername(ctx context.Context, username string) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
}

// CreateUser creates a new user, hashing their password.
func (s *UserService) CreateUser(ctx context.Context, username, password string, role models.Role) (models.User, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return models.User{}, apperr.Validation(fmt.Sprintf("Username must be %d to %d characters", minUsernameLen, maxUsernameLen))
	}
	if len(password) < minPasswordLen {
		return models.User{}, apperr.Validation(fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return models.User{}, apperr.Validation("Invalid role")
	}

	if _, err := s.getUserByUsername(ctx, username); err == nil {
		return models.User{}, apperr.New(apperr.ConflictKind, "Username already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("check username: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:        uuid.New().String(),
		Username:  username,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, role, is_blocked, created_at) VALUES (?, ?, ?, ?, 0, ?)",
		user.ID, user.Username, string(hashedPassword), user.Role, user.CreatedAt)
	if err != nil {
		// Lost a race with a concurrent signup for the same name.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return models.User{}, apperr.New(apperr.ConflictKind, "Username already exists")
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	recordEvent(ctx, s.events, "user.signup", "info", fmt.Sprintf("User '%s' signed up as %s", user.Username, user.Role), user.ID)
	return user, nil
}

// Authenticate verifies a user's credentials and stamps the login time.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	user, err := s.getUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperr.New(apperr.InvalidCredentialKind, "Invalid credentials")
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, apperr.New(apperr.InvalidCredentialKind, "Invalid credentials")
	}
	if user.IsBlocked {
		return models.User{}, apperr.Forbidden("Account is blocked")
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", now, user.ID); err != nil {
		return models.User{}, fmt.Errorf("update last login: %w", err)
	}
	user.LastLogin = &now

	recordEvent(ctx, s.events, "user.login", "info", fmt.Sprintf("User '%s' logged in", user.Username), user.ID)

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

// ListUsers returns every account in signup order.
func (s *UserService) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, username, is_blocked FROM users ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []models.UserSummary{}
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.IsBlocked); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetBlocked blocks or unblocks a user and returns the updated account.
func (s *UserService) SetBlocked(ctx context.Context, id string, blocked bool) (models.User, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET is_blocked = ? WHERE id = ?", blocked, id)
	if err != nil {
		return models.User{}, fmt.Errorf("update user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.User{}, apperr.NotFound("User not found")
	}

	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	eventType, verb := "user.unblock", "unblocked"
	if blocked {
		eventType, verb = "user.block", "blocked"
	}
	recordEvent(ctx, s.events, eventType, "warn", fmt.Sprintf("User '%s' was %s", user.Username, verb), user.ID)
	return user, nil
}

// DeleteUser removes a user from the database. Their uploads are kept.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	recordEvent(ctx, s.events, "user.delete", "warn", fmt.Sprintf("User '%s' was deleted", user.Username), user.ID)
	return nil
}
