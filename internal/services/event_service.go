package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/sheetcharts-be/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	DefaultEventLimit = 20
	MaxEventLimit     = 200
)

// EventRecorder is the write side of the activity log used by other services.
type EventRecorder interface {
	CreateEvent(ctx context.Context, eventType, level, message string, userID *string) (models.Event, error)
}

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	EventRecorder
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}

// EventPublisher receives every persisted event, e.g. the websocket hub.
type EventPublisher interface {
	PublishEvent(event models.Event)
}

// EventService provides business logic for event management.
type EventService struct {
	db        *sql.DB
	publisher EventPublisher
}

// NewEventService creates a new EventService. publisher may be nil.
func NewEventService(db *sql.DB, publisher EventPublisher) *EventService {
	return &EventService{db: db, publisher: publisher}
}

// CreateEvent logs a new event to the database and publishes it.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string, userID *string) (models.Event, error) {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, level, message, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		event.ID, event.Type, event.Level, event.Message, event.UserID, event.CreatedAt)
	if err != nil {
		return models.Event{}, fmt.Errorf("insert event: %w", err)
	}

	if s.publisher != nil {
		s.publisher.PublishEvent(event)
	}
	return event, nil
}

// GetRecentEvents retrieves the most recent events, newest first.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	if limit > MaxEventLimit {
		limit = MaxEventLimit
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, level, message, user_id, created_at FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		var userID sql.NullString
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &userID, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if userID.Valid {
			event.UserID = &userID.String
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// recordEvent writes to the activity log without failing the caller.
func recordEvent(ctx context.Context, rec EventRecorder, eventType, level, message string, userID string) {
	if rec == nil {
		return
	}
	var uid *string
	if userID != "" {
		uid = &userID
	}
	if _, err := rec.CreateEvent(ctx, eventType, level, message, uid); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Failed to record event")
	}
}
