package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/healthdesk/client-registry/internal/auth"
	"github.com/healthdesk/client-registry/internal/database"
	"github.com/healthdesk/client-registry/internal/models"
	"github.com/rs/zerolog/log"
)

// EventServiceProvider defines the interface for the activity log.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
	PruneEvents(ctx context.Context, before time.Time) (int64, error)
}

// EventService records staff activity.
type EventService struct {
	db *sql.DB
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db}
}

// CreateEvent logs a new event, attributed to the user in ctx when present.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string) error {
	event := models.Event{
		ID:      uuid.New().String(),
		Type:    eventType,
		Level:   level,
		Message: message,
	}
	if id, ok := auth.IdentityFrom(ctx); ok {
		event.UserID = &id.UserID
	}

	_, err := database.Querier(ctx, s.db).ExecContext(ctx,
		"INSERT INTO events (id, type, level, message, user_id) VALUES (?, ?, ?, ?, ?)",
		event.ID, event.Type, event.Level, event.Message, event.UserID)
	return err
}

// GetRecentEvents retrieves the most recent events.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	rows, err := database.Querier(ctx, s.db).QueryContext(ctx,
		"SELECT id, type, level, message, user_id, created_at FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		var userID sql.NullInt64
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &userID, &event.CreatedAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			event.UserID = &userID.Int64
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// PruneEvents deletes events created before the cutoff.
func (s *EventService) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := database.Querier(ctx, s.db).ExecContext(ctx,
		"DELETE FROM events WHERE created_at < ?", before.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// recordEvent writes an activity event; failures are logged, never returned.
func recordEvent(ctx context.Context, events EventServiceProvider, eventType, level, message string) {
	if events == nil {
		return
	}
	if err := events.CreateEvent(ctx, eventType, level, message); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to record activity event")
	}
}
