package repository

import (
	"context"
	"errors"
	"fmt"

	"event-rsvp-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

const eventColumns = `id, creator_id, title, description, image_url,
		street1, street2, city, state, zip, country, lng, lat,
		starts_at, interest_tags, created_at, updated_at`

// EventRepository handles database operations for events and comments
type EventRepository struct {
	db DBTX
}

// NewEventRepository creates a new event repository
func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

func scanEvent(row scanner) (*models.Event, error) {
	var event models.Event
	a := &event.Address
	err := row.Scan(
		&event.ID, &event.CreatorID, &event.Title, &event.Description, &event.ImageURL,
		&a.Street1, &a.Street2, &a.City, &a.State, &a.Zip, &a.Country, &a.Coords[0], &a.Coords[1],
		&event.StartsAt, &event.InterestTags, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if event.InterestTags == nil {
		event.InterestTags = []string{}
	}
	return &event, nil
}

// Create creates a new event
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (id, creator_id, title, description, image_url,
			street1, street2, city, state, zip, country, lng, lat,
			starts_at, interest_tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	a := event.Address
	tags := event.InterestTags
	if tags == nil {
		tags = []string{}
	}
	_, err := r.db.Exec(ctx, query,
		event.ID, event.CreatorID, event.Title, event.Description, event.ImageURL,
		a.Street1, a.Street2, a.City, a.State, a.Zip, a.Country, a.Coords[0], a.Coords[1],
		event.StartsAt, tags, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID retrieves a live event by ID
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 AND deleted_at IS NULL`
	event, err := scanEvent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// ListByCreator retrieves the live events a user created
func (r *EventRepository) ListByCreator(ctx context.Context, creatorID string) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE creator_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events by creator: %w", err)
	}
	defer rows.Close()

	events := []*models.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// Update applies the non-nil fields of update
func (r *EventRepository) Update(ctx context.Context, id string, update models.EventUpdate) (*models.Event, error) {
	query := `
		UPDATE events SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			image_url = COALESCE($4, image_url),
			street1 = COALESCE($5, street1),
			street2 = COALESCE($6, street2),
			city = COALESCE($7, city),
			state = COALESCE($8, state),
			zip = COALESCE($9, zip),
			country = COALESCE($10, country),
			lng = COALESCE($11, lng),
			lat = COALESCE($12, lat),
			starts_at = COALESCE($13, starts_at),
			interest_tags = COALESCE($14, interest_tags),
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + eventColumns

	var (
		street1, street2, city, state, zip, country *string
		lng, lat                                    *float64
	)
	if a := update.Address; a != nil {
		street1, street2, city, state, zip, country = &a.Street1, &a.Street2, &a.City, &a.State, &a.Zip, &a.Country
		lng, lat = &a.Coords[0], &a.Coords[1]
	}

	event, err := scanEvent(r.db.QueryRow(ctx, query,
		id, update.Title, update.Description, update.ImageURL,
		street1, street2, city, state, zip, country, lng, lat,
		update.StartsAt, update.InterestTags,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return event, nil
}

// AddComment appends a comment or announcement to a live event
func (r *EventRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO event_comments (id, event_id, author_id, kind, body, created_at)
		SELECT $1, e.id, $3, $4, $5, $6 FROM events e
		WHERE e.id = $2 AND e.deleted_at IS NULL
	`
	result, err := r.db.Exec(ctx, query,
		comment.ID, comment.EventID, comment.AuthorID, string(comment.Kind), comment.Body, comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("event %s: %w", comment.EventID, models.ErrNotFound)
	}
	return nil
}

// ListComments retrieves an event's comments of one kind, oldest first
func (r *EventRepository) ListComments(ctx context.Context, eventID string, kind models.CommentKind) ([]*models.Comment, error) {
	query := `
		SELECT id, event_id, author_id, kind, body, created_at
		FROM event_comments
		WHERE event_id = $1 AND kind = $2
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, eventID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []*models.Comment{}
	for rows.Next() {
		var c models.Comment
		var k string
		if err := rows.Scan(&c.ID, &c.EventID, &c.AuthorID, &k, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.Kind = models.CommentKind(k)
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}
