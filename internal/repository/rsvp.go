package repository

import (
	"context"
	"errors"
	"fmt"

	"event-rsvp-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

const rsvpColumns = `id, event_id, user_id, notify_on_announcement, notify_on_comment, notify_on_updates,
		device_token, device_platform, device_endpoint, created_at, updated_at`

// categoryColumn maps a change category to its opt-in flag
var categoryColumn = map[models.Category]string{
	models.CategoryUpdate:       "notify_on_updates",
	models.CategoryAnnouncement: "notify_on_announcement",
	models.CategoryComment:      "notify_on_comment",
}

// RsvpRepository handles database operations for RSVPs
type RsvpRepository struct {
	db DBTX
}

// NewRsvpRepository creates a new RSVP repository
func NewRsvpRepository(db DBTX) *RsvpRepository {
	return &RsvpRepository{db: db}
}

func scanRsvp(row scanner) (*models.Rsvp, error) {
	var (
		rsvp                    models.Rsvp
		token, platform, handle *string
	)
	err := row.Scan(
		&rsvp.ID, &rsvp.EventID, &rsvp.UserID,
		&rsvp.Preferences.NotifyOnAnnouncement, &rsvp.Preferences.NotifyOnComment, &rsvp.Preferences.NotifyOnUpdates,
		&token, &platform, &handle,
		&rsvp.CreatedAt, &rsvp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rsvp.Device = models.Device{
		Token:          deref(token),
		Platform:       models.Platform(deref(platform)),
		EndpointHandle: deref(handle),
	}
	return &rsvp, nil
}

func collectRsvps(rows pgx.Rows) ([]*models.Rsvp, error) {
	defer rows.Close()

	rsvps := []*models.Rsvp{}
	for rows.Next() {
		rsvp, err := scanRsvp(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rsvp: %w", err)
		}
		rsvps = append(rsvps, rsvp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rsvps: %w", err)
	}
	return rsvps, nil
}

// Create creates a new RSVP
func (r *RsvpRepository) Create(ctx context.Context, rsvp *models.Rsvp) error {
	query := `
		INSERT INTO rsvps (id, event_id, user_id, notify_on_announcement, notify_on_comment,
			notify_on_updates, device_token, device_platform, device_endpoint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		rsvp.ID, rsvp.EventID, rsvp.UserID,
		rsvp.Preferences.NotifyOnAnnouncement, rsvp.Preferences.NotifyOnComment, rsvp.Preferences.NotifyOnUpdates,
		nullable(rsvp.Device.Token), nullable(string(rsvp.Device.Platform)), nullable(rsvp.Device.EndpointHandle),
		rsvp.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("rsvp already exists: %w", models.ErrConflict)
		}
		return fmt.Errorf("failed to create rsvp: %w", err)
	}
	return nil
}

// GetByID retrieves a live RSVP by ID
func (r *RsvpRepository) GetByID(ctx context.Context, id string) (*models.Rsvp, error) {
	query := `SELECT ` + rsvpColumns + ` FROM rsvps WHERE id = $1 AND deleted_at IS NULL`
	rsvp, err := scanRsvp(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("rsvp %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rsvp: %w", err)
	}
	return rsvp, nil
}

// GetByUserAndEvent retrieves the live RSVP a user holds for an event
func (r *RsvpRepository) GetByUserAndEvent(ctx context.Context, userID, eventID string) (*models.Rsvp, error) {
	query := `SELECT ` + rsvpColumns + ` FROM rsvps WHERE user_id = $1 AND event_id = $2 AND deleted_at IS NULL`
	rsvp, err := scanRsvp(r.db.QueryRow(ctx, query, userID, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("rsvp for user %s event %s: %w", userID, eventID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rsvp by user and event: %w", err)
	}
	return rsvp, nil
}

// ListByUser retrieves all live RSVPs owned by a user
func (r *RsvpRepository) ListByUser(ctx context.Context, userID string) ([]*models.Rsvp, error) {
	query := `SELECT ` + rsvpColumns + ` FROM rsvps
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rsvps for user: %w", err)
	}
	return collectRsvps(rows)
}

// ListByEvent retrieves all live RSVPs for an event
func (r *RsvpRepository) ListByEvent(ctx context.Context, eventID string) ([]*models.Rsvp, error) {
	query := `SELECT ` + rsvpColumns + ` FROM rsvps
		WHERE event_id = $1 AND deleted_at IS NULL
		ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rsvps for event: %w", err)
	}
	return collectRsvps(rows)
}

// ListNotifiable retrieves the live RSVPs of an event that opted in to the
// category and carry a deliverable mirrored device
func (r *RsvpRepository) ListNotifiable(ctx context.Context, eventID string, category models.Category) ([]*models.Rsvp, error) {
	column, ok := categoryColumn[category]
	if !ok {
		return nil, fmt.Errorf("category %q: %w", category, models.ErrInvalidInput)
	}
	query := `SELECT ` + rsvpColumns + ` FROM rsvps
		WHERE event_id = $1
			AND deleted_at IS NULL
			AND device_endpoint IS NOT NULL AND device_endpoint <> ''
			AND device_platform IS NOT NULL AND device_platform <> ''
			AND ` + column + ` = TRUE
		ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifiable rsvps: %w", err)
	}
	return collectRsvps(rows)
}

// UpdatePreferences applies the non-nil flags of update
func (r *RsvpRepository) UpdatePreferences(ctx context.Context, id string, update models.PreferencesUpdate) (*models.Rsvp, error) {
	query := `
		UPDATE rsvps SET
			notify_on_announcement = COALESCE($2, notify_on_announcement),
			notify_on_comment = COALESCE($3, notify_on_comment),
			notify_on_updates = COALESCE($4, notify_on_updates),
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + rsvpColumns

	rsvp, err := scanRsvp(r.db.QueryRow(ctx, query,
		id, update.NotifyOnAnnouncement, update.NotifyOnComment, update.NotifyOnUpdates,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("rsvp %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update rsvp preferences: %w", err)
	}
	return rsvp, nil
}

// SyncDevice mirrors device onto every live RSVP of the user whose copy
// differs, and returns how many rows changed
func (r *RsvpRepository) SyncDevice(ctx context.Context, userID string, device models.Device) (int64, error) {
	query := `
		UPDATE rsvps SET
			device_token = $2,
			device_platform = $3,
			device_endpoint = $4,
			updated_at = NOW()
		WHERE user_id = $1
			AND deleted_at IS NULL
			AND (device_token IS DISTINCT FROM $2
				OR device_platform IS DISTINCT FROM $3
				OR device_endpoint IS DISTINCT FROM $4)
	`
	tag, err := r.db.Exec(ctx, query,
		userID, nullable(device.Token), nullable(string(device.Platform)), nullable(device.EndpointHandle),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sync device to rsvps: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListDivergentOwners returns users whose device differs from the mirror on
// at least one of their live RSVPs
func (r *RsvpRepository) ListDivergentOwners(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT DISTINCT r.user_id
		FROM rsvps r
		JOIN users u ON u.id = r.user_id
		WHERE r.deleted_at IS NULL
			AND u.deleted_at IS NULL
			AND (r.device_token IS DISTINCT FROM u.device_token
				OR r.device_platform IS DISTINCT FROM u.device_platform
				OR r.device_endpoint IS DISTINCT FROM u.device_endpoint)
		ORDER BY r.user_id
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list divergent rsvp owners: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating divergent owners: %w", err)
	}
	return ids, nil
}

// SoftDelete marks an RSVP deleted
func (r *RsvpRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE rsvps SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete rsvp: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("rsvp %s: %w", id, models.ErrNotFound)
	}
	return nil
}
