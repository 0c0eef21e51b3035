package repository

import (
	"context"
	"errors"
	"fmt"

	"event-rsvp-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, firstname, lastname, email, password_hash, interests,
		distance_range, distance_units, device_token, device_platform, device_endpoint,
		device_revision, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

// UserRepository handles database operations for users
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row scanner) (*models.User, error) {
	var (
		user                     models.User
		token, platform, handle *string
	)
	err := row.Scan(
		&user.ID, &user.Firstname, &user.Lastname, &user.Email, &user.PasswordHash, &user.Interests,
		&user.Preferences.DistanceRange, &user.Preferences.DistanceUnits,
		&token, &platform, &handle,
		&user.DeviceRevision, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Device = models.Device{
		Token:          deref(token),
		Platform:       models.Platform(deref(platform)),
		EndpointHandle: deref(handle),
	}
	if user.Interests == nil {
		user.Interests = []string{}
	}
	return &user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, firstname, lastname, email, password_hash, interests,
			distance_range, distance_units, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	interests := user.Interests
	if interests == nil {
		interests = []string{}
	}
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Firstname, user.Lastname, user.Email, user.PasswordHash, interests,
		user.Preferences.DistanceRange, user.Preferences.DistanceUnits, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user already exists: %w", models.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a live user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a live user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user with email: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of update
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error) {
	query := `
		UPDATE users SET
			firstname = COALESCE($2, firstname),
			lastname = COALESCE($3, lastname),
			interests = COALESCE($4, interests),
			distance_range = COALESCE($5, distance_range),
			distance_units = COALESCE($6, distance_units),
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + userColumns

	var (
		distanceRange *int
		distanceUnits *string
	)
	if update.Preferences != nil {
		distanceRange = &update.Preferences.DistanceRange
		distanceUnits = &update.Preferences.DistanceUnits
	}

	user, err := scanUser(r.db.QueryRow(ctx, query,
		id, update.Firstname, update.Lastname, update.Interests, distanceRange, distanceUnits,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// UpdateDevice replaces the device snapshot if the stored revision still
// equals expectedRevision, and bumps the revision. A live user with a newer
// revision yields models.ErrConflict.
func (r *UserRepository) UpdateDevice(ctx context.Context, id string, expectedRevision int64, device models.Device) (*models.User, error) {
	query := `
		UPDATE users SET
			device_token = $3,
			device_platform = $4,
			device_endpoint = $5,
			device_revision = device_revision + 1,
			updated_at = NOW()
		WHERE id = $1 AND device_revision = $2 AND deleted_at IS NULL
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query,
		id, expectedRevision,
		nullable(device.Token), nullable(string(device.Platform)), nullable(device.EndpointHandle),
	))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update user device: %w", err)
	}

	var exists bool
	existsQuery := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND deleted_at IS NULL)`
	if err := r.db.QueryRow(ctx, existsQuery, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return nil, fmt.Errorf("user %s device revision moved past %d: %w", id, expectedRevision, models.ErrConflict)
}
