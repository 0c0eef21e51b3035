package repository

import (
	"context"

	"event-rsvp-backend/internal/models"
)

// Users is the device registry and profile store
type Users interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error)
	UpdateDevice(ctx context.Context, id string, expectedRevision int64, device models.Device) (*models.User, error)
}

// Rsvps is the subscription store
type Rsvps interface {
	Create(ctx context.Context, rsvp *models.Rsvp) error
	GetByID(ctx context.Context, id string) (*models.Rsvp, error)
	GetByUserAndEvent(ctx context.Context, userID, eventID string) (*models.Rsvp, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Rsvp, error)
	ListByEvent(ctx context.Context, eventID string) ([]*models.Rsvp, error)
	ListNotifiable(ctx context.Context, eventID string, category models.Category) ([]*models.Rsvp, error)
	UpdatePreferences(ctx context.Context, id string, update models.PreferencesUpdate) (*models.Rsvp, error)
	SyncDevice(ctx context.Context, userID string, device models.Device) (int64, error)
	ListDivergentOwners(ctx context.Context, limit int) ([]string, error)
	SoftDelete(ctx context.Context, id string) error
}

// Events stores events and their comment threads
type Events interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*models.Event, error)
	Update(ctx context.Context, id string, update models.EventUpdate) (*models.Event, error)
	AddComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, eventID string, kind models.CommentKind) ([]*models.Comment, error)
}

// Repositories groups the repositories bound to one connection or transaction
type Repositories interface {
	Users() Users
	Rsvps() Rsvps
	Events() Events
}

// Store vends repositories and runs functions in a transaction
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}

// PostgresStore is the pgx-backed Store
type PostgresStore struct {
	db TxBeginner
}

// NewPostgresStore creates a store over a pool
func NewPostgresStore(db TxBeginner) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Users() Users   { return NewUserRepository(s.db) }
func (s *PostgresStore) Rsvps() Rsvps   { return NewRsvpRepository(s.db) }
func (s *PostgresStore) Events() Events { return NewEventRepository(s.db) }

// WithTx runs fn with repositories bound to a single transaction
func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error {
	return WithTx(ctx, s.db, func(ctx context.Context, tx DBTX) error {
		return fn(ctx, txRepositories{db: tx})
	})
}

type txRepositories struct {
	db DBTX
}

func (t txRepositories) Users() Users   { return NewUserRepository(t.db) }
func (t txRepositories) Rsvps() Rsvps   { return NewRsvpRepository(t.db) }
func (t txRepositories) Events() Events { return NewEventRepository(t.db) }
