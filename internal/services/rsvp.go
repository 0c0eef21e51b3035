package services

import (
	"context"
	"fmt"
	"time"

	"event-rsvp-backend/internal/models"
	"event-rsvp-backend/internal/repository"

	"github.com/google/uuid"
)

// CreateRsvpInput is the payload for a new RSVP
type CreateRsvpInput struct {
	EventID     string             `json:"event_id"`
	Preferences models.Preferences `json:"preferences"`
}

// RsvpService handles RSVPs and their notification preferences
type RsvpService struct {
	store     repository.Store
	locker    Locker
	lockWait  time.Duration
	publisher Publisher
}

// NewRsvpService creates a new RSVP service. It shares the locker with the
// device sync coordinator.
func NewRsvpService(store repository.Store, locker Locker, lockWait time.Duration, publisher Publisher) *RsvpService {
	return &RsvpService{store: store, locker: locker, lockWait: lockWait, publisher: publisher}
}

// Create RSVPs userID to an event, copying the user's current device onto
// the RSVP, then notifies the event creator
func (s *RsvpService) Create(ctx context.Context, userID string, in CreateRsvpInput) (*models.Rsvp, error) {
	if in.EventID == "" {
		return nil, fmt.Errorf("%w: event_id is required", models.ErrInvalidInput)
	}
	if _, err := s.store.Events().GetByID(ctx, in.EventID); err != nil {
		return nil, err
	}

	rsvp, err := s.create(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, models.Change{
		Kind:    models.ChangeRsvpCreated,
		EventID: in.EventID,
		UserID:  userID,
	})
	return rsvp, nil
}

// create holds the user lock so a concurrent device sync cannot leave the
// new RSVP with a stale mirror
func (s *RsvpService) create(ctx context.Context, userID string, in CreateRsvpInput) (*models.Rsvp, error) {
	unlock, err := lockUser(ctx, s.locker, s.lockWait, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	rsvp := &models.Rsvp{
		ID:          uuid.New().String(),
		EventID:     in.EventID,
		UserID:      userID,
		Preferences: in.Preferences,
		Device:      user.Device,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Rsvps().Create(ctx, rsvp); err != nil {
		return nil, err
	}
	return rsvp, nil
}

// Get retrieves an RSVP by id
func (s *RsvpService) Get(ctx context.Context, id string) (*models.Rsvp, error) {
	return s.store.Rsvps().GetByID(ctx, id)
}

// ListForUser lists a user's live RSVPs
func (s *RsvpService) ListForUser(ctx context.Context, userID string) ([]*models.Rsvp, error) {
	return s.store.Rsvps().ListByUser(ctx, userID)
}

// ListForEvent lists an event's live RSVPs
func (s *RsvpService) ListForEvent(ctx context.Context, eventID string) ([]*models.Rsvp, error) {
	if _, err := s.store.Events().GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.Rsvps().ListByEvent(ctx, eventID)
}

func (s *RsvpService) owned(ctx context.Context, actorID, id string) error {
	rsvp, err := s.store.Rsvps().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rsvp.UserID != actorID {
		return fmt.Errorf("%w: rsvp belongs to another user", models.ErrForbidden)
	}
	return nil
}

// UpdatePreferences changes only the flags present in update
func (s *RsvpService) UpdatePreferences(ctx context.Context, actorID, id string, update models.PreferencesUpdate) (*models.Rsvp, error) {
	if update.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", models.ErrInvalidInput)
	}
	if err := s.owned(ctx, actorID, id); err != nil {
		return nil, err
	}
	return s.store.Rsvps().UpdatePreferences(ctx, id, update)
}

// Cancel soft-deletes an RSVP
func (s *RsvpService) Cancel(ctx context.Context, actorID, id string) error {
	if err := s.owned(ctx, actorID, id); err != nil {
		return err
	}
	return s.store.Rsvps().SoftDelete(ctx, id)
}
