package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"event-rsvp-backend/internal/models"
	"event-rsvp-backend/internal/repository"

	"github.com/google/uuid"
)

// CreateEventInput is the payload for a new event
type CreateEventInput struct {
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	ImageURL     string         `json:"image_url"`
	Address      models.Address `json:"address"`
	StartsAt     *time.Time     `json:"starts_at"`
	InterestTags []string       `json:"interest_tags"`
}

// EventService handles events, announcements and comments
type EventService struct {
	store     repository.Store
	publisher Publisher
}

// NewEventService creates a new event service
func NewEventService(store repository.Store, publisher Publisher) *EventService {
	return &EventService{store: store, publisher: publisher}
}

// Create creates an event owned by creatorID
func (s *EventService) Create(ctx context.Context, creatorID string, in CreateEventInput) (*models.Event, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", models.ErrInvalidInput)
	}

	event := &models.Event{
		ID:           uuid.New().String(),
		CreatorID:    creatorID,
		Title:        in.Title,
		Description:  in.Description,
		ImageURL:     in.ImageURL,
		Address:      in.Address,
		StartsAt:     in.StartsAt,
		InterestTags: in.InterestTags,
		CreatedAt:    time.Now().UTC(),
	}
	if event.InterestTags == nil {
		event.InterestTags = []string{}
	}

	if err := s.store.Events().Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Get retrieves an event by id
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	return s.store.Events().GetByID(ctx, id)
}

// ListByCreator lists the events a user created
func (s *EventService) ListByCreator(ctx context.Context, creatorID string) ([]*models.Event, error) {
	return s.store.Events().ListByCreator(ctx, creatorID)
}

func (s *EventService) ownedEvent(ctx context.Context, actorID, id string) (*models.Event, error) {
	event, err := s.store.Events().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.CreatorID != actorID {
		return nil, fmt.Errorf("%w: only the event creator can do this", models.ErrForbidden)
	}
	return event, nil
}

// Update changes an event. Subscribers hear about it only when a field
// they care about changed.
func (s *EventService) Update(ctx context.Context, actorID, id string, update models.EventUpdate) (*models.Event, error) {
	if update.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", models.ErrInvalidInput)
	}
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", models.ErrInvalidInput)
	}
	if _, err := s.ownedEvent(ctx, actorID, id); err != nil {
		return nil, err
	}

	event, err := s.store.Events().Update(ctx, id, update)
	if err != nil {
		return nil, err
	}

	if update.Notifiable() {
		publish(ctx, s.publisher, models.Change{
			Kind:     models.ChangeEvent,
			EventID:  id,
			Category: models.CategoryUpdate,
			Event:    event,
		})
	}
	return event, nil
}

// PostAnnouncement adds an organizer announcement
func (s *EventService) PostAnnouncement(ctx context.Context, actorID, id, body string) (*models.Comment, error) {
	event, err := s.ownedEvent(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	return s.addComment(ctx, event, actorID, models.KindAnnouncement, body, models.CategoryAnnouncement)
}

// PostComment adds a participant comment
func (s *EventService) PostComment(ctx context.Context, actorID, id, body string) (*models.Comment, error) {
	event, err := s.store.Events().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.addComment(ctx, event, actorID, models.KindComment, body, models.CategoryComment)
}

func (s *EventService) addComment(ctx context.Context, event *models.Event, authorID string, kind models.CommentKind, body string, category models.Category) (*models.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: body is required", models.ErrInvalidInput)
	}

	comment := &models.Comment{
		ID:        uuid.New().String(),
		EventID:   event.ID,
		AuthorID:  authorID,
		Kind:      kind,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Events().AddComment(ctx, comment); err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, models.Change{
		Kind:     models.ChangeEvent,
		EventID:  event.ID,
		Category: category,
		Event:    event,
	})
	return comment, nil
}

// ListComments lists an event's comments or announcements
func (s *EventService) ListComments(ctx context.Context, id string, kind models.CommentKind) ([]*models.Comment, error) {
	switch kind {
	case models.KindComment, models.KindAnnouncement:
	default:
		return nil, fmt.Errorf("%w: unknown comment kind %q", models.ErrInvalidInput, kind)
	}
	return s.store.Events().ListComments(ctx, id, kind)
}
