package services

import (
	"context"
	"errors"
	"fmt"

	"event-rsvp-backend/internal/metrics"
	"event-rsvp-backend/internal/models"
	"event-rsvp-backend/internal/push"
	"event-rsvp-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// FanoutResult summarizes one notification fan-out
type FanoutResult struct {
	Eligible int `json:"eligible"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
}

// Notifier sends push notifications about event activity
type Notifier struct {
	store    repository.Store
	provider push.Provider
	live     LiveSender
}

// NewNotifier creates a notifier. live may be nil.
func NewNotifier(store repository.Store, provider push.Provider, live LiveSender) *Notifier {
	return &Notifier{store: store, provider: provider, live: live}
}

// changeMessage renders the notification for a category, naming the event
// when its title is known
func changeMessage(category models.Category, event *models.Event) push.Message {
	var title string
	if event != nil {
		title = event.Title
	}

	var body string
	switch category {
	case models.CategoryUpdate:
		body = "An event you have RSVPd to was recently updated, check out what has changed!"
		if title != "" {
			body = fmt.Sprintf("Event \"%s\" was recently updated, check out what has changed!", title)
		}
	case models.CategoryAnnouncement:
		body = "An official announcement has been posted for an event you are RSVPd to"
		if title != "" {
			body = fmt.Sprintf("An official announcement has been posted for the \"%s\" event!", title)
		}
	case models.CategoryComment:
		body = "A comment has been posted on an event you are RSVPd to"
		if title != "" {
			body = fmt.Sprintf("A comment has been posted on the \"%s\" event!", title)
		}
	}
	return push.Message{Title: title, Body: body}
}

// NotifyEventChange sends one message to every live subscriber of the event
// that opted in to category and has a deliverable device. A failed send is
// logged and does not stop the others.
func (n *Notifier) NotifyEventChange(ctx context.Context, eventID string, category models.Category, event *models.Event) (*FanoutResult, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", models.ErrInvalidInput, category)
	}

	if event == nil {
		loaded, err := n.store.Events().GetByID(ctx, eventID)
		if err != nil {
			log.Debug().Err(err).Str("event_id", eventID).Msg("Event not loaded, using generic message")
		} else {
			event = loaded
		}
	}

	rsvps, err := n.store.Rsvps().ListNotifiable(ctx, eventID, category)
	if err != nil {
		log.Error().Err(err).
			Str("subsystem", "store").
			Str("event_id", eventID).
			Str("category", string(category)).
			Msg("Failed to list subscribers")
		return nil, err
	}

	msg := changeMessage(category, event)
	msg.Data = map[string]string{"event_id": eventID, "category": string(category)}

	result := &FanoutResult{}
	for _, rsvp := range rsvps {
		if !rsvp.Device.Deliverable() || !rsvp.Preferences.Wants(category) {
			continue
		}
		result.Eligible++

		if err := n.provider.Send(ctx, rsvp.Device.EndpointHandle, msg); err != nil {
			result.Failed++
			log.Warn().Err(err).
				Str("subsystem", "provider").
				Str("rsvp_id", rsvp.ID).
				Str("user_id", rsvp.UserID).
				Bool("endpoint_gone", errors.Is(err, push.ErrEndpointGone)).
				Msg("Failed to send event notification")
		} else {
			result.Sent++
		}
		n.sendLive(rsvp.UserID, eventID, category, msg)
	}

	metrics.FanoutRecipients.WithLabelValues(string(category)).Observe(float64(result.Eligible))
	log.Info().
		Str("event_id", eventID).
		Str("category", string(category)).
		Int("eligible", result.Eligible).
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Msg("Event change fanned out")

	return result, nil
}

// NotifyEventCreatorOfRsvp tells the event creator that someone RSVPd. It
// reports whether a message was sent.
func (n *Notifier) NotifyEventCreatorOfRsvp(ctx context.Context, eventID, rsvpingUserID string) (bool, error) {
	event, err := n.store.Events().GetByID(ctx, eventID)
	if err != nil {
		return false, err
	}
	if event.CreatorID == rsvpingUserID {
		return false, nil
	}

	creator, err := n.store.Users().GetByID(ctx, event.CreatorID)
	if err != nil {
		return false, err
	}
	if !creator.Device.Deliverable() {
		return false, nil
	}

	name := "Someone"
	if attendee, err := n.store.Users().GetByID(ctx, rsvpingUserID); err == nil {
		name = attendee.FullName()
	}

	msg := push.Message{
		Title: event.Title,
		Body:  fmt.Sprintf("%s is going to \"%s\"!", name, event.Title),
		Data:  map[string]string{"event_id": eventID, "user_id": rsvpingUserID},
	}
	if event.Title == "" {
		msg.Body = fmt.Sprintf("%s RSVPd to your event!", name)
	}

	if err := n.provider.Send(ctx, creator.Device.EndpointHandle, msg); err != nil {
		log.Warn().Err(err).
			Str("subsystem", "provider").
			Str("event_id", eventID).
			Str("user_id", creator.ID).
			Msg("Failed to notify event creator")
		return false, nil
	}
	n.sendLive(creator.ID, eventID, "rsvp", msg)
	return true, nil
}

func (n *Notifier) sendLive(userID, eventID string, category models.Category, msg push.Message) {
	if n.live == nil || !n.live.IsOnline(userID) {
		return
	}
	err := n.live.SendToUser(userID, WSMessage{
		Type:     "notification",
		EventID:  eventID,
		Category: string(category),
		Title:    msg.Title,
		Message:  msg.Body,
		Data:     msg.Data,
	})
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("Live delivery failed")
	}
}
