// Package push talks to the external push endpoint providers. Providers hold
// no per-user state and are safe for concurrent use.
package push

import (
	"context"
	"errors"

	"event-rsvp-backend/internal/models"
)

var (
	// ErrUnsupported is returned when a provider cannot perform an operation
	ErrUnsupported = errors.New("operation not supported by provider")
	// ErrNoProvider is returned when no provider serves a platform or handle
	ErrNoProvider = errors.New("no push provider")
	// ErrEndpointGone is returned by Send when the provider reports the
	// endpoint no longer exists
	ErrEndpointGone = errors.New("push endpoint gone")
)

// Message is the notification content delivered to a device
type Message struct {
	Title string            `json:"title,omitempty"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Provider registers device tokens as endpoints and delivers messages to them
type Provider interface {
	// CreateEndpoint registers token and returns an opaque endpoint handle
	// tagged with ownerID
	CreateEndpoint(ctx context.Context, token string, platform models.Platform, ownerID string) (string, error)
	// RotateEndpointToken points an existing endpoint at a new token
	RotateEndpointToken(ctx context.Context, handle, token string) error
	// DeleteEndpoint removes an endpoint. Deleting a missing endpoint succeeds.
	DeleteEndpoint(ctx context.Context, handle string) error
	// Send delivers one message. It is never retried.
	Send(ctx context.Context, handle string, msg Message) error
}

// TokenChecker is implemented by providers that can reject a malformed
// device token locally, without a network call
type TokenChecker interface {
	CheckToken(platform models.Platform, token string) error
}

// Driver is a Provider that the Router can select by handle
type Driver interface {
	Provider
	Name() string
	Owns(handle string) bool
}
