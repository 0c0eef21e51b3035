package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-rsvp-backend/internal/metrics"
	"event-rsvp-backend/internal/models"
)

// Router picks a Driver by platform when creating endpoints and by handle
// for every other call. Each call is bounded by the router timeout.
type Router struct {
	timeout   time.Duration
	platforms map[models.Platform]Driver
	drivers   []Driver
}

// NewRouter creates an empty router
func NewRouter(timeout time.Duration) *Router {
	return &Router{
		timeout:   timeout,
		platforms: make(map[models.Platform]Driver),
	}
}

// Register routes new endpoints for platform to d
func (r *Router) Register(platform models.Platform, d Driver) {
	r.platforms[platform] = d
	for _, existing := range r.drivers {
		if existing == d {
			return
		}
	}
	r.drivers = append(r.drivers, d)
}

// Supports reports whether a driver is registered for platform
func (r *Router) Supports(platform models.Platform) bool {
	_, ok := r.platforms[platform]
	return ok
}

// CheckToken runs the platform driver's local token check, if it has one
func (r *Router) CheckToken(platform models.Platform, token string) error {
	d, ok := r.platforms[platform]
	if !ok {
		return nil
	}
	if checker, ok := d.(TokenChecker); ok {
		return checker.CheckToken(platform, token)
	}
	return nil
}

func (r *Router) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Router) byHandle(handle string) (Driver, error) {
	for _, d := range r.drivers {
		if d.Owns(handle) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: unrecognised endpoint handle", ErrNoProvider)
}

func (r *Router) CreateEndpoint(ctx context.Context, token string, platform models.Platform, ownerID string) (string, error) {
	d, ok := r.platforms[platform]
	if !ok {
		return "", fmt.Errorf("%w: platform %q", ErrNoProvider, platform)
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()
	return d.CreateEndpoint(ctx, token, platform, ownerID)
}

func (r *Router) RotateEndpointToken(ctx context.Context, handle, token string) error {
	d, err := r.byHandle(handle)
	if err != nil {
		return err
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()
	return d.RotateEndpointToken(ctx, handle, token)
}

func (r *Router) DeleteEndpoint(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	d, err := r.byHandle(handle)
	if err != nil {
		return err
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()
	return d.DeleteEndpoint(ctx, handle)
}

func (r *Router) Send(ctx context.Context, handle string, msg Message) error {
	d, err := r.byHandle(handle)
	if err != nil {
		return err
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()

	err = d.Send(ctx, handle, msg)
	result := metrics.ResultSent
	if err != nil {
		result = metrics.ResultFailed
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%s send timed out: %w", d.Name(), err)
		}
	}
	metrics.PushSends.WithLabelValues(d.Name(), result).Inc()
	return err
}
