package push

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"event-rsvp-backend/internal/models"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

const apnsPrefix = "apns:"

type apnsPushFunc func(ctx context.Context, n *apns2.Notification) (*apns2.Response, error)

// APNSProvider delivers directly to Apple Push Notification service. APNs
// has no endpoint registry, so the handle wraps the device token.
type APNSProvider struct {
	push  apnsPushFunc
	topic string
}

// APNSConfig holds token-based APNs credentials
type APNSConfig struct {
	KeyFile    string
	KeyID      string
	TeamID     string
	Topic      string
	Production bool
}

// NewAPNSProvider creates a token-authenticated APNs client
func NewAPNSProvider(cfg APNSConfig) (*APNSProvider, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load apns auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return newAPNSProvider(func(ctx context.Context, n *apns2.Notification) (*apns2.Response, error) {
		return client.PushWithContext(ctx, n)
	}, cfg.Topic), nil
}

func newAPNSProvider(push apnsPushFunc, topic string) *APNSProvider {
	return &APNSProvider{push: push, topic: topic}
}

func (p *APNSProvider) Name() string { return "apns" }

func (p *APNSProvider) Owns(handle string) bool {
	return strings.HasPrefix(handle, apnsPrefix)
}

// CreateEndpoint wraps the token. Only iOS tokens are accepted.
func (p *APNSProvider) CreateEndpoint(_ context.Context, deviceToken string, platform models.Platform, _ string) (string, error) {
	if platform != models.PlatformIOS {
		return "", fmt.Errorf("%w: apns cannot serve platform %q", ErrNoProvider, platform)
	}
	if deviceToken == "" {
		return "", fmt.Errorf("%w: empty device token", models.ErrInvalidInput)
	}
	return apnsPrefix + deviceToken, nil
}

// RotateEndpointToken is not possible because the handle is the token itself
func (p *APNSProvider) RotateEndpointToken(context.Context, string, string) error {
	return ErrUnsupported
}

// DeleteEndpoint has nothing to remove on the APNs side
func (p *APNSProvider) DeleteEndpoint(context.Context, string) error {
	return nil
}

func (p *APNSProvider) Send(ctx context.Context, handle string, msg Message) error {
	pl := payload.NewPayload().AlertTitle(msg.Title).AlertBody(msg.Body).Sound("default")
	for k, v := range msg.Data {
		pl.Custom(k, v)
	}

	res, err := p.push(ctx, &apns2.Notification{
		DeviceToken: strings.TrimPrefix(handle, apnsPrefix),
		Topic:       p.topic,
		Payload:     pl,
	})
	if err != nil {
		return fmt.Errorf("failed to push to apns: %w", err)
	}
	if res.Sent() {
		return nil
	}

	if res.StatusCode == http.StatusGone ||
		res.Reason == apns2.ReasonBadDeviceToken ||
		res.Reason == apns2.ReasonUnregistered {
		return fmt.Errorf("%w: %s", ErrEndpointGone, res.Reason)
	}
	return fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason)
}
