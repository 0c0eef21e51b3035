package push

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"event-rsvp-backend/internal/models"

	"github.com/SherClockHolmes/webpush-go"
)

const webPushPrefix = "webpush:"

// WebPushProvider delivers to browser push subscriptions using VAPID. The
// device token of a web device is the subscription JSON the browser returns.
type WebPushProvider struct {
	publicKey  string
	privateKey string
	subscriber string
	ttl        int
	httpClient webpush.HTTPClient
}

// NewWebPushProvider creates a provider signing with the given VAPID keys
func NewWebPushProvider(publicKey, privateKey, subscriber string) *WebPushProvider {
	return &WebPushProvider{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		ttl:        60 * 60 * 24,
	}
}

func (p *WebPushProvider) Name() string { return "webpush" }

func (p *WebPushProvider) Owns(handle string) bool {
	return strings.HasPrefix(handle, webPushPrefix)
}

// CreateEndpoint validates the subscription and encodes it into the handle
func (p *WebPushProvider) CreateEndpoint(_ context.Context, subscription string, platform models.Platform, _ string) (string, error) {
	if platform != models.PlatformWeb {
		return "", fmt.Errorf("%w: webpush cannot serve platform %q", ErrNoProvider, platform)
	}
	if _, err := parseSubscription([]byte(subscription)); err != nil {
		return "", err
	}
	return webPushPrefix + base64.RawURLEncoding.EncodeToString([]byte(subscription)), nil
}

// CheckToken rejects subscriptions without an endpoint and keys
func (p *WebPushProvider) CheckToken(_ models.Platform, subscription string) error {
	_, err := parseSubscription([]byte(subscription))
	return err
}

// RotateEndpointToken is not possible because the handle is the subscription
func (p *WebPushProvider) RotateEndpointToken(context.Context, string, string) error {
	return ErrUnsupported
}

// DeleteEndpoint is a no-op; the browser owns the subscription
func (p *WebPushProvider) DeleteEndpoint(context.Context, string) error {
	return nil
}

func (p *WebPushProvider) Send(ctx context.Context, handle string, msg Message) error {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(handle, webPushPrefix))
	if err != nil {
		return fmt.Errorf("failed to decode webpush handle: %w", err)
	}
	sub, err := parseSubscription(raw)
	if err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal webpush payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, sub, &webpush.Options{
		HTTPClient:      p.httpClient,
		Subscriber:      p.subscriber,
		VAPIDPublicKey:  p.publicKey,
		VAPIDPrivateKey: p.privateKey,
		TTL:             p.ttl,
	})
	if err != nil {
		return fmt.Errorf("failed to send webpush: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: status %d", ErrEndpointGone, resp.StatusCode)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("webpush rejected notification: %d %s", resp.StatusCode, strings.TrimSpace(string(detail)))
}

func parseSubscription(raw []byte) (*webpush.Subscription, error) {
	var sub webpush.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("%w: malformed push subscription", models.ErrInvalidInput)
	}
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return nil, fmt.Errorf("%w: push subscription needs endpoint and keys", models.ErrInvalidInput)
	}
	return &sub, nil
}
