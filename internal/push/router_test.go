package push

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"event-rsvp-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDriver struct {
	mu      sync.Mutex
	name    string
	sent    []string
	deleted []string
	block   bool
}

func (d *stubDriver) Name() string { return d.name }

func (d *stubDriver) Owns(handle string) bool { return strings.HasPrefix(handle, d.name+":") }

func (d *stubDriver) CreateEndpoint(_ context.Context, token string, _ models.Platform, _ string) (string, error) {
	return d.name + ":" + token, nil
}

func (d *stubDriver) RotateEndpointToken(context.Context, string, string) error { return nil }

func (d *stubDriver) DeleteEndpoint(_ context.Context, handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, handle)
	return nil
}

func (d *stubDriver) Send(ctx context.Context, handle string, _ Message) error {
	if d.block {
		<-ctx.Done()
		return ctx.Err()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, handle)
	return nil
}

func TestRouter_RoutesByPlatformAndHandle(t *testing.T) {
	mobile := &stubDriver{name: "mobile"}
	web := &stubDriver{name: "web"}

	r := NewRouter(time.Second)
	r.Register(models.PlatformIOS, mobile)
	r.Register(models.PlatformAndroid, mobile)
	r.Register(models.PlatformWeb, web)

	ios, err := r.CreateEndpoint(context.Background(), "t1", models.PlatformIOS, "u1")
	require.NoError(t, err)
	assert.Equal(t, "mobile:t1", ios)

	browser, err := r.CreateEndpoint(context.Background(), "t2", models.PlatformWeb, "u1")
	require.NoError(t, err)

	require.NoError(t, r.Send(context.Background(), ios, Message{Body: "x"}))
	require.NoError(t, r.Send(context.Background(), browser, Message{Body: "x"}))
	require.NoError(t, r.DeleteEndpoint(context.Background(), browser))

	assert.Equal(t, []string{"mobile:t1"}, mobile.sent)
	assert.Equal(t, []string{"web:t2"}, web.sent)
	assert.Equal(t, []string{"web:t2"}, web.deleted)
}

func TestRouter_UnknownHandle(t *testing.T) {
	r := NewRouter(time.Second)
	r.Register(models.PlatformIOS, &stubDriver{name: "mobile"})
	assert.True(t, r.Supports(models.PlatformIOS))
	assert.False(t, r.Supports(models.PlatformWeb))

	assert.ErrorIs(t, r.Send(context.Background(), "other:x", Message{}), ErrNoProvider)
	assert.ErrorIs(t, r.DeleteEndpoint(context.Background(), "other:x"), ErrNoProvider)
	assert.NoError(t, r.DeleteEndpoint(context.Background(), ""))

	_, err := r.CreateEndpoint(context.Background(), "t", models.PlatformWeb, "u1")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestRouter_SendTimeout(t *testing.T) {
	r := NewRouter(20 * time.Millisecond)
	r.Register(models.PlatformIOS, &stubDriver{name: "slow", block: true})

	start := time.Now()
	err := r.Send(context.Background(), "slow:x", Message{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), time.Second)
}
