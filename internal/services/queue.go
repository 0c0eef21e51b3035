package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"event-rsvp-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrQueueFull is returned when the in-process queue has no free slot
var ErrQueueFull = errors.New("dispatch queue full")

// Publisher hands a change to the notification dispatcher
type Publisher interface {
	Publish(ctx context.Context, change models.Change) error
}

// Queue carries changes from publishers to dispatcher workers
type Queue interface {
	Publisher
	// Consume blocks until a change is available or ctx is done
	Consume(ctx context.Context) (models.Change, error)
}

// ChannelQueue is an in-process Queue
type ChannelQueue struct {
	ch chan models.Change
}

// NewChannelQueue creates a queue buffering up to size changes
func NewChannelQueue(size int) *ChannelQueue {
	return &ChannelQueue{ch: make(chan models.Change, size)}
}

// Publish never blocks; a full buffer rejects the change with ErrQueueFull
func (q *ChannelQueue) Publish(_ context.Context, change models.Change) error {
	select {
	case q.ch <- change:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *ChannelQueue) Consume(ctx context.Context) (models.Change, error) {
	select {
	case change := <-q.ch:
		return change, nil
	case <-ctx.Done():
		return models.Change{}, ctx.Err()
	}
}

// RedisQueue is a Queue backed by a Redis list, shared by every instance
type RedisQueue struct {
	client redis.UniversalClient
	key    string
	poll   time.Duration
}

// NewRedisQueue creates a queue on the list at key
func NewRedisQueue(client redis.UniversalClient, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key, poll: time.Second}
}

func (q *RedisQueue) Publish(ctx context.Context, change models.Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue change: %w", err)
	}
	return nil
}

func (q *RedisQueue) Consume(ctx context.Context) (models.Change, error) {
	for {
		if err := ctx.Err(); err != nil {
			return models.Change{}, err
		}

		res, err := q.client.BRPop(ctx, q.poll, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return models.Change{}, ctx.Err()
			}
			return models.Change{}, fmt.Errorf("failed to dequeue change: %w", err)
		}

		// res is [key, value]
		var change models.Change
		if err := json.Unmarshal([]byte(res[1]), &change); err != nil {
			return models.Change{}, fmt.Errorf("failed to decode change: %w", err)
		}
		return change, nil
	}
}
