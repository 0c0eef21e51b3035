package services

import (
	"context"
	"fmt"
	"time"

	"event-rsvp-backend/internal/metrics"
	"event-rsvp-backend/internal/models"
	"event-rsvp-backend/internal/push"
	"event-rsvp-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// SyncResult is the outcome of a device sync
type SyncResult struct {
	User         *models.User `json:"user"`
	RsvpsTouched int64        `json:"rsvps_touched"`
}

// DeviceSyncService keeps a user's push endpoint and the device mirror on
// their RSVPs consistent. Syncs for one user are serialized by the locker.
type DeviceSyncService struct {
	store    repository.Store
	provider push.Provider
	locker   Locker
	lockWait time.Duration
}

// NewDeviceSyncService creates a device sync coordinator
func NewDeviceSyncService(store repository.Store, provider push.Provider, locker Locker, lockWait time.Duration) *DeviceSyncService {
	return &DeviceSyncService{
		store:    store,
		provider: provider,
		locker:   locker,
		lockWait: lockWait,
	}
}

func userLockKey(userID string) string {
	return "user:" + userID
}

// lockUser acquires the per-user lock, waiting at most lockWait
func lockUser(ctx context.Context, locker Locker, wait time.Duration, userID string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	return locker.Lock(lockCtx, userLockKey(userID))
}

// SyncDeviceStats reconciles the user's registration with the claim and
// mirrors the result onto every live RSVP the user owns
func (s *DeviceSyncService) SyncDeviceStats(ctx context.Context, userID string, claim models.DeviceClaim) (*SyncResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", models.ErrInvalidInput)
	}
	if err := claim.Validate(); err != nil {
		return nil, err
	}
	if checker, ok := s.provider.(push.TokenChecker); ok && !claim.Empty() {
		if err := checker.CheckToken(claim.Platform, claim.Token); err != nil {
			return nil, err
		}
	}

	unlock, err := lockUser(ctx, s.locker, s.lockWait, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	current := user.Device
	if claim.Matches(current) && (current.EndpointHandle != "" || claim.Empty()) {
		metrics.DeviceSyncs.WithLabelValues(metrics.OutcomeNoop).Inc()
		return &SyncResult{User: user}, nil
	}

	logger := log.With().Str("user_id", userID).Logger()

	if current.EndpointHandle != "" {
		if err := s.provider.DeleteEndpoint(ctx, current.EndpointHandle); err != nil {
			logger.Warn().Err(err).
				Str("subsystem", "provider").
				Str("handle", current.EndpointHandle).
				Msg("Failed to delete old push endpoint")
		}
	}

	var handle string
	if !claim.Empty() {
		handle, err = s.provider.CreateEndpoint(ctx, claim.Token, claim.Platform, userID)
		if err != nil {
			logger.Warn().Err(err).
				Str("subsystem", "provider").
				Str("platform", string(claim.Platform)).
				Msg("Failed to create push endpoint, device stored without one")
			handle = ""
		}
	}

	next := models.Device{
		Token:          claim.Token,
		Platform:       claim.Platform,
		EndpointHandle: handle,
	}

	var result SyncResult
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		updated, err := tx.Users().UpdateDevice(ctx, userID, user.DeviceRevision, next)
		if err != nil {
			return err
		}
		touched, err := tx.Rsvps().SyncDevice(ctx, userID, next)
		if err != nil {
			return err
		}
		result = SyncResult{User: updated, RsvpsTouched: touched}
		return nil
	})
	if err != nil {
		metrics.DeviceSyncs.WithLabelValues(metrics.OutcomeFailed).Inc()
		logger.Error().Err(err).Str("subsystem", "store").Msg("Device sync rolled back")

		if handle != "" {
			if derr := s.provider.DeleteEndpoint(context.WithoutCancel(ctx), handle); derr != nil {
				logger.Warn().Err(derr).
					Str("subsystem", "provider").
					Str("handle", handle).
					Msg("Failed to clean up endpoint after rollback")
			}
		}
		return nil, fmt.Errorf("failed to sync device: %w", err)
	}

	metrics.DeviceSyncs.WithLabelValues(metrics.OutcomeSynced).Inc()
	metrics.RsvpsSynced.Add(float64(result.RsvpsTouched))
	logger.Info().
		Str("platform", string(next.Platform)).
		Bool("deliverable", next.Deliverable()).
		Int64("rsvps_touched", result.RsvpsTouched).
		Msg("Device synced")

	return &result, nil
}

// ReconcileResult summarizes one reconciliation sweep
type ReconcileResult struct {
	Users        int   `json:"users"`
	RsvpsTouched int64 `json:"rsvps_touched"`
	Failed       int   `json:"failed"`
}

// Reconcile rewrites RSVP mirrors that drifted from their owner's device.
// It never calls the provider and is safe to run repeatedly.
func (s *DeviceSyncService) Reconcile(ctx context.Context, batchSize int) (*ReconcileResult, error) {
	owners, err := s.store.Rsvps().ListDivergentOwners(ctx, batchSize)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{}
	for _, userID := range owners {
		touched, err := s.reconcileUser(ctx, userID)
		if err != nil {
			result.Failed++
			log.Error().Err(err).
				Str("subsystem", "store").
				Str("user_id", userID).
				Msg("Failed to reconcile rsvp mirrors")
			continue
		}
		result.Users++
		result.RsvpsTouched += touched
	}

	metrics.RsvpsSynced.Add(float64(result.RsvpsTouched))
	if len(owners) > 0 {
		log.Info().
			Int("users", result.Users).
			Int("failed", result.Failed).
			Int64("rsvps_touched", result.RsvpsTouched).
			Msg("Reconciliation sweep finished")
	}
	return result, nil
}

func (s *DeviceSyncService) reconcileUser(ctx context.Context, userID string) (int64, error) {
	unlock, err := lockUser(ctx, s.locker, s.lockWait, userID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	var touched int64
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		n, err := tx.Rsvps().SyncDevice(ctx, userID, user.Device)
		touched = n
		return err
	})
	return touched, err
}

// RunSweeper reconciles every interval until ctx is cancelled
func (s *DeviceSyncService) RunSweeper(ctx context.Context, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Reconcile(ctx, batchSize); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Str("subsystem", "store").Msg("Reconciliation sweep failed")
			}
		}
	}
}
