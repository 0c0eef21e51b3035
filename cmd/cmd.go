package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"event-rsvp-backend/internal/config"
	"event-rsvp-backend/internal/handlers"
	"event-rsvp-backend/internal/metrics"
	"event-rsvp-backend/internal/middleware"
	"event-rsvp-backend/internal/models"
	"event-rsvp-backend/internal/push"
	"event-rsvp-backend/internal/repository"
	"event-rsvp-backend/internal/services"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// changeQueue is satisfied by both the in-process and the Redis queue
type changeQueue interface {
	services.Publisher
	services.Queue
}

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Log.Level, cfg.Log.Format)

	// Background work stops when ctx is cancelled during shutdown
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to database
	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	if cfg.Database.Migrate {
		if err := repository.RunMigrations(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		log.Info().Msg("Database migrations applied")
	}

	store := repository.NewPostgresStore(db)

	awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS configuration")
	}

	pushRouter, err := newPushRouter(cfg.Push, awsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure push providers")
	}

	// Locks and the change queue are shared through Redis when it is
	// configured, so several instances can run side by side
	var (
		locker services.Locker
		queue  changeQueue
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping redis")
		}
		locker = services.NewRedisLocker(rdb, cfg.Sync.LockTTL)
		queue = services.NewRedisQueue(rdb, cfg.Dispatch.QueueKey)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using redis for locks and dispatch")
	} else {
		locker = services.NewKeyedMutex()
		queue = services.NewChannelQueue(cfg.Dispatch.QueueSize)
	}

	// Initialize services
	wsHub := services.NewWSHub()
	userService := services.NewUserService(store, cfg.JWT.Secret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	deviceSync := services.NewDeviceSyncService(store, pushRouter, locker, cfg.Sync.LockWait)
	eventService := services.NewEventService(store, queue)
	rsvpService := services.NewRsvpService(store, locker, cfg.Sync.LockWait, queue)
	mediaService := services.NewMediaService(store, awsCfg, cfg.AWS.S3Bucket, cfg.AWS.Endpoint)
	notifier := services.NewNotifier(store, pushRouter, wsHub)
	dispatcher := services.NewDispatcher(queue, notifier, cfg.Dispatch.Workers, cfg.Dispatch.Timeout)

	go dispatcher.Run(ctx)
	go deviceSync.RunSweeper(ctx, cfg.Sync.SweepInterval, cfg.Sync.SweepBatchSize)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService, deviceSync)
	eventHandler := handlers.NewEventHandler(eventService, mediaService)
	rsvpHandler := handlers.NewRsvpHandler(rsvpService)
	adminHandler := handlers.NewAdminHandler(deviceSync, cfg.Sync.SweepBatchSize)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService)

	// Setup router
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", handlers.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)
		r.Post("/auth/login", userHandler.Login)
		r.Post("/auth/refresh", userHandler.Refresh)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))

			r.Get("/users/{id}", userHandler.GetUser)
			r.Put("/users/{id}", userHandler.UpdateUser)
			r.Put("/users/{id}/device", userHandler.SyncDevice)
			r.Get("/users/{id}/rsvps", rsvpHandler.ListForUser)

			r.Post("/events", eventHandler.CreateEvent)
			r.Get("/events/created/{userId}", eventHandler.ListCreated)
			r.Get("/events/{id}", eventHandler.GetEvent)
			r.Put("/events/{id}", eventHandler.UpdateEvent)
			r.Put("/events/{id}/announcements", eventHandler.PostAnnouncement)
			r.Put("/events/{id}/comments", eventHandler.PostComment)
			r.Get("/events/{id}/comments", eventHandler.ListComments)
			r.Post("/events/{id}/image", eventHandler.UploadImage)
			r.Get("/events/{id}/rsvps", rsvpHandler.ListForEvent)

			r.Post("/rsvps", rsvpHandler.CreateRsvp)
			r.Get("/rsvps/{id}", rsvpHandler.GetRsvp)
			r.Put("/rsvps/{id}/notifications", rsvpHandler.UpdateNotifications)
			r.Delete("/rsvps/{id}", rsvpHandler.CancelRsvp)

			r.With(middleware.RequireUsers(cfg.Admin.UserIDs)).Post("/admin/reconcile", adminHandler.Reconcile)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stop()
	wsHub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// loadAWSConfig resolves credentials from the environment chain unless
// static keys are configured
func loadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// newPushRouter registers a driver for every platform that has credentials.
// Platforms left without one fail device sync with push.ErrNoProvider.
func newPushRouter(cfg config.PushConfig, awsCfg aws.Config) (*push.Router, error) {
	router := push.NewRouter(cfg.Timeout)

	apps := map[models.Platform]string{}
	if cfg.SNSAppleARN != "" && cfg.IOSDriver == "sns" {
		apps[models.PlatformIOS] = cfg.SNSAppleARN
	}
	if cfg.SNSAndroidARN != "" {
		apps[models.PlatformAndroid] = cfg.SNSAndroidARN
	}
	if len(apps) > 0 {
		snsProvider := push.NewSNSProvider(push.NewSNSClient(awsCfg), apps)
		for platform := range apps {
			router.Register(platform, snsProvider)
		}
	}

	if cfg.IOSDriver == "apns" {
		apnsProvider, err := push.NewAPNSProvider(push.APNSConfig{
			KeyFile:    cfg.APNSKeyFile,
			KeyID:      cfg.APNSKeyID,
			TeamID:     cfg.APNSTeamID,
			Topic:      cfg.APNSTopic,
			Production: cfg.APNSProduction,
		})
		if err != nil {
			return nil, err
		}
		router.Register(models.PlatformIOS, apnsProvider)
	}

	if cfg.VAPIDPublic != "" && cfg.VAPIDPrivate != "" {
		router.Register(models.PlatformWeb, push.NewWebPushProvider(cfg.VAPIDPublic, cfg.VAPIDPrivate, cfg.VAPIDSubject))
	}

	for _, platform := range []models.Platform{models.PlatformIOS, models.PlatformAndroid, models.PlatformWeb} {
		if !router.Supports(platform) {
			log.Warn().Str("platform", string(platform)).Msg("No push provider configured")
		}
	}
	return router, nil
}

// setupLogger configures zerolog logger
func setupLogger(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
