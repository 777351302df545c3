package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"activation_backend/internal/activation"
	"activation_backend/internal/adapters"
	"activation_backend/internal/adapters/storage"
	"activation_backend/internal/controltower"
	"activation_backend/internal/email"
	"activation_backend/internal/events"
	apphttp "activation_backend/internal/http"
	"activation_backend/internal/http/router"
	"activation_backend/internal/identity"
	leadrepo "activation_backend/internal/leads/repository"
	"activation_backend/internal/notification"
	"activation_backend/internal/notification/outbox"
	"activation_backend/internal/scheduler"
	"activation_backend/internal/sms"
	"activation_backend/platform/config"
	"activation_backend/platform/db"
	"activation_backend/platform/logger"
	"activation_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if cfg.MigrationsEnabled {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, cfg)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	towerClient, err := controltower.NewClient(cfg, log)
	if err != nil {
		log.Error("failed to initialize control tower client", "error", err)
		panic("failed to initialize control tower client: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	identityModule := identity.NewModule(pool)
	leadRepo := leadrepo.New(pool)

	// Anti-Corruption Layer: activation only sees its own reader interfaces
	profileReader := adapters.NewActivationProfileReader(identityModule.Service())
	leadReader := adapters.NewActivationLeadReader(leadRepo)
	activationModule := activation.NewModule(pool, profileReader, leadReader, eventBus, val, cfg, log)

	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure meeting attachments bucket", 5, 2*time.Second, func() error {
			return storageSvc.EnsureBucketExists(ctx)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketMeetingAttachments())
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		activationModule.SetStorage(storageSvc)
		log.Info("storage service initialized", "meetingAttachmentsBucket", cfg.GetMinioBucketMeetingAttachments())
	} else {
		log.Warn("MinIO not configured; meeting attachments disabled")
	}

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(sender, cfg, log)
	notificationModule.SetMeetingTracker(activationModule.Service)
	notificationModule.SetLeadReader(leadRepo)
	if smsClient := sms.NewClient(cfg, log); smsClient != nil {
		notificationModule.SetSMSSender(smsClient)
	}
	if towerClient != nil {
		notificationModule.SetTowerSyncer(towerClient)
	}
	if reminderScheduler != nil {
		notificationModule.SetReminderScheduler(reminderScheduler)
		// Outbox rows are delivered by the scheduler process.
		notificationModule.SetNotificationOutbox(outbox.New(pool))
	}
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolHealth(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			identityModule,
			activationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initReminderScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; meeting reminders disabled and control tower sync is sent directly")
		return nil, nil
	}

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return reminderClient, func() {
		_ = reminderClient.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
