package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"activation_backend/internal/activation"
	"activation_backend/internal/adapters"
	"activation_backend/internal/controltower"
	"activation_backend/internal/email"
	"activation_backend/internal/events"
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

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

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

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		panic("failed to initialize reminder scheduler client: " + err.Error())
	}
	defer func() { _ = reminderClient.Close() }()

	// Worker-side activation wiring (no HTTP handlers required).
	leadRepo := leadrepo.New(pool)
	identityModule := identity.NewModule(pool)
	activationModule := activation.NewModule(
		pool,
		adapters.NewActivationProfileReader(identityModule.Service()),
		adapters.NewActivationLeadReader(leadRepo),
		eventBus,
		validator.New(),
		cfg,
		log,
	)

	outboxRepo := outbox.New(pool)

	notificationModule := notification.New(sender, cfg, log)
	notificationModule.SetMeetingTracker(activationModule.Service)
	notificationModule.SetLeadReader(leadRepo)
	notificationModule.SetReminderScheduler(reminderClient)
	notificationModule.SetNotificationOutbox(outboxRepo)
	if smsClient := sms.NewClient(cfg, log); smsClient != nil {
		notificationModule.SetSMSSender(smsClient)
	}
	if towerClient != nil {
		notificationModule.SetTowerSyncer(towerClient)
	}
	notificationModule.RegisterHandlers(eventBus)

	dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, outboxRepo, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	followupSweep, err := scheduler.NewFollowupSweep(cfg, activationModule.Service, log)
	if err != nil {
		log.Error("failed to initialize followup sweep", "error", err)
		panic("failed to initialize followup sweep: " + err.Error())
	}
	go followupSweep.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
