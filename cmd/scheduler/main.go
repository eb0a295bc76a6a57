package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"solar_sdr_backend/internal/agent"
	"solar_sdr_backend/internal/analytics"
	"solar_sdr_backend/internal/calendar"
	"solar_sdr_backend/internal/followups"
	"solar_sdr_backend/internal/gateway"
	leadsrepo "solar_sdr_backend/internal/leads/repository"
	"solar_sdr_backend/internal/scheduler"
	"solar_sdr_backend/platform/config"
	"solar_sdr_backend/platform/db"
	"solar_sdr_backend/platform/events"
	"solar_sdr_backend/platform/logger"
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

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	analytics.NewSubscriber(analytics.NewRepository(pool), log).Register(eventBus)

	gw := gateway.NewClient(cfg, log)
	locks := agent.NewLeadLocks()
	sender := agent.NewSender(gw, locks, cfg, log)

	leads := leadsrepo.New(pool)
	followupRepo := followups.NewRepository(pool)
	followupSvc := followups.NewService(followupRepo, eventBus, log)

	quietStart, quietEnd := cfg.GetQuietHours()
	executor := followups.NewExecutor(followupRepo, leads, sender, eventBus, quietStart, quietEnd, log)

	calendarSvc := calendar.NewService(calendar.NewClient(cfg), calendar.NewRepository(pool),
		leads, sender, eventBus, cfg, log)

	dispatcher, err := scheduler.NewDispatcher(cfg, log)
	if err != nil {
		log.Error("failed to initialize dispatcher", "error", err)
		panic("failed to initialize dispatcher: " + err.Error())
	}
	defer dispatcher.Close()

	worker, err := scheduler.NewWorker(cfg, cfg, executor, calendarSvc, followupSvc, leads, eventBus, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	go dispatcher.Run(ctx)
	go func() {
		<-ctx.Done()
		log.Info("shutdown signal received, draining worker")
		worker.Shutdown()
	}()

	if err := worker.Run(); err != nil {
		log.Error("worker stopped", "error", err)
		panic("worker stopped: " + err.Error())
	}
}
