package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"solar_sdr_backend/internal/agent"
	"solar_sdr_backend/internal/analytics"
	"solar_sdr_backend/internal/calendar"
	"solar_sdr_backend/internal/crm"
	"solar_sdr_backend/internal/followups"
	"solar_sdr_backend/internal/gateway"
	"solar_sdr_backend/internal/http/router"
	"solar_sdr_backend/internal/knowledge"
	leadsrepo "solar_sdr_backend/internal/leads/repository"
	"solar_sdr_backend/internal/media"
	"solar_sdr_backend/internal/qualification"
	"solar_sdr_backend/internal/webhook"
	"solar_sdr_backend/platform/ai/gemini"
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
	log.Info("starting api", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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

	eventBus := events.NewInMemoryBus(log)

	ai, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:         cfg.GetModelAPIKey(),
		PrimaryModel:   cfg.GetModelPrimaryID(),
		FallbackModel:  cfg.GetModelFallbackID(),
		EmbeddingModel: cfg.GetEmbeddingModelID(),
		EmbeddingDim:   cfg.GetEmbeddingDim(),
		Timeout:        cfg.GetModelTimeout(),
		RetryMax:       cfg.GetRetryMax(),
	})
	if err != nil {
		log.Error("failed to initialize model client", "error", err)
		panic("failed to initialize model client: " + err.Error())
	}

	gw := gateway.NewClient(cfg, log)

	store, err := media.NewStore(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize media store", "error", err)
		panic("failed to initialize media store: " + err.Error())
	}
	pipeline := media.NewPipeline(gw, ai, store, log)

	leads := leadsrepo.New(pool)
	knowledgeSvc := knowledge.NewService(knowledge.NewRepository(pool), ai, ai, cfg, log)

	machine := qualification.NewMachine(cfg)
	scorer := qualification.NewScorer(qualification.DefaultWeights(),
		cfg.GetMinBillThreshold(), cfg.GetCompetitorDiscountThreshold(), cfg.GetHotScoreMin())

	crmSvc := crm.NewService(crm.NewClient(cfg, log), leads, eventBus, cfg.GetCRMPipelineID(), log)

	followupSvc := followups.NewService(followups.NewRepository(pool), eventBus, log)

	locks := agent.NewLeadLocks()
	sender := agent.NewSender(gw, locks, cfg, log)

	calendarSvc := calendar.NewService(calendar.NewClient(cfg), calendar.NewRepository(pool),
		leads, sender, eventBus, cfg, log)

	calendarAgent, err := agent.NewCalendarAgent(ai, calendarSvc, log)
	if err != nil {
		log.Error("failed to initialize calendar agent", "error", err)
		panic("failed to initialize calendar agent: " + err.Error())
	}

	orchestrator, err := agent.NewOrchestrator(agent.OrchestratorDeps{
		Repo:          leads,
		Pipeline:      pipeline,
		Knowledge:     knowledgeSvc,
		AI:            ai,
		Bus:           eventBus,
		Sender:        sender,
		Locks:         locks,
		QualAgent:     agent.NewQualificationAgent(machine, scorer),
		KnowAgent:     agent.NewKnowledgeAgent(knowledgeSvc),
		BillAgent:     agent.NewBillAgent(ai, log),
		CalendarAgent: calendarAgent,
		CRMAgent:      agent.NewCRMAgent(crmSvc),
		FollowUpAgent: agent.NewFollowUpAgent(followupSvc, leads),
		FollowupSvc:   followupSvc,
		Logger:        log,
	}, cfg, cfg)
	if err != nil {
		log.Error("failed to initialize orchestrator", "error", err)
		panic("failed to initialize orchestrator: " + err.Error())
	}

	analyticsRepo := analytics.NewRepository(pool)
	analytics.NewSubscriber(analyticsRepo, log).Register(eventBus)

	engine := router.New(cfg, router.Deps{
		Pool:      pool,
		Leads:     leads,
		Analytics: analyticsRepo,
		FollowUps: followupSvc,
		Webhook:   webhook.NewHandler(orchestrator, log),
		Logger:    log,
	})

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
	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, lastErr)
}
