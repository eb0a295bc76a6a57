package main

import (
	"context"
	"flag"
	"os"

	"solar_sdr_backend/internal/followups"
	leadsrepo "solar_sdr_backend/internal/leads/repository"
	"solar_sdr_backend/platform/config"
	"solar_sdr_backend/platform/db"
	"solar_sdr_backend/platform/events"
	"solar_sdr_backend/platform/logger"
	"solar_sdr_backend/platform/phone"
)

func main() {
	var rawPhone, reason string
	flag.StringVar(&rawPhone, "phone", "", "lead phone number (E.164 or local)")
	flag.StringVar(&reason, "reason", "operator_request", "cancellation reason recorded in analytics")
	flag.Parse()

	if rawPhone == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	log := logger.New(cfg.Env)

	normalized := phone.NormalizeE164(rawPhone)
	if normalized == "" {
		log.Error("invalid phone number", "phone", rawPhone)
		os.Exit(2)
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	leads := leadsrepo.New(pool)
	lead, err := leads.GetLeadByPhone(ctx, pool, normalized)
	if err != nil {
		log.Error("lead lookup failed", "phone", normalized, "error", err)
		os.Exit(1)
	}

	svc := followups.NewService(followups.NewRepository(pool), events.NewInMemoryBus(log), log)
	count, err := svc.CancelAllForLead(ctx, lead.ID, reason)
	if err != nil {
		log.Error("cancellation failed", "phone", normalized, "error", err)
		os.Exit(1)
	}

	log.Info("follow-ups canceled", "phone", normalized, "count", count)
}
