package main

import (
	"context"
	"flag"
	"os"

	"solar_sdr_backend/internal/knowledge"
	"solar_sdr_backend/platform/ai/gemini"
	"solar_sdr_backend/platform/config"
	"solar_sdr_backend/platform/db"
	"solar_sdr_backend/platform/logger"
)

func main() {
	var batchSize int
	flag.IntVar(&batchSize, "batch", 50, "chunks to embed per batch")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	log := logger.New(cfg.Env)

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

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
		os.Exit(1)
	}

	svc := knowledge.NewService(knowledge.NewRepository(pool), ai, ai, cfg, log)

	count, err := svc.BackfillEmbeddings(ctx, batchSize)
	if err != nil {
		log.Error("embedding backfill failed", "error", err)
		os.Exit(1)
	}
	log.Info("embeddings backfilled", "chunks", count)
}
