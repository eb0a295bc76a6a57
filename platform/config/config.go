// Package config provides application configuration loading.
// Configuration is environment-first with a .env file fallback.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"solar_sdr_backend/platform/validator"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// GatewayConfig provides settings for the WhatsApp bridge gateway.
type GatewayConfig interface {
	GetGatewayURL() string
	GetGatewayAPIKey() string
	GetGatewayInstance() string
	GetGatewayWebhookToken() string
}

// ModelConfig provides settings for the language model provider.
type ModelConfig interface {
	GetModelAPIKey() string
	GetModelPrimaryID() string
	GetModelFallbackID() string
	GetEmbeddingModelID() string
	GetEmbeddingDim() int
	GetModelTimeout() time.Duration
	GetRetryMax() int
}

// KnowledgeConfig provides settings for the knowledge store.
type KnowledgeConfig interface {
	GetKnowledgeTopK() int
	GetHybridAlpha() float64
	GetKnowledgeMinScore() float64
}

// OrchestratorConfig provides settings for the conversation orchestrator.
type OrchestratorConfig interface {
	GetTypingMaxMS() int
	GetSendCeiling() time.Duration
	GetTurnBudget() time.Duration
	GetSessionMaxTurns() int
	GetHistoryLimit() int
	GetPersonaPromptPath() string
}

// QualificationConfig provides settings for the qualification state machine.
type QualificationConfig interface {
	GetMinBillThreshold() float64
	GetHotScoreMin() int
	GetCompetitorDiscountThreshold() float64
	GetAbandonAfter() time.Duration
}

// SchedulerConfig provides settings for the background loops.
type SchedulerConfig interface {
	GetRedisURL() string
	GetFollowupTick() time.Duration
	GetReminderTick() time.Duration
	GetCalendarSyncTick() time.Duration
	GetQuietHours() (start, end int)
	GetAsynqConcurrency() int
}

// CRMConfig provides settings for the external CRM adapter.
type CRMConfig interface {
	GetCRMURL() string
	GetCRMAPIKey() string
	GetCRMPipelineID() string
	GetCircuitFails() int
	GetCircuitCooldown() time.Duration
	GetRetryMax() int
}

// CalendarConfig provides settings for the external calendar provider.
type CalendarConfig interface {
	GetCalendarURL() string
	GetCalendarToken() string
	GetCalendarID() string
	GetMissedMeetingPolicy() string
	GetMeetingDuration() time.Duration
}

// StorageConfig provides settings for MinIO media artifact storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketMedia() string
	IsMinIOEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string
	RedisURL    string

	CORSAllowAll bool
	CORSOrigins  []string

	GatewayURL          string
	GatewayAPIKey       string
	GatewayInstance     string
	GatewayWebhookToken string

	ModelAPIKey      string
	ModelPrimaryID   string
	ModelFallbackID  string
	EmbeddingModelID string
	EmbeddingDim     int
	ModelTimeout     time.Duration
	RetryMax         int

	KnowledgeTopK     int
	HybridAlpha       float64
	KnowledgeMinScore float64

	TypingMaxMS       int
	SendCeiling       time.Duration
	TurnBudget        time.Duration
	SessionMaxTurns   int
	HistoryLimit      int
	PersonaPromptPath string

	MinBillThreshold            float64
	HotScoreMin                 int
	CompetitorDiscountThreshold float64
	AbandonAfter                time.Duration

	FollowupTick     time.Duration
	ReminderTick     time.Duration
	CalendarSyncTick time.Duration
	QuietHoursStart  int
	QuietHoursEnd    int
	AsynqConcurrency int

	CRMURL          string
	CRMAPIKey       string
	CRMPipelineID   string
	CircuitFails    int
	CircuitCooldown time.Duration

	CalendarURL         string
	CalendarToken       string
	CalendarID          string
	MissedMeetingPolicy string
	MeetingDuration     time.Duration

	MinIOEndpoint    string
	MinIOAccessKey   string
	MinIOSecretKey   string
	MinIOUseSSL      bool
	MinioBucketMedia string
	MinIOEnabled     bool
}

// Load reads configuration from the environment, falling back to .env.
// Validation failures are fatal: they are returned only at startup.
func Load() (*Config, error) {
	_ = godotenv.Load()

	quietStart, quietEnd, err := parseQuietHours(getEnv("QUIET_HOURS", "20:00-08:00"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUIET_HOURS: %w", err)
	}

	minioEndpoint := getEnv("MINIO_ENDPOINT", "")

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		CORSAllowAll: strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "")),

		GatewayURL:          getEnv("GATEWAY_URL", ""),
		GatewayAPIKey:       getEnv("GATEWAY_API_KEY", ""),
		GatewayInstance:     getEnv("GATEWAY_INSTANCE", "main"),
		GatewayWebhookToken: getEnv("GATEWAY_WEBHOOK_TOKEN", ""),

		ModelAPIKey:      getEnv("GEMINI_API_KEY", ""),
		ModelPrimaryID:   getEnv("MODEL_PRIMARY_ID", "gemini-2.0-flash"),
		ModelFallbackID:  getEnv("MODEL_FALLBACK_ID", "gemini-1.5-flash"),
		EmbeddingModelID: getEnv("EMBEDDING_MODEL_ID", "text-embedding-004"),
		EmbeddingDim:     getIntEnv("EMBEDDING_DIM", 768),
		ModelTimeout:     getDurationEnv("MODEL_TIMEOUT", 20*time.Second),
		RetryMax:         getIntEnv("RETRY_MAX", 3),

		KnowledgeTopK:     getIntEnv("KNOWLEDGE_TOPK", 5),
		HybridAlpha:       getFloatEnv("HYBRID_ALPHA", 0.6),
		KnowledgeMinScore: getFloatEnv("KNOWLEDGE_MIN_SCORE", 0.35),

		TypingMaxMS:       getIntEnv("TYPING_MAX_MS", 5000),
		SendCeiling:       getDurationEnv("SEND_CEILING", 12*time.Second),
		TurnBudget:        getDurationEnv("TURN_BUDGET", 45*time.Second),
		SessionMaxTurns:   getIntEnv("SESSION_MAX_TURNS", 20),
		HistoryLimit:      getIntEnv("HISTORY_LIMIT", 100),
		PersonaPromptPath: getEnv("PERSONA_PROMPT_PATH", ""),

		MinBillThreshold:            getFloatEnv("MIN_BILL_THRESHOLD", 300),
		HotScoreMin:                 getIntEnv("HOT_SCORE_MIN", 80),
		CompetitorDiscountThreshold: getFloatEnv("COMPETITOR_DISCOUNT_THRESHOLD", 15),
		AbandonAfter:                getDurationEnv("ABANDON_AFTER", 72*time.Hour),

		FollowupTick:     time.Duration(getIntEnv("FOLLOWUP_TICK_SEC", 60)) * time.Second,
		ReminderTick:     time.Duration(getIntEnv("REMINDER_TICK_SEC", 60)) * time.Second,
		CalendarSyncTick: time.Duration(getIntEnv("CALENDAR_SYNC_SEC", 300)) * time.Second,
		QuietHoursStart:  quietStart,
		QuietHoursEnd:    quietEnd,
		AsynqConcurrency: getIntEnv("ASYNQ_CONCURRENCY", 10),

		CRMURL:          getEnv("CRM_URL", ""),
		CRMAPIKey:       getEnv("CRM_API_KEY", ""),
		CRMPipelineID:   getEnv("CRM_PIPELINE_ID", ""),
		CircuitFails:    getIntEnv("CIRCUIT_FAILS", 5),
		CircuitCooldown: time.Duration(getIntEnv("CIRCUIT_COOLDOWN_SEC", 60)) * time.Second,

		CalendarURL:         getEnv("CALENDAR_URL", ""),
		CalendarToken:       getEnv("CALENDAR_TOKEN", ""),
		CalendarID:          getEnv("CALENDAR_ID", "primary"),
		MissedMeetingPolicy: getEnv("MISSED_MEETING_POLICY", "relist"),
		MeetingDuration:     getDurationEnv("MEETING_DURATION", 45*time.Minute),

		MinIOEndpoint:    minioEndpoint,
		MinIOAccessKey:   getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:   getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:      strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketMedia: getEnv("MINIO_BUCKET_MEDIA", "sdr-media"),
		MinIOEnabled:     minioEndpoint != "",
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	validate := validator.New()
	for name, value := range map[string]string{
		"GATEWAY_URL":  cfg.GatewayURL,
		"CRM_URL":      cfg.CRMURL,
		"CALENDAR_URL": cfg.CalendarURL,
	} {
		if err := validate.URLOrEmpty(value); err != nil {
			return nil, fmt.Errorf("%s is not a valid URL: %q", name, value)
		}
	}
	if cfg.EmbeddingDim != 768 {
		return nil, fmt.Errorf("EMBEDDING_DIM must be 768, got %d", cfg.EmbeddingDim)
	}
	if cfg.HybridAlpha < 0 || cfg.HybridAlpha > 1 {
		return nil, fmt.Errorf("HYBRID_ALPHA must be in [0,1], got %v", cfg.HybridAlpha)
	}
	switch cfg.MissedMeetingPolicy {
	case "relist", "lost":
	default:
		return nil, fmt.Errorf("MISSED_MEETING_POLICY must be 'relist' or 'lost', got %q", cfg.MissedMeetingPolicy)
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// IsDevelopment reports whether the app runs with the development profile.
func (c *Config) IsDevelopment() bool { return strings.EqualFold(c.Env, "development") }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

func (c *Config) GetGatewayURL() string          { return c.GatewayURL }
func (c *Config) GetGatewayAPIKey() string       { return c.GatewayAPIKey }
func (c *Config) GetGatewayInstance() string     { return c.GatewayInstance }
func (c *Config) GetGatewayWebhookToken() string { return c.GatewayWebhookToken }

func (c *Config) GetModelAPIKey() string         { return c.ModelAPIKey }
func (c *Config) GetModelPrimaryID() string      { return c.ModelPrimaryID }
func (c *Config) GetModelFallbackID() string     { return c.ModelFallbackID }
func (c *Config) GetEmbeddingModelID() string    { return c.EmbeddingModelID }
func (c *Config) GetEmbeddingDim() int           { return c.EmbeddingDim }
func (c *Config) GetModelTimeout() time.Duration { return c.ModelTimeout }
func (c *Config) GetRetryMax() int               { return c.RetryMax }

func (c *Config) GetKnowledgeTopK() int         { return c.KnowledgeTopK }
func (c *Config) GetHybridAlpha() float64       { return c.HybridAlpha }
func (c *Config) GetKnowledgeMinScore() float64 { return c.KnowledgeMinScore }

func (c *Config) GetTypingMaxMS() int           { return c.TypingMaxMS }
func (c *Config) GetSendCeiling() time.Duration { return c.SendCeiling }
func (c *Config) GetTurnBudget() time.Duration  { return c.TurnBudget }
func (c *Config) GetSessionMaxTurns() int       { return c.SessionMaxTurns }
func (c *Config) GetHistoryLimit() int          { return c.HistoryLimit }
func (c *Config) GetPersonaPromptPath() string  { return c.PersonaPromptPath }

func (c *Config) GetMinBillThreshold() float64 { return c.MinBillThreshold }
func (c *Config) GetHotScoreMin() int          { return c.HotScoreMin }
func (c *Config) GetCompetitorDiscountThreshold() float64 {
	return c.CompetitorDiscountThreshold
}
func (c *Config) GetAbandonAfter() time.Duration { return c.AbandonAfter }

func (c *Config) GetRedisURL() string                { return c.RedisURL }
func (c *Config) GetFollowupTick() time.Duration     { return c.FollowupTick }
func (c *Config) GetReminderTick() time.Duration     { return c.ReminderTick }
func (c *Config) GetCalendarSyncTick() time.Duration { return c.CalendarSyncTick }
func (c *Config) GetQuietHours() (int, int)          { return c.QuietHoursStart, c.QuietHoursEnd }
func (c *Config) GetAsynqConcurrency() int           { return c.AsynqConcurrency }

func (c *Config) GetCRMURL() string                 { return c.CRMURL }
func (c *Config) GetCRMAPIKey() string              { return c.CRMAPIKey }
func (c *Config) GetCRMPipelineID() string          { return c.CRMPipelineID }
func (c *Config) GetCircuitFails() int              { return c.CircuitFails }
func (c *Config) GetCircuitCooldown() time.Duration { return c.CircuitCooldown }

func (c *Config) GetCalendarURL() string            { return c.CalendarURL }
func (c *Config) GetCalendarToken() string          { return c.CalendarToken }
func (c *Config) GetCalendarID() string             { return c.CalendarID }
func (c *Config) GetMissedMeetingPolicy() string    { return c.MissedMeetingPolicy }
func (c *Config) GetMeetingDuration() time.Duration { return c.MeetingDuration }

func (c *Config) GetMinIOEndpoint() string    { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string   { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string   { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool        { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketMedia() string { return c.MinioBucketMedia }
func (c *Config) IsMinIOEnabled() bool        { return c.MinIOEnabled }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getFloatEnv(key string, fallback float64) float64 {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

// parseQuietHours parses a "HH:MM-HH:MM" window into start/end hours.
// Minutes other than 00 are not supported; the window boundary is the hour.
func parseQuietHours(value string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(value), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM-HH:MM, got %q", value)
	}

	start, err := parseHour(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := parseHour(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func parseHour(value string) (int, error) {
	fields := strings.Split(strings.TrimSpace(value), ":")
	hour, err := strconv.Atoi(fields[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour %q", value)
	}
	return hour, nil
}
