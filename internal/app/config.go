package app

import (
	"time"

	"github.com/yungbote/painlens-backend/internal/modules/lenses/painmatrix"
	"github.com/yungbote/painlens-backend/internal/platform/envutil"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	Environment string
	ServiceName string
	Version     string

	// MetricsAddr serves /metrics on a separate listener when set; otherwise the API router exposes it.
	MetricsAddr string

	RedisCacheTTL time.Duration
	PainMatrix    painmatrix.Config
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:          envutil.String("PORT", "8080"),
		Environment:   envutil.String("APP_ENV", "development"),
		ServiceName:   envutil.String("OTEL_SERVICE_NAME", "painlens"),
		Version:       envutil.String("APP_VERSION", "dev"),
		MetricsAddr:   envutil.String("METRICS_ADDR", ""),
		RedisCacheTTL: envutil.Seconds("PAIN_MATRIX_REDIS_TTL_SECONDS", 6*time.Hour),
		PainMatrix:    painmatrix.LoadConfig(),
	}
	log.Info("config loaded",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"min_evidence_per_pain", cfg.PainMatrix.MinEvidencePerPain,
		"min_group_size", cfg.PainMatrix.MinGroupSize,
		"similarity_threshold", cfg.PainMatrix.SimilarityThreshold,
		"stale_delta_ratio", cfg.PainMatrix.StaleDeltaRatio,
	)
	return cfg
}
