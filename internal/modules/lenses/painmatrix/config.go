package painmatrix

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/painlens-backend/internal/platform/envutil"
)

//go:embed painmatrix.yaml
var defaultsYAML []byte

type Config struct {
	MinEvidencePerPain     int     `yaml:"min_evidence_per_pain"`
	MinGroupSize           int     `yaml:"min_group_size"`
	SimilarityThreshold    float64 `yaml:"similarity_threshold"`
	StaleDeltaRatio        float64 `yaml:"stale_delta_ratio"`
	HighImpactThreshold    float64 `yaml:"high_impact_threshold"`
	MaxGroupSizeFactor     int     `yaml:"max_group_size_factor"`
	MaxSampleVerbatims     int     `yaml:"max_sample_verbatims"`
	InsightTopCells        int     `yaml:"insight_top_cells"`
	DegradeInsightsOnError bool    `yaml:"degrade_insights_on_error"`
	CellWorkers            int     `yaml:"cell_workers"`
}

var defaultConfig = mustParseDefaults()

func mustParseDefaults() Config {
	cfg, err := parseConfig(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("painmatrix: embedded defaults: %v", err))
	}
	return cfg
}

func parseConfig(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg.normalized(), nil
}

// DefaultConfig returns the embedded defaults without environment overrides.
func DefaultConfig() Config { return defaultConfig }

// LoadConfig returns the embedded defaults with PAIN_MATRIX_* environment overrides applied.
func LoadConfig() Config {
	cfg := defaultConfig
	cfg.MinEvidencePerPain = envutil.Int("PAIN_MATRIX_MIN_EVIDENCE", cfg.MinEvidencePerPain)
	cfg.MinGroupSize = envutil.Int("PAIN_MATRIX_MIN_GROUP_SIZE", cfg.MinGroupSize)
	cfg.SimilarityThreshold = envutil.Float("PAIN_MATRIX_SIMILARITY_THRESHOLD", cfg.SimilarityThreshold)
	cfg.StaleDeltaRatio = envutil.Float("PAIN_MATRIX_STALE_DELTA", cfg.StaleDeltaRatio)
	cfg.HighImpactThreshold = envutil.Float("PAIN_MATRIX_HIGH_IMPACT", cfg.HighImpactThreshold)
	cfg.InsightTopCells = envutil.Int("PAIN_MATRIX_INSIGHT_TOP_CELLS", cfg.InsightTopCells)
	cfg.DegradeInsightsOnError = envutil.Bool("PAIN_MATRIX_DEGRADE_INSIGHTS", cfg.DegradeInsightsOnError)
	cfg.CellWorkers = envutil.Int("PAIN_MATRIX_CELL_WORKERS", cfg.CellWorkers)
	return cfg.normalized()
}

// normalized fills unset or out-of-range fields from hard floors so a zero Config is usable.
func (c Config) normalized() Config {
	if c.MinEvidencePerPain < 1 {
		c.MinEvidencePerPain = 1
	}
	if c.MinGroupSize < 1 {
		c.MinGroupSize = 1
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		c.SimilarityThreshold = 0.70
	}
	if c.StaleDeltaRatio <= 0 {
		c.StaleDeltaRatio = 0.10
	}
	if c.HighImpactThreshold <= 0 {
		c.HighImpactThreshold = 1.0
	}
	if c.MaxGroupSizeFactor < 1 {
		c.MaxGroupSizeFactor = 10
	}
	if c.MaxSampleVerbatims < 1 {
		c.MaxSampleVerbatims = 3
	}
	if c.InsightTopCells < 1 {
		c.InsightTopCells = 10
	}
	if c.CellWorkers < 1 {
		c.CellWorkers = 1
	}
	return c
}
