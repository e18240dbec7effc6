package app

import (
	"fmt"

	"github.com/yungbote/painlens-backend/internal/modules/lenses/painmatrix"
	"github.com/yungbote/painlens-backend/internal/observability"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

type Services struct {
	PainMatrix painmatrix.Service
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	var insights painmatrix.InsightGenerator = painmatrix.TemplateInsightGenerator{
		HighImpactThreshold: cfg.PainMatrix.HighImpactThreshold,
	}
	if clients.OpenAI != nil {
		gen, err := painmatrix.NewLLMInsightGenerator(clients.OpenAI)
		if err != nil {
			return Services{}, fmt.Errorf("init insight generator: %w", err)
		}
		insights = gen
	}

	deps := painmatrix.Deps{
		Log:      log,
		Evidence: reposet.Evidence,
		Facets:   reposet.Facets,
		Groups:   reposet.UserGroups,
		Insights: insights,
		Metrics:  metrics,
		Config:   cfg.PainMatrix,
	}
	return Services{
		PainMatrix: painmatrix.NewService(deps, reposet.PainMatrixCache),
	}, nil
}
