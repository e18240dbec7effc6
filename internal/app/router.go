package app

import (
	"context"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	httpServer "github.com/yungbote/painlens-backend/internal/http"
	httpH "github.com/yungbote/painlens-backend/internal/http/handlers"
	"github.com/yungbote/painlens-backend/internal/observability"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

type Handlers struct {
	PainMatrix *httpH.PainMatrixHandler
	Health     *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, rdb *goredis.Client, reposet Repos, services Services) Handlers {
	log.Info("Wiring handlers...")
	checks := map[string]httpH.Pinger{
		"db": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return Handlers{
		PainMatrix: httpH.NewPainMatrixHandler(log, reposet.Projects, reposet.UserGroups, services.PainMatrix),
		Health:     httpH.NewHealthHandler(checks),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *gin.Engine {
	log.Info("Wiring router...")
	return httpServer.NewRouter(httpServer.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		ExposeMetrics:     cfg.MetricsAddr == "",
		ServiceName:       cfg.ServiceName,
		PainMatrixHandler: handlers.PainMatrix,
		HealthHandler:     handlers.Health,
	})
}
