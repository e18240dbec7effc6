package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/painlens-backend/internal/http/handlers"
	httpMW "github.com/yungbote/painlens-backend/internal/http/middleware"
	"github.com/yungbote/painlens-backend/internal/observability"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics
	// ExposeMetrics mounts GET /metrics on this router.
	ExposeMetrics bool
	// ServiceName enables otelgin tracing when set.
	ServiceName string

	PainMatrixHandler *httpH.PainMatrixHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil && cfg.ExposeMetrics {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Lenses
		if cfg.PainMatrixHandler != nil {
			api.GET("/projects/:projectId/pain-matrix", cfg.PainMatrixHandler.GetPainMatrix)
			api.GET("/projects/:projectId/pain-matrix/cache", cfg.PainMatrixHandler.GetCachedPainMatrix)
		}
	}

	return r
}
