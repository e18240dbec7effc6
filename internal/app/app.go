package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/painlens-backend/internal/data/db"
	httpServer "github.com/yungbote/painlens-backend/internal/http"
	"github.com/yungbote/painlens-backend/internal/observability"
	"github.com/yungbote/painlens-backend/internal/platform/envutil"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics

	dbService    *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New wires the whole service. Callers must Close the returned App.
func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	dbService, err := db.Open(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrateAll(dbService.DB()); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := dbService.DB()

	clients, err := wireClients(log)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log, clients.Redis, cfg.RedisCacheTTL)

	serviceset, err := wireServices(log, cfg, clients, reposet, metrics)
	if err != nil {
		clients.Close()
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, theDB, clients.Redis, reposet, serviceset)
	router := wireRouter(log, cfg, handlerset, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		dbService:    dbService,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background collectors. They stop on Close.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Metrics != nil {
		a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
		}
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	}
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context, addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", addr)
	return (&httpServer.Server{Engine: a.Router}).Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
