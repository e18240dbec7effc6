package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/painlens-backend/internal/platform/envutil"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests  *CounterVec
	apiLatency   *HistogramVec
	apiInflight  *Gauge
	matrixBuilds *CounterVec
	matrixStage  *HistogramVec
	cacheLookups *CounterVec
	insightCalls *CounterVec
	dbStats      *GaugeVec
	redisUp      *Gauge
	redisPing    *Gauge
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	return envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
}

// Init returns nil when METRICS_ENABLED is off; every method is nil-safe.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

// NewMetrics builds an unregistered instance; tests use it directly.
func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("pl_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"pl_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight:  NewGauge("pl_api_inflight_requests", "In-flight API requests."),
		matrixBuilds: NewCounterVec("pl_pain_matrix_builds_total", "Pain matrix builds by status/strategy.", []string{"status", "strategy"}),
		matrixStage: NewHistogramVec(
			"pl_pain_matrix_stage_duration_seconds",
			"Pain matrix build stage duration in seconds.",
			[]string{"stage", "status"},
			[]float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		),
		cacheLookups: NewCounterVec("pl_pain_matrix_cache_lookups_total", "Pain matrix cache lookups by result.", []string{"result"}),
		insightCalls: NewCounterVec("pl_pain_matrix_insights_total", "Insight generation calls by status.", []string{"status"}),
		dbStats:      NewGaugeVec("pl_db_pool", "Database pool stats.", []string{"stat"}),
		redisUp:      NewGauge("pl_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing:    NewGauge("pl_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, p := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.matrixBuilds, m.matrixStage, m.cacheLookups, m.insightCalls,
		m.dbStats, m.redisUp, m.redisPing,
	} {
		if err := p.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveMatrixStage(stage, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.matrixStage.Observe(dur.Seconds(), stage, status)
}

func (m *Metrics) IncMatrixBuild(status, strategy string) {
	if m == nil {
		return
	}
	m.matrixBuilds.Inc(status, strategy)
}

// IncCacheLookup records one of hit, stale, miss, bypass or error.
func (m *Metrics) IncCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.Inc(result)
}

func (m *Metrics) IncInsightCall(status string) {
	if m == nil {
		return
	}
	m.insightCalls.Inc(status)
}

func (m *Metrics) MatrixBuilds(status, strategy string) float64 {
	if m == nil {
		return 0
	}
	return m.matrixBuilds.Value(status, strategy)
}

func (m *Metrics) CacheLookups(result string) float64 {
	if m == nil {
		return 0
	}
	return m.cacheLookups.Value(result)
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.Cmdable) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
