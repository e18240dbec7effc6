package db

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/painlens-backend/internal/platform/envutil"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Service struct {
	db     *gorm.DB
	driver string
	log    *logger.Logger
}

// Open connects using DB_DRIVER (postgres by default). Postgres reads DATABASE_URL or the
// POSTGRES_* parts; sqlite reads SQLITE_PATH and is meant for local runs and tests.
func Open(logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "DBService")
	driver := strings.ToLower(envutil.String("DB_DRIVER", DriverPostgres))

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	cfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case DriverPostgres:
		db, err = gorm.Open(postgres.Open(postgresDSN()), cfg)
	case DriverSQLite:
		db, err = gorm.Open(sqlite.Open(envutil.String("SQLITE_PATH", "painlens.db")), cfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(envutil.Int("DB_MAX_OPEN_CONNS", 20))
		sqlDB.SetMaxIdleConns(envutil.Int("DB_MAX_IDLE_CONNS", 5))
		sqlDB.SetConnMaxLifetime(envutil.Seconds("DB_CONN_MAX_LIFETIME_SECONDS", 30*time.Minute))
	}

	serviceLog.Info("database connected", "driver", driver)
	return &Service{db: db, driver: driver, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Driver() string { return s.driver }

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func postgresDSN() string {
	if dsn := envutil.String("DATABASE_URL", ""); dsn != "" {
		return dsn
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(envutil.String("POSTGRES_USER", "postgres"), envutil.String("POSTGRES_PASSWORD", "")),
		Host:     envutil.String("POSTGRES_HOST", "localhost") + ":" + envutil.String("POSTGRES_PORT", "5432"),
		Path:     "/" + envutil.String("POSTGRES_NAME", "painlens"),
		RawQuery: "sslmode=" + envutil.String("POSTGRES_SSLMODE", "disable"),
	}
	return u.String()
}
