package jobrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/mapequation/infomap-go/pkg/config"
	"github.com/mapequation/infomap-go/pkg/telemetry"
)

// NewGormDB opens a GORM connection for run-history storage, selecting
// a dialector from cfg.Type the same way the service chooses a storage
// backend from its own Type field. "sqlite" needs no host/credentials
// and is the default for single-process deployments and tests;
// "mysql"/"postgres" are for a shared run-history database behind a
// job queue with more than one worker.
func NewGormDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("jobrepo: opening database: %w", err)
	}

	if telemetry.Enabled() {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, fmt.Errorf("jobrepo: enabling telemetry plugin: %w", err)
		}
	}

	if err := configurePool(db, cfg.MaxConns); err != nil {
		return nil, err
	}
	return db, nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Type {
	case "", "sqlite":
		path := cfg.Database
		if path == "" {
			path = "jobrepo.db"
		}
		return sqlite.Open(path), nil
	case "postgres", "postgresql":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database,
		)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		)
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("jobrepo: unsupported database type: %s", cfg.Type)
	}
}

func configurePool(db *gorm.DB, maxConns int) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("jobrepo: getting underlying sql.DB: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 10
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)
	return pingWithTimeout(sqlDB)
}

func pingWithTimeout(sqlDB *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return fmt.Errorf("jobrepo: pinging database: %w", err)
	}
	return nil
}
