// Package repo implements the persistence layer for tenant stores, backed by
// GORM. This file contains database bootstrapping helpers for SQLite (pure Go
// driver) and the idempotent schema migration of a tenant store.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/slowpoke-bot/internal/domain"
)

// PoolOptions tunes the connection pool of a single SQLite database.
type PoolOptions struct {
	MaxOpenConns int  // upper bound of concurrent connections (>= 1)
	Tracing      bool // attach the OpenTelemetry GORM plugin
}

// sqlitePragmas are applied through the DSN so every pooled connection gets
// them, not only the first one.
const sqlitePragmas = "?_pragma=busy_timeout(5000)" +
	"&_pragma=journal_mode(WAL)" +
	"&_pragma=synchronous(NORMAL)" +
	"&_pragma=foreign_keys(1)"

// gormWriter routes GORM warnings (slow queries, errors) to zerolog.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	log.Warn().Str("component", "gorm").Msgf(format, args...)
}

var gormLogger = logger.New(gormWriter{}, logger.Config{
	SlowThreshold:             500 * time.Millisecond,
	LogLevel:                  logger.Warn,
	IgnoreRecordNotFoundError: true,
})

// OpenSQLite opens (or creates) a SQLite database and tunes its pool.
func OpenSQLite(path string, opts PoolOptions) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path+sqlitePragmas), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}
	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			closeGorm(db)
			return nil, err
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	maxConns := opts.MaxOpenConns
	if maxConns < 1 {
		maxConns = 1
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	// sql.Open is lazy; make sure the file is actually usable.
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// AutoMigrate creates the tenant tables and indexes if they do not exist.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(domain.TenantModels()...)
}

func closeGorm(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
