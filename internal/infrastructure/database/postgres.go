package database

import (
	"fmt"
	"time"

	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/kai426/Dignus-sub001/internal/infrastructure/repositories"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PoolConfig tunes the SQL connection pool
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open creates a new database connection with production-ready settings.
// Unique violations surface as gorm.ErrDuplicatedKey.
func Open(dsn string, pool PoolConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	return db, nil
}

// AutoMigrate performs database migration for all required tables.
// This includes the domain tables and the Casbin policy table.
func AutoMigrate(db *gorm.DB) error {
	if err := repositories.Migrate(db); err != nil {
		return err
	}

	// The adapter creates the casbin_rule table if it doesn't exist
	if _, err := gormadapter.NewAdapterByDB(db); err != nil {
		return fmt.Errorf("failed to initialize Casbin GORM adapter: %w", err)
	}
	return nil
}
