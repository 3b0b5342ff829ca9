package database

import (
	"fmt"
	"time"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	identitydomain "github.com/inboxsherpa/inboxsherpa/internal/identity/domain"
	"github.com/inboxsherpa/inboxsherpa/pkg/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresConnection opens the PostgreSQL database and configures the
// connection pool. TranslateError is on so unique-key violations surface as
// gorm.ErrDuplicatedKey in the repositories.
func NewPostgresConnection(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the schema for every model
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&identitydomain.User{},
		&identitydomain.RefreshToken{},
		&digestdomain.Thread{},
		&digestdomain.Cluster{},
		&digestdomain.Message{},
		&digestdomain.SuggestedAction{},
	)
}
