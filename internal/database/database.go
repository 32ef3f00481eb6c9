package database

import (
	"fmt"
	"strings"

	"github.com/kengoodridge/ai-chatbot/internal/config"
	"github.com/kengoodridge/ai-chatbot/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the database and runs auto-migration.
// DSNs prefixed with "sqlite://", the literal ":memory:", or a DSN ending in
// ".db" open SQLite; anything else is treated as a MySQL DSN.
func Connect(cfg *config.AppConfig) (*gorm.DB, error) {
	db, err := open(cfg.DSN, resolveLogLevel(cfg))
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

func resolveLogLevel(cfg *config.AppConfig) logger.LogLevel {
	if cfg.IsDev() {
		return logger.Info
	}
	return logger.Warn
}

func open(dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		dialector = sqlite.Open(strings.TrimPrefix(dsn, "sqlite://"))
	case dsn == ":memory:" || strings.HasSuffix(dsn, ".db"):
		dialector = sqlite.Open(dsn)
	default:
		dialector = mysql.New(mysql.Config{DSN: dsn, DefaultStringSize: 191})
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return db, nil
}

// Migrate runs GORM auto-migration for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.UserModel{},
		&models.ProjectModel{},
		&models.EndpointModel{},
		&models.PageModel{},
	)
}
