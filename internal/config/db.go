package config

import (
	"strings"
	"time"

	"oncology-assist-backend/internal/models"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

// ConnectDB opens the database named by dsn. A "sqlite://" prefix selects a
// local sqlite file, anything else is handed to the postgres driver.
func ConnectDB(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	dialector := postgres.Open(dsn)
	if strings.HasPrefix(dsn, sqlitePrefix) {
		dialector = sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(log)),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	// Get underlying sql.DB for connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get database instance")
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("database connected")
	return db, nil
}

func MigrateAllModels(db *gorm.DB, run bool, log *logrus.Logger) error {
	if !run {
		log.Info("skipping migration")
		return nil
	}
	err := db.AutoMigrate(
		&models.ChatHistory{},
		&models.Report{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}
	log.Info("database migration completed")
	return nil
}

func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormLogLevel(log *logrus.Logger) logger.LogLevel {
	if log.IsLevelEnabled(logrus.DebugLevel) {
		return logger.Info
	}
	return logger.Warn
}
