package datastore

import (
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aerolabel/aerolabel-go/internal/logging"
)

// DefaultSlowQueryThreshold defines the duration after which a query is
// considered slow. One second accommodates migration batch queries while
// still flagging queries that genuinely need optimization.
const DefaultSlowQueryThreshold = 1 * time.Second

var log = logging.ForService("datastore")

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() gormlogger.Interface {
	return gormlogger.New(
		slogWriter{},
		gormlogger.Config{
			SlowThreshold:             DefaultSlowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// slogWriter adapts the service slog logger to GORM's printf-style logger.
type slogWriter struct{}

func (slogWriter) Printf(format string, args ...any) {
	log.Warn("gorm", slog.String("format", format), slog.Any("args", args))
}

// performAutoMigration runs GORM auto-migration for all application tables.
func performAutoMigration(db *gorm.DB, debug bool, dbType string) error {
	migrationStart := time.Now()
	migrationLogger := log.With("db_type", dbType)

	if debug {
		migrationLogger.Debug("Starting database migration")
	}

	if err := db.AutoMigrate(
		&Prediction{},
		&Label{},
		&ImageLock{},
		&DiscardedImage{},
		&AircraftType{},
		&Airline{},
	); err != nil {
		migrationLogger.Error("Database migration failed", "error", err)
		return err
	}

	if debug {
		migrationLogger.Debug("Database migration completed successfully",
			"total_duration", time.Since(migrationStart))
	}

	return nil
}
