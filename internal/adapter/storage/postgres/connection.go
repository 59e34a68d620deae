package postgres

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/seu-repo/ocpp-central/internal/domain"
)

// NewConnection opens a PostgreSQL connection through gorm.
func NewConnection(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Info("connected to postgres")
	return db, nil
}

// RunMigrations creates or updates the schema for all domain entities.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.ChargePoint{},
		&domain.Connector{},
		&domain.Transaction{},
		&domain.IdTag{},
		&domain.Reservation{},
		&domain.Tariff{},
		&domain.TransactionBilling{},
		&domain.ChargingProfile{},
	)
}

// Close closes the underlying sql.DB pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
