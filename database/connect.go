package database

import (
	"fmt"

	"nightlife_order/config"
	"nightlife_order/model"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// ConnectDB opens the postgres pool and migrates every table. Driver errors
// are translated so unique violations surface as gorm.ErrDuplicatedKey.
func ConnectDB(settings config.Settings, logger *log.Entry) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(settings.PostgresDSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info("connection opened to database")

	err = db.AutoMigrate(
		&model.Venue{},
		&model.Event{},
		&model.EventTable{},
		&model.Waiter{},
		&model.TableAssignment{},
		&model.Account{},
		&model.Customer{},
		&model.Category{},
		&model.MenuItem{},
		&model.EventMenu{},
		&model.Order{},
		&model.OrderItem{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("database migrated")

	DB = db
	return db, nil
}
