package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"mesa-system/internal/database/models"
)

func NewConnection(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		log.Fatal("DSN is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return db, nil
}

func MigrateCatalogDB(db *gorm.DB) error {
	db.AutoMigrate(&models.Category{})
	db.AutoMigrate(&models.Item{})
	db.AutoMigrate(&models.Size{})
	db.AutoMigrate(&models.ItemSize{})
	db.AutoMigrate(&models.DiningTable{})
	db.AutoMigrate(&models.PaymentMethod{})
	return nil
}

func MigrateOrderDB(db *gorm.DB) error {
	db.AutoMigrate(&models.Order{})
	db.AutoMigrate(&models.OrderItem{})
	return nil
}

func MigrateUserDB(db *gorm.DB) error {
	db.AutoMigrate(&models.User{})
	db.AutoMigrate(&models.Customer{})
	return nil
}
