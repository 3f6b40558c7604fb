package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mesa-system/internal/database"
	"mesa-system/internal/database/models"
)

var testActor = Actor{ID: 7, Role: models.RoleResto}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.MigrateCatalogDB(db))
	require.NoError(t, database.MigrateOrderDB(db))
	require.NoError(t, database.MigrateUserDB(db))

	return db
}

func newTestLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewLedger(db, nil, decimal.NewFromFloat(0.10)), db
}

func seedCategory(t *testing.T, db *gorm.DB, name string, kitchen bool) models.Category {
	t.Helper()
	category := models.Category{CategoryName: name, KitchenFlag: kitchen, IsActive: true}
	require.NoError(t, db.Create(&category).Error)
	return category
}

func seedItem(t *testing.T, db *gorm.DB, code, price string, stock int32, categoryID *int32) models.Item {
	t.Helper()
	item := models.Item{
		ItemCode:          code,
		ItemName:          "item " + code,
		PricingMode:       models.PricingModeSingle,
		Price:             price,
		StockQuantity:     stock,
		LowStockThreshold: 5,
		IsAvailable:       true,
		CategoryID:        categoryID,
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func seedDualItem(t *testing.T, db *gorm.DB, code, solo, whole string, stock int32) models.Item {
	t.Helper()
	item := models.Item{
		ItemCode:          code,
		ItemName:          "item " + code,
		PricingMode:       models.PricingModeDual,
		Price:             solo,
		PriceSolo:         &solo,
		PriceWhole:        &whole,
		StockQuantity:     stock,
		LowStockThreshold: 5,
		IsAvailable:       true,
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func seedTable(t *testing.T, db *gorm.DB, number string) models.DiningTable {
	t.Helper()
	table := models.DiningTable{
		TableNumber: number,
		Capacity:    4,
		Status:      models.TableStatusAvailable,
		IsActive:    true,
	}
	require.NoError(t, db.Create(&table).Error)
	return table
}

func seedPaymentMethod(t *testing.T, db *gorm.DB, name string) models.PaymentMethod {
	t.Helper()
	method := models.PaymentMethod{MethodName: name, IsActive: true}
	require.NoError(t, db.Create(&method).Error)
	return method
}
