package engine

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"mesa-system/internal/database/models"
)

// StockAdjuster owns the stock side of order confirmation. Decrements are
// conditional row updates so two concurrent confirmations can never both
// take the last units of an item.
type StockAdjuster struct {
	db *gorm.DB
}

func NewStockAdjuster(db *gorm.DB) *StockAdjuster {
	return &StockAdjuster{db: db}
}

// Decrement takes quantity units of an item inside the caller's
// transaction. The predicate in the WHERE clause is the whole concurrency
// story: if another confirmation got there first, zero rows match and the
// caller rolls back, leaving every line of the order untouched.
func (a *StockAdjuster) Decrement(tx *gorm.DB, itemID int32, quantity int32) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be greater than 0", ErrInvalidOrder)
	}

	result := tx.Model(&models.Item{}).
		Where("id = ? AND stock_quantity >= ?", itemID, quantity).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: item %d cannot satisfy quantity %d", ErrInsufficientStock, itemID, quantity)
	}
	return nil
}

// Restore reverses a prior decrement, used when a confirmed order is
// cancelled.
func (a *StockAdjuster) Restore(tx *gorm.DB, itemID int32, quantity int32) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be greater than 0", ErrInvalidOrder)
	}

	return tx.Model(&models.Item{}).
		Where("id = ?", itemID).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", quantity)).Error
}

// IsLowStock is recomputed on every read, never cached on the item row.
func IsLowStock(item models.Item) bool {
	return item.StockQuantity <= item.LowStockThreshold
}

func (a *StockAdjuster) ListLowStock(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	if err := a.db.WithContext(ctx).
		Where("stock_quantity <= low_stock_threshold AND is_available = ?", true).
		Order("stock_quantity asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
