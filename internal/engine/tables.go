package engine

import (
	"context"

	"gorm.io/gorm"

	"mesa-system/internal/database/models"
)

// TableResolver derives a dining table's occupancy from live order data.
// Nothing ever writes a cached occupancy value; a table frees itself the
// moment its last active dine-in order leaves pending/ready.
type TableResolver struct {
	db *gorm.DB
}

func NewTableResolver(db *gorm.DB) *TableResolver {
	return &TableResolver{db: db}
}

func (r *TableResolver) EffectiveStatus(ctx context.Context, table models.DiningTable) (string, error) {
	if table.Status == models.TableStatusOccupied {
		return models.TableStatusOccupied, nil
	}

	count, err := r.activeOrderCount(ctx, table.ID)
	if err != nil {
		return "", err
	}
	if count > 0 {
		return models.TableStatusOccupied, nil
	}
	return models.TableStatusAvailable, nil
}

// TableWithStatus pairs a table with its derived occupancy for list views.
type TableWithStatus struct {
	models.DiningTable
	EffectiveStatus string `json:"effective_status"`
}

func (r *TableResolver) ListTables(ctx context.Context) ([]TableWithStatus, error) {
	var tables []models.DiningTable
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("table_number asc").
		Find(&tables).Error; err != nil {
		return nil, err
	}

	out := make([]TableWithStatus, 0, len(tables))
	for _, t := range tables {
		status, err := r.EffectiveStatus(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, TableWithStatus{DiningTable: t, EffectiveStatus: status})
	}
	return out, nil
}

func (r *TableResolver) activeOrderCount(ctx context.Context, tableID int32) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("table_id = ? AND order_type = ? AND status IN ?",
			tableID, models.OrderTypeDineIn,
			[]string{models.OrderStatusPending, models.OrderStatusReady}).
		Count(&count).Error
	return count, err
}
