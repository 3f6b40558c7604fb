package models

import "time"

// Pricing modes for catalog items. Dual-priced items carry a solo and a
// whole portion price; single-priced items use Price.
const (
	PricingModeSingle = "single"
	PricingModeDual   = "dual"
)

// Dining table stored status. Effective occupancy is derived from live
// orders, see engine.TableResolver.
const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
	TableStatusReserved  = "reserved"
)

type Category struct {
	ID           int32  `gorm:"primaryKey;autoIncrement"`
	CategoryName string `gorm:"type:varchar(128);not null"`
	KitchenFlag  bool   `gorm:"not null;default:false"`
	SortOrder    int32  `gorm:"not null;default:0"`
	IsActive     bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Items []Item `gorm:"foreignKey:CategoryID"`
}

type Item struct {
	ID                int32   `gorm:"primaryKey;autoIncrement"`
	ItemCode          string  `gorm:"type:varchar(32);uniqueIndex;not null"`
	ItemName          string  `gorm:"type:varchar(128);not null"`
	PricingMode       string  `gorm:"type:varchar(16);not null;default:'single'"`
	Price             string  `gorm:"type:decimal(18,2);not null"`
	PriceSolo         *string `gorm:"type:decimal(18,2)"`
	PriceWhole        *string `gorm:"type:decimal(18,2)"`
	StockQuantity     int32   `gorm:"not null;default:0"`
	LowStockThreshold int32   `gorm:"not null;default:0"`
	IsAvailable       bool    `gorm:"not null;default:true"`
	CategoryID        *int32
	SortOrder         int32 `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Category *Category  `gorm:"foreignKey:CategoryID"`
	Sizes    []ItemSize `gorm:"foreignKey:ItemID"`
}

type Size struct {
	ID        int32  `gorm:"primaryKey;autoIncrement"`
	SizeName  string `gorm:"type:varchar(64);uniqueIndex;not null"`
	SortOrder int32  `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemSize is the item x size join; Price is the final unit price for the
// item served in that size and supersedes the item's own pricing.
type ItemSize struct {
	ID        int32  `gorm:"primaryKey;autoIncrement"`
	ItemID    int32  `gorm:"index;not null;uniqueIndex:idx_item_size"`
	SizeID    int32  `gorm:"index;not null;uniqueIndex:idx_item_size"`
	Price     string `gorm:"type:decimal(18,2);not null"`
	CreatedAt time.Time

	Item *Item `gorm:"foreignKey:ItemID"`
	Size *Size `gorm:"foreignKey:SizeID"`
}

type DiningTable struct {
	ID          int32  `gorm:"primaryKey;autoIncrement"`
	TableNumber string `gorm:"type:varchar(16);uniqueIndex;not null"`
	Capacity    int32  `gorm:"not null;default:2"`
	Status      string `gorm:"type:varchar(16);not null;default:'available'"`
	IsActive    bool   `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type PaymentMethod struct {
	ID         int32  `gorm:"primaryKey;autoIncrement"`
	MethodName string `gorm:"type:varchar(64);uniqueIndex;not null"`
	IsActive   bool   `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
