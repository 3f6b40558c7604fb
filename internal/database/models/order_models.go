package models

import "time"

// Order status state machine: pending -> ready -> completed, with
// cancellation legal from pending and ready only.
const (
	OrderStatusPending   = "pending"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	OrderTypeDineIn   = "dine_in"
	OrderTypeTakeout  = "takeout"
	OrderTypeDelivery = "delivery"
)

const (
	DiscountTypeNone       = "none"
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// Per-line kitchen preparation states. Lines whose item category is not
// kitchen-flagged are created directly as served.
const (
	KitchenStatusPending   = "pending"
	KitchenStatusPreparing = "preparing"
	KitchenStatusReady     = "ready"
	KitchenStatusServed    = "served"
)

type Order struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	OrderNumber string `gorm:"uniqueIndex;not null"`
	CustomerID  *int64
	CashierID   int64  `gorm:"not null"`
	OrderType   string `gorm:"type:varchar(16);not null;index"`
	TableID     *int32 `gorm:"index"`
	PeopleCount int32  `gorm:"not null;default:1"`
	CardsCount  int32  `gorm:"not null;default:0"`

	Subtotal       string `gorm:"type:decimal(18,2);not null;default:'0.00'"`
	DiscountType   string `gorm:"type:varchar(16);not null;default:'none'"`
	DiscountValue  string `gorm:"type:decimal(18,2);not null;default:'0.00'"`
	DiscountAmount string `gorm:"type:decimal(18,2);not null;default:'0.00'"`
	TaxAmount      string `gorm:"type:decimal(18,2);not null;default:'0.00'"`
	TotalAmount    string `gorm:"type:decimal(18,2);not null;default:'0.00'"`

	PaymentMethodID *int32
	PaidAt          *time.Time

	Status string `gorm:"type:varchar(16);not null;default:'pending';index"`
	// KitchenStatus is the derived aggregate of the tracked lines and is
	// only ever written from that derivation; nil means the order has no
	// kitchen-tracked line.
	KitchenStatus *string `gorm:"type:varchar(16)"`
	// StockApplied marks that the confirmation decrement ran, making
	// Confirm idempotent and Cancel able to compensate.
	StockApplied bool    `gorm:"not null;default:false"`
	Notes        *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time

	OrderItems    []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Table         *DiningTable   `gorm:"foreignKey:TableID"`
	PaymentMethod *PaymentMethod `gorm:"foreignKey:PaymentMethodID"`
}

type OrderItem struct {
	ID      int64 `gorm:"primaryKey;autoIncrement"`
	OrderID int64 `gorm:"index;not null"`
	ItemID  int32 `gorm:"not null"`
	SizeID  *int32

	Quantity int32 `gorm:"not null"`
	// AppliedQuantity is how many units the stock ledger has debited for
	// this line. Zero until the order's confirmation decrement runs; after
	// that it tracks Quantity through every line mutation, so cancellation
	// restores exactly what was taken.
	AppliedQuantity int32 `gorm:"not null;default:0"`
	// UnitPrice is a snapshot taken when the line is added; catalog price
	// edits never reprice an existing line.
	UnitPrice           string  `gorm:"type:decimal(18,2);not null"`
	TotalPrice          string  `gorm:"type:decimal(18,2);not null"`
	SpecialInstructions *string `gorm:"type:text"`

	// KitchenTracked snapshots the category kitchen flag at add time.
	KitchenTracked     bool   `gorm:"not null;default:false"`
	KitchenStatus      string `gorm:"type:varchar(16);not null;default:'pending'"`
	KitchenStartedAt   *time.Time
	KitchenCompletedAt *time.Time

	CreatedAt time.Time

	Item *Item `gorm:"foreignKey:ItemID"`
	Size *Size `gorm:"foreignKey:SizeID"`
}
