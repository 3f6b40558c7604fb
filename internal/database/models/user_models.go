package models

import "time"

// Staff roles. The gateway resolves the authenticated role string into one
// of these exactly once; the engine only uses the actor for audit
// attribution, never for business-rule branching.
const (
	RoleAdmin      = "admin"
	RoleRestoAdmin = "resto_admin"
	RoleResto      = "resto"
	RoleKitchen    = "kitchen"
	RoleCustomer   = "customer"
)

type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Username  string `gorm:"uniqueIndex;not null"`
	Email     string `gorm:"uniqueIndex;not null"`
	Password  string `gorm:"not null"`
	Fullname  string `gorm:"not null"`
	Role      string `gorm:"type:varchar(32);not null"`
	IsActive  bool   `gorm:"default:true"`
	LastLogin *time.Time
	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`
}

type Customer struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	CustomerName string  `gorm:"type:varchar(128);not null"`
	Phone        *string `gorm:"type:varchar(32)"`
	Email        *string `gorm:"type:varchar(128)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
