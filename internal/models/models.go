package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	OrderStatePending    = "pending"
	OrderStateProcessing = "processing"
	OrderStateShipped    = "shipped"
	OrderStateDelivered  = "delivered"
	OrderStateCancelled  = "cancelled"
)

type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"     json:"id"`
	Username     string `gorm:"size:50;uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"not null"                     json:"-"`
	// Single-slot refresh session: sha256 hex of the latest refresh token,
	// empty while logged out.
	HashedRefreshToken string    `json:"-"`
	Role               string    `gorm:"size:16;not null"  json:"role"`
	Available          bool      `gorm:"not null"          json:"available"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type Product struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"      json:"id"`
	Name        string          `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Description string          `gorm:"type:text"                     json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"   json:"price"`
	Stock       int             `gorm:"not null;check:stock >= 0"     json:"stock"`
	Category    string          `gorm:"size:255;index;not null"       json:"category"`
	Available   bool            `gorm:"not null"                      json:"available"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Order struct {
	OrderID    uint64          `gorm:"primaryKey;autoIncrement"    json:"order_id"`
	UserID     uint64          `gorm:"index;not null"              json:"user_id"`
	TotalPrice decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_price"`
	State      string          `gorm:"size:32;not null"            json:"state"`
	OrderDate  time.Time       `gorm:"autoCreateTime"              json:"order_date"`
	Items      []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

type OrderItem struct {
	OrderItemID uint64          `gorm:"primaryKey;autoIncrement"    json:"order_item_id"`
	OrderID     uint64          `gorm:"index;not null"              json:"order_id"`
	ProductID   uint64          `gorm:"index;not null"              json:"product_id"`
	Quantity    int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
}
