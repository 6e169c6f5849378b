package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// FailedSessionID marks orders whose provider session was never created.
const FailedSessionID = "none"

// Order is one checkout attempt for a single catalog item.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	SessionID       string                `gorm:"column:session_id;not null"`
	ProductID       string                `gorm:"column:product_id"`
	ProductName     string                `gorm:"column:product_name;not null"`
	ProductSize     string                `gorm:"column:product_size"`
	Quantity        int                   `gorm:"column:quantity;not null"`
	TotalPrice      decimal.Decimal       `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status          enums.OrderStatus     `gorm:"column:status;type:order_status;not null;default:'initiated'"`
	Email           *string               `gorm:"column:email"`
	ShippingName    *string               `gorm:"column:shipping_name"`
	ShippingAddress types.ShippingAddress `gorm:"column:shipping_address;type:jsonb"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string {
	return "orders"
}

// BeforeCreate assigns the surrogate key so inserts do not rely on a DB default.
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
