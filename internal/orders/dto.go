package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderDTO is the public representation of an order.
type OrderDTO struct {
	ID              uuid.UUID              `json:"id"`
	SessionID       string                 `json:"session_id"`
	ProductID       string                 `json:"product_id"`
	ProductName     string                 `json:"product_name"`
	ProductSize     string                 `json:"product_size"`
	Quantity        int                    `json:"quantity"`
	TotalPrice      string                 `json:"total_price"`
	Status          enums.OrderStatus      `json:"status"`
	Email           *string                `json:"email"`
	ShippingName    *string                `json:"shipping_name"`
	ShippingAddress *types.ShippingAddress `json:"shipping_address"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// NewOrderDTO maps a stored order; absent addresses render as null.
func NewOrderDTO(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:           order.ID,
		SessionID:    order.SessionID,
		ProductID:    order.ProductID,
		ProductName:  order.ProductName,
		ProductSize:  order.ProductSize,
		Quantity:     order.Quantity,
		TotalPrice:   order.TotalPrice.StringFixed(2),
		Status:       order.Status,
		Email:        order.Email,
		ShippingName: order.ShippingName,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
	if order.ShippingAddress.IsPresent() {
		addr := order.ShippingAddress.Normalized()
		dto.ShippingAddress = &addr
	}
	return dto
}
