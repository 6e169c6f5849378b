package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderCompletedEvent is emitted once per order when payment completes.
type OrderCompletedEvent struct {
	OrderID         uuid.UUID              `json:"orderId"`
	SessionID       string                 `json:"sessionId"`
	ProductID       string                 `json:"productId,omitempty"`
	ProductName     string                 `json:"productName"`
	ProductSize     string                 `json:"productSize,omitempty"`
	Quantity        int                    `json:"quantity"`
	TotalPrice      string                 `json:"totalPrice"`
	Email           *string                `json:"email,omitempty"`
	ShippingName    *string                `json:"shippingName,omitempty"`
	ShippingAddress *types.ShippingAddress `json:"shippingAddress,omitempty"`
}
