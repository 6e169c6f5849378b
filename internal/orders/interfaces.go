package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	// FindBySessionIDForUpdate row-locks the order on Postgres; call it inside a transaction.
	FindBySessionIDForUpdate(ctx context.Context, sessionID string) (*models.Order, error)
	UpdateCompletion(ctx context.Context, sessionID string, update CompletionUpdate) (int64, error)
}

// CompletionUpdate carries the resolved values written when payment completes.
// Nil pointers and an absent address are written as NULL.
type CompletionUpdate struct {
	ProductName     string
	ProductSize     string
	Email           *string
	ShippingName    *string
	ShippingAddress types.ShippingAddress
}

// Matches reports whether writing the update would leave order unchanged.
func (u CompletionUpdate) Matches(order *models.Order) bool {
	if order == nil {
		return false
	}
	return u.ProductName == order.ProductName &&
		u.ProductSize == order.ProductSize &&
		sameString(u.Email, order.Email) &&
		sameString(u.ShippingName, order.ShippingName) &&
		u.ShippingAddress.Normalized() == order.ShippingAddress.Normalized()
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
