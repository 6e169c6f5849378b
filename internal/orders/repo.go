package orders

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindBySessionIDForUpdate(ctx context.Context, sessionID string) (*models.Order, error) {
	query := r.db.WithContext(ctx).Where("session_id = ?", strings.TrimSpace(sessionID))
	// sqlite serializes writers on its own and has no FOR UPDATE.
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := query.First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateCompletion marks the order completed with the resolved fields in one statement.
// Failed orders are never touched.
func (r *repository) UpdateCompletion(ctx context.Context, sessionID string, update CompletionUpdate) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("session_id = ? AND status <> ?", strings.TrimSpace(sessionID), enums.OrderStatusFailed).
		Updates(map[string]any{
			"status":           enums.OrderStatusCompleted,
			"product_name":     update.ProductName,
			"product_size":     update.ProductSize,
			"email":            update.Email,
			"shipping_name":    update.ShippingName,
			"shipping_address": update.ShippingAddress,
		})
	return res.RowsAffected, res.Error
}
