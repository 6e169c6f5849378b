package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestGetOrderReturnsDTO(t *testing.T) {
	db := setupOrdersTestDB(t)
	seedOrder(t, db, "cs_test_dto", enums.OrderStatusInitiated)
	svc, err := NewService(NewRepository(db), time.Second)
	require.NoError(t, err)

	dto, err := svc.GetOrder(context.Background(), "cs_test_dto")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_dto", dto.SessionID)
	assert.Equal(t, "39.98", dto.TotalPrice)
	assert.Equal(t, enums.OrderStatusInitiated, dto.Status)
	require.NotNil(t, dto.ShippingAddress)
	assert.Equal(t, "78701", dto.ShippingAddress.PostalCode)
}

func TestGetOrderErrors(t *testing.T) {
	db := setupOrdersTestDB(t)
	seedOrder(t, db, models.FailedSessionID, enums.OrderStatusFailed)
	svc, err := NewService(NewRepository(db), 0)
	require.NoError(t, err)

	_, err = svc.GetOrder(context.Background(), "  ")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.GetOrder(context.Background(), "cs_missing")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = svc.GetOrder(context.Background(), models.FailedSessionID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestGetOrderStorageFailureIsDependency(t *testing.T) {
	svc, err := NewService(&failingRepo{err: errors.New("connection refused")}, 0)
	require.NoError(t, err)

	_, err = svc.GetOrder(context.Background(), "cs_test_1")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil, 0)
	require.Error(t, err)
}

func TestNewOrderDTOAbsentAddressIsNull(t *testing.T) {
	dto := NewOrderDTO(models.Order{SessionID: "cs", Status: enums.OrderStatusCompleted})
	assert.Nil(t, dto.ShippingAddress)
	assert.Equal(t, "0.00", dto.TotalPrice)
}

type failingRepo struct {
	err error
}

func (f *failingRepo) WithTx(*gorm.DB) Repository { return f }

func (f *failingRepo) Create(context.Context, *models.Order) error { return f.err }

func (f *failingRepo) FindBySessionID(context.Context, string) (*models.Order, error) {
	return nil, f.err
}

func (f *failingRepo) FindBySessionIDForUpdate(context.Context, string) (*models.Order, error) {
	return nil, f.err
}

func (f *failingRepo) UpdateCompletion(context.Context, string, CompletionUpdate) (int64, error) {
	return 0, f.err
}
