package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Service exposes read access to orders by provider session.
type Service interface {
	GetOrder(ctx context.Context, sessionID string) (*OrderDTO, error)
}

type service struct {
	repo    Repository
	timeout time.Duration
}

// NewService builds the order reader. A zero timeout leaves the caller's deadline in place.
func NewService(repo Repository, timeout time.Duration) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	return &service{repo: repo, timeout: timeout}, nil
}

func (s *service) GetOrder(ctx context.Context, sessionID string) (*OrderDTO, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required").
			WithDetails(map[string]string{"session_id": "required"})
	}
	// The failure sentinel is shared by every failed attempt and identifies none of them.
	if sessionID == models.FailedSessionID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	order, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	dto := NewOrderDTO(*order)
	return &dto, nil
}
