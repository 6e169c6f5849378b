package stripewebhook

import (
	"context"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// Outcome describes what a delivered event did to the order store.
type Outcome string

const (
	OutcomeIgnored       Outcome = "ignored"
	OutcomeOrderNotFound Outcome = "order_not_found"
	OutcomeCompleted     Outcome = "completed"

	outcomeError = "error"
	eventSource  = "stripe-webhook"

	defaultStoreTimeout = 5 * time.Second
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	Orders            orders.Repository
	TransactionRunner txRunner
	// Outbox is optional; without it completions are not announced downstream.
	Outbox  eventEmitter
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	// StoreTimeout bounds the whole reconcile transaction. Zero means 5s.
	StoreTimeout time.Duration
}

type Service struct {
	orders       orders.Repository
	txRunner     txRunner
	outbox       eventEmitter
	logg         *logger.Logger
	metrics      *metrics.Metrics
	storeTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	storeTimeout := params.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &Service{
		orders:       params.Orders,
		txRunner:     params.TransactionRunner,
		outbox:       params.Outbox,
		logg:         params.Logger,
		metrics:      params.Metrics,
		storeTimeout: storeTimeout,
	}, nil
}

// HandleEvent reconciles a verified provider event against the stored order.
// Only checkout.session.completed mutates state. An unmatched session is not
// an error; the provider is expected to redeliver if the insert was late.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (Outcome, error) {
	if event == nil || event.Data == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logg.WithEvent(ctx, event.ID, string(event.Type))

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		s.metrics.IncWebhookEvent(string(event.Type), string(OutcomeIgnored))
		return OutcomeIgnored, nil
	}

	payload, err := decodeSession(event.Data.Raw)
	if err != nil {
		s.metrics.IncWebhookEvent(string(event.Type), outcomeError)
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}
	if payload.ID == "" {
		s.metrics.IncWebhookEvent(string(event.Type), outcomeError)
		return "", pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	ctx = s.logg.WithSessionID(ctx, payload.ID)

	start := time.Now()
	outcome, err := s.reconcile(ctx, payload)
	s.metrics.ObserveReconcile(time.Since(start))
	if err != nil {
		s.metrics.IncWebhookEvent(string(event.Type), outcomeError)
		s.logg.Error(ctx, "checkout completion reconcile failed", err)
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reconcile order")
		}
		return "", err
	}

	s.metrics.IncWebhookEvent(string(event.Type), string(outcome))
	switch outcome {
	case OutcomeOrderNotFound:
		s.logg.Warn(ctx, "no order recorded for completed checkout session")
	case OutcomeCompleted:
		s.logg.Info(ctx, "order completed")
	}
	return outcome, nil
}

func (s *Service) reconcile(ctx context.Context, payload *sessionPayload) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	outcome := OutcomeIgnored
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.FindBySessionIDForUpdate(ctx, payload.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome = OutcomeOrderNotFound
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusCompleted) {
			s.logg.Warn(ctx, "completion event for order in status "+order.Status.String())
			return nil
		}

		update := resolveCompletion(order, payload)
		if order.Status == enums.OrderStatusCompleted && update.Matches(order) {
			outcome = OutcomeCompleted
			return nil
		}
		rows, err := repo.UpdateCompletion(ctx, payload.ID, update)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		if rows == 0 {
			outcome = OutcomeOrderNotFound
			return nil
		}

		if order.Status == enums.OrderStatusInitiated && s.outbox != nil {
			if err := s.outbox.EmitIfNotExists(ctx, tx, completedEvent(order, update)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order completed event")
			}
		}
		outcome = OutcomeCompleted
		return nil
	})
	return outcome, err
}

func resolveCompletion(order *models.Order, payload *sessionPayload) orders.CompletionUpdate {
	return orders.CompletionUpdate{
		ProductName:     fillIfEmpty(order.ProductName, payload.meta(checkout.MetaProductName)),
		ProductSize:     fillIfEmpty(order.ProductSize, payload.meta(checkout.MetaProductSize)),
		Email:           ResolveString(payload.email(), order.Email, ""),
		ShippingName:    ResolveString(payload.shippingName(), order.ShippingName, payload.meta(checkout.MetaShippingName)),
		ShippingAddress: ResolveAddress(payload.shippingAddress(), order.ShippingAddress, payload.metadataAddress()),
	}
}

func completedEvent(order *models.Order, update orders.CompletionUpdate) outbox.DomainEvent {
	data := payloads.OrderCompletedEvent{
		OrderID:      order.ID,
		SessionID:    order.SessionID,
		ProductID:    order.ProductID,
		ProductName:  update.ProductName,
		ProductSize:  update.ProductSize,
		Quantity:     order.Quantity,
		TotalPrice:   order.TotalPrice.StringFixed(2),
		Email:        update.Email,
		ShippingName: update.ShippingName,
	}
	if update.ShippingAddress.IsPresent() {
		addr := update.ShippingAddress
		data.ShippingAddress = &addr
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Source:        eventSource,
		Data:          data,
	}
}
