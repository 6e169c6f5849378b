package checkout

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	defaultProviderTimeout = 10 * time.Second
	defaultStoreTimeout    = 5 * time.Second
)

// Keys of the provider metadata side-channel. The reconciler reads the same keys back.
const (
	MetaProductName          = "productName"
	MetaProductSize          = "productSize"
	MetaQuantity             = "quantity"
	MetaShippingName         = "shippingName"
	MetaShippingAddressLine1 = "shippingAddressLine1"
	MetaShippingCity         = "shippingCity"
	MetaShippingState        = "shippingState"
	MetaShippingPostalCode   = "shippingPostalCode"
)

// SessionCreator opens hosted checkout sessions with the payment provider.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, req pkgstripe.SessionRequest) (*pkgstripe.Session, error)
}

type productCatalog interface {
	Lookup(id string) (catalog.Product, bool)
}

// Service starts checkouts.
type Service interface {
	CreateCheckout(ctx context.Context, input CreateCheckoutInput) (*CreateCheckoutResult, error)
}

// ShippingDraft is the buyer-entered shipping data; every field is optional.
type ShippingDraft struct {
	Name         string
	AddressLine1 string
	City         string
	State        string
	PostalCode   string
}

// Address returns the draft's address components.
func (d ShippingDraft) Address() types.ShippingAddress {
	return types.ShippingAddress{
		Line1:      d.AddressLine1,
		City:       d.City,
		State:      d.State,
		PostalCode: d.PostalCode,
	}.Normalized()
}

// CreateCheckoutInput is one single-item checkout request.
type CreateCheckoutInput struct {
	ProductID     string
	Size          string
	Quantity      int
	CustomerEmail string
	Shipping      ShippingDraft
}

// CreateCheckoutResult carries the redirect for the hosted payment page.
type CreateCheckoutResult struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

type ServiceParams struct {
	Catalog          productCatalog
	Sessions         SessionCreator
	Orders           orders.Repository
	Logger           *logger.Logger
	Metrics          *metrics.Metrics
	FrontendURL      string
	SuccessPath      string
	CancelPath       string
	AllowedCountries []string
	ProviderTimeout  time.Duration
	StoreTimeout     time.Duration
}

type service struct {
	catalog          productCatalog
	sessions         SessionCreator
	orders           orders.Repository
	logg             *logger.Logger
	metrics          *metrics.Metrics
	validate         *validator.Validate
	successURL       string
	cancelURL        string
	allowedCountries []string
	providerTimeout  time.Duration
	storeTimeout     time.Duration
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog required")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session creator required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	frontend := strings.TrimRight(strings.TrimSpace(params.FrontendURL), "/")
	if frontend == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "frontend url required")
	}

	successPath := params.SuccessPath
	if successPath == "" {
		successPath = "/success"
	}
	cancelPath := params.CancelPath
	if cancelPath == "" {
		cancelPath = "/cancel"
	}
	providerTimeout := params.ProviderTimeout
	if providerTimeout <= 0 {
		providerTimeout = defaultProviderTimeout
	}
	storeTimeout := params.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}

	return &service{
		catalog:          params.Catalog,
		sessions:         params.Sessions,
		orders:           params.Orders,
		logg:             params.Logger,
		metrics:          params.Metrics,
		validate:         validator.New(),
		successURL:       frontend + successPath + "?session_id=" + pkgstripe.SessionIDPlaceholder,
		cancelURL:        frontend + cancelPath,
		allowedCountries: params.AllowedCountries,
		providerTimeout:  providerTimeout,
		storeTimeout:     storeTimeout,
	}, nil
}

func (s *service) CreateCheckout(ctx context.Context, input CreateCheckoutInput) (*CreateCheckoutResult, error) {
	product, input, err := s.validateInput(input)
	if err != nil {
		s.metrics.IncCheckoutSession(metrics.CheckoutResultRejected)
		return nil, err
	}

	total := product.Price.Mul(decimal.NewFromInt(int64(input.Quantity)))
	ctx = s.logg.WithFields(ctx, map[string]any{
		"product_id": product.ID,
		"quantity":   input.Quantity,
	})

	providerCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	session, providerErr := s.sessions.CreateCheckoutSession(providerCtx, s.sessionRequest(product, input))
	cancel()

	if providerErr != nil {
		s.metrics.IncCheckoutSession(metrics.CheckoutResultFailed)
		s.logg.Error(ctx, "checkout session creation failed", providerErr)
		s.recordFailedAttempt(ctx, product, input, total)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, providerErr, "payment provider unavailable")
	}

	ctx = s.logg.WithSessionID(ctx, session.ID)
	order := s.newOrder(product, input, total)
	order.SessionID = session.ID
	order.Status = enums.OrderStatusInitiated

	storeCtx, cancelStore := context.WithTimeout(ctx, s.storeTimeout)
	defer cancelStore()
	if err := s.orders.Create(storeCtx, order); err != nil {
		s.metrics.IncCheckoutSession(metrics.CheckoutResultFailed)
		s.logg.Error(ctx, "failed to persist initiated order", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not record order")
	}

	s.metrics.IncCheckoutSession(metrics.CheckoutResultCreated)
	s.logg.Info(ctx, "checkout session created")
	return &CreateCheckoutResult{URL: session.URL, SessionID: session.ID}, nil
}

// recordFailedAttempt stores the failure sentinel row. Its own storage error is
// logged only so the caller still sees the provider error.
func (s *service) recordFailedAttempt(ctx context.Context, product catalog.Product, input CreateCheckoutInput, total decimal.Decimal) {
	order := s.newOrder(product, input, total)
	order.SessionID = models.FailedSessionID
	order.Status = enums.OrderStatusFailed

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()
	if err := s.orders.Create(storeCtx, order); err != nil {
		s.logg.Error(ctx, "failed to record failed checkout attempt", err)
	}
}

func (s *service) newOrder(product catalog.Product, input CreateCheckoutInput, total decimal.Decimal) *models.Order {
	return &models.Order{
		ProductID:       product.ID,
		ProductName:     product.Name,
		ProductSize:     input.Size,
		Quantity:        input.Quantity,
		TotalPrice:      total,
		Email:           optional(input.CustomerEmail),
		ShippingName:    optional(input.Shipping.Name),
		ShippingAddress: input.Shipping.Address(),
	}
}

func (s *service) sessionRequest(product catalog.Product, input CreateCheckoutInput) pkgstripe.SessionRequest {
	name := product.Name
	if input.Size != "" {
		name = name + " (" + input.Size + ")"
	}
	addr := input.Shipping.Address()
	return pkgstripe.SessionRequest{
		ProductName:      name,
		Description:      product.Description,
		ImageURL:         product.ImageURL,
		UnitAmountCents:  product.UnitAmountCents(),
		Quantity:         int64(input.Quantity),
		CustomerEmail:    input.CustomerEmail,
		SuccessURL:       s.successURL,
		CancelURL:        s.cancelURL,
		AllowedCountries: s.allowedCountries,
		Metadata: map[string]string{
			MetaProductName:          product.Name,
			MetaProductSize:          input.Size,
			MetaQuantity:             strconv.Itoa(input.Quantity),
			MetaShippingName:         strings.TrimSpace(input.Shipping.Name),
			MetaShippingAddressLine1: addr.Line1,
			MetaShippingCity:         addr.City,
			MetaShippingState:        addr.State,
			MetaShippingPostalCode:   addr.PostalCode,
		},
	}
}

// validateInput runs before any provider call and returns the normalized input.
func (s *service) validateInput(input CreateCheckoutInput) (catalog.Product, CreateCheckoutInput, error) {
	details := map[string]string{}
	input.ProductID = strings.TrimSpace(input.ProductID)
	input.Size = strings.TrimSpace(input.Size)
	input.CustomerEmail = strings.TrimSpace(input.CustomerEmail)

	product, ok := s.catalog.Lookup(input.ProductID)
	switch {
	case input.ProductID == "":
		details["product_id"] = "is required"
	case !ok:
		details["product_id"] = "unknown product"
	case !product.Price.IsPositive():
		details["product_id"] = "product is not priced"
	}

	if ok {
		if input.Quantity < 1 {
			details["quantity"] = "must be at least 1"
		} else if product.MaxQuantity > 0 && input.Quantity > product.MaxQuantity {
			details["quantity"] = "must be at most " + strconv.Itoa(product.MaxQuantity)
		}
		if input.Size != "" {
			if !product.OffersSize(input.Size) {
				details["size"] = "is not offered"
			} else {
				input.Size = product.CanonicalSize(input.Size)
			}
		}
	} else if input.Quantity < 1 {
		details["quantity"] = "must be at least 1"
	}

	if input.CustomerEmail != "" {
		if err := s.validate.Var(input.CustomerEmail, "email"); err != nil {
			details["customer_email"] = "must be a valid email"
		}
	}

	if len(details) > 0 {
		return catalog.Product{}, input, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return product, input, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
