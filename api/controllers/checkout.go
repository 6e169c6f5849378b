package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxFieldLen = 255

type checkoutRequest struct {
	ProductID            string `json:"product_id" validate:"required"`
	Size                 string `json:"size"`
	Quantity             int    `json:"quantity"`
	CustomerEmail        string `json:"customer_email"`
	ShippingName         string `json:"shipping_name"`
	ShippingAddressLine1 string `json:"shipping_address_line1"`
	ShippingCity         string `json:"shipping_city"`
	ShippingState        string `json:"shipping_state"`
	ShippingPostalCode   string `json:"shipping_postal_code"`
}

func (r checkoutRequest) input() checkoutsvc.CreateCheckoutInput {
	return checkoutsvc.CreateCheckoutInput{
		ProductID:     validators.SanitizeString(r.ProductID, maxFieldLen),
		Size:          validators.SanitizeString(r.Size, maxFieldLen),
		Quantity:      r.Quantity,
		CustomerEmail: validators.SanitizeString(r.CustomerEmail, maxFieldLen),
		Shipping: checkoutsvc.ShippingDraft{
			Name:         validators.SanitizeString(r.ShippingName, maxFieldLen),
			AddressLine1: validators.SanitizeString(r.ShippingAddressLine1, maxFieldLen),
			City:         validators.SanitizeString(r.ShippingCity, maxFieldLen),
			State:        validators.SanitizeString(r.ShippingState, maxFieldLen),
			PostalCode:   validators.SanitizeString(r.ShippingPostalCode, maxFieldLen),
		},
	}
}

// legacyCheckoutRequest is the body sent by the original storefront UI. The
// product's price is ignored; the catalog is authoritative.
type legacyCheckoutRequest struct {
	Product *struct {
		ID string `json:"id"`
	} `json:"product"`
	Quantity             *int   `json:"quantity"`
	CustomerEmail        string `json:"customerEmail"`
	SelectedSize         string `json:"selectedSize"`
	ShippingName         string `json:"shippingName"`
	ShippingAddressLine1 string `json:"shippingAddressLine1"`
	ShippingCity         string `json:"shippingCity"`
	ShippingState        string `json:"shippingState"`
	ShippingPostalCode   string `json:"shippingPostalCode"`
}

func (r legacyCheckoutRequest) normalize() checkoutRequest {
	req := checkoutRequest{
		Size:                 r.SelectedSize,
		Quantity:             1,
		CustomerEmail:        r.CustomerEmail,
		ShippingName:         r.ShippingName,
		ShippingAddressLine1: r.ShippingAddressLine1,
		ShippingCity:         r.ShippingCity,
		ShippingState:        r.ShippingState,
		ShippingPostalCode:   r.ShippingPostalCode,
	}
	if r.Product != nil {
		req.ProductID = r.Product.ID
	}
	if r.Quantity != nil {
		req.Quantity = *r.Quantity
	}
	return req
}

// CheckoutCreate opens a hosted checkout session for one catalog item.
func CheckoutCreate(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateCheckout(r.Context(), payload.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// LegacyCheckoutCreate serves POST /create-checkout-session and answers with
// a bare {"url": ...} object.
func LegacyCheckoutCreate(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload legacyCheckoutRequest
		if err := validators.DecodeLenientJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateCheckout(r.Context(), payload.normalize().input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, map[string]string{"url": result.URL})
	}
}
