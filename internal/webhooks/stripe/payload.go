package stripewebhook

import (
	"encoding/json"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// sessionPayload is the subset of a checkout.session object the reconciler reads.
// Newer API versions nest shipping under collected_information; older ones
// put it at the top level.
type sessionPayload struct {
	ID              string `json:"id"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	CollectedInformation *struct {
		ShippingDetails *shippingDetails `json:"shipping_details"`
	} `json:"collected_information"`
	ShippingDetails *shippingDetails  `json:"shipping_details"`
	Metadata        map[string]string `json:"metadata"`
}

type shippingDetails struct {
	Name    string `json:"name"`
	Address *struct {
		Line1      string `json:"line1"`
		City       string `json:"city"`
		State      string `json:"state"`
		PostalCode string `json:"postal_code"`
	} `json:"address"`
}

func decodeSession(raw json.RawMessage) (*sessionPayload, error) {
	var payload sessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	payload.ID = strings.TrimSpace(payload.ID)
	return &payload, nil
}

func (p *sessionPayload) email() string {
	if v := strings.TrimSpace(p.CustomerEmail); v != "" {
		return v
	}
	if p.CustomerDetails != nil {
		return strings.TrimSpace(p.CustomerDetails.Email)
	}
	return ""
}

func (p *sessionPayload) shipping() *shippingDetails {
	if p.CollectedInformation != nil && p.CollectedInformation.ShippingDetails != nil {
		return p.CollectedInformation.ShippingDetails
	}
	return p.ShippingDetails
}

func (p *sessionPayload) shippingName() string {
	if s := p.shipping(); s != nil {
		return s.Name
	}
	return ""
}

func (p *sessionPayload) shippingAddress() types.ShippingAddress {
	s := p.shipping()
	if s == nil || s.Address == nil {
		return types.ShippingAddress{}
	}
	return types.ShippingAddress{
		Line1:      s.Address.Line1,
		City:       s.Address.City,
		State:      s.Address.State,
		PostalCode: s.Address.PostalCode,
	}
}

func (p *sessionPayload) meta(key string) string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata[key]
}

func (p *sessionPayload) metadataAddress() types.ShippingAddress {
	return types.ShippingAddress{
		Line1:      p.meta(checkout.MetaShippingAddressLine1),
		City:       p.meta(checkout.MetaShippingCity),
		State:      p.meta(checkout.MetaShippingState),
		PostalCode: p.meta(checkout.MetaShippingPostalCode),
	}
}
