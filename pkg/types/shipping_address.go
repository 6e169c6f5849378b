package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ShippingAddress is persisted as a JSON blob on the orders table. Every
// component is optional; an empty string means the component is absent.
type ShippingAddress struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// IsPresent reports whether at least one component carries a value.
func (a ShippingAddress) IsPresent() bool {
	n := a.Normalized()
	return n.Line1 != "" || n.City != "" || n.State != "" || n.PostalCode != ""
}

// Normalized returns a copy with surrounding whitespace removed.
func (a ShippingAddress) Normalized() ShippingAddress {
	return ShippingAddress{
		Line1:      strings.TrimSpace(a.Line1),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
	}
}

// Value stores absent addresses as NULL.
func (a ShippingAddress) Value() (driver.Value, error) {
	if !a.IsPresent() {
		return nil, nil
	}
	raw, err := json.Marshal(a.Normalized())
	if err != nil {
		return nil, fmt.Errorf("shipping address: marshal %w", err)
	}
	return string(raw), nil
}

// Scan accepts NULL, a JSON object, or a JSON string wrapping an object (rows
// written by clients that stringified the blob before inserting it).
func (a *ShippingAddress) Scan(value interface{}) error {
	if value == nil {
		*a = ShippingAddress{}
		return nil
	}

	raw, ok := toString(value)
	if !ok {
		return fmt.Errorf("shipping address: unsupported scan type %T", value)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		*a = ShippingAddress{}
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(raw), &inner); err != nil {
			return fmt.Errorf("shipping address: decode wrapped %w", err)
		}
		raw = inner
	}

	var decoded ShippingAddress
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return fmt.Errorf("shipping address: decode %w", err)
	}
	*a = decoded.Normalized()
	return nil
}

// GormDataType keeps AutoMigrate-based test schemas on a text column.
func (ShippingAddress) GormDataType() string {
	return "text"
}

func toString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}
