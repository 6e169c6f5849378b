package stripewebhook

import (
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ResolveString picks the value written for an optional order field.
// The authoritative provider value wins, then the stored value, then the
// metadata echo. When every tier is empty the stored value is returned as-is.
func ResolveString(authoritative string, stored *string, metadata string) *string {
	if v := strings.TrimSpace(authoritative); v != "" {
		return &v
	}
	if stored != nil && strings.TrimSpace(*stored) != "" {
		return stored
	}
	if v := strings.TrimSpace(metadata); v != "" {
		return &v
	}
	return stored
}

// ResolveAddress applies the same precedence to the whole address. An
// address counts only when at least one component is non-empty; tiers are
// never mixed component by component.
func ResolveAddress(authoritative, stored, metadata types.ShippingAddress) types.ShippingAddress {
	switch {
	case authoritative.IsPresent():
		return authoritative.Normalized()
	case stored.IsPresent():
		return stored
	case metadata.IsPresent():
		return metadata.Normalized()
	default:
		return stored
	}
}

// fillIfEmpty keeps a stored descriptive value and only backfills it.
func fillIfEmpty(stored, metadata string) string {
	if strings.TrimSpace(stored) != "" {
		return stored
	}
	return strings.TrimSpace(metadata)
}
