package stripewebhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func strPtr(v string) *string { return &v }

func TestResolveStringPrecedence(t *testing.T) {
	cases := []struct {
		name          string
		authoritative string
		stored        *string
		metadata      string
		want          string
	}{
		{name: "authoritative wins", authoritative: "Jane", stored: strPtr("J. Doe"), metadata: "Jane D", want: "Jane"},
		{name: "stored beats metadata", authoritative: "", stored: strPtr("J. Doe"), metadata: "Jane D", want: "J. Doe"},
		{name: "metadata as last resort", authoritative: "", stored: nil, metadata: "Jane D", want: "Jane D"},
		{name: "blank stored falls through", authoritative: "  ", stored: strPtr(" "), metadata: "Jane D", want: "Jane D"},
		{name: "authoritative trimmed", authoritative: " Jane ", stored: nil, metadata: "", want: "Jane"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveString(tc.authoritative, tc.stored, tc.metadata)
			require.NotNil(t, got)
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestResolveStringAllEmptyKeepsStored(t *testing.T) {
	assert.Nil(t, ResolveString("", nil, ""))

	blank := strPtr("")
	assert.Same(t, blank, ResolveString("", blank, " "))
}

func TestResolveStringNeverDropsStoredValue(t *testing.T) {
	empties := []string{"", " ", "\t"}
	for _, auth := range empties {
		for _, meta := range empties {
			got := ResolveString(auth, strPtr("kept@example.com"), meta)
			require.NotNil(t, got)
			assert.Equal(t, "kept@example.com", *got)
		}
	}
}

func TestResolveStringIsIdempotent(t *testing.T) {
	inputs := []struct {
		auth, meta string
		stored     *string
	}{
		{"a@b.com", "", strPtr("draft@example.com")},
		{"", "meta@example.com", nil},
		{"", "", strPtr("draft@example.com")},
		{"", "", nil},
	}
	for _, in := range inputs {
		once := ResolveString(in.auth, in.stored, in.meta)
		twice := ResolveString(in.auth, once, in.meta)
		assert.Equal(t, once, twice)
	}
}

func TestResolveAddressWholeObjectPrecedence(t *testing.T) {
	stored := types.ShippingAddress{Line1: "123 Main St", City: "Austin"}
	meta := types.ShippingAddress{Line1: "9 Meta Rd", PostalCode: "10001"}

	authoritative := types.ShippingAddress{City: " Denver "}
	got := ResolveAddress(authoritative, stored, meta)
	assert.Equal(t, types.ShippingAddress{City: "Denver"}, got)

	got = ResolveAddress(types.ShippingAddress{}, stored, meta)
	assert.Equal(t, stored, got)

	got = ResolveAddress(types.ShippingAddress{}, types.ShippingAddress{}, meta)
	assert.Equal(t, meta, got)
}

func TestResolveAddressIgnoresBlankStructuredAddress(t *testing.T) {
	blank := types.ShippingAddress{Line1: " ", City: "", State: "\t"}
	meta := types.ShippingAddress{Line1: "9 Meta Rd"}

	got := ResolveAddress(blank, types.ShippingAddress{}, meta)
	assert.Equal(t, "9 Meta Rd", got.Line1)
	assert.False(t, ResolveAddress(blank, types.ShippingAddress{}, types.ShippingAddress{}).IsPresent())
}

func TestFillIfEmpty(t *testing.T) {
	assert.Equal(t, "Shirt", fillIfEmpty("Shirt", "Other"))
	assert.Equal(t, "Other", fillIfEmpty("", " Other "))
}
