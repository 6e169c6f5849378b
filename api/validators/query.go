package validators

import (
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// RequiredQueryString returns the trimmed value of a mandatory query parameter.
func RequiredQueryString(r *http.Request, key string, maxLen int) (string, error) {
	value := SanitizeString(r.URL.Query().Get(key), maxLen)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "query parameter is required").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

// PathParam trims a router path value; empty values are rejected.
func PathParam(raw, field string, maxLen int) (string, error) {
	value := SanitizeString(raw, maxLen)
	if value == "" || strings.ContainsAny(value, "/?#") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid path parameter").WithDetails(map[string]any{"field": field})
	}
	return value, nil
}
