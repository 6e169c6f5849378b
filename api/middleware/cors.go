package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS allows the configured storefront origins plus any https origin ending
// in one of the preview suffixes.
func CORS(origins, previewSuffixes []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		if o := normalizeOrigin(origin); o != "" {
			allowed[o] = struct{}{}
		}
	}

	return cors.New(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			origin = normalizeOrigin(origin)
			if _, ok := allowed[origin]; ok {
				return true
			}
			if !strings.HasPrefix(origin, "https://") {
				return false
			}
			for _, suffix := range previewSuffixes {
				if s := strings.TrimSpace(suffix); s != "" && strings.HasSuffix(origin, s) {
					return true
				}
			}
			return false
		},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}
