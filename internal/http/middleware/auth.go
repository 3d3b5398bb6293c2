package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/aicarousel/gateway/internal/domain"
	"github.com/aicarousel/gateway/internal/format/anthropic"
	"github.com/aicarousel/gateway/internal/format/openai"
	"github.com/aicarousel/gateway/internal/observability"
)

var publicPrefixes = []string{"/health", "/v1/models"}

func isPublicPath(path string) bool {
	if path == "/health" {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func isAnthropicPath(path string) bool {
	return strings.HasPrefix(path, "/v1/messages")
}

// Auth extracts a caller's API key from Authorization: Bearer or x-api-key
// and validates it against store, rejecting requests to non-public paths
// with a format-matching 401 body.
func Auth(store domain.CredentialStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			presented := extractKey(r)
			if presented == "" {
				writeUnauthorized(w, r, "Missing API key")
				return
			}

			record, err := store.Validate(r.Context(), presented)
			if err != nil {
				observability.FromContext(r.Context()).Warn("api key validation failed", observability.Error(err))
				writeUnauthorized(w, r, "Invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyContextKey{}, record)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("x-api-key")
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	if isAnthropicPath(r.URL.Path) {
		anthropic.WriteError(w, http.StatusUnauthorized, "authentication_error", message)
		return
	}
	openai.WriteError(w, http.StatusUnauthorized, "invalid_request_error", "invalid_api_key", message)
}

type apiKeyContextKey struct{}

// APIKeyFromContext returns the caller's validated credential, if Auth ran.
func APIKeyFromContext(ctx context.Context) (*domain.ApiKeyRecord, bool) {
	record, ok := ctx.Value(apiKeyContextKey{}).(*domain.ApiKeyRecord)
	return record, ok
}
