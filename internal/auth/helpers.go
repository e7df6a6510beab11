package auth

import (
	"net/http"
	"strings"
)

// ExtractAPIKey reads the API key from a request. The X-Api-Key header is
// the primary carrier; an "Authorization: Bearer <key>" header is accepted
// as a fallback for gateways that cannot set custom headers.
func ExtractAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-Api-Key")); key != "" {
		return key
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
