// Package auth validates the shared API key webhook callers present.
package auth

import (
	"context"
	"crypto/subtle"
)

// Authorizer validates the API key presented by an inbound request.
type Authorizer interface {
	// Authorize returns nil when the key is valid.
	Authorize(ctx context.Context, apiKey string) error
}

// StaticKey authorizes against a single configured key. An empty configured
// key disables the check entirely, which keeps local development keyless.
type StaticKey struct {
	key string
}

func NewStaticKey(key string) *StaticKey { return &StaticKey{key: key} }

func (a *StaticKey) Authorize(_ context.Context, apiKey string) error {
	if a.key == "" {
		return nil
	}
	if apiKey == "" {
		return ErrMissingAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(a.key), []byte(apiKey)) != 1 {
		return ErrInvalidAPIKey
	}
	return nil
}
