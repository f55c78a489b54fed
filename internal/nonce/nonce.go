// Package nonce issues and consumes single-use sign-in nonces.
package nonce

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"
)

// DefaultTTL bounds how long an issued nonce stays valid.
const DefaultTTL = 5 * time.Minute

const size = 32

// Store persists nonces until consumed or expired.
type Store interface {
	// Put saves value for ttl.
	Put(ctx context.Context, value string, ttl time.Duration) error
	// Consume atomically removes value; it fails with errs.ErrNonceInvalid
	// when value is unknown, already consumed or expired.
	Consume(ctx context.Context, value string) error
}

// Generate returns 32 random bytes, standard base64 encoded.
func Generate() (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
