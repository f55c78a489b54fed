// Package limiter throttles failed wallet sign-in attempts.
package limiter

import (
	"context"
	"time"
)

// Limiter controls sign-in attempts and temporary lockouts per (wallet, ip).
type Limiter interface {
	// Allow reports whether a sign-in is currently allowed and, if not, for how long it stays blocked.
	Allow(ctx context.Context, wallet string, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a verified sign-in.
	Success(ctx context.Context, wallet string, ipHash []byte) error
	// Failure records a rejected attempt; may place a temporary block.
	Failure(ctx context.Context, wallet string, ipHash []byte) (bool, time.Duration, error)
}

// Defaults applied by the server.
const (
	DefaultWindow   = 15 * time.Minute
	DefaultMaxFails = 5
	DefaultBlockFor = 15 * time.Minute
)
