package chain

import "fmt"

// Kind classifies a fetch failure at the point it happens.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindTimeout
	KindNetwork
	KindInvalidSignature
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindInvalidSignature:
		return "invalid_signature"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// FetchError is returned by fetchers for every failure.
type FetchError struct {
	Kind Kind
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return "chain fetch: " + e.Kind.String()
	}
	return fmt.Sprintf("chain fetch: %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Pending reports whether the caller should treat the failure as
// "not found or not yet confirmed" and try again later.
func (e *FetchError) Pending() bool {
	switch e.Kind {
	case KindNotFound, KindTimeout, KindNetwork:
		return true
	default:
		return false
	}
}
