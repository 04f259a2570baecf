package translator

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies translation failures.
type Kind int

const (
	KindUnknown Kind = iota
	// KindAuth is a rejected credential. Never retried; fatal to the job.
	KindAuth
	// KindRateLimit is a backend throttle response. Retried with backoff.
	KindRateLimit
	// KindNetwork covers transport failures and unexpected statuses. Retried.
	KindNetwork
	// KindTimeout is a read timeout. Triggers adaptive shrink, then retry.
	KindTimeout
	// KindMalformed is a response without the expected content. Not retried.
	KindMalformed
	// KindEmpty is a job whose reassembled output is blank.
	KindEmpty
	// KindCanceled is a chunk or job stopped by context cancellation.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindMalformed:
		return "malformed"
	case KindEmpty:
		return "empty"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

var (
	// ErrShrinkFloor is wrapped into a timeout that persisted at the minimum
	// chunk size or at the maximum shrink depth.
	ErrShrinkFloor = errors.New("text at minimum chunk size still times out")
	// ErrNoAPIKey is returned by backends constructed without credentials.
	ErrNoAPIKey = errors.New("API key required")
)

// Error is a classified translation failure.
type Error struct {
	Kind Kind
	// Op names the failing step, e.g. "deepseek" or "translate chunk 3".
	Op  string
	Err error
	// Status is the HTTP status code, when one was received.
	Status int
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewError returns a classified error.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the Kind of err. Unclassified context errors map to
// KindCanceled or KindTimeout; network errors to KindNetwork or KindTimeout.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}
	return KindUnknown
}

// IsRetryable reports whether err may succeed on another attempt.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimit, KindNetwork, KindTimeout:
		return true
	default:
		return false
	}
}

// classifyTransport turns an error from an HTTP round trip into an *Error.
// A cancelled parent context is reported as KindCanceled, any deadline or
// transport timeout as KindTimeout.
func classifyTransport(ctx context.Context, op string, err error) *Error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return NewError(KindCanceled, op, err)
	}
	if KindOf(err) == KindTimeout {
		return NewError(KindTimeout, op, err)
	}
	return NewError(KindNetwork, op, err)
}
