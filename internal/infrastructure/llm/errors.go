package llm

import (
	"errors"
	"fmt"

	"FraudShield/internal/ports"
)

// FailureKind is a stable code for a remote classification failure.
type FailureKind string

const (
	KindAuth      FailureKind = "AUTH_FAILURE"
	KindRateLimit FailureKind = "RATE_LIMITED"
	KindNetwork   FailureKind = "NETWORK_FAILURE"
	KindMalformed FailureKind = "MALFORMED_RESPONSE"
	KindUnknown   FailureKind = "UNKNOWN_REMOTE_ERROR"
)

var (
	ErrAuth      = errors.New("classifier rejected credentials")
	ErrRateLimit = errors.New("classifier rate limited")
	ErrNetwork   = errors.New("classifier unreachable")
	ErrMalformed = errors.New("classifier response malformed")
	ErrUnknown   = errors.New("classifier returned an unexpected error")

	// ErrNoCredential is wrapped in a KindAuth RemoteError, so it also matches ErrAuth.
	ErrNoCredential = ports.ErrNoCredential
)

func (k FailureKind) sentinel() error {
	switch k {
	case KindAuth:
		return ErrAuth
	case KindRateLimit:
		return ErrRateLimit
	case KindNetwork:
		return ErrNetwork
	case KindMalformed:
		return ErrMalformed
	default:
		return ErrUnknown
	}
}

// RemoteError is the typed failure produced by the remote classifier client.
type RemoteError struct {
	Kind    FailureKind
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	msg := string(e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the sentinel of the failure kind.
func (e *RemoteError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind of err, defaulting to KindUnknown.
func KindOf(err error) FailureKind {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Kind
	}
	return KindUnknown
}

func newRemoteError(kind FailureKind, status int, message string, err error) *RemoteError {
	return &RemoteError{Kind: kind, Status: status, Message: message, Err: err}
}
