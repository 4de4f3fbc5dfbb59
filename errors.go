package currency

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures into the shared taxonomy. Provider
// specific payloads are mapped into a kind at each provider's boundary and
// never travel further up.
type ErrorKind uint8

const (
	KindUnexpected ErrorKind = iota
	KindAuthentication
	KindValidation
	KindPermission
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindPermission:
		return "permission"
	case KindNetwork:
		return "network"
	}

	return "unexpected"
}

var (
	ErrInvalidAPIKey       = errors.New("invalid API key")
	ErrInvalidBaseCurrency = errors.New("invalid base currency")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	ErrNetworkTimeout      = errors.New("network timeout")
	ErrServiceUnavailable  = errors.New("currency service unavailable")
	ErrSettingNotFound     = errors.New("setting not found")
)

// Error carries the kind and origin of a provider failure alongside the
// underlying cause. The cause is usually one of the sentinel errors above so
// callers can match with errors.Is without knowing the provider.
type Error struct {
	Kind     ErrorKind
	Provider Provider
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message

	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.Provider == EmptyProvider {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}

	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the taxonomy kind of err, unwrapping as needed. Plain
// transport errors and deadline expiry count as network failures.
func KindOf(err error) ErrorKind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}

	switch {
	case errors.Is(err, ErrInvalidAPIKey):
		return KindAuthentication
	case errors.Is(err, ErrInvalidBaseCurrency), errors.Is(err, ErrUnsupportedCurrency):
		return KindValidation
	case errors.Is(err, ErrRateLimitExceeded):
		return KindPermission
	case errors.Is(err, ErrNetworkTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	}

	return KindUnexpected
}

// IsClientError reports whether err is structural (bad key, bad currency)
// and therefore pointless to retry against the same provider.
func IsClientError(err error) bool {
	kind := KindOf(err)

	return kind == KindAuthentication || kind == KindValidation
}
