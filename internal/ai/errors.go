package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrModelRequestFailed matches every error produced by a language model call.
var ErrModelRequestFailed = errors.New("model request failed")

// ErrorKind classifies model failures so callers can tell them apart.
type ErrorKind string

const (
	KindTransport     ErrorKind = "transport"
	KindAuth          ErrorKind = "auth"
	KindRateLimit     ErrorKind = "rate_limit"
	KindBadRequest    ErrorKind = "bad_request"
	KindTimeout       ErrorKind = "timeout"
	KindEmptyResponse ErrorKind = "empty_response"
	KindUnknown       ErrorKind = "unknown"
)

// RequestError is returned by Client implementations when a call fails.
type RequestError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *RequestError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s request failed (%s)", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s request failed (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

func (e *RequestError) Is(target error) bool {
	return target == ErrModelRequestFailed
}

// NewRequestError wraps err. Context errors are always classified as timeout.
func NewRequestError(provider string, kind ErrorKind, err error) *RequestError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = KindTimeout
	}
	return &RequestError{Provider: provider, Kind: kind, Err: err}
}

// KindOf returns the kind of a model error, or KindUnknown.
func KindOf(err error) ErrorKind {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind
	}
	return KindUnknown
}

// ClassifyStatus maps an HTTP status code returned by a provider API.
func ClassifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return KindTimeout
	case code >= 500:
		return KindTransport
	case code >= 400:
		return KindBadRequest
	default:
		return KindUnknown
	}
}
