// Package apierr provides shared error sentinels for the HTTP-based
// transcription providers. Provider-specific failures are classified into
// these sentinels at the adapter boundary.
//
// Providers wrap them using fmt.Errorf("%s: %w", msg, sentinel).
// Callers check with errors.Is(err, apierr.ErrRateLimit) etc.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for API interaction failures.
var (
	// ErrRateLimit indicates the API rate limit was exceeded (temporary).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the API quota was exceeded (billing issue).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request timed out, or the service did not reach
	// a terminal status before the deadline.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates API authentication failed (invalid key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")

	// ErrUnavailable indicates a server-side error (5xx).
	ErrUnavailable = errors.New("service unavailable")

	// ErrNetwork indicates the request never produced an HTTP response.
	ErrNetwork = errors.New("network error")

	// ErrServiceFailed indicates the service accepted the job but reported
	// an explicit failure status for it.
	ErrServiceFailed = errors.New("service reported failure")
)

// FromStatus maps an HTTP status code and service message to a sentinel.
// Returns nil for 2xx codes.
func FromStatus(statusCode int, msg string) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		if strings.Contains(msg, "quota") || strings.Contains(msg, "billing") {
			return fmt.Errorf("%s: %w", msg, ErrQuotaExceeded)
		}
		return fmt.Errorf("%s: %w", msg, ErrRateLimit)
	case statusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", msg, ErrAuthFailed)
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w", msg, ErrTimeout)
	case statusCode >= 500:
		return fmt.Errorf("HTTP %d: %s: %w", statusCode, msg, ErrUnavailable)
	case statusCode >= 400:
		return fmt.Errorf("%s: %w", msg, ErrBadRequest)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, msg)
	}
}

// FromTransport classifies an error returned by an HTTP client's Do method.
// Context errors keep their identity so callers can still detect cancellation.
func FromTransport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// IsTransient reports whether err is a failure that may succeed if the
// caller re-invokes the whole operation later.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
