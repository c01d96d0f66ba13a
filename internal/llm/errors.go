package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorKind classifies failures of the generation backend
type ErrorKind string

const (
	KindRegion    ErrorKind = "region"
	KindAuth      ErrorKind = "auth"
	KindRateLimit ErrorKind = "rate_limit"
	KindTimeout   ErrorKind = "timeout"
	KindOther     ErrorKind = "other"
)

var (
	// ErrStreamAborted is returned when the stream consumer asked to stop
	ErrStreamAborted = errors.New("stream aborted by consumer")
	// ErrNoChoices is returned for a completion without choices
	ErrNoChoices = errors.New("no choices in response")
)

// APIError is a non-2xx answer from the backend
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// KindOf classifies err. Status codes win over message markers.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindOther
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusForbidden:
			return KindRegion
		case http.StatusUnauthorized:
			return KindAuth
		case http.StatusTooManyRequests:
			return KindRateLimit
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "country, region, or territory not supported"),
		strings.Contains(msg, "unsupported_country_region_territory"):
		return KindRegion
	case strings.Contains(msg, "invalid api key"), strings.Contains(msg, "invalid_api_key"):
		return KindAuth
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "rate_limit"):
		return KindRateLimit
	}
	return KindOther
}

// IsRegionRestricted reports whether err is a geographic availability refusal
func IsRegionRestricted(err error) bool {
	return KindOf(err) == KindRegion
}
