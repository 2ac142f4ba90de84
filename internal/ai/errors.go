package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrExhausted is returned when every model in the fallback chain failed.
	ErrExhausted = errors.New("all models failed")
	// ErrSchema marks a response that does not honour the requested schema.
	ErrSchema = errors.New("response violates schema")
)

// APIError is a non-2xx answer from the generative backend.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("backend error %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("backend error %d: %s", e.StatusCode, e.Message)
}

// ErrorKind tells the fallback chain how to react to a failed call.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindQuota
	KindNotFound
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindQuota:
		return "quota"
	case KindNotFound:
		return "not_found"
	case KindCanceled:
		return "canceled"
	default:
		return "other"
	}
}

// Classify maps a backend error to an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindOther
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, 529:
			return KindQuota
		case http.StatusNotFound:
			return KindNotFound
		}
		switch strings.ToUpper(apiErr.Status) {
		case "RESOURCE_EXHAUSTED", "UNAVAILABLE":
			return KindQuota
		case "NOT_FOUND":
			return KindNotFound
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "quota", "503", "overload"} {
		if strings.Contains(msg, marker) {
			return KindQuota
		}
	}
	if strings.Contains(msg, "404") {
		return KindNotFound
	}
	return KindOther
}
