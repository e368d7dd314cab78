package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput marks unusable input data (malformed rows, empty batches).
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfiguration marks missing or contradictory configuration, including credentials.
	ErrConfiguration = errors.New("configuration error")
	// ErrNavigation marks failures to load the portal form or find expected markup.
	ErrNavigation = errors.New("navigation error")
	// ErrTransport marks network or page-level failures while talking to the portal.
	ErrTransport = errors.New("transport error")
	// ErrSolver marks failures of the vision model call.
	ErrSolver = errors.New("solver error")
	// ErrBrowserLost marks loss of the browser process itself; it aborts the batch.
	ErrBrowserLost = errors.New("browser lost")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorHint returns a short operator-facing suggestion for a classified error.
func ErrorHint(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "check config and credential environment variables"
	case errors.Is(err, ErrInvalidInput):
		return "check the input CSV header and rows"
	case errors.Is(err, ErrNavigation):
		return "check portal availability and the configured selectors"
	case errors.Is(err, ErrSolver):
		return "check the model provider status and API key"
	case errors.Is(err, ErrBrowserLost):
		return "check the browser binary and restart the run"
	case errors.Is(err, ErrTransport):
		return "check network connectivity to the portal"
	default:
		return "check the run log for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
