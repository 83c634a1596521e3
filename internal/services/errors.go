package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAllocation marks a failed sequence-index reservation. It is fatal to
	// the whole batch.
	ErrAllocation = errors.New("allocation failure")
	// ErrTransient marks network errors, non-2xx responses, timeouts, and
	// undecodable bodies.
	ErrTransient = errors.New("transient failure")
	// ErrLogical marks a well-formed remote response that reported Success=false.
	ErrLogical = errors.New("remote rejected request")
	// ErrLocalIO marks local file read/delete failures. These are never retried.
	ErrLocalIO       = errors.New("local i/o failure")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a stable label for the marker carried by err, suitable for
// structured log fields.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAllocation):
		return "allocation"
	case errors.Is(err, ErrLocalIO):
		return "local_io"
	case errors.Is(err, ErrLogical):
		return "logical"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "transient"
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
