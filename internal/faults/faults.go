// Package faults defines the error taxonomy shared across the catalog,
// scanner, and reconcile pipeline. Every failure surfaced to the CLI is
// tagged with one of the sentinel markers below so callers can classify
// it without string matching.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfig   = errors.New("configuration error")
	ErrIO       = errors.New("io error")
	ErrStore    = errors.New("store error")
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above; a nil marker leaves the error
// untagged.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		if err != nil {
			return fmt.Errorf("%s: %w", detail, err)
		}
		return errors.New(detail)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to the stable label used in logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrIO):
		return "io"
	case errors.Is(err, ErrStore):
		return "store"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
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
		return "failure"
	}
	return strings.Join(parts, ": ")
}
