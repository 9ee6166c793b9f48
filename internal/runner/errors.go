package runner

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers classifying pipeline failures. ErrParse degrades to the
// current file; ErrExtractionUnavailable and ErrConfiguration are fatal to
// the whole run.
var (
	ErrParse                 = errors.New("parse error")
	ErrExtractionUnavailable = errors.New("entity recognizer unavailable")
	ErrConfiguration         = errors.New("configuration error")
)

// errNotRun marks a file slot whose job was never dispatched because the
// run was cancelled first.
var errNotRun = errors.New("file not processed")

// Wrap builds an error message that includes pipeline context while tagging
// it with the provided marker for later classification.
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

// IsFatal reports whether an error must abort the run rather than just the
// current file.
func IsFatal(err error) bool {
	return errors.Is(err, ErrExtractionUnavailable) || errors.Is(err, ErrConfiguration)
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
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
