package failure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSpec            = errors.New("invalid spec")
	ErrInsufficientIterations = errors.New("insufficient iterations")
	ErrMeasurement            = errors.New("measurement error")
	ErrContextMismatch        = errors.New("context mismatch")
	ErrStateMissing           = errors.New("state missing")
	ErrLaunch                 = errors.New("launch failure")
	ErrConfiguration          = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrStateMissing
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether err must halt the training run. Measurement errors
// are absorbed by the caller (objective parsing degrades to a sentinel), so
// only they are non-fatal; unclassified errors are fatal.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrMeasurement)
}

// Mismatch records an expected/actual disagreement between the experiment
// configuration and on-disk egs metadata.
type Mismatch struct {
	Field    string
	Expected string
	Actual   string
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("%s: %s mismatch: expected %s, got %s", ErrContextMismatch, m.Field, m.Expected, m.Actual)
}

func (m *Mismatch) Unwrap() error { return ErrContextMismatch }

// NewMismatch formats expected and actual with %v.
func NewMismatch(field string, expected, actual any) *Mismatch {
	return &Mismatch{
		Field:    field,
		Expected: fmt.Sprint(expected),
		Actual:   fmt.Sprint(actual),
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
		return "controller failure"
	}
	return strings.Join(parts, ": ")
}
