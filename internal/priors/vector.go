package priors

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"nnetctl/internal/failure"
)

// ParseVector decodes the first row of a text-format matrix or vector,
// "[ v1 v2 ... ]".
func ParseVector(text string) ([]float64, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, failure.Wrap(failure.ErrStateMissing, "priors", "parse vector", "missing brackets", nil)
	}
	body := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(trimmed, "["), "]"))
	row, _, _ := strings.Cut(body, "\n")
	fields := strings.Fields(row)
	values := make([]float64, 0, len(fields))
	for _, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, failure.Wrap(failure.ErrStateMissing, "priors", "parse vector", fmt.Sprintf("bad element %q", field), nil)
		}
		values = append(values, v)
	}
	return values, nil
}

// ReadVector reads a text-format vector file.
func ReadVector(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.Wrap(failure.ErrStateMissing, "priors", "read vector", path, err)
	}
	values, err := ParseVector(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}

// FormatVector renders values as "[ v1 v2 ... ]".
func FormatVector(values []float64) string {
	var b strings.Builder
	b.WriteString("[")
	for _, v := range values {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	b.WriteString(" ]")
	return b.String()
}

// WriteVector writes values to w followed by a newline.
func WriteVector(w io.Writer, values []float64) error {
	_, err := io.WriteString(w, FormatVector(values)+"\n")
	return err
}
