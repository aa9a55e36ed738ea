package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUserNotFound is returned by stores when the identity has no backing record.
var ErrUserNotFound = errors.New("user not found")

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ParseScore decodes a raw JSON value that must be a number.
// Strings holding digits, booleans, null and absent values are all rejected.
func ParseScore(raw json.RawMessage) (float64, error) {
	invalid := &ValidationError{Field: "score", Message: "Score must be a number"}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0, invalid
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return 0, invalid
	}
	f, ok := v.(float64)
	if !ok {
		return 0, invalid
	}
	return f, nil
}

// CoerceScore accepts a JSON number or a string holding one, such as "42".
// Anything else, including non-finite values, is rejected.
func CoerceScore(raw json.RawMessage) (float64, error) {
	if f, err := ParseScore(raw); err == nil {
		return f, nil
	}
	invalid := &ValidationError{Field: "score", Message: "Score must be numeric"}
	var s string
	if err := json.Unmarshal(bytes.TrimSpace(raw), &s); err != nil {
		return 0, invalid
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalid
	}
	return f, nil
}
