package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/lattice/pkg/schema"
)

var (
	// DefaultMaxInputSize caps free-form answers at 4KB.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize is the environment variable to override the default
	EnvMaxInputSize = "LATTICE_MAX_INPUT_SIZE"
)

// Tighter caps by answer shape. A number, date, rating or color answer has
// no business being longer than a line fragment, and choice answers are
// bounded by the option values plus separators.
const (
	maxScalarInput = 128
	maxChoiceInput = 512
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput cleans a free-form answer: it enforces the configured size
// limit, validates UTF-8, and strips dangerous control characters while
// preserving newlines and tabs.
func SanitizeInput(input string) (string, error) {
	return sanitize(input, getMaxInputSize(), true)
}

// SanitizeFieldInput is SanitizeInput fitted to the field's answer shape.
// Scalar answers (numbers, sliders, ratings, dates, colors, yes/no) get a
// tight cap and single-line treatment; choice and list answers a medium
// one; text, rich text and JSON keep the free-form limit and may span
// lines.
func SanitizeFieldInput(f schema.Field, input string) (string, error) {
	limit := getMaxInputSize()
	multiline := false

	switch f.Type {
	case schema.FieldNumber, schema.FieldSlider, schema.FieldRating,
		schema.FieldDateTime, schema.FieldColor, schema.FieldCheckbox:
		if limit > maxScalarInput {
			limit = maxScalarInput
		}
	case schema.FieldSelect, schema.FieldRadio, schema.FieldMultiSelect,
		schema.FieldCheckboxGroup, schema.FieldArray, schema.FieldFile:
		if limit > maxChoiceInput {
			limit = maxChoiceInput
		}
	default:
		multiline = true
	}
	return sanitize(input, limit, multiline)
}

func sanitize(input string, limit int, multiline bool) (string, error) {
	// Reject oversized answers rather than truncate, so what validates is
	// exactly what the user typed.
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Strip control characters: ANSI escapes, NULL, BEL and friends are
	// removed so a pasted answer cannot poison logs or corrupt the
	// terminal. Single-line answers also drop newlines and tabs.
	keep := func(r rune) bool {
		if !unicode.IsControl(r) {
			return true
		}
		return multiline && (r == '\n' || r == '\t' || r == '\r')
	}

	// Fast path: nothing to strip.
	clean := true
	for _, r := range input {
		if !keep(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if keep(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func getMaxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
