package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Type defines the contract for parsing captured input.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "text", "number").
	Name() string
	// Parse converts the raw submission into a typed value.
	Parse(raw string) (any, error)
}

// TextType accepts any non-blank text.
type TextType struct{}

func (t *TextType) Name() string { return "text" }

func (t *TextType) Parse(raw string) (any, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("expected text, got blank input")
	}
	return s, nil
}

// NumberType parses decimal numbers into float64.
type NumberType struct{}

func (t *NumberType) Name() string { return "number" }

func (t *NumberType) Parse(raw string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, fmt.Errorf("expected number")
	}
	return f, nil
}

// PatternType constrains another type with a regular expression matched
// against the raw submission.
type PatternType struct {
	inner Type
	re    *regexp.Regexp
}

func (t *PatternType) Name() string {
	return fmt.Sprintf("%s(%s)", t.inner.Name(), t.re.String())
}

func (t *PatternType) Parse(raw string) (any, error) {
	if !t.re.MatchString(strings.TrimSpace(raw)) {
		return nil, fmt.Errorf("does not match %s", t.re.String())
	}
	return t.inner.Parse(raw)
}

// --- Factory Functions ---

// Text creates a text type.
func Text() Type { return &TextType{} }

// Number creates a number type.
func Number() Type { return &NumberType{} }

// Pattern wraps inner with a compiled regular expression.
func Pattern(inner Type, pattern string) (Type, error) {
	re, err := CompilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return &PatternType{inner: inner, re: re}, nil
}

// CompilePattern compiles an author-supplied validation expression.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid validation pattern %q: %w", pattern, err)
	}
	return re, nil
}

// ParseType converts a type name to a Type. An empty name means "text".
func ParseType(name string) (Type, error) {
	switch name {
	case "", "text":
		return Text(), nil
	case "number":
		return Number(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", name)
	}
}
