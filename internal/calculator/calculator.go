package calculator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// ControlPrefix marks a delimiter declaration on the first line of the input.
	ControlPrefix = "//"
	// DefaultDelimiter is used when the input carries no declaration.
	DefaultDelimiter = ','
	// MaxValue is the largest number that still counts towards the sum.
	MaxValue = 1000
)

// ErrInvalidNegativeNumbers is matched by every *NegativeNumbersError via errors.Is.
var ErrInvalidNegativeNumbers = errors.New("negatives not allowed")

// NegativeNumbersError lists every negative number found, in input order.
type NegativeNumbersError struct {
	Numbers []int
}

func (e *NegativeNumbersError) Error() string {
	parts := make([]string, len(e.Numbers))
	for i, n := range e.Numbers {
		parts[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidNegativeNumbers, strings.Join(parts, ", "))
}

func (e *NegativeNumbersError) Is(target error) bool { return target == ErrInvalidNegativeNumbers }

// Result is the outcome of a successful evaluation.
type Result struct {
	Sum        int
	Delimiters []rune // distinct delimiter characters, in declaration order
	Numbers    []int  // values that were summed
	Ignored    []int  // values dropped for exceeding the threshold
}

// Calculator holds the immutable rules of the add pipeline.
// Zero-valued fields fall back to the package constants.
type Calculator struct {
	ControlPrefix    string
	DefaultDelimiter rune
	MaxValue         int
}

// New returns a Calculator with the default rules.
func New() *Calculator {
	return &Calculator{
		ControlPrefix:    ControlPrefix,
		DefaultDelimiter: DefaultDelimiter,
		MaxValue:         MaxValue,
	}
}

var std = New()

// Add sums the numbers in input using the default rules.
func Add(input string) (int, error) { return std.Add(input) }

// Add returns the sum of the numbers in input, or a *NegativeNumbersError.
func (c *Calculator) Add(input string) (int, error) {
	res, err := c.Evaluate(input)
	if err != nil {
		return 0, err
	}
	return res.Sum, nil
}

// Evaluate runs the full pipeline and reports what was summed and what was dropped.
func (c *Calculator) Evaluate(input string) (Result, error) {
	if input == "" {
		return Result{}, nil
	}
	delims, body := c.split(input)
	body = strings.Map(func(r rune) rune {
		if isLineBreak(r) && !containsRune(delims, r) {
			return -1
		}
		return r
	}, body)

	res := Result{Delimiters: delims}
	var negatives []int
	tokens := strings.FieldsFunc(body, func(r rune) bool { return containsRune(delims, r) })
	for _, tok := range tokens {
		n, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		if n > c.maxValue() {
			res.Ignored = append(res.Ignored, n)
			continue
		}
		if n < 0 {
			negatives = append(negatives, n)
			continue
		}
		res.Numbers = append(res.Numbers, n)
		res.Sum += n
	}
	if len(negatives) > 0 {
		return Result{}, &NegativeNumbersError{Numbers: negatives}
	}
	return res, nil
}

// split separates the delimiter declaration from the number body.
// A declaration without a newline leaves an empty body; an empty
// declaration keeps the default delimiter.
func (c *Calculator) split(input string) ([]rune, string) {
	def := []rune{c.defaultDelimiter()}
	prefix := c.controlPrefix()
	if !strings.HasPrefix(input, prefix) {
		return def, input
	}
	decl, body, _ := strings.Cut(input[len(prefix):], "\n")
	decl = strings.TrimSuffix(decl, "\r")
	var delims []rune
	for _, r := range decl {
		if !containsRune(delims, r) {
			delims = append(delims, r)
		}
	}
	if len(delims) == 0 {
		return def, body
	}
	return delims, body
}

// isLineBreak reports the characters that join body lines. Besides LF and
// CR this covers VT, FF, NEL and the Unicode line and paragraph separators.
func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

func (c *Calculator) controlPrefix() string {
	if c.ControlPrefix == "" {
		return ControlPrefix
	}
	return c.ControlPrefix
}

func (c *Calculator) defaultDelimiter() rune {
	if c.DefaultDelimiter == 0 {
		return DefaultDelimiter
	}
	return c.DefaultDelimiter
}

func (c *Calculator) maxValue() int {
	if c.MaxValue == 0 {
		return MaxValue
	}
	return c.MaxValue
}

func containsRune(set []rune, r rune) bool {
	for _, d := range set {
		if d == r {
			return true
		}
	}
	return false
}
