// Package calc evaluates the arithmetic users type in plain language.
package calc

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// ErrInvalidExpression is returned for input that is not plain arithmetic.
var ErrInvalidExpression = errors.New("invalid expression")

var (
	fillerWords = regexp.MustCompile(`\b(what is|what's|calculate|compute|solve)\b`)
	percentOf   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%\s*of\s*(\d+(?:\.\d+)?)`)
	allowed     = regexp.MustCompile(`^[\d+\-*/().^]+$`)
	spaces      = regexp.MustCompile(`\s+`)
	timesX      = regexp.MustCompile(`(\d)\s*x\s*(\d)`)
)

// Longer phrases first so "multiplied by" is not eaten by "multiply".
var wordOperators = []struct{ word, symbol string }{
	{"multiplied by", "*"},
	{"divided by", "/"},
	{"to the power of", "^"},
	{"squared", "^2"},
	{"cubed", "^3"},
	{"multiply", "*"},
	{"divide", "/"},
	{"power", "^"},
	{"times", "*"},
	{"plus", "+"},
	{"minus", "-"},
}

// Normalize rewrites a natural-language expression into symbols. The
// result is not validated.
func Normalize(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = fillerWords.ReplaceAllString(s, "")
	s = strings.NewReplacer("?", "", "=", "", ",", "").Replace(s)
	s = percentOf.ReplaceAllString(s, "($1*$2/100)")

	for _, op := range wordOperators {
		s = strings.ReplaceAll(s, op.word, op.symbol)
	}
	s = timesX.ReplaceAllString(s, "$1*$2")

	return spaces.ReplaceAllString(s, "")
}

// Evaluate computes the value of input.
func Evaluate(input string) (float64, error) {
	s := Normalize(input)
	if s == "" || !allowed.MatchString(s) {
		return 0, fmt.Errorf("%q: %w", input, ErrInvalidExpression)
	}
	s = strings.ReplaceAll(s, "^", "**")

	out, err := expr.Eval(s, nil)
	if err != nil {
		return 0, fmt.Errorf("%q: %w: %v", input, ErrInvalidExpression, err)
	}

	var v float64
	switch n := out.(type) {
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case float64:
		v = n
	default:
		return 0, fmt.Errorf("%q: %w: non-numeric result", input, ErrInvalidExpression)
	}

	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%q: %w: undefined result", input, ErrInvalidExpression)
	}
	return v, nil
}

// Format renders a result without trailing zeros.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
