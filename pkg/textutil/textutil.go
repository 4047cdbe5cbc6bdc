package textutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// CollapseWhitespace replaces every run of whitespace with a single space.
func CollapseWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// NormalizeName lowercases a name, replaces everything that is not a letter
// or a digit with a space and collapses the result.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, name)
	name = CollapseWhitespace(name)
	return strings.Trim(name, " ")
}

// IsNumeric reports whether s is non-empty and consists only of digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ParseMinorUnits parses a decimal amount ("1234.56") into minor units,
// truncating anything below one minor unit.
func ParseMinorUnits(amount string) (int64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return int64(value * 100), nil
}

// ParseLocalizedMinorUnits parses amounts as they are rendered in print forms
// and exports ("1 234 567,89", "131 274,00 ₽"), only digits and commas are
// kept and the comma is treated as the decimal separator.
func ParseLocalizedMinorUnits(amount string) (int64, error) {
	kept := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == ',' {
			return r
		}
		return -1
	}, amount)
	return ParseMinorUnits(strings.ReplaceAll(kept, ",", "."))
}
