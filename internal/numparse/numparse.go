// Package numparse reads and prints numbers the way request parameters are
// read and written by the gateway: lenient leading-integer parsing and the
// shortest round-trip decimal rendering, with NaN and the infinities as
// ordinary values.
package numparse

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseInt parses the leading integer of s.
//
// Leading whitespace is skipped, an optional sign and a 0x/0X prefix are
// honoured, and everything after the first non-digit is ignored. It returns
// NaN when no digit is found, so ParseInt("3abc") == 3 and ParseInt("abc") is
// NaN.
func ParseInt(s string) float64 {
	s = strings.TrimLeftFunc(s, isSpace)

	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	var n float64
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		n = parseHex(s[2:])
	} else {
		n = parseDecimal(s)
	}
	if neg {
		return -n
	}
	return n
}

func parseDecimal(s string) float64 {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return math.NaN()
	}
	// ParseFloat rounds correctly and saturates to Inf on overflow, which is
	// the result we want for very long digit runs.
	f, _ := strconv.ParseFloat(s[:end], 64)
	return f
}

func parseHex(s string) float64 {
	var n float64
	digits := 0
	for _, c := range []byte(s) {
		d := hexDigit(c)
		if d < 0 {
			break
		}
		n = n*16 + float64(d)
		digits++
	}
	if digits == 0 {
		return math.NaN()
	}
	return n
}

func hexDigit(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Format renders f as text: "NaN", "Infinity" and "-Infinity" for the
// non-finite values, plain digits for integers below 1e21, and exponent form
// ("1e+21") beyond that. Negative zero prints as "0".
func Format(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		return trimExponent(strconv.FormatFloat(f, 'e', -1, 64))
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// trimExponent turns "1e+07" into "1e+7".
func trimExponent(s string) string {
	i := strings.IndexByte(s, 'e')
	if i < 0 || i+2 >= len(s) {
		return s
	}
	mantissa, sign, digits := s[:i], s[i+1], strings.TrimLeft(s[i+2:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + string(sign) + digits
}
