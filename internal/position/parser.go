// Package position turns OCR text into game coordinates and filters out
// misreads with a small hysteresis state machine.
package position

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Candidate is an unvalidated coordinate pair read from one frame.
type Candidate struct {
	X, Y float64
}

// tokenPattern matches two or more digits, optionally followed by more
// digit groups split by '.' or ',', and terminated by a separator.
var tokenPattern = regexp.MustCompile(`\d{2,}(?:[.,]\d+)*[,.\s]`)

const (
	minTokenDigits = 3
	maxTokenDigits = 5
)

// Parse extracts the first two coordinate tokens from text.
func Parse(text string) (Candidate, bool) {
	tokens := tokenPattern.FindAllString(text, 2)
	if len(tokens) < 2 {
		return Candidate{}, false
	}
	xs, ys := Normalize(tokens[0]), Normalize(tokens[1])
	if xs == "" || ys == "" {
		return Candidate{}, false
	}
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return Candidate{}, false
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return Candidate{}, false
	}
	return Candidate{X: x, Y: y}, true
}

// Normalize reduces an OCR token to its integer digits, or "" when the
// result is not 3 to 5 characters long.
//
// A token containing '.' treats commas as noise; otherwise commas are read
// as decimal points. Everything from the first decimal point on is dropped.
func Normalize(token string) string {
	token = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, token)

	if strings.Contains(token, ".") {
		token = strings.ReplaceAll(token, ",", "")
	} else {
		token = strings.ReplaceAll(token, ",", ".")
	}
	for strings.Contains(token, "..") {
		token = strings.ReplaceAll(token, "..", ".")
	}
	token = strings.TrimRight(token, ".")
	if i := strings.IndexByte(token, '.'); i >= 0 {
		token = token[:i]
	}

	if len(token) < minTokenDigits || len(token) > maxTokenDigits {
		return ""
	}
	return token
}
