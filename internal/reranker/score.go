package reranker

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// MaxRawScore is the top of the scale the model is asked to answer on.
const MaxRawScore = 10.0

var numberPattern = regexp.MustCompile(`\d+(\.\d+)?`)

// ParseScore extracts the first integer or decimal number from a model
// answer, ignoring newlines. It reports false when no number is present.
// Signs are not part of the token, so "-3" parses as 3. A number too large
// for a float64 parses as +Inf and normalizes to 1.
func ParseScore(text string) (float64, bool) {
	flat := strings.NewReplacer("\r", "", "\n", "").Replace(text)

	match := numberPattern.FindString(flat)
	if match == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(match, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return v, true
}

// Normalize maps a raw 0-10 score into [0,1], saturating outside the scale.
func Normalize(raw float64) float64 {
	return min(max(raw/MaxRawScore, 0), 1)
}
