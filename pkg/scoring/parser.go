package scoring

import (
	"strconv"
	"strings"
)

const (
	DefaultScore = 50
	MinScore     = 0
	MaxScore     = 100

	// Only the head of the reply is inspected; a bare "85" fits, "Score: 85" does not.
	scoreWindow = 3
)

// ParseScore extracts a score from free model text. Anything that does not
// yield an integer in [0,100] maps to DefaultScore.
func ParseScore(text string) int {
	window := []rune(text)
	if len(window) > scoreWindow {
		window = window[:scoreWindow]
	}

	var digits strings.Builder
	for _, r := range window {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return DefaultScore
	}

	score, err := strconv.Atoi(digits.String())
	if err != nil || score < MinScore || score > MaxScore {
		return DefaultScore
	}
	return score
}
