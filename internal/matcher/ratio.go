package matcher

import (
	"math"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Ratio returns the normalized Indel similarity of a and b on a 0–100 scale:
//
//	100 * 2*LCS(a, b) / (len(a) + len(b))
//
// rounded half-to-even. Lengths are counted in runes. Two empty strings score 100.
// The comparison is case-sensitive; callers fold case first.
func Ratio(a, b string) int {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	lcs := edlib.LCS(a, b)
	return int(math.RoundToEven(100 * float64(2*lcs) / float64(total)))
}
