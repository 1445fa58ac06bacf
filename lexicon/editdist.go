package lexicon

import "github.com/ieee0824/wordhmm-go/compose"

// SpellingEditDistance is the Levenshtein distance between two spellings,
// counting letter insertions, deletions and substitutions.
func SpellingEditDistance(a, b []compose.Letter) int {
	return levenshtein(a, b)
}

func levenshtein[T comparable](a, b []T) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	// row[j] holds the distance between the current prefix of a and b[:j].
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i, x := range a {
		diag := row[0]
		row[0] = i + 1
		for j, y := range b {
			sub := diag
			if x != y {
				sub++
			}
			diag = row[j+1]
			row[j+1] = min(row[j+1]+1, row[j]+1, sub)
		}
	}
	return row[len(b)]
}
