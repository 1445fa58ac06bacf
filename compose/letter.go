package compose

import (
	"fmt"
	"strings"
)

// Letter identifies a spelled letter sub-model.
type Letter string

// Letters without a prototype in the standard inventory.
const excludedLetters = "kqz"

// AllLetters returns the letters of the standard inventory, a..z without
// k, q and z.
func AllLetters() []Letter {
	out := make([]Letter, 0, 26-len(excludedLetters))
	for c := 'a'; c <= 'z'; c++ {
		if strings.ContainsRune(excludedLetters, c) {
			continue
		}
		out = append(out, Letter(string(c)))
	}
	return out
}

// Spell splits a word into its letters. Case is folded; anything outside
// a..z is rejected.
func Spell(word string) ([]Letter, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return nil, fmt.Errorf("spell: empty word")
	}
	out := make([]Letter, 0, len(word))
	for _, c := range word {
		if c < 'a' || c > 'z' {
			return nil, fmt.Errorf("spell %q: invalid character %q", word, c)
		}
		out = append(out, Letter(string(c)))
	}
	return out, nil
}
