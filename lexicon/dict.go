package lexicon

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ieee0824/wordhmm-go/compose"
)

// Entry represents a single spelling of a word.
type Entry struct {
	Word     string
	Spelling []compose.Letter // letter sub-models, in order
}

// Dictionary holds word-to-spelling mappings.
type Dictionary struct {
	Entries map[string][]Entry // word -> list of alternative spellings
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{
		Entries: make(map[string][]Entry),
	}
}

// Add adds a spelling entry to the dictionary.
func (d *Dictionary) Add(word string, spelling []compose.Letter) {
	d.Entries[word] = append(d.Entries[word], Entry{
		Word:     word,
		Spelling: spelling,
	})
}

// FromWords builds a dictionary that spells every word letter by letter.
// Duplicates are added once.
func FromWords(words []string) (*Dictionary, error) {
	d := NewDictionary()
	for _, w := range words {
		if _, ok := d.Entries[w]; ok {
			continue
		}
		spelling, err := compose.Spell(w)
		if err != nil {
			return nil, err
		}
		d.Add(w, spelling)
	}
	return d, nil
}

// Load reads a spelling dictionary.
// Format: word[<TAB>letter letter ...]. A word without a spelling field is
// spelled letter by letter.
func Load(r io.Reader) (*Dictionary, error) {
	d := NewDictionary()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "\t", 2)
		word := strings.TrimSpace(parts[0])

		var spelling []compose.Letter
		if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
			for _, l := range strings.Fields(parts[1]) {
				spelling = append(spelling, compose.Letter(l))
			}
		} else {
			var err error
			if spelling, err = compose.Spell(word); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
		}

		d.Add(word, spelling)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return d, nil
}

// LoadFile is a convenience wrapper that opens a file path.
func LoadFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Lookup returns all spelling variants for a word.
func (d *Dictionary) Lookup(word string) []Entry {
	return d.Entries[word]
}

// Spelling returns the spelling for a word (first variant).
func (d *Dictionary) Spelling(word string) ([]compose.Letter, bool) {
	entries := d.Entries[word]
	if len(entries) == 0 {
		return nil, false
	}
	return entries[0].Spelling, true
}

// Words returns all words in the dictionary, sorted.
func (d *Dictionary) Words() []string {
	words := make([]string, 0, len(d.Entries))
	for w := range d.Entries {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Nearest returns the dictionary word whose spelling is closest to word's
// letters, and the edit distance. ok is false for an empty dictionary or a
// word that cannot be spelled.
func (d *Dictionary) Nearest(word string) (string, int, bool) {
	target, err := compose.Spell(word)
	if err != nil {
		return "", 0, false
	}
	best, bestDist := "", -1
	for _, w := range d.Words() {
		s, _ := d.Spelling(w)
		if dist := SpellingEditDistance(target, s); bestDist < 0 || dist < bestDist {
			best, bestDist = w, dist
		}
	}
	return best, bestDist, bestDist >= 0
}
