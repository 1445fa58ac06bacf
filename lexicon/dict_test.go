package lexicon

import (
	"strings"
	"testing"

	"github.com/ieee0824/wordhmm-go/compose"
)

const testDict = `# spelling dictionary
bead
idea	i d e a
often	o f t e n
often	o f e n
`

func TestLoadDict(t *testing.T) {
	d, err := Load(strings.NewReader(testDict))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	entries := d.Lookup("bead")
	if len(entries) != 1 {
		t.Fatalf("bead entries = %d, want 1", len(entries))
	}
	if len(entries[0].Spelling) != 4 {
		t.Errorf("bead letters = %d, want 4", len(entries[0].Spelling))
	}
	if entries[0].Spelling[0] != compose.Letter("b") {
		t.Errorf("bead letters[0] = %s, want b", entries[0].Spelling[0])
	}

	// often has two spellings
	entries = d.Lookup("often")
	if len(entries) != 2 {
		t.Errorf("often entries = %d, want 2", len(entries))
	}
}

func TestSpelling(t *testing.T) {
	d, err := Load(strings.NewReader(testDict))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	letters, ok := d.Spelling("often")
	if !ok {
		t.Fatal("often not found")
	}
	expected := []compose.Letter{"o", "f", "t", "e", "n"}
	if len(letters) != len(expected) {
		t.Fatalf("len = %d, want %d", len(letters), len(expected))
	}
	for i := range expected {
		if letters[i] != expected[i] {
			t.Errorf("letters[%d] = %s, want %s", i, letters[i], expected[i])
		}
	}
}

func TestLoadRejectsUnspellableWord(t *testing.T) {
	_, err := Load(strings.NewReader("ok\nno-way\n"))
	if err == nil {
		t.Fatal("expected error for word with punctuation")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error = %v, want line number", err)
	}
}

func TestLookupMissing(t *testing.T) {
	d, err := Load(strings.NewReader(testDict))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	_, ok := d.Spelling("absent")
	if ok {
		t.Error("should not find nonexistent word")
	}
}

func TestWords(t *testing.T) {
	d, err := Load(strings.NewReader(testDict))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	words := d.Words()
	if len(words) != 3 {
		t.Fatalf("len(Words) = %d, want 3", len(words))
	}
	if words[0] != "bead" || words[2] != "often" {
		t.Errorf("Words = %v, want sorted", words)
	}
}

func TestFromWordsAndNearest(t *testing.T) {
	d, err := FromWords([]string{"bead", "bed", "bead", "lion"})
	if err != nil {
		t.Fatalf("FromWords error: %v", err)
	}
	if len(d.Words()) != 3 {
		t.Errorf("len(Words) = %d, want 3", len(d.Words()))
	}

	w, dist, ok := d.Nearest("beds")
	if !ok {
		t.Fatal("Nearest found nothing")
	}
	if w != "bed" || dist != 1 {
		t.Errorf("Nearest(beds) = %s, %d, want bed, 1", w, dist)
	}
}
