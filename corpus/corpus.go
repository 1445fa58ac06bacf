package corpus

import (
	"fmt"
	"io"
	"math/rand"
	"sort"
)

// Utterance is one spoken word and its label symbols.
type Utterance struct {
	Word   string
	Labels []int
	// Endpoint is nil when no endpoint file was given.
	Endpoint *Endpoint
}

// Silence returns the leading and trailing silence labels.
func (u Utterance) Silence() []int {
	if u.Endpoint == nil {
		return nil
	}
	start := min(u.Endpoint.Start, len(u.Labels))
	end := min(u.Endpoint.End, len(u.Labels))
	out := make([]int, 0, start+len(u.Labels)-end)
	out = append(out, u.Labels[:start]...)
	return append(out, u.Labels[end:]...)
}

// Corpus is a set of utterances over one label set.
type Corpus struct {
	Labels     *LabelSet
	Utterances []Utterance
}

// Paths names the corpus files. Endpoints is optional.
type Paths struct {
	LabelNames string `yaml:"lblnames"`
	Labels     string `yaml:"labels"`
	Script     string `yaml:"script"`
	Endpoints  string `yaml:"endpoints"`
}

// Load reads and assembles the files named by p.
func Load(p Paths) (*Corpus, error) {
	set, err := openWith(p.LabelNames, ReadLabelNames)
	if err != nil {
		return nil, err
	}
	labels, err := openWith(p.Labels, func(r io.Reader) ([][]int, error) {
		return ReadLabels(r, set)
	})
	if err != nil {
		return nil, err
	}
	script, err := openWith(p.Script, ReadScript)
	if err != nil {
		return nil, err
	}
	var endpoints []Endpoint
	if p.Endpoints != "" {
		if endpoints, err = openWith(p.Endpoints, ReadEndpoints); err != nil {
			return nil, err
		}
	}
	return Assemble(set, script, labels, endpoints)
}

// Assemble pairs the script with the label strings line by line.
// endpoints may be nil.
func Assemble(set *LabelSet, script []string, labels [][]int, endpoints []Endpoint) (*Corpus, error) {
	if len(script) != len(labels) {
		return nil, fmt.Errorf("%d script lines, %d label lines: %w", len(script), len(labels), ErrLength)
	}
	if endpoints != nil && len(endpoints) != len(labels) {
		return nil, fmt.Errorf("%d endpoint lines, %d label lines: %w", len(endpoints), len(labels), ErrLength)
	}
	c := &Corpus{Labels: set, Utterances: make([]Utterance, len(script))}
	for i, w := range script {
		c.Utterances[i] = Utterance{Word: w, Labels: labels[i]}
		if endpoints != nil {
			ep := endpoints[i]
			c.Utterances[i].Endpoint = &ep
		}
	}
	return c, nil
}

// Words returns the distinct words, sorted.
func (c *Corpus) Words() []string {
	seen := make(map[string]bool)
	var out []string
	for _, u := range c.Utterances {
		if !seen[u.Word] {
			seen[u.Word] = true
			out = append(out, u.Word)
		}
	}
	sort.Strings(out)
	return out
}

// ByWord groups the label sequences by word, in corpus order.
func (c *Corpus) ByWord() map[string][][]int {
	out := make(map[string][][]int)
	for _, u := range c.Utterances {
		out[u.Word] = append(out[u.Word], u.Labels)
	}
	return out
}

// Counts returns the frequency of every label across all utterances.
func (c *Corpus) Counts() []float64 {
	counts := make([]float64, c.Labels.Len())
	for _, u := range c.Utterances {
		for _, s := range u.Labels {
			counts[s]++
		}
	}
	return counts
}

// SilenceCounts returns the frequency of every label in the leading and
// trailing silence of each utterance.
func (c *Corpus) SilenceCounts() []float64 {
	counts := make([]float64, c.Labels.Len())
	for _, u := range c.Utterances {
		for _, s := range u.Silence() {
			counts[s]++
		}
	}
	return counts
}

// LaplaceSmooth normalizes counts into a distribution, adding one to every
// count first if any count is zero.
func LaplaceSmooth(counts []float64) []float64 {
	add := 0.0
	for _, v := range counts {
		if v == 0 {
			add = 1
			break
		}
	}
	total := 0.0
	for _, v := range counts {
		total += v + add
	}
	out := make([]float64, len(counts))
	for i, v := range counts {
		out[i] = (v + add) / total
	}
	return out
}

// Split divides every word's sequences into training and held-out sets,
// holding out round(fraction*n) of them but always training on at least
// one. The shuffle is seeded so the split is reproducible.
func (c *Corpus) Split(fraction float64, seed int64) (train, heldOut map[string][][]int) {
	rng := rand.New(rand.NewSource(seed))
	train = make(map[string][][]int)
	heldOut = make(map[string][][]int)
	groups := c.ByWord()
	for _, w := range c.Words() {
		seqs := groups[w]
		perm := rng.Perm(len(seqs))
		k := int(fraction*float64(len(seqs)) + 0.5)
		if k >= len(seqs) {
			k = len(seqs) - 1
		}
		if k < 0 {
			k = 0
		}
		for i, p := range perm {
			if i < k {
				heldOut[w] = append(heldOut[w], seqs[p])
			} else {
				train[w] = append(train[w], seqs[p])
			}
		}
	}
	return train, heldOut
}
