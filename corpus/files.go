// Package corpus reads the label corpus used to train word models: the
// label inventory, per-utterance label strings, the spoken word of each
// utterance and its speech endpoints.
//
// Every file starts with a title line that is skipped.
package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// LabelWidth is the width of one label in an unseparated label string.
const LabelWidth = 2

// ErrLength is returned when parallel corpus files disagree on the number
// of utterances.
var ErrLength = errors.New("corpus: file lengths differ")

// LabelSet maps label names to observation symbols, in file order.
type LabelSet struct {
	Names []string
	index map[string]int
}

// NewLabelSet builds a label set from names. Duplicates are rejected.
func NewLabelSet(names []string) (*LabelSet, error) {
	s := &LabelSet{Names: names, index: make(map[string]int, len(names))}
	for i, n := range names {
		if _, dup := s.index[n]; dup {
			return nil, fmt.Errorf("corpus: duplicate label %q", n)
		}
		s.index[n] = i
	}
	return s, nil
}

// Len returns the number of labels, which is the model's output alphabet
// size.
func (s *LabelSet) Len() int { return len(s.Names) }

// Index returns the symbol for name.
func (s *LabelSet) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Encode converts one utterance's labels to symbols. A line with
// whitespace is split on it; otherwise it is cut into LabelWidth
// characters per label.
func (s *LabelSet) Encode(line string) ([]int, error) {
	var names []string
	if strings.IndexFunc(line, unicode.IsSpace) >= 0 {
		names = strings.Fields(line)
	} else {
		if len(line)%LabelWidth != 0 {
			return nil, fmt.Errorf("label string of length %d is not a multiple of %d", len(line), LabelWidth)
		}
		for i := 0; i < len(line); i += LabelWidth {
			names = append(names, line[i:i+LabelWidth])
		}
	}
	out := make([]int, len(names))
	for i, n := range names {
		sym, ok := s.index[n]
		if !ok {
			return nil, fmt.Errorf("unknown label %q", n)
		}
		out[i] = sym
	}
	return out, nil
}

// readBody returns the trimmed lines after the title line.
func readBody(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	var lines []string
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum == 1 {
			continue
		}
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// ReadLabelNames reads a label-name file: one name per line.
func ReadLabelNames(r io.Reader) (*LabelSet, error) {
	lines, err := readBody(r)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, l := range lines {
		if l != "" {
			names = append(names, l)
		}
	}
	return NewLabelSet(names)
}

// ReadLabels reads a label file: one label string per utterance.
func ReadLabels(r io.Reader, set *LabelSet) ([][]int, error) {
	lines, err := readBody(r)
	if err != nil {
		return nil, err
	}
	lines = trimTrailingBlank(lines)
	out := make([][]int, len(lines))
	for i, l := range lines {
		seq, err := set.Encode(l)
		if err != nil {
			return nil, fmt.Errorf("labels line %d: %w", i+2, err)
		}
		out[i] = seq
	}
	return out, nil
}

// ReadScript reads a script file: the spoken word of each utterance.
func ReadScript(r io.Reader) ([]string, error) {
	lines, err := readBody(r)
	if err != nil {
		return nil, err
	}
	lines = trimTrailingBlank(lines)
	for i, l := range lines {
		if l == "" {
			return nil, fmt.Errorf("script line %d: empty word", i+2)
		}
	}
	return lines, nil
}

// Endpoint bounds the speech portion of an utterance: labels before
// Start and from End on are silence.
type Endpoint struct {
	Start, End int
}

// ReadEndpoints reads an endpoint file: "start end" per utterance.
func ReadEndpoints(r io.Reader) ([]Endpoint, error) {
	lines, err := readBody(r)
	if err != nil {
		return nil, err
	}
	lines = trimTrailingBlank(lines)
	out := make([]Endpoint, len(lines))
	for i, l := range lines {
		f := strings.Fields(l)
		if len(f) != 2 {
			return nil, fmt.Errorf("endpoints line %d: want 2 fields, got %d", i+2, len(f))
		}
		start, err := strconv.Atoi(f[0])
		if err != nil {
			return nil, fmt.Errorf("endpoints line %d: %w", i+2, err)
		}
		end, err := strconv.Atoi(f[1])
		if err != nil {
			return nil, fmt.Errorf("endpoints line %d: %w", i+2, err)
		}
		if start < 0 || end < start {
			return nil, fmt.Errorf("endpoints line %d: invalid range %d..%d", i+2, start, end)
		}
		out[i] = Endpoint{Start: start, End: end}
	}
	return out, nil
}

func trimTrailingBlank(lines []string) []string {
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func openWith[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, err
	}
	defer f.Close()
	v, err := read(f)
	if err != nil {
		return v, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
