package compose

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ieee0824/wordhmm-go/hmm"
)

// Inventory holds the prototypes a composite word model is assembled
// from. Prototypes are read-only templates; Build copies them.
type Inventory struct {
	Letters map[Letter]*hmm.Model
	Silence *hmm.Model
}

// NewInventory returns an inventory with the given silence prototype and
// no letters.
func NewInventory(silence *hmm.Model) *Inventory {
	return &Inventory{
		Letters: make(map[Letter]*hmm.Model),
		Silence: silence,
	}
}

// StandardInventory builds the silence prototype and one letter prototype
// per letter of AllLetters. letterEmit and silenceEmit seed the emission
// columns; nil means uniform.
func StandardInventory(outputs int, letterEmit, silenceEmit []float64) (*Inventory, error) {
	sil, err := NewSilencePrototype(outputs, silenceEmit)
	if err != nil {
		return nil, fmt.Errorf("silence prototype: %w", err)
	}
	inv := NewInventory(sil)
	for _, l := range AllLetters() {
		p, err := NewLetterPrototype(outputs, letterEmit)
		if err != nil {
			return nil, fmt.Errorf("letter %q prototype: %w", string(l), err)
		}
		p.Name = "letter:" + string(l)
		if err := inv.Register(l, p); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// Register adds or replaces the prototype for l. The prototype must be an
// open sub-model: every row but the last sums to one and the last row
// leaves an exit mass in (0, 1] that becomes the glue arc into the next
// block. A closed model, whose last row already sums to one, is rejected
// with a *PrototypeError even though it passes hmm.Model.Validate.
func (inv *Inventory) Register(l Letter, m *hmm.Model) error {
	if err := ValidatePrototype(m); err != nil {
		return fmt.Errorf("register %q: %w", string(l), err)
	}
	if inv.Silence != nil && m.Outputs != inv.Silence.Outputs {
		return &PrototypeError{
			Name:   m.Name,
			Reason: fmt.Sprintf("%d outputs, silence has %d", m.Outputs, inv.Silence.Outputs),
		}
	}
	inv.Letters[l] = m
	return nil
}

// Registered returns the letters with a prototype, sorted.
func (inv *Inventory) Registered() []Letter {
	out := make([]Letter, 0, len(inv.Letters))
	for l := range inv.Letters {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Build assembles the composite model for a spelling: leading silence,
// one block per letter, trailing silence. Each block's transitions,
// emissions and null arcs are copied at the block's offset. A glue arc
// carrying the block's exit mass joins its last state to the first state
// of the next block and is pinned against re-estimation. The trailing
// block's exit mass is folded into its final self-loop.
func (inv *Inventory) Build(spelling []Letter) (*hmm.Model, error) {
	if inv.Silence == nil {
		return nil, ErrNoSilence
	}
	blocks := make([]*hmm.Model, 0, len(spelling)+2)
	blocks = append(blocks, inv.Silence)
	for _, l := range spelling {
		p, ok := inv.Letters[l]
		if !ok {
			return nil, &UnknownLetterError{Letter: l}
		}
		blocks = append(blocks, p)
	}
	blocks = append(blocks, inv.Silence)

	outputs := inv.Silence.Outputs
	size := 0
	for _, b := range blocks {
		if b.Outputs != outputs {
			return nil, &PrototypeError{
				Name:   b.Name,
				Reason: fmt.Sprintf("%d outputs, silence has %d", b.Outputs, outputs),
			}
		}
		if err := ValidatePrototype(b); err != nil {
			return nil, err
		}
		size += b.States
	}

	m := hmm.New(wordName(spelling), size, outputs)
	offset := 0
	for k, b := range blocks {
		for i := 0; i < b.States; i++ {
			copy(m.Trans[offset+i][offset:offset+b.States], b.Trans[i])
		}
		for o := 0; o < outputs; o++ {
			copy(m.Emit[o][offset:offset+b.States], b.Emit[o])
		}
		for a, p := range b.NullArcs().Shift(offset) {
			if err := m.SetNull(a.From, a.To, p); err != nil {
				return nil, err
			}
		}
		for _, a := range b.PinnedArcs() {
			m.PinArc(a.From+offset, a.To+offset)
		}

		last := offset + b.States - 1
		exit := ExitMass(b)
		if k < len(blocks)-1 {
			m.Trans[last][last+1] = exit
			m.PinArc(last, last+1)
		} else {
			m.Trans[last][last] += exit
		}
		offset += b.States
	}

	if err := m.TopologicalSort(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("compose %q: %w", m.Name, err)
	}
	return m, nil
}

// BuildWord spells word and builds its composite model.
func (inv *Inventory) BuildWord(word string) (*hmm.Model, error) {
	spelling, err := Spell(word)
	if err != nil {
		return nil, err
	}
	return inv.Build(spelling)
}

// GlueArcs returns the arcs that join consecutive blocks of a composite
// built from inv for spelling, in order.
func (inv *Inventory) GlueArcs(spelling []Letter) ([]hmm.Arc, error) {
	if inv.Silence == nil {
		return nil, ErrNoSilence
	}
	sizes := []int{inv.Silence.States}
	for _, l := range spelling {
		p, ok := inv.Letters[l]
		if !ok {
			return nil, &UnknownLetterError{Letter: l}
		}
		sizes = append(sizes, p.States)
	}
	out := make([]hmm.Arc, 0, len(sizes))
	offset := 0
	for _, n := range sizes {
		offset += n
		out = append(out, hmm.Arc{From: offset - 1, To: offset})
	}
	return out, nil
}

func wordName(spelling []Letter) string {
	var b strings.Builder
	for _, l := range spelling {
		b.WriteString(string(l))
	}
	return b.String()
}
