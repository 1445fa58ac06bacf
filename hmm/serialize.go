package hmm

import (
	"encoding/gob"
	"fmt"
	"io"
	"sort"
)

// serializable types for gob encoding
type serializedModel struct {
	Name    string
	States  int
	Outputs int
	Trans   [][]float64
	Emit    [][]float64
	Null    []serializedArc
	Pinned  []Arc
}

type serializedArc struct {
	From, To int
	Prob     float64
}

func (m *Model) serialize() serializedModel {
	sm := serializedModel{
		Name:    m.Name,
		States:  m.States,
		Outputs: m.Outputs,
		Trans:   m.Trans,
		Emit:    m.Emit,
		Pinned:  m.PinnedArcs(),
	}
	for _, a := range m.null.Arcs() {
		sm.Null = append(sm.Null, serializedArc{From: a.From, To: a.To, Prob: m.null[a]})
	}
	return sm
}

func deserialize(sm serializedModel) (*Model, error) {
	m := New(sm.Name, sm.States, sm.Outputs)
	if err := m.SetTransitions(sm.Trans); err != nil {
		return nil, fmt.Errorf("model %q: %w", sm.Name, err)
	}
	if err := m.SetEmissions(sm.Emit); err != nil {
		return nil, fmt.Errorf("model %q: %w", sm.Name, err)
	}
	for _, a := range sm.Null {
		if err := m.SetNull(a.From, a.To, a.Prob); err != nil {
			return nil, fmt.Errorf("model %q: %w", sm.Name, err)
		}
	}
	for _, a := range sm.Pinned {
		m.PinArc(a.From, a.To)
	}
	if err := m.TopologicalSort(); err != nil {
		return nil, err
	}
	return m, nil
}

// Save serializes the model to a writer using gob encoding.
func (m *Model) Save(w io.Writer) error {
	return gob.NewEncoder(w).Encode(m.serialize())
}

// Load deserializes a model from a reader.
func Load(r io.Reader) (*Model, error) {
	var sm serializedModel
	if err := gob.NewDecoder(r).Decode(&sm); err != nil {
		return nil, err
	}
	return deserialize(sm)
}

// SaveAll serializes a set of models keyed by name, in name order.
func SaveAll(w io.Writer, models map[string]*Model) error {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]serializedModel, 0, len(names))
	for _, name := range names {
		sm := models[name].serialize()
		sm.Name = name
		out = append(out, sm)
	}
	return gob.NewEncoder(w).Encode(out)
}

// LoadAll deserializes a set written by SaveAll.
func LoadAll(r io.Reader) (map[string]*Model, error) {
	var in []serializedModel
	if err := gob.NewDecoder(r).Decode(&in); err != nil {
		return nil, err
	}
	models := make(map[string]*Model, len(in))
	for _, sm := range in {
		m, err := deserialize(sm)
		if err != nil {
			return nil, err
		}
		models[sm.Name] = m
	}
	return models, nil
}
