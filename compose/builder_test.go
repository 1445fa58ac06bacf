package compose

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/wordhmm-go/hmm"
)

func standard(t *testing.T, outputs int) *Inventory {
	t.Helper()
	inv, err := StandardInventory(outputs, nil, nil)
	require.NoError(t, err)
	return inv
}

func TestBuildFourLetterWord(t *testing.T) {
	inv := standard(t, 8)
	spelling, err := Spell("bead")
	require.NoError(t, err)

	m, err := inv.Build(spelling)
	require.NoError(t, err)
	assert.Equal(t, 2*SilenceStates+4*LetterStates, m.States)
	assert.Equal(t, 22, m.States)
	assert.Equal(t, "bead", m.Name)

	order := append([]int(nil), m.Order()...)
	require.Len(t, order, 22)
	sort.Ints(order)
	for i, s := range order {
		assert.Equal(t, i, s)
	}
	assert.NoError(t, m.Validate())
}

func TestBuildIsDeterministic(t *testing.T) {
	inv := standard(t, 4)
	a, err := inv.BuildWord("tide")
	require.NoError(t, err)
	b, err := inv.BuildWord("tide")
	require.NoError(t, err)
	assert.Equal(t, a.Trans, b.Trans)
	assert.Equal(t, a.Emit, b.Emit)
	assert.Equal(t, a.Order(), b.Order())
	assert.Equal(t, a.PinnedArcs(), b.PinnedArcs())
}

func TestBuildGlueArcs(t *testing.T) {
	inv := standard(t, 4)
	spelling := []Letter{"a", "b"}
	m, err := inv.Build(spelling)
	require.NoError(t, err)

	glue, err := inv.GlueArcs(spelling)
	require.NoError(t, err)
	assert.Equal(t, []hmm.Arc{{From: 4, To: 5}, {From: 7, To: 8}, {From: 10, To: 11}}, glue)
	assert.Equal(t, glue, m.PinnedArcs())

	assert.InDelta(t, 0.25, m.Trans[4][5], 1e-12)
	assert.InDelta(t, 0.2, m.Trans[7][8], 1e-12)
	assert.InDelta(t, 0.2, m.Trans[10][11], 1e-12)
	// Trailing silence keeps its exit mass.
	assert.InDelta(t, 1.0, m.Trans[15][15], 1e-12)
	// Blocks do not leak into each other beyond the glue.
	assert.Zero(t, m.Trans[4][6])
	assert.Zero(t, m.Trans[5][4])
}

func TestBuildUnknownLetter(t *testing.T) {
	inv := standard(t, 4)

	_, err := inv.BuildWord("kite")
	var ule *UnknownLetterError
	require.True(t, errors.As(err, &ule), "got %v", err)
	assert.Equal(t, Letter("k"), ule.Letter)

	_, err = inv.BuildWord("bite")
	assert.NoError(t, err)
}

func TestBuildWithoutSilence(t *testing.T) {
	inv := &Inventory{Letters: map[Letter]*hmm.Model{}}
	_, err := inv.Build([]Letter{"a"})
	assert.ErrorIs(t, err, ErrNoSilence)
}

func TestBuildShiftsNullArcs(t *testing.T) {
	sil := hmm.New("silence", 5, 4)
	require.NoError(t, sil.SetTransitions(silenceTrans))
	require.NoError(t, sil.SetEmissions(UniformEmissions(4, 5)))
	// Trade half of the 0->2 mass for a null skip.
	sil.Trans[0][2] = 0.125
	require.NoError(t, sil.SetNull(0, 2, 0.125))

	inv := NewInventory(sil)
	letter, err := NewLetterPrototype(4, nil)
	require.NoError(t, err)
	require.NoError(t, inv.Register("a", letter))

	m, err := inv.Build([]Letter{"a"})
	require.NoError(t, err)
	assert.Equal(t, 13, m.States)
	assert.InDelta(t, 0.125, m.NullProb(0, 2), 1e-12)
	assert.InDelta(t, 0.125, m.NullProb(8, 10), 1e-12)
	assert.Len(t, m.NullArcs(), 2)

	pos := make(map[int]int)
	for i, s := range m.Order() {
		pos[s] = i
	}
	assert.Less(t, pos[0], pos[2])
	assert.Less(t, pos[8], pos[10])
}

func TestBuildDoesNotShareStorage(t *testing.T) {
	inv := standard(t, 4)
	word, err := inv.BuildWord("ab")
	require.NoError(t, err)
	other, err := inv.BuildWord("ba")
	require.NoError(t, err)
	before := other.Clone()

	for _, obs := range [][]int{{0, 1, 2, 3, 3, 2, 1, 0}, {3, 3, 3, 0, 1, 2}} {
		_, err := word.ForwardBackward(obs)
		require.NoError(t, err)
	}
	require.NoError(t, word.Reestimate())

	for i, row := range silenceTrans {
		assert.Equal(t, row, []float64(inv.Silence.Trans[i]), "silence prototype row %d", i)
	}
	for i, row := range letterTrans {
		assert.Equal(t, row, []float64(inv.Letters["a"].Trans[i]), "letter prototype row %d", i)
	}
	assert.Equal(t, before.Trans, other.Trans)
	assert.Equal(t, before.Emit, other.Emit)
}

func TestGlueSurvivesReestimation(t *testing.T) {
	inv := standard(t, 4)
	m, err := inv.BuildWord("a")
	require.NoError(t, err)
	for _, obs := range [][]int{{0, 0, 1, 2, 3, 3, 3, 0}, {1, 1, 2, 2, 3, 0, 0}} {
		_, err := m.ForwardBackward(obs)
		require.NoError(t, err)
	}
	require.NoError(t, m.Reestimate())
	assert.InDelta(t, 0.25, m.Trans[4][5], 1e-12)
	assert.InDelta(t, 0.2, m.Trans[7][8], 1e-12)
	assert.NoError(t, m.Validate())
}

func TestRegisterRejectsClosedPrototype(t *testing.T) {
	inv := standard(t, 2)
	closed := hmm.New("closed", 3, 2)
	require.NoError(t, closed.SetTransitions([][]float64{
		{0.5, 0.5, 0},
		{0, 0.5, 0.5},
		{0, 0, 1},
	}))
	require.NoError(t, closed.SetEmissions(UniformEmissions(2, 3)))
	require.NoError(t, closed.Validate())

	err := inv.Register("a", closed)
	var pe *PrototypeError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, "closed", pe.Name)
	assert.InDelta(t, 0, ExitMass(closed), 1e-12)

	openModel := hmm.New("open", 3, 2)
	require.NoError(t, openModel.SetTransitions([][]float64{
		{0.5, 0.5, 0},
		{0, 0.5, 0.5},
		{0, 0, 0.5},
	}))
	require.NoError(t, openModel.SetEmissions(UniformEmissions(2, 3)))
	assert.NoError(t, inv.Register("a", openModel))
}
