package mathutil

import (
	"math"
	"testing"
)

func TestNewMat(t *testing.T) {
	m := NewMat(3, 4)
	if len(m) != 3 {
		t.Fatalf("rows = %d, want 3", len(m))
	}
	for i, row := range m {
		if len(row) != 4 {
			t.Fatalf("row %d cols = %d, want 4", i, len(row))
		}
	}
}

func TestNewMatFill(t *testing.T) {
	m := NewMatFill(2, 3, 1.5)
	for i, row := range m {
		for j, v := range row {
			if v != 1.5 {
				t.Errorf("m[%d][%d] = %f, want 1.5", i, j, v)
			}
		}
	}
}

func TestCloneMatIsDeep(t *testing.T) {
	m := Mat{{1, 2}, {3, 4}}
	c := CloneMat(m)
	c[0][0] = 9
	if m[0][0] != 1 {
		t.Errorf("original mutated: m[0][0] = %f, want 1", m[0][0])
	}
	if c[1][1] != 4 {
		t.Errorf("c[1][1] = %f, want 4", c[1][1])
	}
}

func TestColSum(t *testing.T) {
	m := Mat{{0.25, 1}, {0.75, 2}}
	if got := ColSum(m, 0); math.Abs(got-1) > 1e-12 {
		t.Errorf("ColSum(m, 0) = %f, want 1", got)
	}
	if got := ColSum(m, 1); got != 3 {
		t.Errorf("ColSum(m, 1) = %f, want 3", got)
	}
}
