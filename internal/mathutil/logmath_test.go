package mathutil

import (
	"math"
	"testing"
)

func TestLogAdd(t *testing.T) {
	// log(exp(log(2)) + exp(log(3))) = log(5)
	a := math.Log(2)
	b := math.Log(3)
	got := LogAdd(a, b)
	want := math.Log(5)
	if math.Abs(got-want) > 1e-10 {
		t.Errorf("LogAdd(log(2), log(3)) = %f, want %f", got, want)
	}
}

func TestLogAddWithLogZero(t *testing.T) {
	a := math.Log(5)
	if got := LogAdd(LogZero, a); math.Abs(got-a) > 1e-10 {
		t.Errorf("LogAdd(LogZero, %f) = %f, want %f", a, got, a)
	}
	if got := LogAdd(a, LogZero); math.Abs(got-a) > 1e-10 {
		t.Errorf("LogAdd(%f, LogZero) = %f, want %f", a, got, a)
	}
	if got := LogAdd(LogZero, LogZero); !IsLogZero(got) {
		t.Errorf("LogAdd(LogZero, LogZero) = %f, want LogZero", got)
	}
}

func TestLogAddIgnoresNegligibleTerm(t *testing.T) {
	if got := LogAdd(0, -40); got != 0 {
		t.Errorf("LogAdd(0, -40) = %g, want 0", got)
	}
	if got := LogAdd(-40, 0); got != 0 {
		t.Errorf("LogAdd(-40, 0) = %g, want 0", got)
	}
}

func TestLog(t *testing.T) {
	if got := Log(0); !IsLogZero(got) {
		t.Errorf("Log(0) = %f, want LogZero", got)
	}
	if got := Log(1); got != 0 {
		t.Errorf("Log(1) = %f, want 0", got)
	}
}
