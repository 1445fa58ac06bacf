package compose

import (
	"errors"
	"fmt"
)

// ErrNoSilence is returned when an inventory has no silence prototype.
var ErrNoSilence = errors.New("compose: silence prototype not set")

// UnknownLetterError reports a spelling that references a letter with no
// registered prototype.
type UnknownLetterError struct {
	Letter Letter
}

func (e *UnknownLetterError) Error() string {
	return fmt.Sprintf("compose: no prototype for letter %q", string(e.Letter))
}

// PrototypeError reports a prototype that cannot serve as an open
// sub-model.
type PrototypeError struct {
	Name   string
	Reason string
}

func (e *PrototypeError) Error() string {
	return fmt.Sprintf("compose: prototype %q: %s", e.Name, e.Reason)
}
