package fuzz

import (
	"fmt"

	"tlog.app/go/errors"
)

type (
	// NotEnoughData is returned by Limited when the remaining input
	// can't satisfy an extraction.
	// Harness treats it as "input is too short", not as a target failure.
	NotEnoughData struct {
		Required  int
		Remaining int
	}
)

// ErrNotEnoughData matches any NotEnoughData with errors.Is.
var ErrNotEnoughData = errors.New("not enough fuzzed data")

// Error is an error interface implementation.
func (e NotEnoughData) Error() string {
	return fmt.Sprintf("expected %d bytes but found %d", e.Required, e.Remaining)
}

func (e NotEnoughData) Is(target error) bool {
	return target == ErrNotEnoughData //nolint:errorlint
}

// IsNotEnoughData reports whether err or any error it wraps is NotEnoughData.
func IsNotEnoughData(err error) bool {
	return errors.Is(err, ErrNotEnoughData)
}
