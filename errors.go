package seqdiff

import (
	"fmt"

	"github.com/pkg/errors"
)

// IndexOutOfRangeError reports an index outside [0, Degree), or a Grow or
// Shrink count larger than Degree.
type IndexOutOfRangeError struct {
	Field  string
	Index  int
	Degree int
}

func (e *IndexOutOfRangeError) Error() string {
	switch e.Field {
	case "grow", "shrink":
		return fmt.Sprintf("seqdiff: %s %d exceeds degree %d", e.Field, e.Index, e.Degree)
	}
	return fmt.Sprintf("seqdiff: %s index %d out of range [0, %d)", e.Field, e.Index, e.Degree)
}

// DegreeMismatchError reports a diff applied to a sequence of the wrong
// length, or two diffs that do not chain.
type DegreeMismatchError struct {
	Want int
	Got  int
}

func (e *DegreeMismatchError) Error() string {
	return fmt.Sprintf("seqdiff: diff expects origin size %d, got %d", e.Want, e.Got)
}

// DuplicateKeyError reports two items of one snapshot sharing a key.
type DuplicateKeyError struct {
	Key    interface{}
	First  int
	Second int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("seqdiff: duplicate key %v at %d and %d", e.Key, e.First, e.Second)
}

// UnsubscribedInputError reports a diff for an input that was torn down.
// It is the only recoverable error: the diff was ignored and no state changed.
type UnsubscribedInputError struct {
	Input interface{}
}

func (e *UnsubscribedInputError) Error() string {
	return fmt.Sprintf("seqdiff: input %v is unsubscribed", e.Input)
}

// InvalidPermutationError reports cycles that do not form a permutation.
type InvalidPermutationError struct {
	Cycle  int
	Reason string
}

func (e *InvalidPermutationError) Error() string {
	return fmt.Sprintf("seqdiff: cycle %d: %s", e.Cycle, e.Reason)
}

// IsRecoverable reports whether err can be treated as a no-op. Every other
// error means the caller's mirrors are out of sync and must be rebuilt from a
// fresh snapshot.
func IsRecoverable(err error) bool {
	_, ok := errors.Cause(err).(*UnsubscribedInputError)
	return ok
}
