package jsontree

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrConflict matches every *ConflictError.
	ErrConflict = errors.New("container kind conflict")
)

// ValidationError reports input that cannot be used at all, such as a
// merge source whose root is not an object.
type ValidationError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// RequireObject returns a ValidationError naming op unless n is an object.
func RequireObject(n *Node, op string) error {
	if n == nil {
		return &ValidationError{Op: op, Reason: "no value"}
	}
	if n.kind != KindObject {
		return &ValidationError{Op: op, Reason: fmt.Sprintf("root must be a JSON object, got %s", n.kind)}
	}
	return nil
}

// ConflictError reports a Set that found a container of the wrong kind.
// At is the path of the offending slot (nil for the root).
type ConflictError struct {
	Path Path
	At   Path
	Want Kind
	Got  Kind
}

func (e *ConflictError) Error() string {
	at := e.At.String()
	if at == "" {
		at = "<root>"
	}
	return fmt.Sprintf("jsontree: set %q: %s is %s, want %s", e.Path.String(), at, e.Got, e.Want)
}

// Is makes errors.Is(err, ErrConflict) true for any ConflictError.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
