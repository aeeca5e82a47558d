package traversal

import (
	"errors"
	"fmt"
)

// ErrUnsupported is matched by every UnsupportedError.
var ErrUnsupported = errors.New("operation not supported")

// ErrNoBarrier is returned when a barrier is asked for a value it does not hold.
var ErrNoBarrier = errors.New("no barrier available")

// UnsupportedError is returned by capability methods a step does not support,
// such as adding a child traversal to a step with a fixed set of children.
type UnsupportedError struct {
	Step      string
	Operation string
}

func (err *UnsupportedError) Error() string {
	return fmt.Sprintf("%s does not support %s", err.Step, err.Operation)
}

func (err *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

func unsupported(s Step, operation string) error {
	return &UnsupportedError{Step: s.Name(), Operation: operation}
}

// KeyNotFoundError is returned when a scoping step cannot resolve a key in the
// current map value, the side effects or the path.
type KeyNotFoundError struct {
	Key  string
	Step Step
}

func (err *KeyNotFoundError) Error() string {
	return fmt.Sprintf("neither the map, sideEffects, nor path has a %s-key: %s", err.Key, err.Step)
}

// DetailsMetadata returns the key and the step that failed to resolve it.
func (err *KeyNotFoundError) DetailsMetadata() map[string]string {
	return map[string]string{"key": err.Key, "step": err.Step.String()}
}
