// Package spiceerrors reports internal invariant violations raised while
// building or rewriting traversals.
package spiceerrors

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrBug is wrapped by every error returned from MustBugf.
var ErrBug = errors.New("BUG")

// IsInTests returns true if the current binary is a go test binary.
func IsInTests() bool {
	for _, arg := range os.Args {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}

// MustPanic panics with a formatted message. Used for misuse of the
// traversal API that cannot be reported as an error.
func MustPanic(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}

// MustBugf returns an error wrapping ErrBug. Under go test it panics so that
// broken rewrites fail loudly.
func MustBugf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if IsInTests() {
		panic(msg)
	}
	return fmt.Errorf("%w: %s", ErrBug, msg)
}
