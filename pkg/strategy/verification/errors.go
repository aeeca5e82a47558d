// Package verification holds the strategies rejecting traversals that cannot
// be executed as written.
package verification

import (
	"fmt"

	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// VerificationError is returned when a verification strategy rejects a
// traversal.
type VerificationError struct {
	Strategy  strategy.ID
	Reason    string
	Traversal string
}

func (err *VerificationError) Error() string {
	return err.Reason
}

// DetailsMetadata returns the rejecting strategy and the rejected traversal.
func (err *VerificationError) DetailsMetadata() map[string]string {
	return map[string]string{
		"strategy":  string(err.Strategy),
		"traversal": err.Traversal,
	}
}

func verificationErrorf(id strategy.ID, t *traversal.Traversal, format string, args ...any) error {
	return &VerificationError{
		Strategy:  id,
		Reason:    fmt.Sprintf(format, args...),
		Traversal: t.String(),
	}
}
