package verification

import (
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// LambdaRestriction rejects traversals running user functions, whose
// behavior other strategies cannot reason about.
type LambdaRestriction struct {
	strategy.Base
}

func NewLambdaRestriction() *LambdaRestriction { return &LambdaRestriction{} }

func (*LambdaRestriction) ID() strategy.ID             { return strategy.LambdaRestrictionID }
func (*LambdaRestriction) Category() strategy.Category { return strategy.Verification }

func (s *LambdaRestriction) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID())
}

func (s *LambdaRestriction) Apply(_ *strategy.Context, root *traversal.Traversal) error {
	return traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
		if lambdas := traversal.StepsOf[traversal.LambdaHolder](t); len(lambdas) > 0 {
			return verificationErrorf(s.ID(), t, "the provided traversal contains a lambda step: %s", lambdas[0])
		}
		return nil
	})
}
