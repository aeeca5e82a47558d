package optimization

import (
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// IdentityRemoval drops identity() steps. Labels of a dropped identity move to
// the previous step; a labeled identity starting a traversal is kept, as is
// the single identity of a branch (a traversal of an identity and an end step).
type IdentityRemoval struct {
	strategy.Base
}

func NewIdentityRemoval() *IdentityRemoval { return &IdentityRemoval{} }

func (*IdentityRemoval) ID() strategy.ID             { return strategy.IdentityRemovalID }
func (*IdentityRemoval) Category() strategy.Category { return strategy.Optimization }

func (s *IdentityRemoval) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID())
}

func (s *IdentityRemoval) Apply(_ *strategy.Context, root *traversal.Traversal) error {
	return traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
		if t.IsShortcut() || t.Len() <= 1 {
			return nil
		}

		for _, identity := range traversal.StepsOf[*traversal.IdentityStep](t) {
			removeIdentity(t, identity)
		}
		return nil
	})
}

// removeIdentity drops the identity step from its traversal unless it carries
// labels at the start of the traversal or is the single step of a branch.
func removeIdentity(t *traversal.Traversal, identity *traversal.IdentityStep) {
	previous := identity.Previous()
	if len(identity.Labels()) > 0 && previous == nil {
		return
	}
	if _, isEnd := identity.Next().(*traversal.EndStep); isEnd && t.Len() == 2 {
		return
	}

	if previous != nil {
		traversal.CopyLabels(identity, previous, false)
	}
	t.RemoveStep(identity)
}
