package verification

import (
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// Standard rejects reducing barriers placed directly in a repeat() body and
// profile() steps anywhere but at the end of their traversal.
type Standard struct {
	strategy.Base
}

func NewStandard() *Standard { return &Standard{} }

func (*Standard) ID() strategy.ID             { return strategy.StandardVerificationID }
func (*Standard) Category() strategy.Category { return strategy.Verification }

func (*Standard) Prior() []strategy.ID {
	return []strategy.ID{strategy.ComputerVerificationID}
}

func (s *Standard) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID())
}

func (s *Standard) Apply(_ *strategy.Context, root *traversal.Traversal) error {
	return traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
		repeat, inRepeat := t.Parent().(*traversal.RepeatStep)
		inRepeatBody := inRepeat && repeat.RepeatTraversal() == t
		for _, step := range t.Steps() {
			if inRepeatBody && isReducing(step) {
				return verificationErrorf(s.ID(), t, "the parent of a reducing barrier can not be repeat()-step: %s", step)
			}
		}

		profiles := traversal.StepsOf[*traversal.ProfileSideEffectStep](t)
		if len(profiles) == 0 {
			return nil
		}
		if !profileAtEnd(t) {
			return verificationErrorf(s.ID(), t, "when specified, the profile()-step must be the last step or followed only by the cap()-step")
		}
		if len(profiles) > 1 {
			return verificationErrorf(s.ID(), t, "the profile()-step cannot be specified multiple times")
		}
		return nil
	})
}

func isReducing(s traversal.Step) bool {
	switch s.(type) {
	case *traversal.CountGlobalStep, *traversal.FoldStep, *traversal.GroupStep, *traversal.GroupCountStep:
		return true
	default:
		return false
	}
}

// profileAtEnd returns true if the traversal ends with profile(), with
// profile().cap() or with profile().cap().none().
func profileAtEnd(t *traversal.Traversal) bool {
	end := t.EndStep()
	if _, ok := end.(*traversal.NoneStep); ok {
		end = end.Previous()
		if _, ok := end.(*traversal.SideEffectCapStep); !ok {
			return false
		}
	}
	if _, ok := end.(*traversal.SideEffectCapStep); ok {
		end = end.Previous()
	}
	_, ok := end.(*traversal.ProfileSideEffectStep)
	return ok
}
