package optimization

import (
	"slices"

	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// ProductiveBy makes by() modulators produce a nil value instead of filtering
// out the traverser when they yield nothing, by wrapping them in a
// coalesce() falling back to constant(nil):
//
//	by(out().values("name"))  -> by(coalesce(out().values("name"), constant(nil)))
//
// Modulators ending in a reducing barrier always produce a value and are not
// wrapped. by("key") modulators over a configured productive key are trusted
// to always find the property; without productive keys every by("key") is
// wrapped.
type ProductiveBy struct {
	strategy.Base
	productiveKeys []string
}

// NewProductiveBy returns the strategy trusting the given property keys.
func NewProductiveBy(productiveKeys ...string) *ProductiveBy {
	return &ProductiveBy{productiveKeys: slices.Clone(productiveKeys)}
}

// ProductiveByFromConfiguration builds the strategy from its productiveKeys
// setting.
func ProductiveByFromConfiguration(config strategy.Configuration) (strategy.Strategy, error) {
	keys, err := config.Strings(productiveKeysSetting)
	if err != nil {
		return nil, err
	}
	return NewProductiveBy(keys...), nil
}

const productiveKeysSetting = "productiveKeys"

func (*ProductiveBy) ID() strategy.ID             { return strategy.ProductiveByID }
func (*ProductiveBy) Category() strategy.Category { return strategy.Optimization }

func (*ProductiveBy) Prior() []strategy.ID {
	return []strategy.ID{strategy.ByModulatorOptimizationID}
}

// ProductiveKeys returns the keys assumed to be present on every element.
func (s *ProductiveBy) ProductiveKeys() []string { return slices.Clone(s.productiveKeys) }

func (s *ProductiveBy) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID()).With(productiveKeysSetting, s.ProductiveKeys())
}

func (s *ProductiveBy) Apply(_ *strategy.Context, root *traversal.Traversal) error {
	return traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
		for _, modulating := range traversal.StepsOf[traversal.ByModulating](t) {
			parent, ok := modulating.(traversal.TraversalParent)
			if !ok {
				continue
			}
			for _, by := range parent.LocalChildren() {
				s.makeProductive(parent, by)
			}
		}
		return nil
	})
}

func (s *ProductiveBy) makeProductive(parent traversal.TraversalParent, by *traversal.Traversal) {
	switch {
	case by.Kind() == traversal.KindValue:
		if hasNilBypass(by) || !s.mayBeUnproductive(by) {
			return
		}
		bypass := traversal.New(traversal.NewCoalesceStep(by.Clone(), traversal.NewConstantTraversal(nil)))
		bypass.SetParent(parent)
		by.SetBypass(bypass)

	case by.IsShortcut(), by.IsEmpty():
		// Tokens, identities and constants always produce a value.

	default:
		if isReducing(by.EndStep()) {
			return
		}
		if coalesce, ok := by.StartStep().(*traversal.CoalesceStep); ok && by.Len() == 1 && endsInNil(coalesce) {
			return
		}

		extracted := traversal.New()
		traversal.RemoveToTraversal(by.StartStep(), nil, extracted)
		by.AddStep(traversal.NewCoalesceStep(extracted, traversal.NewConstantTraversal(nil)))
	}
}

func (s *ProductiveBy) mayBeUnproductive(by *traversal.Traversal) bool {
	if len(s.productiveKeys) == 0 {
		return true
	}
	return by.Bypass() == nil && !slices.Contains(s.productiveKeys, by.Key())
}

// hasNilBypass returns true if the value traversal already falls back to nil.
func hasNilBypass(by *traversal.Traversal) bool {
	bypass := by.Bypass()
	if bypass == nil {
		return false
	}
	coalesce, ok := bypass.StartStep().(*traversal.CoalesceStep)
	return ok && endsInNil(coalesce)
}

// endsInNil returns true if the last alternative of the coalesce yields nil.
func endsInNil(coalesce *traversal.CoalesceStep) bool {
	children := coalesce.LocalChildren()
	if len(children) == 0 {
		return false
	}

	last := children[len(children)-1]
	if last.Kind() == traversal.KindConstant {
		return last.Value() == nil
	}
	constant, ok := last.EndStep().(*traversal.ConstantStep)
	return ok && constant.Value() == nil
}

// isReducing returns true for barriers folding their whole input into one
// value, which they emit even for an empty input.
func isReducing(s traversal.Step) bool {
	switch s.(type) {
	case *traversal.CountGlobalStep, *traversal.FoldStep, *traversal.GroupStep, *traversal.GroupCountStep:
		return true
	default:
		return false
	}
}
