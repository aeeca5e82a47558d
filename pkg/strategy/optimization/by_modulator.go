package optimization

import (
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/structure"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// ByModulatorOptimization replaces by() modulators made of a single simple
// step with the equivalent shortcut traversal, which executes without
// starting a child traversal:
//
//	by(values("name"))  -> by("name")
//	by(id())            -> by(T.id)
//	by(identity())      -> by()
//
// The value modulator of group() is reduced by a fold(), which is implied by
// its shortcuts; a by(values("name").fold()) becomes by("name").
type ByModulatorOptimization struct {
	strategy.Base
}

func NewByModulatorOptimization() *ByModulatorOptimization { return &ByModulatorOptimization{} }

func (*ByModulatorOptimization) ID() strategy.ID             { return strategy.ByModulatorOptimizationID }
func (*ByModulatorOptimization) Category() strategy.Category { return strategy.Optimization }

func (*ByModulatorOptimization) Prior() []strategy.ID {
	return []strategy.ID{strategy.PathProcessorID, strategy.IdentityRemovalID}
}

func (s *ByModulatorOptimization) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID())
}

func (s *ByModulatorOptimization) Apply(_ *strategy.Context, root *traversal.Traversal) error {
	return traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
		for _, modulating := range traversal.StepsOf[traversal.ByModulating](t) {
			parent, ok := modulating.(traversal.TraversalParent)
			if !ok {
				continue
			}
			if err := optimizeModulators(parent); err != nil {
				return err
			}
		}
		return nil
	})
}

func optimizeModulators(parent traversal.TraversalParent) error {
	grouping, ok := parent.(traversal.Grouping)
	if !ok {
		for _, by := range parent.LocalChildren() {
			if err := optimizeSingleStep(parent, by); err != nil {
				return err
			}
		}
		return nil
	}

	if key := grouping.KeyTraversal(); key != nil {
		if err := optimizeSingleStep(parent, key); err != nil {
			return err
		}
	}

	value := grouping.ValueTraversal()
	if value == nil || value.IsShortcut() {
		return nil
	}
	switch steps := value.Steps(); {
	case len(steps) == 1:
		if _, ok := steps[0].(*traversal.IdentityStep); ok {
			return replaceModulator(parent, value, steps[0])
		}
	case len(steps) == 2:
		if _, ok := steps[1].(*traversal.FoldStep); ok {
			return replaceModulator(parent, value, steps[0])
		}
	}
	return nil
}

func optimizeSingleStep(parent traversal.TraversalParent, by *traversal.Traversal) error {
	if by.IsShortcut() || by.Len() != 1 {
		return nil
	}
	return replaceModulator(parent, by, by.Step(0))
}

// replaceModulator swaps the modulator for the shortcut equivalent to the
// step, if there is one.
func replaceModulator(parent traversal.TraversalParent, by *traversal.Traversal, single traversal.Step) error {
	var shortcut *traversal.Traversal
	switch step := single.(type) {
	case *traversal.PropertiesStep:
		keys := step.Keys()
		if !step.ReturnsValue() || len(keys) != 1 {
			return nil
		}
		shortcut = traversal.NewValueTraversal(keys[0])
	case *traversal.IDStep:
		shortcut = traversal.NewTokenTraversal(structure.TID)
	case *traversal.LabelStep:
		shortcut = traversal.NewTokenTraversal(structure.TLabel)
	case *traversal.PropertyKeyStep:
		shortcut = traversal.NewTokenTraversal(structure.TKey)
	case *traversal.PropertyValueStep:
		shortcut = traversal.NewTokenTraversal(structure.TValue)
	case *traversal.IdentityStep:
		shortcut = traversal.NewIdentityTraversal()
	default:
		return nil
	}

	if len(single.Labels()) > 0 {
		return nil
	}
	return traversal.ReplaceLocalChild(parent, by, shortcut)
}
