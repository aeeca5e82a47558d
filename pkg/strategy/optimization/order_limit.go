package optimization

import (
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// OrderLimit tells an order() followed by a range how many sorted
// traversers it needs to keep. Only graph computers benefit, as they sort
// partitions separately before merging them.
type OrderLimit struct {
	strategy.Base
}

func NewOrderLimit() *OrderLimit { return &OrderLimit{} }

func (*OrderLimit) ID() strategy.ID             { return strategy.OrderLimitID }
func (*OrderLimit) Category() strategy.Category { return strategy.Optimization }

func (s *OrderLimit) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID())
}

func (s *OrderLimit) Apply(ctx *strategy.Context, root *traversal.Traversal) error {
	if !ctx.OnComputer() {
		return nil
	}

	return traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
		for _, order := range traversal.StepsOf[*traversal.OrderGlobalStep](t) {
			if r := rangeAfterOrder(order); r != nil {
				order.SetLimit(r.High())
			}
		}
		return nil
	})
}

// rangeAfterOrder returns the range following the order, past steps mapping
// each traverser without changing how many there are.
func rangeAfterOrder(order *traversal.OrderGlobalStep) *traversal.RangeGlobalStep {
	for current := order.Next(); current != nil; current = current.Next() {
		switch step := current.(type) {
		case *traversal.RangeGlobalStep:
			return step
		case *traversal.LabelStep, *traversal.IDStep, *traversal.PathStep, *traversal.SelectStep, *traversal.SelectOneStep:
		default:
			return nil
		}
	}
	return nil
}
