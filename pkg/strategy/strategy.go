package strategy

import (
	"fmt"

	"github.com/authzed/graphtraversal/pkg/traversal"
)

// ID names a strategy. At most one strategy per ID is installed at a time.
type ID string

// Category groups strategies by the kind of rewrite they perform. Every
// strategy runs after all strategies of earlier categories.
type Category uint8

const (
	// Decoration strategies add application-level behavior to a traversal.
	Decoration Category = iota

	// Optimization strategies rewrite a traversal into a cheaper equivalent.
	Optimization

	// ProviderOptimization strategies rewrite a traversal for a specific
	// graph implementation.
	ProviderOptimization

	// Finalization strategies make last adjustments before execution.
	Finalization

	// Verification strategies reject traversals that cannot be executed.
	Verification
)

func (c Category) String() string {
	switch c {
	case Decoration:
		return "decoration"
	case Optimization:
		return "optimization"
	case ProviderOptimization:
		return "provider-optimization"
	case Finalization:
		return "finalization"
	case Verification:
		return "verification"
	default:
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
}

// Strategy is a rewrite pass applied to a traversal before it is executed.
//
// Apply is invoked once with the root traversal; strategies that care about
// child traversals recurse into them themselves.
type Strategy interface {
	// ID returns the unique name of the strategy.
	ID() ID

	// Category returns the category of the strategy.
	Category() Category

	// Prior returns the strategies that must run before this one, if installed.
	Prior() []ID

	// Post returns the strategies that must run after this one, if installed.
	Post() []ID

	// Apply rewrites the traversal in place.
	Apply(ctx *Context, t *traversal.Traversal) error

	// Configuration returns the descriptor from which the strategy can be
	// rebuilt through a Registry.
	Configuration() Configuration
}

// Base can be embedded by strategies with no ordering constraints and no
// configuration.
type Base struct{}

func (Base) Prior() []ID { return nil }
func (Base) Post() []ID  { return nil }

// Well-known strategy IDs.
const (
	ConnectiveID              ID = "ConnectiveStrategy"
	IdentityRemovalID         ID = "IdentityRemovalStrategy"
	EarlyLimitID              ID = "EarlyLimitStrategy"
	InlineFilterID            ID = "InlineFilterStrategy"
	IncidentToAdjacentID      ID = "IncidentToAdjacentStrategy"
	AdjacentToIncidentID      ID = "AdjacentToIncidentStrategy"
	ByModulatorOptimizationID ID = "ByModulatorOptimizationStrategy"
	FilterRankingID           ID = "FilterRankingStrategy"
	MatchPredicateID          ID = "MatchPredicateStrategy"
	RepeatUnrollID            ID = "RepeatUnrollStrategy"
	CountID                   ID = "CountStrategy"
	PathRetractionID          ID = "PathRetractionStrategy"
	LazyBarrierID             ID = "LazyBarrierStrategy"
	OrderLimitID              ID = "OrderLimitStrategy"
	PathProcessorID           ID = "PathProcessorStrategy"
	ProductiveByID            ID = "ProductiveByStrategy"
	StandardVerificationID    ID = "StandardVerificationStrategy"
	LambdaRestrictionID       ID = "LambdaRestrictionStrategy"
	EdgeLabelVerificationID   ID = "EdgeLabelVerificationStrategy"
	ComputerVerificationID    ID = "ComputerVerificationStrategy"
)
