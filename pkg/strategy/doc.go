// Package strategy implements the scheduler that rewrites a traversal before
// it is executed.
//
// A Strategy is a named pass over the step tree, belonging to a Category and
// declaring which other strategies must run before (Prior) or after (Post)
// it. Sort turns a set of strategies into an application order honoring
// those constraints, with every strategy of an earlier category running
// first; constraints that cannot be satisfied produce a
// CyclicDependencyError. Orderings are cached per distinct set of strategy
// IDs, as the same strategy sets are compiled over and over.
//
// Strategies are applied once to the root traversal, in order, through a
// Context carrying the execution mode (standalone or graph computer), the
// set of installed strategies and a side table strategies use to mark
// traversals for later passes.
//
// Passes that apply a list of rewrites to every step of the tree can build
// it from TypedStepRewrite functions with WrapRewrite and ApplyRewrites.
// Passes that loop until nothing changes use RunToFixedPoint, which requires
// every iteration to strictly decrease a progress measure.
package strategy
