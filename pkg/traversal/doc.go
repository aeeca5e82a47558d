// Package traversal provides the step tree a graph traversal is compiled from.
//
// A Traversal is an ordered list of steps. Some steps own child traversals of their own: local children are
// evaluated for every element flowing through the step (the traversal passed to a by() modulator, or to filter()),
// while global children are full branches of control flow (the arms of a union(), the body of a repeat()).
// Every child traversal obeys the same rules as the root, so the whole program is a tree of traversals and steps.
//
// Take the example:
//
//	g.V().as("a").out("knows").where(neq("a")).count()
//
// It is represented as:
//
//	[GraphStep(vertex,[])@[a], VertexStep(OUT,[knows],vertex), WherePredicateStep(neq(a)), CountGlobalStep]
//
// Steps advertise what they are capable of through a closed set of traits (TraversalParent, Barrier, PathProcessor,
// Scoping, FilterStep, ...), so that rewrites can reason about steps they do not know by name. The tree is mutable
// until locked; rewrites move, insert and remove steps freely, and every mutation keeps the previous/next links of the
// steps consistent with their position.
package traversal
