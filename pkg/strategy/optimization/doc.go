// Package optimization holds the strategies rewriting a traversal into an
// equivalent one that executes faster. Every strategy recurses into the
// children of the traversal it is applied to; none of them changes the
// results of a traversal, only the work needed to produce them.
//
// Passes that rely on other passes (RepeatUnroll and PathRetraction add
// barriers only when LazyBarrier is installed) consult the strategy context
// rather than each other.
package optimization
