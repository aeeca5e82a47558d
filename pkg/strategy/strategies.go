package strategy

import (
	"errors"
	"slices"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/authzed/graphtraversal/internal/logging"
	"github.com/authzed/graphtraversal/pkg/cache"
	"github.com/authzed/graphtraversal/pkg/spiceerrors"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// ErrLocked is returned when strategies are applied to a locked traversal.
var ErrLocked = errors.New("traversal is locked and cannot be rewritten")

const orderingCacheMaxCost = 16 * 1024

var orderingCache = sync.OnceValue(func() cache.Cache[cache.StringKey, []ID] {
	c, err := cache.NewStandardCacheWithMetrics[cache.StringKey, []ID]("strategy_orderings", &cache.Config{
		MaxCost: orderingCacheMaxCost,
	})
	if err != nil {
		logging.Warn().Err(err).Msg("failed to create the strategy ordering cache; orderings will not be cached")
		return cache.NoopCache[cache.StringKey, []ID]()
	}
	return c
})

// Strategies is an immutable, sorted set of strategies.
type Strategies struct {
	inserted []Strategy
	ordered  []Strategy
}

// NewStrategies sorts the strategies. If more than one strategy shares an ID,
// the last one wins.
func NewStrategies(strs ...Strategy) (*Strategies, error) {
	inserted := make([]Strategy, 0, len(strs))
	for _, s := range strs {
		inserted = upsert(inserted, s)
	}

	ordered, err := sortCached(inserted)
	if err != nil {
		return nil, err
	}
	return &Strategies{inserted: inserted, ordered: ordered}, nil
}

func upsert(strs []Strategy, s Strategy) []Strategy {
	i := slices.IndexFunc(strs, func(existing Strategy) bool { return existing.ID() == s.ID() })
	if i >= 0 {
		strs[i] = s
		return strs
	}
	return append(strs, s)
}

// sortCached sorts the strategies, reusing the ordering computed for an
// earlier set with the same strategies and constraints in the same insertion
// order.
func sortCached(strs []Strategy) ([]Strategy, error) {
	key := orderingKey(strs)

	byID := make(map[ID]Strategy, len(strs))
	for _, s := range strs {
		byID[s.ID()] = s
	}

	if ids, ok := orderingCache().Get(key); ok && len(ids) == len(strs) {
		ordered := make([]Strategy, 0, len(ids))
		for _, id := range ids {
			s, ok := byID[id]
			if !ok {
				break
			}
			ordered = append(ordered, s)
		}
		if len(ordered) == len(strs) {
			return ordered, nil
		}
	}

	ordered, err := Sort(strs)
	if err != nil {
		return nil, err
	}

	ids := make([]ID, 0, len(ordered))
	for _, s := range ordered {
		ids = append(ids, s.ID())
	}
	orderingCache().Set(key, ids, int64(len(ids)))
	return ordered, nil
}

func orderingKey(strs []Strategy) cache.StringKey {
	hasher := xxhash.New()
	writeID := func(id ID, sep byte) {
		_, _ = hasher.WriteString(string(id))
		_, _ = hasher.Write([]byte{sep})
	}
	for _, s := range strs {
		writeID(s.ID(), byte(s.Category()))
		for _, prior := range s.Prior() {
			writeID(prior, '<')
		}
		for _, post := range s.Post() {
			writeID(post, '>')
		}
		_, _ = hasher.Write([]byte{0})
	}
	return cache.StringKey(strconv.FormatUint(hasher.Sum64(), 16))
}

// With returns a new set holding the strategies added to or replacing those
// of this set.
func (s *Strategies) With(strs ...Strategy) (*Strategies, error) {
	return NewStrategies(append(slices.Clone(s.inserted), strs...)...)
}

// Without returns a new set without the strategies with the given IDs.
// Removing strategies cannot invalidate an ordering, so the remaining
// strategies keep their relative order.
func (s *Strategies) Without(ids ...ID) *Strategies {
	keep := func(str Strategy) bool { return !slices.Contains(ids, str.ID()) }
	return &Strategies{
		inserted: filter(s.inserted, keep),
		ordered:  filter(s.ordered, keep),
	}
}

func filter(strs []Strategy, keep func(Strategy) bool) []Strategy {
	kept := make([]Strategy, 0, len(strs))
	for _, s := range strs {
		if keep(s) {
			kept = append(kept, s)
		}
	}
	return kept
}

// Get returns the strategy with the given ID, if installed.
func (s *Strategies) Get(id ID) (Strategy, bool) {
	for _, str := range s.ordered {
		if str.ID() == id {
			return str, true
		}
	}
	return nil, false
}

// Has returns true if a strategy with the given ID is installed.
func (s *Strategies) Has(id ID) bool {
	_, ok := s.Get(id)
	return ok
}

// List returns the strategies in application order.
func (s *Strategies) List() []Strategy { return slices.Clone(s.ordered) }

// IDs returns the IDs of the strategies in application order.
func (s *Strategies) IDs() []ID {
	ids := make([]ID, 0, len(s.ordered))
	for _, str := range s.ordered {
		ids = append(ids, str.ID())
	}
	return ids
}

// Len returns the number of installed strategies.
func (s *Strategies) Len() int { return len(s.ordered) }

// Interceptor wraps the application of each strategy. It must call apply
// exactly once and return its error.
type Interceptor func(s Strategy, apply func() error) error

// Apply applies every strategy, in order, to the root traversal. Interceptors
// are invoked outermost first.
func (s *Strategies) Apply(ctx *Context, t *traversal.Traversal, interceptors ...Interceptor) error {
	if t.IsLocked() {
		return ErrLocked
	}
	if !t.IsRoot() {
		return spiceerrors.MustBugf("strategies must be applied to a root traversal, got child %s", t)
	}

	ctx.setInstalled(s.IDs())
	for _, str := range s.ordered {
		if err := ctx.Err(); err != nil {
			return err
		}

		apply := func() error { return str.Apply(ctx, t) }
		for i := len(interceptors) - 1; i >= 0; i-- {
			interceptor, next := interceptors[i], apply
			apply = func() error { return interceptor(str, next) }
		}

		if err := apply(); err != nil {
			return err
		}
		logger := logging.WithStrategy(ctx.Logger(), string(str.ID()))
		logger.Trace().Stringer("traversal", t).Msg("applied strategy")
	}
	return nil
}
