package strategy

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/authzed/graphtraversal/internal/logging"
	"github.com/authzed/graphtraversal/pkg/genutil/mapz"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

// Context is passed to every strategy of a compilation. Besides the
// cancellation context, it carries the execution mode, the set of installed
// strategies and a side table strategies use to mark traversals.
type Context struct {
	context.Context

	computer  bool
	installed *mapz.Set[ID]
	marks     *mapz.MultiMap[string, string]
	logger    *zerolog.Logger
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithComputer sets whether the traversal is compiled for distributed
// (graph computer) execution.
func WithComputer(computer bool) ContextOption {
	return func(c *Context) { c.computer = computer }
}

// WithLogger sets the logger strategies report to. Defaults to the logger of
// the context.
func WithLogger(logger zerolog.Logger) ContextOption {
	return func(c *Context) { c.logger = &logger }
}

// WithInstalled sets the strategies reported as installed. Strategies.Apply
// replaces them with the strategies it applies.
func WithInstalled(ids ...ID) ContextOption {
	return func(c *Context) { c.installed = mapz.NewSet(ids...) }
}

// NewContext returns a compilation context.
func NewContext(ctx context.Context, opts ...ContextOption) *Context {
	c := &Context{
		Context:   ctx,
		installed: mapz.NewSet[ID](),
		marks:     mapz.NewMultiMap[string, string](),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Ctx(ctx)
	}
	return c
}

// OnComputer returns true if the traversal is compiled for distributed
// execution.
func (c *Context) OnComputer() bool { return c.computer }

// Installed returns true if the strategy is part of the compilation.
func (c *Context) Installed(id ID) bool { return c.installed.Has(id) }

func (c *Context) setInstalled(ids []ID) {
	c.installed = mapz.NewSet(ids...)
}

// Logger returns the logger strategies report to.
func (c *Context) Logger() *zerolog.Logger { return c.logger }

// Mark records the key against the traversal.
func (c *Context) Mark(t *traversal.Traversal, key string) {
	c.marks.Add(t.ID(), key)
}

// Marked returns true if the key was recorded against the traversal.
func (c *Context) Marked(t *traversal.Traversal, key string) bool {
	return c.marks.Contains(t.ID(), key)
}

// Unmark removes the key from the traversal.
func (c *Context) Unmark(t *traversal.Traversal, key string) {
	c.marks.RemoveValue(t.ID(), key)
}
