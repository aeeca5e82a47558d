// Package compiler applies strategies to traversals, producing frozen,
// executable traversals along with an explanation of every rewrite.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"resenje.org/singleflight"

	"github.com/authzed/graphtraversal/internal/logging"
	"github.com/authzed/graphtraversal/pkg/cache"
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

var tracer = otel.Tracer("graphtraversal/pkg/compiler")

const compiledCacheMaxCost = 4 * 1024

var compiledCache = sync.OnceValue(func() cache.Cache[cache.StringKey, *Compiled] {
	c, err := cache.NewStandardCacheWithMetrics[cache.StringKey, *Compiled]("compiled_traversals", &cache.Config{
		MaxCost: compiledCacheMaxCost,
	})
	if err != nil {
		logging.Warn().Err(err).Msg("failed to create the compiled traversal cache; traversals will not be cached")
		return cache.NoopCache[cache.StringKey, *Compiled]()
	}
	return c
})

var compileGroup singleflight.Group[cache.StringKey, *Compiled]

// ErrNotRoot is returned when a child traversal is compiled on its own.
var ErrNotRoot = errors.New("only root traversals can be compiled")

// Compile applies the strategies to a copy of the traversal and freezes the
// result. The input is left untouched. When strs is nil, the default
// strategies of the configured execution mode are applied.
//
// Compiling an already compiled traversal returns it as is.
func Compile(ctx context.Context, t *traversal.Traversal, strs *strategy.Strategies, opts ...ConfigOption) (*Compiled, error) {
	config := NewConfigWithOptionsAndDefaults(opts...)
	if t.IsLocked() {
		return &Compiled{original: t.String(), traversal: t}, nil
	}
	if !t.IsRoot() {
		return nil, ErrNotRoot
	}
	if config.BarrierSize <= 0 {
		return nil, fmt.Errorf("barrier size must be positive, got %d", config.BarrierSize)
	}

	if strs == nil {
		var err error
		strs, err = strategiesFor(config)
		if err != nil {
			return nil, err
		}
	}

	ctx, span := tracer.Start(ctx, "Compile", trace.WithAttributes(
		attribute.Bool("computer", config.Computer),
		attribute.Int("strategies", strs.Len()),
	))
	defer span.End()

	logger := config.Logger
	if logger == nil {
		logger = logging.Ctx(ctx)
	}

	key, cacheable := cacheKey(t, strs, config)
	if !cacheable {
		return compile(ctx, t, strs, config, logger)
	}
	if compiled, ok := compiledCache().Get(key); ok {
		span.SetAttributes(attribute.Bool("cached", true))
		compilesTotal.WithLabelValues(modeLabel(config.Computer), "true").Inc()
		return compiled, nil
	}

	// Concurrent compilations of the same traversal share a single run.
	compiled, shared, err := compileGroup.Do(ctx, key, func(ctx context.Context) (*Compiled, error) {
		compiled, err := compile(ctx, t, strs, config, logger)
		if err != nil {
			return nil, err
		}
		compiledCache().Set(key, compiled, 1)
		return compiled, nil
	})
	span.SetAttributes(attribute.Bool("shared", shared))
	return compiled, err
}

func compile(ctx context.Context, t *traversal.Traversal, strs *strategy.Strategies, config *Config, logger *zerolog.Logger) (*Compiled, error) {
	span := trace.SpanFromContext(ctx)
	compiled := &Compiled{
		original:   t.String(),
		traversal:  t.Clone(),
		strategies: strs.IDs(),
	}

	sctx := strategy.NewContext(ctx, strategy.WithComputer(config.Computer), strategy.WithLogger(*logger))
	if err := strs.Apply(sctx, compiled.traversal, traceStrategy(ctx), compiled.record(logger)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	compiled.traversal.Lock()

	compilesTotal.WithLabelValues(modeLabel(config.Computer), "false").Inc()
	logger.Debug().Object("compiled", compiled).Msg("compiled traversal")
	return compiled, nil
}

// traceStrategy starts a span and counts every application of a strategy.
func traceStrategy(ctx context.Context) strategy.Interceptor {
	return func(s strategy.Strategy, apply func() error) error {
		_, span := tracer.Start(ctx, string(s.ID()), trace.WithAttributes(
			attribute.String("category", s.Category().String()),
		))
		defer span.End()

		strategyApplicationsTotal.WithLabelValues(string(s.ID())).Inc()
		if err := apply(); err != nil {
			compileErrorsTotal.WithLabelValues(string(s.ID())).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		return nil
	}
}

// cacheKey returns the key of the compilation of the traversal, derived from
// its typed fingerprint. Traversals holding lambdas are not cached, as their
// rendering does not identify the functions they run.
func cacheKey(t *traversal.Traversal, strs *strategy.Strategies, config *Config) (cache.StringKey, bool) {
	if config.DisableCache {
		return "", false
	}
	if traversal.AnyStepRecursively(t, func(s traversal.Step) bool {
		_, ok := s.(traversal.LambdaHolder)
		return ok
	}) {
		return "", false
	}

	configs := make([]strategy.Configuration, 0, strs.Len())
	for _, s := range strs.List() {
		configs = append(configs, s.Configuration())
	}
	encoded, err := strategy.MarshalConfigurations(configs)
	if err != nil {
		return "", false
	}

	hasher := xxhash.New()
	_, _ = hasher.WriteString(traversal.Fingerprint(t))
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.WriteString(strconv.FormatBool(config.Computer))
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.Write(encoded)
	return cache.StringKey(strconv.FormatUint(hasher.Sum64(), 16)), true
}

// Compiled is a frozen traversal along with the strategies applied to it.
type Compiled struct {
	original   string
	traversal  *traversal.Traversal
	strategies []strategy.ID
	rewrites   []Rewrite
}

// Rewrite records the traversal as left by a strategy.
type Rewrite struct {
	Strategy  strategy.ID
	Category  strategy.Category
	Traversal string
}

func (c *Compiled) record(logger *zerolog.Logger) strategy.Interceptor {
	return func(s strategy.Strategy, apply func() error) error {
		if err := apply(); err != nil {
			return err
		}

		rendered := c.traversal.String()
		c.rewrites = append(c.rewrites, Rewrite{Strategy: s.ID(), Category: s.Category(), Traversal: rendered})
		logger.Debug().Str("strategy", string(s.ID())).Str("traversal", rendered).Msg("applied strategy")
		return nil
	}
}

// Traversal returns the compiled traversal. It is locked; executors working
// with step state must execute a clone.
func (c *Compiled) Traversal() *traversal.Traversal { return c.traversal }

// Original returns the rendering of the traversal before compilation.
func (c *Compiled) Original() string { return c.original }

// Strategies returns the IDs of the applied strategies, in application order.
func (c *Compiled) Strategies() []strategy.ID { return append([]strategy.ID(nil), c.strategies...) }

// Rewrites returns the traversal as left by every applied strategy.
func (c *Compiled) Rewrites() []Rewrite { return append([]Rewrite(nil), c.rewrites...) }

func (c *Compiled) String() string { return c.traversal.String() }

func (c *Compiled) MarshalZerologObject(e *zerolog.Event) {
	ids := make([]string, 0, len(c.strategies))
	for _, id := range c.strategies {
		ids = append(ids, string(id))
	}
	e.Str("original", c.original).Stringer("traversal", c.traversal).Strs("strategies", ids)
}
