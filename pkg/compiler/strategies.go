package compiler

import (
	"sync"

	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/strategy/decoration"
	"github.com/authzed/graphtraversal/pkg/strategy/optimization"
	"github.com/authzed/graphtraversal/pkg/strategy/verification"
)

const barrierSizeSetting = "barrierSize"

// DefaultStrategies returns the strategies applied to traversals executed
// standalone.
func DefaultStrategies() (*strategy.Strategies, error) {
	return strategy.NewStrategies(standaloneStrategies(DefaultBarrierSize)...)
}

// ComputerStrategies returns the strategies applied to traversals executed on
// a graph computer.
func ComputerStrategies() (*strategy.Strategies, error) {
	return strategy.NewStrategies(computerStrategies(DefaultBarrierSize)...)
}

func strategiesFor(config *Config) (*strategy.Strategies, error) {
	if config.Computer {
		return strategy.NewStrategies(computerStrategies(config.BarrierSize)...)
	}
	return strategy.NewStrategies(standaloneStrategies(config.BarrierSize)...)
}

func standaloneStrategies(barrierSize int) []strategy.Strategy {
	return []strategy.Strategy{
		optimization.NewIdentityRemoval(),
		decoration.NewConnective(),
		optimization.NewEarlyLimit(),
		optimization.NewInlineFilter(),
		optimization.NewIncidentToAdjacent(),
		optimization.NewAdjacentToIncident(),
		optimization.NewByModulatorOptimization(),
		optimization.NewFilterRanking(),
		optimization.NewMatchPredicate(),
		optimization.NewRepeatUnroll(barrierSize),
		optimization.NewCount(),
		optimization.NewPathRetraction(barrierSize),
		optimization.NewLazyBarrier(barrierSize),
		verification.NewStandard(),
	}
}

func computerStrategies(barrierSize int) []strategy.Strategy {
	return append(standaloneStrategies(barrierSize),
		optimization.NewOrderLimit(),
		verification.NewComputer(),
	)
}

// Registry returns the registry building every strategy of this module from
// its configuration.
var Registry = sync.OnceValue(func() *strategy.Registry {
	registry := strategy.NewRegistry()
	for _, s := range []strategy.Strategy{
		decoration.NewConnective(),
		optimization.NewIdentityRemoval(),
		optimization.NewEarlyLimit(),
		optimization.NewInlineFilter(),
		optimization.NewIncidentToAdjacent(),
		optimization.NewAdjacentToIncident(),
		optimization.NewByModulatorOptimization(),
		optimization.NewFilterRanking(),
		optimization.NewMatchPredicate(),
		optimization.NewCount(),
		optimization.NewOrderLimit(),
		verification.NewStandard(),
		verification.NewLambdaRestriction(),
		verification.NewComputer(),
	} {
		registry.RegisterInstance(s)
	}

	registry.Register(strategy.RepeatUnrollID, withBarrierSize(func(size int) strategy.Strategy {
		return optimization.NewRepeatUnroll(size)
	}))
	registry.Register(strategy.PathRetractionID, withBarrierSize(func(size int) strategy.Strategy {
		return optimization.NewPathRetraction(size)
	}))
	registry.Register(strategy.LazyBarrierID, withBarrierSize(func(size int) strategy.Strategy {
		return optimization.NewLazyBarrier(size)
	}))
	registry.Register(strategy.ProductiveByID, optimization.ProductiveByFromConfiguration)
	registry.Register(strategy.EdgeLabelVerificationID, verification.EdgeLabelFromConfiguration)
	return registry
})

func withBarrierSize(build func(size int) strategy.Strategy) strategy.Factory {
	return func(config strategy.Configuration) (strategy.Strategy, error) {
		size, err := config.Int(barrierSizeSetting, DefaultBarrierSize)
		if err != nil {
			return nil, err
		}
		return build(size), nil
	}
}
