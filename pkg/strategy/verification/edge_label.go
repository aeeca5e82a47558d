package verification

import (
	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

const (
	throwExceptionKey = "throwException"
	logWarningKey     = "logWarning"
)

// EdgeLabel reports vertex steps walking edges of any label. Depending on
// its settings, it logs a warning, fails the compilation, both or neither.
type EdgeLabel struct {
	strategy.Base
	throwException bool
	logWarning     bool
}

func NewEdgeLabel(throwException, logWarning bool) *EdgeLabel {
	return &EdgeLabel{throwException: throwException, logWarning: logWarning}
}

// EdgeLabelFromConfiguration builds the strategy from its throwException and
// logWarning settings, both defaulting to false.
func EdgeLabelFromConfiguration(config strategy.Configuration) (strategy.Strategy, error) {
	throwException, err := config.Bool(throwExceptionKey, false)
	if err != nil {
		return nil, err
	}
	logWarning, err := config.Bool(logWarningKey, false)
	if err != nil {
		return nil, err
	}
	return NewEdgeLabel(throwException, logWarning), nil
}

func (*EdgeLabel) ID() strategy.ID             { return strategy.EdgeLabelVerificationID }
func (*EdgeLabel) Category() strategy.Category { return strategy.Verification }

func (s *EdgeLabel) Configuration() strategy.Configuration {
	return strategy.ConfigurationFor(s.ID()).
		With(throwExceptionKey, s.throwException).
		With(logWarningKey, s.logWarning)
}

func (s *EdgeLabel) Apply(ctx *strategy.Context, root *traversal.Traversal) error {
	err := traversal.ApplyRecursively(root, func(t *traversal.Traversal) error {
		for _, step := range traversal.StepsOf[*traversal.VertexStep](t) {
			if len(step.EdgeLabels()) == 0 {
				return verificationErrorf(s.ID(), t,
					"the provided traversal contains a vertex step without any specified edge label: %s", step)
			}
		}
		return nil
	})
	if err == nil {
		return nil
	}

	if s.logWarning {
		ctx.Logger().Warn().Str("traversal", root.String()).Msg(err.Error())
	}
	if s.throwException {
		return err
	}
	return nil
}
