package optimization

import (
	"testing"

	"github.com/authzed/graphtraversal/pkg/strategy"
	"github.com/authzed/graphtraversal/pkg/traversal"
)

func TestIdentityRemoval(t *testing.T) {
	t.Parallel()

	identity := func() traversal.Step { return traversal.NewIdentityStep() }

	runRewriteCases(t, NewIdentityRemoval(), func() *strategy.Context { return standalone() }, []rewriteCase{
		{
			"drops identity",
			func() *traversal.Traversal { return traversal.New(v(), identity(), out()) },
			func() *traversal.Traversal { return traversal.New(v(), out()) },
		},
		{
			"labels move to the previous step",
			func() *traversal.Traversal { return traversal.New(v(), as(identity(), "a"), out()) },
			func() *traversal.Traversal { return traversal.New(as(v(), "a"), out()) },
		},
		{
			"within children",
			func() *traversal.Traversal {
				return traversal.New(v(), traversal.NewLocalStep(traversal.New(out(), identity())))
			},
			func() *traversal.Traversal {
				return traversal.New(v(), traversal.NewLocalStep(traversal.New(out())))
			},
		},
		unchanged("labeled start", func() *traversal.Traversal {
			return traversal.New(as(identity(), "a"), out())
		}),
		unchanged("single step", func() *traversal.Traversal {
			return traversal.New(identity())
		}),
		unchanged("identity branch", func() *traversal.Traversal {
			return traversal.New(v(), traversal.NewUnionStep(traversal.New(identity()), traversal.New(out())))
		}),
	})
}
