package traversal

import (
	"slices"
)

// AggregateGlobalStep gathers all of its input into a side-effect list
// before passing it on.
type AggregateGlobalStep struct {
	baseStep
	sideEffectMarker
	collectingBarrier
	key string
}

func NewAggregateGlobalStep(key string) *AggregateGlobalStep {
	return &AggregateGlobalStep{key: key}
}

func (s *AggregateGlobalStep) Name() string          { return "AggregateGlobalStep" }
func (s *AggregateGlobalStep) String() string        { return stepString(s, s.key) }
func (s *AggregateGlobalStep) SideEffectKey() string { return s.key }

func (s *AggregateGlobalStep) Requirements() Requirements {
	return Requirements(0).With(RequireSideEffects, RequireBulk)
}

func (s *AggregateGlobalStep) Clone() Step {
	return &AggregateGlobalStep{baseStep: s.cloneBase(), key: s.key}
}

// SideEffectCapStep drains its input and then emits the value of one side
// effect, or a map of several.
type SideEffectCapStep struct {
	baseStep
	keys []string
}

func NewSideEffectCapStep(keys ...string) *SideEffectCapStep {
	return &SideEffectCapStep{keys: slices.Clone(keys)}
}

func (s *SideEffectCapStep) Name() string               { return "SideEffectCapStep" }
func (s *SideEffectCapStep) String() string             { return stepString(s, s.keys) }
func (s *SideEffectCapStep) Keys() []string             { return slices.Clone(s.keys) }
func (s *SideEffectCapStep) Requirements() Requirements { return Requirements(RequireSideEffects) }

func (s *SideEffectCapStep) Clone() Step {
	return &SideEffectCapStep{baseStep: s.cloneBase(), keys: slices.Clone(s.keys)}
}

// SideEffectFunc runs for every input of a lambda side-effect step.
type SideEffectFunc func(t *Traverser) error

// LambdaSideEffectStep calls an opaque function for every input.
type LambdaSideEffectStep struct {
	baseStep
	sideEffectMarker
	lambdaMarker
	name string
	fn   SideEffectFunc
}

func NewLambdaSideEffectStep(name string, fn SideEffectFunc) *LambdaSideEffectStep {
	return &LambdaSideEffectStep{name: name, fn: fn}
}

func (s *LambdaSideEffectStep) Name() string         { return "LambdaSideEffectStep" }
func (s *LambdaSideEffectStep) String() string       { return stepString(s, s.name) }
func (s *LambdaSideEffectStep) Func() SideEffectFunc { return s.fn }

func (s *LambdaSideEffectStep) Clone() Step {
	return &LambdaSideEffectStep{baseStep: s.cloneBase(), name: s.name, fn: s.fn}
}

// ProfileKey is the side-effect key profile() writes its metrics to.
const ProfileKey = "~metrics"

// ProfileSideEffectStep records traversal metrics. It must end its
// traversal.
type ProfileSideEffectStep struct {
	baseStep
	sideEffectMarker
}

func NewProfileSideEffectStep() *ProfileSideEffectStep { return &ProfileSideEffectStep{} }

func (s *ProfileSideEffectStep) Name() string          { return "ProfileSideEffectStep" }
func (s *ProfileSideEffectStep) String() string        { return stepString(s) }
func (s *ProfileSideEffectStep) SideEffectKey() string { return ProfileKey }

func (s *ProfileSideEffectStep) Clone() Step {
	return &ProfileSideEffectStep{baseStep: s.cloneBase()}
}
