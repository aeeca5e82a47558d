package compiler

import (
	"github.com/rs/zerolog"
)

//go:generate go run github.com/ecordell/optgen -output zz_generated.options.go . Config

// DefaultBarrierSize is the number of traversers a barrier added by the
// default strategies gathers before releasing them.
const DefaultBarrierSize = 2500

// Config configures a compilation.
type Config struct {
	// Computer compiles the traversal for distributed (graph computer)
	// execution.
	Computer bool `debugmap:"visible"`

	// BarrierSize is the size of the barriers added by the default
	// strategies. Ignored when the strategies are provided.
	BarrierSize int `debugmap:"visible" default:"2500"`

	// Logger receives the strategy logs. Defaults to the logger of the
	// context.
	Logger *zerolog.Logger `debugmap:"hidden"`

	// DisableCache compiles the traversal even if an equal traversal was
	// compiled with the same strategies before.
	DisableCache bool `debugmap:"visible"`
}
