package testutil

import (
	"go.uber.org/goleak"
)

// GoLeakIgnores returns the goroutines that are expected to outlive a test,
// such as the maintenance loops of process-wide caches.
func GoLeakIgnores() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreAnyFunction("github.com/Yiling-J/theine-go/internal.(*Store[...]).maintance"),
		goleak.IgnoreAnyFunction("github.com/Yiling-J/theine-go/internal.(*Store[...]).maintance.func1"),
		goleak.IgnoreAnyFunction("github.com/Yiling-J/theine-go/internal.(*Store[...]).maintenance"),
		goleak.IgnoreAnyFunction("github.com/Yiling-J/theine-go/internal.(*Store[...]).maintenance.func1"),
	}
}
