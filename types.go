package rxfn

import "github.com/KasperOmsK/rxfn/types"

// Re-export interfaces from the types package so that users only need to
// import rxfn. Internal packages depend on types, never on the root package.
type (
	Logger           = types.Logger
	MetricsCollector = types.MetricsCollector
)

// Re-export sentinel errors from the types package.
var (
	ErrEmpty           = types.ErrEmpty
	ErrOutOfRange      = types.ErrOutOfRange
	ErrTimeout         = types.ErrTimeout
	ErrSchedulerClosed = types.ErrSchedulerClosed
)
