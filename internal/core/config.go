package core

// CompileMode selects how the embedded engine compiles guest code.
type CompileMode int

const (
	// CompileTiered is the engine default: interpret first, optimize hot code.
	CompileTiered CompileMode = iota
	// CompileOff disables the optimizing compiler entirely (used by --dev).
	CompileOff
	// CompileEager compiles everything up front.
	CompileEager
)

// String returns the mode name used in logs and diagnostics.
func (m CompileMode) String() string {
	switch m {
	case CompileOff:
		return "off"
	case CompileEager:
		return "eager"
	default:
		return "tiered"
	}
}

// EngineConfig holds tuning state for the embedded script engine. It is
// constructed by the caller, threaded into backend construction, and from
// then on mutated only through the runtime's own setters.
type EngineConfig struct {
	CompileMode         CompileMode // how guest code is compiled
	NoOptimizedDispatch bool        // true once the optimized JIT dispatch strategy is disabled
	MemoryLimitMB       int         // engine heap limit, 0 means engine default

	// Limits advisory to host modules, not enforced by the engine itself.
	HTTPTimeoutSec   int // per-request timeout for the guest http module
	MaxResponseBytes int // max body size accepted by the guest http module
}
