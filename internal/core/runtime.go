package core

// ScriptRuntime abstracts the embedded JavaScript engine (QuickJS or V8)
// behind a common interface used by the bootstrap sequence and the host API
// modules in internal/hostapi.
type ScriptRuntime interface {
	// Eval evaluates JavaScript source and discards the result.
	Eval(js string) error

	// EvalString evaluates JavaScript and returns the result as a Go string.
	EvalString(js string) (string, error)

	// EvalBool evaluates JavaScript and returns the result as a Go bool.
	EvalBool(js string) (bool, error)

	// EvalInt evaluates JavaScript and returns the result as a Go int.
	EvalInt(js string) (int, error)

	// RegisterFunc registers a Go function as a global JavaScript function.
	// The function's Go types are automatically marshaled to/from JS types.
	// On error return, the JS wrapper throws a TypeError instead of
	// returning an array.
	RegisterFunc(name string, fn any) error

	// SetGlobal binds a value under a global name. Basic Go types (string,
	// int, float64, bool) are auto-converted to JS types. Values always
	// cross the boundary through here, never by interpolating them into
	// script source.
	SetGlobal(name string, value any) error

	// RemoveGlobal unbinds a previously bound global name.
	RemoveGlobal(name string) error

	// SetCompileMode changes the engine's compile mode after construction.
	SetCompileMode(mode CompileMode)

	// DisableOptimizedDispatch turns off the engine's optimized JIT call
	// dispatch strategy. The switch is process-global on some engines;
	// the call is non-reentrant and guarded internally so it happens at
	// most once per process.
	DisableOptimizedDispatch()

	// Config returns the live engine configuration. The returned pointer
	// reflects mutations made through the setters above.
	Config() *EngineConfig

	// RunMicrotasks pumps the microtask queue (Promise callbacks, etc.).
	RunMicrotasks()

	// Close releases the engine instance.
	Close()
}
