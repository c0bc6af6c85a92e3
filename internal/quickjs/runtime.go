//go:build !v8

// Package quickjs implements core.ScriptRuntime on modernc.org/quickjs,
// the default pure-Go engine backend.
package quickjs

import (
	"fmt"
	"sync"

	"github.com/gantrydata/gantry/internal/core"
	"modernc.org/quickjs"
)

// Runtime implements core.ScriptRuntime for the QuickJS engine.
type Runtime struct {
	vm   *quickjs.VM
	cfg  core.EngineConfig
	once sync.Once // guards the one-time dispatch switch
}

var _ core.ScriptRuntime = (*Runtime)(nil)

// New creates a QuickJS-backed runtime with the given configuration.
func New(cfg core.EngineConfig) (*Runtime, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating QuickJS VM: %w", err)
	}
	if cfg.MemoryLimitMB > 0 {
		vm.SetMemoryLimit(uintptr(cfg.MemoryLimitMB) * 1024 * 1024)
	}
	return &Runtime{vm: vm, cfg: cfg}, nil
}

// Eval evaluates JavaScript and discards the result.
func (r *Runtime) Eval(js string) error {
	v, err := r.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (r *Runtime) EvalString(js string) (string, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprint(result), nil
}

// EvalBool evaluates JavaScript and returns the result as a Go bool.
func (r *Runtime) EvalBool(js string) (bool, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", result)
	}
	return b, nil
}

// EvalInt evaluates JavaScript and returns the result as a Go int.
func (r *Runtime) EvalInt(js string) (int, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return 0, err
	}
	switch v := result.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("expected int, got %T", result)
	}
}

// RegisterFunc registers a Go function as a global JavaScript function.
// Multi-value Go returns (T, error) are automatically unwrapped: on success
// returns T, on error throws a TypeError. This is necessary because the
// QuickJS Go wrapper returns multi-value results as JS arrays.
func (r *Runtime) RegisterFunc(name string, fn any) error {
	rawName := "__raw_" + name
	if err := r.vm.RegisterFunc(rawName, fn, false); err != nil {
		return err
	}
	wrapJS := fmt.Sprintf(`(function() {
		var raw = globalThis[%q];
		globalThis[%q] = function() {
			var r = raw.apply(this, arguments);
			if (Array.isArray(r)) {
				if (r[1] !== null && r[1] !== undefined) throw new TypeError("calling %s: " + r[1]);
				return r[0];
			}
			return r;
		};
		delete globalThis[%q];
	})()`, rawName, name, name, rawName)
	return r.Eval(wrapJS)
}

// SetGlobal sets a global property on the VM's global object.
func (r *Runtime) SetGlobal(name string, value any) error {
	atom, err := r.vm.NewAtom(name)
	if err != nil {
		return fmt.Errorf("creating atom %q: %w", name, err)
	}
	glob := r.vm.GlobalObject()
	defer glob.Free()
	return glob.SetProperty(atom, value)
}

// RemoveGlobal deletes a global property. The name is a host-chosen
// identifier, never caller data.
func (r *Runtime) RemoveGlobal(name string) error {
	return r.Eval(fmt.Sprintf("delete globalThis[%q];", name))
}

// SetCompileMode records the requested mode. QuickJS always interprets
// bytecode, so tiered and off converge; the setting is kept for
// diagnostics and config round-trips.
func (r *Runtime) SetCompileMode(mode core.CompileMode) {
	r.cfg.CompileMode = mode
}

// DisableOptimizedDispatch records the switch. QuickJS has no optimizing
// dispatch tier, so there is nothing to turn off; the once guard keeps the
// contract identical to the V8 backend.
func (r *Runtime) DisableOptimizedDispatch() {
	r.once.Do(func() {
		r.cfg.NoOptimizedDispatch = true
	})
}

// Config returns the live engine configuration.
func (r *Runtime) Config() *core.EngineConfig {
	return &r.cfg
}

// RunMicrotasks pumps the QuickJS microtask queue.
func (r *Runtime) RunMicrotasks() {
	executePendingJobs(r.vm)
}

// Close releases the VM.
func (r *Runtime) Close() {
	r.vm.Close()
}

// VM returns the underlying QuickJS VM for engine-specific operations.
func (r *Runtime) VM() *quickjs.VM {
	return r.vm
}
