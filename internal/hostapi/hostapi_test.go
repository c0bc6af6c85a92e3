package hostapi

import (
	"testing"

	"github.com/gantrydata/gantry/internal/core"
)

// captureRuntime implements core.ScriptRuntime just far enough to harvest
// the host functions a setup registers, so tests can call them directly.
type captureRuntime struct {
	cfg     core.EngineConfig
	fns     map[string]any
	evals   []string
	globals map[string]any
}

var _ core.ScriptRuntime = (*captureRuntime)(nil)

func newCaptureRuntime() *captureRuntime {
	return &captureRuntime{
		fns:     make(map[string]any),
		globals: make(map[string]any),
	}
}

func (c *captureRuntime) Eval(js string) error {
	c.evals = append(c.evals, js)
	return nil
}

func (c *captureRuntime) EvalString(js string) (string, error) { return "", c.Eval(js) }
func (c *captureRuntime) EvalBool(js string) (bool, error)     { return false, c.Eval(js) }
func (c *captureRuntime) EvalInt(js string) (int, error)       { return 0, c.Eval(js) }

func (c *captureRuntime) RegisterFunc(name string, fn any) error {
	c.fns[name] = fn
	return nil
}

func (c *captureRuntime) SetGlobal(name string, value any) error {
	c.globals[name] = value
	return nil
}

func (c *captureRuntime) RemoveGlobal(name string) error {
	delete(c.globals, name)
	return nil
}

func (c *captureRuntime) SetCompileMode(mode core.CompileMode) { c.cfg.CompileMode = mode }
func (c *captureRuntime) DisableOptimizedDispatch()            { c.cfg.NoOptimizedDispatch = true }
func (c *captureRuntime) Config() *core.EngineConfig           { return &c.cfg }
func (c *captureRuntime) RunMicrotasks()                       {}
func (c *captureRuntime) Close()                               {}

// hostFunc fetches a registered host function with the expected signature.
func hostFunc[T any](t *testing.T, rt *captureRuntime, name string) T {
	t.Helper()
	raw, ok := rt.fns[name]
	if !ok {
		t.Fatalf("host function %s not registered", name)
	}
	fn, ok := raw.(T)
	if !ok {
		t.Fatalf("host function %s has type %T", name, raw)
	}
	return fn
}
