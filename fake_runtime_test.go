package gantry

import (
	"testing"

	"github.com/gantrydata/gantry/internal/core"
)

// fakeCall records one runtime interaction for ordering assertions.
type fakeCall struct {
	op   string // "eval", "set", "remove", "register"
	name string // script text, global name, or function name
}

// fakeRuntime implements core.ScriptRuntime in-memory so bootstrap ordering
// and binding hygiene can be asserted without a real engine.
type fakeRuntime struct {
	cfg         core.EngineConfig
	calls       []fakeCall
	globals     map[string]any   // live bindings, removed on unbind
	boundValues map[string]any   // every value ever bound, kept for assertions
	evalErr     map[string]error // script text -> injected failure
	closed      bool
}

var _ core.ScriptRuntime = (*fakeRuntime)(nil)

func (f *fakeRuntime) Eval(js string) error {
	f.calls = append(f.calls, fakeCall{op: "eval", name: js})
	if err, ok := f.evalErr[js]; ok {
		return err
	}
	return nil
}

func (f *fakeRuntime) EvalString(js string) (string, error) { return "", f.Eval(js) }
func (f *fakeRuntime) EvalBool(js string) (bool, error)     { return false, f.Eval(js) }
func (f *fakeRuntime) EvalInt(js string) (int, error)       { return 0, f.Eval(js) }

func (f *fakeRuntime) RegisterFunc(name string, fn any) error {
	f.calls = append(f.calls, fakeCall{op: "register", name: name})
	return nil
}

func (f *fakeRuntime) SetGlobal(name string, value any) error {
	f.calls = append(f.calls, fakeCall{op: "set", name: name})
	f.globals[name] = value
	f.boundValues[name] = value
	return nil
}

func (f *fakeRuntime) RemoveGlobal(name string) error {
	f.calls = append(f.calls, fakeCall{op: "remove", name: name})
	delete(f.globals, name)
	return nil
}

func (f *fakeRuntime) SetCompileMode(mode core.CompileMode) { f.cfg.CompileMode = mode }
func (f *fakeRuntime) DisableOptimizedDispatch()            { f.cfg.NoOptimizedDispatch = true }
func (f *fakeRuntime) Config() *core.EngineConfig           { return &f.cfg }
func (f *fakeRuntime) RunMicrotasks()                       {}
func (f *fakeRuntime) Close()                               { f.closed = true }

// evalIndex returns the position of the first eval of the given script in
// the call log, or -1.
func (f *fakeRuntime) evalIndex(js string) int {
	return f.callIndex("eval", js)
}

func (f *fakeRuntime) callIndex(op, name string) int {
	for i, c := range f.calls {
		if c.op == op && c.name == name {
			return i
		}
	}
	return -1
}

// resetSetup clears the process-wide single-invocation guard between tests.
func resetSetup() {
	setupMu.Lock()
	setupDone = false
	setupMu.Unlock()
}

// useFakeRuntime routes Setup's backend construction to a fake for the
// duration of one test.
func useFakeRuntime(t *testing.T) *fakeRuntime {
	t.Helper()
	fake := &fakeRuntime{
		globals:     make(map[string]any),
		boundValues: make(map[string]any),
		evalErr:     make(map[string]error),
	}
	orig := newRuntime
	newRuntime = func(cfg core.EngineConfig) (core.ScriptRuntime, error) {
		fake.cfg = cfg
		return fake, nil
	}
	resetSetup()
	t.Cleanup(func() {
		newRuntime = orig
		resetSetup()
	})
	return fake
}
