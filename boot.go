// Package gantry bootstraps the single, process-wide embedded JavaScript
// runtime that hosts Gantry's pipeline plugins and control scripts.
//
// The bootstrap protocol is deliberately small and strictly linear: create
// the singleton engine context, apply boot-time tuning options (each may
// warn but never aborts), pick between bundled and default dependency
// resolution, and append one module search path entry. Caller-supplied and
// resolved strings cross into the engine exclusively by bind-by-name; no
// untrusted value is ever concatenated into script source.
package gantry

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gantrydata/gantry/internal/core"
	"github.com/gantrydata/gantry/internal/hostapi"
)

// Private names under which path values are bound into the engine for the
// duration of a single search-path append. Consuming snippets reference only
// these names, never the raw values.
const (
	internalBundlePathName = "__internal_bundle_path__"
	internalLoadPathName   = "__internal_load_path__"
)

// Script snippets executed during bootstrap. All are host-chosen constants;
// none embeds caller data.
const (
	clearPathCacheJS = "__pkg.clearPathCache();"
	loadPkgJS        = "require('pkg');"
	setupBundleEnvJS = "pkg.load().setupEnvironment();"
	loadPkgSetupJS   = "require('pkg/setup');"

	appendBundlePathJS = "require.paths.push(__path_expand(" + internalBundlePathName + "));"
	appendLoadPathJS   = "require.paths.push(__path_expand(" + internalLoadPathName + "));"
)

// newRuntime constructs the engine backend. Tests substitute a fake to
// assert bootstrap ordering without a real engine.
var newRuntime = func(cfg core.EngineConfig) (core.ScriptRuntime, error) {
	return newBackend(cfg)
}

var (
	setupMu   sync.Mutex
	setupDone bool
)

// Context is the singleton handle to the embedded runtime. Values bound
// into it persist across script evaluations. It is created exactly once per
// process by Setup and lives for the process's lifetime.
type Context struct {
	rt core.ScriptRuntime
}

// Bind associates a value with a global name inside the engine. This is the
// only sanctioned way to pass data into script code.
func (c *Context) Bind(name string, value any) error {
	return c.rt.SetGlobal(name, value)
}

// Unbind removes a previously bound global name.
func (c *Context) Unbind(name string) error {
	return c.rt.RemoveGlobal(name)
}

// Eval executes script text and discards the result.
func (c *Context) Eval(js string) error {
	return c.rt.Eval(js)
}

// EvalString executes script text and returns the result as a string.
func (c *Context) EvalString(js string) (string, error) {
	return c.rt.EvalString(js)
}

// Config returns the live engine configuration.
func (c *Context) Config() *core.EngineConfig {
	return c.rt.Config()
}

// Runtime returns the underlying script runtime for host modules that need
// direct engine access.
func (c *Context) Runtime() core.ScriptRuntime {
	return c.rt
}

// SetupOptions carries the full bootstrap input set. Every field other than
// EngineOptions, BundlePath, and Warn has a usable zero value.
type SetupOptions struct {
	// EngineOptions are boot-time engine tuning flags in the shape
	// "-<token>" (the CLI collects them from -E<token> arguments).
	EngineOptions []string

	// BundlePath selects bundled dependency resolution when non-empty.
	// The environment contract around it (GANTRY_BUNDLE_PATH and, in
	// default mode, GANTRY_PKG_HOME / GANTRY_PKG_PATH) is established by
	// the launcher before Setup runs; Setup itself never touches it.
	BundlePath string

	// Warn receives option warnings. Defaults to os.Stderr.
	Warn io.Writer

	// Config is the engine tuning state threaded into backend construction.
	Config core.EngineConfig

	// Stdout and Stderr are the guest console sinks. Default to the
	// process's own streams.
	Stdout io.Writer
	Stderr io.Writer

	// DataDir is where the guest state module keeps its database.
	// Defaults to "./data".
	DataDir string
}

// Setup creates and configures the singleton engine context. It is the
// convenience form of SetupWithOptions covering the common inputs.
//
// Setup is intended to run exactly once per process, before anything else
// touches the runtime; a second call returns ErrAlreadySetup. The caller is
// responsible for the "no use before bootstrap completes" barrier — Setup
// performs no locking on the caller's behalf beyond the single-invocation
// guard.
func Setup(engineOptions []string, bundlePath string, warn io.Writer) (*Context, error) {
	return SetupWithOptions(SetupOptions{
		EngineOptions: engineOptions,
		BundlePath:    bundlePath,
		Warn:          warn,
	})
}

// SetupWithOptions runs the full bootstrap sequence:
//
//  1. Create the singleton engine context with persistent-variable semantics
//     and install the guest module system.
//  2. Classify and apply each engine option; unrecognized and non-functional
//     options warn and are skipped, never aborting the loop.
//  3. Branch on BundlePath: activate bundled dependency resolution, or clear
//     the package path cache and resolve the self location. Either way,
//     append exactly one module search path entry via bind/use/unbind.
//  4. Return the configured context.
//
// A fatal error releases the partially configured runtime so a corrected
// retry is possible; no context escapes a failed bootstrap.
func SetupWithOptions(opts SetupOptions) (*Context, error) {
	setupMu.Lock()
	defer setupMu.Unlock()
	if setupDone {
		return nil, ErrAlreadySetup
	}

	if opts.Warn == nil {
		opts.Warn = os.Stderr
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.DataDir == "" {
		opts.DataDir = "./data"
	}

	rt, err := newRuntime(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("creating engine context: %w", err)
	}

	ctx, err := configure(rt, opts)
	if err != nil {
		rt.Close()
		return nil, err
	}

	setupDone = true
	return ctx, nil
}

// configure drives steps 2 and 3 of the bootstrap against a live runtime.
func configure(rt core.ScriptRuntime, opts SetupOptions) (*Context, error) {
	if err := hostapi.Install(rt, hostapi.Options{
		Stdout:           opts.Stdout,
		Stderr:           opts.Stderr,
		DataDir:          opts.DataDir,
		HTTPTimeout:      time.Duration(opts.Config.HTTPTimeoutSec) * time.Second,
		MaxResponseBytes: opts.Config.MaxResponseBytes,
	}); err != nil {
		return nil, fmt.Errorf("installing host API: %w", err)
	}

	for _, option := range opts.EngineOptions {
		switch classifyBootOption(option, rt) {
		case core.OptionUnrecognized:
			fmt.Fprintf(opts.Warn, "[WARN] The \"-E\" option(s) are not recognized in Gantry: -E%s\n", option)
			fmt.Fprintln(opts.Warn, "[WARN] Please add your requests at: https://github.com/gantrydata/gantry/issues")
			fmt.Fprintln(opts.Warn, "")
		case core.OptionNonFunctional:
			fmt.Fprintf(opts.Warn, "[WARN] The \"-E\" option(s) do not work in Gantry: -E%s\n", option)
			fmt.Fprintln(opts.Warn, "")
		}
	}

	mode := core.BundleMode{BundlePath: opts.BundlePath}
	if mode.Bundled() {
		if err := activateBundled(rt, mode.BundlePath); err != nil {
			return nil, err
		}
	} else {
		if err := activateDefault(rt); err != nil {
			return nil, err
		}
	}

	return &Context{rt: rt}, nil
}

// activateBundled switches the guest dependency manager to bundled
// resolution and appends the bundle path to the module search path.
func activateBundled(rt core.ScriptRuntime, bundlePath string) error {
	// The dependency manager ships with the host's script library.
	for _, snippet := range []string{
		clearPathCacheJS,
		loadPkgJS,
		setupBundleEnvJS,
		loadPkgSetupJS,
	} {
		if err := rt.Eval(snippet); err != nil {
			return fmt.Errorf("activating bundled dependency resolution: %w", err)
		}
	}

	// Bind/use/unbind: the snippet references only the bound name. Building
	// the statement from the path string itself would be an injection hole.
	if err := rt.SetGlobal(internalBundlePathName, bundlePath); err != nil {
		return fmt.Errorf("binding bundle path: %w", err)
	}
	if err := rt.Eval(appendBundlePathJS); err != nil {
		return fmt.Errorf("appending bundle path to module search path: %w", err)
	}
	if err := rt.RemoveGlobal(internalBundlePathName); err != nil {
		return fmt.Errorf("unbinding bundle path: %w", err)
	}
	return nil
}

// activateDefault clears the package path cache so the default roots are
// reloaded from the environment, then appends the self location to the
// module search path.
func activateDefault(rt core.ScriptRuntime) error {
	if err := rt.Eval(clearPathCacheJS); err != nil {
		return fmt.Errorf("clearing package path cache: %w", err)
	}

	// Added just in case: it is not mandatory for the entry script itself,
	// but later steps may resolve library code living alongside the host.
	location, err := resolveSelfLocation()
	if err != nil {
		return err
	}

	if err := rt.SetGlobal(internalLoadPathName, location.LoadPathEntry()); err != nil {
		return fmt.Errorf("binding load path: %w", err)
	}
	if err := rt.Eval(appendLoadPathJS); err != nil {
		return fmt.Errorf("appending load path to module search path: %w", err)
	}
	if err := rt.RemoveGlobal(internalLoadPathName); err != nil {
		return fmt.Errorf("unbinding load path: %w", err)
	}
	return nil
}
