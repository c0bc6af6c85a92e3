// Package hostapi installs the engine-side standard library Gantry guests
// see: the module system with require() and the package registry, console,
// and the builtin http, compress, state, ws, and html modules. Every module
// follows the same shape: Go host functions registered on the runtime plus
// a JS shim that exposes them under a guest-friendly API.
package hostapi

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gantrydata/gantry/internal/core"
)

// DefaultHTTPTimeout bounds a single guest http request.
const DefaultHTTPTimeout = 30 * time.Second

// DefaultMaxResponseBytes caps a guest http response body (10 MB).
const DefaultMaxResponseBytes = 10 * 1024 * 1024

// Options configures the installed host API.
type Options struct {
	Stdout  io.Writer // guest console log/info/debug sink
	Stderr  io.Writer // guest console warn/error sink
	DataDir string    // directory for the state module's database

	HTTPTimeout      time.Duration // per-request timeout, 0 means DefaultHTTPTimeout
	MaxResponseBytes int           // response body cap, 0 means DefaultMaxResponseBytes
}

func (o *Options) fill() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.DataDir == "" {
		o.DataDir = "./data"
	}
	if o.HTTPTimeout <= 0 {
		o.HTTPTimeout = DefaultHTTPTimeout
	}
	if o.MaxResponseBytes <= 0 {
		o.MaxResponseBytes = DefaultMaxResponseBytes
	}
}

// Install wires the full host API into the runtime. It must run before any
// bootstrap snippet: the snippets call into __pkg and require().
func Install(rt core.ScriptRuntime, opts Options) error {
	opts.fill()

	setups := []struct {
		name string
		fn   func(core.ScriptRuntime, *Options) error
	}{
		{"console", setupConsole},
		{"loader", setupLoader},
		{"pkg", setupPkg},
		{"http", setupHTTP},
		{"compress", setupCompress},
		{"state", setupState},
		{"ws", setupWS},
		{"html", setupHTML},
	}
	for _, s := range setups {
		if err := s.fn(rt, &opts); err != nil {
			return fmt.Errorf("installing %s: %w", s.name, err)
		}
	}
	return nil
}
