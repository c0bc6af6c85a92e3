package hostapi

import (
	"fmt"

	"github.com/gantrydata/gantry/internal/core"
)

// consoleJS builds the console object on top of the Go-backed __console
// function. Objects stringify via JSON where possible so guest logs stay
// readable.
const consoleJS = `
(function() {
	var levels = ['log', 'info', 'warn', 'error', 'debug'];
	var con = {};
	for (var i = 0; i < levels.length; i++) {
		(function(lvl) {
			con[lvl] = function() {
				var parts = [];
				for (var j = 0; j < arguments.length; j++) {
					var arg = arguments[j];
					if (typeof arg === 'object' && arg !== null) {
						try { parts.push(JSON.stringify(arg)); }
						catch (e) { parts.push(String(arg)); }
					} else {
						parts.push(String(arg));
					}
				}
				__console(lvl, parts.join(' '));
			};
		})(levels[i]);
	}
	globalThis.console = con;
})();
`

// setupConsole streams guest console output to the host's stdio sinks:
// warn and error to stderr, everything else to stdout.
func setupConsole(rt core.ScriptRuntime, opts *Options) error {
	stdout := opts.Stdout
	stderr := opts.Stderr
	if err := rt.RegisterFunc("__console", func(level, message string) {
		switch level {
		case "warn", "error":
			fmt.Fprintln(stderr, message)
		default:
			fmt.Fprintln(stdout, message)
		}
	}); err != nil {
		return err
	}
	return rt.Eval(consoleJS)
}
