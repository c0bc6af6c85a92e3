package hostapi

import "github.com/gantrydata/gantry/internal/core"

// pkgJS registers the 'pkg' dependency manager and its 'pkg/setup'
// entrypoint. Loading 'pkg' also installs the global pkg object so
// bootstrap snippets can reference it by name.
//
// pkg.load().setupEnvironment() switches the runtime to bundled resolution:
// the default package roots leave the search path, every package shipped
// under <bundle>/packages takes their place, and the default-root
// environment variables are cleared so nothing downstream resurrects them.
// The bundle directory itself comes from GANTRY_BUNDLE_PATH, established by
// the launcher; it reaches the search path as data, never as script text.
const pkgJS = `
(function() {
	__registerBuiltin('pkg', function() {
		var pkg = {
			_environmentReady: false,

			load: function() {
				var bundleDir = __env_get('GANTRY_BUNDLE_PATH');
				if (!bundleDir) {
					throw new Error('pkg.load: GANTRY_BUNDLE_PATH is not set');
				}
				return {
					bundleDir: bundleDir,
					setupEnvironment: function() {
						__pkg.reset();
						var names = JSON.parse(__module_list(bundleDir + '/packages'));
						for (var i = 0; i < names.length; i++) {
							require.paths.push(__path_expand(bundleDir + '/packages/' + names[i] + '/lib'));
						}
						__env_unset('GANTRY_PKG_HOME');
						__env_unset('GANTRY_PKG_PATH');
						pkg._environmentReady = true;
					}
				};
			}
		};
		globalThis.pkg = pkg;
		return pkg;
	});

	__registerBuiltin('pkg/setup', function() {
		var p = require('pkg');
		if (!p._environmentReady) {
			p.load().setupEnvironment();
		}
		return p;
	});
})();
`

func setupPkg(rt core.ScriptRuntime, _ *Options) error {
	return rt.Eval(pkgJS)
}
