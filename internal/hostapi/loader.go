package hostapi

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gantrydata/gantry/internal/core"
	"github.com/gantrydata/gantry/internal/selfarchive"
)

// archives caches opened self-archives per path for the process lifetime,
// matching the singleton runtime they serve.
var (
	archivesMu sync.Mutex
	archives   = map[string]*selfarchive.Archive{}
)

func openArchiveCached(archivePath string) (*selfarchive.Archive, error) {
	archivesMu.Lock()
	defer archivesMu.Unlock()
	if a, ok := archives[archivePath]; ok {
		return a, nil
	}
	a, err := selfarchive.Open(archivePath)
	if err != nil {
		return nil, err
	}
	archives[archivePath] = a
	return a, nil
}

// splitArchiveRef splits a search path entry or module id of the form
// "<archive>!<subpath>" into its archive file path and slash-separated
// subpath. The archive part may be a file:// URL (the self-location form)
// or a plain path. Returns ok=false for ordinary directory entries.
func splitArchiveRef(ref string) (archivePath, sub string, ok bool) {
	idx := strings.Index(ref, "!")
	if idx < 0 {
		return "", "", false
	}
	archivePath = ref[:idx]
	if strings.HasPrefix(archivePath, "file://") {
		if u, err := url.Parse(archivePath); err == nil && u.Path != "" {
			archivePath = filepath.FromSlash(u.Path)
		}
	}
	sub = strings.TrimPrefix(ref[idx+1:], "/")
	return archivePath, sub, true
}

// probeModule resolves a module specifier against one search path root (or,
// for relative specifiers, against the requiring module's directory).
// Returns the resolved module id, or "" when the root has no such module.
func probeModule(root, spec string) string {
	if root == "" {
		root = "."
	}

	var candidates []string
	if strings.HasSuffix(spec, ".js") {
		candidates = []string{spec}
	} else {
		candidates = []string{spec + ".js", spec + "/index.js"}
	}

	if archivePath, sub, ok := splitArchiveRef(root); ok {
		a, err := openArchiveCached(archivePath)
		if err != nil {
			return "" // unreadable root: skip, the next root may match
		}
		for _, c := range candidates {
			entry := path.Join(sub, c)
			if a.Has(entry) {
				return root[:strings.Index(root, "!")] + "!/" + entry
			}
		}
		return ""
	}

	for _, c := range candidates {
		p := filepath.Join(root, filepath.FromSlash(c))
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

// readModule returns the source of a resolved module id.
func readModule(id string) (string, error) {
	if archivePath, sub, ok := splitArchiveRef(id); ok {
		a, err := openArchiveCached(archivePath)
		if err != nil {
			return "", err
		}
		data, err := a.Read(sub)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := os.ReadFile(id)
	if err != nil {
		return "", fmt.Errorf("reading module %q: %w", id, err)
	}
	return string(data), nil
}

// moduleDir returns the directory of a module id, used as the base for the
// module's relative requires. Archive ids keep their archive prefix.
func moduleDir(id string) string {
	if _, sub, ok := splitArchiveRef(id); ok {
		prefix := id[:strings.Index(id, "!")]
		dir := path.Dir(sub)
		if dir == "." || dir == "/" {
			return prefix + "!"
		}
		return prefix + "!/" + dir
	}
	return filepath.Dir(id)
}

// listSubdirs returns the JSON-encoded sorted names of the direct
// subdirectories of dir, which may be a directory path or an archive ref.
// A missing directory lists as empty rather than erroring: the dependency
// manager probes roots that may not exist.
func listSubdirs(dir string) (string, error) {
	var names []string
	if archivePath, sub, ok := splitArchiveRef(dir); ok {
		a, err := openArchiveCached(archivePath)
		if err == nil {
			names = a.List(sub)
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err == nil {
			for _, e := range entries {
				if e.IsDir() {
					names = append(names, e.Name())
				}
			}
			sort.Strings(names)
		}
	}
	if names == nil {
		names = []string{}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// expandPath returns the absolute form of a search path entry. URL-form
// entries pass through untouched, and the "!" archive marker survives
// expansion of plain archive refs.
func expandPath(p string) string {
	if strings.Contains(p, "://") {
		return p
	}
	if strings.HasSuffix(p, "!") {
		if abs, err := filepath.Abs(p[:len(p)-1]); err == nil {
			return abs + "!"
		}
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// loaderJS installs require(), the shared module search path, the module
// cache, the builtin registry, and the low-level package registry __pkg.
const loaderJS = `
(function() {
	var paths = [];
	var cache = {};
	var builtins = {};
	var builtinExports = {};

	function resolveFrom(baseDir, spec) {
		if (spec.charAt(0) === '.') {
			return __module_probe(baseDir || '.', spec);
		}
		for (var i = 0; i < paths.length; i++) {
			var id = __module_probe(paths[i], spec);
			if (id) return id;
		}
		return '';
	}

	function makeRequire(baseDir) {
		var req = function(spec) {
			if (Object.prototype.hasOwnProperty.call(builtins, spec)) {
				if (!Object.prototype.hasOwnProperty.call(builtinExports, spec)) {
					builtinExports[spec] = builtins[spec]();
				}
				return builtinExports[spec];
			}
			var id = resolveFrom(baseDir, spec);
			if (!id) throw new Error("Cannot find module '" + spec + "'");
			return loadModule(id);
		};
		req.paths = paths;
		req.cache = cache;
		req.resolve = function(spec) { return resolveFrom(baseDir, spec); };
		return req;
	}

	function loadModule(id) {
		if (Object.prototype.hasOwnProperty.call(cache, id)) {
			return cache[id].exports;
		}
		var src = __module_read(id);
		var module = { id: id, exports: {} };
		cache[id] = module;
		var dirname = __module_dir(id);
		var factory = (0, eval)(
			'(function(module, exports, require, __filename, __dirname) {\n' + src + '\n})'
		);
		factory(module, module.exports, makeRequire(dirname), id, dirname);
		return module.exports;
	}

	globalThis.require = makeRequire('');
	globalThis.__registerBuiltin = function(name, factory) {
		builtins[name] = factory;
	};

	// __pkg is the low-level package registry. Its default roots come from
	// GANTRY_PKG_HOME and GANTRY_PKG_PATH; clearPathCache drops the module
	// cache and recomputes those roots from the current environment.
	globalThis.__pkg = (function() {
		var installedDefaults = [];

		function removeDefaults() {
			for (var i = 0; i < installedDefaults.length; i++) {
				var idx = paths.indexOf(installedDefaults[i]);
				if (idx >= 0) paths.splice(idx, 1);
			}
			installedDefaults = [];
		}

		function dropCache() {
			for (var k in cache) {
				if (Object.prototype.hasOwnProperty.call(cache, k)) delete cache[k];
			}
		}

		return {
			clearPathCache: function() {
				dropCache();
				removeDefaults();
				var roots = JSON.parse(__pkg_default_roots());
				for (var i = 0; i < roots.length; i++) {
					paths.push(roots[i]);
					installedDefaults.push(roots[i]);
				}
			},
			reset: function() {
				dropCache();
				removeDefaults();
			}
		};
	})();
})();
`

// setupLoader registers the module system's host functions and evaluates
// the loader shim.
func setupLoader(rt core.ScriptRuntime, _ *Options) error {
	if err := rt.RegisterFunc("__env_get", func(name string) string {
		return os.Getenv(name)
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__env_set", func(name, value string) (string, error) {
		return "", os.Setenv(name, value)
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__env_unset", func(name string) (string, error) {
		return "", os.Unsetenv(name)
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__path_expand", func(p string) string {
		return expandPath(p)
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__module_probe", func(root, spec string) string {
		return probeModule(root, spec)
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__module_read", func(id string) (string, error) {
		return readModule(id)
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__module_dir", func(id string) string {
		return moduleDir(id)
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__module_list", func(dir string) (string, error) {
		return listSubdirs(dir)
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__pkg_default_roots", func() (string, error) {
		return defaultPkgRoots()
	}); err != nil {
		return err
	}

	return rt.Eval(loaderJS)
}

// defaultPkgRoots computes the default package roots from GANTRY_PKG_HOME
// and GANTRY_PKG_PATH: every <root>/packages/<name>/lib directory under each
// configured root, JSON-encoded in root order.
func defaultPkgRoots() (string, error) {
	var roots []string

	addRoot := func(root string) {
		if root == "" {
			return
		}
		pkgDir := filepath.Join(root, "packages")
		entries, err := os.ReadDir(pkgDir)
		if err != nil {
			return
		}
		var names []string
		for _, e := range entries {
			if e.IsDir() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			roots = append(roots, filepath.Join(pkgDir, name, "lib"))
		}
	}

	addRoot(os.Getenv("GANTRY_PKG_HOME"))
	for _, p := range filepath.SplitList(os.Getenv("GANTRY_PKG_PATH")) {
		addRoot(p)
	}

	if roots == nil {
		roots = []string{}
	}
	data, err := json.Marshal(roots)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
