package core

// LocationKind discriminates the two shapes a resolved self-location can take.
type LocationKind int

const (
	// LocationArchive means the application runs from its packed executable;
	// the load-path entry is the origin URL with a trailing "!" marker.
	LocationArchive LocationKind = iota
	// LocationDirectory means the application runs from loose files, the
	// irregular development case.
	LocationDirectory
)

// ResourceLocation is the resolved code origin of the running application,
// used as a module search path entry.
type ResourceLocation struct {
	Kind LocationKind
	// Path is the load-path entry string: for LocationArchive the origin
	// URL suffixed with "!", for LocationDirectory a plain directory path.
	Path string
}

// LoadPathEntry returns the string to append to the engine's module search
// path for this location.
func (l ResourceLocation) LoadPathEntry() string {
	return l.Path
}

// BundleMode selects how guest dependencies are resolved during bootstrap.
type BundleMode struct {
	// BundlePath is the bundle directory when bundled resolution is active,
	// empty in default mode.
	BundlePath string
}

// Bundled reports whether an external bundle directory was supplied.
func (m BundleMode) Bundled() bool { return m.BundlePath != "" }
