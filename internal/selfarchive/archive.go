// Package selfarchive reads the script library appended to the gantry
// executable as a zip trailer. Module search path entries carrying a
// trailing "!" marker are backed by this package.
package selfarchive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
)

// Archive is read-only access to one packed script library. The backing
// file stays open for the archive's lifetime; callers cache archives per
// path and close them when done.
type Archive struct {
	path    string
	file    *os.File
	entries map[string]*zip.File
}

// Open reads the central directory of the archive at the given path. The
// archive may be a plain zip file or a zip appended to an executable; the
// directory is located from the end of the file either way (archive/zip
// accounts for the leading base offset).
func Open(archivePath string) (*Archive, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive %q: %w", archivePath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stating archive %q: %w", archivePath, err)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading archive %q: %w", archivePath, err)
	}

	entries := make(map[string]*zip.File, len(zr.File))
	for _, zf := range zr.File {
		entries[path.Clean(zf.Name)] = zf
	}

	return &Archive{path: archivePath, file: f, entries: entries}, nil
}

// Close releases the backing file.
func (a *Archive) Close() error {
	return a.file.Close()
}

// Has reports whether the archive contains a file entry with the given
// slash-separated name.
func (a *Archive) Has(name string) bool {
	zf, ok := a.entries[path.Clean(name)]
	return ok && !zf.FileInfo().IsDir()
}

// Read returns the contents of the named entry.
func (a *Archive) Read(name string) ([]byte, error) {
	zf, ok := a.entries[path.Clean(name)]
	if !ok || zf.FileInfo().IsDir() {
		return nil, fmt.Errorf("archive %q has no entry %q", a.path, name)
	}

	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("opening entry %q: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading entry %q: %w", name, err)
	}
	return data, nil
}

// List returns the sorted names of the direct children of the given
// slash-separated directory prefix. Only directories are returned, matching
// what the dependency manager scans for package roots.
func (a *Archive) List(dir string) []string {
	dir = path.Clean(dir)
	prefix := dir + "/"
	if dir == "." || dir == "/" {
		prefix = ""
	}

	seen := make(map[string]bool)
	for name := range a.entries {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		if i := strings.IndexByte(rest, '/'); i > 0 {
			seen[rest[:i]] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
