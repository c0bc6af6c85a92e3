package gantry

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/gantrydata/gantry/internal/core"
)

// locationWarnOutput receives the one-line operator warning for the
// irregular "running unpacked" case. Tests override it.
var locationWarnOutput io.Writer = os.Stderr

// resolveSelfLocation determines the location the running application was
// loaded from, for use as a module search path entry.
//
// In the normal case Gantry runs from its packed executable (the script
// library is appended to the binary as a zip trailer) and the entry is the
// origin URL with a trailing "!" marker:
//
//	"file:///some/directory/gantry!"
//
// In the irregular case Gantry runs out of an unpacked directory and the
// entry is a plain directory path. Launcher scripts can override the origin
// via GANTRY_CODE_ORIGIN for unusual deployments.
//
// Any failure to determine a usable local-file origin is a *CommandLineError:
// no safe default exists when the host's own packaging is broken.
func resolveSelfLocation() (core.ResourceLocation, error) {
	originURL, err := selfOriginURL()
	if err != nil {
		return core.ResourceLocation{}, err
	}

	parsed, err := url.Parse(originURL)
	if err != nil {
		return core.ResourceLocation{}, newCommandLineError("Invalid location: "+originURL, err)
	}
	if parsed.Scheme != "file" {
		return core.ResourceLocation{}, newCommandLineError("Invalid location: "+originURL, nil)
	}
	if parsed.Path == "" {
		return core.ResourceLocation{}, newCommandLineError("Invalid location: "+originURL, nil)
	}

	locationPath := filepath.FromSlash(parsed.Path)

	if info, statErr := os.Stat(locationPath); statErr == nil && info.IsDir() {
		// Out of the packed executable.
		fmt.Fprintln(locationWarnOutput, "Warning: Gantry looks running out of its packed executable. It is unsupported.")
		return core.ResourceLocation{Kind: core.LocationDirectory, Path: locationPath}, nil
	}

	// Inside the packed executable.
	return core.ResourceLocation{Kind: core.LocationArchive, Path: originURL + "!"}, nil
}

// selfOriginURL returns the code-origin URL of the running application:
// the GANTRY_CODE_ORIGIN override when set, else a file:// URL built from
// the executable path.
func selfOriginURL() (string, error) {
	if origin := os.Getenv("GANTRY_CODE_ORIGIN"); origin != "" {
		return origin, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", newCommandLineError("Failed to determine code origin", err)
	}
	if exe == "" {
		return "", newCommandLineError("Failed to determine location", nil)
	}
	abs, err := filepath.Abs(exe)
	if err != nil {
		return "", newCommandLineError("Failed to determine location", err)
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}
