package gantry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

// BundleScript flattens a multi-file plugin into a single script suitable
// for evaluation in the engine context. entryPath may be a script file or a
// plugin directory containing main.js.
//
// If the source doesn't contain any import statements, it's returned as-is
// to avoid unnecessary processing.
func BundleScript(entryPath string) (string, error) {
	info, err := os.Stat(entryPath)
	if err != nil {
		return "", fmt.Errorf("stating %q: %w", entryPath, err)
	}

	entryPoint := entryPath
	workDir := filepath.Dir(entryPath)
	if info.IsDir() {
		entryPoint = filepath.Join(entryPath, "main.js")
		workDir = entryPath
	}

	source, err := os.ReadFile(entryPoint)
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", entryPoint, err)
	}

	src := string(source)

	// Skip bundling if there are no import statements. Plain require()
	// calls resolve at run time through the guest module system.
	if !needsBundling(src) {
		return src, nil
	}

	absWorkDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}

	result := esbuild.Build(esbuild.BuildOptions{
		EntryPoints:   []string{entryPoint},
		AbsWorkingDir: absWorkDir,
		Bundle:        true,
		Format:        esbuild.FormatIIFE,
		Write:         false,
		Platform:      esbuild.PlatformNeutral,
		Target:        esbuild.ES2020,
		TreeShaking:   esbuild.TreeShakingFalse,
		External:      []string{"pkg", "pkg/setup", "http", "compress", "state", "ws", "html"},
	})

	if len(result.Errors) > 0 {
		var msgs []string
		for _, e := range result.Errors {
			msgs = append(msgs, e.Text)
		}
		return "", fmt.Errorf("bundling %q: %s", entryPoint, strings.Join(msgs, "; "))
	}

	if len(result.OutputFiles) == 0 {
		return "", fmt.Errorf("bundling produced no output")
	}

	return string(result.OutputFiles[0].Contents), nil
}

// needsBundling checks if a script contains import statements that require
// bundling. Simple scripts without imports can skip this step.
func needsBundling(source string) bool {
	return strings.Contains(source, "import ") ||
		strings.Contains(source, "import{") ||
		strings.Contains(source, "export ")
}
