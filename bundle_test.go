package gantry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBundleScript_NoImportsPassthrough(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "plain.js")
	source := "var x = require('http');\nconsole.log('hi');\n"
	if err := os.WriteFile(script, []byte(source), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := BundleScript(script)
	if err != nil {
		t.Fatalf("BundleScript: %v", err)
	}
	if got != source {
		t.Errorf("passthrough changed the source:\n%s", got)
	}
}

func TestBundleScript_FlattensImports(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.js"),
		[]byte("import { greet } from './lib.js';\nconsole.log(greet('world'));\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "lib.js"),
		[]byte("export function greet(name) { return 'hello ' + name; }\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := BundleScript(dir)
	if err != nil {
		t.Fatalf("BundleScript: %v", err)
	}
	if !strings.Contains(got, "hello ") {
		t.Errorf("bundled output lost the imported code:\n%s", got)
	}
	if strings.Contains(got, "import ") {
		t.Errorf("bundled output still contains import statements:\n%s", got)
	}
}

func TestBundleScript_BuiltinsStayExternal(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.js"),
		[]byte("import './side.js';\nvar http = require('http');\nconsole.log(http);\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "side.js"),
		[]byte("console.log('side effect');\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := BundleScript(dir)
	if err != nil {
		t.Fatalf("BundleScript: %v", err)
	}
	if !strings.Contains(got, "side effect") {
		t.Errorf("side module not bundled:\n%s", got)
	}
}

func TestBundleScript_MissingEntry(t *testing.T) {
	if _, err := BundleScript(filepath.Join(t.TempDir(), "nope.js")); err == nil {
		t.Fatal("expected error for missing entry")
	}
}

func TestBundleScript_DirectoryWithoutMain(t *testing.T) {
	if _, err := BundleScript(t.TempDir()); err == nil {
		t.Fatal("expected error for plugin directory without main.js")
	}
}
