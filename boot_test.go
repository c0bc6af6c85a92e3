package gantry

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSetup_WarningBlocks(t *testing.T) {
	fake := useFakeRuntime(t)
	t.Setenv("GANTRY_CODE_ORIGIN", fileURL(t, mustTempFile(t)))

	var warn bytes.Buffer
	if _, err := Setup([]string{"--dev", "-bogus", "--server"}, "", &warn); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	want := `[WARN] The "-E" option(s) are not recognized in Gantry: -E-bogus
[WARN] Please add your requests at: https://github.com/gantrydata/gantry/issues

[WARN] The "-E" option(s) do not work in Gantry: -E--server

`
	if warn.String() != want {
		t.Errorf("warnings = %q, want %q", warn.String(), want)
	}

	// --dev applied despite the failures around it.
	if !fake.cfg.NoOptimizedDispatch {
		t.Error("--dev did not disable optimized dispatch")
	}
	// The loop never aborted: the branch still ran.
	if fake.evalIndex(clearPathCacheJS) < 0 {
		t.Error("bootstrap did not reach the dependency-resolution branch")
	}
}

func TestSetup_BundledModeOrder(t *testing.T) {
	fake := useFakeRuntime(t)

	var warn bytes.Buffer
	if _, err := Setup(nil, "/opt/bundle", &warn); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	// All four activation snippets run, in order, before the search-path append.
	prev := -1
	for _, js := range []string{clearPathCacheJS, loadPkgJS, setupBundleEnvJS, loadPkgSetupJS} {
		idx := fake.evalIndex(js)
		if idx < 0 {
			t.Fatalf("snippet %q never ran", js)
		}
		if idx <= prev {
			t.Errorf("snippet %q ran out of order", js)
		}
		prev = idx
	}

	bind := fake.callIndex("set", internalBundlePathName)
	appendIdx := fake.evalIndex(appendBundlePathJS)
	unbind := fake.callIndex("remove", internalBundlePathName)
	if bind < 0 || appendIdx < 0 || unbind < 0 {
		t.Fatalf("bind/append/unbind missing: %d/%d/%d", bind, appendIdx, unbind)
	}
	if !(prev < bind && bind < appendIdx && appendIdx < unbind) {
		t.Errorf("bind/use/unbind out of order: snippets=%d bind=%d append=%d unbind=%d",
			prev, bind, appendIdx, unbind)
	}

	if v := fake.globals[internalBundlePathName]; v != nil {
		t.Errorf("residual binding %s = %v after Setup", internalBundlePathName, v)
	}
}

func TestSetup_DefaultModeArchiveOrigin(t *testing.T) {
	fake := useFakeRuntime(t)
	origin := fileURL(t, mustTempFile(t))
	t.Setenv("GANTRY_CODE_ORIGIN", origin)

	var warn bytes.Buffer
	if _, err := Setup(nil, "", &warn); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	// Default mode never touches the bundle activation snippets.
	for _, js := range []string{loadPkgJS, setupBundleEnvJS, loadPkgSetupJS} {
		if fake.evalIndex(js) >= 0 {
			t.Errorf("bundled snippet %q ran in default mode", js)
		}
	}

	clearIdx := fake.evalIndex(clearPathCacheJS)
	bind := fake.callIndex("set", internalLoadPathName)
	appendIdx := fake.evalIndex(appendLoadPathJS)
	unbind := fake.callIndex("remove", internalLoadPathName)
	if !(0 <= clearIdx && clearIdx < bind && bind < appendIdx && appendIdx < unbind) {
		t.Fatalf("default-mode order wrong: clear=%d bind=%d append=%d unbind=%d",
			clearIdx, bind, appendIdx, unbind)
	}

	if v := fake.globals[internalLoadPathName]; v != nil {
		t.Errorf("residual binding %s = %v after Setup", internalLoadPathName, v)
	}
}

func TestSetup_DefaultModeBindsArchiveMarker(t *testing.T) {
	fake := useFakeRuntime(t)
	origin := fileURL(t, mustTempFile(t))
	t.Setenv("GANTRY_CODE_ORIGIN", origin)

	var warn bytes.Buffer
	if _, err := Setup(nil, "", &warn); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	// The value bound for the append is the origin URL with the "!" marker.
	if got := fake.boundValues[internalLoadPathName]; got != origin+"!" {
		t.Errorf("bound load path = %v, want %q", got, origin+"!")
	}
}

func TestSetup_NonLocalOriginFails(t *testing.T) {
	fake := useFakeRuntime(t)
	t.Setenv("GANTRY_CODE_ORIGIN", "https://example.com/gantry.zip")

	var warn bytes.Buffer
	_, err := Setup(nil, "", &warn)
	var cmdErr *CommandLineError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("err = %v, want *CommandLineError", err)
	}

	// No search-path mutation happened and the partial runtime was released.
	if fake.evalIndex(appendLoadPathJS) >= 0 {
		t.Error("search path mutated despite fatal origin error")
	}
	if fake.callIndex("set", internalLoadPathName) >= 0 {
		t.Error("load path bound despite fatal origin error")
	}
	if !fake.closed {
		t.Error("runtime not closed after failed bootstrap")
	}
}

func TestSetup_SecondCallReturnsErrAlreadySetup(t *testing.T) {
	useFakeRuntime(t)
	t.Setenv("GANTRY_CODE_ORIGIN", fileURL(t, mustTempFile(t)))

	var warn bytes.Buffer
	if _, err := Setup(nil, "", &warn); err != nil {
		t.Fatalf("first Setup: %v", err)
	}
	if _, err := Setup(nil, "", &warn); !errors.Is(err, ErrAlreadySetup) {
		t.Fatalf("second Setup err = %v, want ErrAlreadySetup", err)
	}
}

func TestSetup_EmptyOptionsNoWarnings(t *testing.T) {
	useFakeRuntime(t)
	t.Setenv("GANTRY_CODE_ORIGIN", fileURL(t, mustTempFile(t)))

	var warn bytes.Buffer
	if _, err := Setup(nil, "", &warn); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if warn.Len() != 0 {
		t.Errorf("unexpected warnings: %q", warn.String())
	}
}

func mustTempFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "gantry")
	if err := os.WriteFile(p, []byte("packed"), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}
