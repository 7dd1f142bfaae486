package loader_test

import (
	stderrors "errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/dynlib/errors"
	"github.com/wippyai/dynlib/loader"
	"github.com/wippyai/dynlib/loader/loadertest"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	loader.SetLogger(zap.New(core))
	t.Cleanup(func() { loader.SetLogger(zap.NewNop()) })
	return logs
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		in   string
		want []string
	}{
		{"bare posix", ".so", "physicsPlugin", []string{"physicsPlugin.so", "libphysicsPlugin.so", "physicsPlugin"}},
		{"already lib-prefixed", ".so", "libturbulence", []string{"libturbulence.so", "libturbulence"}},
		{"native extension present", ".so", "libturbulence.so", []string{"libturbulence.so"}},
		{"versioned soname", ".so", "libc.so.6", []string{"libc.so.6"}},
		{"so swapped for dll", ".dll", "libturbulence.so", []string{"libturbulence.dll", "libturbulence.so"}},
		{"bare windows", ".dll", "solver", []string{"solver.dll", "libsolver.dll", "solver"}},
		{"dll case insensitive", ".dll", "Solver.DLL", []string{"Solver.DLL", "libSolver.DLL"}},
		{"so swapped for dylib", ".dylib", "foo.so", []string{"foo.dylib", "libfoo.dylib", "foo.so"}},
		{"wasm", ".wasm", "filter", []string{"filter.wasm", "libfilter.wasm", "filter"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ld := loader.New(loadertest.New(tt.ext), loader.WithSearchEnv(""))
			got := ld.Candidates(tt.in)
			if !equal(got, tt.want) {
				t.Errorf("Candidates(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCandidates_PathKeepsDirectory(t *testing.T) {
	t.Setenv("DYNLIB_TEST_PATH", "/opt/plugins")
	ld := loader.New(loadertest.New(".so"), loader.WithSearchEnv("DYNLIB_TEST_PATH"))

	in := filepath.Join("build", "physics")
	got := ld.Candidates(in)
	want := []string{
		filepath.Join("build", "physics.so"),
		filepath.Join("build", "libphysics.so"),
		in,
	}
	if !equal(got, want) {
		t.Fatalf("Candidates(%q) = %v, want %v", in, got, want)
	}
}

func TestCandidates_SearchPathFirst(t *testing.T) {
	envDirs := strings.Join([]string{"/env/a", "", "/env/b"}, string(filepath.ListSeparator))
	t.Setenv("DYNLIB_TEST_PATH", envDirs)

	ld := loader.New(loadertest.New(".so"),
		loader.WithSearchEnv("DYNLIB_TEST_PATH"),
		loader.WithSearchDirs("/cfg"))

	got := ld.Candidates("solver")
	want := []string{
		filepath.Join("/cfg", "solver.so"),
		filepath.Join("/cfg", "libsolver.so"),
		filepath.Join("/cfg", "solver"),
		filepath.Join("/env/a", "solver.so"),
		filepath.Join("/env/a", "libsolver.so"),
		filepath.Join("/env/a", "solver"),
		filepath.Join("/env/b", "solver.so"),
		filepath.Join("/env/b", "libsolver.so"),
		filepath.Join("/env/b", "solver"),
		"solver.so",
		"libsolver.so",
		"solver",
	}
	if !equal(got, want) {
		t.Fatalf("Candidates = %v\nwant %v", got, want)
	}
}

func TestOpen_FallsBackToPrefixedName(t *testing.T) {
	p := loadertest.New(".so")
	p.Add("libphysicsPlugin.so", "plugin_init")
	ld := loader.New(p, loader.WithSearchEnv(""))

	h, err := ld.Open("physicsPlugin", false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}
	if !equal(p.Attempts, []string{"physicsPlugin.so", "libphysicsPlugin.so"}) {
		t.Fatalf("attempts = %v", p.Attempts)
	}
	if path, _ := ld.Path(h); path != "libphysicsPlugin.so" {
		t.Fatalf("Path = %q", path)
	}
}

func TestOpen_SearchDirectoryWins(t *testing.T) {
	p := loadertest.New(".so")
	p.Add(filepath.Join("/plugins", "solver.so"))
	p.Add("solver.so")
	t.Setenv("DYNLIB_TEST_PATH", "/plugins")
	ld := loader.New(p, loader.WithSearchEnv("DYNLIB_TEST_PATH"))

	h, err := ld.Open("solver", false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if path, _ := ld.Path(h); path != filepath.Join("/plugins", "solver.so") {
		t.Fatalf("Path = %q, want the search directory copy", path)
	}
}

func TestOpen_NotFound(t *testing.T) {
	logs := observe(t)
	p := loadertest.New(".so")
	ld := loader.New(p, loader.WithSearchEnv(""))

	h, err := ld.Open("missing", false)
	if h != 0 {
		t.Fatal("Expected null handle")
	}
	if !stderrors.Is(err, errors.ErrLoadFailed) {
		t.Fatalf("expected load_failed, got %v", err)
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || len(e.Attempts) != 3 {
		t.Fatalf("expected 3 attempts recorded, got %+v", e)
	}
	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 0 {
		t.Fatal("silent open must not warn")
	}

	_, _ = ld.Open("missing", true)
	warns := logs.FilterMessage("dlopen error").All()
	if len(warns) != 1 {
		t.Fatalf("verbose open should warn once, got %d", len(warns))
	}
	if msg, _ := warns[0].ContextMap()["error"].(string); !strings.Contains(msg, "No such file") {
		t.Fatalf("warning should carry the platform error text, got %q", msg)
	}
	if !strings.Contains(ld.LastErrorText(), "missing") {
		t.Fatalf("LastErrorText = %q", ld.LastErrorText())
	}
}

func TestOpen_EmptyName(t *testing.T) {
	p := loadertest.New(".so")
	ld := loader.New(p)

	if _, err := ld.Open("", true); !stderrors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("expected invalid_input, got %v", err)
	}
	if len(p.Attempts) != 0 {
		t.Fatal("empty name must not reach the platform")
	}
}

func TestOpen_DistinctHandlesPerLoad(t *testing.T) {
	p := loadertest.New(".so")
	lib := p.Add("libsolver.so")
	ld := loader.New(p, loader.WithSearchEnv(""))

	h1, _ := ld.Open("libsolver", false)
	h2, _ := ld.Open("libsolver", false)
	if h1 == h2 {
		t.Fatal("two loads must yield two live handles")
	}
	if lib.Opens != 2 || ld.Live() != 2 {
		t.Fatalf("Opens=%d Live=%d, want 2,2", lib.Opens, ld.Live())
	}
}

func TestClose(t *testing.T) {
	p := loadertest.New(".so")
	p.Add("liba.so")
	ld := loader.New(p, loader.WithSearchEnv(""))

	h, _ := ld.Open("liba", false)
	if err := ld.Close(h); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if ld.Live() != 0 {
		t.Fatal("handle should be released")
	}

	if err := ld.Close(h); !stderrors.Is(err, errors.ErrInvalidHandle) {
		t.Fatalf("second close should report invalid_handle, got %v", err)
	}
	if err := ld.Close(0); !stderrors.Is(err, errors.ErrInvalidHandle) {
		t.Fatalf("null close should report invalid_handle, got %v", err)
	}
	if len(p.Closed) != 1 {
		t.Fatalf("platform close called %d times, want 1", len(p.Closed))
	}
}

func TestClose_FailureReleasesHandle(t *testing.T) {
	p := loadertest.New(".so")
	lib := p.Add("liba.so")
	lib.CloseErr = stderrors.New("module busy")
	ld := loader.New(p, loader.WithSearchEnv(""))

	h, _ := ld.Open("liba", false)
	err := ld.Close(h)
	if !stderrors.Is(err, errors.ErrCloseFailed) {
		t.Fatalf("expected close_failed, got %v", err)
	}
	if !stderrors.Is(err, lib.CloseErr) {
		t.Fatal("close_failed should wrap the platform error")
	}
	if ld.Live() != 0 {
		t.Fatal("failed close still releases the handle")
	}
}

func TestSymbol(t *testing.T) {
	logs := observe(t)
	p := loadertest.New(".so")
	lib := p.Add("liba.so", "plugin_init")
	ld := loader.New(p, loader.WithSearchEnv(""))
	h, _ := ld.Open("liba", false)

	addr, err := ld.Symbol(h, "plugin_init")
	if err != nil {
		t.Fatalf("Symbol failed: %v", err)
	}
	if addr != lib.Symbols["plugin_init"] {
		t.Fatalf("addr = %#x, want %#x", addr, lib.Symbols["plugin_init"])
	}

	addr, err = ld.Symbol(h, "plugin_missing")
	if addr != 0 || !stderrors.Is(err, errors.ErrSymbolMissing) {
		t.Fatalf("expected 0 and symbol_missing, got %#x %v", addr, err)
	}
	if logs.FilterMessage("cannot lookup symbol").Len() != 1 {
		t.Fatal("symbol miss should warn")
	}
}

func TestSymbolExists_Silent(t *testing.T) {
	logs := observe(t)
	p := loadertest.New(".so")
	p.Add("liba.so", "plugin_init")
	ld := loader.New(p, loader.WithSearchEnv(""))
	h, _ := ld.Open("liba", false)

	if !ld.SymbolExists(h, "plugin_init") {
		t.Fatal("plugin_init should exist")
	}
	if ld.SymbolExists(h, "plugin_missing") {
		t.Fatal("plugin_missing should not exist")
	}
	if ld.SymbolExists(h, "") || ld.SymbolExists(0, "plugin_init") {
		t.Fatal("empty symbol or null handle must report false")
	}
	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 0 {
		t.Fatal("SymbolExists must never warn")
	}
}

func TestClose_StaleHandleStaysInvalid(t *testing.T) {
	p := loadertest.New(".so")
	p.Add("liba.so", "a_init")
	p.Add("libb.so", "b_init")
	ld := loader.New(p, loader.WithSearchEnv(""))

	old, _ := ld.Open("a", false)
	if err := ld.Close(old); err != nil {
		t.Fatal(err)
	}

	// b takes over the freed slot
	h, err := ld.Open("b", false)
	if err != nil {
		t.Fatal(err)
	}
	if h == old {
		t.Fatal("a closed handle must not be reissued")
	}

	if ld.SymbolExists(old, "b_init") {
		t.Fatal("stale handle must not resolve symbols of the new library")
	}
	if _, err := ld.Symbol(old, "b_init"); !stderrors.Is(err, errors.ErrInvalidHandle) {
		t.Fatalf("expected invalid_handle, got %v", err)
	}
	if err := ld.Close(old); !stderrors.Is(err, errors.ErrInvalidHandle) {
		t.Fatalf("expected invalid_handle, got %v", err)
	}
	if path, ok := ld.Path(h); !ok || path != "libb.so" {
		t.Fatalf("Path = %q, %v", path, ok)
	}
}

func TestClose_PlatformTextKeptVerbatim(t *testing.T) {
	p := loadertest.New(".so")
	lib := p.Add("liba.so")
	lib.CloseErr = stderrors.New("unload refused: 100%s busy")
	ld := loader.New(p, loader.WithSearchEnv(""))

	h, _ := ld.Open("liba", false)
	err := ld.Close(h)

	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if e.Detail != "unload refused: 100%s busy" {
		t.Fatalf("Detail = %q", e.Detail)
	}
}
