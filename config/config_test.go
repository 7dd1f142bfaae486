package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/wippyai/dynlib/errors"
	"github.com/wippyai/dynlib/loader"
)

const sample = `
[loader]
backend = "wasm"
search_env = ""
search_dirs = ["./plugins", "$DYNLIB_TEST_ROOT/lib"]

[log]
level = "debug"
development = true

[libraries]
libs = ["physicsPlugin", "$DYNLIB_TEST_ROOT/libturbulence.so"]
solvers = ["solver"]
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Loader.Backend != BackendWasm {
		t.Errorf("Backend = %q", cfg.Loader.Backend)
	}
	if cfg.Loader.SearchEnv != "" {
		t.Errorf("SearchEnv = %q, want empty override", cfg.Loader.SearchEnv)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Development {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if got := cfg.Entries(); !reflect.DeepEqual(got, []string{"libs", "solvers"}) {
		t.Errorf("Entries = %v", got)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`[libraries]
libs = ["a"]
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Loader.Backend != BackendNative {
		t.Errorf("Backend = %q, want native", cfg.Loader.Backend)
	}
	if cfg.Loader.SearchEnv != loader.DefaultSearchEnv {
		t.Errorf("SearchEnv = %q", cfg.Loader.SearchEnv)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Level = %q", cfg.Log.Level)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "[loader\nbackend = 1"},
		{"unknown key", "[loader]\nbackend = \"native\"\ncolour = \"red\""},
		{"unknown backend", "[loader]\nbackend = \"jvm\""},
		{"bad level", "[log]\nlevel = \"loud\""},
		{"empty entry", "[libraries]\nlibs = []"},
		{"empty name", "[libraries]\nlibs = [\"a\", \"\"]"},
		{"memory limit", "[loader.wasm]\nmemory_limit_pages = 70000"},
		{"unknown wasm key", "[loader.wasm]\nthreads = true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindInvalidInput}) {
				t.Errorf("expected config invalid_input, got %v", err)
			}
		})
	}
}

func TestEntry_Expansion(t *testing.T) {
	t.Setenv("DYNLIB_TEST_ROOT", "/opt/sim")

	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}

	got, ok := cfg.Entry("libs")
	if !ok {
		t.Fatal("entry libs missing")
	}
	want := []string{"physicsPlugin", "/opt/sim/libturbulence.so"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Entry = %v, want %v", got, want)
	}

	// stored names stay unexpanded
	if cfg.Libraries["libs"][1] != "$DYNLIB_TEST_ROOT/libturbulence.so" {
		t.Errorf("Entry must not rewrite the config: %v", cfg.Libraries["libs"])
	}

	if _, ok := cfg.Entry("missing"); ok {
		t.Error("absent entry should report false")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dynlib.toml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := cfg.Entry("solvers"); !ok {
		t.Error("entry solvers missing")
	}

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !stderrors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"

	log, err := cfg.Logger()
	if err != nil {
		t.Fatalf("Logger failed: %v", err)
	}
	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug should be disabled at warn level")
	}
	if !log.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled")
	}
}

func TestMarshal(t *testing.T) {
	cfg := Default()
	cfg.Libraries["libs"] = []string{"a", "b"}

	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal) failed: %v\n%s", err, data)
	}
	if !reflect.DeepEqual(back.Libraries, cfg.Libraries) {
		t.Errorf("Libraries = %v", back.Libraries)
	}
}

func TestParse_WasmSection(t *testing.T) {
	cfg, err := Parse([]byte(`
[loader]
backend = "wasm"

[loader.wasm]
wasi = true
memory_limit_pages = 16
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	opts := cfg.WasmOptions()
	if !opts.EnableWASI || opts.MemoryLimitPages != 16 {
		t.Errorf("WasmOptions = %+v", opts)
	}

	if d := Default().WasmOptions(); d.EnableWASI || d.MemoryLimitPages != 0 {
		t.Errorf("default WasmOptions = %+v", d)
	}
}
