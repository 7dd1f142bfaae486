package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/dynlib/errors"
	"github.com/wippyai/dynlib/loader"
)

// Backend names.
const (
	BackendNative = "native"
	BackendWasm   = "wasm"
)

// maxMemoryPages is 4 GiB of 64 KiB wasm pages.
const maxMemoryPages = 65536

// Config is the decoded form of a dynlib.toml file.
type Config struct {
	Loader    LoaderConfig        `toml:"loader"`
	Log       LogConfig           `toml:"log"`
	Libraries map[string][]string `toml:"libraries"`
}

type LoaderConfig struct {
	// Backend is "native" or "wasm".
	Backend string `toml:"backend"`
	// SearchEnv names the variable listing extra search directories.
	// An empty value disables the lookup.
	SearchEnv string `toml:"search_env"`
	// SearchDirs are searched before the environment directories.
	SearchDirs []string `toml:"search_dirs"`
	// Wasm tunes the wasm backend.
	Wasm WasmConfig `toml:"wasm"`
}

type WasmConfig struct {
	// WASI instantiates wasi_snapshot_preview1 for modules that import it.
	WASI bool `toml:"wasi"`
	// MemoryLimitPages caps memory per module in 64 KiB pages. 0 keeps the default.
	MemoryLimitPages uint32 `toml:"memory_limit_pages"`
}

type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Loader: LoaderConfig{
			Backend:   BackendNative,
			SearchEnv: loader.DefaultSearchEnv,
		},
		Log: LogConfig{
			Level: "info",
		},
		Libraries: make(map[string][]string),
	}
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindNotFound).
			Name(path).
			Detail("cannot read config").
			Cause(err).
			Build()
	}
	return Parse(data)
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, decodeError(err)
	}
	if cfg.Libraries == nil {
		cfg.Libraries = make(map[string][]string)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeError(err error) error {
	var strict *toml.StrictMissingError
	if stderrors.As(err, &strict) {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detail(strict.String()).
			Cause(err).
			Build()
	}

	var decode *toml.DecodeError
	if stderrors.As(err, &decode) {
		row, col := decode.Position()
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detailf("line %d column %d: %s", row, col, decode.Error()).
			Cause(err).
			Build()
	}

	return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "decode config")
}

// Validate checks the backend, the log level and every library entry.
func (c *Config) Validate() error {
	switch c.Loader.Backend {
	case BackendNative, BackendWasm:
	default:
		return errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("unknown loader backend %q", c.Loader.Backend))
	}

	if c.Loader.Wasm.MemoryLimitPages > maxMemoryPages {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detailf("memory_limit_pages %d exceeds %d", c.Loader.Wasm.MemoryLimitPages, maxMemoryPages).
			Build()
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err,
			fmt.Sprintf("log level %q", c.Log.Level))
	}

	for entry, names := range c.Libraries {
		if len(names) == 0 {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Name(entry).
				Detail("empty library list").
				Build()
		}
		for i, name := range names {
			if name == "" {
				return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
					Name(entry).
					Index(i).
					Detail("empty library name").
					Build()
			}
		}
	}
	return nil
}

// Entry returns the library list stored under name, with environment
// variables expanded in every element.
func (c *Config) Entry(name string) ([]string, bool) {
	names, ok := c.Libraries[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = os.ExpandEnv(n)
	}
	return out, true
}

// Entries returns the entry names in sorted order.
func (c *Config) Entries() []string {
	names := make([]string, 0, len(c.Libraries))
	for name := range c.Libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoaderOptions translates the [loader] section into loader options.
func (c *Config) LoaderOptions() []loader.Option {
	opts := []loader.Option{loader.WithSearchEnv(c.Loader.SearchEnv)}
	if len(c.Loader.SearchDirs) > 0 {
		dirs := make([]string, len(c.Loader.SearchDirs))
		for i, d := range c.Loader.SearchDirs {
			dirs[i] = os.ExpandEnv(d)
		}
		opts = append(opts, loader.WithSearchDirs(dirs...))
	}
	return opts
}

// WasmOptions translates the [loader.wasm] section for loader.NewWasmWithConfig.
func (c *Config) WasmOptions() *loader.WasmConfig {
	return &loader.WasmConfig{
		MemoryLimitPages: c.Loader.Wasm.MemoryLimitPages,
		EnableWASI:       c.Loader.Wasm.WASI,
	}
}

// Logger builds a zap logger from the [log] section.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err,
			fmt.Sprintf("log level %q", c.Log.Level))
	}

	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// Marshal encodes the configuration back to TOML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "encode config")
	}
	return data, nil
}
