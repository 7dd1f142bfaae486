package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/wippyai/dynlib/errors"
)

// WasmExt is the extension of WebAssembly plugin libraries.
const WasmExt = ".wasm"

// WasmConfig holds configuration for the WebAssembly platform
type WasmConfig struct {
	// MemoryLimitPages caps memory per module in 64KB pages. 0 keeps the wazero default.
	MemoryLimitPages uint32

	// EnableWASI instantiates wasi_snapshot_preview1 so modules may import it.
	EnableWASI bool
}

// WasmPlatform loads WebAssembly modules as portable plugin libraries.
// Every Open instantiates an anonymous module, so one file can be open
// several times. Symbols are exported functions; their address is the
// function index plus one.
type WasmPlatform struct {
	ctx     context.Context
	runtime wazero.Runtime
	lastErr string
}

// NewWasm creates a WebAssembly platform bound to ctx.
func NewWasm(ctx context.Context) (*WasmPlatform, error) {
	return NewWasmWithConfig(ctx, nil)
}

// NewWasmWithConfig creates a WebAssembly platform with custom configuration
func NewWasmWithConfig(ctx context.Context, cfg *WasmConfig) (*WasmPlatform, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	if cfg != nil && cfg.EnableWASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
			_ = rt.Close(ctx)
			return nil, errors.Wrap(errors.PhaseOpen, errors.KindUnsupported, err, "instantiate wasi_snapshot_preview1")
		}
	}

	return &WasmPlatform{ctx: ctx, runtime: rt}, nil
}

func (p *WasmPlatform) Name() string { return "wasm" }

func (p *WasmPlatform) Ext() string { return WasmExt }

func (p *WasmPlatform) Open(path string) (Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, p.fail(err)
	}

	compiled, err := p.runtime.CompileModule(p.ctx, data)
	if err != nil {
		return nil, p.fail(fmt.Errorf("compile %s: %w", path, err))
	}

	// _initialize is the reactor constructor; wazero skips it when absent.
	modCfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions("_initialize")

	mod, err := p.runtime.InstantiateModule(p.ctx, compiled, modCfg)
	if err != nil {
		_ = compiled.Close(p.ctx)
		return nil, p.fail(fmt.Errorf("instantiate %s: %w", path, err))
	}

	return &wasmModule{platform: p, compiled: compiled, mod: mod}, nil
}

func (p *WasmPlatform) LastError() string { return p.lastErr }

// Close releases the runtime and every module still open in it.
func (p *WasmPlatform) Close(ctx context.Context) error {
	return p.runtime.Close(ctx)
}

func (p *WasmPlatform) fail(err error) error {
	p.lastErr = err.Error()
	return err
}

// Function returns the exported function symbol of a module opened by a WasmPlatform.
func Function(obj Object, symbol string) (api.Function, bool) {
	m, ok := obj.(*wasmModule)
	if !ok {
		return nil, false
	}
	fn := m.mod.ExportedFunction(symbol)
	return fn, fn != nil
}

type wasmModule struct {
	platform *WasmPlatform
	compiled wazero.CompiledModule
	mod      api.Module
}

func (m *wasmModule) Lookup(symbol string) (uintptr, error) {
	fn := m.mod.ExportedFunction(symbol)
	if fn == nil {
		return 0, m.platform.fail(fmt.Errorf("function %q is not exported", symbol))
	}
	return uintptr(fn.Definition().Index()) + 1, nil
}

func (m *wasmModule) Close() error {
	if err := m.mod.Close(m.platform.ctx); err != nil {
		return m.platform.fail(err)
	}
	return m.compiled.Close(m.platform.ctx)
}
