// Package loadertest provides an in-memory loader.Platform for tests.
package loadertest

import (
	"fmt"

	"github.com/wippyai/dynlib/loader"
)

// Library is a fake shared library registered with a Platform.
type Library struct {
	// Symbols maps exported names to addresses.
	Symbols map[string]uintptr

	// CloseErr is returned by every Close of this library.
	CloseErr error

	// Opens counts successful opens.
	Opens int
}

// Platform records every open attempt and close so tests can assert on
// resolution and teardown order.
type Platform struct {
	libs     map[string]*Library
	ext      string
	lastErr  string
	Attempts []string
	Closed   []string
}

var _ loader.Platform = (*Platform)(nil)

// New creates an empty platform using ext as the native extension.
func New(ext string) *Platform {
	return &Platform{
		libs: make(map[string]*Library),
		ext:  ext,
	}
}

// Add makes path loadable with the given symbols.
func (p *Platform) Add(path string, symbols ...string) *Library {
	lib := &Library{Symbols: make(map[string]uintptr, len(symbols))}
	for i, s := range symbols {
		lib.Symbols[s] = uintptr(0x1000 + i*0x10)
	}
	p.libs[path] = lib
	return lib
}

// Remove makes path unloadable again.
func (p *Platform) Remove(path string) {
	delete(p.libs, path)
}

func (p *Platform) Name() string { return "fake" }

func (p *Platform) Ext() string { return p.ext }

func (p *Platform) Open(path string) (loader.Object, error) {
	p.Attempts = append(p.Attempts, path)

	lib, ok := p.libs[path]
	if !ok {
		p.lastErr = fmt.Sprintf("%s: cannot open shared object file: No such file or directory", path)
		return nil, fmt.Errorf("%s", p.lastErr)
	}
	lib.Opens++
	return &object{platform: p, lib: lib, path: path}, nil
}

func (p *Platform) LastError() string { return p.lastErr }

type object struct {
	platform *Platform
	lib      *Library
	path     string
}

func (o *object) Lookup(symbol string) (uintptr, error) {
	addr, ok := o.lib.Symbols[symbol]
	if !ok {
		o.platform.lastErr = fmt.Sprintf("%s: undefined symbol: %s", o.path, symbol)
		return 0, fmt.Errorf("%s", o.platform.lastErr)
	}
	return addr, nil
}

func (o *object) Close() error {
	o.platform.Closed = append(o.platform.Closed, o.path)
	if o.lib.CloseErr != nil {
		o.platform.lastErr = o.lib.CloseErr.Error()
		return o.lib.CloseErr
	}
	return nil
}
