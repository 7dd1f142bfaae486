//go:build darwin || freebsd || linux || netbsd

package loader

import (
	"runtime"

	"github.com/ebitengine/purego"
)

type posixPlatform struct {
	lastErr string
}

// Native returns the dlopen based platform.
func Native() Platform {
	return &posixPlatform{}
}

func (p *posixPlatform) Name() string { return "posix" }

func (p *posixPlatform) Ext() string {
	if runtime.GOOS == "darwin" {
		return ".dylib"
	}
	return ".so"
}

func (p *posixPlatform) Open(path string) (Object, error) {
	h, err := purego.Dlopen(path, purego.RTLD_LAZY|purego.RTLD_GLOBAL)
	if err != nil {
		p.lastErr = err.Error()
		return nil, err
	}
	return &sharedObject{handle: h, platform: p}, nil
}

func (p *posixPlatform) LastError() string { return p.lastErr }

// sharedObject is a library opened with dlopen.
type sharedObject struct {
	platform *posixPlatform
	handle   uintptr
}

func (so *sharedObject) Lookup(symbol string) (uintptr, error) {
	addr, err := purego.Dlsym(so.handle, symbol)
	if err != nil {
		so.platform.lastErr = err.Error()
	}
	return addr, err
}

func (so *sharedObject) Close() error {
	if err := purego.Dlclose(so.handle); err != nil {
		so.platform.lastErr = err.Error()
		return err
	}
	return nil
}
