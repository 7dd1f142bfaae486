//go:build windows

package loader

import (
	"golang.org/x/sys/windows"
)

type windowsPlatform struct {
	lastErr string
}

// Native returns the LoadLibrary based platform.
func Native() Platform {
	return &windowsPlatform{}
}

func (p *windowsPlatform) Name() string { return "windows" }

func (p *windowsPlatform) Ext() string { return ".dll" }

func (p *windowsPlatform) Open(path string) (Object, error) {
	h, err := windows.LoadLibrary(path)
	if err != nil || h == 0 {
		p.record(err)
		return nil, err
	}
	return &dll{handle: h, platform: p}, nil
}

func (p *windowsPlatform) LastError() string { return p.lastErr }

func (p *windowsPlatform) record(err error) {
	if err != nil {
		p.lastErr = err.Error()
	}
}

// dll is a library opened with LoadLibrary.
type dll struct {
	platform *windowsPlatform
	handle   windows.Handle
}

func (d *dll) Lookup(symbol string) (uintptr, error) {
	addr, err := windows.GetProcAddress(d.handle, symbol)
	d.platform.record(err)
	return addr, err
}

func (d *dll) Close() error {
	err := windows.FreeLibrary(d.handle)
	d.platform.record(err)
	return err
}
