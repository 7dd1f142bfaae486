//go:build !(darwin || freebsd || linux || netbsd || windows)

package loader

import (
	"runtime"

	"github.com/wippyai/dynlib/errors"
)

type unsupportedPlatform struct{}

// Native returns a platform that refuses to load anything.
func Native() Platform {
	return unsupportedPlatform{}
}

func (unsupportedPlatform) Name() string { return "unsupported" }

func (unsupportedPlatform) Ext() string { return ".so" }

func (unsupportedPlatform) Open(path string) (Object, error) {
	return nil, errors.Unsupported(errors.PhaseOpen, "dynamic loading on "+runtime.GOOS)
}

func (unsupportedPlatform) LastError() string {
	return "dynamic loading is not supported on " + runtime.GOOS
}
