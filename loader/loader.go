package loader

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/dynlib/errors"
	"github.com/wippyai/dynlib/resource"
)

// Loader opens libraries by name on top of a Platform. It resolves name
// variants and search directories, and hands out one Handle per successful
// open, so a library opened twice holds two live handles. Handles are never
// reissued by the same Loader, even after the slot behind them is reused.
//
// A Loader has no internal locking; callers serialize access.
type Loader struct {
	platform Platform
	libs     *resource.Table[*library]
	handles  map[Handle]int
	next     Handle
	env      string
	dirs     []string
}

type library struct {
	obj  Object
	name string
	path string
}

// Option configures a Loader.
type Option func(*Loader)

// WithSearchEnv sets the environment variable listing extra search
// directories. An empty name disables the lookup.
func WithSearchEnv(name string) Option {
	return func(l *Loader) {
		l.env = name
	}
}

// WithSearchDirs adds directories searched before the environment ones.
func WithSearchDirs(dirs ...string) Option {
	return func(l *Loader) {
		l.dirs = append(l.dirs, dirs...)
	}
}

// New creates a Loader over platform.
func New(platform Platform, opts ...Option) *Loader {
	l := &Loader{
		platform: platform,
		libs:     resource.NewTable[*library](),
		handles:  make(map[Handle]int),
		env:      DefaultSearchEnv,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Platform returns the underlying platform.
func (l *Loader) Platform() Platform {
	return l.platform
}

// Open loads name under the first candidate path that the platform accepts.
// A missing library is an expected outcome: it returns a load_failed error
// and, when verbose, logs the platform's last error text.
func (l *Loader) Open(name string, verbose bool) (Handle, error) {
	if name == "" {
		return 0, errors.InvalidInput(errors.PhaseOpen, "empty library name")
	}

	candidates := l.Candidates(name)
	Logger().Debug("opening library",
		zap.String("library", name),
		zap.String("platform", l.platform.Name()),
		zap.Strings("candidates", candidates))

	var causes error
	for _, path := range candidates {
		obj, err := l.platform.Open(path)
		if err != nil {
			causes = multierr.Append(causes, err)
			continue
		}

		index := l.libs.Insert(func() (*library, error) {
			return &library{obj: obj, name: name, path: path}, nil
		})
		l.next++
		h := l.next
		l.handles[h] = index

		Logger().Debug("opened library",
			zap.String("library", name),
			zap.String("path", path),
			zap.Uintptr("handle", uintptr(h)))
		return h, nil
	}

	lastErr := l.platform.LastError()
	if verbose {
		Logger().Warn("dlopen error",
			zap.String("library", name),
			zap.String("error", lastErr))
	}
	return 0, errors.LoadFailed(name, candidates, lastErr, causes)
}

// Close unloads the library behind h. The handle is released even when the
// platform fails to unload; that failure is returned as close_failed.
func (l *Loader) Close(h Handle) error {
	lib, index, ok := l.lookup(h)
	if !ok {
		return unknownHandle(errors.PhaseClose, h)
	}

	err := lib.obj.Close()
	l.libs.Free(index)
	delete(l.handles, h)

	if err != nil {
		return errors.New(errors.PhaseClose, errors.KindCloseFailed).
			Name(lib.name).
			Detail(l.platform.LastError()).
			Cause(err).
			Build()
	}

	Logger().Debug("closed library",
		zap.String("library", lib.name),
		zap.Uintptr("handle", uintptr(h)))
	return nil
}

// Symbol returns the address of symbol in the library behind h. A miss is
// logged as a warning and returns 0 with a symbol_missing error.
func (l *Loader) Symbol(h Handle, symbol string) (uintptr, error) {
	lib, _, ok := l.lookup(h)
	if !ok {
		err := unknownHandle(errors.PhaseSymbol, h)
		Logger().Warn("cannot lookup symbol",
			zap.String("symbol", symbol),
			zap.Error(err))
		return 0, err
	}

	addr, err := lib.obj.Lookup(symbol)
	if err != nil || addr == 0 {
		e := errors.New(errors.PhaseSymbol, errors.KindSymbolMissing).
			Name(lib.name).
			Symbol(symbol).
			Detail(l.platform.LastError()).
			Cause(err).
			Build()
		Logger().Warn("cannot lookup symbol",
			zap.String("library", lib.name),
			zap.String("symbol", symbol),
			zap.String("error", l.platform.LastError()))
		return 0, e
	}
	return addr, nil
}

// SymbolExists reports whether symbol resolves in the library behind h.
// It never logs, which makes it suitable for optional feature probing.
func (l *Loader) SymbolExists(h Handle, symbol string) bool {
	if symbol == "" {
		return false
	}
	lib, _, ok := l.lookup(h)
	if !ok {
		return false
	}
	addr, err := lib.obj.Lookup(symbol)
	return err == nil && addr != 0
}

// LastErrorText returns the platform's most recent error text.
func (l *Loader) LastErrorText() string {
	return l.platform.LastError()
}

// Path returns the path h was resolved to.
func (l *Loader) Path(h Handle) (string, bool) {
	lib, _, ok := l.lookup(h)
	if !ok {
		return "", false
	}
	return lib.path, true
}

// Object returns the platform object behind h.
func (l *Loader) Object(h Handle) (Object, bool) {
	lib, _, ok := l.lookup(h)
	if !ok {
		return nil, false
	}
	return lib.obj, true
}

// Live returns the number of open handles.
func (l *Loader) Live() int {
	return l.libs.Len()
}

func (l *Loader) lookup(h Handle) (*library, int, bool) {
	index, ok := l.handles[h]
	if !ok {
		return nil, 0, false
	}
	lib, ok := l.libs.Get(index)
	return lib, index, ok
}

func unknownHandle(phase errors.Phase, h Handle) error {
	return errors.New(phase, errors.KindInvalidHandle).
		Detailf("unknown library handle %d", uintptr(h)).
		Build()
}
