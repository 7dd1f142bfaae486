package dynlib

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/dynlib/config"
	"github.com/wippyai/dynlib/errors"
	"github.com/wippyai/dynlib/loader"
	"github.com/wippyai/dynlib/registry"
	"github.com/wippyai/dynlib/resource"
)

// Context owns a loader, the registries created on top of it and the
// thread and mutex tables.
type Context struct {
	platform loader.Platform
	loader   *loader.Loader
	tracker  *registry.Tracker
	tables   []*registry.Registry
	threads  *resource.Threads
	mutexes  *resource.Mutexes
	log      *zap.Logger
	closed   bool
}

type options struct {
	platform   loader.Platform
	loaderOpts []loader.Option
	logger     *zap.Logger
}

// Option configures a Context.
type Option func(*options)

// WithPlatform replaces the native platform.
func WithPlatform(p loader.Platform) Option {
	return func(o *options) {
		o.platform = p
	}
}

// WithSearchDirs adds directories searched before the environment ones.
func WithSearchDirs(dirs ...string) Option {
	return func(o *options) {
		o.loaderOpts = append(o.loaderOpts, loader.WithSearchDirs(dirs...))
	}
}

// WithSearchEnv sets the variable listing extra search directories.
func WithSearchEnv(name string) Option {
	return func(o *options) {
		o.loaderOpts = append(o.loaderOpts, loader.WithSearchEnv(name))
	}
}

// WithLoaderOptions passes opts through to the loader.
func WithLoaderOptions(opts ...loader.Option) Option {
	return func(o *options) {
		o.loaderOpts = append(o.loaderOpts, opts...)
	}
}

// WithLogger installs l as the logger of the loader and registry packages.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a Context with an empty library registry.
func New(opts ...Option) (*Context, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.platform == nil {
		o.platform = loader.Native()
	}
	if o.logger != nil {
		loader.SetLogger(o.logger)
		registry.SetLogger(o.logger)
	} else {
		o.logger = zap.NewNop()
	}

	c := &Context{
		platform: o.platform,
		loader:   loader.New(o.platform, o.loaderOpts...),
		tracker:  registry.NewTracker(),
		threads:  resource.NewThreads(),
		mutexes:  resource.NewMutexes(),
		log:      o.logger,
	}
	c.NewTable()

	c.log.Debug("context created",
		zap.String("platform", o.platform.Name()),
		zap.String("ext", o.platform.Ext()))
	return c, nil
}

// NewFromConfig creates a Context from a parsed configuration. The wasm
// backend binds its runtime to ctx.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Context, error) {
	log, err := cfg.Logger()
	if err != nil {
		return nil, err
	}

	base := []Option{WithLogger(log), WithLoaderOptions(cfg.LoaderOptions()...)}

	switch cfg.Loader.Backend {
	case config.BackendWasm:
		wp, err := loader.NewWasmWithConfig(ctx, cfg.WasmOptions())
		if err != nil {
			return nil, err
		}
		base = append(base, WithPlatform(wp))
	case config.BackendNative, "":
	default:
		return nil, errors.Unsupported(errors.PhaseConfig, "loader backend "+cfg.Loader.Backend)
	}

	return New(append(base, opts...)...)
}

// Libraries returns the primary registry.
func (c *Context) Libraries() *registry.Registry {
	return c.tables[0]
}

// NewTable creates another registry over the same loader and tracker.
// Close tears registries down newest first.
func (c *Context) NewTable() *registry.Registry {
	r := registry.New(c.loader, registry.WithTracker(c.tracker))
	c.tables = append(c.tables, r)
	return r
}

// Threads returns the thread table.
func (c *Context) Threads() *resource.Threads {
	return c.threads
}

// Mutexes returns the mutex table.
func (c *Context) Mutexes() *resource.Mutexes {
	return c.mutexes
}

// Loader returns the loader for symbol lookups.
func (c *Context) Loader() *loader.Loader {
	return c.loader
}

// Tracker returns the tracker shared by every registry of c.
func (c *Context) Tracker() *registry.Tracker {
	return c.tracker
}

// Loaded returns the names of live libraries across all registries, in load order.
func (c *Context) Loaded() []string {
	return c.tracker.Loaded()
}

// OpenEntry opens the library list stored under entry in cfg into the
// primary registry. A missing entry loads nothing and returns not_found.
func (c *Context) OpenEntry(cfg *config.Config, entry string) error {
	names, ok := cfg.Entry(entry)
	if !ok {
		return errors.NotFound(errors.PhaseConfig, "library entry", entry)
	}
	return c.Libraries().OpenAll(names)
}

// Close tears down every registry, newest first, then releases the platform
// if it holds resources of its own. Teardown failures are returned together.
// Close is idempotent.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs error
	for i := len(c.tables) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, c.tables[i].Teardown())
	}

	if closer, ok := c.platform.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(context.Background()); err != nil {
			errs = multierr.Append(errs, errors.Wrap(errors.PhaseTeardown, errors.KindCloseFailed, err,
				"close "+c.platform.Name()+" platform"))
		}
	}

	c.log.Debug("context closed", zap.Int("registries", len(c.tables)))
	return errs
}
