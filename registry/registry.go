package registry

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/dynlib/errors"
	"github.com/wippyai/dynlib/loader"
)

// Library is the part of a loader the registry drives. Implementations must
// be comparable, since a Tracker keys its entries by Library and Handle.
type Library interface {
	Open(name string, verbose bool) (loader.Handle, error)
	Close(h loader.Handle) error
}

var _ Library = (*loader.Loader)(nil)

// Record is one successful open. A closed record is a tombstone: its Name
// is empty and its Handle is 0, and it keeps its position in the sequence.
type Record struct {
	Name   string
	Handle loader.Handle
}

// Live reports whether the record still holds an open library.
func (r Record) Live() bool {
	return r.Handle != 0
}

// Registry is the ordered record of libraries opened through it.
// Records are only ever appended; insertion order is load order and
// Teardown releases in the reverse of it.
//
// A Registry has no internal locking; callers serialize access.
type Registry struct {
	lib     Library
	tracker *Tracker
	records []Record
}

// Option configures a Registry.
type Option func(*Registry)

// WithTracker attaches a shared tracker instead of a private one.
func WithTracker(t *Tracker) Option {
	return func(r *Registry) {
		r.tracker = t
	}
}

// New creates an empty registry over lib.
func New(lib Library, opts ...Option) *Registry {
	r := &Registry{lib: lib}
	for _, opt := range opts {
		opt(r)
	}
	if r.tracker == nil {
		r.tracker = NewTracker()
	}
	return r
}

// Tracker returns the tracker mirroring this registry.
func (r *Registry) Tracker() *Tracker {
	return r.tracker
}

// Open loads name and appends a live record for it. Names are used as
// given; any path expansion is the caller's job. A failed open is reported
// only when verbose, so optional plugins may be absent silently.
func (r *Registry) Open(name string, verbose bool) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseOpen, "empty library name")
	}

	h, err := r.lib.Open(name, verbose)
	if err != nil {
		if verbose {
			Logger().Warn("could not load library",
				zap.String("library", name),
				zap.Error(err))
		}
		return err
	}

	Logger().Debug("opened library",
		zap.String("library", name),
		zap.Uintptr("handle", uintptr(h)))

	r.records = append(r.records, Record{Name: name, Handle: h})
	r.tracker.record(r.lib, h, name)
	return nil
}

// Close unloads the most recently opened live library called name.
// It returns a not_found error without touching anything when there is
// none. Otherwise the record is tombstoned whatever the platform reports,
// and a failed unload comes back as close_failed.
func (r *Registry) Close(name string, verbose bool) error {
	index := r.find(name)
	if index < 0 {
		return errors.NotFound(errors.PhaseClose, "library", name)
	}

	rec := r.records[index]
	Logger().Debug("closing library",
		zap.String("library", rec.Name),
		zap.Uintptr("handle", uintptr(rec.Handle)))

	err := r.lib.Close(rec.Handle)
	r.tombstone(index)

	if err != nil {
		if verbose {
			Logger().Warn("could not close library",
				zap.String("library", name),
				zap.Error(err))
		}
		return err
	}
	return nil
}

// Find returns the handle of the most recently opened live library called name.
func (r *Registry) Find(name string) (loader.Handle, bool) {
	index := r.find(name)
	if index < 0 {
		return 0, false
	}
	return r.records[index].Handle, true
}

// OpenAll opens names in order, verbosely. It succeeds only for a non-empty
// list in which every open succeeded; libraries that did open stay open
// either way.
func (r *Registry) OpenAll(names []string) error {
	if len(names) == 0 {
		return errors.InvalidInput(errors.PhaseOpen, "empty library list")
	}

	var errs error
	for _, name := range names {
		errs = multierr.Append(errs, r.Open(name, true))
	}
	return errs
}

// Teardown closes every live record in reverse load order, so libraries
// loaded later are released before the ones they may depend on. Close
// failures are logged and returned together; they never stop the walk.
// Calling Teardown again finds nothing left to close.
func (r *Registry) Teardown() error {
	var errs error
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if !rec.Live() {
			continue
		}

		Logger().Debug("closing library",
			zap.String("library", rec.Name),
			zap.Uintptr("handle", uintptr(rec.Handle)))

		err := r.lib.Close(rec.Handle)
		r.tombstone(i)

		if err != nil {
			Logger().Warn("failed closing library",
				zap.String("library", rec.Name),
				zap.Uintptr("handle", uintptr(rec.Handle)),
				zap.Error(err))
			errs = multierr.Append(errs, errors.New(errors.PhaseTeardown, errors.KindCloseFailed).
				Name(rec.Name).
				Cause(err).
				Build())
		}
	}
	return errs
}

// Records returns a copy of the record sequence, tombstones included.
func (r *Registry) Records() []Record {
	return append([]Record(nil), r.records...)
}

// Len returns the number of records, tombstones included.
func (r *Registry) Len() int {
	return len(r.records)
}

// LiveLen returns the number of live records.
func (r *Registry) LiveLen() int {
	n := 0
	for _, rec := range r.records {
		if rec.Live() {
			n++
		}
	}
	return n
}

func (r *Registry) find(name string) int {
	if name == "" {
		return -1
	}
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].Live() && r.records[i].Name == name {
			return i
		}
	}
	return -1
}

func (r *Registry) tombstone(index int) {
	r.tracker.forget(r.lib, r.records[index].Handle)
	r.records[index] = Record{}
}
