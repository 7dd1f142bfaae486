package registry

import "github.com/wippyai/dynlib/loader"

// Tracker is a reverse index from library handle to name, mirroring the live
// records of every registry attached to it. It is mutated only by registries.
//
// Handles are only unique within the Library that issued them, so entries
// are keyed by both. Registries on different loaders may share a Tracker.
type Tracker struct {
	entries []trackedLibrary
}

type trackedLibrary struct {
	lib    Library
	name   string
	handle loader.Handle
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) index(lib Library, h loader.Handle) int {
	for i := range t.entries {
		if t.entries[i].lib == lib && t.entries[i].handle == h {
			return i
		}
	}
	return -1
}

func (t *Tracker) record(lib Library, h loader.Handle, name string) {
	if i := t.index(lib, h); i >= 0 {
		t.entries[i].name = name
		return
	}
	t.entries = append(t.entries, trackedLibrary{lib: lib, name: name, handle: h})
}

func (t *Tracker) forget(lib Library, h loader.Handle) {
	if i := t.index(lib, h); i >= 0 {
		t.entries = append(t.entries[:i], t.entries[i+1:]...)
	}
}

// Loaded returns the names of live libraries in load order.
func (t *Tracker) Loaded() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.name
	}
	return names
}

// Name returns the name recorded for h as issued by lib.
func (t *Tracker) Name(lib Library, h loader.Handle) (string, bool) {
	if i := t.index(lib, h); i >= 0 {
		return t.entries[i].name, true
	}
	return "", false
}

// Len returns the number of live libraries.
func (t *Tracker) Len() int {
	return len(t.entries)
}
