package resource

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/dynlib/errors"
)

func expectPanic(t *testing.T, kind errors.Kind, fn func()) *errors.Error {
	t.Helper()
	var got *errors.Error
	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatalf("expected panic of kind %s", kind)
			}
			e, ok := r.(*errors.Error)
			if !ok {
				t.Fatalf("expected *errors.Error panic, got %T: %v", r, r)
			}
			got = e
		}()
		fn()
	}()
	if got.Kind != kind {
		t.Fatalf("panic kind = %s, want %s", got.Kind, kind)
	}
	return got
}

func value(v string) Factory[string] {
	return func() (string, error) { return v, nil }
}

func TestTable_ReuseBeforeGrow(t *testing.T) {
	table := NewTable[string]()

	i0 := table.Insert(value("a"))
	i1 := table.Insert(value("b"))
	if i0 != 0 || i1 != 1 {
		t.Fatalf("expected indices 0,1, got %d,%d", i0, i1)
	}

	table.Free(0)

	if got := table.Allocate(); got != 0 {
		t.Fatalf("expected freed index 0 to be reused, got %d", got)
	}
	table.Create(0, value("c"))

	// 1 is still live, so the next index must be new
	if got := table.Allocate(); got != 2 {
		t.Fatalf("expected index 2, got %d", got)
	}
}

func TestTable_AllocateIsReservationOnly(t *testing.T) {
	table := NewTable[string]()

	i := table.Allocate()
	if table.Live(i) {
		t.Fatal("allocated slot should still be empty")
	}
	if j := table.Allocate(); j != i {
		t.Fatalf("unconstructed slot should be handed out again, got %d want %d", j, i)
	}
	if table.Cap() != 1 {
		t.Fatalf("expected Cap() == 1, got %d", table.Cap())
	}
}

func TestTable_FreeDoesNotShift(t *testing.T) {
	table := NewTable[string]()
	table.Insert(value("a"))
	table.Insert(value("b"))
	table.Insert(value("c"))

	table.Free(1)

	if got := table.Use(0); got != "a" {
		t.Fatalf("slot 0 = %q, want a", got)
	}
	if got := table.Use(2); got != "c" {
		t.Fatalf("slot 2 = %q, want c", got)
	}
	if table.Len() != 2 || table.Cap() != 3 {
		t.Fatalf("Len=%d Cap=%d, want 2,3", table.Len(), table.Cap())
	}
}

func TestTable_NoDuplicateLiveness(t *testing.T) {
	table := NewTable[int]()
	seen := make(map[int]bool)

	for round := 0; round < 4; round++ {
		for k := 0; k < 5; k++ {
			v := round*10 + k
			table.Insert(func() (int, error) { return v, nil })
		}
		table.Free(round)
	}

	table.Each(func(i int, v int) bool {
		if seen[v] {
			t.Fatalf("value %d live in two slots", v)
		}
		seen[v] = true
		return true
	})
	if len(seen) != table.Len() {
		t.Fatalf("Each visited %d, Len=%d", len(seen), table.Len())
	}
}

func TestTable_CreateFailureIsFatal(t *testing.T) {
	table := NewTable[string]()
	i := table.Allocate()
	cause := stderrors.New("out of handles")

	e := expectPanic(t, errors.KindCreationFailed, func() {
		table.Create(i, func() (string, error) { return "", cause })
	})
	if !stderrors.Is(e, cause) {
		t.Fatal("panic value should wrap the factory error")
	}
	if table.Live(i) {
		t.Fatal("failed create must leave the slot empty")
	}
}

func TestTable_CreateOnLiveSlotIsFatal(t *testing.T) {
	table := NewTable[string]()
	i := table.Insert(value("a"))

	expectPanic(t, errors.KindInvalidHandle, func() {
		table.Create(i, value("b"))
	})
	expectPanic(t, errors.KindInvalidHandle, func() {
		table.Create(5, value("b"))
	})
}

func TestTable_UseEmptySlotIsFatal(t *testing.T) {
	table := NewTable[string]()
	i := table.Allocate()

	expectPanic(t, errors.KindInvalidHandle, func() { table.Use(i) })
	expectPanic(t, errors.KindInvalidHandle, func() { table.Use(-1) })
	expectPanic(t, errors.KindInvalidHandle, func() { table.Free(i) })

	if _, ok := table.Get(i); ok {
		t.Fatal("Get should report an empty slot without panicking")
	}
}

func TestTable_DoubleFreeIsFatal(t *testing.T) {
	table := NewTable[string]()
	i := table.Insert(value("a"))
	table.Free(i)

	e := expectPanic(t, errors.KindInvalidHandle, func() { table.Free(i) })
	if e.Index != i {
		t.Fatalf("panic index = %d, want %d", e.Index, i)
	}
}

type releaseCounter struct {
	count int
}

func (r *releaseCounter) Release() {
	r.count++
}

func TestTable_ReleaserInterface(t *testing.T) {
	table := NewTable[*releaseCounter]()
	r := &releaseCounter{}

	i := table.Insert(func() (*releaseCounter, error) { return r, nil })
	table.Free(i)

	if r.count != 1 {
		t.Fatalf("Expected Release() to be called once, called %d times", r.count)
	}
}
