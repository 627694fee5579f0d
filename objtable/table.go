package objtable

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/handle-table/errors"
)

type slot struct {
	obj  Object
	next int32 // free-list link, valid only while typ == 0
	gen  uint8
	typ  Type
}

// Table is a fixed-capacity, generation-tagged object handle table.
//
// A single mutex guards every slot, the free list, the allocation cursor and
// the selection counts and flags of every stored object's Header.
// Type-specific callbacks and observers always run with the lock released.
type Table struct {
	slots      []slot
	observers  []Observer
	mu         sync.Mutex
	obsMu      sync.RWMutex
	nextFree   int32 // head of the free list, -1 when empty
	nextUnused int
	first      int
	live       int
	freeCount  int
}

// New creates a table with the given options.
func New(opts Options) (*Table, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Table{
		slots:      make([]slot, opts.Capacity),
		nextFree:   -1,
		nextUnused: opts.FirstHandle,
		first:      opts.FirstHandle,
	}, nil
}

// MustNew is like New but panics on invalid options.
func MustNew(opts Options) *Table {
	t, err := New(opts)
	if err != nil {
		panic(err)
	}
	return t
}

// NewDefault creates a table with DefaultOptions.
func NewDefault() *Table {
	return MustNew(DefaultOptions())
}

// Capacity returns the total number of slots.
func (t *Table) Capacity() int {
	return len(t.slots)
}

// encode must be called with t.mu held.
func (t *Table) encode(idx int) Handle {
	return Handle(uint32(idx) | uint32(t.slots[idx].gen)<<handleIndexBits)
}

// entry decodes h to a live slot index, or -1. Must be called with t.mu held.
func (t *Table) entry(h Handle) int {
	if h == 0 {
		return -1
	}
	idx := h.index()
	if idx < len(t.slots) && t.slots[idx].typ != 0 {
		if g := h.generation(); g == 0 || g == uint16(t.slots[idx].gen) {
			return idx
		}
	}
	Logger().Warn("invalid handle", zap.Stringer("handle", h))
	return -1
}

// detach unbinds a live slot and pushes it on the free list. Must be called with t.mu held.
func (t *Table) detach(idx int) (Object, Type, Handle) {
	s := &t.slots[idx]
	h := t.encode(idx)
	obj, typ := s.obj, s.typ

	s.typ = 0
	s.obj = nil
	s.next = t.nextFree
	t.nextFree = int32(idx)
	t.live--
	t.freeCount++

	return obj, typ, h
}

// Alloc binds obj to a free slot and returns its handle.
// The object's Header is reset and funcs installed as its operation table.
// On exhaustion it returns 0 and an errors.KindExhausted error.
func (t *Table) Alloc(obj Object, typ Type, funcs Funcs) (Handle, error) {
	if typ == 0 {
		return 0, errors.ReservedType()
	}
	if obj == nil {
		return 0, errors.NilObject(typ.String())
	}
	hdr := obj.ObjectHeader()

	t.mu.Lock()

	var idx int
	switch {
	case t.nextFree >= 0:
		idx = int(t.nextFree)
		t.nextFree = t.slots[idx].next
		t.freeCount--
	case t.nextUnused < len(t.slots):
		idx = t.nextUnused
		t.nextUnused++
	default:
		t.mu.Unlock()
		Logger().Error("out of object handles",
			zap.Stringer("type", typ),
			zap.Int("capacity", len(t.slots)))
		if traceOn() {
			t.Dump()
		}
		return 0, errors.Exhausted(typ.String(), len(t.slots))
	}

	*hdr = Header{funcs: funcs}

	s := &t.slots[idx]
	s.obj = obj
	s.typ = typ
	s.next = -1
	if s.gen++; s.gen == 0xff {
		s.gen = 1
	}
	h := t.encode(idx)
	t.live++
	live := t.live

	t.mu.Unlock()

	Logger().Debug("allocated",
		zap.Stringer("type", typ),
		zap.Stringer("handle", h),
		zap.Int("live", live),
		zap.Int("capacity", len(t.slots)))

	t.notify(Event{Kind: EventAllocated, Handle: h, Type: typ, Object: obj})
	return h, nil
}

// FreeSlot releases the slot of h regardless of its selection count and
// returns the object that occupied it. No destructor is called; the caller
// owns the object from here on. An invalid handle leaves the table untouched.
func (t *Table) FreeSlot(h Handle) (Object, bool) {
	return t.freeSlot(h, false)
}

// FreeUnmanaged is FreeSlot restricted to objects allocated with nil Funcs.
// Objects with an operation table are left alone, since releasing them
// without Destroy would drop whatever selections they hold.
func (t *Table) FreeUnmanaged(h Handle) (Object, bool) {
	return t.freeSlot(h, true)
}

func (t *Table) freeSlot(h Handle, unmanagedOnly bool) (Object, bool) {
	t.mu.Lock()
	idx := t.entry(h)
	if idx < 0 {
		t.mu.Unlock()
		return nil, false
	}
	if s := &t.slots[idx]; unmanagedOnly && s.obj.ObjectHeader().funcs != nil {
		full, typ := t.encode(idx), s.typ
		t.mu.Unlock()
		Logger().Warn("refusing to free managed object",
			zap.Stringer("handle", full),
			zap.Stringer("type", typ))
		return nil, false
	}
	obj, typ, full := t.detach(idx)
	live := t.live
	t.mu.Unlock()

	Logger().Debug("freed",
		zap.Stringer("type", typ),
		zap.Stringer("handle", full),
		zap.Int("live", live),
		zap.Int("capacity", len(t.slots)))

	t.notify(Event{Kind: EventFreed, Handle: full, Type: typ, Object: obj})
	return obj, true
}

// GetAny resolves h to its object and type.
// On success the table lock is left held and the caller must call Release
// exactly once. On failure the lock is not held.
func (t *Table) GetAny(h Handle) (Object, Type, bool) {
	t.mu.Lock()
	idx := t.entry(h)
	if idx < 0 {
		t.mu.Unlock()
		return nil, 0, false
	}
	s := &t.slots[idx]
	return s.obj, s.typ, true
}

// Get resolves h to its object if it has type typ.
// Same locking contract as GetAny; a type mismatch releases the lock.
func (t *Table) Get(h Handle, typ Type) (Object, bool) {
	obj, got, ok := t.GetAny(h)
	if !ok {
		return nil, false
	}
	if got != typ {
		t.Release()
		return nil, false
	}
	return obj, true
}

// Release leaves the lock taken by a successful Get or GetAny.
func (t *Table) Release() {
	t.mu.Unlock()
}

// With calls fn with the object behind h while holding the table lock.
// fn must not call back into the table.
func (t *Table) With(h Handle, typ Type, fn func(Object)) bool {
	obj, ok := t.Get(h, typ)
	if !ok {
		return false
	}
	defer t.Release()
	fn(obj)
	return true
}

// TypeOf returns the type of the object behind h, or 0 if h is invalid.
func (t *Table) TypeOf(h Handle) Type {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.entry(h)
	if idx < 0 {
		return 0
	}
	return t.slots[idx].typ
}

// FullHandle returns the full handle of the object h refers to.
// It turns a wildcard handle into one carrying the current generation.
func (t *Table) FullHandle(h Handle) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.entry(h)
	if idx < 0 {
		return 0
	}
	return t.encode(idx)
}

// Len returns the number of live objects.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnObjectEvent(e)
	}
}
