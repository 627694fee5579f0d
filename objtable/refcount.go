package objtable

import (
	"go.uber.org/zap"

	"github.com/wippyai/handle-table/errors"
)

// IncRef increments the selection count of the object behind h.
// It returns h, or 0 if h is invalid.
func (t *Table) IncRef(h Handle) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.entry(h)
	if idx < 0 {
		return 0
	}
	t.slots[idx].obj.ObjectHeader().selcount++
	return h
}

// DecRef decrements the selection count of the object behind h and reports
// whether h was valid. When the count drops to zero on an object whose
// deletion was deferred, the object is destroyed before DecRef returns.
//
// Decrementing a count that is already zero is a caller bug: DecRef panics
// with an *errors.Error of kind errors.KindRefUnderflow.
func (t *Table) DecRef(h Handle) bool {
	t.mu.Lock()
	idx := t.entry(h)
	if idx < 0 {
		t.mu.Unlock()
		return false
	}

	s := &t.slots[idx]
	hdr := s.obj.ObjectHeader()
	if hdr.selcount == 0 {
		full, typ := t.encode(idx), s.typ
		t.mu.Unlock()
		Logger().Error("selection count underflow",
			zap.Stringer("handle", full),
			zap.Stringer("type", typ))
		panic(errors.RefUnderflow(uint32(full), typ.String()))
	}

	hdr.selcount--
	if hdr.selcount > 0 || !hdr.deleted {
		t.mu.Unlock()
		return true
	}

	hdr.deleted = false
	if hdr.system {
		t.mu.Unlock()
		return true
	}

	funcs := hdr.funcs
	obj, typ, full := t.detach(idx)
	t.mu.Unlock()

	Logger().Debug("executing deferred delete", zap.Stringer("handle", full))
	t.destroy(full, typ, obj, funcs)
	return true
}

// RefCount returns the selection count of the object behind h.
// The value is only stable while the caller holds a selection on the object.
func (t *Table) RefCount(h Handle) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.entry(h)
	if idx < 0 {
		return 0
	}
	return t.slots[idx].obj.ObjectHeader().selcount
}

// Delete requests destruction of the object behind h.
//
// System objects are preserved and Delete reports success. Objects with a
// non-zero selection count are marked and destroyed by the DecRef that
// releases the last selection. Otherwise the slot is released and the
// object's Destroy runs outside the lock; its result is returned.
func (t *Table) Delete(h Handle) bool {
	t.mu.Lock()
	idx := t.entry(h)
	if idx < 0 {
		t.mu.Unlock()
		return false
	}

	s := &t.slots[idx]
	hdr := s.obj.ObjectHeader()
	full := t.encode(idx)

	if hdr.system {
		obj, typ := s.obj, s.typ
		t.mu.Unlock()
		Logger().Debug("preserving system object", zap.Stringer("handle", full))
		t.notify(Event{Kind: EventPreserved, Handle: full, Type: typ, Object: obj})
		return true
	}

	if hdr.selcount > 0 {
		hdr.deleted = true
		obj, typ, count := s.obj, s.typ, hdr.selcount
		t.mu.Unlock()
		Logger().Debug("delete deferred, object in use",
			zap.Stringer("handle", full),
			zap.Uint32("selcount", count))
		t.notify(Event{Kind: EventDeferred, Handle: full, Type: typ, Object: obj})
		return true
	}

	funcs := hdr.funcs
	obj, typ, _ := t.detach(idx)
	t.mu.Unlock()

	return t.destroy(full, typ, obj, funcs)
}

// destroy finishes a delete whose slot has already been released.
func (t *Table) destroy(h Handle, typ Type, obj Object, funcs Funcs) bool {
	Logger().Debug("freed",
		zap.Stringer("type", typ),
		zap.Stringer("handle", h))

	ret := true
	if funcs != nil {
		ret = funcs.Destroy(h, obj)
	}
	t.notify(Event{Kind: EventFreed, Handle: h, Type: typ, Object: obj})
	return ret
}

// SetSystem sets or clears the system flag of the object behind h.
// System objects ignore Delete.
func (t *Table) SetSystem(h Handle, set bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.entry(h)
	if idx < 0 {
		return false
	}
	t.slots[idx].obj.ObjectHeader().system = set
	return true
}

// IsSystem reports whether the object behind h carries the system flag.
func (t *Table) IsSystem(h Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.entry(h)
	if idx < 0 {
		return false
	}
	return t.slots[idx].obj.ObjectHeader().system
}

// IsDeleted reports whether a delete is pending on the object behind h.
func (t *Table) IsDeleted(h Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.entry(h)
	if idx < 0 {
		return false
	}
	return t.slots[idx].obj.ObjectHeader().deleted
}

// resolve returns the operation table and object for h under a short critical section.
func (t *Table) resolve(h Handle) (Funcs, Object, Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.entry(h)
	if idx < 0 {
		return nil, nil, 0, false
	}
	obj := t.slots[idx].obj
	return obj.ObjectHeader().funcs, obj, t.encode(idx), true
}

// Unrealize resets realized state of the object behind h.
// It returns false for invalid handles and objects without an operation table.
func (t *Table) Unrealize(h Handle) bool {
	funcs, obj, full, ok := t.resolve(h)
	if !ok || funcs == nil {
		return false
	}
	if u, ok := funcs.(Unrealizer); ok {
		return u.Unrealize(full, obj)
	}
	return true
}

// Info returns the type-specific description of the object behind h.
func (t *Table) Info(h Handle) (any, bool) {
	funcs, obj, full, ok := t.resolve(h)
	if !ok {
		return nil, false
	}
	g, ok := funcs.(InfoGetter)
	if !ok {
		return nil, false
	}
	return g.GetInfo(full, obj), true
}
