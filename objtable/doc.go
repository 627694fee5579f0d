// Package objtable provides a generation-tagged object handle table with
// selection counting and deferred deletion.
//
// Objects are stored in a fixed-capacity slot table and referenced through
// opaque handles that encode a slot index and the slot's generation:
//
//	table := objtable.NewDefault()
//
//	pen := &Pen{Width: 1}
//	h, err := table.Alloc(pen, TypePen, penFuncs{})
//
// # Handles
//
// The low 16 bits of a handle carry the slot index, the high 16 bits the
// generation. Each allocation of a slot bumps its generation (1..254, wrapping
// back to 1), so a handle kept after its object was freed never resolves to
// the object that later reuses the slot. Handle 0 is never valid. A handle
// with zero generation bits matches whatever currently lives in its slot;
// FullHandle turns it into an exact handle.
//
// # Lookup
//
// Get and GetAny leave the table lock held on success:
//
//	obj, ok := table.Get(h, TypePen)
//	if !ok {
//	    return
//	}
//	defer table.Release()
//
// With and Typed wrap the same contract.
//
// # Selections and deferred delete
//
// IncRef and DecRef count selections. Delete on an unselected object destroys
// it immediately; on a selected object it only marks it, and the DecRef that
// drops the last selection destroys it. Destroy callbacks run with the lock
// released. Objects marked with SetSystem ignore Delete.
//
// DecRef below zero panics: it means selections were not balanced.
//
// # Diagnostics
//
// Snapshot and Stats describe the table. With debug logging enabled on the
// package logger, Dump logs every slot, and running out of slots dumps the
// table automatically.
package objtable
