// Package handletable is a generation-tagged object handle manager.
//
// Objects live in a fixed-capacity slot table and are referred to by opaque
// 32-bit handles. A handle carries the slot index in its low 16 bits and the
// slot generation in its high 16 bits, so a handle kept after its object was
// freed never resolves to whatever reuses the slot.
//
// # Packages
//
//	handletable/
//	├── objtable/        Slot table, handle codec, selection counts, deferred delete
//	├── gdi/             Pens, brushes, fonts, bitmaps, palettes and device contexts
//	├── snapshot/        Text, YAML and CBOR table dumps and leak checks
//	├── errors/          Structured error types
//	└── cmd/handlectl/   Demo scenarios, stress runner and TUI inspector
//
// # Quick Start
//
//	table := objtable.NewDefault()
//	h, err := table.Alloc(&Pen{}, TypePen, penFuncs{})
//	if err != nil {
//	    return err
//	}
//
//	table.IncRef(h)  // selected somewhere
//	table.Delete(h)  // deferred, h still resolves
//	table.DecRef(h)  // last selection gone, Destroy runs
//
// # Locking
//
// One mutex per table guards every slot. Get and GetAny return with the lock
// held and the caller must call Release. Destroy, Unrealize and GetInfo
// callbacks and observers run with the lock released and may call back into
// the table.
//
// # Logging
//
// objtable and gdi log through zap. Both default to a no-op logger; set one
// with objtable.SetLogger and gdi.SetLogger. Slot dumps are emitted only when
// the objtable logger has debug level enabled.
package handletable
