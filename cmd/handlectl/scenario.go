package main

import (
	"fmt"
	"io"

	"github.com/wippyai/handle-table/gdi"
	"github.com/wippyai/handle-table/objtable"
)

// runExhaustion walks a four-slot table through exhaustion and slot reuse.
func runExhaustion(w io.Writer) error {
	table, err := objtable.New(objtable.Options{Capacity: 4, FirstHandle: 0})
	if err != nil {
		return err
	}

	var hs [4]objtable.Handle
	for i := range hs {
		if hs[i], err = table.Alloc(&gdi.ClientObject{}, gdi.TypeClient, nil); err != nil {
			return fmt.Errorf("alloc %d: %w", i, err)
		}
	}
	fmt.Fprintf(w, "allocated %v (%d/%d used)\n", hs, table.Len(), table.Capacity())

	h, err := table.Alloc(&gdi.ClientObject{}, gdi.TypeClient, nil)
	if err == nil {
		return fmt.Errorf("alloc on a full table returned %v", h)
	}
	fmt.Fprintf(w, "fifth alloc: %v\n", err)

	stale := hs[1]
	table.Delete(stale)
	fmt.Fprintf(w, "deleted %v (%d/%d used)\n", stale, table.Len(), table.Capacity())

	reused, err := table.Alloc(&gdi.ClientObject{}, gdi.TypeClient, nil)
	if err != nil {
		return fmt.Errorf("alloc after delete: %w", err)
	}
	fmt.Fprintf(w, "reallocated %v in the same slot\n", reused)

	if _, _, ok := table.GetAny(stale); ok {
		table.Release()
		return fmt.Errorf("stale handle %v still resolves", stale)
	}
	fmt.Fprintf(w, "stale handle %v rejected\n", stale)
	return nil
}

// runSelection shows a delete deferred by a DC selection.
func runSelection(w io.Writer, ctx *gdi.Context) error {
	dc, err := ctx.CreateDC()
	if err != nil {
		return err
	}
	pen, err := ctx.CreatePen(gdi.PenSolid, 2, gdi.RGB(0xff, 0, 0))
	if err != nil {
		return err
	}
	brush, err := ctx.CreateSolidBrush(gdi.RGB(0, 0, 0xff))
	if err != nil {
		return err
	}

	ctx.SelectObject(dc, pen)
	ctx.SelectObject(dc, brush)
	fmt.Fprintf(w, "selected pen %v and brush %v into dc %v\n", pen, brush, dc)

	ctx.DeleteObject(pen)
	fmt.Fprintf(w, "deleted pen %v: still %s, refcount %d\n",
		pen, ctx.GetObjectType(pen), ctx.Table().RefCount(pen))

	ctx.SelectObject(dc, ctx.Stock(gdi.BlackPen))
	fmt.Fprintf(w, "deselected pen: type now %s\n", ctx.GetObjectType(pen))

	ctx.DeleteObject(ctx.Stock(gdi.WhiteBrush))
	fmt.Fprintf(w, "deleted stock white brush: still %s\n", ctx.GetObjectType(ctx.Stock(gdi.WhiteBrush)))
	return nil
}
