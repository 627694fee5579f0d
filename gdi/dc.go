package gdi

import (
	"go.uber.org/zap"

	"github.com/wippyai/handle-table/objtable"
)

const (
	selPen = iota
	selBrush
	selFont
	selBitmap
	selPalette

	selCount
)

// selectionIndex maps a selectable type to its DC slot, or -1.
func selectionIndex(typ objtable.Type) int {
	switch typ {
	case TypePen:
		return selPen
	case TypeBrush:
		return selBrush
	case TypeFont:
		return selFont
	case TypeBitmap:
		return selBitmap
	case TypePalette:
		return selPalette
	default:
		return -1
	}
}

// DC is a device context. Every object it has selected holds one selection
// reference, so deleting a selected object is deferred until it is replaced
// or the DC itself is deleted.
type DC struct {
	objtable.Header
	selected [selCount]objtable.Handle
}

// DCInfo lists the objects currently selected into a DC.
type DCInfo struct {
	Pen     objtable.Handle
	Brush   objtable.Handle
	Font    objtable.Handle
	Bitmap  objtable.Handle
	Palette objtable.Handle
}

type dcFuncs struct{ ctx *Context }

// Destroy runs with the table unlocked, so the selections can be dropped here.
func (f dcFuncs) Destroy(h objtable.Handle, obj objtable.Object) bool {
	dc := obj.(*DC)
	for i, sel := range dc.selected {
		if sel != 0 {
			f.ctx.table.DecRef(sel)
			dc.selected[i] = 0
		}
	}
	f.ctx.countDestroyed(TypeDC)
	Logger().Debug("dc destroyed", zap.Stringer("dc", h))
	return true
}

// GetInfo runs with the table unlocked, so the selections are read back
// through a locked lookup. A DC deleted in the meantime reports nothing selected.
func (f dcFuncs) GetInfo(h objtable.Handle, _ objtable.Object) any {
	var info DCInfo
	f.ctx.dcs.With(h, func(dc *DC) {
		info = DCInfo{
			Pen:     dc.selected[selPen],
			Brush:   dc.selected[selBrush],
			Font:    dc.selected[selFont],
			Bitmap:  dc.selected[selBitmap],
			Palette: dc.selected[selPalette],
		}
	})
	return info
}

// CreateDC creates a device context with the default stock objects selected.
func (c *Context) CreateDC() (objtable.Handle, error) {
	dc := &DC{}
	dc.selected[selPen] = c.stock[BlackPen]
	dc.selected[selBrush] = c.stock[WhiteBrush]
	dc.selected[selFont] = c.stock[SystemFont]
	dc.selected[selBitmap] = c.stock[DefaultBitmap]
	dc.selected[selPalette] = c.stock[DefaultPalette]

	for _, sel := range dc.selected {
		c.table.IncRef(sel)
	}

	h, err := c.dcs.Alloc(dc)
	if err != nil {
		for _, sel := range dc.selected {
			c.table.DecRef(sel)
		}
		return 0, err
	}
	return h, nil
}

// DeleteDC deletes a device context and releases everything selected into it.
func (c *Context) DeleteDC(dc objtable.Handle) bool {
	if c.table.TypeOf(dc) != TypeDC {
		return false
	}
	return c.table.Delete(dc)
}

// SelectObject selects obj into dc and returns the object it replaces.
// Selecting a brush or palette realizes it.
func (c *Context) SelectObject(dc, obj objtable.Handle) (objtable.Handle, bool) {
	full := c.table.FullHandle(obj)
	if full == 0 {
		return 0, false
	}
	typ := c.table.TypeOf(full)
	idx := selectionIndex(typ)
	if idx < 0 {
		Logger().Warn("object type cannot be selected",
			zap.Stringer("handle", full),
			zap.Stringer("type", typ))
		return 0, false
	}

	// A slot reused since FullHandle carries a new generation, so IncRef fails.
	if c.table.IncRef(full) == 0 {
		return 0, false
	}

	var prev objtable.Handle
	if !c.dcs.With(dc, func(d *DC) {
		prev = d.selected[idx]
		d.selected[idx] = full
	}) {
		c.table.DecRef(full)
		return 0, false
	}

	switch typ {
	case TypeBrush:
		c.brushes.With(full, func(b *Brush) { b.realized.Store(true) })
	case TypePalette:
		c.palettes.With(full, func(p *Palette) { p.realized.Store(true) })
	}

	if prev != 0 {
		c.table.DecRef(prev)
	}
	return prev, true
}

// GetCurrentObject returns the object of type typ selected into dc, or 0.
func (c *Context) GetCurrentObject(dc objtable.Handle, typ objtable.Type) objtable.Handle {
	idx := selectionIndex(typ)
	if idx < 0 {
		return 0
	}
	var h objtable.Handle
	c.dcs.With(dc, func(d *DC) { h = d.selected[idx] })
	return h
}
