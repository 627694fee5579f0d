package gdi

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/handle-table/errors"
	"github.com/wippyai/handle-table/objtable"
)

// StockObject names one of the shared objects every Context creates.
type StockObject int

const (
	WhiteBrush StockObject = iota
	BlackBrush
	NullBrush
	WhitePen
	BlackPen
	NullPen
	SystemFont
	DefaultPalette
	DefaultBitmap

	stockCount
)

func (s StockObject) String() string {
	switch s {
	case WhiteBrush:
		return "white brush"
	case BlackBrush:
		return "black brush"
	case NullBrush:
		return "null brush"
	case WhitePen:
		return "white pen"
	case BlackPen:
		return "black pen"
	case NullPen:
		return "null pen"
	case SystemFont:
		return "system font"
	case DefaultPalette:
		return "default palette"
	case DefaultBitmap:
		return "default bitmap"
	default:
		return "unknown stock object"
	}
}

// ParseStockObject looks up a stock object by its String name.
func ParseStockObject(name string) (StockObject, error) {
	for s := StockObject(0); s < stockCount; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, errors.NotFound(errors.PhaseObject, "stock object", name)
}

// Context owns an object table and the typed views used to populate it.
// Safe for concurrent use.
type Context struct {
	table     *objtable.Table
	pens      *objtable.Typed[*Pen]
	brushes   *objtable.Typed[*Brush]
	fonts     *objtable.Typed[*Font]
	bitmaps   *objtable.Typed[*Bitmap]
	palettes  *objtable.Typed[*Palette]
	dcs       *objtable.Typed[*DC]
	stock     [stockCount]objtable.Handle
	destroyed [typeCount]atomic.Int64
}

// NewContext creates a table with opts and fills it with the stock objects.
func NewContext(opts objtable.Options) (*Context, error) {
	table, err := objtable.New(opts)
	if err != nil {
		return nil, err
	}

	c := &Context{table: table}
	c.pens = objtable.NewTyped[*Pen](table, TypePen, penFuncs{c})
	c.brushes = objtable.NewTyped[*Brush](table, TypeBrush, brushFuncs{c})
	c.fonts = objtable.NewTyped[*Font](table, TypeFont, fontFuncs{c})
	c.bitmaps = objtable.NewTyped[*Bitmap](table, TypeBitmap, bitmapFuncs{c})
	c.palettes = objtable.NewTyped[*Palette](table, TypePalette, paletteFuncs{c})
	c.dcs = objtable.NewTyped[*DC](table, TypeDC, dcFuncs{c})

	if err := c.initStock(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Context) initStock() error {
	white, black := RGB(0xff, 0xff, 0xff), RGB(0, 0, 0)

	create := []func() (objtable.Handle, error){
		WhiteBrush:     func() (objtable.Handle, error) { return c.brushes.Alloc(&Brush{Style: BrushSolid, Color: white}) },
		BlackBrush:     func() (objtable.Handle, error) { return c.brushes.Alloc(&Brush{Style: BrushSolid, Color: black}) },
		NullBrush:      func() (objtable.Handle, error) { return c.brushes.Alloc(&Brush{Style: BrushNull}) },
		WhitePen:       func() (objtable.Handle, error) { return c.pens.Alloc(&Pen{Style: PenSolid, Width: 1, Color: white}) },
		BlackPen:       func() (objtable.Handle, error) { return c.pens.Alloc(&Pen{Style: PenSolid, Width: 1, Color: black}) },
		NullPen:        func() (objtable.Handle, error) { return c.pens.Alloc(&Pen{Style: PenNull}) },
		SystemFont:     func() (objtable.Handle, error) { return c.fonts.Alloc(&Font{Face: "System", Height: 16}) },
		DefaultPalette: func() (objtable.Handle, error) { return c.palettes.Alloc(&Palette{Entries: defaultPaletteEntries()}) },
		DefaultBitmap:  func() (objtable.Handle, error) { return c.bitmaps.Alloc(newMonoBitmap()) },
	}

	for i, fn := range create {
		h, err := fn()
		if err != nil {
			return errors.Wrap(errors.PhaseObject, errors.KindExhausted, err, "create "+StockObject(i).String())
		}
		c.table.SetSystem(h, true)
		c.stock[i] = h
	}
	return nil
}

// newMonoBitmap returns the 1x1 monochrome bitmap new DCs start with.
func newMonoBitmap() *Bitmap {
	b := &Bitmap{Width: 1, Height: 1, BitsPerPixel: 1}
	b.Bits = make([]byte, b.Stride())
	return b
}

// defaultPaletteEntries returns the 20 reserved system colors.
func defaultPaletteEntries() []Color {
	return []Color{
		RGB(0x00, 0x00, 0x00), RGB(0x80, 0x00, 0x00), RGB(0x00, 0x80, 0x00), RGB(0x80, 0x80, 0x00),
		RGB(0x00, 0x00, 0x80), RGB(0x80, 0x00, 0x80), RGB(0x00, 0x80, 0x80), RGB(0xc0, 0xc0, 0xc0),
		RGB(0xc0, 0xdc, 0xc0), RGB(0xa6, 0xca, 0xf0), RGB(0xff, 0xfb, 0xf0), RGB(0xa0, 0xa0, 0xa4),
		RGB(0x80, 0x80, 0x80), RGB(0xff, 0x00, 0x00), RGB(0x00, 0xff, 0x00), RGB(0xff, 0xff, 0x00),
		RGB(0x00, 0x00, 0xff), RGB(0xff, 0x00, 0xff), RGB(0x00, 0xff, 0xff), RGB(0xff, 0xff, 0xff),
	}
}

// Table returns the underlying object table.
func (c *Context) Table() *objtable.Table {
	return c.table
}

// Stock returns the handle of a stock object, or 0 for an unknown one.
func (c *Context) Stock(s StockObject) objtable.Handle {
	if s < 0 || s >= stockCount {
		return 0
	}
	return c.stock[s]
}

// Destroyed returns how many objects of typ have been destroyed through their operation table.
func (c *Context) Destroyed(typ objtable.Type) int64 {
	if int(typ) >= typeCount {
		return 0
	}
	return c.destroyed[typ].Load()
}

func (c *Context) countDestroyed(typ objtable.Type) {
	c.destroyed[typ].Add(1)
}

// CreatePen creates a pen.
func (c *Context) CreatePen(style PenStyle, width int, color Color) (objtable.Handle, error) {
	if width < 0 {
		return 0, errors.New(errors.PhaseObject, errors.KindInvalidInput).
			TypeName("pen").Value(width).Detail("negative width").Build()
	}
	if style == PenNull {
		return c.Stock(NullPen), nil
	}
	return c.pens.Alloc(&Pen{Style: style, Width: width, Color: color})
}

// CreateSolidBrush creates a solid brush.
func (c *Context) CreateSolidBrush(color Color) (objtable.Handle, error) {
	return c.brushes.Alloc(&Brush{Style: BrushSolid, Color: color})
}

// CreateFont creates a font.
func (c *Context) CreateFont(face string, height int) (objtable.Handle, error) {
	if face == "" {
		return 0, errors.InvalidInput(errors.PhaseObject, "font face is empty")
	}
	return c.fonts.Alloc(&Font{Face: face, Height: height})
}

// CreateBitmap creates a zero-filled bitmap.
func (c *Context) CreateBitmap(width, height, bpp int) (objtable.Handle, error) {
	if width <= 0 || height <= 0 {
		return 0, errors.New(errors.PhaseObject, errors.KindInvalidInput).
			TypeName("bitmap").Detail("invalid size %dx%d", width, height).Build()
	}
	switch bpp {
	case 1, 4, 8, 16, 24, 32:
	default:
		return 0, errors.New(errors.PhaseObject, errors.KindUnsupported).
			TypeName("bitmap").Value(bpp).Detail("%d bits per pixel", bpp).Build()
	}

	b := &Bitmap{Width: width, Height: height, BitsPerPixel: bpp}
	b.Bits = make([]byte, b.Stride()*height)
	return c.bitmaps.Alloc(b)
}

// CreatePalette creates a logical palette of up to 256 entries.
func (c *Context) CreatePalette(entries []Color) (objtable.Handle, error) {
	if len(entries) == 0 || len(entries) > 256 {
		return 0, errors.New(errors.PhaseObject, errors.KindInvalidInput).
			TypeName("palette").Value(len(entries)).Detail("palette needs 1 to 256 entries").Build()
	}
	p := &Palette{Entries: make([]Color, len(entries))}
	copy(p.Entries, entries)
	return c.palettes.Alloc(p)
}

// DeleteObject requests deletion of any object. Selected objects are deleted
// once deselected, stock objects are never deleted.
func (c *Context) DeleteObject(h objtable.Handle) bool {
	return c.table.Delete(h)
}

// GetObjectType returns the type of h, or 0 if h is invalid.
func (c *Context) GetObjectType(h objtable.Handle) objtable.Type {
	return c.table.TypeOf(h)
}

// GetObject returns the type-specific Info value of h (PenInfo, BrushInfo, ...).
func (c *Context) GetObject(h objtable.Handle) (any, bool) {
	return c.table.Info(h)
}

// UnrealizeObject resets the realized state of a brush or palette.
func (c *Context) UnrealizeObject(h objtable.Handle) bool {
	return c.table.Unrealize(h)
}

// MakeSystem marks or unmarks h as a shared object that ignores DeleteObject.
func (c *Context) MakeSystem(h objtable.Handle, set bool) bool {
	return c.table.SetSystem(h, set)
}

// CreateClientObj allocates a header-only object of the given type.
func (c *Context) CreateClientObj(typ objtable.Type) (objtable.Handle, error) {
	return c.table.Alloc(&ClientObject{}, typ, nil)
}

// DeleteClientObj releases an object created by CreateClientObj.
// Objects with an operation table (pens, DCs, ...) are refused; use
// DeleteObject or DeleteDC for those.
func (c *Context) DeleteClientObj(h objtable.Handle) bool {
	obj, ok := c.table.FreeUnmanaged(h)
	if !ok {
		return false
	}
	if _, ok := obj.(*ClientObject); !ok {
		Logger().Warn("released non-client object as client object",
			zap.Stringer("handle", h),
			zap.String("go_type", fmt.Sprintf("%T", obj)))
	}
	return true
}
