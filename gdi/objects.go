package gdi

import (
	"sync/atomic"

	"github.com/wippyai/handle-table/objtable"
)

// Object type tags.
const (
	TypePen objtable.Type = iota + 1
	TypeBrush
	TypeFont
	TypeBitmap
	TypePalette
	TypeDC
	TypeClient

	typeCount = int(TypeClient) + 1
)

func init() {
	objtable.RegisterTypeName(TypePen, "pen")
	objtable.RegisterTypeName(TypeBrush, "brush")
	objtable.RegisterTypeName(TypeFont, "font")
	objtable.RegisterTypeName(TypeBitmap, "bitmap")
	objtable.RegisterTypeName(TypePalette, "palette")
	objtable.RegisterTypeName(TypeDC, "dc")
	objtable.RegisterTypeName(TypeClient, "client")
}

// Color is a packed 0x00bbggrr value.
type Color uint32

// RGB packs a color.
func RGB(r, g, b uint8) Color {
	return Color(uint32(r) | uint32(g)<<8 | uint32(b)<<16)
}

// PenStyle selects how a pen draws.
type PenStyle uint8

const (
	PenSolid PenStyle = iota
	PenDash
	PenDot
	PenNull
)

// BrushStyle selects how a brush fills.
type BrushStyle uint8

const (
	BrushSolid BrushStyle = iota
	BrushNull
)

type Pen struct {
	objtable.Header
	Color Color
	Width int
	Style PenStyle
}

type Brush struct {
	objtable.Header
	realized atomic.Bool
	Color    Color
	Style    BrushStyle
}

type Font struct {
	objtable.Header
	Face   string
	Height int
}

type Bitmap struct {
	objtable.Header
	Bits         []byte
	Width        int
	Height       int
	BitsPerPixel int
}

// Stride returns the byte length of one scanline, padded to 32 bits.
func (b *Bitmap) Stride() int {
	return ((b.Width*b.BitsPerPixel + 31) / 32) * 4
}

type Palette struct {
	objtable.Header
	Entries  []Color
	realized atomic.Bool
}

// ClientObject carries nothing but its header. Its lifetime is managed by
// the caller through CreateClientObj and DeleteClientObj.
type ClientObject struct {
	objtable.Header
}

// PenInfo describes a pen.
type PenInfo struct {
	Color Color
	Width int
	Style PenStyle
}

// BrushInfo describes a brush.
type BrushInfo struct {
	Color    Color
	Style    BrushStyle
	Realized bool
}

// FontInfo describes a font.
type FontInfo struct {
	Face   string
	Height int
}

// BitmapInfo describes a bitmap.
type BitmapInfo struct {
	Width        int
	Height       int
	BitsPerPixel int
	Stride       int
}

// PaletteInfo describes a palette.
type PaletteInfo struct {
	Entries  []Color
	Realized bool
}

type penFuncs struct{ ctx *Context }

func (f penFuncs) Destroy(objtable.Handle, objtable.Object) bool {
	f.ctx.countDestroyed(TypePen)
	return true
}

func (penFuncs) GetInfo(_ objtable.Handle, obj objtable.Object) any {
	p := obj.(*Pen)
	return PenInfo{Color: p.Color, Width: p.Width, Style: p.Style}
}

type brushFuncs struct{ ctx *Context }

func (f brushFuncs) Destroy(objtable.Handle, objtable.Object) bool {
	f.ctx.countDestroyed(TypeBrush)
	return true
}

func (brushFuncs) GetInfo(_ objtable.Handle, obj objtable.Object) any {
	b := obj.(*Brush)
	return BrushInfo{Color: b.Color, Style: b.Style, Realized: b.realized.Load()}
}

func (brushFuncs) Unrealize(_ objtable.Handle, obj objtable.Object) bool {
	obj.(*Brush).realized.Store(false)
	return true
}

type fontFuncs struct{ ctx *Context }

func (f fontFuncs) Destroy(objtable.Handle, objtable.Object) bool {
	f.ctx.countDestroyed(TypeFont)
	return true
}

func (fontFuncs) GetInfo(_ objtable.Handle, obj objtable.Object) any {
	fn := obj.(*Font)
	return FontInfo{Face: fn.Face, Height: fn.Height}
}

type bitmapFuncs struct{ ctx *Context }

func (f bitmapFuncs) Destroy(_ objtable.Handle, obj objtable.Object) bool {
	obj.(*Bitmap).Bits = nil
	f.ctx.countDestroyed(TypeBitmap)
	return true
}

func (bitmapFuncs) GetInfo(_ objtable.Handle, obj objtable.Object) any {
	b := obj.(*Bitmap)
	return BitmapInfo{Width: b.Width, Height: b.Height, BitsPerPixel: b.BitsPerPixel, Stride: b.Stride()}
}

type paletteFuncs struct{ ctx *Context }

func (f paletteFuncs) Destroy(objtable.Handle, objtable.Object) bool {
	f.ctx.countDestroyed(TypePalette)
	return true
}

func (paletteFuncs) GetInfo(_ objtable.Handle, obj objtable.Object) any {
	p := obj.(*Palette)
	entries := make([]Color, len(p.Entries))
	copy(entries, p.Entries)
	return PaletteInfo{Entries: entries, Realized: p.realized.Load()}
}

func (paletteFuncs) Unrealize(_ objtable.Handle, obj objtable.Object) bool {
	obj.(*Palette).realized.Store(false)
	return true
}
