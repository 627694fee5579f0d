// Package gdi is a small graphics object layer built on objtable.
//
// A Context owns one object table and creates pens, brushes, fonts, bitmaps,
// palettes and device contexts in it. Selecting an object into a DC takes a
// selection reference on it, so DeleteObject on a selected object only marks
// it; the object is destroyed when the last DC lets go of it:
//
//	ctx, _ := gdi.NewContext(objtable.DefaultOptions())
//	dc, _ := ctx.CreateDC()
//	pen, _ := ctx.CreatePen(gdi.PenSolid, 2, gdi.RGB(255, 0, 0))
//	ctx.SelectObject(dc, pen)
//	ctx.DeleteObject(pen)                       // deferred
//	ctx.SelectObject(dc, ctx.Stock(gdi.BlackPen)) // pen destroyed here
//
// Stock objects are created with every Context and marked as system objects,
// which DeleteObject reports as deleted but keeps alive.
//
// Methods never hold the table lock while calling back into the table, so all
// of them are safe for concurrent use.
package gdi
