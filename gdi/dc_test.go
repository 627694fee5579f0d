package gdi

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/handle-table/objtable"
)

func TestCreateDC_DefaultSelections(t *testing.T) {
	ctx := newContext(t)
	dc, err := ctx.CreateDC()
	require.NoError(t, err)

	info, ok := ctx.GetObject(dc)
	require.True(t, ok)
	assert.Equal(t, DCInfo{
		Pen:     ctx.Stock(BlackPen),
		Brush:   ctx.Stock(WhiteBrush),
		Font:    ctx.Stock(SystemFont),
		Bitmap:  ctx.Stock(DefaultBitmap),
		Palette: ctx.Stock(DefaultPalette),
	}, info)

	assert.EqualValues(t, 1, ctx.Table().RefCount(ctx.Stock(BlackPen)))
	assert.Equal(t, ctx.Stock(SystemFont), ctx.GetCurrentObject(dc, TypeFont))
	assert.Zero(t, ctx.GetCurrentObject(dc, TypeDC))
}

func TestSelectObject_ReturnsPrevious(t *testing.T) {
	ctx := newContext(t)
	dc, err := ctx.CreateDC()
	require.NoError(t, err)

	pen, err := ctx.CreatePen(PenSolid, 2, RGB(255, 0, 0))
	require.NoError(t, err)

	prev, ok := ctx.SelectObject(dc, pen)
	require.True(t, ok)
	assert.Equal(t, ctx.Stock(BlackPen), prev)
	assert.Equal(t, pen, ctx.GetCurrentObject(dc, TypePen))
	assert.EqualValues(t, 1, ctx.Table().RefCount(pen))
	assert.Zero(t, ctx.Table().RefCount(ctx.Stock(BlackPen)))

	// reselecting the same object keeps exactly one reference
	prev, ok = ctx.SelectObject(dc, pen)
	require.True(t, ok)
	assert.Equal(t, pen, prev)
	assert.EqualValues(t, 1, ctx.Table().RefCount(pen))
}

func TestSelectObject_Invalid(t *testing.T) {
	ctx := newContext(t)
	dc, err := ctx.CreateDC()
	require.NoError(t, err)
	other, err := ctx.CreateDC()
	require.NoError(t, err)
	pen, err := ctx.CreatePen(PenSolid, 1, 0)
	require.NoError(t, err)

	logs := observeLogs(t, zapcore.WarnLevel)

	_, ok := ctx.SelectObject(dc, other)
	assert.False(t, ok, "a DC is not selectable")
	assert.Equal(t, 1, logs.FilterMessage("object type cannot be selected").Len())

	_, ok = ctx.SelectObject(dc, 0)
	assert.False(t, ok)

	_, ok = ctx.SelectObject(pen, pen)
	assert.False(t, ok, "target is not a DC")
	assert.Zero(t, ctx.Table().RefCount(pen), "failed select must not leak a reference")
}

func TestSelectObject_WildcardHandleStoresFullHandle(t *testing.T) {
	ctx := newContext(t)
	dc, err := ctx.CreateDC()
	require.NoError(t, err)
	font, err := ctx.CreateFont("Arial", 14)
	require.NoError(t, err)

	_, ok := ctx.SelectObject(dc, font&0xffff)
	require.True(t, ok)
	assert.Equal(t, font, ctx.GetCurrentObject(dc, TypeFont))
}

func TestDeleteObject_DeferredUntilDeselected(t *testing.T) {
	ctx := newContext(t)
	dc, err := ctx.CreateDC()
	require.NoError(t, err)
	pen, err := ctx.CreatePen(PenSolid, 2, RGB(255, 0, 0))
	require.NoError(t, err)

	_, ok := ctx.SelectObject(dc, pen)
	require.True(t, ok)

	require.True(t, ctx.DeleteObject(pen))
	assert.Equal(t, TypePen, ctx.GetObjectType(pen), "selected pen must survive delete")
	assert.True(t, ctx.Table().IsDeleted(pen))
	assert.Zero(t, ctx.Destroyed(TypePen))

	prev, ok := ctx.SelectObject(dc, ctx.Stock(BlackPen))
	require.True(t, ok)
	assert.Equal(t, pen, prev)
	assert.EqualValues(t, 1, ctx.Destroyed(TypePen))
	assert.Zero(t, ctx.GetObjectType(pen))
}

func TestDeleteDC_ReleasesSelections(t *testing.T) {
	ctx := newContext(t)
	baseline := ctx.Table().Len()

	dc, err := ctx.CreateDC()
	require.NoError(t, err)
	brush, err := ctx.CreateSolidBrush(RGB(0, 255, 0))
	require.NoError(t, err)
	pal, err := ctx.CreatePalette([]Color{RGB(1, 2, 3)})
	require.NoError(t, err)

	_, ok := ctx.SelectObject(dc, brush)
	require.True(t, ok)
	_, ok = ctx.SelectObject(dc, pal)
	require.True(t, ok)
	require.True(t, ctx.DeleteObject(brush))
	require.True(t, ctx.DeleteObject(pal))

	require.True(t, ctx.DeleteDC(dc))
	assert.EqualValues(t, 1, ctx.Destroyed(TypeDC))
	assert.EqualValues(t, 1, ctx.Destroyed(TypeBrush))
	assert.EqualValues(t, 1, ctx.Destroyed(TypePalette))
	assert.Equal(t, baseline, ctx.Table().Len())

	for s := StockObject(0); s < stockCount; s++ {
		assert.Zero(t, ctx.Table().RefCount(ctx.Stock(s)), s.String())
	}
}

func TestDeleteDC_RejectsOtherTypes(t *testing.T) {
	ctx := newContext(t)
	pen, err := ctx.CreatePen(PenSolid, 1, 0)
	require.NoError(t, err)
	assert.False(t, ctx.DeleteDC(pen))
	assert.Equal(t, TypePen, ctx.GetObjectType(pen))
}

func TestSelectObject_SharedAcrossDCs(t *testing.T) {
	ctx := newContext(t)
	font, err := ctx.CreateFont("Courier", 10)
	require.NoError(t, err)

	var dcs []objtable.Handle
	for i := 0; i < 3; i++ {
		dc, err := ctx.CreateDC()
		require.NoError(t, err)
		_, ok := ctx.SelectObject(dc, font)
		require.True(t, ok)
		dcs = append(dcs, dc)
	}
	assert.EqualValues(t, 3, ctx.Table().RefCount(font))

	require.True(t, ctx.DeleteObject(font))
	for i, dc := range dcs {
		assert.Zero(t, ctx.Destroyed(TypeFont), "dc %d", i)
		require.True(t, ctx.DeleteDC(dc))
	}
	assert.EqualValues(t, 1, ctx.Destroyed(TypeFont))
}

func TestContext_Concurrent(t *testing.T) {
	ctx := newContext(t)
	baseline := ctx.Table().Len()

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			dc, err := ctx.CreateDC()
			if err != nil {
				return err
			}
			for i := 0; i < 200; i++ {
				pen, err := ctx.CreatePen(PenSolid, i%5, Color(i))
				if err != nil {
					return err
				}
				brush, err := ctx.CreateSolidBrush(Color(i))
				if err != nil {
					return err
				}
				ctx.SelectObject(dc, pen)
				ctx.SelectObject(dc, brush)
				ctx.DeleteObject(pen)
				ctx.DeleteObject(brush)
			}
			ctx.DeleteDC(dc)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, baseline, ctx.Table().Len())
	assert.EqualValues(t, 8*200, ctx.Destroyed(TypePen))
	assert.EqualValues(t, 8*200, ctx.Destroyed(TypeBrush))
	assert.EqualValues(t, 8, ctx.Destroyed(TypeDC))
}

func TestDCInfo_ConcurrentWithSelect(t *testing.T) {
	ctx := newContext(t)
	dc, err := ctx.CreateDC()
	require.NoError(t, err)
	pen, err := ctx.CreatePen(PenDot, 1, RGB(1, 2, 3))
	require.NoError(t, err)
	black := ctx.Stock(BlackPen)

	const rounds = 2000
	var g errgroup.Group
	g.Go(func() error {
		for i := 0; i < rounds; i++ {
			ctx.SelectObject(dc, pen)
			ctx.SelectObject(dc, black)
		}
		return nil
	})
	g.Go(func() error {
		for i := 0; i < rounds; i++ {
			info, ok := ctx.GetObject(dc)
			if !ok {
				return fmt.Errorf("round %d: dc info unavailable", i)
			}
			if got := info.(DCInfo).Pen; got != pen && got != black {
				return fmt.Errorf("round %d: unexpected pen %v", i, got)
			}
			if got := ctx.GetCurrentObject(dc, TypePen); got != pen && got != black {
				return fmt.Errorf("round %d: unexpected current pen %v", i, got)
			}
		}
		return nil
	})
	require.NoError(t, g.Wait())

	assert.Equal(t, black, ctx.GetCurrentObject(dc, TypePen))
	assert.Zero(t, ctx.Table().RefCount(pen))
}

func TestDCInfo_AfterDelete(t *testing.T) {
	ctx := newContext(t)
	dc, err := ctx.CreateDC()
	require.NoError(t, err)
	require.True(t, ctx.DeleteDC(dc))

	_, ok := ctx.GetObject(dc)
	assert.False(t, ok)
}
