package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/wippyai/handle-table/gdi"
	"github.com/wippyai/handle-table/objtable"
	"github.com/wippyai/handle-table/snapshot"
)

// runStress spreads cycles create/select/delete rounds across workers and
// reports every object left behind.
func runStress(ctx context.Context, w io.Writer, gctx *gdi.Context, cycles, workers int) error {
	if workers < 1 {
		workers = 1
	}
	before := snapshot.FromSlots(gctx.Table().Snapshot())

	var bar *progressbar.ProgressBar
	if term.IsTerminal(int(os.Stderr.Fd())) {
		bar = progressbar.Default(int64(cycles), "stress")
	}

	g, ctx := errgroup.WithContext(ctx)
	for wk := 0; wk < workers; wk++ {
		n := cycles / workers
		if wk < cycles%workers {
			n++
		}
		g.Go(func() error {
			dc, err := gctx.CreateDC()
			if err != nil {
				return err
			}
			defer gctx.DeleteDC(dc)

			for i := 0; i < n; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := stressCycle(gctx, dc, i); err != nil {
					return fmt.Errorf("worker %d cycle %d: %w", wk, i, err)
				}
				if bar != nil {
					_ = bar.Add(1)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	after := snapshot.FromSlots(gctx.Table().Snapshot())
	stats := gctx.Table().Stats()
	fmt.Fprintf(w, "%d cycles on %d workers: %d live, %d slots used of %d\n",
		cycles, workers, stats.Live, stats.Used, stats.Capacity)

	return snapshot.LeakError(snapshot.Leaks(before, after))
}

func stressCycle(gctx *gdi.Context, dc objtable.Handle, i int) error {
	pen, err := gctx.CreatePen(gdi.PenStyle(i%3), i%8, gdi.Color(i))
	if err != nil {
		return err
	}
	brush, err := gctx.CreateSolidBrush(gdi.Color(i))
	if err != nil {
		return err
	}
	font, err := gctx.CreateFont("Stress", 8+i%12)
	if err != nil {
		return err
	}

	gctx.SelectObject(dc, pen)
	gctx.SelectObject(dc, brush)
	gctx.SelectObject(dc, font)

	gctx.DeleteObject(pen)
	gctx.DeleteObject(brush)
	gctx.DeleteObject(font)

	// deselecting runs the deferred deletes
	gctx.SelectObject(dc, gctx.Stock(gdi.BlackPen))
	gctx.SelectObject(dc, gctx.Stock(gdi.WhiteBrush))
	gctx.SelectObject(dc, gctx.Stock(gdi.SystemFont))
	return nil
}
