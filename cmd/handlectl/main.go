package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/goforj/godump"

	"github.com/wippyai/handle-table/gdi"
	"github.com/wippyai/handle-table/objtable"
	"github.com/wippyai/handle-table/snapshot"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to YAML config file")
		capacity    = flag.Int("capacity", 0, "Table capacity (overrides config)")
		first       = flag.Int("first", -1, "First handle index (overrides config)")
		verbose     = flag.Bool("v", false, "Debug logging, including table dumps")
		format      = flag.String("format", "", "Snapshot format: text, yaml, cbor (overrides config)")
		out         = flag.String("out", "", "Snapshot output file (default stdout)")
		raw         = flag.Bool("raw", false, "Dump raw table stats and slots")
		stress      = flag.Int("stress", 0, "Run N create/select/delete cycles and check for leaks")
		workers     = flag.Int("workers", 4, "Worker goroutines for -stress")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *capacity > 0 {
		cfg.Table.Capacity = *capacity
	}
	if *first >= 0 {
		cfg.Table.FirstHandle = *first
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *format != "" {
		cfg.Snapshot.Format = *format
	}
	if *out != "" {
		cfg.Snapshot.Output = *out
	}
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, err := cfg.logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	objtable.SetLogger(log.Named("objtable"))
	gdi.SetLogger(log.Named("gdi"))

	if *interactive {
		if err := runInteractive(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, *stress, *workers, *raw); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config, stressCycles, workers int, raw bool) error {
	gctx, err := gdi.NewContext(cfg.Table)
	if err != nil {
		return fmt.Errorf("create context: %w", err)
	}

	if stressCycles > 0 {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := runStress(ctx, os.Stdout, gctx, stressCycles, workers); err != nil {
			return fmt.Errorf("stress: %w", err)
		}
	} else {
		if err := runExhaustion(os.Stdout); err != nil {
			return fmt.Errorf("exhaustion scenario: %w", err)
		}
		if err := runSelection(os.Stdout, gctx); err != nil {
			return fmt.Errorf("selection scenario: %w", err)
		}
	}

	gctx.Table().Dump()

	if raw {
		godump.Dump(gctx.Table().Stats(), gctx.Table().Snapshot())
		return nil
	}
	return writeSnapshot(cfg.Snapshot, gctx.Table())
}

func writeSnapshot(sc SnapshotConfig, table *objtable.Table) error {
	format, err := snapshot.ParseFormat(sc.Format)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if sc.Output != "" {
		f, err := os.Create(sc.Output)
		if err != nil {
			return fmt.Errorf("create snapshot file: %w", err)
		}
		defer f.Close()
		w = f
	} else if format == snapshot.FormatCBOR {
		return fmt.Errorf("cbor snapshot needs -out")
	}

	fmt.Fprintln(os.Stdout)
	return snapshot.Write(w, format, table.Snapshot())
}
