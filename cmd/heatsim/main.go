// Command heatsim runs the distributed Gauss–Seidel heat-diffusion
// simulation: it reads the CLI flags and heat-source configuration file,
// bootstraps one worker per rank of the configured process layout, runs
// the sweep loop to completion, and reports throughput and (optionally)
// a PPM snapshot of the final field.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/heatsim/heatsim/config"
	"github.com/heatsim/heatsim/image"
	"github.com/heatsim/heatsim/report"
	"github.com/heatsim/heatsim/transport"
	"github.com/heatsim/heatsim/worker"
)

func main() {
	if err := run(os.Args[0], os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, config.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "heatsim: %v\n", err)
		os.Exit(1)
	}
}

func run(prog string, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.ParseFlags(prog, args)
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			fmt.Fprint(stdout, config.Usage(prog))
			return err
		}
		fmt.Fprint(stderr, config.Usage(prog))
		return err
	}

	pl, sources, err := config.ReadSourcesFile(cfg.SourcesFile)
	if err != nil {
		return err
	}
	cfg.Layout = pl
	cfg.Rows, cfg.Cols = config.Refine(cfg.Rows, cfg.Cols, pl)

	if err := config.CheckRankCount(cfg.Layout); err != nil {
		return err
	}

	config.Echo(stdout, cfg, sources)

	workers := make([]*worker.Worker[float64], cfg.Layout.Size())
	for rank := range workers {
		w, err := worker.Bootstrap[float64](rank, cfg.Layout, cfg.Rows, cfg.Cols, sources)
		if err != nil {
			return err
		}
		workers[rank] = w
	}

	fabric := transport.NewFabric()
	for _, w := range workers {
		w.Wire(fabric)
	}

	start := time.Now()
	if _, err := worker.RunAll(workers, cfg.Timesteps); err != nil {
		return err
	}
	elapsed := time.Since(start)

	report.Write(stdout, report.Line{
		Rows:      cfg.Rows,
		Cols:      cfg.Cols,
		Timesteps: cfg.Timesteps,
		Layout:    cfg.Layout,
		Elapsed:   elapsed,
	})

	if cfg.GenerateImage {
		global := worker.Gather(workers)
		f, err := os.Create(cfg.ImageFile)
		if err != nil {
			return fmt.Errorf("%w: cannot open image file %s: %v", config.ErrIO, cfg.ImageFile, err)
		}
		defer f.Close()
		if err := image.WritePPM(f, global); err != nil {
			return fmt.Errorf("%w: writing image file %s: %v", config.ErrIO, cfg.ImageFile, err)
		}
	}

	return nil
}
