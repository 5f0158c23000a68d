package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/delaneyj/framemvu/command"
	"github.com/delaneyj/framemvu/internal/arena"
	"github.com/delaneyj/framemvu/mvu"
	"github.com/delaneyj/framemvu/queue"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

const (
	itersKey   = "iters"
	profileKey = "profile"
)

var (
	ww    = []int{1, 10, 100, 1_000}
	hh    = []int{1, 10, 100, 1_000}
	modes = []queue.Mode{queue.Immediate, queue.FrameBounded}
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Measure AdvanceFrame latency",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  itersKey,
				Usage: "Frames measured per benchmark",
				Value: 1_000,
			},
			&cli.StringFlag{
				Name:  profileKey,
				Usage: "Write a CPU profile here",
				Value: "default.pgo",
			},
		},
		Action: benchmark,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func benchmark(ctx context.Context, cmd *cli.Command) error {
	iters := int(cmd.Int(itersKey))

	if path := cmd.String(profileKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	log.Printf("warming up")
	for _, mode := range modes {
		if err := benchmarkArena(ctx, mode, 10, false); err != nil {
			return err
		}
	}

	for _, mode := range modes {
		if err := benchmarkArena(ctx, mode, iters, true); err != nil {
			return err
		}
		if err := benchmarkCascade(ctx, mode, iters, true); err != nil {
			return err
		}
	}
	return nil
}

func newTable(title string) table.Writer {
	tbl := table.NewWriter()
	tbl.SetTitle(title)
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})
	return tbl
}

func appendMetrics(tbl table.Writer, name string, tach *tachymeter.Tachymeter) {
	calc := tach.Calc()
	tbl.AppendRow(table.Row{
		name,
		calc.Time.Avg,
		calc.Time.Min,
		calc.Time.P75,
		calc.Time.P99,
		calc.Time.Max,
	})
}

// benchmarkArena measures frames of the particle arena with w emitter
// subscriptions alive and h particles in flight.
func benchmarkArena(ctx context.Context, mode queue.Mode, iters int, shouldRender bool) error {
	tbl := newTable("Arena frames, " + mode.String())

	for _, w := range ww {
		for _, h := range hh {
			cfg := arena.DefaultConfig()
			cfg.SpawnEvery = time.Hour
			cfg.Lifetime = 1e9
			cfg.MaxParticles = h
			cfg.Emitters = make([]string, w)
			for i := range cfg.Emitters {
				cfg.Emitters[i] = strconv.Itoa(i)
			}

			g := arena.New(cfg, arena.Env{})
			p, err := mvu.New(g.ProgramConfig(mode, log.New(io.Discard, "", 0)))
			if err != nil {
				return err
			}
			if err := p.Start(ctx); err != nil {
				return err
			}
			p.Dispatch(arena.Spawn{Count: h})

			tach := tachymeter.New(&tachymeter.Config{Size: iters})
			for i := 0; i < iters; i++ {
				start := time.Now()
				if err := p.AdvanceFrame(1.0 / 60); err != nil {
					return err
				}
				tach.AddTime(time.Since(start))
			}
			p.Shutdown()

			appendMetrics(tbl, fmt.Sprintf("subs %d, particles %d", w, h), tach)
		}
	}

	if shouldRender {
		tbl.Render()
	}
	return nil
}

// benchmarkCascade measures frames where each message triggers a follow-up
// until h messages have been handled. Frame-bounded mode spreads the chain
// over h frames, so its rows measure one link per frame.
func benchmarkCascade(ctx context.Context, mode queue.Mode, iters int, shouldRender bool) error {
	tbl := newTable("Cascades, " + mode.String())

	for _, h := range hh {
		p, err := mvu.New(mvu.Config[int, int]{
			Init: func(mvu.Context[int]) (int, command.Cmd[int]) {
				return 0, command.None[int]()
			},
			Update: func(msg, model int) (int, command.Cmd[int]) {
				if msg > 1 {
					return model + 1, command.OfMsg(msg - 1)
				}
				return model + 1, command.None[int]()
			},
			Mode:          mode,
			QueueCapacity: 4,
			Logger:        log.New(io.Discard, "", 0),
		})
		if err != nil {
			return err
		}
		if err := p.Start(ctx); err != nil {
			return err
		}

		tach := tachymeter.New(&tachymeter.Config{Size: iters})
		for i := 0; i < iters; i++ {
			if pending, _ := p.Pending(); pending == 0 {
				p.Dispatch(h)
			}
			start := time.Now()
			if err := p.AdvanceFrame(1.0 / 60); err != nil {
				return err
			}
			tach.AddTime(time.Since(start))
		}
		p.Shutdown()

		appendMetrics(tbl, fmt.Sprintf("chain %d", h), tach)
	}

	if shouldRender {
		tbl.Render()
	}
	return nil
}
