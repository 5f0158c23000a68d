package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/delaneyj/framemvu/command"
	"github.com/delaneyj/framemvu/mvu"
	"github.com/delaneyj/framemvu/queue"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

const repeatsKey = "repeats"

func main() {
	cmd := &cli.Command{
		Name:  "cascade",
		Usage: "Compare immediate and frame-bounded dispatch on message cascades",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  repeatsKey,
				Usage: "Runs per config, the fastest is reported",
				Value: 5,
			},
		},
		Action: compare,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func compare(ctx context.Context, cmd *cli.Command) error {
	log.Print("Starting cascade comparison, please wait...")
	defer log.Print("Finished cascade comparison")

	cfgs := []cascadeConfig{
		{name: "single chain", chains: 1, depth: 1_000, fanout: 1},
		{name: "many short chains", chains: 1_000, depth: 3, fanout: 1},
		{name: "binary tree", chains: 1, depth: 14, fanout: 2},
		{name: "wide fanout", chains: 10, depth: 3, fanout: 20},
		{name: "deep chains", chains: 10, depth: 10_000, fanout: 1},
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"mode", "test", "chains", "depth", "fanout",
		"messages", "frames", "peak/frame", "time", "msgs/ms",
	})

	repeats := int(cmd.Int(repeatsKey))
	for _, cfg := range cfgs {
		for _, mode := range []queue.Mode{queue.Immediate, queue.FrameBounded} {
			log.Printf("Running '%s' config, %s", cfg.name, mode)

			// run once to warm up
			if _, err := runCascade(ctx, mode, cfg); err != nil {
				return err
			}

			best := cascadeResult{duration: time.Hour}
			for i := 0; i < repeats; i++ {
				res, err := runCascade(ctx, mode, cfg)
				if err != nil {
					return err
				}
				if res.duration < best.duration {
					best = res
				}
			}
			if best.messages != cfg.expected() {
				return fmt.Errorf("%s %s: handled %d messages, want %d", cfg.name, mode, best.messages, cfg.expected())
			}

			rate := float64(best.messages) / (float64(best.duration) / float64(time.Millisecond))
			table.Append([]string{
				mode.String(),
				cfg.name,
				humanize.Comma(int64(cfg.chains)),
				humanize.Comma(int64(cfg.depth)),
				fmt.Sprint(cfg.fanout),
				humanize.Comma(int64(best.messages)),
				humanize.Comma(int64(best.frames)),
				humanize.Comma(int64(best.peak)),
				fmt.Sprint(best.duration),
				humanize.Comma(int64(rate)),
			})
		}
	}
	table.Render()
	return nil
}

type cascadeConfig struct {
	name   string
	chains int // messages dispatched before the first frame
	depth  int // links in each chain, the root included
	fanout int // follow-ups each message triggers
}

// expected is the number of messages all chains handle together.
func (c cascadeConfig) expected() uint64 {
	var perChain, level uint64 = 0, 1
	for i := 0; i < c.depth; i++ {
		perChain += level
		level *= uint64(c.fanout)
	}
	return perChain * uint64(c.chains)
}

type cascadeResult struct {
	messages uint64
	frames   uint64
	peak     int
	duration time.Duration
}

// runCascade advances frames until no message is left. Immediate mode settles
// in one frame, frame-bounded mode takes one frame per link.
func runCascade(ctx context.Context, mode queue.Mode, cfg cascadeConfig) (cascadeResult, error) {
	done := command.None[int]()
	p, err := mvu.New(mvu.Config[uint64, int]{
		Init: func(mvu.Context[int]) (uint64, command.Cmd[int]) {
			return 0, command.None[int]()
		},
		Update: func(remaining int, handled uint64) (uint64, command.Cmd[int]) {
			if remaining <= 1 {
				return handled + 1, done
			}
			cmds := make([]command.Cmd[int], cfg.fanout)
			for i := range cmds {
				cmds[i] = command.OfMsg(remaining - 1)
			}
			return handled + 1, command.Batch(cmds...)
		},
		Mode:   mode,
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		return cascadeResult{}, err
	}
	if err := p.Start(ctx); err != nil {
		return cascadeResult{}, err
	}
	defer p.Shutdown()

	for i := 0; i < cfg.chains; i++ {
		p.Dispatch(cfg.depth)
	}

	res := cascadeResult{}
	start := time.Now()
	for {
		if pending, _ := p.Pending(); pending == 0 {
			break
		}
		if err := p.AdvanceFrame(1.0 / 60); err != nil {
			return cascadeResult{}, err
		}
		res.peak = max(res.peak, p.LastFrame().Messages)
	}
	res.duration = time.Since(start)
	res.messages = p.Model()
	res.frames = p.Frame()
	return res, nil
}
