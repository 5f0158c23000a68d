package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/delaneyj/framemvu/cmd/demo/templates"
	"github.com/delaneyj/framemvu/internal/arena"
	"github.com/delaneyj/framemvu/queue"
	"github.com/urfave/cli/v3"
)

const (
	modeKey        = "mode"
	fpsKey         = "fps"
	framesKey      = "frames"
	stepKey        = "step"
	maxStepsKey    = "max-steps"
	maxFrameKey    = "max-frame"
	maxMessagesKey = "max-messages"
	jitterKey      = "jitter"
	realtimeKey    = "realtime"
	seedKey        = "seed"
	emittersKey    = "emitter"
	spawnEveryKey  = "spawn-every"
	scenarioKey    = "scenario"
	saveKey        = "save"
)

func main() {
	cmd := &cli.Command{
		Name:  "demo",
		Usage: "Drive the particle arena from a simulated frame loop",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  modeKey,
				Usage: "Dispatch mode, immediate or frame-bounded",
				Value: queue.Immediate.String(),
			},
			&cli.FloatFlag{
				Name:  fpsKey,
				Usage: "Host frame rate",
				Value: 60,
			},
			&cli.IntFlag{
				Name:  framesKey,
				Usage: "Number of frames to run",
				Value: 600,
			},
			&cli.FloatFlag{
				Name:  stepKey,
				Usage: "Fixed simulation step in seconds",
				Value: 1.0 / 60,
			},
			&cli.IntFlag{
				Name:  maxStepsKey,
				Usage: "Fixed steps allowed per frame before the backlog is dropped",
				Value: 5,
			},
			&cli.FloatFlag{
				Name:  maxFrameKey,
				Usage: "Longest frame time fed to the accumulator, in seconds",
				Value: 0.25,
			},
			&cli.IntFlag{
				Name:  maxMessagesKey,
				Usage: "Messages processed per frame, 0 for no limit",
			},
			&cli.FloatFlag{
				Name:  jitterKey,
				Usage: "Random frame time jitter as a fraction of the frame period",
				Value: 0.1,
			},
			&cli.BoolFlag{
				Name:  realtimeKey,
				Usage: "Pace frames with a wall clock ticker instead of simulating time",
			},
			&cli.IntFlag{
				Name:  seedKey,
				Usage: "Seed for frame jitter and particle spread",
				Value: 1,
			},
			&cli.StringSliceFlag{
				Name:  emittersKey,
				Usage: "Emitters running at startup",
				Value: []string{"north"},
			},
			&cli.DurationFlag{
				Name:  spawnEveryKey,
				Usage: "Interval between emitter bursts",
				Value: 250 * time.Millisecond,
			},
			&cli.StringFlag{
				Name:  scenarioKey,
				Usage: "YAML file of scripted frame events",
			},
			&cli.StringFlag{
				Name:  saveKey,
				Usage: "Write a YAML snapshot here when the arena quits",
			},
		},
		Action: demo,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func demo(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	log.Printf("Demo started !")
	defer func() {
		log.Printf("Demo finished in %v", time.Since(start))
	}()

	mode, err := queue.ParseMode(cmd.String(modeKey))
	if err != nil {
		return err
	}

	hc := hostConfig{
		mode:        mode,
		fps:         cmd.Float(fpsKey),
		frames:      int(cmd.Int(framesKey)),
		step:        cmd.Float(stepKey),
		maxSteps:    int(cmd.Int(maxStepsKey)),
		maxFrame:    cmd.Float(maxFrameKey),
		maxMessages: int(cmd.Int(maxMessagesKey)),
		jitter:      cmd.Float(jitterKey),
		realtime:    cmd.Bool(realtimeKey),
		seed:        uint64(cmd.Int(seedKey)),
	}

	var sc *Scenario
	if path := cmd.String(scenarioKey); path != "" {
		if sc, err = LoadScenario(path); err != nil {
			return err
		}
		if sc.Frames > 0 && !cmd.IsSet(framesKey) {
			hc.frames = sc.Frames
		}
		if sc.FPS > 0 && !cmd.IsSet(fpsKey) {
			hc.fps = sc.FPS
		}
		log.Printf("Scenario %s: %d events, %d stalls", path, len(sc.Events), len(sc.Stalls))
	}

	ac := arena.DefaultConfig()
	ac.Emitters = cmd.StringSlice(emittersKey)
	ac.SpawnEvery = cmd.Duration(spawnEveryKey)
	ac.Seed = hc.seed

	var env arena.Env
	if path := cmd.String(saveKey); path != "" {
		env.Save = snapshotWriter(path)
	}

	summary, err := run(ctx, hc, ac, env, sc, log.Default())
	if err != nil {
		return err
	}
	summary.Took = time.Since(start)

	templates.WriteReport(os.Stdout, summary)
	return nil
}
