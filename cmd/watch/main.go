// Command watch runs the A* search live in the terminal. It loads a
// scenario preset, draws the grid and animates every expansion; the mouse
// toggles walls and single keys drive the run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/inconshreveable/log15"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/astar-playground/pathfind/config"
	"github.com/wricardo/astar-playground/pathfind/engine"
)

// loadEngine builds the engine for scenario id from dir; an empty id
// selects the default scenario.
func loadEngine(dir, id string) (*engine.Engine, *config.Scenario, error) {
	manager, err := config.NewManager(dir)
	if err != nil {
		return nil, nil, err
	}
	scenario := manager.GetDefault()
	if id != "" {
		if scenario, err = manager.LoadConfig(id); err != nil {
			return nil, nil, fmt.Errorf("config '%s': %w", id, err)
		}
	}
	eng, err := config.Build(scenario, engine.WithLogger(log15.New("module", "engine")))
	if err != nil {
		return nil, nil, err
	}
	return eng, scenario, nil
}

func watch(ctx context.Context, cmd *cli.Command) error {
	eng, scenario, err := loadEngine(cmd.String("dir"), cmd.String("config"))
	if err != nil {
		return err
	}
	delay := scenario.StepDelay()
	if cmd.IsSet("delay") {
		delay = cmd.Duration("delay")
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.EnableMouse()

	return newViewer(screen, eng, delay, cmd.Int64("seed")).run(ctx)
}

func main() {
	// the screen owns the terminal; only errors get through
	log15.Root().SetHandler(log15.LvlFilterHandler(log15.LvlError, log15.StreamHandler(os.Stderr, log15.LogfmtFormat())))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "watch",
		Usage: "animate an A* search in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "configs",
				Usage:   "directory containing scenario presets",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "scenario to load (defaults to the default scenario)",
			},
			&cli.DurationFlag{
				Name:  "delay",
				Value: 20 * time.Millisecond,
				Usage: "pause after each expansion (defaults to the scenario's)",
			},
			&cli.Int64Flag{
				Name:  "seed",
				Value: time.Now().UnixNano(),
				Usage: "seed for generated mazes",
			},
		},
		Action: watch,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
