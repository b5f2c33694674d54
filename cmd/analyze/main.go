// Command analyze solves every scenario preset headlessly and prints a
// short report per scenario: outcome, path cost and length, expansions and
// solve time. Scenarios are solved in parallel with no step delay.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/astar-playground/pathfind/config"
	"github.com/wricardo/astar-playground/pathfind/engine"
)

// Analysis is the solve report for one scenario.
type Analysis struct {
	ConfigID  string
	Name      string
	Width     int
	Height    int
	Diagonal  bool
	Heuristic engine.Heuristic
	Result    engine.Result
	Render    string
	Err       error
}

// Options tune a batch analysis.
type Options struct {
	Octile   bool
	Render   bool
	Parallel int
}

// analyzeScenario builds and solves one scenario.
func analyzeScenario(ctx context.Context, id string, s *config.Scenario, opts Options) Analysis {
	a := Analysis{ConfigID: id, Name: s.Name, Width: s.Width, Height: s.Height}

	var extra []engine.Option
	model := s.CostModel()
	if opts.Octile {
		model.Heuristic = engine.Octile
		extra = append(extra, engine.WithCostModel(model))
	}
	a.Heuristic = model.Heuristic

	eng, err := config.Build(s, extra...)
	if err != nil {
		a.Err = err
		return a
	}
	a.Diagonal = eng.AllowDiagonal()

	a.Result, a.Err = eng.CalcPath(ctx, engine.RunOptions{})
	if opts.Render {
		a.Render = eng.Render()
	}
	return a
}

// analyzeAll loads every scenario from dir and solves them with at most
// opts.Parallel workers. Results keep the listing order.
func analyzeAll(ctx context.Context, dir string, opts Options) ([]Analysis, error) {
	manager, err := config.NewManager(dir)
	if err != nil {
		return nil, err
	}
	infos, err := manager.ListConfigs()
	if err != nil {
		return nil, err
	}

	results := make([]Analysis, len(infos))
	g, ctx := errgroup.WithContext(ctx)
	if opts.Parallel > 0 {
		g.SetLimit(opts.Parallel)
	}
	for i, info := range infos {
		g.Go(func() error {
			s, err := manager.LoadConfig(info.ConfigID)
			if err != nil {
				results[i] = Analysis{ConfigID: info.ConfigID, Name: info.Name, Err: err}
				return nil
			}
			results[i] = analyzeScenario(ctx, info.ConfigID, s, opts)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func printReport(w io.Writer, results []Analysis) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONFIG\tSIZE\tMOVES\tHEURISTIC\tOUTCOME\tCOST\tPATH\tEXPANDED\tTIME")
	for _, a := range results {
		if a.Err != nil {
			fmt.Fprintf(tw, "%s\t%dx%d\t-\t-\terror: %v\t\t\t\t\n", a.ConfigID, a.Width, a.Height, a.Err)
			continue
		}
		moves := "4-way"
		if a.Diagonal {
			moves = "8-way"
		}
		cost := "-"
		if a.Result.Found() {
			cost = fmt.Sprint(a.Result.TotalCost)
		}
		fmt.Fprintf(tw, "%s\t%dx%d\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			a.ConfigID, a.Width, a.Height, moves, a.Heuristic, a.Result.Outcome, cost,
			len(a.Result.Path), a.Result.Expanded, a.Result.Elapsed.Round(time.Microsecond))
	}
	tw.Flush()

	for _, a := range results {
		if a.Render == "" {
			continue
		}
		fmt.Fprintf(w, "\n=== %s (%s) ===\n%s", a.ConfigID, a.Name, a.Render)
	}
}

// setupLogging sends log15 output at or above level to w, keeping the
// report on stdout clean.
func setupLogging(w io.Writer, level string) error {
	lvl, err := log15.LvlFromString(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log15.Root().SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(w, log15.LogfmtFormat())))
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "solve every scenario preset and report the results",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "configs",
				Usage:   "directory containing scenario presets",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.BoolFlag{
				Name:  "render",
				Usage: "print the solved grid of every scenario",
			},
			&cli.BoolFlag{
				Name:  "octile",
				Usage: "use the octile heuristic instead of each scenario's own",
			},
			&cli.IntFlag{
				Name:  "parallel",
				Value: runtime.NumCPU(),
				Usage: "maximum scenarios solved at once",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "log level for stderr (debug, info, warn, error, crit)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			w := cmd.Root().ErrWriter
			if w == nil {
				w = os.Stderr
			}
			return ctx, setupLogging(w, cmd.String("log-level"))
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			results, err := analyzeAll(ctx, cmd.String("dir"), Options{
				Octile:   cmd.Bool("octile"),
				Render:   cmd.Bool("render"),
				Parallel: cmd.Int("parallel"),
			})
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			if w == nil {
				w = os.Stdout
			}
			printReport(w, results)
			return nil
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
