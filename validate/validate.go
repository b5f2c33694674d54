// Command validate checks the scenario presets in a configs directory. For
// every *.json, *.yaml and *.yml file it checks:
//   - the file decodes and passes scenario validation (dimensions, legend,
//     endpoints, cost model, maze and random block settings)
//   - the scenario builds into an engine
//   - the destination is reachable from the start, moving 4-connected or
//     8-connected according to allow_diagonal
//
// Scenarios with an unreachable destination are reported as warnings, since
// a sealed grid is a legitimate demonstration of a failed search.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/zyedidia/generic/queue"

	"github.com/wricardo/astar-playground/pathfind/config"
	"github.com/wricardo/astar-playground/pathfind/engine"
)

// ValidationResult captures the outcome of validating a single file.
// Errors make the file invalid; Info and Warnings are reported either way.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateConfig loads, validates and builds a single scenario file, then
// checks that its destination can be reached.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	scenario, err := config.Parse(data, filepath.Ext(filePath))
	if err != nil {
		result.fail("%v", err)
		return result
	}

	eng, err := config.Build(scenario)
	if err != nil {
		result.fail("Failed to build grid: %v", err)
		return result
	}

	from, to := eng.From(), eng.To()
	walls := eng.Walls()
	reach := reachable(walls, from, eng.AllowDiagonal())
	if !reach[to.Y][to.X] {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Destination %s is unreachable from start %s", to, from))
	}

	wallCount, reachCount := 0, 0
	for y := range walls {
		for x := range walls[y] {
			if walls[y][x] {
				wallCount++
			}
			if reach[y][x] {
				reachCount++
			}
		}
	}

	moves := "4-connected"
	if eng.AllowDiagonal() {
		moves = "8-connected"
	}
	costs := eng.CostModel()
	result.Info = append(result.Info,
		fmt.Sprintf("✓ Name: %s", scenario.Name),
		fmt.Sprintf("✓ Grid: %dx%d, %d walls", eng.Width(), eng.Height(), wallCount),
		fmt.Sprintf("✓ Start: %s  Destination: %s", from, to),
		fmt.Sprintf("✓ Movement: %s, costs %d/%d, %s heuristic", moves, costs.Cardinal, costs.Diagonal, costs.Heuristic),
		fmt.Sprintf("✓ Reachable cells: %d/%d", reachCount, eng.Width()*eng.Height()-wallCount),
	)
	return result
}

// reachable flood-fills from start over open cells. Diagonal moves may
// pass between two walls, as the search allows.
func reachable(walls [][]bool, start engine.Coordinate, diagonal bool) [][]bool {
	seen := make([][]bool, len(walls))
	for y := range walls {
		seen[y] = make([]bool, len(walls[y]))
	}
	if len(walls) == 0 || walls[start.Y][start.X] {
		return seen
	}

	q := queue.New[engine.Coordinate]()
	q.Enqueue(start)
	seen[start.Y][start.X] = true
	for !q.Empty() {
		c := q.Dequeue()
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if (dx == 0 && dy == 0) || (!diagonal && dx != 0 && dy != 0) {
					continue
				}
				n := engine.Coordinate{X: c.X + dx, Y: c.Y + dy}
				if n.Y < 0 || n.Y >= len(walls) || n.X < 0 || n.X >= len(walls[n.Y]) {
					continue
				}
				if walls[n.Y][n.X] || seen[n.Y][n.X] {
					continue
				}
				seen[n.Y][n.X] = true
				q.Enqueue(n)
			}
		}
	}
	return seen
}

// scenarioFiles lists the scenario files in dir, sorted by name.
func scenarioFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// report prints one result and returns whether it was valid.
func report(w io.Writer, result ValidationResult) bool {
	fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
	if result.Valid {
		fmt.Fprintln(w, "✅ VALID")
		for _, info := range result.Info {
			fmt.Fprintln(w, "  "+info)
		}
	} else {
		fmt.Fprintln(w, "❌ INVALID")
		for _, err := range result.Errors {
			fmt.Fprintln(w, "  ❌ "+err)
		}
	}
	for _, warning := range result.Warnings {
		fmt.Fprintln(w, "  ⚠ "+warning)
	}
	return result.Valid
}

// run validates every scenario in dir and fails if any is invalid.
func run(w io.Writer, dir string) error {
	files, err := scenarioFiles(dir)
	if err != nil {
		return fmt.Errorf("finding config files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no scenario files in %s", dir)
	}

	invalid := 0
	for _, file := range files {
		if !report(w, validateConfig(file)) {
			invalid++
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if invalid > 0 {
		fmt.Fprintln(w, "❌ Some configurations have errors")
		return fmt.Errorf("%d of %d scenarios are invalid", invalid, len(files))
	}
	fmt.Fprintln(w, "✅ All configurations are valid!")
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "validate",
		Usage: "validate scenario presets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "../configs",
				Usage:   "directory containing scenario presets",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(cmd.Root().Writer, cmd.String("dir"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
