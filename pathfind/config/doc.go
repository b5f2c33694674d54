// Package config loads scenario presets for the pathfinding playground.
//
// Scenarios live as JSON or YAML files in a config directory; the file name
// without extension is the config id used when creating sessions. Each
// scenario fixes the grid size and endpoints and may carry one wall source:
//   - layout: rows of '.' (open), '#' (wall), 'S' (start), 'F' (destination)
//   - maze: a generated maze; start and destination are placed on it
//   - random_blocks: walls scattered after the layout or maze
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	scenario, err := manager.LoadConfig("corridor")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng, err := config.Build(scenario, engine.WithLogger(logger))
//
// When the directory holds no valid scenario the manager falls back to the
// built-in Default: an empty 30x30 grid from (0,0) to (1,1).
package config
