package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/astar-playground/pathfind/engine"
)

func createValidScenario() *Scenario {
	return &Scenario{
		Name:        "Test Scenario",
		Description: "Test scenario",
		Width:       5,
		Height:      4,
		Layout: []string{
			"S....",
			".###.",
			".....",
			"....F",
		},
	}
}

func writeScenarioFile(t *testing.T, dir, name string, s *Scenario) {
	t.Helper()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal scenario: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write scenario file: %v", err)
	}
}

func writeRaw(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", filename, err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		def := createValidScenario()
		def.Name = "Default"
		writeScenarioFile(t, dir, "default", def)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := manager.GetDefault().Name; got != "Default" {
			t.Errorf("Expected default 'Default', got '%s'", got)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		if _, err := NewManager("/non/existent/path"); err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory falls back to built-in default", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed without scenario files, got: %v", err)
		}
		def := manager.GetDefault()
		if def == nil {
			t.Fatal("Expected default scenario")
		}
		if def.Width != engine.DefaultGridSize || def.Height != engine.DefaultGridSize {
			t.Errorf("Expected %dx%d default, got %dx%d", engine.DefaultGridSize, engine.DefaultGridSize, def.Width, def.Height)
		}
		from, to := def.Endpoints()
		if from != (engine.Coordinate{X: 0, Y: 0}) || to != (engine.Coordinate{X: 1, Y: 1}) {
			t.Errorf("Unexpected default endpoints %s -> %s", from, to)
		}
		if !def.Diagonal() {
			t.Error("Expected diagonal moves in the default scenario")
		}
	})

	t.Run("first valid scenario when no default file", func(t *testing.T) {
		dir := t.TempDir()
		writeRaw(t, dir, "aaa.json", `{"name": ""}`)
		b := createValidScenario()
		b.Name = "B"
		writeScenarioFile(t, dir, "bbb", b)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := manager.GetDefault().Name; got != "B" {
			t.Errorf("Expected default 'B', got '%s'", got)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "default", createValidScenario())

	small := createValidScenario()
	small.Name = "Small"
	writeScenarioFile(t, dir, "small", small)

	writeRaw(t, dir, "yamlmaze.yaml", `
name: YAML Maze
description: generated
width: 11
height: 9
allow_diagonal: false
heuristic: octile
maze:
  seed: 7
`)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		s, err := manager.LoadConfig("small")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if s.Name != "Small" {
			t.Errorf("Expected name 'Small', got '%s'", s.Name)
		}
	})

	t.Run("load with extension", func(t *testing.T) {
		s, err := manager.LoadConfig("small.json")
		if err != nil {
			t.Fatalf("Failed to load config with extension: %v", err)
		}
		if s.Name != "Small" {
			t.Errorf("Expected name 'Small', got '%s'", s.Name)
		}
	})

	t.Run("load yaml", func(t *testing.T) {
		s, err := manager.LoadConfig("yamlmaze")
		if err != nil {
			t.Fatalf("Failed to load yaml config: %v", err)
		}
		if s.Maze == nil || s.Maze.Seed != 7 {
			t.Errorf("Expected maze seed 7, got %+v", s.Maze)
		}
		if s.Diagonal() {
			t.Error("Expected diagonal moves disabled")
		}
		if s.CostModel().Heuristic != engine.Octile {
			t.Errorf("Expected octile heuristic, got %s", s.CostModel().Heuristic)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		s1, _ := manager.LoadConfig("small")
		s2, err := manager.LoadConfig("small")
		if err != nil {
			t.Fatalf("Failed to load config from cache: %v", err)
		}
		if s1 != s2 {
			t.Error("Expected config to be loaded from cache")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := manager.LoadConfig("non-existent")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		writeRaw(t, dir, "invalid.json", `{"name": "Bad", "width": 0, "height": 3}`)
		_, err := manager.LoadConfig("invalid")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		writeRaw(t, dir, "malformed.json", `{"name": "Malformed", invalid json}`)
		if _, err := manager.LoadConfig("malformed"); err == nil {
			t.Error("Expected error for malformed JSON")
		}
	})

	t.Run("load malformed YAML", func(t *testing.T) {
		writeRaw(t, dir, "malformed.yml", "name: [unclosed")
		if _, err := manager.LoadConfig("malformed.yml"); err == nil {
			t.Error("Expected error for malformed YAML")
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "default", createValidScenario())
	writeRaw(t, dir, "maze.yaml", "name: Maze\nwidth: 9\nheight: 9\nmaze:\n  seed: 3\n")
	writeRaw(t, dir, "broken.json", `{"name": "Broken"`)
	writeRaw(t, dir, "notes.txt", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("Expected 2 configs, got %d", len(configs))
	}

	if configs[0].ConfigID != "default" || configs[0].Filename != "default.json" {
		t.Errorf("Unexpected first entry %+v", configs[0])
	}
	if configs[0].Width != 5 || configs[0].Height != 4 || configs[0].Maze {
		t.Errorf("Unexpected default details %+v", configs[0])
	}
	if configs[1].ConfigID != "maze" || !configs[1].Maze || configs[1].Name != "Maze" {
		t.Errorf("Unexpected maze entry %+v", configs[1])
	}
}

func TestManager_SetDefaultAndRefresh(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "default", createValidScenario())
	other := createValidScenario()
	other.Name = "Other"
	writeScenarioFile(t, dir, "other", other)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if err := manager.SetDefault("other"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if manager.GetDefault().Name != "Other" {
		t.Errorf("Expected default 'Other', got '%s'", manager.GetDefault().Name)
	}
	if err := manager.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}

	changed := createValidScenario()
	changed.Name = "Changed"
	writeScenarioFile(t, dir, "default", changed)

	cached, _ := manager.LoadConfig("default")
	if cached.Name == "Changed" {
		t.Fatal("Expected stale cache before refresh")
	}
	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}
	if manager.GetDefault().Name != "Changed" {
		t.Errorf("Expected refreshed default 'Changed', got '%s'", manager.GetDefault().Name)
	}
}

func TestManager_ConcurrentLoad(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "default", createValidScenario())
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]*Scenario, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = manager.LoadConfig("default")
		}(i)
	}
	wg.Wait()

	for i, s := range results {
		if s == nil || s != results[0] {
			t.Errorf("Goroutine %d got a different scenario pointer", i)
		}
	}
}

func TestConfigID(t *testing.T) {
	tests := map[string]string{
		"maze":      "maze",
		"maze.json": "maze",
		"maze.yaml": "maze",
		"maze.yml":  "maze",
		"maze.txt":  "maze.txt",
	}
	for in, want := range tests {
		if got := ConfigID(in); got != want {
			t.Errorf("ConfigID(%q) = %q, want %q", in, got, want)
		}
	}
}
