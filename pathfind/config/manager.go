package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultConfigID is the scenario preferred as the default when present.
const DefaultConfigID = "default"

// extensions are tried in order when resolving a bare config id.
var extensions = []string{".json", ".yaml", ".yml"}

// ConfigInfo describes one scenario file.
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Maze        bool   `json:"maze"`
}

// Manager handles scenario loading and caching
type Manager struct {
	configDir     string
	defaultConfig *Scenario
	configs       map[string]*Scenario
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*Scenario),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// ConfigID strips a known extension from a file or config name.
func ConfigID(name string) string {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

func isScenarioFile(name string) bool {
	return ConfigID(name) != name
}

// LoadConfig loads a scenario by id or file name
func (m *Manager) LoadConfig(name string) (*Scenario, error) {
	id := ConfigID(name)

	m.mu.RLock()
	if s, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if s, exists := m.configs[id]; exists {
		return s, nil
	}

	candidates := extensions
	if id != name {
		candidates = []string{strings.TrimPrefix(name, id)}
	}

	for _, ext := range candidates {
		path := filepath.Join(m.configDir, id+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		s, err := Parse(data, ext)
		if err != nil {
			return nil, err
		}
		m.configs[id] = s
		return s, nil
	}
	return nil, ErrConfigNotFound
}

// Parse decodes and validates a scenario; ext selects JSON or YAML.
func Parse(data []byte, ext string) (*Scenario, error) {
	var s Scenario
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := Validate(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &s, nil
}

// ListConfigs returns information about all valid scenarios, sorted by id
func (m *Manager) ListConfigs() ([]*ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	seen := make(map[string]bool)
	var configs []*ConfigInfo
	for _, entry := range entries {
		if entry.IsDir() || !isScenarioFile(entry.Name()) {
			continue
		}
		id := ConfigID(entry.Name())
		if seen[id] {
			continue
		}

		s, err := m.LoadConfig(entry.Name())
		if err != nil {
			// Skip invalid configs
			continue
		}
		seen[id] = true

		configs = append(configs, &ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    id,
			Name:        s.Name,
			Description: s.Description,
			Width:       s.Width,
			Height:      s.Height,
			Maze:        s.Maze != nil,
		})
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

// GetDefault returns the default scenario
func (m *Manager) GetDefault() *Scenario {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default scenario by id
func (m *Manager) SetDefault(name string) error {
	s, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = s
	return nil
}

// RefreshCache drops every cached scenario and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*Scenario)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// loadDefaultConfig prefers default.*, then the first valid scenario, then
// the built-in one.
func (m *Manager) loadDefaultConfig() error {
	s, err := m.LoadConfig(DefaultConfigID)
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			s = Default()
		} else if s, err = m.LoadConfig(configs[0].ConfigID); err != nil {
			s = Default()
		}
	}

	m.mu.Lock()
	m.defaultConfig = s
	m.mu.Unlock()
	return nil
}
