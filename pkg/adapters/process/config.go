package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CheckConfig declares one allow-listed command in a checks file.
type CheckConfig struct {
	Name        string   `yaml:"name" json:"name"`
	Command     string   `yaml:"command" json:"command"`
	Args        []string `yaml:"args" json:"args"`
	Description string   `yaml:"description" json:"description"`
}

// ConfigFile is the structure of checks.yaml.
type ConfigFile struct {
	Checks []CheckConfig `yaml:"checks" json:"checks"`
}

// LoadChecks reads a checks file (YAML or JSON) and returns the configs
// keyed by check name. A missing file is treated as "no checks configured"
// and returns an empty map.
func LoadChecks(path string) (map[string]CheckConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]CheckConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read checks config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse checks config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse checks config: %w", err)
		}
	}

	checkMap := make(map[string]CheckConfig)
	for _, check := range cfg.Checks {
		if check.Name == "" {
			continue
		}
		checkMap[check.Name] = check
	}

	return checkMap, nil
}
