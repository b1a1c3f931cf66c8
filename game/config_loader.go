package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads game configuration from a YAML file or directory.
// If a directory is given, all YAML files are merged alphabetically with
// later files overriding earlier ones (e.g. base.yml, chain_slots.yaml).
func LoadConfig(configPath string) (*Config, error) {
	info, err := os.Stat(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config path: %w", err)
	}

	var cfg Config
	if info.IsDir() {
		err = loadConfigFromDirInto(configPath, &cfg)
	} else {
		err = loadConfigInto(configPath, &cfg)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game config: %w", err)
	}
	return &cfg, nil
}

// loadConfigInto loads config into the provided struct (out must be a pointer).
func loadConfigInto(configPath string, out interface{}) error {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

// loadConfigFromDirInto merges all YAML files in a directory into out.
// Files load in alphabetical order so overrides are deterministic.
func loadConfigFromDirInto(configDir string, out interface{}) error {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	entries, err := os.ReadDir(configDir)
	if err != nil {
		return fmt.Errorf("failed to read config directory: %w", err)
	}

	var yamlFiles []string
	for _, entry := range entries {
		name := strings.ToLower(entry.Name())
		if !entry.IsDir() && (strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			yamlFiles = append(yamlFiles, entry.Name())
		}
	}

	if len(yamlFiles) == 0 {
		return fmt.Errorf("no YAML files found in config directory: %s", configDir)
	}

	for _, filename := range yamlFiles {
		filePath := filepath.Join(configDir, filename)
		v.SetConfigFile(filePath)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("failed to merge config from %s: %w", filename, err)
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}
