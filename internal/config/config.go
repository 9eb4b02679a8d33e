// Package config loads optional defaults for folder-insight from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// FileName is the configuration file looked up in the working directory.
const FileName = ".folder-insight.yaml"

// EnvVar names the environment variable that points at a configuration file.
const EnvVar = "FOLDER_INSIGHT_CONFIG"

// Config holds defaults for command-line flags. Unset fields leave the flag default alone.
type Config struct {
	Top            *int     `yaml:"top"`
	MaxDepth       *int     `yaml:"max_depth"`
	TreeDepth      *int     `yaml:"tree_depth"`
	Ignore         []string `yaml:"ignore"`
	FollowSymlinks *bool    `yaml:"follow_symlinks"`
	Hidden         *bool    `yaml:"hidden"`
	Extensions     []string `yaml:"extensions"`
	Excludes       []string `yaml:"excludes"`
	MinSize        string   `yaml:"min_size"`
	Output         string   `yaml:"output"`
}

// Load reads the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}

		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// Resolve loads .env from the working directory, then the configuration named by
// explicit, by EnvVar, or FileName, in that order. A missing FileName is not an
// error and yields a nil Config; a missing explicit or EnvVar file is.
func Resolve(explicit string) (*Config, error) {
	_ = godotenv.Load()

	path := explicit
	if path == "" {
		path = os.Getenv(EnvVar)
	}

	if path != "" {
		return Load(path)
	}

	cfg, err := Load(FileName)
	if errors.Is(err, ErrConfigNotFound) {
		return nil, nil //nolint:nilnil // No config file is not an error
	}

	return cfg, err
}
