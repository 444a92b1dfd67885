package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the pg2lite.toml shape: CLI defaults for the conversion options
// record, so a project can commit its schema filter and FK/strict policy
// once instead of repeating flags on every invocation.
type Config struct {
	Schema             string `toml:"schema"`
	IncludeAllSchemas  bool   `toml:"include_all_schemas"`
	EnableForeignKeys  bool   `toml:"enable_foreign_keys"`
	Strict             bool   `toml:"strict"`
	EnumCheckEmulation bool   `toml:"enum_check_emulation"`
	ConfigFilePath     string `toml:"-"`
}

// DecodeErrorDetail renders the TOML decoder's row/column detail for a
// malformed pg2lite.toml. It reports false when err is not a TOML decode
// error.
func DecodeErrorDetail(err error) (string, bool) {
	var derr *toml.DecodeError
	if !errors.As(err, &derr) {
		return "", false
	}
	row, col := derr.Position()
	return fmt.Sprintf("%s (row %d, column %d)", derr.String(), row, col), true
}

// LoadConfig searches the current directory and its ancestors for
// pg2lite.toml, stopping at the first project boundary (.git, go.mod,
// package.json). A missing file is not an error: it returns an empty
// Config so the CLI falls back to its flag defaults.
func LoadConfig() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return &Config{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	config.ConfigFilePath = configPath
	return &config, nil
}

func getConfigPath() (string, error) {
	startDir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := startDir
	for {
		configPath := filepath.Join(dir, "pg2lite.toml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		if isProjectRoot(dir) {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("pg2lite.toml not found")
}

// isProjectRoot checks if the directory is a project root based on common
// markers, so the upward search doesn't escape the current project.
func isProjectRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
		return true
	}
	return false
}
