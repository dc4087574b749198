package config

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load reads and validates the configuration from a directory holding a
// config.yaml, or from the path of the file itself.
func Load(fs afero.Fs, path string) (*Config, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	configContents, err := afero.ReadFile(fs, filepath.Join(path, ConfigurationName))
	if err != nil {
		return nil, err
	}
	var out Config
	if err := yaml.UnmarshalStrict(configContents, &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Initialize writes the default config.yaml into the directory and returns
// the loaded result. It refuses to overwrite an existing configuration.
func Initialize(fs afero.Fs, dir string, logger *log.Logger) (*Config, error) {
	configPath := filepath.Join(dir, ConfigurationName)

	switch exists, err := afero.Exists(fs, configPath); {
	case err != nil:
		return nil, err
	case exists:
		return nil, fmt.Errorf("a configuration already exists at %q", configPath)
	}

	logger.Printf("Creating %s", configPath)
	if err := afero.WriteFile(fs, configPath, defaultConfigData, 0644); err != nil {
		return nil, err
	}

	return Load(fs, dir)
}
