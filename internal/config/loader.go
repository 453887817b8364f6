package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FileReader defines the interface for reading files, so tests can inject
// an in-memory reader without touching disk.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// DefaultFileReader implements FileReader using os.ReadFile.
type DefaultFileReader struct{}

func (d *DefaultFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Loader wraps a FileReader to provide dependency injection for config loading.
type Loader struct {
	fileReader FileReader
}

// NewLoader creates a new Loader with the given FileReader.
func NewLoader(fileReader FileReader) *Loader {
	if fileReader == nil {
		fileReader = &DefaultFileReader{}
	}
	return &Loader{fileReader: fileReader}
}

// NewDefaultLoader creates a Loader with the default file reader.
func NewDefaultLoader() *Loader {
	return NewLoader(&DefaultFileReader{})
}

// LoadFromFile loads the base configuration from a TOML file, starting
// from Default() so unset fields keep their built-in values.
func (l *Loader) LoadFromFile(configPath string) (*Config, error) {
	if !strings.HasSuffix(configPath, ".toml") {
		return nil, fmt.Errorf("config file must be a toml file")
	}

	body, err := l.fileReader.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(body, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Load loads the config from an optional TOML file and then applies
// IBCIDX_-prefixed environment variable overrides (see env.go). A blank
// configPath skips the file stage and starts from Default().
func Load(configPath string) (*Config, error) {
	var cfg *Config
	if configPath == "" {
		cfg = Default()
	} else {
		var err error
		cfg, err = NewDefaultLoader().LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	return cfg, nil
}
