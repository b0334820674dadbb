package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const configEnv = "PARTKV_CONFIG"

// Config is read from a YAML file. Flags override it.
type Config struct {
	DB            string        `yaml:"db"`
	InMemory      bool          `yaml:"in_memory"`
	Verbose       bool          `yaml:"verbose"`
	Capacity      int           `yaml:"capacity"`
	PartitionSize int           `yaml:"partition_size"`
	Strict        *bool         `yaml:"strict"`
	Metrics       MetricsConfig `yaml:"metrics"`
}

type MetricsConfig struct {
	Listen    string `yaml:"listen"`
	Namespace string `yaml:"namespace"`
}

func defaultConfig() *Config {
	return &Config{
		DB: "partkv.db",
		Metrics: MetricsConfig{
			Listen:    ":9464",
			Namespace: "partkv",
		},
	}
}

// StrictOrDefault reports whether new containers are strict; they are unless
// the config says otherwise.
func (c *Config) StrictOrDefault() bool {
	return c.Strict == nil || *c.Strict
}

func (c *Config) validate() error {
	if c.DB == "" && !c.InMemory {
		return errors.New("db path is required")
	}
	if c.Capacity < 0 {
		return fmt.Errorf("capacity must not be negative, got %d", c.Capacity)
	}
	if c.PartitionSize < 0 {
		return fmt.Errorf("partition_size must not be negative, got %d", c.PartitionSize)
	}
	return nil
}

// LoadConfig reads path, or the file named by PARTKV_CONFIG when path is
// empty. With neither, the defaults are returned.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(configEnv)
	}
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := parseConfig(raw, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func parseConfig(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return cfg.validate()
}
