package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(configEnv, "")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DB != "partkv.db" {
		t.Errorf("expected default db path, got %q", cfg.DB)
	}
	if cfg.Metrics.Listen != ":9464" {
		t.Errorf("expected default listen address, got %q", cfg.Metrics.Listen)
	}
	if !cfg.StrictOrDefault() {
		t.Error("expected strict by default")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partkv.yaml")
	err := os.WriteFile(path, []byte(`
db: /var/lib/partkv/data.db
verbose: true
capacity: 20000
partition_size: 1000
strict: false
metrics:
  listen: 127.0.0.1:9100
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv(configEnv, path)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DB != "/var/lib/partkv/data.db" || !cfg.Verbose {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Capacity != 20000 || cfg.PartitionSize != 1000 {
		t.Errorf("unexpected sizing: %d/%d", cfg.Capacity, cfg.PartitionSize)
	}
	if cfg.StrictOrDefault() {
		t.Error("expected strict: false to be honored")
	}
	if cfg.Metrics.Listen != "127.0.0.1:9100" || cfg.Metrics.Namespace != "partkv" {
		t.Errorf("unexpected metrics config: %+v", cfg.Metrics)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "dbpath: x\n"},
		{"negative capacity", "capacity: -1\n"},
		{"negative partition size", "partition_size: -5\n"},
		{"no db", "db: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := parseConfig([]byte(tt.yaml), defaultConfig()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseConfigEmpty(t *testing.T) {
	if err := parseConfig(nil, defaultConfig()); err != nil {
		t.Errorf("expected empty config to be accepted, got %v", err)
	}
}
