package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecsrt.toml")
	data := `
[runtime]
workers = 4
tick_rate = "50ms"
execution = "sequential"

[scene]
path = "scenes/demo.yaml"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Runtime.Workers != 4 || cfg.Runtime.TickRate != 50*time.Millisecond {
		t.Errorf("runtime = %+v", cfg.Runtime)
	}
	if cfg.Runtime.Execution != "sequential" || cfg.Scene.Path != "scenes/demo.yaml" {
		t.Errorf("execution = %q scene = %q", cfg.Runtime.Execution, cfg.Scene.Path)
	}
	if cfg.Runtime.FixedHz != 60 || cfg.Logging.Level != "info" {
		t.Error("untouched sections lost their defaults")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"syntax", "[runtime", "parse config"},
		{"execution", "[runtime]\nexecution = \"eager\"", "runtime.execution"},
		{"tick rate", "[runtime]\ntick_rate = \"0s\"", "runtime.tick_rate"},
		{"fixed hz", "[runtime]\nfixed_hz = -1.0", "runtime.fixed_hz"},
		{"workers", "[runtime]\nworkers = -2", "runtime.workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "test")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Errorf("err = %v", err)
	}
}
