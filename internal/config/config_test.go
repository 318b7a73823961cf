package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// go test -run ^TestLoadOverridesDefaults$ . -count 1
func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[engine]
frames = 60
delta_time = 0.016
seed = 9

[scene]
save_path = "out/scene.bin"

[database]
conn_max_lifetime = "5m"

[logging]
format = "json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.Frames != 60 || cfg.Engine.DeltaTime != 0.016 || cfg.Engine.Seed != 9 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Engine.Frame() != 16*time.Millisecond {
		t.Errorf("Frame() = %v", cfg.Engine.Frame())
	}
	if cfg.Scene.SavePath != "out/scene.bin" || cfg.Scene.YAMLPath != "scenes/demo.yaml" {
		t.Errorf("scene = %+v", cfg.Scene)
	}
	if cfg.Database.ConnMaxLifetime != 5*time.Minute || cfg.Database.MaxOpenConns != 4 {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "info" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

// go test -run ^TestLoadRejects$ . -count 1
func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"zero delta":   "[engine]\ndelta_time = 0\n",
		"bad profile":  "[profile]\nmode = \"trace\"\n",
		"no snapshot":  "[database]\nenabled = true\nsnapshot_name = \"\"\n",
		"invalid toml": "[engine\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Error("config accepted")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file accepted")
	}
}
