package locator

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "flowjni" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.Driver != "dylib" {
		t.Errorf("Driver = %q", cfg.Driver)
	}
	want := []Strategy{StrategySystem, StrategyBundled, StrategyDev}
	if !reflect.DeepEqual(cfg.Strategies, want) {
		t.Errorf("Strategies = %v, want %v", cfg.Strategies, want)
	}
	if len(cfg.DevPaths) != 4 || cfg.DevPaths[0] != "../flowbase/build" {
		t.Errorf("DevPaths = %v", cfg.DevPaths)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"no name", func(c *Config) { c.Name = "" }, true},
		{"no name but path", func(c *Config) { c.Name = ""; c.Path = "/x.so" }, false},
		{"no strategies", func(c *Config) { c.Strategies = nil }, true},
		{"unknown strategy", func(c *Config) { c.Strategies = []Strategy{"cloud"} }, true},
		{"bad pattern", func(c *Config) { c.PlatformNames = map[string]string{"linux": "flow.so"} }, true},
		{"good pattern", func(c *Config) { c.PlatformNames = map[string]string{"linux": "lib%s-v2.so"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("LoadConfig(\"\") = %+v, want defaults", cfg)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")
	data := `
name: flowcore
driver: wasm
strategies: [dev, system]
dev_paths:
  - out
platform_names:
  linux: lib%s-linux.so
temp_dir: /var/tmp
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "flowcore" || cfg.Driver != "wasm" || cfg.TempDir != "/var/tmp" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Strategies, []Strategy{StrategyDev, StrategySystem}) {
		t.Errorf("Strategies = %v", cfg.Strategies)
	}
	if !reflect.DeepEqual(cfg.DevPaths, []string{"out"}) {
		t.Errorf("DevPaths = %v", cfg.DevPaths)
	}
	if cfg.PlatformNames["linux"] != "lib%s-linux.so" {
		t.Errorf("PlatformNames = %v", cfg.PlatformNames)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("FLOW_DRIVER", "wasm")
	t.Setenv("FLOW_DEV_PATHS", "a, b")
	t.Setenv("FLOW_STRATEGIES", "dev")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Driver != "wasm" {
		t.Errorf("Driver = %q", cfg.Driver)
	}
	if !reflect.DeepEqual(cfg.DevPaths, []string{"a", "b"}) {
		t.Errorf("DevPaths = %v", cfg.DevPaths)
	}
	if !reflect.DeepEqual(cfg.Strategies, []Strategy{StrategyDev}) {
		t.Errorf("Strategies = %v", cfg.Strategies)
	}
	if cfg.Name != "flowjni" {
		t.Errorf("Name = %q, want default kept", cfg.Name)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("strategies: [teleport]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected validation error")
	}
}
