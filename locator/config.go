package locator

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/wippyai/flowbind/native"
)

// Strategy names one way of finding the runtime library.
type Strategy string

const (
	// StrategySystem hands the bare file name to the platform loader,
	// which searches LD_LIBRARY_PATH, DYLD_LIBRARY_PATH or PATH.
	StrategySystem Strategy = "system"
	// StrategyBundled extracts native/<file> from the bundle to a
	// temporary file and loads it from there.
	StrategyBundled Strategy = "bundled"
	// StrategyDev tries each development build directory in order.
	StrategyDev Strategy = "dev"
)

// EnvPrefix prefixes environment overrides, e.g. FLOW_DRIVER=wasm.
const EnvPrefix = "FLOW_"

// Config describes where and how the runtime library is found.
type Config struct {
	// Name is the logical library name, mapped to a platform file name.
	Name string `yaml:"name"`

	// Driver is the native driver used to open the library.
	Driver string `yaml:"driver"`

	// Path pins the library to one file and disables every strategy.
	Path string `yaml:"path"`

	// Strategies are tried in order until one opens the library.
	Strategies []Strategy `yaml:"strategies"`

	// DevPaths are directories searched by the dev strategy, relative to
	// the working directory.
	DevPaths []string `yaml:"dev_paths"`

	// PlatformNames overrides the driver's file name per GOOS. Each value
	// is a pattern with one %s for the logical name.
	PlatformNames map[string]string `yaml:"platform_names"`

	// TempDir is where bundled libraries are extracted. Empty uses the
	// system temporary directory.
	TempDir string `yaml:"temp_dir"`
}

// DefaultConfig returns the standard search policy for the flowjni library.
func DefaultConfig() Config {
	return Config{
		Name:       "flowjni",
		Driver:     native.DefaultDriver,
		Strategies: []Strategy{StrategySystem, StrategyBundled, StrategyDev},
		DevPaths: []string{
			"../flowbase/build",
			"../../flowbase/build",
			"flowbase/build",
			"build",
		},
	}
}

// Validate reports the first problem with the configuration.
func (c Config) Validate() error {
	if c.Name == "" && c.Path == "" {
		return fmt.Errorf("library name is required")
	}
	if c.Path == "" && len(c.Strategies) == 0 {
		return fmt.Errorf("at least one strategy is required")
	}
	for _, s := range c.Strategies {
		switch s {
		case StrategySystem, StrategyBundled, StrategyDev:
		default:
			return fmt.Errorf("unknown strategy %q", s)
		}
	}
	for goos, pattern := range c.PlatformNames {
		if strings.Count(pattern, "%s") != 1 {
			return fmt.Errorf("platform name for %s must contain one %%s: %q", goos, pattern)
		}
	}
	return nil
}

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{
	"strategies": true,
	"dev_paths":  true,
}

// LoadConfig reads a YAML file over DefaultConfig, then applies FLOW_*
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if listKeys[key] {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return key, parts
		}
		return key, value
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
