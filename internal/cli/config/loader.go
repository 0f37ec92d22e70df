package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in a command context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for a
// config file.
const maxUpwardSearchLevels = 10

var configFileNames = []string{"pantry.yaml", "pantry.yml"}

// envGroups are the nested config groups reachable via environment
// variables, e.g. PANTRY_DATASET_INNER_DIR -> dataset.inner_dir.
var envGroups = []string{"dataset", "paths", "setup", "tools", "clean"}

var (
	configFileUsed string
	currentConfig  *Config
)

// findConfigIn returns the config file in dir, if any.
func findConfigIn(dir string) string {
	for _, name := range configFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findProjectConfig searches upward from startDir for a pantry config file.
func findProjectConfig(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if path := findConfigIn(dir); path != "" {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path against baseDir unless it is empty
// or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// envKeyTransform maps a PANTRY_* variable name to a config key.
func envKeyTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "PANTRY_"))
	for _, group := range envGroups {
		if strings.HasPrefix(s, group+"_") {
			return group + "." + strings.TrimPrefix(s, group+"_")
		}
	}
	return s
}

// ResetConfig clears cached loader state. Used by tests.
func ResetConfig() {
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and
// flags. Precedence (highest to lowest): flags > env vars > config file >
// defaults.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults.
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"dataset.url":         DefaultDatasetURL,
		"dataset.archive":     DefaultArchive,
		"dataset.inner_dir":   DefaultInnerDir,
		"dataset.timeout":     "15m",
		"dataset.retries":     2,
		"paths.data_dir":      DefaultDataDir,
		"paths.raw_dir":       DefaultRawDir,
		"paths.processed_dir": DefaultProcessedDir,
		"paths.state":         DefaultStateFile,
		"setup.marker":        DefaultEnvMarker,
		"setup.commands": []string{
			"python3 -m venv .venv",
			".venv/bin/pip install -r requirements.txt",
		},
		"tools.process": ".venv/bin/python data/scripts/process_data.py",
		"tools.run":     ".venv/bin/python -m src.main",
		"tools.test":    ".venv/bin/python -m pytest tests/",
		"clean.paths":   []string{".venv", ".cache", "data"},
		"verbose":       false,
		"output":        DefaultOutput,
		"log_format":    DefaultLogFormat,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file: explicit path, or upward search from CWD.
	if cfgFile == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfgFile = findProjectConfig(cwd)
		}
	}
	configFileUsed = cfgFile
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment variables (PANTRY_ prefix).
	if err := k.Load(env.Provider("PANTRY_", ".", envKeyTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags: highest priority, only those explicitly set.
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			switch f.Name {
			case "data-dir":
				return "paths.data_dir", posflag.FlagVal(flags, f)
			case "raw-dir":
				return "paths.raw_dir", posflag.FlagVal(flags, f)
			case "state":
				return "paths.state", posflag.FlagVal(flags, f)
			case "url":
				return "dataset.url", posflag.FlagVal(flags, f)
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal.
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Resolve paths against the project root.
	root := ""
	if configFileUsed != "" {
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			root = filepath.Dir(abs)
		}
	}
	if root == "" {
		root, _ = os.Getwd()
		if root == "" {
			root = "."
		}
	}
	cfg.ProjectRoot = root

	cfg.Paths.DataDir = resolvePathRelativeTo(cfg.Paths.DataDir, root)
	cfg.Paths.RawDir = resolvePathRelativeTo(cfg.Paths.RawDir, root)
	cfg.Paths.ProcessedDir = resolvePathRelativeTo(cfg.Paths.ProcessedDir, root)
	cfg.Paths.StatePath = resolvePathRelativeTo(cfg.Paths.StatePath, root)
	cfg.Setup.Marker = resolvePathRelativeTo(cfg.Setup.Marker, root)
	for i, p := range cfg.Clean.Paths {
		cfg.Clean.Paths[i] = resolvePathRelativeTo(p, root)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the config file path in effect, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the configuration loaded by the last LoadConfig
// call, or nil.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key for the command logger. Exposed so the
// commands package can share it without an import cycle.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from a command context, falling back to a
// discard logger.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
