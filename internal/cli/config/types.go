// Package config provides configuration management for the pantry CLI.
//
// Configuration is layered, lowest to highest precedence: built-in defaults,
// pantry.yaml, PANTRY_* environment variables, command-line flags.
package config

import "time"

// Default configuration values. The dataset constants describe the food.com
// recipes and user interactions archive the pipeline was built around.
const (
	DefaultDatasetURL = "https://www.kaggle.com/api/v1/datasets/download/shuyangli94/food-com-recipes-and-user-interactions"
	DefaultArchive    = "food-com-recipes-and-user-interactions.zip"
	DefaultInnerDir   = "food-com-recipes-and-user-interactions"

	DefaultDataDir      = "data"
	DefaultRawDir       = "data/raw"
	DefaultProcessedDir = "data/processed"
	DefaultStateFile    = ".pantry/state.db"

	DefaultEnvMarker = ".venv"

	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogFormat = "text"
)

// DatasetConfig describes the remote archive and how to acquire it.
type DatasetConfig struct {
	URL      string        `koanf:"url"`
	Archive  string        `koanf:"archive"`
	InnerDir string        `koanf:"inner_dir"`
	Timeout  time.Duration `koanf:"timeout"`
	Retries  uint64        `koanf:"retries"`
}

// PathsConfig holds the filesystem layout.
type PathsConfig struct {
	DataDir      string `koanf:"data_dir"`
	RawDir       string `koanf:"raw_dir"`
	ProcessedDir string `koanf:"processed_dir"`
	StatePath    string `koanf:"state"`
}

// SetupConfig describes the external environment manager invocation.
// Setup is idempotent: when Marker exists the commands are skipped.
type SetupConfig struct {
	Marker   string   `koanf:"marker"`
	Commands []string `koanf:"commands"`
}

// ToolsConfig names the external collaborator command lines.
type ToolsConfig struct {
	Process string `koanf:"process"`
	Run     string `koanf:"run"`
	Test    string `koanf:"test"`
}

// CleanConfig lists the trees the clean command deletes.
type CleanConfig struct {
	Paths []string `koanf:"paths"`
}

// Config holds all CLI configuration options.
type Config struct {
	Dataset      DatasetConfig `koanf:"dataset"`
	Paths        PathsConfig   `koanf:"paths"`
	Setup        SetupConfig   `koanf:"setup"`
	Tools        ToolsConfig   `koanf:"tools"`
	Clean        CleanConfig   `koanf:"clean"`
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`
	LogFormat    string        `koanf:"log_format"`

	// ProjectRoot is the directory all relative paths resolve against:
	// the config file's directory when one was found, the working
	// directory otherwise. Not itself configurable from the file.
	ProjectRoot string `koanf:"-"`
}
