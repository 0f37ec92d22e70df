package config

import "fmt"

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Dataset.URL == "" {
		return fmt.Errorf("dataset.url must not be empty (set it in pantry.yaml or via PANTRY_DATASET_URL)")
	}
	if c.Dataset.Archive == "" {
		return fmt.Errorf("dataset.archive must not be empty")
	}
	if c.Paths.RawDir == "" {
		return fmt.Errorf("paths.raw_dir must not be empty")
	}
	switch c.OutputFormat {
	case "", "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("unknown output format %q (want auto, text, markdown, or json)", c.OutputFormat)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.LogFormat)
	}
	return nil
}
