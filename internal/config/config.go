// Package config provides configuration structures and loading for heaplift.
package config

// Config represents the complete application configuration.
type Config struct {
	Image    ImageConfig    `yaml:"image" mapstructure:"image"`
	Scan     ScanConfig     `yaml:"scan" mapstructure:"scan"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
	Snapshot SnapshotConfig `yaml:"snapshot" mapstructure:"snapshot"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// ImageConfig describes the memory image to analyze.
type ImageConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Format string `yaml:"format" mapstructure:"format"` // auto or core
}

// ScanConfig represents brute-force scan settings.
type ScanConfig struct {
	BlockSize       int64 `yaml:"block_size" mapstructure:"block_size"` // bytes per bulk read, 0 = automatic
	IncludeReadOnly bool  `yaml:"include_read_only" mapstructure:"include_read_only"`
}

// ReportConfig represents histogram report settings.
type ReportConfig struct {
	SignatureProperties int `yaml:"signature_properties" mapstructure:"signature_properties"`
}

// SnapshotConfig represents heap-snapshot export settings.
type SnapshotConfig struct {
	Output string `yaml:"output" mapstructure:"output"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Image: ImageConfig{
			Format: "auto",
		},
		Scan: ScanConfig{
			BlockSize:       0,
			IncludeReadOnly: false,
		},
		Report: ReportConfig{
			SignatureProperties: 3,
		},
		Snapshot: SnapshotConfig{
			Output: "core.heapsnapshot",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
