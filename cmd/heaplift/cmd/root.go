package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile   string
	imagePath string
	logLevel  string
	logFormat string
	blockSize int64
	sigProps  int
)

var rootCmd = &cobra.Command{
	Use:   "heaplift",
	Short: "Managed-heap object scanner for postmortem memory images",
	Long: `A CLI tool for exploring the managed object heap inside a process
core dump: what types are alive, how many, how big, who references
what, exported as tables or as a devtools-loadable heap snapshot.

Features:
  - Brute-force heap discovery over the writable memory regions
  - Per-type and per-signature instance histograms
  - Reverse reference lookup by value, property name, or string content
  - Heap snapshot JSON export`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"Path to configuration file (optional)")

	// Image selection
	rootCmd.PersistentFlags().StringVarP(&imagePath, "image", "i", "",
		"Path to the core dump to analyze")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Scan overrides
	rootCmd.PersistentFlags().Int64Var(&blockSize, "block-size", 0,
		"Override bulk read size in bytes (0 = automatic)")
	rootCmd.PersistentFlags().IntVar(&sigProps, "properties", 0,
		"Override property count in detailed type signatures")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	ImagePath string
	LogLevel  string
	LogFormat string
	BlockSize int64
	SigProps  int
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		ImagePath: imagePath,
		LogLevel:  logLevel,
		LogFormat: logFormat,
		BlockSize: blockSize,
		SigProps:  sigProps,
	}
}
