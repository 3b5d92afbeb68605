package config

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Image.Format != "auto" {
		t.Errorf("expected default image format 'auto', got %s", cfg.Image.Format)
	}
	if cfg.Scan.BlockSize != 0 {
		t.Errorf("expected default scan block_size 0, got %d", cfg.Scan.BlockSize)
	}
	if cfg.Scan.IncludeReadOnly {
		t.Error("expected include_read_only to default to false")
	}
	if cfg.Report.SignatureProperties != 3 {
		t.Errorf("expected default signature_properties 3, got %d", cfg.Report.SignatureProperties)
	}
	if cfg.Snapshot.Output != "core.heapsnapshot" {
		t.Errorf("expected default snapshot output 'core.heapsnapshot', got %s", cfg.Snapshot.Output)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected default log format 'text', got %s", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("expected default log output 'stderr', got %s", cfg.Logging.Output)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()

	cfg.ApplyOverrides("debug", "json", 1<<20, 5)

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json', got %s", cfg.Logging.Format)
	}
	if cfg.Scan.BlockSize != 1<<20 {
		t.Errorf("expected block_size %d, got %d", 1<<20, cfg.Scan.BlockSize)
	}
	if cfg.Report.SignatureProperties != 5 {
		t.Errorf("expected signature_properties 5, got %d", cfg.Report.SignatureProperties)
	}
}

func TestApplyOverridesZeroValues(t *testing.T) {
	cfg := DefaultConfig()

	cfg.ApplyOverrides("", "", 0, 0)

	if cfg.Logging.Level != "info" {
		t.Errorf("empty override should keep log level, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("empty override should keep log format, got %s", cfg.Logging.Format)
	}
	if cfg.Scan.BlockSize != 0 {
		t.Errorf("zero override should keep block_size, got %d", cfg.Scan.BlockSize)
	}
	if cfg.Report.SignatureProperties != 3 {
		t.Errorf("zero override should keep signature_properties, got %d", cfg.Report.SignatureProperties)
	}
}
