package config

import (
	"strings"
	"testing"
)

func TestValidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Image.Path = "/var/dumps/core.1234"

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected no validation errors, got: %v", err)
	}
}

func TestMissingImagePath(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for missing image path")
	}
	if !strings.Contains(err.Error(), "image.path") {
		t.Errorf("expected error to mention image.path, got: %v", err)
	}
}

func TestInvalidImageFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Image.Path = "/var/dumps/core.1234"
	cfg.Image.Format = "minidump"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for invalid format")
	}
	if !strings.Contains(err.Error(), "image.format") {
		t.Errorf("expected error to mention image.format, got: %v", err)
	}
}

func TestNegativeBlockSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Image.Path = "/var/dumps/core.1234"
	cfg.Scan.BlockSize = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for negative block_size")
	}
	if !strings.Contains(err.Error(), "scan.block_size") {
		t.Errorf("expected error to mention scan.block_size, got: %v", err)
	}
}

func TestNegativeSignatureProperties(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Image.Path = "/var/dumps/core.1234"
	cfg.Report.SignatureProperties = -2

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for negative signature_properties")
	}
	if !strings.Contains(err.Error(), "report.signature_properties") {
		t.Errorf("expected error to mention report.signature_properties, got: %v", err)
	}
}

func TestEmptySnapshotOutput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Image.Path = "/var/dumps/core.1234"
	cfg.Snapshot.Output = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for empty snapshot output")
	}
	if !strings.Contains(err.Error(), "snapshot.output") {
		t.Errorf("expected error to mention snapshot.output, got: %v", err)
	}
}

func TestInvalidLogging(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Image.Path = "/var/dumps/core.1234"
	cfg.Logging.Level = "verbose"
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors for bad logging settings")
	}
	msg := err.Error()
	if !strings.Contains(msg, "logging.level") {
		t.Errorf("expected error to mention logging.level, got: %v", err)
	}
	if !strings.Contains(msg, "logging.format") {
		t.Errorf("expected error to mention logging.format, got: %v", err)
	}
}

func TestMultipleErrorsCollected(t *testing.T) {
	cfg := &Config{} // everything empty or zero

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}

	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) < 2 {
		t.Errorf("expected multiple errors, got %d", len(verrs))
	}
}

func TestValidationErrorMessage(t *testing.T) {
	verr := ValidationError{Field: "image.path", Message: "path is required"}
	if verr.Error() != "image.path: path is required" {
		t.Errorf("unexpected error string: %s", verr.Error())
	}

	var empty ValidationErrors
	if empty.Error() != "" {
		t.Errorf("empty ValidationErrors should render empty string")
	}
}
