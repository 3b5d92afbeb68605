package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if err := c.validateImage(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateScan(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateReport(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateSnapshot(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateLogging(); err != nil {
		errors = append(errors, err...)
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateImage() ValidationErrors {
	var errors ValidationErrors

	if c.Image.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "image.path",
			Message: "path is required",
		})
	}

	validFormats := map[string]bool{"auto": true, "core": true, "": true}
	if !validFormats[c.Image.Format] {
		errors = append(errors, ValidationError{
			Field:   "image.format",
			Message: "format must be 'auto' or 'core'",
		})
	}

	return errors
}

func (c *Config) validateScan() ValidationErrors {
	var errors ValidationErrors

	if c.Scan.BlockSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "scan.block_size",
			Message: "block_size cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateReport() ValidationErrors {
	var errors ValidationErrors

	if c.Report.SignatureProperties < 0 {
		errors = append(errors, ValidationError{
			Field:   "report.signature_properties",
			Message: "signature_properties cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateSnapshot() ValidationErrors {
	var errors ValidationErrors

	if c.Snapshot.Output == "" {
		errors = append(errors, ValidationError{
			Field:   "snapshot.output",
			Message: "output path is required",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
