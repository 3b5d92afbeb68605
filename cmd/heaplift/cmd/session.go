package cmd

import (
	"fmt"

	"github.com/heaplift/heaplift/internal/config"
	"github.com/heaplift/heaplift/internal/image"
	"github.com/heaplift/heaplift/internal/logger"
	"github.com/heaplift/heaplift/internal/scan"
	"github.com/heaplift/heaplift/internal/tagvm"
)

// loadConfig assembles the effective configuration: file if given,
// defaults otherwise, CLI flags on top.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configFile := GetConfigFile(); configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.BlockSize, overrides.SigProps)
	if overrides.ImagePath != "" {
		cfg.Image.Path = overrides.ImagePath
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession opens the configured image and prepares a scan session
// over it. The caller owns nothing to close; the image is read lazily.
func openSession() (*scan.Session, *config.Config, *logger.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log = log.WithImage(cfg.Image.Path)

	img, err := image.OpenCore(cfg.Image.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open image: %w", err)
	}

	session := scan.NewSession(img, tagvm.New(img), log, scan.Options{
		BlockSize:           cfg.Scan.BlockSize,
		IncludeReadOnly:     cfg.Scan.IncludeReadOnly,
		SignatureProperties: cfg.Report.SignatureProperties,
	})
	return session, cfg, log, nil
}
