// Package config loads the YAML configuration of the c3dctl tool.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Directory  string `yaml:"directory"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
	// Quiet suppresses the stderr copy of the log.
	Quiet bool `yaml:"quiet"`
}

type ReportConfig struct {
	Title  string `yaml:"title"`
	Lang   string `yaml:"lang"`
	QRSize int    `yaml:"qrSize"`
	// OutputDir receives report files given without a directory.
	OutputDir string `yaml:"outputDir"`
}

type DumpConfig struct {
	// Limit caps the number of exported frames; 0 exports all.
	Limit        int           `yaml:"limit"`
	SkipInvalid  bool          `yaml:"skipInvalid"`
	Progress     bool          `yaml:"progress"`
	ProgressTick time.Duration `yaml:"progressInterval"`
}

type Config struct {
	Logs   LogConfig    `yaml:"logs"`
	Report ReportConfig `yaml:"report"`
	Dump   DumpConfig   `yaml:"dump"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// Load decodes the YAML file at path and fills unset fields with defaults.
// Relative directories are resolved against the directory of the file.
func Load(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	baseDir := filepath.Dir(path)
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Clean(filepath.Join(baseDir, p))
	}
	cfg.Logs.Directory = resolvePath(cfg.Logs.Directory)
	cfg.Report.OutputDir = resolvePath(cfg.Report.OutputDir)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Logs.Directory == "" {
		cfg.Logs.Directory = filepath.Join(".", "logs")
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 25
	}
	if cfg.Logs.MaxAgeDays <= 0 {
		cfg.Logs.MaxAgeDays = 7
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}
	if cfg.Report.Title == "" {
		cfg.Report.Title = "Capture Report"
	}
	if cfg.Report.Lang == "" {
		cfg.Report.Lang = "en"
	}
	if cfg.Report.QRSize <= 0 {
		cfg.Report.QRSize = 256
	}
	if cfg.Dump.ProgressTick <= 0 {
		cfg.Dump.ProgressTick = time.Second
	}
}

// Validate rejects values that cannot be defaulted.
func (cfg Config) Validate() error {
	if cfg.Dump.Limit < 0 {
		return fmt.Errorf("dump.limit must be >= 0, got %d", cfg.Dump.Limit)
	}
	if cfg.Report.QRSize > 2048 {
		return fmt.Errorf("report.qrSize too large: %d", cfg.Report.QRSize)
	}
	return nil
}
