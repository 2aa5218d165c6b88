package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type LoggingCfg struct {
	File         string `yaml:"file" json:"file"`                   // Audit log; empty disables it
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
}

type MetricsCfg struct {
	Textfile string `yaml:"textfile" json:"textfile"` // node_exporter textfile written after each run
}

type Config struct {
	WarnList          string     `yaml:"warn_list" json:"warn_list"`                     // One absolute path per line
	PreserveRoot      *bool      `yaml:"preserve_root" json:"preserve_root"`             // Refuse to operate recursively on "/" (default true)
	OneFileSystem     bool       `yaml:"one_file_system" json:"one_file_system"`         // Default for --one-file-system
	RequireRestoreCwd bool       `yaml:"require_restore_cwd" json:"require_restore_cwd"` // Fail the run if the walker cannot be closed cleanly
	HistoryDB         string     `yaml:"history_db" json:"history_db"`                   // SQLite removal history; empty disables it
	Logging           LoggingCfg `yaml:"logging" json:"logging"`
	Metrics           MetricsCfg `yaml:"metrics" json:"metrics"`

	home string
}

var errInvalidPath = errors.New("path must be absolute")

// DefaultDir is the per-user configuration directory below home.
func DefaultDir(home string) string {
	return filepath.Join(home, ".rmfd")
}

// DefaultPath is where the configuration file is looked for.
func DefaultPath(home string) string {
	return filepath.Join(DefaultDir(home), "config.yaml")
}

// Default returns the configuration used when no file exists. Without a
// home directory there is no default warn list.
func Default(home string) (*Config, error) {
	cfg := &Config{home: home}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration at path. "~/" in path-valued keys expands to home.
func Load(path, home string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	cfg.home = home
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path, home string) (*Config, error) {
	cfg, err := Load(path, home)
	if errors.Is(err, os.ErrNotExist) {
		return Default(home)
	}
	return cfg, err
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if c.PreserveRoot == nil {
		preserve := true
		c.PreserveRoot = &preserve
	}

	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30 // Default: keep logs for 30 days
	}

	if c.WarnList == "" && c.home != "" {
		c.WarnList = filepath.Join(DefaultDir(c.home), "warn.list")
	}

	for _, p := range []*string{&c.WarnList, &c.HistoryDB, &c.Logging.File, &c.Metrics.Textfile} {
		if *p == "" {
			continue
		}
		cp, err := c.cleanAbsolute(*p)
		if err != nil {
			return err
		}
		*p = cp
	}
	return nil
}

func (c *Config) cleanAbsolute(p string) (string, error) {
	if strings.HasPrefix(p, "~/") && c.home != "" {
		p = filepath.Join(c.home, p[2:])
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

// PreserveRootEnabled reports the effective preserve_root setting.
func (c *Config) PreserveRootEnabled() bool {
	return c.PreserveRoot == nil || *c.PreserveRoot
}
