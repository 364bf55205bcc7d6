// Package config loads codeview settings from YAML, the environment and
// command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// LogLevelEnv overrides log_level from the config file.
const LogLevelEnv = "CODEVIEW_LOG_LEVEL"

// MaxBinarySampleSize caps binary_sample_size.
const MaxBinarySampleSize = 8192

func init() {
	// Report validation failures with the YAML key names.
	validation.ErrorTag = "yaml"
}

// Config represents codeview configuration options
type Config struct {
	// ShowHidden includes dot-files and dot-directories in scans
	ShowHidden bool `yaml:"show_hidden"`

	// RespectIgnoreRules applies .gitignore, .ignore and git exclude files
	RespectIgnoreRules bool `yaml:"respect_ignore_rules"`

	// AutoExpandLimit expands every directory when a scan finds at most this many files (0 = never)
	AutoExpandLimit int `yaml:"auto_expand_limit"`

	// BatchSize is the maximum number of discoveries per AddNodes message
	BatchSize int `yaml:"batch_size"`

	// FlushInterval is the maximum age of a partial batch
	FlushInterval time.Duration `yaml:"flush_interval"`

	// Threads is the walker pool size (0 = min(NumCPU, 8))
	Threads int `yaml:"threads"`

	// ChannelCapacity bounds the walker to relay stream
	ChannelCapacity int `yaml:"channel_capacity"`

	// BinarySampleSize is how many leading bytes are checked for NUL
	BinarySampleSize int `yaml:"binary_sample_size"`

	// LineStats enables per-file code/comment/blank counts
	LineStats bool `yaml:"line_stats"`

	// LineStatsCacheSize is the LRU capacity for line statistics (0 = no cache)
	LineStatsCacheSize int `yaml:"line_stats_cache_size"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir enables per-run file logs when non-empty
	LogDir string `yaml:"log_dir"`

	// HistoryDB is the SQLite history path; empty means $CODEVIEW_HOME/history.db
	HistoryDB string `yaml:"history_db"`

	// ExtraIgnoreFiles are per-directory ignore file names read in addition to .gitignore and .ignore
	ExtraIgnoreFiles []string `yaml:"extra_ignore_files"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ShowHidden:         false,
		RespectIgnoreRules: true,
		AutoExpandLimit:    100,
		BatchSize:          100,
		FlushInterval:      50 * time.Millisecond,
		Threads:            0,
		ChannelCapacity:    1024,
		BinarySampleSize:   MaxBinarySampleSize,
		LineStats:          true,
		LineStatsCacheSize: 4096,
		LogLevel:           "info",
		LogDir:             "",
		HistoryDB:          "",
		ExtraIgnoreFiles:   []string{".codeviewignore"},
	}
}

// fileConfig mirrors Config with pointers so that keys present in the file
// override defaults even when they hold zero values.
type fileConfig struct {
	ShowHidden         *bool     `yaml:"show_hidden"`
	RespectIgnoreRules *bool     `yaml:"respect_ignore_rules"`
	AutoExpandLimit    *int      `yaml:"auto_expand_limit"`
	BatchSize          *int      `yaml:"batch_size"`
	FlushInterval      *string   `yaml:"flush_interval"`
	Threads            *int      `yaml:"threads"`
	ChannelCapacity    *int      `yaml:"channel_capacity"`
	BinarySampleSize   *int      `yaml:"binary_sample_size"`
	LineStats          *bool     `yaml:"line_stats"`
	LineStatsCacheSize *int      `yaml:"line_stats_cache_size"`
	LogLevel           *string   `yaml:"log_level"`
	LogDir             *string   `yaml:"log_dir"`
	HistoryDB          *string   `yaml:"history_db"`
	ExtraIgnoreFiles   *[]string `yaml:"extra_ignore_files"`
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if fc.FlushInterval != nil {
		d, err := time.ParseDuration(*fc.FlushInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid flush_interval format %q: %w", *fc.FlushInterval, err)
		}
		cfg.FlushInterval = d
	}
	setIf(&cfg.ShowHidden, fc.ShowHidden)
	setIf(&cfg.RespectIgnoreRules, fc.RespectIgnoreRules)
	setIf(&cfg.AutoExpandLimit, fc.AutoExpandLimit)
	setIf(&cfg.BatchSize, fc.BatchSize)
	setIf(&cfg.Threads, fc.Threads)
	setIf(&cfg.ChannelCapacity, fc.ChannelCapacity)
	setIf(&cfg.BinarySampleSize, fc.BinarySampleSize)
	setIf(&cfg.LineStats, fc.LineStats)
	setIf(&cfg.LineStatsCacheSize, fc.LineStatsCacheSize)
	setIf(&cfg.LogLevel, fc.LogLevel)
	setIf(&cfg.LogDir, fc.LogDir)
	setIf(&cfg.HistoryDB, fc.HistoryDB)
	setIf(&cfg.ExtraIgnoreFiles, fc.ExtraIgnoreFiles)

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .codeview/config.yaml in dir.
// If the directory or file doesn't exist, returns default configuration without error.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".codeview", "config.yaml"))
}

// ApplyEnv applies environment overrides. It runs after the file is loaded
// and before flags are merged.
func (c *Config) ApplyEnv() {
	if level := strings.TrimSpace(os.Getenv(LogLevelEnv)); level != "" {
		c.LogLevel = level
	}
}

// Overrides carries CLI flag values. Nil fields were not set on the command line.
type Overrides struct {
	ShowHidden         *bool
	RespectIgnoreRules *bool
	AutoExpandLimit    *int
	Threads            *int
	BatchSize          *int
	FlushInterval      *time.Duration
	LineStats          *bool
	LogLevel           *string
	LogDir             *string
	HistoryDB          *string
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(o Overrides) {
	setIf(&c.ShowHidden, o.ShowHidden)
	setIf(&c.RespectIgnoreRules, o.RespectIgnoreRules)
	setIf(&c.AutoExpandLimit, o.AutoExpandLimit)
	setIf(&c.Threads, o.Threads)
	setIf(&c.BatchSize, o.BatchSize)
	setIf(&c.FlushInterval, o.FlushInterval)
	setIf(&c.LineStats, o.LineStats)
	setIf(&c.LogLevel, o.LogLevel)
	setIf(&c.LogDir, o.LogDir)
	setIf(&c.HistoryDB, o.HistoryDB)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	return validation.ValidateStruct(c,
		validation.Field(&c.AutoExpandLimit, validation.Min(0)),
		validation.Field(&c.BatchSize, validation.Required, validation.Min(1)),
		validation.Field(&c.FlushInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Threads, validation.Min(0)),
		validation.Field(&c.ChannelCapacity, validation.Required, validation.Min(1)),
		validation.Field(&c.BinarySampleSize, validation.Required, validation.Min(1), validation.Max(MaxBinarySampleSize)),
		validation.Field(&c.LineStatsCacheSize, validation.Min(0)),
		validation.Field(&c.LogLevel, validation.Required, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&c.ExtraIgnoreFiles, validation.Each(validation.Required)),
	)
}
