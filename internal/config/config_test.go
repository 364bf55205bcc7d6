package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.ShowHidden)
	assert.True(t, cfg.RespectIgnoreRules)
	assert.Equal(t, 100, cfg.AutoExpandLimit)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 50*time.Millisecond, cfg.FlushInterval)
	assert.Equal(t, 0, cfg.Threads)
	assert.Equal(t, 1024, cfg.ChannelCapacity)
	assert.Equal(t, 8192, cfg.BinarySampleSize)
	assert.True(t, cfg.LineStats)
	assert.Equal(t, 4096, cfg.LineStatsCacheSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{".codeviewignore"}, cfg.ExtraIgnoreFiles)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "full file",
			content: `show_hidden: true
respect_ignore_rules: false
auto_expand_limit: 25
batch_size: 10
flush_interval: 200ms
threads: 4
channel_capacity: 64
binary_sample_size: 512
line_stats: false
line_stats_cache_size: 0
log_level: debug
log_dir: /tmp/codeview-logs
history_db: /tmp/history.db
extra_ignore_files: [".scanignore"]
`,
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.ShowHidden)
				assert.False(t, cfg.RespectIgnoreRules)
				assert.Equal(t, 25, cfg.AutoExpandLimit)
				assert.Equal(t, 10, cfg.BatchSize)
				assert.Equal(t, 200*time.Millisecond, cfg.FlushInterval)
				assert.Equal(t, 4, cfg.Threads)
				assert.Equal(t, 64, cfg.ChannelCapacity)
				assert.Equal(t, 512, cfg.BinarySampleSize)
				assert.False(t, cfg.LineStats)
				assert.Equal(t, 0, cfg.LineStatsCacheSize)
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, "/tmp/codeview-logs", cfg.LogDir)
				assert.Equal(t, "/tmp/history.db", cfg.HistoryDB)
				assert.Equal(t, []string{".scanignore"}, cfg.ExtraIgnoreFiles)
			},
		},
		{
			name:    "partial file keeps defaults",
			content: "show_hidden: true\n",
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.ShowHidden)
				assert.True(t, cfg.RespectIgnoreRules)
				assert.Equal(t, 100, cfg.BatchSize)
			},
		},
		{
			name:    "explicit zero overrides default",
			content: "auto_expand_limit: 0\nextra_ignore_files: []\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 0, cfg.AutoExpandLimit)
				assert.Empty(t, cfg.ExtraIgnoreFiles)
			},
		},
		{
			name:    "empty file",
			content: "",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultConfig(), cfg)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.content))
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"malformed yaml", "batch_size: [unclosed", "failed to parse config file"},
		{"bad duration", "flush_interval: soon", `invalid flush_interval format "soon"`},
		{"wrong type", "batch_size: many", "failed to parse config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfigFromDir(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg, "missing file yields defaults")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".codeview"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codeview", "config.yaml"), []byte("threads: 2\n"), 0644))

	cfg, err = LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Threads)
}

func TestPrecedence_FileEnvFlags(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "log_level: warn\nthreads: 2\n"))
	require.NoError(t, err)

	t.Setenv(LogLevelEnv, "debug")
	cfg.ApplyEnv()
	assert.Equal(t, "debug", cfg.LogLevel)

	level := "error"
	threads := 6
	hidden := true
	cfg.MergeWithFlags(Overrides{LogLevel: &level, Threads: &threads, ShowHidden: &hidden})

	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 6, cfg.Threads)
	assert.True(t, cfg.ShowHidden)
	assert.True(t, cfg.RespectIgnoreRules, "unset flags leave values alone")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"negative auto expand", func(c *Config) { c.AutoExpandLimit = -1 }, "auto_expand_limit"},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"negative flush interval", func(c *Config) { c.FlushInterval = -time.Second }, "flush_interval"},
		{"negative threads", func(c *Config) { c.Threads = -2 }, "threads"},
		{"zero channel capacity", func(c *Config) { c.ChannelCapacity = 0 }, "channel_capacity"},
		{"oversized binary sample", func(c *Config) { c.BinarySampleSize = 9000 }, "binary_sample_size"},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"empty ignore file name", func(c *Config) { c.ExtraIgnoreFiles = []string{""} }, "extra_ignore_files"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_NormalizesLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = " WARN "
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestGetCodeviewHome(t *testing.T) {
	t.Run("env var", func(t *testing.T) {
		home := filepath.Join(t.TempDir(), "custom")
		t.Setenv(HomeEnv, home)

		got, err := GetCodeviewHome()
		require.NoError(t, err)
		assert.Equal(t, home, got)
		assert.DirExists(t, home)
	})

	t.Run("user config dir", func(t *testing.T) {
		base := t.TempDir()
		t.Setenv(HomeEnv, "")
		t.Setenv("XDG_CONFIG_HOME", base)
		t.Setenv("HOME", base)

		got, err := GetCodeviewHome()
		require.NoError(t, err)
		assert.Equal(t, "codeview", filepath.Base(got))
		assert.DirExists(t, got)
	})
}

func TestHistoryDBPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	cfg := DefaultConfig()
	path, err := cfg.HistoryDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "history.db"), path)

	cfg.HistoryDB = "/elsewhere/h.db"
	path, err = cfg.HistoryDBPath()
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/h.db", path)
}
