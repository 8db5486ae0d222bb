package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override (TEMPINBOX_API_BASE_URL).
const EnvPrefix = "TEMPINBOX"

// APIConfig holds the backend connection settings.
type APIConfig struct {
	// BaseURL is the root URL of the disposable-mail backend.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single HTTP round trip.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// RequestsPerSecond throttles outgoing requests; 0 disables throttling.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the token bucket size used with RequestsPerSecond.
	Burst int `mapstructure:"burst" yaml:"burst"`
}

// PollConfig holds the adaptive polling schedule.
type PollConfig struct {
	StartMs    int     `mapstructure:"start_ms" yaml:"start_ms"`
	MaxMs      int     `mapstructure:"max_ms" yaml:"max_ms"`
	Multiplier float64 `mapstructure:"multiplier" yaml:"multiplier"`
}

// Start returns the initial poll delay.
func (p PollConfig) Start() time.Duration {
	return time.Duration(p.StartMs) * time.Millisecond
}

// Max returns the poll delay ceiling.
func (p PollConfig) Max() time.Duration {
	return time.Duration(p.MaxMs) * time.Millisecond
}

// InboxConfig holds mailbox creation preferences.
type InboxConfig struct {
	DefaultTTLSec int   `mapstructure:"default_ttl_sec" yaml:"default_ttl_sec"`
	MinTTLSec     int   `mapstructure:"min_ttl_sec" yaml:"min_ttl_sec"`
	MaxTTLSec     int   `mapstructure:"max_ttl_sec" yaml:"max_ttl_sec"`
	TTLOptions    []int `mapstructure:"ttl_options" yaml:"ttl_options"`
}

// DefaultTTL returns the default mailbox lifetime.
func (c InboxConfig) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLSec) * time.Second
}

// ClampTTL bounds ttl to the configured range.
func (c InboxConfig) ClampTTL(ttl time.Duration) time.Duration {
	lo := time.Duration(c.MinTTLSec) * time.Second
	hi := time.Duration(c.MaxTTLSec) * time.Second
	if ttl < lo {
		return lo
	}
	if ttl > hi {
		return hi
	}
	return ttl
}

// LogConfig holds the log sink settings.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// ArchiveConfig holds the IMAP mailbox that saved messages are appended to.
// The password lives in the system keyring, never in the file.
type ArchiveConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	IMAPHost string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort string `mapstructure:"imap_port" yaml:"imap_port"`
	Username string `mapstructure:"username" yaml:"username"`
	Folder   string `mapstructure:"folder" yaml:"folder"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API         APIConfig     `mapstructure:"api" yaml:"api"`
	Poll        PollConfig    `mapstructure:"poll" yaml:"poll"`
	Inbox       InboxConfig   `mapstructure:"inbox" yaml:"inbox"`
	Log         LogConfig     `mapstructure:"log" yaml:"log"`
	Archive     ArchiveConfig `mapstructure:"archive" yaml:"archive"`
	DownloadDir string        `mapstructure:"download_dir" yaml:"download_dir"`
	DBPath      string        `mapstructure:"db_path" yaml:"db_path"`
}

// Validate reports configuration that cannot work.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api.base_url must not be empty")
	}
	if c.Inbox.MinTTLSec <= 0 || c.Inbox.MaxTTLSec < c.Inbox.MinTTLSec {
		return fmt.Errorf(
			"inbox ttl bounds invalid: min=%d max=%d",
			c.Inbox.MinTTLSec, c.Inbox.MaxTTLSec,
		)
	}
	if c.Archive.Enabled && (c.Archive.IMAPHost == "" || c.Archive.Username == "") {
		return errors.New("archive.imap_host and archive.username are required when archive is enabled")
	}
	return nil
}

// ConfigDir returns ~/.config/tempinbox, falling back to the working directory.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "tempinbox")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/tempinbox/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://localhost:8001",
			TimeoutSec: 30,
			Burst:      1,
		},
		Poll: PollConfig{
			StartMs:    5000,
			MaxMs:      30000,
			Multiplier: 1.5,
		},
		Inbox: InboxConfig{
			DefaultTTLSec: 3600,
			MinTTLSec:     600,
			MaxTTLSec:     86400,
			TTLOptions:    []int{600, 3600, 21600, 86400},
		},
		Log: LogConfig{
			Level:      "info",
			File:       filepath.Join(dir, "tempinbox.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Compress:   true,
		},
		Archive: ArchiveConfig{
			IMAPPort: "993",
			Folder:   "Archive",
			TLS:      true,
		},
		DownloadDir: filepath.Join(dir, "downloads"),
		DBPath:      filepath.Join(dir, "tempinbox.db"),
	}
}

// setDefaults registers every key with viper so AutomaticEnv can resolve
// overrides for keys absent from the file.
func setDefaults(v *viper.Viper, d *AppConfig) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout_sec", d.API.TimeoutSec)
	v.SetDefault("api.requests_per_second", d.API.RequestsPerSecond)
	v.SetDefault("api.burst", d.API.Burst)
	v.SetDefault("poll.start_ms", d.Poll.StartMs)
	v.SetDefault("poll.max_ms", d.Poll.MaxMs)
	v.SetDefault("poll.multiplier", d.Poll.Multiplier)
	v.SetDefault("inbox.default_ttl_sec", d.Inbox.DefaultTTLSec)
	v.SetDefault("inbox.min_ttl_sec", d.Inbox.MinTTLSec)
	v.SetDefault("inbox.max_ttl_sec", d.Inbox.MaxTTLSec)
	v.SetDefault("inbox.ttl_options", d.Inbox.TTLOptions)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)
	v.SetDefault("archive.enabled", d.Archive.Enabled)
	v.SetDefault("archive.imap_host", d.Archive.IMAPHost)
	v.SetDefault("archive.imap_port", d.Archive.IMAPPort)
	v.SetDefault("archive.username", d.Archive.Username)
	v.SetDefault("archive.folder", d.Archive.Folder)
	v.SetDefault("archive.tls", d.Archive.TLS)
	v.SetDefault("download_dir", d.DownloadDir)
	v.SetDefault("db_path", d.DBPath)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Values resolve in order: TEMPINBOX_* environment (including a .env file
// in the working directory), the file, then defaults. A missing file is
// not an error.
func LoadConfig(path string) (*AppConfig, error) {
	// .env is optional.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := defaultAppConfig()
	setDefaults(v, defaults)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaults
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("poll", cfg.Poll)
	v.Set("inbox", cfg.Inbox)
	v.Set("log", cfg.Log)
	v.Set("archive", cfg.Archive)
	v.Set("download_dir", cfg.DownloadDir)
	v.Set("db_path", cfg.DBPath)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
