package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// StoreConfig holds the connection settings for the remote document store.
type StoreConfig struct {
	// BaseURL is the root URL of the document store
	// (e.g., https://board-default-rtdb.example.com).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds every request made to the store.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// GuestPrefix is the path prefix used for guest sessions.
	GuestPrefix string `mapstructure:"guest_prefix" yaml:"guest_prefix"`

	// MemberPrefix is the path prefix used for signed-in users. The
	// placeholder {user} is replaced with the user ID.
	MemberPrefix string `mapstructure:"member_prefix" yaml:"member_prefix"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme           string `mapstructure:"theme" yaml:"theme"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// DocstoreConfig configures the bundled reference document store server.
type DocstoreConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	DBPath    string `mapstructure:"db_path" yaml:"db_path"`
	AuthToken string `mapstructure:"auth_token" yaml:"auth_token"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Docstore DocstoreConfig `mapstructure:"docstore" yaml:"docstore"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskboard/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskboard", "config.yaml")
}

// DefaultDocstorePath returns the default SQLite file for the reference
// document store.
func DefaultDocstorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "docstore.db")
	}
	return filepath.Join(home, ".local", "share", "taskboard", "docstore.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Store: StoreConfig{
			BaseURL:      "http://localhost:8321",
			TimeoutSec:   15,
			GuestPrefix:  "guest",
			MemberPrefix: "users/{user}",
		},
		Display: DisplayConfig{
			Theme:           "default",
			PollIntervalSec: 60,
		},
		Docstore: DocstoreConfig{
			Addr:   ":8321",
			DBPath: DefaultDocstorePath(),
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("store.base_url", d.Store.BaseURL)
	v.SetDefault("store.timeout_sec", d.Store.TimeoutSec)
	v.SetDefault("store.guest_prefix", d.Store.GuestPrefix)
	v.SetDefault("store.member_prefix", d.Store.MemberPrefix)
	v.SetDefault("display.theme", d.Display.Theme)
	v.SetDefault("display.poll_interval_sec", d.Display.PollIntervalSec)
	v.SetDefault("docstore.addr", d.Docstore.Addr)
	v.SetDefault("docstore.db_path", d.Docstore.DBPath)
	v.SetDefault("docstore.auth_token", "")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with TASKBOARD_ override file values
// (e.g., TASKBOARD_STORE_BASE_URL). A missing file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TASKBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Store.TimeoutSec <= 0 {
		cfg.Store.TimeoutSec = 15
	}
	if cfg.Display.PollIntervalSec < 0 {
		cfg.Display.PollIntervalSec = 0
	}
	cfg.Store.BaseURL = strings.TrimRight(cfg.Store.BaseURL, "/")

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

	v.Set("store", cfg.Store)
	v.Set("display", cfg.Display)
	v.Set("docstore", cfg.Docstore)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
