package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/memelens/memelens/internal/slideshow"
)

const EnvPrefix = "MEMELENS"

type Config struct {
	Slideshow SlideshowConfig `mapstructure:"slideshow" yaml:"slideshow"`
	Surface   SurfaceConfig   `mapstructure:"surface" yaml:"surface"`
	Menu      MenuConfig      `mapstructure:"menu" yaml:"menu"`
	Tracker   TrackerConfig   `mapstructure:"tracker" yaml:"tracker"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Mock      MockConfig      `mapstructure:"mock" yaml:"mock"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

type SlideshowConfig struct {
	BaseLink     string        `mapstructure:"base_link" yaml:"base_link"`
	Format       string        `mapstructure:"format" yaml:"format"`
	MinIndex     int           `mapstructure:"min_index" yaml:"min_index"`
	MaxIndex     int           `mapstructure:"max_index" yaml:"max_index"`
	BaseSize     float64       `mapstructure:"base_size" yaml:"base_size"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
	MaxBytes     int64         `mapstructure:"max_bytes" yaml:"max_bytes"`
}

type SurfaceConfig struct {
	CellsPerUnit float64 `mapstructure:"cells_per_unit" yaml:"cells_per_unit"` // terminal columns per target unit
}

type MenuConfig struct {
	Background string `mapstructure:"background" yaml:"background"` // local image path, optional
}

// TrackerConfig points the viewer at a tracker bridge. An empty URL runs the
// viewer with simulated tracking keys. An empty Target follows whichever
// marker is seen first in each scanning session.
type TrackerConfig struct {
	URL    string `mapstructure:"url" yaml:"url"`
	Token  string `mapstructure:"token" yaml:"token"`
	Target string `mapstructure:"target" yaml:"target"`
}

type ServerConfig struct {
	Host             string        `mapstructure:"host" yaml:"host"`
	Port             int           `mapstructure:"port" yaml:"port"`
	AuthToken        string        `mapstructure:"auth_token" yaml:"auth_token"`
	AllowedOrigins   []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval" yaml:"snapshot_interval"`
	MaxConnections   int           `mapstructure:"max_connections" yaml:"max_connections"` // 0 means unlimited
}

type MockConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

type CacheConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"` // empty disables the image cache
}

type LoggingConfig struct {
	File  string `mapstructure:"file" yaml:"file"`
	Level string `mapstructure:"level" yaml:"level"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"` // viewer metrics listener, empty disables
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Slideshow: SlideshowConfig{
			BaseLink:     "https://example.com/memes/meme",
			Format:       ".jpg",
			MinIndex:     1,
			MaxIndex:     24,
			BaseSize:     0.3,
			FetchTimeout: 15 * time.Second,
			MaxBytes:     16 << 20,
		},
		Surface: SurfaceConfig{
			CellsPerUnit: 100,
		},
		Server: ServerConfig{
			Host:             "127.0.0.1",
			Port:             8090,
			SnapshotInterval: 5 * time.Second,
			MaxConnections:   32,
		},
		Mock: MockConfig{
			Enabled:  true,
			Interval: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "memelens", "memelens.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "memelens", "memelens.log")
	}
}

// Dir returns the per-user config directory.
func Dir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "memelens")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "memelens")
	}
}

// DefaultPath is where `config init` writes when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads configuration from path (or config.yaml in ./ and Dir() when
// path is empty), then applies MEMELENS_* environment overrides. A missing
// config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("slideshow.base_link", d.Slideshow.BaseLink)
	v.SetDefault("slideshow.format", d.Slideshow.Format)
	v.SetDefault("slideshow.min_index", d.Slideshow.MinIndex)
	v.SetDefault("slideshow.max_index", d.Slideshow.MaxIndex)
	v.SetDefault("slideshow.base_size", d.Slideshow.BaseSize)
	v.SetDefault("slideshow.fetch_timeout", d.Slideshow.FetchTimeout)
	v.SetDefault("slideshow.max_bytes", d.Slideshow.MaxBytes)
	v.SetDefault("surface.cells_per_unit", d.Surface.CellsPerUnit)
	v.SetDefault("menu.background", d.Menu.Background)
	v.SetDefault("tracker.url", d.Tracker.URL)
	v.SetDefault("tracker.token", d.Tracker.Token)
	v.SetDefault("tracker.target", d.Tracker.Target)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.auth_token", d.Server.AuthToken)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.snapshot_interval", d.Server.SnapshotInterval)
	v.SetDefault("server.max_connections", d.Server.MaxConnections)
	v.SetDefault("mock.enabled", d.Mock.Enabled)
	v.SetDefault("mock.interval", d.Mock.Interval)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// Validate rejects configurations the viewer or tracker cannot run with.
func (c *Config) Validate() error {
	if err := c.Sequence().Validate(); err != nil {
		return fmt.Errorf("invalid slideshow: %w", err)
	}
	if c.Slideshow.BaseSize <= 0 {
		return fmt.Errorf("invalid slideshow: base_size must be positive, got %v", c.Slideshow.BaseSize)
	}
	if c.Slideshow.FetchTimeout <= 0 {
		return fmt.Errorf("invalid slideshow: fetch_timeout must be positive, got %v", c.Slideshow.FetchTimeout)
	}
	if c.Slideshow.MaxBytes <= 0 {
		return fmt.Errorf("invalid slideshow: max_bytes must be positive, got %d", c.Slideshow.MaxBytes)
	}
	if c.Surface.CellsPerUnit <= 0 {
		return fmt.Errorf("invalid surface: cells_per_unit must be positive, got %v", c.Surface.CellsPerUnit)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server: port %d out of range", c.Server.Port)
	}
	if c.Mock.Enabled && c.Mock.Interval <= 0 {
		return fmt.Errorf("invalid mock: interval must be positive, got %v", c.Mock.Interval)
	}
	return nil
}

// Sequence returns the slideshow range and URL template.
func (c *Config) Sequence() slideshow.Sequence {
	return slideshow.Sequence{
		BaseLink: c.Slideshow.BaseLink,
		Format:   c.Slideshow.Format,
		Min:      c.Slideshow.MinIndex,
		Max:      c.Slideshow.MaxIndex,
	}
}

// Simulated reports whether the viewer runs without a tracker bridge.
func (c *Config) Simulated() bool {
	return c.Tracker.URL == ""
}

// ListenAddr returns the tracker server's host:port.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Write saves cfg as YAML at path, creating the directory.
func Write(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
