package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"crmgrip/internal/domain"
)

const (
	currentVersion = 1

	FileBaseName = ".crmgrip"
	FileName     = FileBaseName + ".toml"
	EnvPrefix    = "CRMGRIP"

	KeyVersion       = "version"
	KeyDebug         = "debug"
	KeyRenderTimeout = "render.timeout"
	KeyFrameInterval = "render.frame_interval"
	KeyDebounce      = "bus.debounce"
	KeyScopes        = "ui.scopes"
	KeyRowsFile      = "ui.rows_file"
	KeyLogFilename   = "log.filename"
	KeyLogLevel      = "log.level"
	KeyLogMaxSize    = "log.max_size"
	KeyLogMaxBackups = "log.max_backups"
	KeyLogMaxAge     = "log.max_age"
	KeyLogCompress   = "log.compress"
)

// Config represents the application configuration
type Config struct {
	Version int            `mapstructure:"version"`
	Debug   bool           `mapstructure:"debug"`
	Render  RenderSettings `mapstructure:"render"`
	Bus     BusSettings    `mapstructure:"bus"`
	UI      UISettings     `mapstructure:"ui"`
	Log     LogSettings    `mapstructure:"log"`
}

// RenderSettings tunes the render guard
type RenderSettings struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	FrameInterval time.Duration `mapstructure:"frame_interval"`
}

// BusSettings tunes the mutation bus. Zero debounce dispatches synchronously.
type BusSettings struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// UISettings represents UI-related configuration
type UISettings struct {
	Scopes   []string `mapstructure:"scopes"`
	RowsFile string   `mapstructure:"rows_file"`
}

// LogSettings configures the rotating log file
type LogSettings struct {
	Filename   string `mapstructure:"filename"`
	Level      string `mapstructure:"level"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// ConfigService handles configuration management
type ConfigService interface {
	Load() (*Config, error)
	Save(config *Config) error
	LoadFromPath(path string) (*Config, error)
	SaveToPath(config *Config, path string) error
	Path() string
}

// configService is the concrete implementation
type configService struct {
	v        *viper.Viper
	filePath string
}

// NewConfigService creates a config service on top of v, which may already
// have command line flags bound to it. A nil v gets a fresh instance.
func NewConfigService(v *viper.Viper) ConfigService {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	return &configService{
		v:        v,
		filePath: FileName,
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault(KeyVersion, d.Version)
	v.SetDefault(KeyDebug, d.Debug)
	v.SetDefault(KeyRenderTimeout, d.Render.Timeout)
	v.SetDefault(KeyFrameInterval, d.Render.FrameInterval)
	v.SetDefault(KeyDebounce, d.Bus.Debounce)
	v.SetDefault(KeyScopes, d.UI.Scopes)
	v.SetDefault(KeyRowsFile, d.UI.RowsFile)
	v.SetDefault(KeyLogFilename, d.Log.Filename)
	v.SetDefault(KeyLogLevel, d.Log.Level)
	v.SetDefault(KeyLogMaxSize, d.Log.MaxSize)
	v.SetDefault(KeyLogMaxBackups, d.Log.MaxBackups)
	v.SetDefault(KeyLogMaxAge, d.Log.MaxAge)
	v.SetDefault(KeyLogCompress, d.Log.Compress)
}

// Path returns the file Save writes to
func (cs *configService) Path() string {
	return cs.filePath
}

// Load reads .crmgrip.toml from the working directory or the user config
// directory. A missing file is not an error; defaults and environment apply.
func (cs *configService) Load() (*Config, error) {
	cs.v.SetConfigName(FileBaseName)
	cs.v.SetConfigType("toml")
	cs.v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		cs.v.AddConfigPath(filepath.Join(dir, "crmgrip"))
	}

	if err := cs.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		cs.filePath = cs.v.ConfigFileUsed()
	}
	return cs.decode()
}

// LoadFromPath loads configuration from a specific path
func (cs *configService) LoadFromPath(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	cs.v.SetConfigFile(path)
	cs.v.SetConfigType("toml")
	if err := cs.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cs.filePath = path
	return cs.decode()
}

func (cs *configService) decode() (*Config, error) {
	var cfg Config
	if err := cs.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

// Save saves the configuration to the file it was loaded from
func (cs *configService) Save(config *Config) error {
	return cs.SaveToPath(config, cs.filePath)
}

// SaveToPath saves configuration to a specific path
func (cs *configService) SaveToPath(config *Config, path string) error {
	if config == nil {
		return errors.New("nil config")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := Marshal(config)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// fileConfig is the on-disk shape; durations are written as strings
type fileConfig struct {
	Version int  `toml:"version"`
	Debug   bool `toml:"debug"`
	Render  struct {
		Timeout       string `toml:"timeout"`
		FrameInterval string `toml:"frame_interval"`
	} `toml:"render"`
	Bus struct {
		Debounce string `toml:"debounce"`
	} `toml:"bus"`
	UI struct {
		Scopes   []string `toml:"scopes"`
		RowsFile string   `toml:"rows_file,omitempty"`
	} `toml:"ui"`
	Log struct {
		Filename   string `toml:"filename"`
		Level      string `toml:"level"`
		MaxSize    int    `toml:"max_size"`
		MaxBackups int    `toml:"max_backups"`
		MaxAge     int    `toml:"max_age"`
		Compress   bool   `toml:"compress"`
	} `toml:"log"`
}

// Marshal renders config as TOML
func Marshal(config *Config) ([]byte, error) {
	var f fileConfig
	f.Version = config.Version
	f.Debug = config.Debug
	f.Render.Timeout = config.Render.Timeout.String()
	f.Render.FrameInterval = config.Render.FrameInterval.String()
	f.Bus.Debounce = config.Bus.Debounce.String()
	f.UI.Scopes = config.UI.Scopes
	f.UI.RowsFile = config.UI.RowsFile
	f.Log.Filename = config.Log.Filename
	f.Log.Level = config.Log.Level
	f.Log.MaxSize = config.Log.MaxSize
	f.Log.MaxBackups = config.Log.MaxBackups
	f.Log.MaxAge = config.Log.MaxAge
	f.Log.Compress = config.Log.Compress

	data, err := toml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// normalize repairs values that would leave the core unusable
func (c *Config) normalize() {
	d := DefaultConfig()
	if c.Version == 0 {
		c.Version = currentVersion
	}
	if c.Render.Timeout <= 0 {
		c.Render.Timeout = d.Render.Timeout
	}
	if c.Render.FrameInterval <= 0 {
		c.Render.FrameInterval = d.Render.FrameInterval
	}
	if c.Bus.Debounce < 0 {
		c.Bus.Debounce = 0
	}

	scopes := make([]string, 0, len(c.UI.Scopes))
	seen := make(map[string]bool)
	for _, s := range c.UI.Scopes {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		scopes = append(scopes, s)
	}
	if len(scopes) == 0 {
		scopes = d.UI.Scopes
	}
	c.UI.Scopes = scopes
}

// SlogLevel parses the configured level; Debug forces debug output
func (c *Config) SlogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	return ParseLevel(c.Log.Level, slog.LevelInfo)
}

// ParseLevel accepts level names or numeric slog levels
func ParseLevel(value string, fallback slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	switch level {
	case "":
		return fallback
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	// Numeric slog levels as well, e.g. -4 for debug
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}
	return fallback
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: currentVersion,
		Render: RenderSettings{
			Timeout:       500 * time.Millisecond,
			FrameInterval: 16 * time.Millisecond,
		},
		UI: UISettings{
			Scopes: append([]string(nil), domain.DefaultScopes...),
		},
		Log: LogSettings{
			Filename:   ".crmgrip.log",
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		},
	}
}
