package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/tiko09/ledctrl/internal/security"
)

// encryptedDSNPrefix marks a config value that was written to disk
// encrypted via security.EncryptionService, e.g. by an operator
// provisioning a credential into configs/config.yaml. Load decrypts
// it using the key in LEDCTRL_CREDENTIALS_KEY before it reaches the
// rest of the program.
const encryptedDSNPrefix = "enc:"

// Config holds the static, startup-time configuration for one ledctrl
// instance: everything needed to construct the Strip, the initial
// animation Settings, and the surrounding service processes. Live
// reconfiguration after startup goes through internal/settings, not
// this package.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Strip   StripConfig   `mapstructure:"strip"`
	ArtNet  ArtNetConfig  `mapstructure:"artnet"`
	Sync    SyncConfig    `mapstructure:"sync"`
	OpStore OpStoreConfig `mapstructure:"opstore"`
	Logger  LoggerConfig  `mapstructure:"logger"`
}

// ServerConfig is the ingress HTTP surface's bind address.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StripConfig describes the physical or remote strip to drive.
type StripConfig struct {
	LEDCount     int    `mapstructure:"led_count"`
	ChannelOrder string `mapstructure:"channel_order"` // e.g. "GRB", "GRBW"
	Transport    string `mapstructure:"transport"`     // "local", "serial", "udp"
	SPIBus       int    `mapstructure:"spi_bus"`
	SPIDevice    int    `mapstructure:"spi_device"`
	SerialPort   string `mapstructure:"serial_port"`
	SerialBaud   int    `mapstructure:"serial_baud"`
	RemoteAddr   string `mapstructure:"remote_addr"`
	RefreshRate  float64 `mapstructure:"refresh_rate"`
}

// ArtNetConfig seeds the receiver's Config at startup.
type ArtNetConfig struct {
	Universe       int  `mapstructure:"universe"`
	ChannelOffset  int  `mapstructure:"channel_offset"`
	ChannelsPerLED int  `mapstructure:"channels_per_led"`
	GroupSize      int  `mapstructure:"group_size"`
	Enabled        bool `mapstructure:"enabled"`
}

// SyncConfig seeds the clocksync component at startup.
type SyncConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	MasterMode bool    `mapstructure:"master_mode"`
	Interval   float64 `mapstructure:"interval_seconds"`
}

// OpStoreConfig selects the operational-metrics persistence backend.
type OpStoreConfig struct {
	Driver           string `mapstructure:"driver"` // "sqlite", "postgres", "influxdb"
	DSN              string `mapstructure:"dsn"`
	RetentionCron    string `mapstructure:"retention_cron"`     // schedule for pruning old samples
	RetentionMaxDays int    `mapstructure:"retention_max_days"` // samples older than this are pruned
}

// LoggerConfig contains logging settings
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in common locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		v.AddConfigPath(getConfigDir())
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults
	}

	// Override with environment variables
	v.SetEnvPrefix("LEDCTRL")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.HasPrefix(cfg.OpStore.DSN, encryptedDSNPrefix) {
		dsn, err := decryptSecret(cfg.OpStore.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt opstore dsn: %w", err)
		}
		cfg.OpStore.DSN = dsn
	}

	return &cfg, nil
}

// decryptSecret strips the encryptedDSNPrefix and decrypts the
// remainder with a key derived from LEDCTRL_CREDENTIALS_KEY.
func decryptSecret(value string) (string, error) {
	key := os.Getenv("LEDCTRL_CREDENTIALS_KEY")
	if key == "" {
		return "", fmt.Errorf("value is encrypted but LEDCTRL_CREDENTIALS_KEY is not set")
	}
	svc := security.NewEncryptionService(key)
	return svc.Decrypt(strings.TrimPrefix(value, encryptedDSNPrefix))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("strip.led_count", 150)
	v.SetDefault("strip.channel_order", "GRB")
	v.SetDefault("strip.transport", "local")
	v.SetDefault("strip.spi_bus", 0)
	v.SetDefault("strip.spi_device", 0)
	v.SetDefault("strip.refresh_rate", 60)

	v.SetDefault("artnet.universe", 0)
	v.SetDefault("artnet.channel_offset", 0)
	v.SetDefault("artnet.channels_per_led", 3)
	v.SetDefault("artnet.group_size", 1)
	v.SetDefault("artnet.enabled", false)

	v.SetDefault("sync.enabled", false)
	v.SetDefault("sync.master_mode", false)
	v.SetDefault("sync.interval_seconds", 0.5)

	v.SetDefault("opstore.driver", "sqlite")
	v.SetDefault("opstore.dsn", "./data/ledctrl.db")
	v.SetDefault("opstore.retention_cron", "0 3 * * *")
	v.SetDefault("opstore.retention_max_days", 30)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

func getConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".ledctrl")
}

// WatchFile watches path for writes and creations and invokes onChange
// once per matching fsnotify event; events are not debounced.
func WatchFile(path string, onChange func()) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config: watch %s: %w", dir, err)
	}
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					onChange()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return watcher, nil
}
