package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Profile represents a deployment tier: how much a given board can be
// trusted to drive without dropping frames.
type Profile string

const (
	// ProfileMinimal - Pi Zero, BeagleBone: short strips, no Art-Net.
	ProfileMinimal Profile = "minimal"

	// ProfileStandard - Pi 3/4, Orange Pi: a few hundred LEDs, Art-Net optional.
	ProfileStandard Profile = "standard"

	// ProfileFull - Pi 4/5, Jetson Nano: long strips or matrices, Art-Net + sync.
	ProfileFull Profile = "full"
)

// ProfileConfig holds profile-specific deployment limits.
type ProfileConfig struct {
	Name        Profile `mapstructure:"name"`
	Description string  `mapstructure:"description"`

	// Resource limits
	MaxLEDs           int     `mapstructure:"max_leds"`            // Largest strip this tier should drive
	MaxGroups         int     `mapstructure:"max_groups"`          // Max concurrent animation groups
	TargetRefreshRate float64 `mapstructure:"target_refresh_rate"` // Recommended animation Hz

	// Feature flags
	Features FeaturesConfig `mapstructure:"features"`
}

// FeaturesConfig defines feature flags
type FeaturesConfig struct {
	ArtNet          bool `mapstructure:"artnet"`           // Enable the Art-Net receiver
	ClockSync       bool `mapstructure:"clock_sync"`       // Enable the clock-sync component
	APIAuth         bool `mapstructure:"api_auth"`         // Enable ingress API authentication
	Metrics         bool `mapstructure:"metrics"`          // Enable Prometheus metrics
	DebugMode       bool `mapstructure:"debug_mode"`       // Enable debug logging
	HotReload       bool `mapstructure:"hot_reload"`       // Enable settings hot reload
	ResourceMonitor bool `mapstructure:"resource_monitor"` // Enable resource monitoring
}

// GetDefaultProfiles returns the default profile configurations
func GetDefaultProfiles() map[Profile]*ProfileConfig {
	return map[Profile]*ProfileConfig{
		ProfileMinimal: {
			Name:              ProfileMinimal,
			Description:       "Minimal profile for Pi Zero, BeagleBone (512MB RAM)",
			MaxLEDs:           150,
			MaxGroups:         4,
			TargetRefreshRate: 30,
			Features: FeaturesConfig{
				ArtNet:          false,
				ClockSync:       false,
				APIAuth:         false,
				Metrics:         false,
				DebugMode:       false,
				HotReload:       false,
				ResourceMonitor: true,
			},
		},
		ProfileStandard: {
			Name:              ProfileStandard,
			Description:       "Standard profile for Pi 3/4, Orange Pi (1GB RAM)",
			MaxLEDs:           800,
			MaxGroups:         16,
			TargetRefreshRate: 60,
			Features: FeaturesConfig{
				ArtNet:          true,
				ClockSync:       true,
				APIAuth:         true,
				Metrics:         true,
				DebugMode:       false,
				HotReload:       true,
				ResourceMonitor: true,
			},
		},
		ProfileFull: {
			Name:              ProfileFull,
			Description:       "Full profile for Pi 4/5, Jetson Nano (2GB+ RAM)",
			MaxLEDs:           4096,
			MaxGroups:         64,
			TargetRefreshRate: 120,
			Features: FeaturesConfig{
				ArtNet:          true,
				ClockSync:       true,
				APIAuth:         true,
				Metrics:         true,
				DebugMode:       true,
				HotReload:       true,
				ResourceMonitor: true,
			},
		},
	}
}

// LoadProfile loads a profile configuration
func LoadProfile(profileName string) (*ProfileConfig, error) {
	profile := Profile(profileName)

	// Get default profiles
	defaults := GetDefaultProfiles()
	defaultConfig, exists := defaults[profile]
	if !exists {
		return nil, fmt.Errorf("unknown profile: %s", profileName)
	}

	// Try to load custom profile configuration
	v := viper.New()
	v.SetConfigName(fmt.Sprintf("profile-%s", profileName))
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(getConfigDir())

	// Read profile config if exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read profile config: %w", err)
		}
		// Use defaults if no custom config
		return defaultConfig, nil
	}

	// Unmarshal into ProfileConfig
	var cfg ProfileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile config: %w", err)
	}

	// Merge with defaults (for any missing fields)
	mergeProfileConfig(&cfg, defaultConfig)

	return &cfg, nil
}

// DetectProfile automatically detects the best profile for the current system
func DetectProfile() Profile {
	// Simple heuristic based on system memory (MemTotal from /proc/meminfo)
	var totalMem uint64 // MB
	if data, err := os.ReadFile("/proc/meminfo"); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if fields := strings.Fields(line); len(fields) >= 2 && fields[0] == "MemTotal:" {
				var kb uint64
				fmt.Sscanf(fields[1], "%d", &kb)
				totalMem = kb / 1024
				break
			}
		}
	}

	isARM := runtime.GOARCH == "arm" || runtime.GOARCH == "arm64"

	if !isARM {
		// Non-ARM systems (dev machines, servers driving remote/UDP strips) get the full profile
		return ProfileFull
	}

	if totalMem < 256 {
		return ProfileMinimal
	} else if totalMem < 1024 {
		return ProfileStandard
	}

	return ProfileFull
}

// DetectBoard attempts to detect the board type
func DetectBoard() string {
	// Check for Raspberry Pi
	if _, err := os.Stat("/proc/device-tree/model"); err == nil {
		data, err := os.ReadFile("/proc/device-tree/model")
		if err == nil {
			model := string(data)
			if contains(model, "Raspberry Pi Zero") {
				return "Pi Zero"
			} else if contains(model, "Raspberry Pi 3") {
				return "Pi 3"
			} else if contains(model, "Raspberry Pi 4") {
				return "Pi 4"
			} else if contains(model, "Raspberry Pi 5") {
				return "Pi 5"
			} else if contains(model, "Raspberry Pi") {
				return "Raspberry Pi"
			}
		}
	}

	// Check for BeagleBone
	if _, err := os.Stat("/etc/dogtag"); err == nil {
		return "BeagleBone"
	}

	// Check for Orange Pi
	if _, err := os.Stat("/etc/orangepi-release"); err == nil {
		return "Orange Pi"
	}

	// Check for Jetson
	if _, err := os.Stat("/etc/nv_tegra_release"); err == nil {
		return "Jetson"
	}

	// Generic Linux
	if runtime.GOOS == "linux" {
		if runtime.GOARCH == "arm64" {
			return "ARM64 Linux"
		} else if runtime.GOARCH == "arm" {
			return "ARM Linux"
		}
		return "Linux"
	}

	return "Unknown"
}

// GetProfileForBoard returns the recommended profile for a board type
func GetProfileForBoard(board string) Profile {
	switch board {
	case "Pi Zero", "BeagleBone":
		return ProfileMinimal
	case "Pi 3", "Orange Pi":
		return ProfileStandard
	case "Pi 4", "Pi 5", "Jetson":
		return ProfileFull
	default:
		return ProfileStandard
	}
}

// mergeProfileConfig merges two profile configs, using defaults for missing values
func mergeProfileConfig(cfg *ProfileConfig, defaults *ProfileConfig) {
	if cfg.Name == "" {
		cfg.Name = defaults.Name
	}
	if cfg.Description == "" {
		cfg.Description = defaults.Description
	}
	if cfg.MaxLEDs == 0 {
		cfg.MaxLEDs = defaults.MaxLEDs
	}
	if cfg.MaxGroups == 0 {
		cfg.MaxGroups = defaults.MaxGroups
	}
	if cfg.TargetRefreshRate == 0 {
		cfg.TargetRefreshRate = defaults.TargetRefreshRate
	}
}

// contains checks if a string contains a substring (case-sensitive helper)
func contains(s, substr string) bool {
	return len(s) >= len(substr) && findSubstring(s, substr)
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// SaveProfileConfig saves a profile configuration to file
func SaveProfileConfig(profileName string, cfg *ProfileConfig) error {
	configPath := filepath.Join(getConfigDir(), fmt.Sprintf("profile-%s.yaml", profileName))

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("name", cfg.Name)
	v.Set("description", cfg.Description)
	v.Set("max_leds", cfg.MaxLEDs)
	v.Set("max_groups", cfg.MaxGroups)
	v.Set("target_refresh_rate", cfg.TargetRefreshRate)
	v.Set("features", cfg.Features)

	return v.WriteConfigAs(configPath)
}

// ValidateProfile validates a profile configuration
func ValidateProfile(cfg *ProfileConfig) error {
	if cfg.MaxLEDs < 1 {
		return fmt.Errorf("max_leds must be at least 1")
	}
	if cfg.MaxGroups < 1 {
		return fmt.Errorf("max_groups must be at least 1")
	}
	if cfg.TargetRefreshRate <= 0 {
		return fmt.Errorf("target_refresh_rate must be positive")
	}
	return nil
}
