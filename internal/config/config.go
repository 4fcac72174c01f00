package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved tool configuration
type Config struct {
	SDK      SDKConfig      `mapstructure:"sdk"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Download DownloadConfig `mapstructure:"download"`
	AVD      AVDConfig      `mapstructure:"avd"`
	Log      LogConfig      `mapstructure:"log"`
}

// SDKConfig controls where the SDK lives and how long tool calls may run
type SDKConfig struct {
	Root           string        `mapstructure:"root"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	InstallTimeout time.Duration `mapstructure:"install_timeout"`
}

// DefaultsConfig provides request defaults for the ensure/plan commands
type DefaultsConfig struct {
	APILevel   int    `mapstructure:"api_level"`
	Variant    string `mapstructure:"variant"`
	ABI        string `mapstructure:"abi"`
	NDKVersion string `mapstructure:"ndk_version"`
	BuildTools string `mapstructure:"build_tools"`
}

// DownloadConfig controls direct archive downloads
type DownloadConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Retries  int           `mapstructure:"retries"`
	Progress bool          `mapstructure:"progress"`
}

// AVDConfig controls virtual device creation
type AVDConfig struct {
	Home          string `mapstructure:"home"`
	DeviceProfile string `mapstructure:"device_profile"`
}

// LogConfig controls logger behavior
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

var defaultConfig = Config{
	SDK: SDKConfig{
		Root:           "",
		CommandTimeout: 90 * time.Second,
		InstallTimeout: 30 * time.Minute,
	},
	Defaults: DefaultsConfig{
		APILevel:   34,
		Variant:    "google_apis",
		ABI:        "",
		NDKVersion: "r26d",
		BuildTools: "",
	},
	Download: DownloadConfig{
		BaseURL:  "https://dl.google.com/android/repository",
		Timeout:  45 * time.Minute,
		Retries:  3,
		Progress: true,
	},
	AVD: AVDConfig{
		Home:          "",
		DeviceProfile: "pixel_5",
	},
	Log: LogConfig{
		Level:  "info",
		Format: "text",
		File:   "",
	},
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	// Set defaults
	viper.SetDefault("sdk.root", defaultConfig.SDK.Root)
	viper.SetDefault("sdk.command_timeout", defaultConfig.SDK.CommandTimeout)
	viper.SetDefault("sdk.install_timeout", defaultConfig.SDK.InstallTimeout)
	viper.SetDefault("defaults.api_level", defaultConfig.Defaults.APILevel)
	viper.SetDefault("defaults.variant", defaultConfig.Defaults.Variant)
	viper.SetDefault("defaults.abi", defaultConfig.Defaults.ABI)
	viper.SetDefault("defaults.ndk_version", defaultConfig.Defaults.NDKVersion)
	viper.SetDefault("defaults.build_tools", defaultConfig.Defaults.BuildTools)
	viper.SetDefault("download.base_url", defaultConfig.Download.BaseURL)
	viper.SetDefault("download.timeout", defaultConfig.Download.Timeout)
	viper.SetDefault("download.retries", defaultConfig.Download.Retries)
	viper.SetDefault("download.progress", defaultConfig.Download.Progress)
	viper.SetDefault("avd.home", defaultConfig.AVD.Home)
	viper.SetDefault("avd.device_profile", defaultConfig.AVD.DeviceProfile)
	viper.SetDefault("log.level", defaultConfig.Log.Level)
	viper.SetDefault("log.format", defaultConfig.Log.Format)
	viper.SetDefault("log.file", defaultConfig.Log.File)

	// Try to load config file
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		// Look for config in current directory and the user config directory
		viper.SetConfigName("config")
		viper.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "sdkforge"))
		}
	}

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is not an error, we'll use defaults
	}

	// Bind environment variables (SDKFORGE_SDK_ROOT -> sdk.root)
	viper.SetEnvPrefix("SDKFORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Unmarshal configuration
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// DefaultConfigPath returns where the config file is expected when no
// explicit path is given. Mirrors the search order of Load: a config.yaml
// in the working directory wins, otherwise the user config directory.
func DefaultConfigPath() string {
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "sdkforge", "config.yaml")
}

// ResolveSDKRoot returns the SDK root this invocation should converge.
// Order: configured root, ANDROID_HOME, ANDROID_SDK_ROOT, platform default.
// The directory does not have to exist yet.
func (c *Config) ResolveSDKRoot() string {
	if c.SDK.Root != "" {
		return expandHome(c.SDK.Root)
	}
	if env := os.Getenv("ANDROID_HOME"); env != "" {
		return env
	}
	if env := os.Getenv("ANDROID_SDK_ROOT"); env != "" {
		return env
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "android-sdk"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Android", "sdk")
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "Android", "Sdk")
		}
		return filepath.Join(home, "AppData", "Local", "Android", "Sdk")
	default:
		return filepath.Join(home, "Android", "Sdk")
	}
}

// ResolveAVDHome returns the directory holding AVD definitions.
// Order: configured home, ANDROID_AVD_HOME, ~/.android/avd.
func (c *Config) ResolveAVDHome() string {
	if c.AVD.Home != "" {
		return expandHome(c.AVD.Home)
	}
	if env := os.Getenv("ANDROID_AVD_HOME"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".android/avd"
	}
	return filepath.Join(home, ".android", "avd")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}

// SaveTemplate saves a configuration template
func SaveTemplate(path string) error {
	templateContent := `# SdkForge Configuration File

sdk:
  # SDK root directory to converge. Empty means: $ANDROID_HOME,
  # then $ANDROID_SDK_ROOT, then the platform default location.
  root: ""

  # Timeout for short metadata operations (listing, version queries)
  command_timeout: 90s

  # Timeout for package installs performed by sdkmanager
  install_timeout: 30m

defaults:
  # Android API level to target when --api is not given
  api_level: 34

  # System image variant: default, google_apis, google_apis_playstore,
  # google_atd, aosp_atd
  variant: "google_apis"

  # Device ABI: x86_64, x86, arm64-v8a, armeabi-v7a.
  # Empty selects the ABI matching the host CPU.
  abi: ""

  # NDK release alias (r-style) or dotted canonical version
  ndk_version: "r26d"

  # Build-tools version to install. Empty skips build-tools.
  build_tools: ""

download:
  # Mirror for direct archive downloads
  base_url: "https://dl.google.com/android/repository"

  # Per-download timeout
  timeout: 45m

  # Attempts per archive before giving up
  retries: 3

  # Render a progress bar during downloads. Turn off for CI logs.
  progress: true

avd:
  # AVD store directory. Empty means $ANDROID_AVD_HOME or ~/.android/avd.
  home: ""

  # Hardware profile passed to avdmanager on device creation
  device_profile: "pixel_5"

log:
  # debug, info, warn, error
  level: "info"

  # text, json, compact
  format: "text"

  # Optional log file (output is mirrored there when set)
  file: ""
`

	return os.WriteFile(path, []byte(templateContent), 0644)
}
