package system

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigManager validates and backs up sdkforge configuration files
type ConfigManager struct {
	logger Logger
}

// NewConfigManager creates a new configuration manager
func NewConfigManager(logger Logger) *ConfigManager {
	return &ConfigManager{
		logger: logger,
	}
}

// ConfigValidationResult contains the result of configuration validation
type ConfigValidationResult struct {
	Valid       bool                   `json:"valid"`
	Exists      bool                   `json:"exists"`
	Errors      []string               `json:"errors"`
	Warnings    []string               `json:"warnings"`
	Suggestions []string               `json:"suggestions"`
	Details     map[string]interface{} `json:"details"`
	ConfigPath  string                 `json:"config_path"`
}

// ConfigBackup represents a configuration backup
type ConfigBackup struct {
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size"`
}

var knownSections = []string{"sdk", "defaults", "download", "avd", "log"}

var knownVariants = []string{"default", "google_apis", "google_apis_playstore", "google_atd", "aosp_atd"}

var knownABIs = []string{"x86_64", "x86", "arm64-v8a", "armeabi-v7a"}

// ValidateConfig validates a configuration file. A missing file is not an
// error: the tool runs on built-in defaults, so absence only yields a hint.
func (cm *ConfigManager) ValidateConfig(configPath string) *ConfigValidationResult {
	result := &ConfigValidationResult{
		Valid:       true,
		Errors:      []string{},
		Warnings:    []string{},
		Suggestions: []string{},
		Details:     make(map[string]interface{}),
		ConfigPath:  configPath,
	}

	if cm.logger != nil {
		cm.logger.Debug("Validating configuration file: %s", configPath)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			result.Warnings = append(result.Warnings, "No configuration file found; built-in defaults apply")
			result.Suggestions = append(result.Suggestions, "Run 'sdkforge init' to create one")
			return result
		}
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot access configuration file: %v", err))
		result.Suggestions = append(result.Suggestions, "Check file permissions")
		return result
	}
	result.Exists = true

	result.Details["file_size"] = info.Size()
	result.Details["modified_time"] = info.ModTime().Format("2006-01-02 15:04:05")

	if info.Mode().Perm()&0o022 != 0 {
		result.Warnings = append(result.Warnings, "Configuration file is writable by others")
		result.Suggestions = append(result.Suggestions, fmt.Sprintf("Run 'chmod 644 %s' to tighten it", configPath))
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read configuration file: %v", err))
		return result
	}

	var config map[string]interface{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid YAML syntax: %v", err))
		result.Suggestions = append(result.Suggestions,
			"Check indentation and structure",
			"Regenerate the file with 'sdkforge init --force'")
		return result
	}

	result.Details["sections"] = len(config)

	cm.checkUnknownSections(config, result)
	cm.validateSDKSection(config, result)
	cm.validateDefaultsSection(config, result)
	cm.validateDownloadSection(config, result)
	cm.validateAVDSection(config, result)
	cm.validateLogSection(config, result)

	return result
}

func (cm *ConfigManager) checkUnknownSections(config map[string]interface{}, result *ConfigValidationResult) {
	for key := range config {
		known := false
		for _, section := range knownSections {
			if key == section {
				known = true
				break
			}
		}
		if !known {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Unknown section '%s' is ignored", key))
		}
	}
}

func (cm *ConfigManager) validateSDKSection(config map[string]interface{}, result *ConfigValidationResult) {
	section, ok := sectionMap(config, "sdk", result)
	if !ok {
		return
	}

	if root, ok := stringField(section, "root"); ok && root != "" {
		// sdkmanager is known to misbehave when the SDK path contains spaces.
		if strings.ContainsAny(root, " \t") {
			result.Warnings = append(result.Warnings, "sdk.root contains whitespace; the Android command-line tools do not handle such paths well")
		}
		if !filepath.IsAbs(root) && !strings.HasPrefix(root, "~") {
			result.Warnings = append(result.Warnings, fmt.Sprintf("sdk.root is relative (%s); it resolves against the working directory", root))
		}
		result.Details["sdk_root"] = root
	}

	cm.checkDuration(section, "sdk.command_timeout", "command_timeout", result)
	cm.checkDuration(section, "sdk.install_timeout", "install_timeout", result)
}

func (cm *ConfigManager) validateDefaultsSection(config map[string]interface{}, result *ConfigValidationResult) {
	section, ok := sectionMap(config, "defaults", result)
	if !ok {
		return
	}

	if api, exists := section["api_level"]; exists {
		level, ok := api.(int)
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("defaults.api_level must be an integer, got %T", api))
			result.Valid = false
		} else if level < 21 || level > 35 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("defaults.api_level %d is outside the supported range 21-35", level))
		}
	}

	if variant, ok := stringField(section, "variant"); ok && variant != "" {
		if !containsString(knownVariants, variant) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("defaults.variant '%s' is not a known image variant (%s)",
				variant, strings.Join(knownVariants, ", ")))
		}
	}

	if abi, ok := stringField(section, "abi"); ok && abi != "" {
		if !containsString(knownABIs, abi) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("defaults.abi '%s' is not a known ABI (%s)",
				abi, strings.Join(knownABIs, ", ")))
		}
	}

	if ndk, ok := stringField(section, "ndk_version"); ok && ndk != "" {
		if !looksLikeNDKVersion(ndk) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("defaults.ndk_version '%s' is neither an r-style alias nor a dotted version", ndk))
		}
	}
}

func (cm *ConfigManager) validateDownloadSection(config map[string]interface{}, result *ConfigValidationResult) {
	section, ok := sectionMap(config, "download", result)
	if !ok {
		return
	}

	if base, ok := stringField(section, "base_url"); ok && base != "" {
		parsed, err := url.Parse(base)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("download.base_url must be an http(s) URL, got '%s'", base))
			result.Valid = false
		} else {
			result.Details["download_base_url"] = base
		}
	}

	cm.checkDuration(section, "download.timeout", "timeout", result)

	if retries, exists := section["retries"]; exists {
		n, ok := retries.(int)
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("download.retries must be an integer, got %T", retries))
			result.Valid = false
		} else if n < 0 {
			result.Errors = append(result.Errors, "download.retries must not be negative")
			result.Valid = false
		}
	}
}

func (cm *ConfigManager) validateAVDSection(config map[string]interface{}, result *ConfigValidationResult) {
	section, ok := sectionMap(config, "avd", result)
	if !ok {
		return
	}

	if home, ok := stringField(section, "home"); ok && home != "" {
		result.Details["avd_home"] = home
	}
	if profile, exists := section["device_profile"]; exists {
		if _, ok := profile.(string); !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("avd.device_profile must be a string, got %T", profile))
			result.Valid = false
		}
	}
}

func (cm *ConfigManager) validateLogSection(config map[string]interface{}, result *ConfigValidationResult) {
	section, ok := sectionMap(config, "log", result)
	if !ok {
		return
	}

	if level, ok := stringField(section, "level"); ok && level != "" {
		if !containsString([]string{"debug", "info", "warn", "error"}, level) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("log.level '%s' is not one of debug, info, warn, error", level))
		}
	}
	if format, ok := stringField(section, "format"); ok && format != "" {
		if !containsString([]string{"text", "json", "compact"}, format) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("log.format '%s' is not one of text, json, compact", format))
		}
	}
}

// checkDuration validates fields viper later parses with time.ParseDuration
func (cm *ConfigManager) checkDuration(section map[string]interface{}, label, key string, result *ConfigValidationResult) {
	value, exists := section[key]
	if !exists {
		return
	}

	switch v := value.(type) {
	case string:
		if _, err := time.ParseDuration(v); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s '%s' is not a valid duration (use forms like 90s, 30m)", label, v))
			result.Valid = false
		}
	case int:
		// Bare integers are nanoseconds to the duration parser, which is
		// never what a config author means.
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s is a bare number; write it with a unit, e.g. \"%ds\"", label, v))
	default:
		result.Errors = append(result.Errors, fmt.Sprintf("%s must be a duration string, got %T", label, value))
		result.Valid = false
	}
}

// BackupConfig copies the configuration file aside before it is overwritten
func (cm *ConfigManager) BackupConfig(configPath string) (*ConfigBackup, error) {
	if cm.logger != nil {
		cm.logger.Debug("Creating backup of configuration: %s", configPath)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		return nil, fmt.Errorf("cannot access config file: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	backupPath := fmt.Sprintf("%s.backup.%s", configPath, timestamp)

	sourceData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	if err := os.WriteFile(backupPath, sourceData, info.Mode()); err != nil {
		return nil, fmt.Errorf("cannot create backup: %w", err)
	}

	return &ConfigBackup{
		Path:      backupPath,
		Timestamp: time.Now(),
		Size:      info.Size(),
	}, nil
}

// FormatValidationResult formats validation result for display
func (cm *ConfigManager) FormatValidationResult(result *ConfigValidationResult) string {
	if result == nil {
		return "No validation result available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Configuration: %s\n", result.ConfigPath)

	switch {
	case !result.Exists && result.Valid:
		b.WriteString("Status: ⚠️  Not present (defaults apply)\n")
	case result.Valid:
		b.WriteString("Status: ✅ Valid\n")
	default:
		b.WriteString("Status: ❌ Invalid\n")
	}

	if len(result.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for i, err := range result.Errors {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, err)
		}
	}

	if len(result.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for i, warning := range result.Warnings {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, warning)
		}
	}

	if len(result.Suggestions) > 0 {
		b.WriteString("\nSuggestions:\n")
		for i, suggestion := range result.Suggestions {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, suggestion)
		}
	}

	return b.String()
}

func sectionMap(config map[string]interface{}, name string, result *ConfigValidationResult) (map[string]interface{}, bool) {
	raw, exists := config[name]
	if !exists {
		return nil, false
	}
	section, ok := raw.(map[string]interface{})
	if !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("%s section must be a map", name))
		result.Valid = false
		return nil, false
	}
	return section, true
}

func stringField(section map[string]interface{}, key string) (string, bool) {
	value, exists := section[key]
	if !exists {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// looksLikeNDKVersion accepts r-style aliases (r26d) and dotted canonical
// versions (26.3.11579264) without consulting the alias table.
func looksLikeNDKVersion(v string) bool {
	if strings.HasPrefix(v, "r") && len(v) > 1 {
		rest := v[1:]
		for i, c := range rest {
			if c >= '0' && c <= '9' {
				continue
			}
			if c >= 'a' && c <= 'z' && i == len(rest)-1 && i > 0 {
				continue
			}
			return false
		}
		return true
	}

	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
		for _, c := range part {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}
