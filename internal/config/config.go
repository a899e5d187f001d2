package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the local directories the tool reads and writes.
type Paths struct {
	DataDir       string `toml:"data_dir"`
	LogDir        string `toml:"log_dir"`
	ServerDropDir string `toml:"server_drop_dir"`
	ArchiveDir    string `toml:"archive_dir"`
}

// Topic contains the topic upload packaging rules.
type Topic struct {
	WorkingFolder   string   `toml:"working_folder"`
	DatabasePattern string   `toml:"database_pattern"`
	ImagesPattern   string   `toml:"images_pattern"`
	DatabaseFolder  string   `toml:"database_folder"`
	ImagesFolder    string   `toml:"images_folder"`
	XMLExtensions   []string `toml:"xml_extensions"`
	ImageExtensions []string `toml:"image_extensions"`
}

// Filter contains the vendor filter job launched after a topic upload.
type Filter struct {
	BatchPath string `toml:"batch_path"`
}

// Index contains the search index update executables per environment.
type Index struct {
	UATPath            string `toml:"uat_path"`
	ProductionPath     string `toml:"production_path"`
	DefaultEnvironment string `toml:"default_environment"`
}

// Export contains the content export batch job and the files it must produce.
type Export struct {
	BatchPath     string   `toml:"batch_path"`
	OutputDir     string   `toml:"output_dir"`
	ExpectedFiles []string `toml:"expected_files"`
}

// Store contains history database settings.
type Store struct {
	BusyTimeoutSeconds int `toml:"busy_timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Started        bool   `toml:"started"`
	Completed      bool   `toml:"completed"`
	Problems       bool   `toml:"problems"`
}

// Logging contains configuration for log output and rotation.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Config encapsulates all configuration values for contentpub.
//
// Configuration sections by subsystem:
//   - Paths: history, logs, server drop and export archive directories
//   - Topic: archive naming patterns and repackaging folders
//   - Filter: filter batch job run after an upload
//   - Index: search index executables for UAT and Production
//   - Export: content export batch job and expected output files
//   - Store: history database lock handling
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and rotation
type Config struct {
	Paths         Paths         `toml:"paths"`
	Topic         Topic         `toml:"topic"`
	Filter        Filter        `toml:"filter"`
	Index         Index         `toml:"index"`
	Export        Export        `toml:"export"`
	Store         Store         `toml:"store"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(filepath.Join(xdg.ConfigHome, "contentpub", "config.toml"))
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("contentpub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the history and log directories. The server drop
// and archive directories belong to the vendor installation and are never
// created here; preflight reports them when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Environment names accepted by the index update.
const (
	EnvironmentUAT        = "UAT"
	EnvironmentProduction = "Production"
)

// Environments lists the index update targets in display order.
func Environments() []string {
	return []string{EnvironmentUAT, EnvironmentProduction}
}

// IndexExecutable returns the index update executable for the named environment.
func (c *Config) IndexExecutable(environment string) (string, error) {
	switch canonicalEnvironment(environment) {
	case EnvironmentUAT:
		return c.Index.UATPath, nil
	case EnvironmentProduction:
		return c.Index.ProductionPath, nil
	default:
		return "", fmt.Errorf("unknown environment %q (want %s or %s)", environment, EnvironmentUAT, EnvironmentProduction)
	}
}

// CanonicalEnvironment maps case-insensitive input onto an environment name.
// Unknown values yield an empty string.
func CanonicalEnvironment(value string) string {
	return canonicalEnvironment(value)
}

func canonicalEnvironment(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "uat":
		return EnvironmentUAT
	case "production", "prod":
		return EnvironmentProduction
	default:
		return ""
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
