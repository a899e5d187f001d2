package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTopic(); err != nil {
		return err
	}
	if err := c.validateIndex(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"store.busy_timeout_seconds":    c.Store.BusyTimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"logging.max_size_mb":           c.Logging.MaxSizeMB,
	}); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTopic() error {
	for key, pattern := range map[string]string{
		"topic.database_pattern": c.Topic.DatabasePattern,
		"topic.images_pattern":   c.Topic.ImagesPattern,
	} {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if re.NumSubexp() < 3 {
			return fmt.Errorf("%s must capture day, month, and year groups", key)
		}
	}
	if strings.ContainsAny(c.Topic.WorkingFolder, `/\`) {
		return errors.New("topic.working_folder must be a folder name, not a path")
	}
	return nil
}

func (c *Config) validateIndex() error {
	env := c.Index.DefaultEnvironment
	if env != "" && canonicalEnvironment(env) == "" {
		return fmt.Errorf("index.default_environment must be %s or %s, got %q", EnvironmentUAT, EnvironmentProduction, env)
	}
	return nil
}

func (c *Config) validateExport() error {
	if len(c.Export.ExpectedFiles) == 0 {
		return errors.New("export.expected_files must list at least one file")
	}
	seen := make(map[string]struct{}, len(c.Export.ExpectedFiles))
	for _, name := range c.Export.ExpectedFiles {
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("export.expected_files: %q must be a file name", name)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("export.expected_files: duplicate entry %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return errors.New("logging.max_backups and logging.max_age_days must not be negative")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
