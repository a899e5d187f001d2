package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTopic()
	if err := c.normalizeJobs(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	// CONTENTPUB_DATA_DIR takes precedence over the file.
	if value, ok := os.LookupEnv("CONTENTPUB_DATA_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DataDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir()
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir()
	}
	if strings.TrimSpace(c.Paths.ArchiveDir) == "" {
		c.Paths.ArchiveDir = defaultArchiveDir()
	}

	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ServerDropDir, err = expandPath(strings.TrimSpace(c.Paths.ServerDropDir)); err != nil {
		return fmt.Errorf("paths.server_drop_dir: %w", err)
	}
	if c.Paths.ArchiveDir, err = expandPath(c.Paths.ArchiveDir); err != nil {
		return fmt.Errorf("paths.archive_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTopic() {
	c.Topic.WorkingFolder = strings.TrimSpace(c.Topic.WorkingFolder)
	if c.Topic.WorkingFolder == "" {
		c.Topic.WorkingFolder = defaultWorkingFolder
	}
	c.Topic.DatabasePattern = strings.TrimSpace(c.Topic.DatabasePattern)
	if c.Topic.DatabasePattern == "" {
		c.Topic.DatabasePattern = defaultDatabasePattern
	}
	c.Topic.ImagesPattern = strings.TrimSpace(c.Topic.ImagesPattern)
	if c.Topic.ImagesPattern == "" {
		c.Topic.ImagesPattern = defaultImagesPattern
	}
	c.Topic.DatabaseFolder = strings.TrimSpace(c.Topic.DatabaseFolder)
	if c.Topic.DatabaseFolder == "" {
		c.Topic.DatabaseFolder = defaultDatabaseFolder
	}
	c.Topic.ImagesFolder = strings.TrimSpace(c.Topic.ImagesFolder)
	if c.Topic.ImagesFolder == "" {
		c.Topic.ImagesFolder = defaultImagesFolder
	}
	c.Topic.XMLExtensions = normalizeExtensions(c.Topic.XMLExtensions, defaultXMLExtensions)
	c.Topic.ImageExtensions = normalizeExtensions(c.Topic.ImageExtensions, defaultImageExtensions)
}

func (c *Config) normalizeJobs() error {
	var err error
	if c.Filter.BatchPath, err = expandPath(strings.TrimSpace(c.Filter.BatchPath)); err != nil {
		return fmt.Errorf("filter.batch_path: %w", err)
	}
	if c.Index.UATPath, err = expandPath(strings.TrimSpace(c.Index.UATPath)); err != nil {
		return fmt.Errorf("index.uat_path: %w", err)
	}
	if c.Index.ProductionPath, err = expandPath(strings.TrimSpace(c.Index.ProductionPath)); err != nil {
		return fmt.Errorf("index.production_path: %w", err)
	}
	if env := strings.TrimSpace(c.Index.DefaultEnvironment); env != "" {
		if canonical := canonicalEnvironment(env); canonical != "" {
			env = canonical
		}
		c.Index.DefaultEnvironment = env
	}
	if c.Export.BatchPath, err = expandPath(strings.TrimSpace(c.Export.BatchPath)); err != nil {
		return fmt.Errorf("export.batch_path: %w", err)
	}
	if c.Export.OutputDir, err = expandPath(strings.TrimSpace(c.Export.OutputDir)); err != nil {
		return fmt.Errorf("export.output_dir: %w", err)
	}
	files := make([]string, 0, len(c.Export.ExpectedFiles))
	for _, name := range c.Export.ExpectedFiles {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			files = append(files, trimmed)
		}
	}
	c.Export.ExpectedFiles = files
	if c.Store.BusyTimeoutSeconds == 0 {
		c.Store.BusyTimeoutSeconds = defaultStoreBusyTimeout
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("CONTENTPUB_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
}

func normalizeExtensions(values []string, fallback []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
