package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"contentpub/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The server drop, archive and export output directories exist; the job
// paths point into base/bin but no scripts are written unless requested.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ServerDropDir = filepath.Join(base, "drop")
	cfgVal.Paths.ArchiveDir = filepath.Join(base, "archive")
	cfgVal.Export.OutputDir = filepath.Join(base, "export-out")
	binDir := filepath.Join(base, "bin")
	cfgVal.Filter.BatchPath = filepath.Join(binDir, "filter.sh")
	cfgVal.Index.UATPath = filepath.Join(binDir, "index-uat.sh")
	cfgVal.Index.ProductionPath = filepath.Join(binDir, "index-prod.sh")
	cfgVal.Export.BatchPath = filepath.Join(binDir, "export.sh")
	cfgVal.Store.BusyTimeoutSeconds = 1
	cfgVal.Notifications.NtfyTopic = ""

	for _, dir := range []string{
		cfgVal.Paths.ServerDropDir,
		cfgVal.Paths.ArchiveDir,
		cfgVal.Export.OutputDir,
		binDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithFilterScript writes the filter job stub with the given shell body.
func WithFilterScript(body string) ConfigOption {
	return func(b *configBuilder) {
		WriteScript(b.t, b.cfg.Filter.BatchPath, body)
	}
}

// WithIndexScripts writes both index update stubs with the given shell body.
func WithIndexScripts(body string) ConfigOption {
	return func(b *configBuilder) {
		WriteScript(b.t, b.cfg.Index.UATPath, body)
		WriteScript(b.t, b.cfg.Index.ProductionPath, body)
	}
}

// WithExportScript writes the export job stub with the given shell body.
func WithExportScript(body string) ConfigOption {
	return func(b *configBuilder) {
		WriteScript(b.t, b.cfg.Export.BatchPath, body)
	}
}

// WithExpectedFiles overrides the files an export must produce.
func WithExpectedFiles(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Export.ExpectedFiles = append([]string(nil), names...)
	}
}

// WithNtfyTopic points notifications at topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
