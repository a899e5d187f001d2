package preflight

import (
	"context"
	"time"

	"contentpub/internal/config"
	"contentpub/internal/history"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional checks do not make the overall run fail.
	Optional bool
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}

// RunAll executes every check for the given config: local directories,
// vendor directories, vendor executables, history stores and ntfy.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Server drop directory", cfg.Paths.ServerDropDir),
		CheckDirectoryAccess("Export archive directory", cfg.Paths.ArchiveDir),
		CheckDirectoryExists("Export output directory", cfg.Export.OutputDir),
		CheckExecutable("Filter job", cfg.Filter.BatchPath),
		CheckExecutable("Index update (UAT)", cfg.Index.UATPath),
		CheckExecutable("Index update (Production)", cfg.Index.ProductionPath),
		CheckExecutable("Content export job", cfg.Export.BatchPath),
	}

	busy := time.Duration(cfg.Store.BusyTimeoutSeconds) * time.Second
	for _, task := range history.Tasks() {
		results = append(results, CheckStore(ctx, task, cfg.Paths.DataDir, busy))
	}

	if cfg.Notifications.NtfyTopic != "" {
		ntfy := CheckNtfy(ctx, cfg.Notifications.NtfyTopic)
		ntfy.Optional = true
		results = append(results, ntfy)
	}
	return results
}
