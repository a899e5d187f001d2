package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"contentpub/internal/fileutil"
	"contentpub/internal/history"
	"contentpub/internal/launcher"
	"contentpub/internal/logging"
	"contentpub/internal/monitor"
	"contentpub/internal/prompt"
	"contentpub/internal/services"
	"contentpub/internal/tracking"
)

const exportConfirmation = "Do you want to do Teton content export?\n\n" +
	"Note: Teton content export should normally be done after all content (Topics, Cochrane, Calculators) is uploaded and verified."

// ExportFolderLayout names the dated archive folder of an export.
const ExportFolderLayout = "2006-01-02"

// ContentExport runs the content export job after confirmation. On a zero
// exit the expected files are verified and archived into a dated folder; the
// record completes only when both succeed.
func (m *Manager) ContentExport(ctx context.Context) (monitor.Event, error) {
	task := history.ContentExport
	ok, err := m.prompter.Confirm(exportConfirmation, false)
	if err != nil {
		return monitor.Event{}, m.fail(ctx, task, err)
	}
	if !ok {
		return monitor.Event{}, nil
	}

	folder := m.now().Format(ExportFolderLayout)
	h, err := m.Tracker(ctx, task).Begin(ctx, history.Fields{history.FieldExportFolder: folder})
	if err != nil {
		return monitor.Event{}, m.fail(ctx, task, err)
	}

	archive := filepath.Join(m.cfg.Paths.ArchiveDir, folder)
	verify := func(ctx context.Context) error {
		return m.archiveExport(ctx, archive)
	}
	events, err := m.start(ctx, task, h, launcher.Spec{Path: m.cfg.Export.BatchPath}, archive, verify, history.StatusFailed)
	if err != nil {
		return monitor.Event{}, m.fail(ctx, task, err)
	}
	m.prompter.Notify(prompt.LevelInfo, "Export Started", "Running the Teton content export. Do not close its window.")
	return m.Loop(ctx, events)
}

// VerifyExport checks that every expected file is present in dir.
func VerifyExport(dir string, expected []string) error {
	var missing []string
	for _, name := range expected {
		if !fileutil.Exists(filepath.Join(dir, name)) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &VerificationError{Dir: dir, Missing: missing}
	}
	return nil
}

func (m *Manager) archiveExport(ctx context.Context, archive string) error {
	out := m.cfg.Export.OutputDir
	expected := m.cfg.Export.ExpectedFiles
	if err := VerifyExport(out, expected); err != nil {
		return err
	}
	for _, name := range expected {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fileutil.CopyPreserving(filepath.Join(out, name), filepath.Join(archive, name)); err != nil {
			return services.Wrap(services.ErrTransient, history.ContentExport.Title, "archive", name, err)
		}
	}
	m.logger.Info("export archived",
		logging.String("archive", archive),
		logging.Int("files", len(expected)),
	)
	return nil
}

// ExportClean removes a dated export folder from the archive directory. An
// empty folder selects the one recorded by the latest completed export.
func (m *Manager) ExportClean(ctx context.Context, folder string) error {
	task := history.ContentExport
	if folder == "" {
		latest, err := m.latestExportFolder(ctx)
		if err != nil {
			return m.fail(ctx, task, err)
		}
		if latest == "" {
			m.prompter.Notify(prompt.LevelWarning, "Folder Not Found", "No completed export is recorded.")
			return nil
		}
		folder = latest
	}
	if folder != filepath.Base(folder) || strings.ContainsAny(folder, `/\`) || folder == "." || folder == ".." {
		err := fmt.Errorf("export folder %q must be a folder name inside the archive directory", folder)
		return m.fail(ctx, task, services.Wrap(services.ErrValidation, task.Title, "clean", "", err))
	}

	target := filepath.Join(m.cfg.Paths.ArchiveDir, folder)
	if !fileutil.IsDir(target) {
		m.prompter.Notify(prompt.LevelWarning, "Folder Not Found", "No exported files folder exists or it has been deleted.")
		return nil
	}
	ok, err := m.prompter.Confirm(fmt.Sprintf("Are you sure you want to delete all files in:\n%s?", target), false)
	if err != nil {
		return m.fail(ctx, task, err)
	}
	if !ok {
		return nil
	}
	if _, err := fileutil.RemoveDir(target); err != nil {
		return m.fail(ctx, task, services.Wrap(services.ErrTransient, task.Title, "clean", target, err))
	}
	m.logger.Info("export folder removed", logging.String("path", target))
	m.prompter.Notify(prompt.LevelSuccess, "Cleaned", "Exported files folder has been deleted.")
	return nil
}

func (m *Manager) latestExportFolder(ctx context.Context) (string, error) {
	tracker := m.Tracker(ctx, history.ContentExport)
	if !tracker.Available() {
		return "", tracking.ErrTrackingUnavailable
	}
	records, err := tracker.Store().List(ctx)
	if err != nil {
		return "", err
	}
	for _, rec := range records {
		if rec.Status == history.StatusCompleted && rec.Field(history.FieldExportFolder) != "" {
			return rec.Field(history.FieldExportFolder), nil
		}
	}
	return "", nil
}
