package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"contentpub/internal/fileutil"
	"contentpub/internal/history"
	"contentpub/internal/launcher"
	"contentpub/internal/logging"
	"contentpub/internal/monitor"
	"contentpub/internal/packaging"
	"contentpub/internal/prompt"
	"contentpub/internal/services"
	"contentpub/internal/tracking"
)

// Names of the packages placed in the server drop directory.
const (
	DatabaseDropName = "database.zip"
	ImagesDropName   = "images.zip"
)

// TopicPackage summarises a packaged upload.
type TopicPackage struct {
	Month    packaging.TopicMonth
	Sources  packaging.Sources
	XMLFiles int
	Images   int
	WorkDir  string
}

// TopicUpload packages the topic archives from an operator-selected folder,
// copies them to the server drop directory, records a pending upload and
// optionally runs the filter job. A cancelled selection does nothing.
func (m *Manager) TopicUpload(ctx context.Context) (monitor.Event, error) {
	task := history.TopicUpload
	dir, err := m.prompter.SelectDirectory("Select the folder containing the topic ZIP files")
	if err != nil {
		return monitor.Event{}, m.fail(ctx, task, err)
	}
	if dir == "" {
		m.prompter.Notify(prompt.LevelInfo, "Topic Upload", "No folder selected.")
		return monitor.Event{}, nil
	}

	tracker := m.Tracker(ctx, task)
	h, err := tracker.Acquire()
	if err != nil {
		return monitor.Event{}, m.fail(ctx, task, err)
	}
	handed := false
	defer func() {
		if !handed {
			h.Release()
		}
	}()

	pkg, err := m.packageTopic(ctx, dir)
	if err != nil {
		return monitor.Event{}, m.fail(ctx, task, err)
	}

	fields := history.Fields{
		history.FieldTopicMonth:  pkg.Month.String(),
		history.FieldXMLFiles:    fmt.Sprint(pkg.XMLFiles),
		history.FieldImages:      fmt.Sprint(pkg.Images),
		history.FieldDatabaseZip: filepath.Base(pkg.Sources.Database),
		history.FieldImagesZip:   filepath.Base(pkg.Sources.Images),
	}
	if err := h.Record(ctx, fields); err != nil {
		// Files are already on the server; report but do not undo.
		m.logger.Error("failed to record topic upload", logging.Error(err))
		m.prompter.Notify(prompt.LevelWarning, "History Not Saved", "The upload succeeded but could not be recorded: "+err.Error())
	}
	m.prompter.Notify(prompt.LevelSuccess, "Topic Upload Complete",
		fmt.Sprintf("Topic %s uploaded: %d XML files, %d images.", pkg.Month, pkg.XMLFiles, pkg.Images))

	if !fileutil.Exists(m.cfg.Filter.BatchPath) {
		m.prompter.Notify(prompt.LevelWarning, "Filter Job Not Found",
			fmt.Sprintf("Filter batch file not found at %s. The upload stays pending; run contentpub topic filter once it is available.", m.cfg.Filter.BatchPath))
		return monitor.Event{}, nil
	}
	run, err := m.prompter.Confirm("Run the filter job now?", true)
	if err != nil {
		return monitor.Event{}, m.fail(ctx, task, err)
	}
	if !run {
		m.prompter.Notify(prompt.LevelInfo, "Filter Job Skipped", "The upload stays pending. Run contentpub topic filter when ready.")
		return monitor.Event{}, nil
	}

	handed = true
	return m.runFilter(ctx, h, pkg.Month.String())
}

// packageTopic validates the archives, rebuilds the server packages in the
// working folder and copies them to the server drop directory.
func (m *Manager) packageTopic(ctx context.Context, dir string) (TopicPackage, error) {
	const stage = "Topic Upload"
	topic := m.cfg.Topic

	patterns, err := packaging.CompilePatterns(topic.DatabasePattern, topic.ImagesPattern)
	if err != nil {
		return TopicPackage{}, services.Wrap(services.ErrConfiguration, stage, "compile patterns", "", err)
	}
	sources, err := packaging.FindArchives(dir, patterns)
	if err != nil {
		return TopicPackage{}, services.Wrap(services.ErrValidation, stage, "find archives", "", err)
	}
	month, err := packaging.ParseTopicMonth(patterns, sources.Database, sources.Images)
	if err != nil {
		return TopicPackage{}, services.Wrap(services.ErrValidation, stage, "parse names", "", err)
	}
	drop := m.cfg.Paths.ServerDropDir
	if !fileutil.IsDir(drop) {
		return TopicPackage{}, services.Wrap(services.ErrNotFound, stage, "check server drop", drop, os.ErrNotExist)
	}

	pkg := TopicPackage{Month: month, Sources: sources, WorkDir: filepath.Join(dir, topic.WorkingFolder)}
	progress := m.prompter.Progress("Packaging topic " + month.String())
	ok := false
	defer func() {
		if !ok {
			progress.Done(false, "Packaging stopped")
		}
	}()

	xmlExts := packaging.Extensions(topic.XMLExtensions)
	imageExts := packaging.Extensions(topic.ImageExtensions)
	if pkg.XMLFiles, err = packaging.CountEntries(ctx, sources.Database, xmlExts); err != nil {
		return pkg, services.Wrap(services.ErrValidation, stage, "count xml", "", err)
	}
	if pkg.Images, err = packaging.CountEntries(ctx, sources.Images, imageExts); err != nil {
		return pkg, services.Wrap(services.ErrValidation, stage, "count images", "", err)
	}

	if _, err := fileutil.RemoveDir(pkg.WorkDir); err != nil {
		return pkg, services.Wrap(services.ErrTransient, stage, "reset working folder", "", err)
	}
	dbRoot := filepath.Join(pkg.WorkDir, "database")
	imgRoot := filepath.Join(pkg.WorkDir, "images")
	progress.Update("Extracting " + filepath.Base(sources.Database))
	if err := packaging.Extract(ctx, sources.Database, dbRoot); err != nil {
		return pkg, services.Wrap(services.ErrValidation, stage, "extract", filepath.Base(sources.Database), err)
	}
	progress.Update("Extracting " + filepath.Base(sources.Images))
	if err := packaging.Extract(ctx, sources.Images, imgRoot); err != nil {
		return pkg, services.Wrap(services.ErrValidation, stage, "extract", filepath.Base(sources.Images), err)
	}

	dbOut := filepath.Join(pkg.WorkDir, DatabaseDropName)
	imgOut := filepath.Join(pkg.WorkDir, ImagesDropName)
	progress.Update("Repackaging " + topic.DatabaseFolder)
	if _, err := packaging.Repackage(ctx, dbRoot, packaging.Folder{Name: topic.DatabaseFolder}, xmlExts, dbOut); err != nil {
		return pkg, repackageError(stage, topic.DatabaseFolder, err)
	}
	progress.Update("Repackaging " + topic.ImagesFolder)
	if _, err := packaging.Repackage(ctx, imgRoot, packaging.Folder{Name: topic.ImagesFolder, FoldCase: true}, imageExts, imgOut); err != nil {
		return pkg, repackageError(stage, topic.ImagesFolder, err)
	}

	progress.Update("Copying packages to " + drop)
	for _, name := range []string{DatabaseDropName, ImagesDropName} {
		if err := fileutil.CopyVerified(filepath.Join(pkg.WorkDir, name), filepath.Join(drop, name)); err != nil {
			return pkg, services.Wrap(services.ErrTransient, stage, "copy to server", name, err)
		}
	}

	ok = true
	progress.Done(true, fmt.Sprintf("Packaged %s", month))
	m.logger.Info("topic packaged",
		logging.String(history.FieldTopicMonth, month.String()),
		logging.Int(history.FieldXMLFiles, pkg.XMLFiles),
		logging.Int(history.FieldImages, pkg.Images),
		logging.String("server_drop", drop),
	)
	return pkg, nil
}

func repackageError(stage, folder string, err error) error {
	marker := services.ErrTransient
	if packaging.IsNotFound(err) {
		marker = services.ErrValidation
	}
	return services.Wrap(marker, stage, "repackage", folder, err)
}

// FilterJob runs the vendor filter job for an uploaded topic. With id 0 the
// latest pending upload is used. The record is resolved when the job ends.
func (m *Manager) FilterJob(ctx context.Context, id int64) (monitor.Event, error) {
	task := history.TopicUpload
	batch := m.cfg.Filter.BatchPath
	if !fileutil.Exists(batch) {
		err := services.Wrap(services.ErrNotFound, task.Title, "filter job", batch, launcher.ErrLaunchNotFound)
		return monitor.Event{}, m.fail(ctx, task, err)
	}

	tracker := m.Tracker(ctx, task)
	var (
		h      *tracking.Handle
		detail string
		err    error
	)
	if !tracker.Available() {
		h, err = tracker.Acquire()
	} else {
		if id == 0 {
			rec, lerr := tracker.Store().LatestPending(ctx)
			if lerr != nil {
				if errors.Is(lerr, history.ErrRecordNotFound) {
					m.prompter.Notify(prompt.LevelInfo, "Filter Job", "No pending topic upload found.")
					return monitor.Event{}, nil
				}
				return monitor.Event{}, m.fail(ctx, task, lerr)
			}
			id = rec.ID
			detail = rec.Field(history.FieldTopicMonth)
		}
		h, err = tracker.Adopt(ctx, id)
		if err == nil && detail == "" {
			if rec, gerr := tracker.Store().Get(ctx, id); gerr == nil {
				detail = rec.Field(history.FieldTopicMonth)
			}
		}
	}
	if err != nil {
		return monitor.Event{}, m.fail(ctx, task, err)
	}
	return m.runFilter(ctx, h, detail)
}

// runFilter launches the filter job for an acquired handle. A launch failure
// leaves the record pending so the job can be retried.
func (m *Manager) runFilter(ctx context.Context, h *tracking.Handle, detail string) (monitor.Event, error) {
	task := history.TopicUpload
	events, err := m.start(ctx, task, h, launcher.Spec{Path: m.cfg.Filter.BatchPath}, detail, nil, "")
	if err != nil {
		return monitor.Event{}, m.fail(ctx, task, err)
	}
	m.prompter.Notify(prompt.LevelInfo, "Filter Job Started", "Waiting for the filter job to finish. Do not close its window.")
	return m.Loop(ctx, events)
}

// TopicClean removes the working folder a topic upload leaves behind. An
// empty dir asks the operator.
func (m *Manager) TopicClean(ctx context.Context, dir string) error {
	task := history.TopicUpload
	if dir == "" {
		var err error
		dir, err = m.prompter.SelectDirectory("Select the topic upload folder to clean")
		if err != nil {
			return m.fail(ctx, task, err)
		}
		if dir == "" {
			return nil
		}
	}
	work := filepath.Join(dir, m.cfg.Topic.WorkingFolder)
	if !fileutil.IsDir(work) {
		m.prompter.Notify(prompt.LevelInfo, "Nothing to Clean", "No working folder in "+dir)
		return nil
	}
	ok, err := m.prompter.Confirm(fmt.Sprintf("Delete %s?", work), false)
	if err != nil {
		return m.fail(ctx, task, err)
	}
	if !ok {
		return nil
	}
	if _, err := fileutil.RemoveDir(work); err != nil {
		return m.fail(ctx, task, services.Wrap(services.ErrTransient, task.Title, "clean", work, err))
	}
	m.logger.Info("topic working folder removed", logging.String("path", work))
	m.prompter.Notify(prompt.LevelSuccess, "Cleaned", "Removed "+work)
	return nil
}
