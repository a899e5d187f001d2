package history

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Task identifies a tracked task type and where its history lives.
type Task struct {
	Key     string
	Title   string
	Folder  string
	File    string
	CSVName string
	Layout  Layout
}

// StorePath returns the database path for the task under dataDir.
func (t Task) StorePath(dataDir string) string {
	return filepath.Join(dataDir, t.Folder, t.File)
}

// Descriptive field names shared by workflows and reports.
const (
	FieldTopicMonth   = "topic_month"
	FieldXMLFiles     = "xml_files"
	FieldImages       = "images"
	FieldDatabaseZip  = "database_zip"
	FieldImagesZip    = "images_zip"
	FieldEnvironment  = "environment"
	FieldExecutable   = "executable"
	FieldExportFolder = "export_folder"
)

var (
	TopicUpload = Task{
		Key:     "topic_upload",
		Title:   "Topic Upload",
		Folder:  "Topic Upload History",
		File:    "topic_uploads.db",
		CSVName: "topic_upload_history",
		Layout: Layout{
			Table:           "uploads",
			TimestampColumn: "upload_timestamp",
			TimestampHeader: "Uploaded Date & Time",
			Columns: []Column{
				{Name: FieldTopicMonth, Header: "Topic Month"},
				{Name: FieldXMLFiles, Header: "No of XML Files", Kind: KindInteger},
				{Name: FieldImages, Header: "No of Images", Kind: KindInteger},
				{Name: FieldDatabaseZip, Header: "Database ZIP"},
				{Name: FieldImagesZip, Header: "Images ZIP"},
			},
		},
	}

	IndexUpdate = Task{
		Key:     "index_update",
		Title:   "Index Update",
		Folder:  "Index Update History",
		File:    "index_updates.db",
		CSVName: "index_update_history",
		Layout: Layout{
			Table:           "index_updates",
			TimestampColumn: "update_timestamp",
			TimestampHeader: "Updated Date & Time",
			Columns: []Column{
				{Name: FieldEnvironment, Header: "Environment"},
				{Name: FieldExecutable, Header: "Executable"},
			},
		},
	}

	ContentExport = Task{
		Key:     "content_export",
		Title:   "Teton Content Export",
		Folder:  "Teton Export History",
		File:    "teton_exports.db",
		CSVName: "teton_export_history",
		Layout: Layout{
			Table:           "exports",
			TimestampColumn: "export_timestamp",
			TimestampHeader: "Export Date & Time",
			Columns: []Column{
				{Name: FieldExportFolder, Header: "Export Folder"},
			},
		},
	}
)

// Tasks lists every tracked task type.
func Tasks() []Task {
	return []Task{TopicUpload, IndexUpdate, ContentExport}
}

// LookupTask resolves a task by key or short alias (topic, index, export).
func LookupTask(name string) (Task, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	for _, task := range Tasks() {
		if key == task.Key || strings.HasPrefix(task.Key, key+"_") || (key == "export" && task.Key == ContentExport.Key) {
			return task, nil
		}
	}
	return Task{}, fmt.Errorf("unknown task %q (want topic, index, or export)", name)
}
