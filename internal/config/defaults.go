package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	defaultWorkingFolder          = "EEP Topic Upload Temporary Files"
	defaultDatabasePattern        = `database-(\d+)-(\w+)-(\d+)\.zip`
	defaultImagesPattern          = `(\d+)-(\w+)-(\d+)-images\.zip`
	defaultDatabaseFolder         = "validate"
	defaultImagesFolder           = "images"
	defaultIndexEnvironment       = ""
	defaultStoreBusyTimeout       = 30
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogMaxSizeMB           = 10
	defaultLogMaxBackups          = 5
	defaultLogMaxAgeDays          = 90
	defaultApplicationDirectoryID = "contentpub"
)

var (
	defaultXMLExtensions   = []string{".xml"}
	defaultImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}
	defaultExpectedFiles   = []string{
		"checksums.md5",
		"eep_anatomyimages.zip",
		"eep_cdr.zip",
		"eep_cochrane.zip",
		"eep_dermimages.zip",
		"eep_hp_diag.zip",
		"eep_metadata.xls",
	}
)

func defaultDataDir() string {
	return filepath.Join(xdg.DataHome, defaultApplicationDirectoryID)
}

func defaultLogDir() string {
	return filepath.Join(defaultDataDir(), "logs")
}

func defaultArchiveDir() string {
	return filepath.Join(defaultDataDir(), "exports")
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:       defaultDataDir(),
			LogDir:        defaultLogDir(),
			ServerDropDir: defaultServerDropDir,
			ArchiveDir:    defaultArchiveDir(),
		},
		Topic: Topic{
			WorkingFolder:   defaultWorkingFolder,
			DatabasePattern: defaultDatabasePattern,
			ImagesPattern:   defaultImagesPattern,
			DatabaseFolder:  defaultDatabaseFolder,
			ImagesFolder:    defaultImagesFolder,
			XMLExtensions:   append([]string(nil), defaultXMLExtensions...),
			ImageExtensions: append([]string(nil), defaultImageExtensions...),
		},
		Filter: Filter{
			BatchPath: defaultFilterBatchPath,
		},
		Index: Index{
			UATPath:            defaultIndexUATPath,
			ProductionPath:     defaultIndexProductionPath,
			DefaultEnvironment: defaultIndexEnvironment,
		},
		Export: Export{
			BatchPath:     defaultExportBatchPath,
			OutputDir:     defaultExportOutputDir,
			ExpectedFiles: append([]string(nil), defaultExpectedFiles...),
		},
		Store: Store{
			BusyTimeoutSeconds: defaultStoreBusyTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Started:        false,
			Completed:      true,
			Problems:       true,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
			Compress:   true,
		},
	}
}
