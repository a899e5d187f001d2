//go:build windows

package config

const (
	defaultServerDropDir       = `C:\opt\software\eeplus\received-data`
	defaultFilterBatchPath     = `C:\opt\software\eeplus\bin\eeplus-filters-R01B085\runEETopicsFilterTask.bat`
	defaultIndexUATPath        = `C:\inetpub\UAT Jobs\UpdateElasticIndexJob_UAT\UpdateElasticIndexJob.exe`
	defaultIndexProductionPath = `C:\Jobs\UpdateElasticIndexjob_UAT\UpdateElasticIndexJob.exe`
	defaultExportBatchPath     = `C:\opt\software\eeplus\bin\eeplus-filters-R01B085\compileEEPContentsForThirdPartyExport.bat`
	defaultExportOutputDir     = `C:\opt\software\eeplus\input\eeplus\ThirdPartyExport`
)
