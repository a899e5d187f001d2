//go:build !windows

package config

const (
	defaultServerDropDir       = "/opt/software/eeplus/received-data"
	defaultFilterBatchPath     = "/opt/software/eeplus/bin/eeplus-filters-R01B085/runEETopicsFilterTask.sh"
	defaultIndexUATPath        = "/opt/jobs/uat/UpdateElasticIndexJob"
	defaultIndexProductionPath = "/opt/jobs/production/UpdateElasticIndexJob"
	defaultExportBatchPath     = "/opt/software/eeplus/bin/eeplus-filters-R01B085/compileEEPContentsForThirdPartyExport.sh"
	defaultExportOutputDir     = "/opt/software/eeplus/input/eeplus/ThirdPartyExport"
)
