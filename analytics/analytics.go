package analytics

import "github.com/intakehq/autoflow/model"

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"
const NOOP_DATA_COLLECTOR DataCollectorType = "NOOP_DATA_COLLECTOR"

// RunDataCollector records the outcome of every workflow run for reporting.
type RunDataCollector interface {
	RecordRunSuccess(result model.RunResult)
	RecordRunFailure(result model.RunResult)
}

func NewDataCollector(config DataCollectorConfig) (RunDataCollector, error) {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		return NewLogFileDataCollector(config.FileName)
	}
	return NoopDataCollector{}, nil
}

// Record routes result to the success or failure stream.
func Record(collector RunDataCollector, result model.RunResult) {
	if collector == nil {
		return
	}
	if result.Success {
		collector.RecordRunSuccess(result)
		return
	}
	collector.RecordRunFailure(result)
}

type NoopDataCollector struct{}

func (NoopDataCollector) RecordRunSuccess(result model.RunResult) {}
func (NoopDataCollector) RecordRunFailure(result model.RunResult) {}
