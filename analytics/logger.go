package analytics

import (
	"os"

	"github.com/intakehq/autoflow/model"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ RunDataCollector = new(LogFileDataCollector)

type LogFileDataCollector struct {
	fileName string
	file     *os.File
	logger   *zap.Logger
}

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	encoderConfig.CallerKey = ""
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(logFile), zapcore.InfoLevel)
	return &LogFileDataCollector{
		fileName: fileName,
		file:     logFile,
		logger:   zap.New(core),
	}, nil
}

func runFields(result model.RunResult) []zap.Field {
	return []zap.Field{
		zap.String("workflow", result.WorkflowId),
		zap.String("runId", result.RunId),
		zap.String("event", string(result.Event)),
		zap.Int("steps", len(result.Steps)),
		zap.Duration("duration", result.FinishedAt.Sub(result.StartedAt)),
	}
}

func (lc *LogFileDataCollector) RecordRunSuccess(result model.RunResult) {
	lc.logger.Info("success", append(runFields(result), zap.String("terminal", result.Terminal))...)
}

func (lc *LogFileDataCollector) RecordRunFailure(result model.RunResult) {
	lc.logger.Info("failure", append(runFields(result), zap.String("reason", result.Error))...)
}

func (lc *LogFileDataCollector) Sync() error {
	return lc.logger.Sync()
}

// Close flushes buffered records and releases the file.
func (lc *LogFileDataCollector) Close() error {
	return multierr.Append(lc.logger.Sync(), lc.file.Close())
}
