package notify

import (
	"context"

	"go.uber.org/zap"
)

// Log mirrors every alert into the service log, so gate decisions stay
// visible even when no chat channel is configured.
type Log struct {
	logger *zap.Logger
}

func NewLog(l *zap.Logger) *Log {
	if l == nil {
		l = zap.NewNop()
	}
	return &Log{logger: l}
}

func (n *Log) Notify(ctx context.Context, a Alert) error {
	fields := []zap.Field{
		zap.String("suite", a.Suite),
		zap.String("run_id", string(a.RunID)),
		zap.String("verdict", string(a.Verdict)),
	}
	if a.Report != nil {
		fields = append(fields,
			zap.Int("passed", a.Report.Passed),
			zap.Int("total", a.Report.Total),
			zap.Int("critical_failures", a.Report.CriticalFailures),
		)
	}
	if a.Recovered {
		n.logger.Info("gate_recovered", fields...)
	} else {
		n.logger.Warn("gate_critical", fields...)
	}
	return nil
}
