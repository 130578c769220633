package logger

import (
	"log/slog"

	"github.com/go-co-op/gocron/v2"
)

// schedulerLogger implements gocron.Logger on top of slog.
type schedulerLogger struct {
	log *slog.Logger
}

// NewSchedulerLogger returns a gocron.Logger that forwards to log.
//
//nolint:ireturn // gocron.WithLogger takes the interface
func NewSchedulerLogger(log *slog.Logger) gocron.Logger {
	if log == nil {
		log = slog.Default()
	}
	return &schedulerLogger{log: log.With("component", "gocron")}
}

func (l *schedulerLogger) Debug(msg string, args ...any) { l.log.Debug(msg, args...) }
func (l *schedulerLogger) Info(msg string, args ...any)  { l.log.Info(msg, args...) }
func (l *schedulerLogger) Warn(msg string, args ...any)  { l.log.Warn(msg, args...) }
func (l *schedulerLogger) Error(msg string, args ...any) { l.log.Error(msg, args...) }
