package kind

import (
	"fmt"

	"github.com/go-logr/logr"
	kindlog "sigs.k8s.io/kind/pkg/log"
)

// logrAdapter implements kind's logger on top of logr. Kind's verbosity
// levels map directly onto logr V levels.
type logrAdapter struct {
	logger logr.Logger
}

func (l *logrAdapter) Warn(message string) {
	l.logger.Info(message, "level", "warning")
}

func (l *logrAdapter) Warnf(format string, args ...any) {
	l.Warn(fmt.Sprintf(format, args...))
}

func (l *logrAdapter) Error(message string) {
	l.logger.Error(nil, message)
}

func (l *logrAdapter) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}

func (l *logrAdapter) V(level kindlog.Level) kindlog.InfoLogger {
	return infoLogger{logger: l.logger.V(int(level))}
}

type infoLogger struct {
	logger logr.Logger
}

func (l infoLogger) Info(message string) {
	l.logger.Info(message)
}

func (l infoLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l infoLogger) Enabled() bool {
	return l.logger.Enabled()
}
