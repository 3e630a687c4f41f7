package telemetry

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.WarnLevel)
	return l
}

// Log returns the process-wide diagnostic logger.
func Log() *logrus.Logger { return logger }

// ConfigureLogging sets the output and level of the diagnostic logger.
// An empty level leaves the current one in place.
func ConfigureLogging(w io.Writer, level string) error {
	if w != nil {
		logger.SetOutput(w)
	}
	if level == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("telemetry: log level: %w", err)
	}
	logger.SetLevel(lvl)
	return nil
}
