package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the gateway's JSON logger. When logDir is non-empty the
// log stream is additionally written to gateway.log inside it through an
// async buffered writer so file I/O never stalls the request path.
func NewLogger(logDir string) *logrus.Logger {
	logger := logrus.New()

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "time",
			logrus.FieldKeyMsg:  "msg",
		},
	})

	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	if logDir == "" {
		logger.SetOutput(os.Stdout)
		return logger
	}

	if err := os.MkdirAll(logDir, 0750); err != nil {
		logger.SetOutput(os.Stdout)
		logger.WithError(err).Warn("failed to create log directory, logging to stdout only")
		return logger
	}

	asyncWriter, err := NewAsyncFileWriter(logDir+"/gateway.log", 32*1024)
	if err != nil {
		logger.SetOutput(os.Stdout)
		logger.WithError(err).Warn("failed to open log file, logging to stdout only")
		return logger
	}

	logger.SetOutput(asyncWriter)
	logger.AddHook(NewConsoleHook())

	return logger
}

// NewTestLogger returns a silent logger for tests.
func NewTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
