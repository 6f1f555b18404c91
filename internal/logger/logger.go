package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fields is an alias so callers do not import logrus directly.
type Fields = logrus.Fields

var baseLogger = newLogger(os.Stdout)

func newLogger(w io.Writer) *logrus.Logger {
	if w == nil {
		w = os.Stdout
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(textFormatter())
	return l
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	}
}

func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	baseLogger.SetOutput(w)
}

func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	baseLogger.SetLevel(lvl)
}

// SetFormat switches between "text" (default) and "json".
func SetFormat(format string) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		baseLogger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	default:
		baseLogger.SetFormatter(textFormatter())
	}
}

func Level() string {
	return baseLogger.GetLevel().String()
}

func WithFields(fields Fields) *logrus.Entry {
	return baseLogger.WithFields(fields)
}

func Debugf(format string, v ...any) {
	baseLogger.Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	baseLogger.Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	baseLogger.Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	baseLogger.Error(fmt.Sprintf(format, v...))
}

func InfoBlock(block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	for _, line := range strings.Split(block, "\n") {
		Infof("%s", line)
	}
}
