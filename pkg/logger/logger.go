package logger

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var ginOnce sync.Once

// InitLogger returns an entry tagged with node. Unknown levels fall back to info.
// The first call also decides the gin mode for the process.
func InitLogger(logLevel string, node string) *logrus.Entry {
	formattedLogger := logrus.New()

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.WithError(err).Error("Error parsing log level, using: info")
		level = logrus.InfoLevel
	}

	formattedLogger.Level = level
	formattedLogger.SetReportCaller(level >= logrus.DebugLevel)
	formattedLogger.Formatter = &logrus.TextFormatter{
		FullTimestamp: true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			return fmt.Sprintf("%s()", filepath.Base(f.Function)), fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
		},
	}
	log := logrus.NewEntry(formattedLogger).WithField("node", node)
	ginOnce.Do(func() {
		if level == logrus.DebugLevel {
			gin.DefaultWriter = log.Writer()
			gin.SetMode(gin.DebugMode)
		} else {
			gin.DefaultWriter = io.Discard
			gin.SetMode(gin.ReleaseMode)
		}
	})

	return log
}

// Discard returns an entry that drops everything, used by tests.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.Out = io.Discard
	return logrus.NewEntry(l)
}
