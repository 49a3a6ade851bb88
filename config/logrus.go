package config

import (
	"context"
	"os"

	"github.com/mmdatafocus/portal_backend/utils"
	"github.com/sirupsen/logrus"
)

var logg *logrus.Logger

func GetLogger() *logrus.Logger {
	return logg
}

func init() {
	logg = logrus.New()
	logg.SetOutput(os.Stdout)
	logg.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg:   "message",
			logrus.FieldKeyLevel: "severity",
		},
	})

	level, err := logrus.ParseLevel(stringFromEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logg.SetLevel(level)
}

// LoggerFromContext tags the entry with the request's correlation id and
// username when they are present.
func LoggerFromContext(ctx context.Context) *logrus.Entry {
	fields := logrus.Fields{}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		fields["correlation_id"] = cid
	}
	if user, ok := utils.GetUsernameFromContext(ctx); ok {
		fields["username"] = user
	}
	return logg.WithFields(fields)
}

// LogError writes one structured error line. data is omitted when nil.
func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
