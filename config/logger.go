package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// InitLogger configures the shared logrus instance. JSON to stdout; the
// level comes from config and can be changed at runtime via SetLogLevel.
func InitLogger(level string) {
	Log = logrus.New()
	Log.SetFormatter(&logrus.JSONFormatter{})
	Log.SetOutput(os.Stdout)
	Log.SetLevel(parseLevel(level))
}

// SetLogLevel applies a new level to the shared logger. Used by the config
// watcher on hot reload.
func SetLogLevel(level string) {
	if Log != nil {
		Log.SetLevel(parseLevel(level))
	}
}

func parseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}
