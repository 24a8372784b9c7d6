package main

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. initLogger must run before anything logs.
var Log = logrus.New()

// initLogger configures Log from LOG_LEVEL and LOG_FORMAT.
// "json" is meant for production log shipping, anything else prints text.
func initLogger(out io.Writer) {
	level, err := logrus.ParseLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	if out == nil {
		out = os.Stdout
	}
	Log.SetOutput(out)
}

// componentLog returns a logger tagged with the component name.
func componentLog(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
