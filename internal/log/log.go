package log

import (
	"strings"

	"github.com/tacusci/logging/v2"
)

var Debug = func(format string, a ...interface{}) {
	logging.Debug(format, a...) //nolint
}

var Info = func(format string, a ...interface{}) {
	logging.Info(format, a...) //nolint
}

var Warn = func(format string, a ...interface{}) {
	logging.Warn(format, a...) //nolint
}

var Error = func(format string, a ...interface{}) {
	logging.Error(format, a...) //nolint
}

var Fatal = func(format string, a ...interface{}) {
	logging.Fatal(format, a...) //nolint
}

// SetLevel maps a LOG_LEVEL value onto the logging package levels.
// Unknown values leave the current level untouched.
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		logging.SetLevel(logging.DebugLevel)
	case "warn", "warning":
		logging.SetLevel(logging.WarnLevel)
	case "info":
		logging.SetLevel(logging.InfoLevel)
	case "silent", "off":
		logging.SetLevel(logging.SilentLevel)
	}
}
