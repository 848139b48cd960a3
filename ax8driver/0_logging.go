package ax8driver

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/womat/debug"
)

var (
	LOG_LEVEL = "INFO" // default log level
)

// LogFlag maps a LOG_LEVEL name onto the debug package flag set.
func LogFlag(level string) (int, error) {
	switch strings.ToUpper(level) {
	case "TRACE", "FULL":
		return debug.Full, nil
	case "DEBUG":
		return debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug, nil
	case "INFO", "STANDARD", "":
		return debug.Standard, nil
	case "WARNING":
		return debug.Warning | debug.Error | debug.Fatal, nil
	case "ERROR":
		return debug.Error | debug.Fatal, nil
	default:
		return debug.Standard, fmt.Errorf("unrecognized log level %q", level)
	}
}

// SetupLogging routes all leveled loggers to w.
func SetupLogging(w io.WriteCloser, level string) error {
	flag, err := LogFlag(level)
	debug.SetDebug(w, flag)
	if err != nil {
		return err
	}
	LOG_LEVEL = strings.ToUpper(level)
	return nil
}

func init() {
	logLevelStr := os.Getenv("LOG_LEVEL")
	if logLevelStr == "" {
		return
	}
	if err := SetupLogging(os.Stderr, logLevelStr); err != nil {
		debug.ErrorLog.Printf("%v. Keeping LOG_LEVEL at level INFO", err)
	}
}
