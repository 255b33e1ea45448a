// Package logger provides the levelled logging facade used across sweep.
// Messages are written through a phuslu/log console logger on standard error.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	plog "github.com/phuslu/log"
)

// LogLevel is a type representing the logging level.
type LogLevel int

const (
	// LevelDebug is the log level used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is the log level used for general informational messages.
	LevelInfo
	// LevelWarn is the log level used for potential issues or warning messages.
	LevelWarn
	// LevelError is the log level used for error messages.
	LevelError
	// LevelFatal is the log level used for fatal error messages that cause application termination.
	LevelFatal
)

var levelMapping = map[LogLevel]plog.Level{
	LevelDebug: plog.DebugLevel,
	LevelInfo:  plog.InfoLevel,
	LevelWarn:  plog.WarnLevel,
	LevelError: plog.ErrorLevel,
	LevelFatal: plog.FatalLevel,
}

// output lets SetOutput swap the destination while other goroutines are logging.
type output struct {
	mu sync.Mutex
	w  io.Writer
}

func (o *output) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.w.Write(p)
}

var out = &output{w: os.Stderr}

var backend = plog.Logger{
	Level:      plog.InfoLevel,
	TimeFormat: "2006-01-02 15:04:05",
	Writer:     &plog.ConsoleWriter{Writer: out},
}

// SetLogLevel sets the global log level.
// Valid values are "DEBUG", "INFO", "WARN", "ERROR", "FATAL" (case-insensitive).
// Any other value selects INFO and prints a notice to standard error.
func SetLogLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		setLevel(LevelDebug)
	case "INFO":
		setLevel(LevelInfo)
	case "WARN":
		setLevel(LevelWarn)
	case "ERROR":
		setLevel(LevelError)
	case "FATAL":
		setLevel(LevelFatal)
	default:
		fmt.Fprintf(os.Stderr, "Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
		setLevel(LevelInfo)
	}
}

// CurrentLevel returns the active log level.
func CurrentLevel() LogLevel {
	for lvl, pl := range levelMapping {
		if pl == backend.Level {
			return lvl
		}
	}
	return LevelInfo
}

func setLevel(lvl LogLevel) {
	backend.Level = levelMapping[lvl]
}

// SetOutput redirects log output to w as plain console lines.
func SetOutput(w io.Writer) {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.w = w
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	backend.Debug().Msgf(format, v...)
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	backend.Info().Msgf(format, v...)
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	backend.Warn().Msgf(format, v...)
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	backend.Error().Msgf(format, v...)
}

// Fatalf formats and outputs a FATAL level log message, then terminates the program.
func Fatalf(format string, v ...interface{}) {
	backend.Error().Msgf("[FATAL] "+format, v...)
	os.Exit(1)
}
