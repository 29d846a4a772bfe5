package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
)

// Options controls how the process logger is built.
type Options struct {
	Name        string    // Program name, printed as the first argument
	Verbosity   int       // 0 info, 1 debug, 2+ trace
	WithoutTime bool      // Drop the timestamp column
	Writer      io.Writer // Defaults to stderr
}

// Logger provides logging functionality
type Logger struct {
	logger *pterm.Logger // Underlying logger
	name   string
}

// Init builds the logger for this process. Call it once from main and pass
// the returned handle down; nothing reads a package-level logger.
func Init(opts Options) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	l := pterm.DefaultLogger.
		WithLevel(levelFor(opts.Verbosity)).
		WithTime(!opts.WithoutTime).
		WithWriter(w)
	l.TimeFormat = "2006-01-02 15:04:05"
	l.MaxWidth = 1000

	return &Logger{logger: l, name: opts.Name}
}

func levelFor(verbosity int) pterm.LogLevel {
	switch {
	case verbosity <= 0:
		return pterm.LogLevelInfo
	case verbosity == 1:
		return pterm.LogLevelDebug
	default:
		return pterm.LogLevelTrace
	}
}

func (l *Logger) Trace(format string, v ...interface{}) {
	l.logger.Trace(l.msg(format, v...))
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.logger.Debug(l.msg(format, v...))
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.logger.Info(l.msg(format, v...))
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.logger.Warn(l.msg(format, v...))
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.logger.Error(l.msg(format, v...))
}

func (l *Logger) msg(format string, v ...interface{}) string {
	s := fmt.Sprintf(format, v...)
	if l.name == "" {
		return s
	}
	return l.name + ": " + s
}
