// Package log provides named, leveled loggers shared by the render graph, its
// passes, the CLI and the preview server. Output goes to a single replaceable
// sink; the verbosity survives sink changes.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/op/go-logging"
)

// Level is a logging verbosity, from most to least verbose
type Level int

const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

var levelNames = [...]string{"debug", "info", "notice", "warning", "error"}

func (l Level) String() string {
	if l < Debug || l > Error {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel accepts a level name in any case
func ParseLevel(name string) (Level, error) {
	for i, n := range levelNames {
		if strings.EqualFold(name, n) {
			return Level(i), nil
		}
	}
	return Notice, fmt.Errorf("log: unknown level %q", name)
}

func (l Level) backendLevel() logging.Level {
	switch l {
	case Debug:
		return logging.DEBUG
	case Info:
		return logging.INFO
	case Warning:
		return logging.WARNING
	case Error:
		return logging.ERROR
	default:
		return logging.NOTICE
	}
}

// Lines look like "[15:04:05.000] [restir] [WARNING] message"; the server's
// console hub parses this layout back into fields.
var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

// Logger is the leveled interface every package logs through
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// output is the process-wide sink and verbosity
var output = struct {
	sync.Mutex
	level   Level
	backend logging.LeveledBackend
}{level: Notice}

// New creates a named logger. The name shows up as the module of each line.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// SetSink sends all log output to sink, keeping the current level
func SetSink(sink io.Writer) {
	output.Lock()
	defer output.Unlock()

	formatted := logging.NewBackendFormatter(logging.NewLogBackend(sink, "", 0), format)
	output.backend = logging.AddModuleLevel(formatted)
	output.backend.SetLevel(output.level.backendLevel(), "")
	logging.SetBackend(output.backend)
}

// SetLevel sets the verbosity for every logger
func SetLevel(level Level) {
	output.Lock()
	defer output.Unlock()

	output.level = level
	output.backend.SetLevel(level.backendLevel(), "")
}

// CurrentLevel returns the verbosity last set with SetLevel
func CurrentLevel() Level {
	output.Lock()
	defer output.Unlock()
	return output.level
}

func init() {
	SetSink(os.Stderr)
}
