package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/op/go-logging"
)

type Level logging.Level

// The levels that can be passed to SetLevel and SetModuleLevel.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

var levelNames = map[string]Level{
	"debug":   Debug,
	"info":    Info,
	"notice":  Notice,
	"warning": Warning,
	"error":   Error,
}

var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{level:.4s} %{module:-10s}%{color:reset} %{message}`,
)

var (
	mu             sync.Mutex
	leveledBackend logging.LeveledBackend
	globalLevel    = Notice
	moduleLevels   = map[string]Level{}
)

// Logger is the leveled logger used by every lumen package.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})

	Critical(v ...interface{})
	Criticalf(format string, v ...interface{})
}

// New creates a named logger; the name shows up as the module column and
// is the key for SetModuleLevel.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// SetSink overrides the backend output sink. Configured levels carry over.
func SetSink(sink io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	backend := logging.NewLogBackend(sink, "", 0)
	leveledBackend = logging.AddModuleLevel(logging.NewBackendFormatter(backend, format))
	logging.SetBackend(leveledBackend)
	applyLevels()
}

// SetLevel sets the verbosity of every module without its own level.
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	globalLevel = level
	applyLevels()
}

// SetModuleLevel sets the verbosity of one module, overriding SetLevel.
func SetModuleLevel(module string, level Level) {
	mu.Lock()
	defer mu.Unlock()
	moduleLevels[module] = level
	applyLevels()
}

// IsEnabled reports whether a message at level from module would be written.
func IsEnabled(module string, level Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return leveledBackend.IsEnabledFor(level.backendLevel(), module)
}

// ParseLevel maps a level name such as "debug" to a Level.
func ParseLevel(name string) (Level, error) {
	level, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// ParseModuleLevels applies a comma separated list of module=level pairs,
// e.g. "integrator=debug,scene=info".
func ParseModuleLevels(spec string) error {
	for _, pair := range strings.Split(spec, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		module, name, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(module) == "" {
			return fmt.Errorf("invalid module level %q, expected module=level", pair)
		}
		level, err := ParseLevel(name)
		if err != nil {
			return err
		}
		SetModuleLevel(strings.TrimSpace(module), level)
	}
	return nil
}

// applyLevels pushes the global and module levels to the backend; mu is held
func applyLevels() {
	leveledBackend.SetLevel(globalLevel.backendLevel(), "")
	for module, level := range moduleLevels {
		leveledBackend.SetLevel(level.backendLevel(), module)
	}
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
	}
	return logging.NOTICE
}

func init() {
	SetSink(os.Stderr)
}
