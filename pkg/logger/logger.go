package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Leveled logger shared by the people commands.
// debug/info lines go to stdout, warn/error/fatal lines to stderr.

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu     sync.RWMutex
	stdout *log.Logger = log.New(os.Stdout, "", 0)
	stderr *log.Logger = log.New(os.Stderr, "", 0)
	level  Level       = LevelInfo
	exit   func(int)   = os.Exit
)

// ParseLevel maps debug|info|warn|error|fatal (any case) to a Level; unknown input is Info.
func ParseLevel(l string) Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	}
	return LevelInfo
}

// Init sets the global log level. Call early during startup.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	level = ParseLevel(l)
}

// SetOutput redirects both streams, mainly for tests. A nil writer leaves that stream unchanged.
func SetOutput(out, errOut io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if out != nil {
		stdout = log.New(out, "", 0)
	}
	if errOut != nil {
		stderr = log.New(errOut, "", 0)
	}
}

func header(lvl string) string {
	return fmt.Sprintf("%s [%s] ", time.Now().Format(time.RFC3339), strings.ToUpper(lvl))
}

func emit(l Level, name, format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if l < level {
		return
	}
	w := stdout
	if l >= LevelWarn {
		w = stderr
	}
	w.Printf(header(name)+format, v...)
}

func Debugf(format string, v ...interface{}) { emit(LevelDebug, "debug", format, v...) }

func Infof(format string, v ...interface{}) { emit(LevelInfo, "info", format, v...) }

func Warnf(format string, v ...interface{}) { emit(LevelWarn, "warn", format, v...) }

func Errorf(format string, v ...interface{}) { emit(LevelError, "error", format, v...) }

// Fatalf always logs, then exits with status 1.
func Fatalf(format string, v ...interface{}) {
	mu.RLock()
	w := stderr
	mu.RUnlock()
	w.Printf(header("fatal")+format, v...)
	exit(1)
}

func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}
