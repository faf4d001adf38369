package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestInitAndLevelString(t *testing.T) {
	Init("debug")
	if got := LevelString(); got != "debug" {
		t.Fatalf("LevelString() = %q, want %q", got, "debug")
	}
	Init("WARN")
	if got := LevelString(); got != "warn" {
		t.Fatalf("LevelString() = %q, want %q", got, "warn")
	}
	Init("Error")
	if got := LevelString(); got != "error" {
		t.Fatalf("LevelString() = %q, want %q", got, "error")
	}
	Init("nonsense")
	if got := LevelString(); got != "info" {
		t.Fatalf("LevelString() = %q, want %q for unknown input", got, "info")
	}
}

func TestLevelFilteringAndStreams(t *testing.T) {
	var out, errOut bytes.Buffer
	origOut, origErr := stdout, stderr
	SetOutput(&out, &errOut)
	defer func() { stdout, stderr = origOut, origErr }()

	Init("warn")
	Debugf("debug-msg")
	Infof("info-msg")
	Warnf("warn-msg")
	Errorf("error-msg")

	if out.Len() != 0 {
		t.Fatalf("debug/info should be suppressed at warn level, got %q", out.String())
	}
	if !strings.Contains(errOut.String(), "warn-msg") || !strings.Contains(errOut.String(), "error-msg") {
		t.Fatalf("warn/error messages missing from stderr: %q", errOut.String())
	}

	Init("info")
	out.Reset()
	errOut.Reset()
	Info("hello")
	if !strings.Contains(out.String(), "[INFO] hello") {
		t.Fatalf("info line expected on stdout, got: %q", out.String())
	}
	if errOut.Len() != 0 {
		t.Fatalf("info must not reach stderr, got %q", errOut.String())
	}
}

func TestFatalfExits(t *testing.T) {
	var errOut bytes.Buffer
	origErr, origExit := stderr, exit
	defer func() { stderr, exit = origErr, origExit }()
	SetOutput(nil, &errOut)

	code := -1
	exit = func(c int) { code = c }
	Fatalf("boom %d", 7)

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "[FATAL] boom 7") {
		t.Fatalf("fatal line missing: %q", errOut.String())
	}
}
