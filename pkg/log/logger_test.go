package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestWarningsReachSink(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stderr)

	logger := New("test")
	logger.Warningf("Unknown field '%s'", "bogus")

	if !strings.Contains(buf.String(), "Unknown field 'bogus'") {
		t.Errorf("Expected warning in sink, got %q", buf.String())
	}
}

func TestSetLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stderr)

	SetLevel(Warning)
	defer SetLevel(Notice)
	logger := New("test")
	logger.Debugf("hidden")
	logger.Errorf("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug output should be filtered at warning level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("Error output should pass the filter: %q", out)
	}
}

func TestLevelSurvivesSinkChange(t *testing.T) {
	SetLevel(Info)
	defer SetLevel(Notice)

	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stderr)

	New("test").Infof("compiled %d passes", 4)
	if !strings.Contains(buf.String(), "compiled 4 passes") {
		t.Errorf("info line lost after SetSink: %q", buf.String())
	}
	if got := CurrentLevel(); got != Info {
		t.Errorf("CurrentLevel = %v, want info", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   Debug,
		"INFO":    Info,
		"Notice":  Notice,
		"warning": Warning,
		"error":   Error,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
	if s := Level(9).String(); s != "Level(9)" {
		t.Errorf("String = %q", s)
	}
}
