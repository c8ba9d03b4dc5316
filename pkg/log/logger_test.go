package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func resetLevels(t *testing.T) {
	t.Cleanup(func() {
		mu.Lock()
		moduleLevels = map[string]Level{}
		globalLevel = Notice
		mu.Unlock()
		SetSink(os.Stderr)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		expected Level
		wantErr  bool
	}{
		{"debug", Debug, false},
		{" Info ", Info, false},
		{"WARNING", Warning, false},
		{"verbose", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: unexpected error state %v", tt.name, err)
			continue
		}
		if !tt.wantErr && got != tt.expected {
			t.Errorf("%q: expected %v, got %v", tt.name, tt.expected, got)
		}
	}
}

func TestModuleLevels(t *testing.T) {
	resetLevels(t)
	var buf bytes.Buffer
	SetSink(&buf)
	SetLevel(Warning)
	if err := ParseModuleLevels("integrator=debug, scene=error"); err != nil {
		t.Fatalf("ParseModuleLevels: %v", err)
	}

	New("integrator").Debugf("chain %d", 3)
	New("scene").Warning("dropped")
	New("renderer").Info("dropped")
	New("renderer").Error("kept")

	out := buf.String()
	if !strings.Contains(out, "chain 3") || !strings.Contains(out, "kept") {
		t.Errorf("expected messages missing:\n%s", out)
	}
	if strings.Contains(out, "dropped") {
		t.Errorf("filtered message was written:\n%s", out)
	}
	if !IsEnabled("integrator", Debug) || IsEnabled("scene", Warning) {
		t.Error("IsEnabled disagrees with the configured module levels")
	}
}

func TestModuleLevelsSurviveSinkChange(t *testing.T) {
	resetLevels(t)
	SetModuleLevel("output", Debug)
	var buf bytes.Buffer
	SetSink(&buf)
	New("output").Debug("written")
	if !strings.Contains(buf.String(), "written") {
		t.Errorf("module level lost after SetSink: %q", buf.String())
	}
}

func TestParseModuleLevelsErrors(t *testing.T) {
	resetLevels(t)
	for _, spec := range []string{"integrator", "=debug", "scene=loud"} {
		if err := ParseModuleLevels(spec); err == nil {
			t.Errorf("%q: expected an error", spec)
		}
	}
}
