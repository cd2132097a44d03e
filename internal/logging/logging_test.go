package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logrus.Level
		wantErr bool
	}{
		{"", logrus.InfoLevel, false},
		{"DEBUG", logrus.DebugLevel, false},
		{"warning", logrus.WarnLevel, false},
		{" error ", logrus.ErrorLevel, false},
		{"verbose", logrus.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error: got %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_LevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "warn", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	log.Info("hidden")
	log.WithField("image", "a.jpg").Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "image=a.jpg") {
		t.Errorf("warn entry missing from output: %q", out)
	}
}

func TestNew_TeesToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "bento.log")

	log, err := New(Options{Output: &buf, File: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	log.Info("persisted")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "persisted") || !strings.Contains(buf.String(), "persisted") {
		t.Error("entry should reach both the writer and the file")
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}
