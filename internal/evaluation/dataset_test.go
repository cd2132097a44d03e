package evaluation

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.JPG", "a.png", "c.jpeg", "d.bmp", "notes.txt", "e.gif"} {
		writeFile(t, filepath.Join(dir, name), "x")
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.jpg"), 0755); err != nil {
		t.Fatal(err)
	}

	paths, err := CollectImages(dir)
	if err != nil {
		t.Fatalf("CollectImages: %v", err)
	}

	want := []string{"a.png", "b.JPG", "c.jpeg", "d.bmp"}
	if len(paths) != len(want) {
		t.Fatalf("got %v, want %v", paths, want)
	}
	for i, p := range paths {
		if filepath.Base(p) != want[i] {
			t.Errorf("paths[%d]: got %s, want %s", i, filepath.Base(p), want[i])
		}
	}
}

func TestCollectImages_MissingDir(t *testing.T) {
	if _, err := CollectImages(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing folder")
	}
}

func TestLoadGroundTruth(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr bool
		wantW   float64
	}{
		{
			name:    "json",
			file:    "truth.json",
			content: `{"box.jpg": {"width_mm": 180, "height_mm": 120}}`,
			wantW:   180,
		},
		{
			name:    "yaml",
			file:    "truth.yaml",
			content: "box.jpg:\n  width_mm: 175.5\n  height_mm: 110\n",
			wantW:   175.5,
		},
		{
			name:    "malformed",
			file:    "bad.json",
			content: `{"box.jpg": [1, 2]}`,
			wantErr: true,
		},
		{
			name:    "non-positive size",
			file:    "zero.json",
			content: `{"box.jpg": {"width_mm": 0, "height_mm": 120}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			writeFile(t, path, tt.content)

			truth, err := LoadGroundTruth(path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadGroundTruth: %v", err)
			}
			if got := truth["box.jpg"].WidthMM; got != tt.wantW {
				t.Errorf("width: got %v, want %v", got, tt.wantW)
			}
		})
	}
}

func TestLoadGroundTruth_Missing(t *testing.T) {
	if _, err := LoadGroundTruth(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
