package store

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func sampleRecord(name string, ts time.Time) Record {
	return Record{
		Filename:    name,
		Timestamp:   ts,
		Strategy:    "fused",
		Brightness:  120.5,
		InferenceMS: 42,
		Confidence:  0.81,
		BBox:        BoxRecord{X: 10, Y: 20, Width: 300, Height: 200, WidthMM: 55.8, HeightMM: 37.2},
		Success:     true,
		MMPerPixel:  0.1862,
		RatioSource: "default",
	}
}

func TestFileStore_SaveAndRecent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		if err := s.Save(ctx, sampleRecord(name, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Save(%s) failed: %v", name, err)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "a.jpg_fused_"+strconv.FormatInt(base.Unix(), 10)+".json")); err != nil {
		t.Errorf("expected log file named after filename, strategy and time: %v", err)
	}

	recs, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records: got %d, want 2", len(recs))
	}
	if recs[0].Filename != "c.jpg" || recs[1].Filename != "b.jpg" {
		t.Errorf("order: got %s, %s, want c.jpg, b.jpg", recs[0].Filename, recs[1].Filename)
	}
	if recs[0].BBox.WidthMM != 55.8 || !recs[0].Success {
		t.Errorf("record fields not preserved: %+v", recs[0])
	}
}

func TestFileStore_SameSecondDoesNotOverwrite(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := s.Save(ctx, sampleRecord("same.jpg", ts)); err != nil {
			t.Fatalf("Save #%d failed: %v", i, err)
		}
	}

	recs, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("records: got %d, want 3", len(recs))
	}
}

func TestFileStore_SkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644)
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644)

	if err := s.Save(context.Background(), sampleRecord("x.jpg", time.Now())); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	recs, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("records: got %d, want 1", len(recs))
	}
}

func TestSQLiteStore_SaveAndRecent(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "bento.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		if err := s.Save(ctx, sampleRecord(name, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Save(%s) failed: %v", name, err)
		}
	}

	n, err := s.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Count: got %d, %v, want 3", n, err)
	}

	recs, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recs) != 2 || recs[0].Filename != "c.jpg" {
		t.Fatalf("Recent: got %+v, want c.jpg first", recs)
	}
	got := recs[0]
	if got.BBox.Width != 300 || got.BBox.HeightMM != 37.2 || !got.Success || got.RatioSource != "default" {
		t.Errorf("record fields not preserved: %+v", got)
	}
	if !got.Timestamp.Equal(base.Add(2 * time.Second)) {
		t.Errorf("Timestamp: got %v, want %v", got.Timestamp, base.Add(2*time.Second))
	}
}

func TestMultiStore_FansOut(t *testing.T) {
	first, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewSQLiteStore(filepath.Join(t.TempDir(), "bento.db"))
	if err != nil {
		t.Fatal(err)
	}
	m := NewMultiStore(first, second)
	defer m.Close()
	ctx := context.Background()

	if err := m.Save(ctx, sampleRecord("a.jpg", time.Now())); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if recs, _ := first.Recent(ctx, 10); len(recs) != 1 {
		t.Errorf("file store records: got %d, want 1", len(recs))
	}
	if n, _ := second.Count(ctx); n != 1 {
		t.Errorf("sqlite records: got %d, want 1", n)
	}
	if recs, _ := m.Recent(ctx, 10); len(recs) != 1 {
		t.Errorf("multi records: got %d, want 1", len(recs))
	}
}

func TestMultiStore_Empty(t *testing.T) {
	m := NewMultiStore()
	if err := m.Save(context.Background(), Record{}); err != nil {
		t.Errorf("Save: got %v, want nil", err)
	}
	if recs, err := m.Recent(context.Background(), 5); recs != nil || err != nil {
		t.Errorf("Recent: got %v, %v", recs, err)
	}
	if n, err := m.Count(context.Background()); n != 0 || err != nil {
		t.Errorf("Count: got %d, %v", n, err)
	}
	if n, err := m.Clear(context.Background()); n != 0 || err != nil {
		t.Errorf("Clear: got %d, %v", n, err)
	}
}

func TestStore_CountAndClear(t *testing.T) {
	tests := []struct {
		name string
		open func(t *testing.T) Store
	}{
		{"file", func(t *testing.T) Store {
			s, err := NewFileStore(t.TempDir())
			if err != nil {
				t.Fatal(err)
			}
			return s
		}},
		{"sqlite", func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "bento.db"))
			if err != nil {
				t.Fatal(err)
			}
			return s
		}},
		{"multi", func(t *testing.T) Store {
			f, err := NewFileStore(t.TempDir())
			if err != nil {
				t.Fatal(err)
			}
			q, err := NewSQLiteStore(filepath.Join(t.TempDir(), "bento.db"))
			if err != nil {
				t.Fatal(err)
			}
			return NewMultiStore(f, q)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.open(t)
			defer s.Close()
			ctx := context.Background()

			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			for i := 0; i < 4; i++ {
				if err := s.Save(ctx, sampleRecord("a.jpg", base.Add(time.Duration(i)*time.Second))); err != nil {
					t.Fatalf("Save failed: %v", err)
				}
			}
			if n, err := s.Count(ctx); err != nil || n != 4 {
				t.Fatalf("Count: got %d, %v, want 4", n, err)
			}

			removed, err := s.Clear(ctx)
			if err != nil || removed != 4 {
				t.Fatalf("Clear: got %d, %v, want 4", removed, err)
			}
			if n, _ := s.Count(ctx); n != 0 {
				t.Errorf("Count after Clear: got %d, want 0", n)
			}
			if recs, _ := s.Recent(ctx, 10); len(recs) != 0 {
				t.Errorf("Recent after Clear: got %d records", len(recs))
			}
		})
	}
}

func TestFileStore_ClearKeepsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644)
	if err := s.Save(context.Background(), sampleRecord("x.jpg", time.Now())); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if n, err := s.Clear(context.Background()); err != nil || n != 1 {
		t.Fatalf("Clear: got %d, %v, want 1", n, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Errorf("notes.txt should survive Clear: %v", err)
	}
}
