package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// FileStore writes one JSON file per record.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create log directory %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the log directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes rec to {filename}_{strategy}_{unix}.json. Records landing in the
// same second get a numeric suffix instead of overwriting each other.
func (s *FileStore) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode record")
	}

	base := fmt.Sprintf("%s_%s_%d", filepath.Base(rec.Filename), rec.Strategy, rec.Timestamp.Unix())
	for i := 0; ; i++ {
		name := base + ".json"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.json", base, i)
		}
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "failed to create log file")
		}
		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil {
			return errors.Wrapf(werr, "failed to write log file %s", name)
		}
		return errors.Wrapf(cerr, "failed to close log file %s", name)
	}
}

// Recent reads every record in the directory and returns the newest limit.
// Files that do not parse are skipped.
func (s *FileStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	names, err := s.logFiles()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	if limit = normalizeLimit(limit); len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// logFiles lists the record files in the directory.
func (s *FileStore) logFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read log directory")
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Count returns the number of record files.
func (s *FileStore) Count(ctx context.Context) (int, error) {
	names, err := s.logFiles()
	return len(names), err
}

// Clear removes every record file. Other files in the directory are kept.
func (s *FileStore) Clear(ctx context.Context) (int, error) {
	names, err := s.logFiles()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return removed, errors.Wrapf(err, "failed to remove log file %s", name)
		}
		removed++
	}
	return removed, nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
