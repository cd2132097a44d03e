package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/pkg/errors"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps records in a detections table.
type SQLiteStore struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// NewSQLiteStore opens (or creates) the database at path and migrates it.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		strategy TEXT NOT NULL,
		brightness REAL DEFAULT 0,
		angle REAL DEFAULT 0,
		inference_ms REAL DEFAULT 0,
		error_mm REAL DEFAULT 0,
		confidence REAL DEFAULT 0,
		x INTEGER DEFAULT 0,
		y INTEGER DEFAULT 0,
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		width_mm REAL DEFAULT 0,
		height_mm REAL DEFAULT 0,
		success INTEGER DEFAULT 0,
		mm_per_pixel REAL DEFAULT 0,
		ratio_source TEXT DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_detections_timestamp ON detections(timestamp);
	CREATE INDEX IF NOT EXISTS idx_detections_strategy ON detections(strategy);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Save inserts rec.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO detections (filename, timestamp, strategy, brightness, angle, inference_ms,
			error_mm, confidence, x, y, width, height, width_mm, height_mm, success,
			mm_per_pixel, ratio_source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Filename, rec.Timestamp.UTC(), rec.Strategy, rec.Brightness, rec.Angle, rec.InferenceMS,
		rec.ErrorMM, rec.Confidence, rec.BBox.X, rec.BBox.Y, rec.BBox.Width, rec.BBox.Height,
		rec.BBox.WidthMM, rec.BBox.HeightMM, rec.Success, rec.MMPerPixel, rec.RatioSource)
	if err != nil {
		return errors.Wrap(err, "failed to insert detection")
	}
	return nil
}

// Recent returns the newest limit records.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT filename, timestamp, strategy, brightness, angle, inference_ms, error_mm,
			confidence, x, y, width, height, width_mm, height_mm, success, mm_per_pixel, ratio_source
		FROM detections ORDER BY timestamp DESC, id DESC LIMIT ?
	`, normalizeLimit(limit))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query detections")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec Record
			ts  time.Time
		)
		if err := rows.Scan(&rec.Filename, &ts, &rec.Strategy, &rec.Brightness, &rec.Angle,
			&rec.InferenceMS, &rec.ErrorMM, &rec.Confidence, &rec.BBox.X, &rec.BBox.Y,
			&rec.BBox.Width, &rec.BBox.Height, &rec.BBox.WidthMM, &rec.BBox.HeightMM,
			&rec.Success, &rec.MMPerPixel, &rec.RatioSource); err != nil {
			return nil, errors.Wrap(err, "failed to scan detection")
		}
		rec.Timestamp = ts
		records = append(records, rec)
	}
	return records, errors.Wrap(rows.Err(), "failed to read detections")
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM detections`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count detections")
	}
	return n, nil
}

// Clear deletes every record.
func (s *SQLiteStore) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.ExecContext(ctx, `DELETE FROM detections`)
	if err != nil {
		return 0, errors.Wrap(err, "failed to clear detections")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count cleared detections")
	}
	return int(n), nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}
