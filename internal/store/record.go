package store

import (
	"context"
	"time"
)

// DefaultRecentLimit is used by Recent when limit is not positive.
const DefaultRecentLimit = 50

// Record is the persisted form of one detection call.
type Record struct {
	Filename    string    `json:"filename"`
	Timestamp   time.Time `json:"timestamp"`
	Strategy    string    `json:"mode"`
	Brightness  float64   `json:"brightness"`
	Angle       float64   `json:"angle"`
	InferenceMS float64   `json:"inference_time_ms"`
	ErrorMM     float64   `json:"error_mm"`
	Confidence  float64   `json:"confidence"`
	BBox        BoxRecord `json:"bbox"`
	Success     bool      `json:"success"`
	MMPerPixel  float64   `json:"mm_per_pixel"`
	RatioSource string    `json:"ratio_source"`
}

// BoxRecord is a bounding box with its physical size.
type BoxRecord struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
}

// Store is a detection log.
type Store interface {
	// Save appends one record.
	Save(ctx context.Context, rec Record) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
	// Clear deletes every record and reports how many were removed.
	Clear(ctx context.Context) (int, error)
	Close() error
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}
