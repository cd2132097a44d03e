package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// RemoteOptions configures the HTTP inference adapter.
type RemoteOptions struct {
	// URL receives a multipart POST with the image in the "file" field and the
	// threshold in the "conf" field.
	URL     string
	Timeout time.Duration
	// JPEGQuality of the uploaded frame.
	JPEGQuality int
}

// Remote forwards detection to an external inference service.
//
// The service answers with
//
//	{"detections": [{"x": 10, "y": 20, "width": 100, "height": 80, "confidence": 0.91}]}
//
// in source image pixels.
type Remote struct {
	opts   RemoteOptions
	client *http.Client
}

// NewRemote creates an HTTP-backed learned detector.
func NewRemote(opts RemoteOptions) (*Remote, error) {
	if opts.URL == "" {
		return nil, errors.Wrap(ErrDetectorUnavailable, "no inference url configured")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 90
	}
	return &Remote{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}, nil
}

type remoteDetection struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

// Detect uploads img and returns the service's candidates at or above
// threshold, clipped to the image.
func (r *Remote) Detect(ctx context.Context, img image.Image, threshold float64) ([]Candidate, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create form file")
	}
	if err := jpeg.Encode(part, img, &jpeg.Options{Quality: r.opts.JPEGQuality}); err != nil {
		return nil, errors.Wrap(err, "failed to encode image")
	}
	if err := writer.WriteField("conf", strconv.FormatFloat(threshold, 'f', -1, 64)); err != nil {
		return nil, errors.Wrap(err, "failed to write threshold field")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to close multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.opts.URL, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Detections []remoteDetection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to decode response")
	}

	bounds := img.Bounds()
	candidates := make([]Candidate, 0, len(result.Detections))
	for _, d := range result.Detections {
		if d.Confidence < threshold {
			continue
		}
		raw := rawBox{x1: d.X, y1: d.Y, x2: d.X + d.Width, y2: d.Y + d.Height, score: d.Confidence}
		if c, ok := toCandidate(raw, bounds); ok {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

// Close releases idle connections.
func (r *Remote) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
