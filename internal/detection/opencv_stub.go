//go:build !gocv
// +build !gocv

package detection

import (
	"image"

	"github.com/pkg/errors"
)

// OpenCVClassical is unavailable without the gocv build tag.
type OpenCVClassical struct{}

// NewOpenCVClassical reports that OpenCV support was not compiled in.
func NewOpenCVClassical(opts NativeOptions) (*OpenCVClassical, error) {
	_ = opts
	return nil, errors.Wrap(ErrBackendUnavailable, "rebuild with -tags gocv for the opencv backend")
}

// Detect always fails.
func (d *OpenCVClassical) Detect(img image.Image) (ClassicalResult, error) {
	_ = img
	return ClassicalResult{}, ErrBackendUnavailable
}
