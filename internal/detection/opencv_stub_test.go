//go:build !gocv
// +build !gocv

package detection

import (
	"errors"
	"image/color"
	"testing"
)

func TestOpenCVClassical_Unavailable(t *testing.T) {
	if _, err := NewOpenCVClassical(DefaultNativeOptions()); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("got %v, want ErrBackendUnavailable", err)
	}

	var d OpenCVClassical
	if _, err := d.Detect(createTestImage(10, 10, color.White)); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Detect: got %v, want ErrBackendUnavailable", err)
	}
}
