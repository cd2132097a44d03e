//go:build gocv
// +build gocv

package detection

import (
	"image"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// OpenCVClassical is the classical detector backed by OpenCV.
type OpenCVClassical struct {
	opts NativeOptions
}

// NewOpenCVClassical creates the OpenCV classical detector. Blur radius r maps
// to a (2r+1)x(2r+1) Gaussian kernel and CloseRadius to the closing kernel.
func NewOpenCVClassical(opts NativeOptions) (*OpenCVClassical, error) {
	return &OpenCVClassical{opts: opts}, nil
}

// Detect returns the bounding rectangle of the largest external contour.
func (d *OpenCVClassical) Detect(img image.Image) (ClassicalResult, error) {
	start := time.Now()

	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return ClassicalResult{}, errors.Wrap(err, "failed to convert image to mat")
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorRGBToGray)

	k := 2*int(d.opts.BlurRadius) + 1
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(k, k), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, float32(d.opts.CannyLow), float32(d.opts.CannyHigh))

	ck := 2*int(d.opts.CloseRadius) + 1
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(ck, ck))
	defer kernel.Close()
	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyEx(edges, &closed, gocv.MorphClose, kernel)

	contours := gocv.FindContours(closed, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	best, bestArea := -1, -1.0
	for i := 0; i < contours.Size(); i++ {
		if a := gocv.ContourArea(contours.At(i)); a > bestArea {
			best, bestArea = i, a
		}
	}
	if best < 0 {
		return ClassicalResult{Box: NoDetection, Elapsed: time.Since(start)}, nil
	}

	return ClassicalResult{
		Box:        BoxFromRect(gocv.BoundingRect(contours.At(best))),
		Confidence: d.opts.Confidence,
		Elapsed:    time.Since(start),
	}, nil
}
