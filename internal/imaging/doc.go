// Package imaging provides the pixel-level primitives the bento detectors are
// built from.
//
// The package covers decoding (with EXIF orientation), grayscale conversion,
// Gaussian smoothing, Canny edge detection, Otsu binarization, morphological
// closing, Lab-space contrast maps, cropping and box annotation. Every function
// works on standard Go image.Image values and uses a coordinate system where
// (0,0) is the top-left corner, X increases rightward and Y increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based. Rectangles follow the
// image.Rectangle convention: Min is inclusive, Max is exclusive.
//
// Images returned by Decode and the cache always have their bounds anchored at
// (0,0). Detectors rely on this so that box coordinates can be used directly as
// pixel offsets.
//
// # Grayscale
//
// Grayscale conversion uses the ITU-R BT.601 luma weights
// (0.299*R + 0.587*G + 0.114*B), which is also what brightness statistics are
// reported in.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. All other functions are stateless and
// never mutate their inputs, so they can be called concurrently.
//
// # Error Handling
//
// Every decode failure, whether the file is missing or its bytes are corrupt,
// is reported as a *DecodeError that matches ErrDecode under errors.Is.
package imaging
