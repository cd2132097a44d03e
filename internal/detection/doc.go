// Package detection provides the primitive detectors the bento engine is
// built on.
//
// Two families of detector are exposed behind small interfaces:
//
//   - ClassicalDetector: a geometric edge/contour detector returning the single
//     best bounding box in the image together with a fixed confidence.
//   - LearnedDetector: an object-detection model returning zero or more scored
//     candidate boxes at a caller-chosen confidence threshold.
//
// Neither family makes any policy decision. Choosing between candidates,
// retrying, refining and fusing are the engine's job.
//
// # Backends
//
// The classical detector has a pure Go implementation (Native) and an OpenCV
// implementation that is only compiled with the "gocv" build tag. Without the
// tag, NewOpenCVClassical returns ErrBackendUnavailable.
//
// The learned detector has an ONNX Runtime backend for YOLOv8 exports and an
// HTTP backend that forwards images to a remote inference service.
//
// # Algorithm Overview
//
// The native classical pipeline is:
//
//  1. Grayscale (or Lab contrast against the border color) and Gaussian blur
//  2. Canny edge detection
//  3. Morphological closing to join broken edge segments
//  4. External contour tracing
//  5. Bounding box of the contour with the largest enclosed area
//
// # Coordinate System
//
// All coordinates use the standard image convention: origin (0, 0) at the
// top-left corner, X increases rightward, Y increases downward. A Box is
// (X, Y, Width, Height) with (X, Y) the inclusive top-left pixel.
//
// # Limitations
//
// The classical detector assumes one dominant object on a comparatively plain
// backdrop. In cluttered scenes the largest contour may belong to the
// background, which is why the engine can restrict it to a region of interest
// proposed by the learned detector.
package detection
