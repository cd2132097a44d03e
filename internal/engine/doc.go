// Package engine decides which box to report for a photo of a bento box.
//
// It combines a classical edge/contour detector and a learned object detector
// under three strategies:
//
//   - Classical: the classical detector on the whole image, then refinement.
//   - Learned: the model at the configured threshold, taking the most
//     confident box. When that finds nothing the model runs once more at the
//     retry threshold and the largest box wins, since the bento box is
//     normally the biggest object in frame. The chosen box is refined.
//   - Fused: the learned box, padded by a margin, becomes a region of
//     interest for the classical detector. The classical box is mapped back
//     to the full image and the confidence blends both detectors, scaled by
//     how well their areas agree.
//
// # Refinement
//
// Refine binarizes the box contents at the Otsu level and pulls each edge in
// to the first row or column containing foreground. A refinement that would
// lose more than half of either side is discarded.
//
// # Calibration
//
// Pixel sizes become millimetres through a ratio that is resolved for every
// call and reported on the result. It is never stored on the Engine, so one
// Engine can serve concurrent requests with different physical-size hints.
//
// # Errors
//
// Undecodable input returns an error matching ErrImageDecode and an unknown
// strategy one matching ErrInvalidStrategy. A missing or failing learned
// model is not an error: it yields the no-detection box with confidence 0.
package engine
