// Package calibration derives the millimetre per pixel ratio used to turn
// detected boxes into physical sizes.
//
// Two sources are supported. A reference card of known size (credit card,
// business card or a custom card) can be located in the photo: the image is
// blurred, binarized at its Otsu level, external contours are approximated
// to polygons, and 4-vertex shapes with a plausible area and aspect ratio are
// kept. Alternatively the caller can supply the physical size of the whole
// frame and RatioFromPhysicalSize averages the two axis ratios.
//
// Failure to find a card is not an error: CalculateRatio returns ok=false
// and the caller keeps whatever ratio it already had.
package calibration
