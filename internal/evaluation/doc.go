// Package evaluation scores the detection strategies against ground truth
// over a batch of images.
//
// Each image is detected independently by a bounded worker pool; per-image
// outcomes keep the input order and carry either a result or the error that
// excluded the image. Metrics aggregate the successful outcomes per strategy
// and CompareAll picks the most accurate, the fastest and the most reliable
// strategy.
//
// Error statistics only consider images with a positive error_mm, so images
// without ground truth (error 0) do not pull the mean down. A missed
// detection on an image with ground truth contributes the engine's large
// missed-detection error.
package evaluation
