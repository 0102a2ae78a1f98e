package gainmap

import "math"

// BlendWeight returns the fraction of the gainmap boost to apply for the
// current display HDR/SDR ratio, interpolated in the log domain between
// minRatio (weight 0) and fullRatio (weight 1) and clamped to [0, 1].
//
// When both thresholds are equal the weight steps from 0 to 1 at the
// threshold. Thresholds below 1 are treated as 1, the SDR ratio.
// Non-positive or NaN ratios give 0.
func BlendWeight(hdrSdrRatio, minRatio, fullRatio float32) float32 {
	if !(hdrSdrRatio > 0) {
		return 0
	}
	minRatio, fullRatio = max(minRatio, 1), max(fullRatio, 1)
	if fullRatio == minRatio {
		if hdrSdrRatio >= fullRatio {
			return 1
		}
		return 0
	}

	lr := math.Log(float64(hdrSdrRatio))
	lmin := math.Log(float64(minRatio))
	lfull := math.Log(float64(fullRatio))

	w := (lr - lmin) / (lfull - lmin)
	if math.IsNaN(w) {
		return 0
	}
	return clamp01(float32(w))
}
