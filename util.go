package gainmap

import "math"

func logf(v float32) float32 { return float32(math.Log(float64(v))) }
func expf(v float32) float32 { return float32(math.Exp(float64(v))) }
func exp2f(v float32) float32 { return float32(math.Exp2(float64(v))) }
func log2f(v float32) float32 { return float32(math.Log2(float64(v))) }

func powf(x, y float32) float32 { return float32(math.Pow(float64(x), float64(y))) }

func isFinite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
