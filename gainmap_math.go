package gainmap

// applyGainmap boosts a linear base color by a gainmap sample, weighted by w.
// The sample is in [0, 1] per channel; single-channel gainmaps pass the
// same value in all three.
func applyGainmap(base, sample rgb, m *Metadata, w float32) rgb {
	g := [3]float32{sample.r, sample.g, sample.b}
	e := [3]float32{base.r, base.g, base.b}
	noGamma := m.NoGamma()

	for c := 0; c < 3; c++ {
		s := g[c]
		if !noGamma {
			s = powf(s, m.gamma[c])
		}
		logBoost := m.logRatioMin[c]*(1-s) + m.logRatioMax[c]*s
		e[c] = (e[c]+m.epsilonSDR[c])*expf(logBoost*w) - m.epsilonHDR[c]
	}

	return rgb{r: e[0], g: e[1], b: e[2]}
}
