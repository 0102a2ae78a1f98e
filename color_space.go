package gainmap

import (
	"bytes"
	"sort"
)

// Gamut names a color gamut recognized in an embedded ICC profile.
type Gamut string

const (
	GamutSRGB      Gamut = "srgb"
	GamutDisplayP3 Gamut = "display-p3"
	GamutAdobeRGB  Gamut = "adobe-rgb"
)

// ColorProfile is what an embedded ICC profile tells about the base image.
type ColorProfile struct {
	Gamut    Gamut
	Transfer TransferFunction
}

// DetectColorProfile inspects ICC APP2 payloads of a JPEG.
// Unknown or missing profiles are treated as sRGB.
func DetectColorProfile(icc [][]byte) ColorProfile {
	profile := collectICCProfile(icc)
	lower := bytes.ToLower(profile)
	switch {
	case len(profile) == 0:
	case bytes.Contains(lower, []byte("display p3")) || bytes.Contains(lower, []byte("dci-p3")):
		// Display P3 shares the sRGB curve.
		return ColorProfile{Gamut: GamutDisplayP3, Transfer: SRGB}
	case bytes.Contains(lower, []byte("adobe rgb")) || bytes.Contains(lower, []byte("adobergb")):
		return ColorProfile{Gamut: GamutAdobeRGB, Transfer: AdobeRGBGamma}
	}
	return ColorProfile{Gamut: GamutSRGB, Transfer: SRGB}
}

// SourceTransferFromICC returns the encoded to linear curve of a base image
// from its ICC APP2 payloads. The gamut is not converted.
func SourceTransferFromICC(icc [][]byte) TransferFunction {
	return DetectColorProfile(icc).Transfer
}

// collectICCProfile joins ICC chunks in sequence order.
func collectICCProfile(icc [][]byte) []byte {
	type chunk struct {
		seq  int
		data []byte
	}
	chunks := make([]chunk, 0, len(icc))
	for _, p := range icc {
		// "ICC_PROFILE\0", sequence number, chunk count, profile bytes.
		if len(p) > len(iccSig)+2 && bytes.HasPrefix(p, iccSig) {
			chunks = append(chunks, chunk{seq: int(p[len(iccSig)]), data: p[len(iccSig)+2:]})
		}
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].seq < chunks[j].seq })

	var out []byte
	for _, c := range chunks {
		out = append(out, c.data...)
	}
	return out
}
