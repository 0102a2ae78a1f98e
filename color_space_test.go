package gainmap

import "testing"

func iccChunk(seq, total byte, data string) []byte {
	return append(append(append([]byte(nil), iccSig...), seq, total), data...)
}

func TestDetectColorProfile(t *testing.T) {
	for name, tc := range map[string]struct {
		icc  [][]byte
		want ColorProfile
	}{
		"none":    {want: ColorProfile{Gamut: GamutSRGB, Transfer: SRGB}},
		"unknown": {icc: [][]byte{iccChunk(1, 1, "desc ProPhoto")}, want: ColorProfile{Gamut: GamutSRGB, Transfer: SRGB}},
		"p3": {
			icc:  [][]byte{iccChunk(1, 1, "mluc Display P3")},
			want: ColorProfile{Gamut: GamutDisplayP3, Transfer: SRGB},
		},
		"adobe split": {
			// Chunks out of order, the name spans both.
			icc:  [][]byte{iccChunk(2, 2, "e RGB (1998)"), iccChunk(1, 2, "desc Adob")},
			want: ColorProfile{Gamut: GamutAdobeRGB, Transfer: AdobeRGBGamma},
		},
		"not icc": {icc: [][]byte{[]byte("MPF\x00Display P3")}, want: ColorProfile{Gamut: GamutSRGB, Transfer: SRGB}},
	} {
		if got := DetectColorProfile(tc.icc); got != tc.want {
			t.Errorf("%s: got %+v, want %+v", name, got, tc.want)
		}
	}

	if SourceTransferFromICC([][]byte{iccChunk(1, 1, "adobergb")}) != AdobeRGBGamma {
		t.Fatal("expected Adobe RGB curve")
	}
}
