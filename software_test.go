package gainmap

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/hdrcolor"
)

var _ hdr.Image = (*LinearImage)(nil)

func TestApplyGainmap(t *testing.T) {
	m, err := NewMetadata(MetadataParams{
		LogRatioMax:                     []float32{float32(math.Ln2)},
		MinDisplayRatioForHDRTransition: 1,
		DisplayRatioForFullHDR:          2,
	})
	if err != nil {
		t.Fatal(err)
	}
	base := rgb{r: 0.25, g: 0.5, b: 0}

	got := applyGainmap(base, rgb{r: 1, g: 1, b: 1}, m, 1)
	if !near(got.r, 0.5, 1e-6) || !near(got.g, 1, 1e-6) || got.b != 0 {
		t.Fatalf("full boost: %+v", got)
	}

	got = applyGainmap(base, rgb{r: 0, g: 0, b: 0}, m, 1)
	if got != base {
		t.Fatalf("zero sample changed color: %+v", got)
	}

	got = applyGainmap(base, rgb{r: 1, g: 0, b: 1}, m, 0.5)
	if !near(got.r, 0.25*math.Sqrt2, 1e-6) || !near(got.g, 0.5, 1e-6) {
		t.Fatalf("half weight: %+v", got)
	}

	got = applyGainmap(base, rgb{r: 1, g: 1, b: 1}, m, 0)
	if got != base {
		t.Fatalf("zero weight changed color: %+v", got)
	}
}

func TestApplyGainmap_gammaAndOffsets(t *testing.T) {
	m, err := NewMetadata(MetadataParams{
		Gamma:                           []float32{2},
		LogRatioMin:                     []float32{0},
		LogRatioMax:                     []float32{float32(math.Log(16))},
		EpsilonSDR:                      []float32{0.1},
		EpsilonHDR:                      []float32{0.2},
		MinDisplayRatioForHDRTransition: 1,
		DisplayRatioForFullHDR:          16,
	})
	if err != nil {
		t.Fatal(err)
	}

	// 0.5^2 of log(16) is a 2x boost.
	got := applyGainmap(rgb{r: 0.4}, rgb{r: 0.5}, m, 1)
	if want := float32((0.4+0.1)*2 - 0.2); !near(got.r, want, 1e-6) {
		t.Fatalf("got %g, want %g", got.r, want)
	}
}

// gainTestSource has a 4x2 opaque base of constant code value 0x80 and a
// gainmap with full gain in the left half and no gain in the right half.
func gainTestSource(t *testing.T) *Source {
	t.Helper()
	base := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for i := range base.Pix {
		base.Pix[i] = 0x80
		if i%4 == 3 {
			base.Pix[i] = 0xff
		}
	}

	gm := image.NewGray(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		gm.SetGray(0, y, color.Gray{Y: 0xff})
		gm.SetGray(1, y, color.Gray{Y: 0xff})
	}
	return testSource(t, base, gm)
}

func channel(v uint16) float32 { return float32(v) / 0xffff }

func TestRenderSoftware(t *testing.T) {
	src := gainTestSource(t)
	code := float32(0x8080) / 0xffff

	enc, err := SRGB.Invert()
	if err != nil {
		t.Fatal(err)
	}
	linear := SRGB.Eval(code)

	for _, ratio := range []float32{1, 2, 4, 8} {
		img, err := RenderSoftware(src, ratio, SRGB)
		if err != nil {
			t.Fatalf("ratio %g: %v", ratio, err)
		}
		if img.Bounds() != image.Rect(0, 0, 4, 2) {
			t.Fatalf("bounds %v", img.Bounds())
		}

		// Boost follows the display ratio up to the full 4x, so fully boosted
		// pixels keep their code value and the rest darken.
		boost := min(ratio, 4)
		full := img.NRGBA64At(0, 1)
		none := img.NRGBA64At(3, 1)

		if want := enc.Eval(linear * boost / ratio); !near(channel(full.G), want, 2e-3) {
			t.Errorf("ratio %g: boosted pixel %g, want %g", ratio, channel(full.G), want)
		}
		if want := enc.Eval(linear / ratio); !near(channel(none.G), want, 2e-3) {
			t.Errorf("ratio %g: plain pixel %g, want %g", ratio, channel(none.G), want)
		}
		if full.A != 0xffff || img.NRGBA64At(0, 0).A != 0xffff {
			t.Errorf("ratio %g: alpha %#x", ratio, full.A)
		}
	}
}

func TestRenderSoftware_resizedGainmap(t *testing.T) {
	gm := image.NewGray(image.Rect(0, 0, 2, 1))
	gm.Pix[0], gm.Pix[1] = 0xff, 0xff
	src := testSource(t, nil, gm)

	img, err := RenderSoftware(src, 4, SRGB)
	if err != nil {
		t.Fatal(err)
	}
	want := float32(0x8080) / 0xffff
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			if c := img.NRGBA64At(x, y); !near(channel(c.R), want, 5e-3) {
				t.Fatalf("(%d, %d): %g, want %g", x, y, channel(c.R), want)
			}
		}
	}
}

func TestRenderSoftware_errors(t *testing.T) {
	if _, err := RenderSoftware(nil, 2, SRGB); err == nil {
		t.Fatal("expected error for nil source")
	}
	if _, err := RenderSoftware(&Source{}, 2, SRGB); err == nil {
		t.Fatal("expected error for empty source")
	}
	_, err := RenderSoftware(gainTestSource(t), 0, SRGB)
	if !IsFrameError(err) {
		t.Fatalf("expected frame error for zero ratio, got %v", err)
	}
}

func TestReconstructHDR(t *testing.T) {
	src := gainTestSource(t)
	linear := SRGB.Eval(float32(0x8080) / 0xffff)

	img, err := ReconstructHDR(src, 4)
	if err != nil {
		t.Fatal(err)
	}
	if img.Size() != 8 || img.ColorModel() != hdrcolor.RGBModel {
		t.Fatalf("unexpected image %v", img.Bounds())
	}

	c, ok := img.HDRAt(1, 0).(hdrcolor.RGB)
	if !ok {
		t.Fatalf("HDRAt returned %T", img.HDRAt(1, 0))
	}
	if !near(float32(c.R), 4*linear, 1e-4) {
		t.Fatalf("boosted %g, want %g", c.R, 4*linear)
	}
	if r, _, _, _ := img.HDRAt(2, 1).HDRRGBA(); !near(float32(r), linear, 1e-5) {
		t.Fatalf("plain %g, want %g", r, linear)
	}
	if img.HDRAt(10, 10).(hdrcolor.RGB) != (hdrcolor.RGB{}) {
		t.Fatal("expected black outside bounds")
	}
}

func TestEncode16(t *testing.T) {
	for _, tc := range []struct {
		v    float32
		want uint16
	}{
		{v: -1, want: 0},
		{v: 0, want: 0},
		{v: float32(math.NaN()), want: 0},
		{v: 0.5, want: 0x8000},
		{v: 1, want: 0xffff},
		{v: 3, want: 0xffff},
		{v: float32(math.Inf(1)), want: 0xffff},
		{v: 1.0 / 0xffff, want: 1},
		{v: float32(0x1234) / 0xffff, want: 0x1234},
	} {
		if got := encode16(tc.v); got != tc.want {
			t.Errorf("encode16(%g) = %#x, want %#x", tc.v, got, tc.want)
		}
	}
}

func BenchmarkRenderSoftware(b *testing.B) {
	base := image.NewNRGBA(image.Rect(0, 0, 256, 256))
	for i := range base.Pix {
		base.Pix[i] = uint8(i)
	}
	gm := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range gm.Pix {
		gm.Pix[i] = uint8(i * 3)
	}
	m, err := NewMetadata(MetadataParams{
		Gamma:                           []float32{0.5},
		LogRatioMax:                     []float32{2},
		MinDisplayRatioForHDRTransition: 1,
		DisplayRatioForFullHDR:          8,
	})
	if err != nil {
		b.Fatal(err)
	}
	src, err := NewSource(base, gm, m, SRGB)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := RenderSoftware(src, 3, SRGB); err != nil {
			b.Fatal(err)
		}
	}
}
