package gainmap

import (
	"errors"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func testMetadata(t *testing.T) *Metadata {
	t.Helper()
	m, err := NewMetadata(MetadataParams{
		LogRatioMax:                     []float32{float32(math.Ln2) * 2},
		MinDisplayRatioForHDRTransition: 1,
		DisplayRatioForFullHDR:          4,
	})
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	return m
}

func testSource(t *testing.T, base, gm image.Image) *Source {
	t.Helper()
	if base == nil {
		nb := image.NewNRGBA(image.Rect(0, 0, 4, 2))
		for i := range nb.Pix {
			nb.Pix[i] = 0x80
		}
		base = nb
	}
	if gm == nil {
		g := image.NewGray(image.Rect(0, 0, 2, 1))
		g.SetGray(0, 0, color.Gray{Y: 0xff})
		gm = g
	}
	src, err := NewSource(base, gm, testMetadata(t), SRGB)
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	return src
}

func TestNewRenderer(t *testing.T) {
	g := newFakeGPU()

	r, err := NewRenderer(g, testSource(t, nil, nil))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	defer r.Destroy()

	if g.index("LinkProgram") > g.index("TexImage2D") {
		t.Fatalf("textures uploaded before the program was linked: %v", g.calls)
	}
	for _, c := range []string{
		"TexImage2D 4 rgba8 4x2",
		"TexImage2D 5 r8 2x1",
		"Uniform uBaseTexture 0",
		"Uniform uGainmapTexture 1",
		"Uniform uGainmapIsAlpha 1",
		"Uniform uNoGamma 1",
		"Uniform uBasePremultiplied 0",
		"CreateVertexBuffer 6 24",
		"VertexAttrib 6 0 2 4 0",
		"VertexAttrib 6 1 2 4 2",
	} {
		if !g.has(c) {
			t.Errorf("missing call %q in %v", c, g.calls)
		}
	}
}

func TestNewRenderer_invalid(t *testing.T) {
	if _, err := NewRenderer(nil, testSource(t, nil, nil)); !IsSessionError(err) {
		t.Fatalf("expected session error for nil gpu, got %v", err)
	}
	if _, err := NewRenderer(newFakeGPU(), nil); !IsSessionError(err) {
		t.Fatalf("expected session error for nil source, got %v", err)
	}
}

func TestNewRenderer_unsupportedFormat(t *testing.T) {
	g := newFakeGPU()
	src := testSource(t, nil, nil)
	src.Gainmap = image.NewYCbCr(image.Rect(0, 0, 2, 2), image.YCbCrSubsampleRatio444)

	_, err := NewRenderer(g, src)
	if !errors.Is(err, ErrUnsupportedPixelFormat) || !IsSessionError(err) {
		t.Fatalf("expected session ErrUnsupportedPixelFormat, got %v", err)
	}
	if len(g.calls) != 0 {
		t.Fatalf("gpu touched before format check: %v", g.calls)
	}
}

func TestNewRenderer_compileError(t *testing.T) {
	g := newFakeGPU()
	g.failCompile = true
	g.compileFail = StageFragment

	_, err := NewRenderer(g, testSource(t, nil, nil))
	if !errors.Is(err, ErrShaderCompile) || !IsSessionError(err) {
		t.Fatalf("expected session ErrShaderCompile, got %v", err)
	}
	if g.has("CreateTexture") {
		t.Fatalf("textures created after compile failure: %v", g.calls)
	}
}

func TestNewRenderer_premultipliedBase(t *testing.T) {
	g := newFakeGPU()
	src := testSource(t, image.NewRGBA64(image.Rect(0, 0, 2, 2)), image.NewNRGBA(image.Rect(0, 0, 1, 1)))

	r, err := NewRenderer(g, src)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()

	for _, c := range []string{"TexImage2D 4 rgba16 2x2", "Uniform uBasePremultiplied 1", "Uniform uGainmapIsAlpha 0"} {
		if !g.has(c) {
			t.Errorf("missing call %q in %v", c, g.calls)
		}
	}
}

func TestRenderer_Draw(t *testing.T) {
	g := newFakeGPU()
	r, err := NewRenderer(g, testSource(t, nil, nil), func(o *RendererOptions) {
		o.ClearColor = [4]float32{0.25, 0, 0, 1}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()

	setup := len(g.calls)
	if err := r.Draw(Frame{Viewport: image.Rect(0, 0, 800, 600), HDRSDRRatio: 2}); err != nil {
		t.Fatalf("draw: %v", err)
	}

	frame := g.calls[setup:]
	want := []string{
		"Viewport 0 0 800 600",
		"Clear 0.25 0 0 1",
		"UseProgram",
		"Uniform uDestTF",
		"Uniform uW",
		"Uniform uMVPMatrix",
		"BindTexture 0 4",
		"BindTexture 1 5",
		"DrawTriangles 6 6",
	}
	if len(frame) != len(want) {
		t.Fatalf("unexpected frame calls: %v", frame)
	}
	for i, w := range want {
		if !strings.HasPrefix(frame[i], w) {
			t.Fatalf("call %d: got %q, want %q", i, frame[i], w)
		}
	}

	if math.Abs(float64(g.weight-0.5)) > 1e-6 {
		t.Fatalf("unexpected weight %g", g.weight)
	}

	dst, err := DestinationTransfer(SRGB, 2)
	if err != nil {
		t.Fatal(err)
	}
	u := dst.Uniform()
	for i, v := range g.destTF {
		if v != u[i] {
			t.Fatalf("destination transfer %v, want %v", g.destTF, u)
		}
	}
}

func TestRenderer_Draw_weightBounds(t *testing.T) {
	g := newFakeGPU()
	r, err := NewRenderer(g, testSource(t, nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()

	for ratio, want := range map[float32]float32{1: 0, 0.5: 0, 4: 1, 100: 1} {
		if err := r.Draw(Frame{Viewport: image.Rect(0, 0, 10, 10), HDRSDRRatio: ratio}); err != nil {
			t.Fatalf("ratio %g: %v", ratio, err)
		}
		if g.weight != want {
			t.Fatalf("ratio %g: weight %g, want %g", ratio, g.weight, want)
		}
	}
}

func TestRenderer_Draw_skipFrame(t *testing.T) {
	g := newFakeGPU()
	r, err := NewRenderer(g, testSource(t, nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()

	setup := len(g.calls)
	err = r.Draw(Frame{Viewport: image.Rect(0, 0, 10, 10), HDRSDRRatio: 0})
	if !IsFrameError(err) {
		t.Fatalf("expected frame error, got %v", err)
	}
	if len(g.calls) != setup {
		t.Fatalf("gpu touched by skipped frame: %v", g.calls[setup:])
	}

	if err := r.Draw(Frame{Viewport: image.Rect(0, 0, 10, 10), HDRSDRRatio: 1}); err != nil {
		t.Fatalf("renderer unusable after skipped frame: %v", err)
	}
}

func TestRenderer_Draw_emptyViewport(t *testing.T) {
	g := newFakeGPU()
	r, err := NewRenderer(g, testSource(t, nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()

	setup := len(g.calls)
	for _, vp := range []image.Rectangle{{}, image.Rect(0, 0, 0, 600), image.Rect(0, 0, 800, 0)} {
		if err := r.Draw(Frame{Viewport: vp, HDRSDRRatio: 2}); err != nil {
			t.Fatalf("%v: %v", vp, err)
		}
	}
	if len(g.calls) != setup {
		t.Fatalf("gpu touched for empty viewport: %v", g.calls[setup:])
	}
}

func TestRenderer_Draw_gpuError(t *testing.T) {
	g := newFakeGPU()
	r, err := NewRenderer(g, testSource(t, nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()

	g.errAt = len(g.calls) + 1
	err = r.Draw(Frame{Viewport: image.Rect(0, 0, 10, 10), HDRSDRRatio: 2})
	if !IsFrameError(err) || !errors.Is(err, ErrGPU) {
		t.Fatalf("expected frame ErrGPU, got %v", err)
	}
	if g.has("DrawTriangles") {
		t.Fatal("draw issued after gpu error")
	}

	if err := r.Draw(Frame{Viewport: image.Rect(0, 0, 10, 10), HDRSDRRatio: 2}); err != nil {
		t.Fatalf("next frame: %v", err)
	}
}

func TestRenderer_Destroy(t *testing.T) {
	g := newFakeGPU()
	r, err := NewRenderer(g, testSource(t, nil, nil))
	if err != nil {
		t.Fatal(err)
	}

	r.Destroy()
	r.Destroy()

	for _, c := range []string{"DeleteVertexBuffer", "DeleteTexture", "DeleteProgram"} {
		want := 1
		if c == "DeleteTexture" {
			want = 2
		}
		if n := g.count(c); n != want {
			t.Fatalf("%s called %d times, want %d", c, n, want)
		}
	}

	if err := r.Draw(Frame{HDRSDRRatio: 1}); !IsSessionError(err) {
		t.Fatalf("expected session error after destroy, got %v", err)
	}
}

func TestFitMVP(t *testing.T) {
	m := FitMVP(200, 100, 400, 400, mgl32.Mat4{})

	check := func(x, y, wantX, wantY float32) {
		t.Helper()
		p := m.Mul4x1(mgl32.Vec4{x, y, 0, 1})
		if math.Abs(float64(p.X()-wantX)) > 1e-5 || math.Abs(float64(p.Y()-wantY)) > 1e-5 {
			t.Fatalf("(%g, %g) projected to (%g, %g), want (%g, %g)", x, y, p.X(), p.Y(), wantX, wantY)
		}
	}

	// Letterboxed: full width, centred vertically, y axis pointing down.
	check(0, 0, -1, 0.5)
	check(200, 100, 1, -0.5)
	check(100, 50, 0, 0)

	// A transform is applied in viewport pixels.
	m = FitMVP(200, 100, 400, 400, mgl32.Translate3D(200, 0, 0))
	check(0, 0, 0, 0.5)
}
