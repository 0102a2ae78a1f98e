package gainmap

import (
	"errors"
	"image"
	"image/color"

	"github.com/mdouchement/hdr/hdrcolor"
	"github.com/nfnt/resize"
)

// LinearImage is a linear-light RGB image, relative to SDR white.
// It implements hdr.Image, so it can be encoded with rgbe.Encode or tone
// mapped with the tmo operators.
type LinearImage struct {
	Rect image.Rectangle
	// Pix holds R, G, B per pixel, row by row.
	Pix []float32
}

// NewLinearImage allocates a black image.
func NewLinearImage(r image.Rectangle) *LinearImage {
	return &LinearImage{Rect: r, Pix: make([]float32, 3*r.Dx()*r.Dy())}
}

func (m *LinearImage) ColorModel() color.Model { return hdrcolor.RGBModel }
func (m *LinearImage) Bounds() image.Rectangle { return m.Rect }
func (m *LinearImage) At(x, y int) color.Color { return m.HDRAt(x, y) }
func (m *LinearImage) Size() int               { return m.Rect.Dx() * m.Rect.Dy() }

// HDRAt returns the pixel as hdrcolor.RGB.
func (m *LinearImage) HDRAt(x, y int) hdrcolor.Color {
	if !(image.Point{x, y}.In(m.Rect)) {
		return hdrcolor.RGB{}
	}
	i := m.offset(x, y)
	return hdrcolor.RGB{R: float64(m.Pix[i]), G: float64(m.Pix[i+1]), B: float64(m.Pix[i+2])}
}

func (m *LinearImage) offset(x, y int) int {
	return 3 * ((y-m.Rect.Min.Y)*m.Rect.Dx() + (x - m.Rect.Min.X))
}

func (m *LinearImage) set(x, y int, c rgb) {
	i := m.offset(x, y)
	m.Pix[i], m.Pix[i+1], m.Pix[i+2] = c.r, c.g, c.b
}

// RenderSoftware renders src on the CPU the way the GPU program does, for a
// display with the given HDR/SDR ratio. ref is the reference curve the
// destination transfer function is derived from.
//
// The gainmap is upsampled with bilinear filtering to the base size.
func RenderSoftware(src *Source, hdrSdrRatio float32, ref TransferFunction) (*image.NRGBA64, error) {
	if err := checkSource(src); err != nil {
		return nil, err
	}
	dst, err := DestinationTransfer(ref, hdrSdrRatio)
	if err != nil {
		return nil, frameError("destination transfer", err)
	}

	b := src.Base.Bounds()
	out := image.NewNRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
	forEachPixel(src, hdrSdrRatio, func(x, y int, c rgb, alpha uint16) {
		out.SetNRGBA64(x, y, color.NRGBA64{
			R: encode16(dst.Eval(c.r)),
			G: encode16(dst.Eval(c.g)),
			B: encode16(dst.Eval(c.b)),
			A: alpha,
		})
	})
	return out, nil
}

// ReconstructHDR returns the linear-light rendition of src for the given
// HDR/SDR ratio, before any display encoding.
func ReconstructHDR(src *Source, hdrSdrRatio float32) (*LinearImage, error) {
	if err := checkSource(src); err != nil {
		return nil, err
	}
	b := src.Base.Bounds()
	out := NewLinearImage(image.Rect(0, 0, b.Dx(), b.Dy()))
	forEachPixel(src, hdrSdrRatio, func(x, y int, c rgb, _ uint16) {
		out.set(x, y, c)
	})
	return out, nil
}

// forEachPixel calls fn with the boosted linear color of every base pixel,
// in coordinates relative to the base bounds.
func forEachPixel(src *Source, hdrSdrRatio float32, fn func(x, y int, c rgb, alpha uint16)) {
	b := src.Base.Bounds()
	w, h := b.Dx(), b.Dy()

	gainmap := src.Gainmap
	if gb := gainmap.Bounds(); gb.Dx() != w || gb.Dy() != h {
		gainmap = resize.Resize(uint(w), uint(h), gainmap, resize.Bilinear)
	}
	gb := gainmap.Bounds()
	single := src.Layout() == LayoutSingleChannel
	weight := src.Meta.Weight(hdrSdrRatio)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			bc := color.NRGBA64Model.Convert(src.Base.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			base := rgb{
				r: src.Transfer.Eval(float32(bc.R) / 0xffff),
				g: src.Transfer.Eval(float32(bc.G) / 0xffff),
				b: src.Transfer.Eval(float32(bc.B) / 0xffff),
			}

			gr, gg, gbl, _ := gainmap.At(gb.Min.X+x, gb.Min.Y+y).RGBA()
			sample := rgb{r: float32(gr) / 0xffff, g: float32(gg) / 0xffff, b: float32(gbl) / 0xffff}
			if single {
				sample.g, sample.b = sample.r, sample.r
			}

			fn(x, y, applyGainmap(base, sample, src.Meta, weight), bc.A)
		}
	}
}

func checkSource(src *Source) error {
	if src == nil || src.Base == nil || src.Gainmap == nil || src.Meta == nil {
		return errors.New("incomplete source")
	}
	if src.Base.Bounds().Empty() || src.Gainmap.Bounds().Empty() {
		return errors.New("empty base or gainmap image")
	}
	return nil
}

func encode16(v float32) uint16 {
	if !(v > 0) {
		return 0
	}
	return uint16(clamp01(v)*0xffff + 0.5)
}
