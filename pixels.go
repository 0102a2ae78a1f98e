package gainmap

import (
	"encoding/binary"
	"fmt"
	"image"
)

// PixelFormat is the layout of a PixelBuffer.
type PixelFormat int

const (
	FormatRGBA8 PixelFormat = iota
	FormatRGBA16
	FormatR8
	FormatR16
)

func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA8:
		return "rgba8"
	case FormatRGBA16:
		return "rgba16"
	case FormatR8:
		return "r8"
	case FormatR16:
		return "r16"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Channels returns the number of components per pixel.
func (f PixelFormat) Channels() int {
	if f == FormatR8 || f == FormatR16 {
		return 1
	}
	return 4
}

// BytesPerPixel returns the size of one pixel.
func (f PixelFormat) BytesPerPixel() int {
	if f == FormatRGBA16 || f == FormatR16 {
		return f.Channels() * 2
	}
	return f.Channels()
}

// PixelBuffer is a CPU copy of an image in an uploadable layout.
// Rows are tightly packed, 16-bit components are in native byte order.
type PixelBuffer struct {
	Width, Height int
	Format        PixelFormat
	Premultiplied bool
	Pix           []byte
}

// CheckPixelFormat reports ErrUnsupportedPixelFormat for images that cannot
// be read back into a PixelBuffer, without copying any pixels.
func CheckPixelFormat(img image.Image) error {
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64,
		*image.Gray, *image.Gray16, *image.Alpha, *image.Alpha16:
		return nil
	case nil:
		return fmt.Errorf("%w: nil image", ErrUnsupportedPixelFormat)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedPixelFormat, img)
	}
}

// NewPixelBuffer copies img into an uploadable buffer.
func NewPixelBuffer(img image.Image) (*PixelBuffer, error) {
	if err := CheckPixelFormat(img); err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedPixelFormat)
	}

	switch m := img.(type) {
	case *image.RGBA:
		return pack8(b, FormatRGBA8, true, m.Pix, m.Stride, m.PixOffset(b.Min.X, b.Min.Y)), nil
	case *image.NRGBA:
		return pack8(b, FormatRGBA8, false, m.Pix, m.Stride, m.PixOffset(b.Min.X, b.Min.Y)), nil
	case *image.Gray:
		return pack8(b, FormatR8, false, m.Pix, m.Stride, m.PixOffset(b.Min.X, b.Min.Y)), nil
	case *image.Alpha:
		return pack8(b, FormatR8, false, m.Pix, m.Stride, m.PixOffset(b.Min.X, b.Min.Y)), nil
	case *image.RGBA64:
		return pack16(b, FormatRGBA16, true, m.Pix, m.Stride, m.PixOffset(b.Min.X, b.Min.Y)), nil
	case *image.NRGBA64:
		return pack16(b, FormatRGBA16, false, m.Pix, m.Stride, m.PixOffset(b.Min.X, b.Min.Y)), nil
	case *image.Gray16:
		return pack16(b, FormatR16, false, m.Pix, m.Stride, m.PixOffset(b.Min.X, b.Min.Y)), nil
	case *image.Alpha16:
		return pack16(b, FormatR16, false, m.Pix, m.Stride, m.PixOffset(b.Min.X, b.Min.Y)), nil
	}

	return nil, fmt.Errorf("%w: %T", ErrUnsupportedPixelFormat, img)
}

func pack8(b image.Rectangle, f PixelFormat, premul bool, pix []byte, stride, offset int) *PixelBuffer {
	w, h := b.Dx(), b.Dy()
	row := w * f.BytesPerPixel()
	out := &PixelBuffer{Width: w, Height: h, Format: f, Premultiplied: premul, Pix: make([]byte, row*h)}
	for y := 0; y < h; y++ {
		copy(out.Pix[y*row:(y+1)*row], pix[offset+y*stride:])
	}
	return out
}

// pack16 converts big-endian image components to native order.
func pack16(b image.Rectangle, f PixelFormat, premul bool, pix []byte, stride, offset int) *PixelBuffer {
	w, h := b.Dx(), b.Dy()
	row := w * f.BytesPerPixel()
	out := &PixelBuffer{Width: w, Height: h, Format: f, Premultiplied: premul, Pix: make([]byte, row*h)}
	for y := 0; y < h; y++ {
		src := pix[offset+y*stride : offset+y*stride+row]
		dst := out.Pix[y*row : (y+1)*row]
		for i := 0; i+1 < len(src); i += 2 {
			binary.NativeEndian.PutUint16(dst[i:], binary.BigEndian.Uint16(src[i:]))
		}
	}
	return out
}
