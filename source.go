package gainmap

import (
	"errors"
	"fmt"
	"image"
)

// Source is a decoded gainmap image ready for rendering.
type Source struct {
	// Base is the SDR rendition.
	Base image.Image
	// Gainmap holds encoded gain values, possibly at a lower resolution than Base.
	Gainmap image.Image
	// Meta describes how gainmap values map to boosts.
	Meta *Metadata
	// Transfer maps encoded Base values to linear light.
	Transfer TransferFunction
}

// NewSource checks inputs eagerly: both images must be in uploadable pixel
// formats and tf must be invertible-shaped.
func NewSource(base, gainmap image.Image, meta *Metadata, tf TransferFunction) (*Source, error) {
	if base == nil || gainmap == nil {
		return nil, errors.New("missing base or gainmap image")
	}
	if meta == nil {
		return nil, errors.New("gainmap metadata missing")
	}
	if err := CheckPixelFormat(base); err != nil {
		return nil, fmt.Errorf("base image: %w", err)
	}
	if err := CheckPixelFormat(gainmap); err != nil {
		return nil, fmt.Errorf("gainmap image: %w", err)
	}
	if base.Bounds().Empty() || gainmap.Bounds().Empty() {
		return nil, errors.New("empty base or gainmap image")
	}
	if err := tf.Validate(); err != nil {
		return nil, fmt.Errorf("source transfer function: %w", err)
	}
	return &Source{Base: base, Gainmap: gainmap, Meta: meta, Transfer: tf}, nil
}

// Layout returns the gainmap channel layout.
func (s *Source) Layout() Layout {
	return GainmapLayout(s.Gainmap)
}

// Size returns the base image dimensions.
func (s *Source) Size() (width, height int) {
	b := s.Base.Bounds()
	return b.Dx(), b.Dy()
}
