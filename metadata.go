package gainmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// Layout describes how gain values are stored in the gainmap image.
type Layout int

const (
	// LayoutRGB gainmaps carry one gain per color channel.
	LayoutRGB Layout = iota
	// LayoutSingleChannel gainmaps carry one gain broadcast to all channels.
	LayoutSingleChannel
)

func (l Layout) String() string {
	if l == LayoutSingleChannel {
		return "single-channel"
	}
	return "rgb"
}

// GainmapLayout tells the layout from the pixel format of a gainmap image.
func GainmapLayout(img image.Image) Layout {
	switch img.(type) {
	case *image.Gray, *image.Gray16, *image.Alpha, *image.Alpha16:
		return LayoutSingleChannel
	default:
		return LayoutRGB
	}
}

// MetadataParams is the serializable form of gainmap metadata.
//
// Slices hold either one value (applied to all channels) or three.
// Log ratios use the natural logarithm.
type MetadataParams struct {
	Gamma       []float32 `json:"gamma" yaml:"gamma"`
	LogRatioMin []float32 `json:"log_ratio_min" yaml:"log_ratio_min"`
	LogRatioMax []float32 `json:"log_ratio_max" yaml:"log_ratio_max"`
	EpsilonSDR  []float32 `json:"epsilon_sdr,omitempty" yaml:"epsilon_sdr,omitempty"`
	EpsilonHDR  []float32 `json:"epsilon_hdr,omitempty" yaml:"epsilon_hdr,omitempty"`

	MinDisplayRatioForHDRTransition float32 `json:"min_display_ratio_for_hdr_transition" yaml:"min_display_ratio_for_hdr_transition"`
	DisplayRatioForFullHDR          float32 `json:"display_ratio_for_full_hdr" yaml:"display_ratio_for_full_hdr"`
}

// Metadata holds gainmap parameters. It is immutable once constructed.
type Metadata struct {
	gamma       [3]float32
	logRatioMin [3]float32
	logRatioMax [3]float32
	epsilonSDR  [3]float32
	epsilonHDR  [3]float32

	minDisplayRatio  float32
	fullDisplayRatio float32
}

// NewMetadata validates params and builds Metadata.
func NewMetadata(p MetadataParams) (*Metadata, error) {
	m := &Metadata{
		minDisplayRatio:  p.MinDisplayRatioForHDRTransition,
		fullDisplayRatio: p.DisplayRatioForFullHDR,
	}

	fields := []struct {
		name string
		in   []float32
		out  *[3]float32
		def  float32
	}{
		{name: "gamma", in: p.Gamma, out: &m.gamma, def: 1},
		{name: "log_ratio_min", in: p.LogRatioMin, out: &m.logRatioMin, def: 0},
		{name: "log_ratio_max", in: p.LogRatioMax, out: &m.logRatioMax, def: 0},
		{name: "epsilon_sdr", in: p.EpsilonSDR, out: &m.epsilonSDR, def: 0},
		{name: "epsilon_hdr", in: p.EpsilonHDR, out: &m.epsilonHDR, def: 0},
	}
	for _, f := range fields {
		if err := broadcast(f.name, f.in, f.def, f.out); err != nil {
			return nil, err
		}
	}

	for i := 0; i < 3; i++ {
		if m.gamma[i] <= 0 {
			return nil, fmt.Errorf("gamma[%d] must be positive, got %g", i, m.gamma[i])
		}
	}
	if !isFinite(m.minDisplayRatio) || m.minDisplayRatio < 1 {
		return nil, fmt.Errorf("min display ratio for HDR transition must be >= 1, got %g", m.minDisplayRatio)
	}
	if !isFinite(m.fullDisplayRatio) || m.fullDisplayRatio < m.minDisplayRatio {
		return nil, fmt.Errorf("display ratio for full HDR must be >= %g, got %g", m.minDisplayRatio, m.fullDisplayRatio)
	}

	return m, nil
}

func broadcast(name string, in []float32, def float32, out *[3]float32) error {
	switch len(in) {
	case 0:
		*out = [3]float32{def, def, def}
	case 1:
		*out = [3]float32{in[0], in[0], in[0]}
	case 3:
		copy(out[:], in)
	default:
		return fmt.Errorf("%s: expected 1 or 3 values, got %d", name, len(in))
	}
	for i, v := range out {
		if !isFinite(v) {
			return fmt.Errorf("%s[%d] is not finite", name, i)
		}
	}
	return nil
}

// Gamma returns per-channel exponents applied to the gainmap sample.
func (m *Metadata) Gamma() [3]float32 { return m.gamma }

// LogRatioMin returns per-channel natural log of the minimum content boost.
func (m *Metadata) LogRatioMin() [3]float32 { return m.logRatioMin }

// LogRatioMax returns per-channel natural log of the maximum content boost.
func (m *Metadata) LogRatioMax() [3]float32 { return m.logRatioMax }

// EpsilonSDR returns per-channel offsets added to the base before the boost.
func (m *Metadata) EpsilonSDR() [3]float32 { return m.epsilonSDR }

// EpsilonHDR returns per-channel offsets subtracted after the boost.
func (m *Metadata) EpsilonHDR() [3]float32 { return m.epsilonHDR }

// MinDisplayRatioForHDRTransition is the display ratio below which no boost applies.
func (m *Metadata) MinDisplayRatioForHDRTransition() float32 { return m.minDisplayRatio }

// DisplayRatioForFullHDR is the display ratio at which the full boost applies.
func (m *Metadata) DisplayRatioForFullHDR() float32 { return m.fullDisplayRatio }

// NoGamma reports whether all gamma exponents are 1, so the shader can skip pow.
func (m *Metadata) NoGamma() bool {
	return m.gamma[0] == 1 && m.gamma[1] == 1 && m.gamma[2] == 1
}

// Weight returns the blend weight for the given display ratio.
func (m *Metadata) Weight(hdrSdrRatio float32) float32 {
	return BlendWeight(hdrSdrRatio, m.minDisplayRatio, m.fullDisplayRatio)
}

// Params returns the serializable form of m.
func (m *Metadata) Params() MetadataParams {
	return MetadataParams{
		Gamma:                           append([]float32(nil), m.gamma[:]...),
		LogRatioMin:                     append([]float32(nil), m.logRatioMin[:]...),
		LogRatioMax:                     append([]float32(nil), m.logRatioMax[:]...),
		EpsilonSDR:                      append([]float32(nil), m.epsilonSDR[:]...),
		EpsilonHDR:                      append([]float32(nil), m.epsilonHDR[:]...),
		MinDisplayRatioForHDRTransition: m.minDisplayRatio,
		DisplayRatioForFullHDR:          m.fullDisplayRatio,
	}
}

// MetadataFromUltraHDR converts UltraHDR (ISO 21496-1 or XMP) metadata.
func MetadataFromUltraHDR(u *UltraHDRMetadata) (*Metadata, error) {
	if u == nil {
		return nil, errors.New("gainmap metadata missing")
	}
	var p MetadataParams
	for i := 0; i < 3; i++ {
		if u.Gamma[i] <= 0 {
			return nil, fmt.Errorf("gainmap gamma[%d] must be positive, got %g", i, u.Gamma[i])
		}
		if u.MinContentBoost[i] <= 0 || u.MaxContentBoost[i] <= 0 {
			return nil, fmt.Errorf("content boost[%d] must be positive", i)
		}
		p.Gamma = append(p.Gamma, 1/u.Gamma[i])
		p.LogRatioMin = append(p.LogRatioMin, logf(u.MinContentBoost[i]))
		p.LogRatioMax = append(p.LogRatioMax, logf(u.MaxContentBoost[i]))
		p.EpsilonSDR = append(p.EpsilonSDR, u.OffsetSDR[i])
		p.EpsilonHDR = append(p.EpsilonHDR, u.OffsetHDR[i])
	}
	p.MinDisplayRatioForHDRTransition = u.HDRCapacityMin
	p.DisplayRatioForFullHDR = u.HDRCapacityMax
	if p.MinDisplayRatioForHDRTransition < 1 {
		p.MinDisplayRatioForHDRTransition = 1
	}
	if p.DisplayRatioForFullHDR < p.MinDisplayRatioForHDRTransition {
		p.DisplayRatioForFullHDR = p.MinDisplayRatioForHDRTransition
	}
	return NewMetadata(p)
}

// LoadMetadataFile reads metadata params from a .json, .yaml or .yml file.
func LoadMetadataFile(path string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var p MetadataParams
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &p)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	default:
		return nil, fmt.Errorf("unsupported metadata file extension %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return NewMetadata(p)
}
