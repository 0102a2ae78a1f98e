package gainmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ISO 21496-1 flags byte.
const (
	isoMultiChannel      = 1 << 7
	isoUseBaseColor      = 1 << 6
	isoBackward          = 1 << 2
	isoCommonDenominator = 1 << 3
)

// isoFraction is a rational value as stored in ISO 21496-1 metadata.
type isoFraction struct {
	n int64
	d uint32
}

func (f isoFraction) float() (float32, error) {
	if f.d == 0 {
		return 0, errors.New("iso metadata: zero denominator")
	}
	return float32(float64(f.n) / float64(f.d)), nil
}

// isoChannel holds the per-channel fields in file order.
type isoChannel struct {
	gainMapMin, gainMapMax, gamma, baseOffset, altOffset isoFraction
}

type isoReader struct {
	buf []byte
	pos int
	err error
}

func (r *isoReader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.buf) {
		r.err = errors.New("iso metadata truncated")
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *isoReader) u8() uint8 {
	if b := r.next(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *isoReader) u16() uint16 {
	if b := r.next(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *isoReader) u32() uint32 {
	if b := r.next(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *isoReader) s32() int32 { return int32(r.u32()) }

// decodeUltraHDRISO parses an ISO 21496-1 payload (namespace already stripped).
func decodeUltraHDRISO(data []byte) (*UltraHDRMetadata, error) {
	r := &isoReader{buf: data}
	if minVersion := r.u16(); r.err == nil && minVersion != 0 {
		return nil, fmt.Errorf("unsupported iso min_version %d", minVersion)
	}
	r.u16() // writer version
	flags := r.u8()
	if r.err != nil {
		return nil, r.err
	}

	channels := 1
	if flags&isoMultiChannel != 0 {
		channels = 3
	}
	if flags&isoBackward != 0 {
		return nil, errors.New("base rendition HDR not supported")
	}

	var (
		baseHeadroom, altHeadroom isoFraction
		ch                        [3]isoChannel
	)
	if flags&isoCommonDenominator != 0 {
		d := r.u32()
		baseHeadroom = isoFraction{int64(r.u32()), d}
		altHeadroom = isoFraction{int64(r.u32()), d}
		for c := 0; c < channels; c++ {
			ch[c].gainMapMin = isoFraction{int64(r.s32()), d}
			ch[c].gainMapMax = isoFraction{int64(r.s32()), d}
			ch[c].gamma = isoFraction{int64(r.u32()), d}
			ch[c].baseOffset = isoFraction{int64(r.s32()), d}
			ch[c].altOffset = isoFraction{int64(r.s32()), d}
		}
	} else {
		baseHeadroom = isoFraction{int64(r.u32()), r.u32()}
		altHeadroom = isoFraction{int64(r.u32()), r.u32()}
		for c := 0; c < channels; c++ {
			ch[c].gainMapMin = isoFraction{int64(r.s32()), r.u32()}
			ch[c].gainMapMax = isoFraction{int64(r.s32()), r.u32()}
			ch[c].gamma = isoFraction{int64(r.u32()), r.u32()}
			ch[c].baseOffset = isoFraction{int64(r.s32()), r.u32()}
			ch[c].altOffset = isoFraction{int64(r.s32()), r.u32()}
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	for c := channels; c < 3; c++ {
		ch[c] = ch[0]
	}

	meta := &UltraHDRMetadata{Version: jpegrVersion, UseBaseCG: flags&isoUseBaseColor != 0}
	var err error
	floatOf := func(f isoFraction) float32 {
		v, ferr := f.float()
		if ferr != nil && err == nil {
			err = ferr
		}
		return v
	}
	for c := 0; c < 3; c++ {
		meta.MinContentBoost[c] = exp2f(floatOf(ch[c].gainMapMin))
		meta.MaxContentBoost[c] = exp2f(floatOf(ch[c].gainMapMax))
		meta.Gamma[c] = floatOf(ch[c].gamma)
		meta.OffsetSDR[c] = floatOf(ch[c].baseOffset)
		meta.OffsetHDR[c] = floatOf(ch[c].altOffset)
	}
	meta.HDRCapacityMin = exp2f(floatOf(baseHeadroom))
	meta.HDRCapacityMax = exp2f(floatOf(altHeadroom))
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// encodeUltraHDRISO writes meta as an ISO 21496-1 payload with a
// denominator per value. Identical channels are written once.
func encodeUltraHDRISO(meta *UltraHDRMetadata) ([]byte, error) {
	if meta == nil {
		return nil, errors.New("gainmap metadata missing")
	}

	channels := 3
	if meta.channelsIdentical() {
		channels = 1
	}
	flags := uint8(0)
	if channels == 3 {
		flags |= isoMultiChannel
	}
	if meta.UseBaseCG {
		flags |= isoUseBaseColor
	}

	out := binary.BigEndian.AppendUint16(nil, 0) // min version
	out = binary.BigEndian.AppendUint16(out, 0)  // writer version
	out = append(out, flags)

	var err error
	unsigned := func(v float32) {
		n, d, ok := toFraction(float64(v), math.MaxUint32)
		if !ok && err == nil {
			err = fmt.Errorf("cannot encode %g as unsigned fraction", v)
		}
		out = binary.BigEndian.AppendUint32(out, uint32(n))
		out = binary.BigEndian.AppendUint32(out, d)
	}
	signed := func(v float32) {
		n, d, ok := toFraction(math.Abs(float64(v)), math.MaxInt32)
		if !ok && err == nil {
			err = fmt.Errorf("cannot encode %g as signed fraction", v)
		}
		sn := int32(n)
		if v < 0 {
			sn = -sn
		}
		out = binary.BigEndian.AppendUint32(out, uint32(sn))
		out = binary.BigEndian.AppendUint32(out, d)
	}

	unsigned(log2f(meta.HDRCapacityMin))
	unsigned(log2f(meta.HDRCapacityMax))
	for c := 0; c < channels; c++ {
		signed(log2f(meta.MinContentBoost[c]))
		signed(log2f(meta.MaxContentBoost[c]))
		unsigned(meta.Gamma[c])
		signed(meta.OffsetSDR[c])
		signed(meta.OffsetHDR[c])
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (m *UltraHDRMetadata) channelsIdentical() bool {
	for c := 1; c < 3; c++ {
		if m.MinContentBoost[c] != m.MinContentBoost[0] ||
			m.MaxContentBoost[c] != m.MaxContentBoost[0] ||
			m.Gamma[c] != m.Gamma[0] ||
			m.OffsetSDR[c] != m.OffsetSDR[0] ||
			m.OffsetHDR[c] != m.OffsetHDR[0] {
			return false
		}
	}
	return true
}

// toFraction approximates v >= 0 by continued fractions with the numerator
// bounded by maxNumerator.
func toFraction(v float64, maxNumerator uint32) (num uint32, den uint32, ok bool) {
	if math.IsNaN(v) || v < 0 || v > float64(maxNumerator) {
		return 0, 0, false
	}
	maxD := float64(math.MaxUint32)
	if v > 1 {
		maxD = math.Floor(float64(maxNumerator) / v)
	}

	den, prevD := uint32(1), uint32(0)
	rem := v - math.Floor(v)
	for iter := 0; iter < 39; iter++ {
		n := float64(den) * v
		if n > float64(maxNumerator) {
			return 0, 0, false
		}
		num = uint32(math.Round(n))
		if n == float64(num) || rem == 0 {
			return num, den, true
		}
		rem = 1 / rem
		newD := float64(prevD) + math.Floor(rem)*float64(den)
		if newD > maxD {
			return num, den, true
		}
		prevD, den = den, uint32(newD)
		rem -= math.Floor(rem)
	}
	return uint32(math.Round(float64(den) * v)), den, true
}

// isoPayload prefixes an encoded ISO 21496-1 block with its namespace.
func isoPayload(meta *UltraHDRMetadata) ([]byte, error) {
	encoded, err := encodeUltraHDRISO(meta)
	if err != nil {
		return nil, err
	}
	return append(append([]byte(nil), isoPrefix...), encoded...), nil
}
