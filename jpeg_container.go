package gainmap

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	markerStart = 0xFF
	markerSOI   = 0xD8
	markerEOI   = 0xD9
	markerSOS   = 0xDA
	markerAPP1  = 0xE1
	markerAPP2  = 0xE2
)

const (
	xmpNamespace = "http://ns.adobe.com/xap/1.0/"
	isoNamespace = "urn:iso:std:iso:ts:21496:-1"
)

// Multi-picture format (CIPA DC-007) index IFD.
const (
	mpfNumPictures = 2
	mpfTagCount    = 3
	mpfTagSize     = 12

	mpfTypeLong      = 0x4
	mpfTypeUndefined = 0x7

	mpfVersionTag        = 0xB000
	mpfNumberOfImagesTag = 0xB001
	mpfEntryTag          = 0xB002
	mpfEntrySize         = 16

	mpfAttrTypePrimary = 0x030000
)

var (
	iccSig       = []byte("ICC_PROFILE\x00")
	mpfSig       = []byte("MPF\x00")
	mpfBigEndian = []byte{0x4D, 0x4D, 0x00, 0x2A}
	mpfVersion   = []byte("0100")
	xmpPrefix    = []byte(xmpNamespace + "\x00")
	isoPrefix    = []byte(isoNamespace + "\x00")
)

// segment is a marker segment of a JPEG header, payload at data[start:end].
type segment struct {
	marker     byte
	start, end int
}

// walkHeader visits marker segments following the SOI at data[0:2] until
// start of scan. Returning false from fn stops the walk.
func walkHeader(data []byte, fn func(s segment) bool) error {
	if len(data) < 4 || data[0] != markerStart || data[1] != markerSOI {
		return errors.New("invalid JPEG")
	}
	pos := 2
	for pos+3 < len(data) {
		if data[pos] != markerStart {
			pos++
			continue
		}
		for pos < len(data) && data[pos] == markerStart {
			pos++
		}
		if pos >= len(data) {
			break
		}
		marker := data[pos]
		pos++
		switch {
		case marker == markerSOS || marker == markerEOI:
			return nil
		case marker == markerSOI, marker == 0x01, marker >= 0xD0 && marker <= 0xD7:
			continue
		}
		if pos+1 >= len(data) {
			return errors.New("truncated marker segment")
		}
		segLen := int(binary.BigEndian.Uint16(data[pos:]))
		if segLen < 2 || pos+segLen > len(data) {
			return errors.New("invalid segment length")
		}
		if !fn(segment{marker: marker, start: pos + 2, end: pos + segLen}) {
			return nil
		}
		pos += segLen
	}
	return nil
}

// appSegments returns copies of APP1 and APP2 payloads of a single JPEG.
func appSegments(jpegData []byte) (app1, app2 [][]byte, err error) {
	err = walkHeader(jpegData, func(s segment) bool {
		payload := append([]byte(nil), jpegData[s.start:s.end]...)
		switch s.marker {
		case markerAPP1:
			app1 = append(app1, payload)
		case markerAPP2:
			app2 = append(app2, payload)
		}
		return true
	})
	return app1, app2, err
}

func findPrefixed(segs [][]byte, prefix []byte) []byte {
	for _, seg := range segs {
		if bytes.HasPrefix(seg, prefix) {
			return seg
		}
	}
	return nil
}

// scanJPEGs returns [start, end) ranges of the JPEG images in data.
// The MPF index of the primary image is trusted when it is consistent,
// otherwise images are found by scanning for SOI and parsing to EOI.
func scanJPEGs(data []byte) ([][2]int, error) {
	if ranges, ok := mpfRanges(data); ok {
		return ranges, nil
	}
	var ranges [][2]int
	for i := 0; i+1 < len(data); {
		if data[i] != markerStart || data[i+1] != markerSOI {
			i++
			continue
		}
		end, err := findJPEGEnd(data, i)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, [2]int{i, end})
		i = end
	}
	if len(ranges) == 0 {
		return nil, errors.New("no JPEG images found")
	}
	return ranges, nil
}

func mpfRanges(data []byte) ([][2]int, bool) {
	var (
		info  mpfInfo
		found bool
		tiff  int
	)
	err := walkHeader(data, func(s segment) bool {
		if s.marker != markerAPP2 || !bytes.HasPrefix(data[s.start:s.end], mpfSig) {
			return true
		}
		var perr error
		info, perr = parseMPF(data[s.start:s.end])
		found = perr == nil
		tiff = s.start + len(mpfSig)
		return false
	})
	if err != nil || !found {
		return nil, false
	}

	secondaryStart := tiff + info.secondaryOffset
	secondaryEnd := secondaryStart + info.secondarySize
	if info.primarySize > len(data) || secondaryEnd > len(data) || secondaryStart+1 >= len(data) {
		return nil, false
	}
	if data[secondaryStart] != markerStart || data[secondaryStart+1] != markerSOI {
		return nil, false
	}
	return [][2]int{{0, info.primarySize}, {secondaryStart, secondaryEnd}}, true
}

type mpfInfo struct {
	primarySize     int
	secondarySize   int
	secondaryOffset int
}

// parseMPF reads the primary and first secondary image entries of an MPF
// payload. The secondary offset is relative to the TIFF header.
func parseMPF(payload []byte) (mpfInfo, error) {
	if !bytes.HasPrefix(payload, mpfSig) {
		return mpfInfo{}, errors.New("mpf signature missing")
	}
	tiff := payload[len(mpfSig):]
	if len(tiff) < 8 {
		return mpfInfo{}, errors.New("mpf tiff header too small")
	}

	var order binary.ByteOrder
	switch {
	case tiff[0] == 'M' && tiff[1] == 'M':
		order = binary.BigEndian
	case tiff[0] == 'I' && tiff[1] == 'I':
		order = binary.LittleEndian
	default:
		return mpfInfo{}, errors.New("mpf byte order invalid")
	}
	if order.Uint16(tiff[2:]) != 0x002A {
		return mpfInfo{}, errors.New("mpf tiff magic invalid")
	}

	pos := int(order.Uint32(tiff[4:]))
	if pos < 0 || pos+2 > len(tiff) {
		return mpfInfo{}, errors.New("mpf ifd offset invalid")
	}
	tags := int(order.Uint16(tiff[pos:]))
	pos += 2

	entries := -1
	for i := 0; i < tags; i++ {
		if pos+mpfTagSize > len(tiff) {
			return mpfInfo{}, errors.New("mpf ifd truncated")
		}
		tag := order.Uint16(tiff[pos:])
		typ := order.Uint16(tiff[pos+2:])
		count := order.Uint32(tiff[pos+4:])
		if tag == mpfEntryTag && typ == mpfTypeUndefined && count >= mpfEntrySize {
			entries = int(order.Uint32(tiff[pos+8:]))
			break
		}
		pos += mpfTagSize
	}
	if entries < 0 || entries+mpfEntrySize*mpfNumPictures > len(tiff) {
		return mpfInfo{}, errors.New("mpf entry offset invalid")
	}

	var info mpfInfo
	for i := 0; i < mpfNumPictures; i++ {
		e := tiff[entries+i*mpfEntrySize:]
		attr := order.Uint32(e)
		size := int(order.Uint32(e[4:]))
		if attr&mpfAttrTypePrimary != 0 {
			info.primarySize = size
		} else {
			info.secondarySize = size
			info.secondaryOffset = int(order.Uint32(e[8:]))
		}
	}
	if info.primarySize <= 0 || info.secondarySize <= 0 {
		return mpfInfo{}, errors.New("mpf sizes missing")
	}
	return info, nil
}

// buildMPF returns a big-endian MPF APP2 payload describing a primary
// image and one gainmap image.
func buildMPF(primarySize, secondarySize, secondaryOffset int) []byte {
	var buf bytes.Buffer
	u16 := func(v uint16) { _ = binary.Write(&buf, binary.BigEndian, v) }
	u32 := func(v uint32) { _ = binary.Write(&buf, binary.BigEndian, v) }

	buf.Write(mpfSig)
	buf.Write(mpfBigEndian)
	u32(8) // index IFD follows the TIFF header

	u16(mpfTagCount)
	u16(mpfVersionTag)
	u16(mpfTypeUndefined)
	u32(uint32(len(mpfVersion)))
	buf.Write(mpfVersion)

	u16(mpfNumberOfImagesTag)
	u16(mpfTypeLong)
	u32(1)
	u32(mpfNumPictures)

	u16(mpfEntryTag)
	u16(mpfTypeUndefined)
	u32(mpfEntrySize * mpfNumPictures)
	u32(8 + 2 + mpfTagCount*mpfTagSize + 4)

	u32(0) // next IFD

	u32(mpfAttrTypePrimary)
	u32(uint32(primarySize))
	u32(0)
	u32(0)

	u32(0)
	u32(uint32(secondarySize))
	u32(uint32(secondaryOffset))
	u32(0)

	return buf.Bytes()
}

// mpfSegmentSize is the size of the APP2 segment written by buildMPF, marker included.
func mpfSegmentSize() int {
	return 4 + len(buildMPF(0, 0, 0))
}

func findJPEGEnd(data []byte, start int) (int, error) {
	if start+1 >= len(data) || data[start] != markerStart || data[start+1] != markerSOI {
		return 0, errors.New("not a JPEG SOI")
	}
	pos := start + 2
	inScan := false
	for pos+1 < len(data) {
		if data[pos] != markerStart {
			pos++
			continue
		}
		if inScan {
			next := data[pos+1]
			switch {
			case next == 0x00, next >= 0xD0 && next <= 0xD7, next == markerStart:
				pos++
				if next != markerStart {
					pos++
				}
				continue
			case next == markerEOI:
				return pos + 2, nil
			}
			// A marker segment between scans, typically DHT or another SOS.
			inScan = false
			continue
		}

		for pos < len(data) && data[pos] == markerStart {
			pos++
		}
		if pos >= len(data) {
			break
		}
		marker := data[pos]
		pos++
		switch {
		case marker == markerEOI:
			return pos, nil
		case marker == markerSOI, marker == 0x01, marker >= 0xD0 && marker <= 0xD7:
			continue
		}
		if pos+1 >= len(data) {
			return 0, errors.New("truncated marker segment")
		}
		segLen := int(binary.BigEndian.Uint16(data[pos:]))
		if segLen < 2 {
			return 0, errors.New("invalid marker length")
		}
		pos += segLen
		inScan = marker == markerSOS
	}
	return 0, errors.New("no EOI found")
}

func writeAppSegment(out *bytes.Buffer, marker byte, payload []byte) {
	out.WriteByte(markerStart)
	out.WriteByte(marker)
	_ = binary.Write(out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
}
