package gainmap

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// IsUltraHDR performs a streaming UltraHDR check without loading the full image.
// It skips the primary image and reports whether the header of the next
// image carries XMP or ISO 21496-1 gainmap metadata.
func IsUltraHDR(r io.Reader) (bool, error) {
	s := markerStream{bufio.NewReader(r)}

	if found, err := s.findSOI(); err != nil || !found {
		return false, err
	}
	if err := s.skipImage(); err != nil {
		return false, err
	}
	if found, err := s.findSOI(); err != nil || !found {
		return false, err
	}
	return s.hasGainmapMetadata()
}

// markerStream reads JPEG markers from a byte stream.
type markerStream struct {
	*bufio.Reader
}

func (s markerStream) findSOI() (bool, error) {
	var prev byte
	for {
		b, err := s.ReadByte()
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if prev == markerStart && b == markerSOI {
			return true, nil
		}
		prev = b
	}
}

// next returns the next marker code, skipping fill bytes.
func (s markerStream) next() (byte, error) {
	for {
		b, err := s.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != markerStart {
			continue
		}
		for {
			m, err := s.ReadByte()
			if err != nil {
				return 0, err
			}
			if m != markerStart {
				return m, nil
			}
		}
	}
}

// payloadLen reads a segment length and returns the payload size.
func (s markerStream) payloadLen() (int, error) {
	var b [2]byte
	if _, err := io.ReadFull(s, b[:]); err != nil {
		return 0, err
	}
	n := int(b[0])<<8 | int(b[1])
	if n < 2 {
		return 0, errors.New("invalid segment length")
	}
	return n - 2, nil
}

func (s markerStream) skip(n int) error {
	_, err := s.Discard(n)
	return err
}

// skipImage consumes input up to and including the EOI of the current image.
func (s markerStream) skipImage() error {
	for {
		m, err := s.next()
		if err != nil {
			return err
		}
		switch m {
		case markerEOI:
			return nil
		case markerSOS:
			return s.skipScan()
		}
		n, err := s.payloadLen()
		if err != nil {
			return err
		}
		if err := s.skip(n); err != nil {
			return err
		}
	}
}

func (s markerStream) skipScan() error {
	for {
		m, err := s.next()
		if err != nil {
			return err
		}
		// Stuffed zero bytes and restart markers belong to entropy-coded data.
		if m == 0x00 || (m >= 0xD0 && m <= 0xD7) {
			continue
		}
		if m == markerEOI {
			return nil
		}
	}
}

func (s markerStream) hasGainmapMetadata() (bool, error) {
	for {
		m, err := s.next()
		if err != nil {
			return false, err
		}
		if m == markerEOI || m == markerSOS {
			return false, nil
		}
		n, err := s.payloadLen()
		if err != nil {
			return false, err
		}

		var prefix []byte
		switch m {
		case markerAPP1:
			prefix = xmpPrefix
		case markerAPP2:
			prefix = isoPrefix
		default:
			if err := s.skip(n); err != nil {
				return false, err
			}
			continue
		}

		head := make([]byte, min(n, len(prefix)))
		if _, err := io.ReadFull(s, head); err != nil {
			return false, err
		}
		if bytes.Equal(head, prefix) {
			return true, nil
		}
		if err := s.skip(n - len(head)); err != nil {
			return false, err
		}
	}
}
