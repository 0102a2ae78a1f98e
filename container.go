package gainmap

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// SplitResult holds the parts of a JPEG/R container.
type SplitResult struct {
	PrimaryJPEG []byte
	GainmapJPEG []byte
	Meta        *UltraHDRMetadata
	// MetaSource is "iso" or "xmp", whichever block Meta was read from.
	MetaSource string
	// ICC holds the ICC APP2 payloads of the primary image.
	ICC [][]byte
}

// Split extracts the primary and gainmap JPEG images and metadata from a JPEG/R container.
// ISO 21496-1 metadata of the gainmap image is preferred over XMP.
func Split(data []byte) (*SplitResult, error) {
	ranges, err := scanJPEGs(data)
	if err != nil {
		return nil, err
	}
	if len(ranges) < 2 {
		return nil, errors.New("gainmap image not found")
	}

	sr := &SplitResult{
		PrimaryJPEG: append([]byte(nil), data[ranges[0][0]:ranges[0][1]]...),
		GainmapJPEG: append([]byte(nil), data[ranges[1][0]:ranges[1][1]]...),
	}

	_, primaryApp2, err := appSegments(sr.PrimaryJPEG)
	if err != nil {
		return nil, fmt.Errorf("primary image: %w", err)
	}
	for _, seg := range primaryApp2 {
		if bytes.HasPrefix(seg, iccSig) {
			sr.ICC = append(sr.ICC, seg)
		}
	}

	app1, app2, err := appSegments(sr.GainmapJPEG)
	if err != nil {
		return nil, fmt.Errorf("gainmap image: %w", err)
	}
	if iso := findPrefixed(app2, isoPrefix); iso != nil {
		if sr.Meta, err = decodeUltraHDRISO(iso[len(isoPrefix):]); err != nil {
			return nil, err
		}
		sr.MetaSource = "iso"
		return sr, nil
	}
	if xmp := findPrefixed(app1, xmpPrefix); xmp != nil {
		if sr.Meta, err = parseXMP(xmp); err != nil {
			return nil, err
		}
		sr.MetaSource = "xmp"
		return sr, nil
	}
	return nil, errors.New("no gainmap metadata found")
}

// Join assembles a JPEG/R container: the gainmap image receives an
// ISO 21496-1 block and the primary image an MPF index pointing at it.
func Join(primaryJPEG, gainmapJPEG []byte, meta *UltraHDRMetadata) ([]byte, error) {
	if len(primaryJPEG) < 2 || primaryJPEG[0] != markerStart || primaryJPEG[1] != markerSOI ||
		len(gainmapJPEG) < 2 || gainmapJPEG[0] != markerStart || gainmapJPEG[1] != markerSOI {
		return nil, errors.New("invalid JPEG data")
	}
	iso, err := isoPayload(meta)
	if err != nil {
		return nil, err
	}

	var gainmap bytes.Buffer
	gainmap.Write(gainmapJPEG[:2])
	writeAppSegment(&gainmap, markerAPP2, iso)
	gainmap.Write(gainmapJPEG[2:])

	primarySize := len(primaryJPEG) + mpfSegmentSize()
	// Offsets in the MPF index count from its TIFF header: SOI, APP2 marker
	// and length, then the MPF signature.
	tiffHeader := 2 + 4 + len(mpfSig)

	var out bytes.Buffer
	out.Write(primaryJPEG[:2])
	writeAppSegment(&out, markerAPP2, buildMPF(primarySize, gainmap.Len(), primarySize-tiffHeader))
	out.Write(primaryJPEG[2:])
	out.Write(gainmap.Bytes())

	return out.Bytes(), nil
}

// LoadUltraHDR decodes a JPEG/R container into a renderable Source.
//
// The base image is converted to *image.NRGBA, a grayscale gainmap is kept
// as *image.Gray and any other gainmap is converted to *image.NRGBA.
func LoadUltraHDR(data []byte) (*Source, error) {
	sr, err := Split(data)
	if err != nil {
		return nil, err
	}

	base, err := jpeg.Decode(bytes.NewReader(sr.PrimaryJPEG))
	if err != nil {
		return nil, fmt.Errorf("decode primary image: %w", err)
	}
	gm, err := jpeg.Decode(bytes.NewReader(sr.GainmapJPEG))
	if err != nil {
		return nil, fmt.Errorf("decode gainmap image: %w", err)
	}

	meta, err := MetadataFromUltraHDR(sr.Meta)
	if err != nil {
		return nil, err
	}

	profile := DetectColorProfile(sr.ICC)
	Logger().Debug("ultrahdr container loaded",
		"metadata", sr.MetaSource,
		"gamut", string(profile.Gamut),
		"base", base.Bounds().Size().String(),
		"gainmap", gm.Bounds().Size().String())

	return NewSource(Uploadable(base), Uploadable(gm), meta, profile.Transfer)
}

// Uploadable returns img if its pixel format can be uploaded, otherwise a
// converted copy: *image.Gray for grayscale sources and *image.NRGBA
// for everything else.
func Uploadable(img image.Image) image.Image {
	if CheckPixelFormat(img) == nil {
		return img
	}
	b := img.Bounds()
	if m := img.ColorModel(); m == color.GrayModel || m == color.Gray16Model {
		dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
