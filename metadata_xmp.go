package gainmap

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var reHDRGM = regexp.MustCompile(`hdrgm:(\w+)="([^"]*)"`)

// parseXMP reads hdrgm attributes of an XMP APP1 payload.
// Boost and capacity values in XMP are log2 encoded.
func parseXMP(app1 []byte) (*UltraHDRMetadata, error) {
	if !bytes.HasPrefix(app1, xmpPrefix) || len(app1) <= len(xmpPrefix) {
		return nil, errors.New("xmp namespace mismatch")
	}

	attrs := make(map[string]string)
	for _, m := range reHDRGM.FindAllSubmatch(app1[len(xmpPrefix):], -1) {
		attrs[string(m[1])] = string(m[2])
	}

	version, ok := attrs["Version"]
	if !ok {
		return nil, errors.New("xmp missing version")
	}
	if attrs["BaseRenditionIsHDR"] == "True" {
		return nil, errors.New("base rendition HDR not supported")
	}

	meta := &UltraHDRMetadata{Version: version, UseBaseCG: true}
	fields := []struct {
		name     string
		def      float32
		required bool
		log2     bool
		dst      *float32
	}{
		{"GainMapMax", 0, true, true, &meta.MaxContentBoost[0]},
		{"HDRCapacityMax", 0, true, true, &meta.HDRCapacityMax},
		{"GainMapMin", 0, false, true, &meta.MinContentBoost[0]},
		{"Gamma", 1, false, false, &meta.Gamma[0]},
		{"OffsetSDR", 1.0 / 64, false, false, &meta.OffsetSDR[0]},
		{"OffsetHDR", 1.0 / 64, false, false, &meta.OffsetHDR[0]},
		{"HDRCapacityMin", 0, false, true, &meta.HDRCapacityMin},
	}
	for _, f := range fields {
		v := f.def
		if s, ok := attrs[f.name]; ok {
			parsed, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return nil, fmt.Errorf("xmp %s: %w", f.name, err)
			}
			v = float32(parsed)
		} else if f.required {
			return nil, fmt.Errorf("xmp missing %s", f.name)
		}
		if f.log2 {
			v = exp2f(v)
		}
		*f.dst = v
	}

	for c := 1; c < 3; c++ {
		meta.MinContentBoost[c] = meta.MinContentBoost[0]
		meta.MaxContentBoost[c] = meta.MaxContentBoost[0]
		meta.Gamma[c] = meta.Gamma[0]
		meta.OffsetSDR[c] = meta.OffsetSDR[0]
		meta.OffsetHDR[c] = meta.OffsetHDR[0]
	}
	return meta, nil
}
