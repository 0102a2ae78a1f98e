package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg" // Decoders for -base and -gainmap.
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/vearutop/gainmap"
)

// sourceFlags selects the image to show: either an UltraHDR JPEG or a
// base image, gainmap image and metadata sidecar.
type sourceFlags struct {
	in       *string
	base     *string
	gainmap  *string
	meta     *string
	transfer *string
}

func addSourceFlags(fs *flag.FlagSet) *sourceFlags {
	return &sourceFlags{
		in:       fs.String("in", "", "input UltraHDR JPEG"),
		base:     fs.String("base", "", "base SDR image (png, jpeg, tiff, webp)"),
		gainmap:  fs.String("gainmap", "", "gainmap image"),
		meta:     fs.String("meta", "", "gainmap metadata (json or yaml)"),
		transfer: fs.String("transfer", "srgb", "transfer function of the base image with -base"),
	}
}

func (f *sourceFlags) load() (*gainmap.Source, error) {
	if *f.in != "" {
		data, err := os.ReadFile(filepath.Clean(*f.in))
		if err != nil {
			return nil, err
		}
		return gainmap.LoadUltraHDR(data)
	}
	if *f.base == "" || *f.gainmap == "" || *f.meta == "" {
		return nil, errors.New("missing -in, or -base with -gainmap and -meta")
	}

	base, err := decodeImage(*f.base)
	if err != nil {
		return nil, err
	}
	gm, err := decodeImage(*f.gainmap)
	if err != nil {
		return nil, err
	}
	meta, err := gainmap.LoadMetadataFile(*f.meta)
	if err != nil {
		return nil, err
	}
	tf, err := gainmap.TransferByName(*f.transfer)
	if err != nil {
		return nil, err
	}
	return gainmap.NewSource(gainmap.Uploadable(base), gainmap.Uploadable(gm), meta, tf)
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
