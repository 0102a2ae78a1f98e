package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/tmo"

	"github.com/vearutop/gainmap"
)

func runRender(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	src := addSourceFlags(fs)
	ratio := fs.Float64("ratio", 1, "display HDR/SDR ratio")
	outPath := fs.String("out", "", "output PNG, display encoded")
	hdrPath := fs.String("hdr", "", "output Radiance HDR, linear light")
	reference := fs.String("reference", "srgb", "reference transfer function of the display")
	tonemap := fs.String("tonemap", "", "tone mapping operator for -tonemap-out: linear, reinhard05, drago03")
	tonemapOut := fs.String("tonemap-out", "", "output PNG of the tone mapped linear rendition")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outPath == "" && *hdrPath == "" && *tonemapOut == "" {
		return errors.New("missing -out, -hdr or -tonemap-out")
	}

	source, err := src.load()
	if err != nil {
		return err
	}
	ref, err := gainmap.TransferByName(*reference)
	if err != nil {
		return err
	}
	r := float32(*ratio)
	logger.Info("rendering", "ratio", r, "weight", source.Meta.Weight(r))

	if *outPath != "" {
		img, err := gainmap.RenderSoftware(source, r, ref)
		if err != nil {
			return err
		}
		if err := writePNG(*outPath, img); err != nil {
			return err
		}
	}

	if *hdrPath == "" && *tonemapOut == "" {
		return nil
	}

	linear, err := gainmap.ReconstructHDR(source, r)
	if err != nil {
		return err
	}
	if *hdrPath != "" {
		if err := writeHDR(*hdrPath, linear); err != nil {
			return err
		}
	}
	if *tonemapOut != "" {
		op, err := toneMapper(*tonemap, linear)
		if err != nil {
			return err
		}
		if err := writePNG(*tonemapOut, op.Perform()); err != nil {
			return err
		}
	}

	return nil
}

func toneMapper(name string, img hdr.Image) (tmo.ToneMappingOperator, error) {
	switch name {
	case "", "reinhard05":
		return tmo.NewDefaultReinhard05(img), nil
	case "drago03":
		return tmo.NewDefaultDrago03(img), nil
	case "linear":
		return tmo.NewLinear(img), nil
	default:
		return nil, fmt.Errorf("unknown tone mapping operator %q", name)
	}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeHDR(path string, img hdr.Image) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	if err := rgbe.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
