package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/vearutop/gainmap"
)

type inspectReport struct {
	UltraHDR   bool                      `yaml:"ultrahdr"`
	MetaSource string                    `yaml:"metadata_source,omitempty"`
	Gamut      gainmap.Gamut             `yaml:"gamut,omitempty"`
	Transfer   [7]float32                `yaml:"transfer"`
	Raw        *gainmap.UltraHDRMetadata `yaml:"raw,omitempty"`
	Metadata   gainmap.MetadataParams    `yaml:"metadata"`
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	inPath := fs.String("in", "", "input JPEG")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return errors.New("missing required arguments")
	}

	data, err := os.ReadFile(filepath.Clean(*inPath))
	if err != nil {
		return err
	}
	var rep inspectReport
	if rep.UltraHDR, err = gainmap.IsUltraHDR(bytes.NewReader(data)); err != nil {
		return err
	}
	if !rep.UltraHDR {
		fmt.Fprintln(os.Stdout, "not ultrahdr")
		return nil
	}

	sr, err := gainmap.Split(data)
	if err != nil {
		return err
	}
	meta, err := gainmap.MetadataFromUltraHDR(sr.Meta)
	if err != nil {
		return err
	}
	profile := gainmap.DetectColorProfile(sr.ICC)

	rep.MetaSource = sr.MetaSource
	rep.Gamut = profile.Gamut
	rep.Transfer = profile.Transfer.Uniform()
	rep.Raw = sr.Meta
	rep.Metadata = meta.Params()

	out, err := yaml.Marshal(rep)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
