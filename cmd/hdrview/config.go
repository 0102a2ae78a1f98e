package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

/* Example viewer config:

width: 1600
height: 1000
ratio: 1
ratiostep: 0.25
maxratio: 8
vsync: true
reference: srgb
clearcolor: [0.1, 0.1, 0.1, 1]

*/

type viewerConfig struct {
	Width     int
	Height    int
	Ratio     float32
	RatioStep float32
	MaxRatio  float32
	VSync     bool
	Reference string
	// ClearColor is RGBA in display code values.
	ClearColor []float32
}

func defaultViewerConfig() viewerConfig {
	return viewerConfig{
		Width:      1280,
		Height:     800,
		Ratio:      1,
		RatioStep:  0.25,
		MaxRatio:   16,
		VSync:      true,
		Reference:  "srgb",
		ClearColor: []float32{0, 0, 0, 1},
	}
}

func loadViewerConfig(path string) (viewerConfig, error) {
	c := defaultViewerConfig()
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return c, fmt.Errorf("read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse %q: %w", path, err)
	}
	return c, c.finalize()
}

// finalize checks values read from a file.
func (c *viewerConfig) finalize() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.RatioStep <= 0 {
		c.RatioStep = 0.25
	}
	if c.MaxRatio < 1 {
		c.MaxRatio = 1
	}
	if len(c.ClearColor) != 4 {
		return fmt.Errorf("clearcolor must have 4 components, got %d", len(c.ClearColor))
	}
	return nil
}

func (c *viewerConfig) clearColor() [4]float32 {
	var cc [4]float32
	copy(cc[:], c.ClearColor)
	return cc
}
