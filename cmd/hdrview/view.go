package main

import (
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/codahale/hdrhistogram"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vearutop/gainmap"
	"github.com/vearutop/gainmap/internal/glgpu"
)

func init() {
	// GL calls must stay on the main thread.
	runtime.LockOSThread()
}

// viewer holds interactive state changed by window callbacks.
type viewer struct {
	cfg   viewerConfig
	ratio float32
	zoom  float32
	log   *slog.Logger
}

func (v *viewer) onKey(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if action == glfw.Release {
		return
	}
	switch key {
	case glfw.KeyUp:
		v.ratio = min(v.ratio+v.cfg.RatioStep, v.cfg.MaxRatio)
	case glfw.KeyDown:
		v.ratio = max(v.ratio-v.cfg.RatioStep, 1)
	case glfw.Key0:
		v.zoom = 1
	case glfw.KeyEscape, glfw.KeyQ:
		w.SetShouldClose(true)
		return
	default:
		return
	}
	w.SetTitle(fmt.Sprintf("hdrview: ratio %.2f", v.ratio))
	v.log.Debug("view changed", "ratio", v.ratio, "zoom", v.zoom)
}

func (v *viewer) onScroll(_ *glfw.Window, _, yoff float64) {
	v.zoom *= float32(1 + 0.1*yoff)
	v.zoom = min(max(v.zoom, 0.05), 50)
}

// transform zooms around the centre of a viewport.
func (v *viewer) transform(width, height int) mgl32.Mat4 {
	cx, cy := float32(width)/2, float32(height)/2
	return mgl32.Translate3D(cx, cy, 0).
		Mul4(mgl32.Scale3D(v.zoom, v.zoom, 1)).
		Mul4(mgl32.Translate3D(-cx, -cy, 0))
}

func runView(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	src := addSourceFlags(fs)
	configPath := fs.String("config", "", "viewer config yaml")
	ratio := fs.Float64("ratio", 0, "initial display HDR/SDR ratio, overrides config")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadViewerConfig(*configPath)
	if err != nil {
		return err
	}
	if *ratio > 0 {
		cfg.Ratio = float32(*ratio)
	}
	ref, err := gainmap.TransferByName(cfg.Reference)
	if err != nil {
		return err
	}

	source, err := src.load()
	if err != nil {
		return err
	}

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("init glfw: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 2)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, "hdrview", nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()
	window.MakeContextCurrent()

	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	gpu, err := glgpu.New()
	if err != nil {
		return err
	}
	logger.Info("gl context ready", "version", gpu.Version())

	r, err := gainmap.NewRenderer(gpu, source, func(o *gainmap.RendererOptions) {
		o.Reference = ref
		o.ClearColor = cfg.clearColor()
		o.Logger = logger
	})
	if err != nil {
		return err
	}
	defer r.Destroy()

	v := &viewer{cfg: cfg, ratio: cfg.Ratio, zoom: 1, log: logger}
	window.SetKeyCallback(v.onKey)
	window.SetScrollCallback(v.onScroll)

	// Frame times in microseconds, up to 10 seconds.
	frames := hdrhistogram.New(1, 10_000_000, 3)
	skipped := 0

	for !window.ShouldClose() {
		start := time.Now()

		w, h := window.GetFramebufferSize()
		err := r.Draw(gainmap.Frame{
			Viewport:    image.Rect(0, 0, w, h),
			HDRSDRRatio: v.ratio,
			Transform:   v.transform(w, h),
		})
		switch {
		case err == nil:
		case gainmap.IsFrameError(err):
			skipped++
		default:
			return err
		}

		window.SwapBuffers()
		glfw.PollEvents()

		_ = frames.RecordValue(time.Since(start).Microseconds())
	}

	logger.Info("frame times, us",
		"frames", frames.TotalCount(),
		"skipped", skipped,
		"mean", int64(frames.Mean()),
		"p50", frames.ValueAtQuantile(50),
		"p99", frames.ValueAtQuantile(99),
		"max", frames.Max())

	return nil
}
