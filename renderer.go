package gainmap

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
)

// Texture units the program samples from.
const (
	baseTextureSlot    = 0
	gainmapTextureSlot = 1
)

// RendererOptions controls renderer setup.
type RendererOptions struct {
	// Reference is the encoded to linear curve the destination transfer is
	// derived from every frame, SRGB by default.
	Reference TransferFunction
	// ClearColor fills the viewport before the image is drawn.
	ClearColor [4]float32
	// VertexShader and FragmentShader replace the embedded sources when not empty.
	VertexShader   string
	FragmentShader string
	// Logger overrides the package logger.
	Logger *slog.Logger
}

// Frame is the per-frame input of Draw.
type Frame struct {
	// Viewport is the output buffer area, in pixels.
	Viewport image.Rectangle
	// HDRSDRRatio is the current display HDR/SDR brightness ratio, 1 means no headroom.
	HDRSDRRatio float32
	// Transform is applied to the fitted image before projection; zero value means identity.
	Transform mgl32.Mat4
}

// Renderer draws a Source with the gainmap boost matching the display ratio.
//
// A Renderer exclusively owns its GPU resources and performs no locking:
// construction, Draw and Destroy must be serialized on the rendering thread.
// After GPU context loss call Destroy and build a new Renderer.
type Renderer struct {
	gpu  GPU
	src  *Source
	opt  RendererOptions
	log  *slog.Logger
	prog *Program

	base    *Texture
	gainmap *Texture
	quad    uint32

	imageW, imageH int
}

// NewRenderer uploads src and compiles the program. Every error is session fatal.
func NewRenderer(gpu GPU, src *Source, opts ...func(o *RendererOptions)) (*Renderer, error) {
	if gpu == nil {
		return nil, sessionError("new renderer", errors.New("gpu context is nil"))
	}
	if src == nil {
		return nil, sessionError("new renderer", errors.New("source is nil"))
	}

	opt := RendererOptions{
		Reference:  SRGB,
		ClearColor: [4]float32{0, 0, 0, 1},
	}
	for _, applyOpt := range opts {
		applyOpt(&opt)
	}
	if opt.VertexShader == "" {
		opt.VertexShader = vertexShaderSource
	}
	if opt.FragmentShader == "" {
		opt.FragmentShader = fragmentShaderSource
	}

	r := &Renderer{
		gpu: gpu,
		src: src,
		opt: opt,
		log: opt.Logger,
	}
	if r.log == nil {
		r.log = Logger()
	}

	if err := r.setup(); err != nil {
		r.Destroy()
		return nil, err
	}

	r.log.Info("gainmap renderer ready",
		"width", r.imageW, "height", r.imageH,
		"layout", src.Layout().String(),
		"noGamma", src.Meta.NoGamma())

	return r, nil
}

func (r *Renderer) setup() error {
	// Both buffers are read back before any GPU call, so an unsupported
	// format never leaves half-initialized state behind.
	baseBuf, err := NewPixelBuffer(r.src.Base)
	if err != nil {
		return sessionError("read base image", err)
	}
	gainmapBuf, err := NewPixelBuffer(r.src.Gainmap)
	if err != nil {
		return sessionError("read gainmap image", err)
	}
	r.imageW, r.imageH = baseBuf.Width, baseBuf.Height

	if r.prog, err = CompileProgram(r.gpu, r.opt.VertexShader, r.opt.FragmentShader, r.log); err != nil {
		return err
	}
	if r.base, err = uploadTexture(r.gpu, baseBuf); err != nil {
		return err
	}
	r.log.Debug("base texture uploaded", "format", baseBuf.Format.String(), "width", baseBuf.Width, "height", baseBuf.Height)

	if r.gainmap, err = uploadTexture(r.gpu, gainmapBuf); err != nil {
		return err
	}
	r.log.Debug("gainmap texture uploaded", "format", gainmapBuf.Format.String(), "width", gainmapBuf.Width, "height", gainmapBuf.Height)

	m := r.src.Meta
	p := r.prog
	p.Use()
	p.SetInt("uBaseTexture", baseTextureSlot)
	p.SetInt("uGainmapTexture", gainmapTextureSlot)
	p.SetTransfer("uSrcTF", r.src.Transfer)
	p.SetVec3("uLogRatioMin", m.LogRatioMin())
	p.SetVec3("uLogRatioMax", m.LogRatioMax())
	p.SetVec3("uGainmapGamma", m.Gamma())
	p.SetVec3("uEpsilonSdr", m.EpsilonSDR())
	p.SetVec3("uEpsilonHdr", m.EpsilonHDR())
	p.SetBool("uGainmapIsAlpha", r.src.Layout() == LayoutSingleChannel)
	p.SetBool("uNoGamma", m.NoGamma())
	p.SetBool("uBasePremultiplied", r.base.Premultiplied())
	if err := r.check("static uniforms"); err != nil {
		return sessionError("static uniforms", err)
	}

	r.quad = r.gpu.CreateVertexBuffer(quadVertices(r.imageW, r.imageH))
	r.gpu.VertexAttrib(r.quad, p.Attrib("aPosition"), 2, 4, 0)
	r.gpu.VertexAttrib(r.quad, p.Attrib("aTexCoord"), 2, 4, 2)
	if err := r.check("vertex buffer"); err != nil {
		return sessionError("vertex buffer", err)
	}

	return nil
}

// quadVertices returns two triangles covering the image, interleaved as x, y, u, v.
func quadVertices(w, h int) []float32 {
	fw, fh := float32(w), float32(h)
	return []float32{
		0, 0, 0, 0,
		fw, 0, 1, 0,
		0, fh, 0, 1,

		0, fh, 0, 1,
		fw, 0, 1, 0,
		fw, fh, 1, 1,
	}
}

// Draw renders one frame.
//
// A failure to build the destination transfer function or a GPU error
// returns a frame-scoped *RenderError: the frame is skipped and the caller
// keeps showing the previous one.
func (r *Renderer) Draw(f Frame) error {
	if r.prog == nil {
		return sessionError("draw", errors.New("renderer destroyed"))
	}
	if f.Viewport.Empty() {
		// Minimised window, nothing to draw.
		return nil
	}

	dst, err := DestinationTransfer(r.opt.Reference, f.HDRSDRRatio)
	if err != nil {
		r.log.Warn("frame skipped", "ratio", f.HDRSDRRatio, "error", err)
		return frameError("destination transfer", err)
	}
	w := r.src.Meta.Weight(f.HDRSDRRatio)

	vp := f.Viewport
	r.gpu.Viewport(vp.Min.X, vp.Min.Y, vp.Dx(), vp.Dy())
	c := r.opt.ClearColor
	r.gpu.Clear(c[0], c[1], c[2], c[3])
	if err := r.check("clear"); err != nil {
		return frameError("clear", err)
	}

	p := r.prog
	p.Use()
	p.SetTransfer("uDestTF", dst)
	p.SetFloat("uW", w)
	p.SetMatrix("uMVPMatrix", r.MVP(f))
	if err := r.check("frame uniforms"); err != nil {
		return frameError("frame uniforms", err)
	}

	r.base.Bind(baseTextureSlot)
	r.gainmap.Bind(gainmapTextureSlot)
	if err := r.check("bind textures"); err != nil {
		return frameError("bind textures", err)
	}

	r.gpu.DrawTriangles(r.quad, 6)
	if err := r.check("draw"); err != nil {
		return frameError("draw", err)
	}

	return nil
}

// MVP returns the model-view-projection matrix for a frame: the image is
// scaled uniformly to fit the viewport and centred, then transformed by
// f.Transform and projected orthographically over the viewport.
func (r *Renderer) MVP(f Frame) mgl32.Mat4 {
	return FitMVP(r.imageW, r.imageH, f.Viewport.Dx(), f.Viewport.Dy(), f.Transform)
}

// FitMVP builds the projection used by Renderer for an image of imageW x imageH
// pixels drawn in a viewport of viewW x viewH pixels.
func FitMVP(imageW, imageH, viewW, viewH int, transform mgl32.Mat4) mgl32.Mat4 {
	if transform == (mgl32.Mat4{}) {
		transform = mgl32.Ident4()
	}
	vw, vh := float32(viewW), float32(viewH)
	scale := float32(1)
	if imageW > 0 && imageH > 0 {
		scale = min(vw/float32(imageW), vh/float32(imageH))
	}
	tx := (vw - float32(imageW)*scale) / 2
	ty := (vh - float32(imageH)*scale) / 2

	model := mgl32.Translate3D(tx, ty, 0).Mul4(mgl32.Scale3D(scale, scale, 1))
	proj := mgl32.Ortho(0, vw, vh, 0, -1, 1)

	return proj.Mul4(transform).Mul4(model)
}

// check converts a pending platform error into ErrGPU and logs it.
func (r *Renderer) check(step string) error {
	err := r.gpu.Err()
	if err == nil {
		return nil
	}
	r.log.Error("gpu error", "step", step, "error", err)
	return fmt.Errorf("%w: %s: %v", ErrGPU, step, err)
}

// Destroy releases GPU resources. It is safe to call more than once.
func (r *Renderer) Destroy() {
	if r.quad != 0 {
		r.gpu.DeleteVertexBuffer(r.quad)
		r.quad = 0
	}
	if r.base != nil {
		r.base.Destroy()
		r.base = nil
	}
	if r.gainmap != nil {
		r.gainmap.Destroy()
		r.gainmap = nil
	}
	if r.prog != nil {
		r.prog.Destroy()
		r.prog = nil
		r.log.Info("gainmap renderer destroyed")
	}
}
