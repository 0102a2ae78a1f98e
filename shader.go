package gainmap

import (
	_ "embed" // Embedded shader sources.
	"fmt"
	"image"
	"log/slog"
	"strings"
)

//go:embed shaders/gainmap.vert
var vertexShaderSource string

//go:embed shaders/gainmap.frag
var fragmentShaderSource string

// VertexShaderSource returns the embedded vertex stage.
func VertexShaderSource() string { return vertexShaderSource }

// FragmentShaderSource returns the embedded fragment stage.
func FragmentShaderSource() string { return fragmentShaderSource }

// Program is a compiled and linked GPU program.
type Program struct {
	gpu     GPU
	handle  uint32
	log     *slog.Logger
	uniform map[string]int32
	attrib  map[string]int32
}

// CompileProgram compiles both stages and links them.
//
// Failures are session fatal: no image can be shown without the program.
func CompileProgram(gpu GPU, vertexSrc, fragmentSrc string, log *slog.Logger) (*Program, error) {
	if log == nil {
		log = Logger()
	}

	vert, err := compileStage(gpu, StageVertex, vertexSrc)
	if err != nil {
		return nil, err
	}
	defer gpu.DeleteShader(vert)

	frag, err := compileStage(gpu, StageFragment, fragmentSrc)
	if err != nil {
		return nil, err
	}
	defer gpu.DeleteShader(frag)

	handle := gpu.CreateProgram()
	gpu.AttachShader(handle, vert)
	gpu.AttachShader(handle, frag)
	if ok, infoLog := gpu.LinkProgram(handle); !ok {
		gpu.DeleteProgram(handle)
		return nil, sessionError("link program", fmt.Errorf("%w: %s", ErrShaderLink, trimLog(infoLog)))
	}
	if err := gpu.Err(); err != nil {
		gpu.DeleteProgram(handle)
		return nil, sessionError("link program", fmt.Errorf("%w: %v", ErrGPU, err))
	}

	log.Info("gainmap program linked", "program", handle)

	return &Program{
		gpu:     gpu,
		handle:  handle,
		log:     log,
		uniform: make(map[string]int32),
		attrib:  make(map[string]int32),
	}, nil
}

func compileStage(gpu GPU, stage ShaderStage, src string) (uint32, error) {
	sh := gpu.CreateShader(stage)
	gpu.ShaderSource(sh, src)
	if ok, infoLog := gpu.CompileShader(sh); !ok {
		gpu.DeleteShader(sh)
		return 0, sessionError("compile "+stage.String()+" shader",
			fmt.Errorf("%w: %s stage: %s", ErrShaderCompile, stage, trimLog(infoLog)))
	}
	return sh, nil
}

// trimLog drops the trailing NUL and whitespace GL info logs come with.
func trimLog(s string) string {
	return strings.TrimRight(s, "\x00 \r\n\t")
}

// Handle returns the platform program handle.
func (p *Program) Handle() uint32 { return p.handle }

// Use makes the program current.
func (p *Program) Use() {
	p.gpu.UseProgram(p.handle)
}

// Uniform returns the location of a named uniform, -1 if the program has
// none (setting it is then a no-op). Lookups are cached.
func (p *Program) Uniform(name string) int32 {
	if loc, ok := p.uniform[name]; ok {
		return loc
	}
	loc := p.gpu.UniformLocation(p.handle, name)
	if loc < 0 {
		p.log.Debug("uniform not found", "name", name)
	}
	p.uniform[name] = loc
	return loc
}

// Attrib returns the location of a named vertex attribute.
func (p *Program) Attrib(name string) int32 {
	if loc, ok := p.attrib[name]; ok {
		return loc
	}
	loc := p.gpu.AttribLocation(p.handle, name)
	if loc < 0 {
		p.log.Debug("attribute not found", "name", name)
	}
	p.attrib[name] = loc
	return loc
}

// SetInt sets an int or sampler uniform.
func (p *Program) SetInt(name string, v int32) { p.gpu.Uniform1i(p.Uniform(name), v) }

// SetBool sets an int uniform used as a flag.
func (p *Program) SetBool(name string, v bool) {
	var i int32
	if v {
		i = 1
	}
	p.SetInt(name, i)
}

// SetFloat sets a float uniform.
func (p *Program) SetFloat(name string, v float32) { p.gpu.Uniform1f(p.Uniform(name), v) }

// SetVec3 sets a vec3 uniform.
func (p *Program) SetVec3(name string, v [3]float32) { p.gpu.Uniform3f(p.Uniform(name), v) }

// SetTransfer sets a float[7] uniform from the parameters of tf.
func (p *Program) SetTransfer(name string, tf TransferFunction) {
	u := tf.Uniform()
	p.gpu.Uniform1fv(p.Uniform(name), u[:])
}

// SetMatrix sets a mat4 uniform, column-major.
func (p *Program) SetMatrix(name string, m [16]float32) { p.gpu.UniformMatrix4f(p.Uniform(name), m) }

// Destroy releases the program.
func (p *Program) Destroy() {
	if p.handle != 0 {
		p.gpu.DeleteProgram(p.handle)
		p.handle = 0
	}
}

// Texture is an image uploaded to the GPU.
type Texture struct {
	gpu           GPU
	handle        uint32
	width, height int
	format        PixelFormat
	premultiplied bool
}

// NewTexture uploads img. The pixel format is checked before the GPU is
// touched; ErrUnsupportedPixelFormat is session fatal.
func NewTexture(gpu GPU, img image.Image) (*Texture, error) {
	buf, err := NewPixelBuffer(img)
	if err != nil {
		return nil, sessionError("upload texture", err)
	}
	return uploadTexture(gpu, buf)
}

func uploadTexture(gpu GPU, buf *PixelBuffer) (*Texture, error) {
	t := &Texture{
		gpu:           gpu,
		handle:        gpu.CreateTexture(),
		width:         buf.Width,
		height:        buf.Height,
		format:        buf.Format,
		premultiplied: buf.Premultiplied,
	}
	gpu.TexImage2D(t.handle, buf)
	if err := gpu.Err(); err != nil {
		t.Destroy()
		return nil, sessionError("upload texture", fmt.Errorf("%w: %v", ErrGPU, err))
	}
	return t, nil
}

// Bind makes the texture current on a texture unit.
func (t *Texture) Bind(slot int) {
	t.gpu.BindTexture(slot, t.handle)
}

// Size returns the texture dimensions.
func (t *Texture) Size() (width, height int) { return t.width, t.height }

// Format returns the uploaded pixel format.
func (t *Texture) Format() PixelFormat { return t.format }

// Premultiplied reports whether color components are premultiplied by alpha.
func (t *Texture) Premultiplied() bool { return t.premultiplied }

// Destroy releases the texture.
func (t *Texture) Destroy() {
	if t.handle != 0 {
		t.gpu.DeleteTexture(t.handle)
		t.handle = 0
	}
}
