// Package glgpu implements gainmap.GPU on an OpenGL 3.2 core context.
//
// All methods must be called on the thread that owns the current context.
package glgpu

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v3.2-core/gl"

	"github.com/vearutop/gainmap"
)

// GPU issues gainmap rendering commands to the current OpenGL context.
type GPU struct {
	// vertex array object of each vertex buffer
	vaos map[uint32]uint32
}

// New loads GL entry points for the current context.
func New() (*GPU, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("init gl: %w", err)
	}
	return &GPU{vaos: make(map[uint32]uint32)}, nil
}

// Version returns the GL version string of the current context.
func (g *GPU) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

func (g *GPU) CreateShader(stage gainmap.ShaderStage) uint32 {
	if stage == gainmap.StageFragment {
		return gl.CreateShader(gl.FRAGMENT_SHADER)
	}
	return gl.CreateShader(gl.VERTEX_SHADER)
}

func (g *GPU) ShaderSource(shader uint32, src string) {
	csource, free := gl.Strs(src + "\x00")
	defer free()

	gl.ShaderSource(shader, 1, csource, nil)
}

func (g *GPU) CompileShader(shader uint32) (bool, string) {
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status != gl.FALSE {
		return true, ""
	}

	var logLength int32
	gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
	if logLength <= 0 {
		return false, ""
	}
	// The length includes the NUL terminator.
	log := strings.Repeat("\x00", int(logLength+1))
	gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
	return false, log
}

func (g *GPU) DeleteShader(shader uint32) { gl.DeleteShader(shader) }

func (g *GPU) CreateProgram() uint32 { return gl.CreateProgram() }

func (g *GPU) AttachShader(program, shader uint32) { gl.AttachShader(program, shader) }

func (g *GPU) LinkProgram(program uint32) (bool, string) {
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status != gl.FALSE {
		return true, ""
	}

	var logLength int32
	gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
	if logLength <= 0 {
		return false, ""
	}
	log := strings.Repeat("\x00", int(logLength+1))
	gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
	return false, log
}

func (g *GPU) UseProgram(program uint32) { gl.UseProgram(program) }

func (g *GPU) DeleteProgram(program uint32) { gl.DeleteProgram(program) }

func (g *GPU) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (g *GPU) AttribLocation(program uint32, name string) int32 {
	return gl.GetAttribLocation(program, gl.Str(name+"\x00"))
}

func (g *GPU) Uniform1i(location int32, v int32) { gl.Uniform1i(location, v) }

func (g *GPU) Uniform1f(location int32, v float32) { gl.Uniform1f(location, v) }

func (g *GPU) Uniform3f(location int32, v [3]float32) { gl.Uniform3f(location, v[0], v[1], v[2]) }

func (g *GPU) Uniform1fv(location int32, v []float32) {
	if len(v) == 0 {
		return
	}
	gl.Uniform1fv(location, int32(len(v)), &v[0])
}

func (g *GPU) UniformMatrix4f(location int32, m [16]float32) {
	gl.UniformMatrix4fv(location, 1, false, &m[0])
}

func (g *GPU) CreateTexture() uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	return tex
}

// TexImage2D uploads buf to texture. Single-channel buffers are expanded to
// RGBA with the value in every component since 3.2 core has no swizzle.
func (g *GPU) TexImage2D(texture uint32, buf *gainmap.PixelBuffer) {
	pix, format := buf.Pix, buf.Format
	if format.Channels() == 1 {
		pix, format = expandSingleChannel(buf)
	}

	internalFormat, xtype := int32(gl.RGBA8), uint32(gl.UNSIGNED_BYTE)
	if format == gainmap.FormatRGBA16 {
		internalFormat, xtype = gl.RGBA16, gl.UNSIGNED_SHORT
	}

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internalFormat,
		int32(buf.Width), int32(buf.Height), 0,
		gl.RGBA, xtype, gl.Ptr(pix))
}

func expandSingleChannel(buf *gainmap.PixelBuffer) ([]byte, gainmap.PixelFormat) {
	size := buf.Format.BytesPerPixel()
	out := make([]byte, 0, len(buf.Pix)*4)
	for i := 0; i+size <= len(buf.Pix); i += size {
		v := buf.Pix[i : i+size]
		for c := 0; c < 4; c++ {
			out = append(out, v...)
		}
	}
	if buf.Format == gainmap.FormatR16 {
		return out, gainmap.FormatRGBA16
	}
	return out, gainmap.FormatRGBA8
}

func (g *GPU) BindTexture(slot int, texture uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(slot))
	gl.BindTexture(gl.TEXTURE_2D, texture)
}

func (g *GPU) DeleteTexture(texture uint32) { gl.DeleteTextures(1, &texture) }

// CreateVertexBuffer uploads data into a new buffer with its own vertex array object.
func (g *GPU) CreateVertexBuffer(data []float32) uint32 {
	var vao, vbo uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	if len(data) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	}
	g.vaos[vbo] = vao
	return vbo
}

func (g *GPU) VertexAttrib(buffer uint32, location int32, size, stride, offset int) {
	if location < 0 {
		return
	}
	gl.BindVertexArray(g.vaos[buffer])
	gl.BindBuffer(gl.ARRAY_BUFFER, buffer)
	gl.EnableVertexAttribArray(uint32(location))
	gl.VertexAttribPointerWithOffset(uint32(location), int32(size), gl.FLOAT, false, int32(stride*4), uintptr(offset*4))
}

func (g *GPU) DeleteVertexBuffer(buffer uint32) {
	if vao, ok := g.vaos[buffer]; ok {
		gl.DeleteVertexArrays(1, &vao)
		delete(g.vaos, buffer)
	}
	gl.DeleteBuffers(1, &buffer)
}

func (g *GPU) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (g *GPU) Clear(r, gr, b, a float32) {
	gl.ClearColor(r, gr, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (g *GPU) DrawTriangles(buffer uint32, count int) {
	gl.BindVertexArray(g.vaos[buffer])
	gl.DrawArrays(gl.TRIANGLES, 0, int32(count))
}

// Err drains the GL error flags.
func (g *GPU) Err() error {
	var codes []string
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		codes = append(codes, errorName(code))
		if len(codes) > 8 {
			break
		}
	}
	if len(codes) == 0 {
		return nil
	}
	return fmt.Errorf("gl error: %s", strings.Join(codes, ", "))
}

func errorName(code uint32) string {
	switch code {
	case gl.INVALID_ENUM:
		return "INVALID_ENUM"
	case gl.INVALID_VALUE:
		return "INVALID_VALUE"
	case gl.INVALID_OPERATION:
		return "INVALID_OPERATION"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "INVALID_FRAMEBUFFER_OPERATION"
	case gl.OUT_OF_MEMORY:
		return "OUT_OF_MEMORY"
	default:
		return fmt.Sprintf("0x%04X", code)
	}
}

var _ gainmap.GPU = (*GPU)(nil)
