package gainmap

import (
	"errors"
	"fmt"
	"strings"
)

// fakeGPU records every call as a line of text and hands out sequential handles.
type fakeGPU struct {
	calls []string
	next  uint32

	compileFail ShaderStage
	failCompile bool
	failLink    bool
	// errAt makes Err report a failure when the call log has this many entries.
	errAt int

	uniforms map[string]int32
	textures map[uint32]*PixelBuffer
	matrix   [16]float32
	destTF   []float32
	weight   float32
}

func newFakeGPU() *fakeGPU {
	return &fakeGPU{
		errAt:    -1,
		uniforms: map[string]int32{},
		textures: map[uint32]*PixelBuffer{},
	}
}

func (g *fakeGPU) record(format string, args ...any) {
	g.calls = append(g.calls, fmt.Sprintf(format, args...))
}

func (g *fakeGPU) handle() uint32 {
	g.next++
	return g.next
}

// has reports whether a recorded call starts with prefix.
func (g *fakeGPU) has(prefix string) bool {
	return g.index(prefix) >= 0
}

func (g *fakeGPU) index(prefix string) int {
	for i, c := range g.calls {
		if strings.HasPrefix(c, prefix) {
			return i
		}
	}
	return -1
}

func (g *fakeGPU) count(prefix string) int {
	n := 0
	for _, c := range g.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (g *fakeGPU) CreateShader(stage ShaderStage) uint32 {
	h := g.handle()
	g.record("CreateShader %s %d", stage, h)
	return h
}

func (g *fakeGPU) ShaderSource(shader uint32, _ string) { g.record("ShaderSource %d", shader) }

func (g *fakeGPU) CompileShader(shader uint32) (bool, string) {
	g.record("CompileShader %d", shader)
	if g.failCompile && g.count("CompileShader") == int(g.compileFail)+1 {
		return false, "0:1: syntax error\x00"
	}
	return true, ""
}

func (g *fakeGPU) DeleteShader(shader uint32) { g.record("DeleteShader %d", shader) }

func (g *fakeGPU) CreateProgram() uint32 {
	h := g.handle()
	g.record("CreateProgram %d", h)
	return h
}

func (g *fakeGPU) AttachShader(program, shader uint32) {
	g.record("AttachShader %d %d", program, shader)
}

func (g *fakeGPU) LinkProgram(program uint32) (bool, string) {
	g.record("LinkProgram %d", program)
	if g.failLink {
		return false, "undefined varying"
	}
	return true, ""
}

func (g *fakeGPU) UseProgram(program uint32)    { g.record("UseProgram %d", program) }
func (g *fakeGPU) DeleteProgram(program uint32) { g.record("DeleteProgram %d", program) }

func (g *fakeGPU) UniformLocation(_ uint32, name string) int32 {
	loc, ok := g.uniforms[name]
	if !ok {
		loc = int32(len(g.uniforms))
		g.uniforms[name] = loc
	}
	return loc
}

func (g *fakeGPU) AttribLocation(_ uint32, name string) int32 {
	if name == "aPosition" {
		return 0
	}
	return 1
}

func (g *fakeGPU) uniformName(loc int32) string {
	for n, l := range g.uniforms {
		if l == loc {
			return n
		}
	}
	return "?"
}

func (g *fakeGPU) Uniform1i(loc int32, v int32) {
	g.record("Uniform %s %d", g.uniformName(loc), v)
}

func (g *fakeGPU) Uniform1f(loc int32, v float32) {
	name := g.uniformName(loc)
	if name == "uW" {
		g.weight = v
	}
	g.record("Uniform %s %g", name, v)
}

func (g *fakeGPU) Uniform3f(loc int32, v [3]float32) {
	g.record("Uniform %s %v", g.uniformName(loc), v)
}

func (g *fakeGPU) Uniform1fv(loc int32, v []float32) {
	name := g.uniformName(loc)
	if name == "uDestTF" {
		g.destTF = append([]float32(nil), v...)
	}
	g.record("Uniform %s %v", name, v)
}

func (g *fakeGPU) UniformMatrix4f(loc int32, m [16]float32) {
	g.matrix = m
	g.record("Uniform %s", g.uniformName(loc))
}

func (g *fakeGPU) CreateTexture() uint32 {
	h := g.handle()
	g.record("CreateTexture %d", h)
	return h
}

func (g *fakeGPU) TexImage2D(texture uint32, buf *PixelBuffer) {
	g.textures[texture] = buf
	g.record("TexImage2D %d %s %dx%d", texture, buf.Format, buf.Width, buf.Height)
}

func (g *fakeGPU) BindTexture(slot int, texture uint32) {
	g.record("BindTexture %d %d", slot, texture)
}

func (g *fakeGPU) DeleteTexture(texture uint32) { g.record("DeleteTexture %d", texture) }

func (g *fakeGPU) CreateVertexBuffer(data []float32) uint32 {
	h := g.handle()
	g.record("CreateVertexBuffer %d %d", h, len(data))
	return h
}

func (g *fakeGPU) VertexAttrib(buffer uint32, location int32, size, stride, offset int) {
	g.record("VertexAttrib %d %d %d %d %d", buffer, location, size, stride, offset)
}

func (g *fakeGPU) DeleteVertexBuffer(buffer uint32) { g.record("DeleteVertexBuffer %d", buffer) }

func (g *fakeGPU) Viewport(x, y, width, height int) {
	g.record("Viewport %d %d %d %d", x, y, width, height)
}

func (g *fakeGPU) Clear(r, gr, b, a float32) { g.record("Clear %g %g %g %g", r, gr, b, a) }

func (g *fakeGPU) DrawTriangles(buffer uint32, count int) {
	g.record("DrawTriangles %d %d", buffer, count)
}

func (g *fakeGPU) Err() error {
	if g.errAt >= 0 && len(g.calls) >= g.errAt {
		g.errAt = -1
		return errors.New("GL_INVALID_OPERATION")
	}
	return nil
}

var _ GPU = (*fakeGPU)(nil)
