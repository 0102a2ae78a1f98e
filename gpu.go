package gainmap

// ShaderStage identifies a stage of the GPU program.
type ShaderStage int

const (
	// StageVertex is the vertex stage.
	StageVertex ShaderStage = iota
	// StageFragment is the fragment stage.
	StageFragment
)

func (s ShaderStage) String() string {
	if s == StageFragment {
		return "fragment"
	}
	return "vertex"
}

// GPU is the rendering context the renderer issues its commands to.
//
// All state the renderer depends on (program, bound textures, buffers) is
// created and bound through this interface, so the order of operations is
// explicit and can be verified without a real GPU. Implementations are not
// safe for concurrent use; all calls happen on the rendering thread.
type GPU interface {
	CreateShader(stage ShaderStage) uint32
	ShaderSource(shader uint32, src string)
	// CompileShader compiles the shader and reports status with the info log.
	CompileShader(shader uint32) (ok bool, infoLog string)
	DeleteShader(shader uint32)

	CreateProgram() uint32
	AttachShader(program, shader uint32)
	// LinkProgram links the program and reports status with the info log.
	LinkProgram(program uint32) (ok bool, infoLog string)
	UseProgram(program uint32)
	DeleteProgram(program uint32)
	UniformLocation(program uint32, name string) int32
	AttribLocation(program uint32, name string) int32

	Uniform1i(location int32, v int32)
	Uniform1f(location int32, v float32)
	Uniform3f(location int32, v [3]float32)
	Uniform1fv(location int32, v []float32)
	UniformMatrix4f(location int32, m [16]float32)

	CreateTexture() uint32
	// TexImage2D uploads pixels with linear filtering and repeat wrapping.
	// Single-channel formats expose their value in the alpha component.
	TexImage2D(texture uint32, buf *PixelBuffer)
	// BindTexture makes texture current on the given texture unit.
	BindTexture(slot int, texture uint32)
	DeleteTexture(texture uint32)

	// CreateVertexBuffer uploads interleaved float vertex data.
	CreateVertexBuffer(data []float32) uint32
	// VertexAttrib describes an attribute of buffer, stride and offset in floats.
	VertexAttrib(buffer uint32, location int32, size, stride, offset int)
	DeleteVertexBuffer(buffer uint32)

	Viewport(x, y, width, height int)
	Clear(r, g, b, a float32)
	// DrawTriangles draws count vertices of buffer as a triangle list.
	DrawTriangles(buffer uint32, count int)

	// Err returns the pending platform error, if any, and resets it.
	Err() error
}
