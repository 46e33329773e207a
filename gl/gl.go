// Package gl defines the call surface of the immediate-mode GPU state
// machine targeted by regl-go.
//
// The interface mirrors the WebGL 2 subset the generated command plans
// touch: capability toggles, valued state setters, object creation and
// binding for buffers, textures, framebuffers and programs, vertex
// attribute pointers, and the four draw-call variants. Numeric constant
// values match the WebGL specification so that recorded call logs read
// like real GL traces.
//
// Implementations are expected to be used from a single goroutine; the
// library never calls a Context concurrently with itself.
package gl

// Enum is a GL enumerant. Values match the WebGL specification.
type Enum uint32

// Object handles. A zero handle is the GL "null" object.
type (
	Buffer       struct{ V uint32 }
	Shader       struct{ V uint32 }
	Program      struct{ V uint32 }
	Texture      struct{ V uint32 }
	Framebuffer  struct{ V uint32 }
	Renderbuffer struct{ V uint32 }
	VertexArray  struct{ V uint32 }
	Query        struct{ V uint32 }
)

// UniformLocation identifies a uniform within a linked program.
// A negative V means the uniform is not active.
type UniformLocation struct{ V int32 }

// Capability toggles (Enable/Disable).
const (
	Blend                 Enum = 0x0BE2
	CullFaceCap           Enum = 0x0B44
	DepthTest             Enum = 0x0B71
	Dither                Enum = 0x0BD0
	PolygonOffsetFill     Enum = 0x8037
	SampleAlphaToCoverage Enum = 0x809E
	SampleCoverageCap     Enum = 0x80A0
	ScissorTest           Enum = 0x0C11
	StencilTest           Enum = 0x0B90
)

// Comparison functions (depth func, stencil func).
const (
	Never    Enum = 0x0200
	Less     Enum = 0x0201
	Equal    Enum = 0x0202
	Lequal   Enum = 0x0203
	Greater  Enum = 0x0204
	Notequal Enum = 0x0205
	Gequal   Enum = 0x0206
	Always   Enum = 0x0207
)

// Blend factors.
const (
	Zero                  Enum = 0
	One                   Enum = 1
	SrcColor              Enum = 0x0300
	OneMinusSrcColor      Enum = 0x0301
	SrcAlpha              Enum = 0x0302
	OneMinusSrcAlpha      Enum = 0x0303
	DstAlpha              Enum = 0x0304
	OneMinusDstAlpha      Enum = 0x0305
	DstColor              Enum = 0x0306
	OneMinusDstColor      Enum = 0x0307
	SrcAlphaSaturate      Enum = 0x0308
	ConstantColor         Enum = 0x8001
	OneMinusConstantColor Enum = 0x8002
	ConstantAlpha         Enum = 0x8003
	OneMinusConstantAlpha Enum = 0x8004
)

// Blend equations.
const (
	FuncAdd             Enum = 0x8006
	FuncSubtract        Enum = 0x800A
	FuncReverseSubtract Enum = 0x800B
	MinEquation         Enum = 0x8007
	MaxEquation         Enum = 0x8008
)

// Stencil operations.
const (
	// ZeroOp shares the numeric value of the Zero blend factor.
	ZeroOp       Enum = 0
	Keep         Enum = 0x1E00
	Replace      Enum = 0x1E01
	Incr         Enum = 0x1E02
	Decr         Enum = 0x1E03
	Invert       Enum = 0x150A
	IncrWrap     Enum = 0x8507
	DecrWrap     Enum = 0x8508
	Front        Enum = 0x0404
	Back         Enum = 0x0405
	FrontAndBack Enum = 0x0408
	CW           Enum = 0x0900
	CCW          Enum = 0x0901
)

// Primitives.
const (
	Points        Enum = 0x0000
	Lines         Enum = 0x0001
	LineLoop      Enum = 0x0002
	LineStrip     Enum = 0x0003
	Triangles     Enum = 0x0004
	TriangleStrip Enum = 0x0005
	TriangleFan   Enum = 0x0006
)

// Data types.
const (
	Byte          Enum = 0x1400
	UnsignedByte  Enum = 0x1401
	Short         Enum = 0x1402
	UnsignedShort Enum = 0x1403
	Int           Enum = 0x1404
	UnsignedInt   Enum = 0x1405
	Float         Enum = 0x1406
)

// Shader and program enums.
const (
	FragmentShader Enum = 0x8B30
	VertexShader   Enum = 0x8B31
	CompileStatus  Enum = 0x8B81
	LinkStatus     Enum = 0x8B82
	ActiveUniforms Enum = 0x8B86
	ActiveAttribs  Enum = 0x8B89
)

// Uniform types reported by GetActiveUniform.
const (
	FloatVec2   Enum = 0x8B50
	FloatVec3   Enum = 0x8B51
	FloatVec4   Enum = 0x8B52
	IntVec2     Enum = 0x8B53
	IntVec3     Enum = 0x8B54
	IntVec4     Enum = 0x8B55
	Bool        Enum = 0x8B56
	BoolVec2    Enum = 0x8B57
	BoolVec3    Enum = 0x8B58
	BoolVec4    Enum = 0x8B59
	FloatMat2   Enum = 0x8B5A
	FloatMat3   Enum = 0x8B5B
	FloatMat4   Enum = 0x8B5C
	Sampler2D   Enum = 0x8B5E
	SamplerCube Enum = 0x8B60
)

// Buffer targets and usage.
const (
	ArrayBuffer        Enum = 0x8892
	ElementArrayBuffer Enum = 0x8893
	StaticDraw         Enum = 0x88E4
	DynamicDraw        Enum = 0x88E8
	StreamDraw         Enum = 0x88E0
)

// Texture enums.
const (
	Texture2D        Enum = 0x0DE1
	TextureCubeMap   Enum = 0x8513
	Texture0         Enum = 0x84C0
	TextureMagFilter Enum = 0x2800
	TextureMinFilter Enum = 0x2801
	TextureWrapS     Enum = 0x2802
	TextureWrapT     Enum = 0x2803
	Nearest          Enum = 0x2600
	Linear           Enum = 0x2601
	ClampToEdge      Enum = 0x812F
	Repeat           Enum = 0x2901
	RGBA             Enum = 0x1908
	RGB              Enum = 0x1907
	Alpha            Enum = 0x1906
	Luminance        Enum = 0x1909
	UnpackAlignment  Enum = 0x0CF5
	UnpackFlipY      Enum = 0x9240
)

// Framebuffer and renderbuffer enums.
const (
	FramebufferTarget   Enum = 0x8D40
	RenderbufferTarget  Enum = 0x8D41
	ColorAttachment0    Enum = 0x8CE0
	DepthAttachment     Enum = 0x8D00
	StencilAttachment   Enum = 0x8D20
	DepthStencilAttach  Enum = 0x821A
	DepthComponent16    Enum = 0x81A5
	StencilIndex8       Enum = 0x8D48
	DepthStencil        Enum = 0x84F9
	FramebufferComplete Enum = 0x8CD5
)

// Clear bits.
const (
	DepthBufferBit   Enum = 0x00000100
	StencilBufferBit Enum = 0x00000400
	ColorBufferBit   Enum = 0x00004000
)

// Timer query enums (EXT_disjoint_timer_query_webgl2 shape).
const (
	TimeElapsed Enum = 0x88BF
)

// Caps reports optional capabilities and numeric limits of a Context.
// Generated command plans consult Caps once at construction time to decide
// which code paths may be emitted (VAO fast path, instanced draws, timer
// profiling).
type Caps struct {
	// Instancing reports ANGLE_instanced_arrays / ES3 instanced draws.
	Instancing bool

	// VertexArrays reports native vertex-array-object support.
	VertexArrays bool

	// TimerQuery reports GPU timer query support.
	TimerQuery bool

	// DrawBuffers reports multi-target draw support.
	DrawBuffers bool

	// MaxVertexAttribs is the number of vertex attribute slots.
	MaxVertexAttribs int

	// MaxTextureUnits is the number of combined texture image units.
	MaxTextureUnits int

	// MaxTextureSize is the maximum 2D texture dimension.
	MaxTextureSize int
}

// Context is the GPU register machine. It owns mutable state (toggles,
// bindings, attribute slots) that persists across calls; the library's
// diff engine mirrors that state and issues the minimum set of calls.
type Context interface {
	// Caps reports capabilities and limits. Must be constant for the
	// lifetime of the context (context loss does not change them).
	Caps() Caps

	// IsContextLost reports whether the underlying context is lost.
	IsContextLost() bool

	// Capability toggles.
	Enable(cap Enum)
	Disable(cap Enum)

	// Valued state.
	BlendColor(r, g, b, a float32)
	BlendEquationSeparate(rgb, alpha Enum)
	BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha Enum)
	DepthFunc(fn Enum)
	DepthRange(near, far float32)
	DepthMask(mask bool)
	ColorMask(r, g, b, a bool)
	CullFace(face Enum)
	FrontFace(dir Enum)
	LineWidth(w float32)
	PolygonOffset(factor, units float32)
	SampleCoverage(value float32, invert bool)
	StencilMask(mask uint32)
	StencilFunc(fn Enum, ref int32, mask uint32)
	StencilOpSeparate(face, fail, zfail, zpass Enum)
	Scissor(x, y, w, h int32)
	Viewport(x, y, w, h int32)

	// Clearing.
	ClearColor(r, g, b, a float32)
	ClearDepth(d float32)
	ClearStencil(s int32)
	Clear(mask Enum)

	// Buffers.
	CreateBuffer() Buffer
	DeleteBuffer(b Buffer)
	BindBuffer(target Enum, b Buffer)
	BufferData(target Enum, data []byte, usage Enum)
	BufferSubData(target Enum, offset int, data []byte)

	// Shaders and programs.
	CreateShader(ty Enum) Shader
	DeleteShader(s Shader)
	ShaderSource(s Shader, src string)
	CompileShader(s Shader)
	GetShaderi(s Shader, pname Enum) int
	GetShaderInfoLog(s Shader) string
	CreateProgram() Program
	DeleteProgram(p Program)
	AttachShader(p Program, s Shader)
	LinkProgram(p Program)
	GetProgrami(p Program, pname Enum) int
	GetProgramInfoLog(p Program) string
	UseProgram(p Program)
	GetActiveUniform(p Program, index int) (name string, size int, ty Enum)
	GetActiveAttrib(p Program, index int) (name string, size int, ty Enum)
	GetUniformLocation(p Program, name string) UniformLocation
	GetAttribLocation(p Program, name string) int

	// Uniform upload.
	Uniform1f(loc UniformLocation, x float32)
	Uniform2f(loc UniformLocation, x, y float32)
	Uniform3f(loc UniformLocation, x, y, z float32)
	Uniform4f(loc UniformLocation, x, y, z, w float32)
	Uniform1i(loc UniformLocation, x int32)
	Uniform2i(loc UniformLocation, x, y int32)
	Uniform3i(loc UniformLocation, x, y, z int32)
	Uniform4i(loc UniformLocation, x, y, z, w int32)
	UniformMatrix2fv(loc UniformLocation, v []float32)
	UniformMatrix3fv(loc UniformLocation, v []float32)
	UniformMatrix4fv(loc UniformLocation, v []float32)

	// Vertex attributes.
	EnableVertexAttribArray(slot int)
	DisableVertexAttribArray(slot int)
	VertexAttribPointer(slot int, size int, ty Enum, normalized bool, stride, offset int)
	VertexAttribDivisor(slot int, divisor int)
	VertexAttrib4f(slot int, x, y, z, w float32)

	// Vertex array objects. Only called when Caps().VertexArrays.
	CreateVertexArray() VertexArray
	DeleteVertexArray(a VertexArray)
	BindVertexArray(a VertexArray)

	// Textures.
	CreateTexture() Texture
	DeleteTexture(t Texture)
	ActiveTexture(unit Enum)
	BindTexture(target Enum, t Texture)
	TexImage2D(target Enum, level int, internalFormat Enum, width, height int, format, ty Enum, data []byte)
	TexParameteri(target, pname, param Enum)
	PixelStorei(pname Enum, param int)

	// Framebuffers and renderbuffers.
	CreateFramebuffer() Framebuffer
	DeleteFramebuffer(f Framebuffer)
	BindFramebuffer(target Enum, f Framebuffer)
	FramebufferTexture2D(target, attachment, texTarget Enum, t Texture, level int)
	FramebufferRenderbuffer(target, attachment, rbTarget Enum, rb Renderbuffer)
	CheckFramebufferStatus(target Enum) Enum
	CreateRenderbuffer() Renderbuffer
	DeleteRenderbuffer(rb Renderbuffer)
	BindRenderbuffer(target Enum, rb Renderbuffer)
	RenderbufferStorage(target, format Enum, width, height int)

	// Draw dispatch.
	DrawArrays(mode Enum, first, count int)
	DrawElements(mode Enum, count int, ty Enum, byteOffset int)
	DrawArraysInstanced(mode Enum, first, count, instances int)
	DrawElementsInstanced(mode Enum, count int, ty Enum, byteOffset, instances int)

	// Timer queries. Only called when Caps().TimerQuery.
	CreateQuery() Query
	DeleteQuery(q Query)
	BeginQuery(target Enum, q Query)
	EndQuery(target Enum)
	QueryResultAvailable(q Query) bool
	QueryResult(q Query) uint64
}

// IndexTypeSize returns the byte width of an element index type.
func IndexTypeSize(ty Enum) int {
	switch ty {
	case UnsignedByte:
		return 1
	case UnsignedShort:
		return 2
	case UnsignedInt:
		return 4
	default:
		return 0
	}
}
