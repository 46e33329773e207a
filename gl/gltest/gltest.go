// Package gltest provides an in-memory, recording implementation of
// gl.Context for tests.
//
// The fake keeps real registers (capability toggles, valued state, object
// bindings, vertex attribute slots) and an ordered log of every
// state-changing call, formatted as a readable GL trace. Tests assert on
// the log to verify minimal-state-transition properties: poll idempotence,
// scope push/pop symmetry, batch hoisting, and byte-identical call
// sequences across context loss and restore.
//
// Pure queries (GetProgrami, Caps, ...) are not logged.
package gltest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/plotly/regl-go/gl"
)

// Option configures a fake context.
type Option func(*Context)

// WithCaps overrides the default capability report.
func WithCaps(caps gl.Caps) Option {
	return func(c *Context) { c.caps = caps }
}

// DefaultCaps mirrors a typical WebGL 2 context: instancing, VAOs and
// timer queries available, 16 attribute slots and texture units.
func DefaultCaps() gl.Caps {
	return gl.Caps{
		Instancing:       true,
		VertexArrays:     true,
		TimerQuery:       true,
		DrawBuffers:      true,
		MaxVertexAttribs: 16,
		MaxTextureUnits:  16,
		MaxTextureSize:   4096,
	}
}

type shaderObj struct {
	ty     gl.Enum
	source string
}

type programObj struct {
	uniforms []declInfo
	attribs  []declInfo
	linked   bool
}

type declInfo struct {
	name string
	ty   gl.Enum
	size int
	loc  int
}

type attribSlot struct {
	enabled    bool
	buffer     gl.Buffer
	size       int
	ty         gl.Enum
	normalized bool
	stride     int
	offset     int
	divisor    int
}

// Context is a recording in-memory gl.Context.
type Context struct {
	caps gl.Caps
	lost bool

	calls []string

	nextID uint32

	shaders  map[uint32]*shaderObj
	programs map[uint32]*programObj

	enabled map[gl.Enum]bool

	boundProgram     gl.Program
	boundArrayBuf    gl.Buffer
	boundElementBuf  gl.Buffer
	boundFramebuffer gl.Framebuffer
	boundVAO         gl.VertexArray
	activeUnit       gl.Enum

	attribs []attribSlot
}

var _ gl.Context = (*Context)(nil)

// New creates a fresh fake context with DefaultCaps.
func New(opts ...Option) *Context {
	c := &Context{caps: DefaultCaps()}
	for _, opt := range opts {
		opt(c)
	}
	c.resetState()
	return c
}

func (c *Context) resetState() {
	c.nextID = 0
	c.shaders = make(map[uint32]*shaderObj)
	c.programs = make(map[uint32]*programObj)
	c.enabled = map[gl.Enum]bool{gl.Dither: true}
	c.boundProgram = gl.Program{}
	c.boundArrayBuf = gl.Buffer{}
	c.boundElementBuf = gl.Buffer{}
	c.boundFramebuffer = gl.Framebuffer{}
	c.boundVAO = gl.VertexArray{}
	c.activeUnit = gl.Texture0
	c.attribs = make([]attribSlot, c.caps.MaxVertexAttribs)
}

func (c *Context) id() uint32 {
	c.nextID++
	return c.nextID
}

func (c *Context) record(format string, args ...any) {
	if c.lost {
		return
	}
	c.calls = append(c.calls, fmt.Sprintf(format, args...))
}

// Calls returns a copy of the recorded call log.
func (c *Context) Calls() []string {
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

// TakeCalls returns the recorded log and clears it.
func (c *Context) TakeCalls() []string {
	out := c.calls
	c.calls = nil
	return out
}

// ClearCalls discards the recorded log without touching GL state.
func (c *Context) ClearCalls() { c.calls = nil }

// CallsWithPrefix returns recorded calls whose name begins with prefix.
func (c *Context) CallsWithPrefix(prefix string) []string {
	var out []string
	for _, call := range c.calls {
		if strings.HasPrefix(call, prefix) {
			out = append(out, call)
		}
	}
	return out
}

// CountCalls counts recorded calls whose name begins with prefix.
func (c *Context) CountCalls(prefix string) int {
	n := 0
	for _, call := range c.calls {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

// DrawCallCount counts draw dispatches of any of the four variants.
func (c *Context) DrawCallCount() int {
	return c.CountCalls("drawArrays") + c.CountCalls("drawElements")
}

// LoseContext simulates a context-loss event. Subsequent calls are
// silently ignored, as in WebGL.
func (c *Context) LoseContext() { c.lost = true }

// RestoreContext simulates restoration: the context is usable again but
// every object and register is gone, exactly as after a real restore.
func (c *Context) RestoreContext() {
	c.lost = false
	c.resetState()
}

// Caps implements gl.Context.
func (c *Context) Caps() gl.Caps { return c.caps }

// IsContextLost implements gl.Context.
func (c *Context) IsContextLost() bool { return c.lost }

func (c *Context) Enable(cap gl.Enum) {
	c.record("enable(0x%04x)", uint32(cap))
	if !c.lost {
		c.enabled[cap] = true
	}
}

func (c *Context) Disable(cap gl.Enum) {
	c.record("disable(0x%04x)", uint32(cap))
	if !c.lost {
		c.enabled[cap] = false
	}
}

// IsEnabled reports the current value of a capability toggle.
// Test helper, not part of gl.Context.
func (c *Context) IsEnabled(cap gl.Enum) bool { return c.enabled[cap] }

func (c *Context) BlendColor(r, g, b, a float32) {
	c.record("blendColor(%g, %g, %g, %g)", r, g, b, a)
}

func (c *Context) BlendEquationSeparate(rgb, alpha gl.Enum) {
	c.record("blendEquationSeparate(0x%04x, 0x%04x)", uint32(rgb), uint32(alpha))
}

func (c *Context) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha gl.Enum) {
	c.record("blendFuncSeparate(0x%04x, 0x%04x, 0x%04x, 0x%04x)",
		uint32(srcRGB), uint32(dstRGB), uint32(srcAlpha), uint32(dstAlpha))
}

func (c *Context) DepthFunc(fn gl.Enum) { c.record("depthFunc(0x%04x)", uint32(fn)) }

func (c *Context) DepthRange(near, far float32) { c.record("depthRange(%g, %g)", near, far) }

func (c *Context) DepthMask(mask bool) { c.record("depthMask(%v)", mask) }

func (c *Context) ColorMask(r, g, b, a bool) { c.record("colorMask(%v, %v, %v, %v)", r, g, b, a) }

func (c *Context) CullFace(face gl.Enum) { c.record("cullFace(0x%04x)", uint32(face)) }

func (c *Context) FrontFace(dir gl.Enum) { c.record("frontFace(0x%04x)", uint32(dir)) }

func (c *Context) LineWidth(w float32) { c.record("lineWidth(%g)", w) }

func (c *Context) PolygonOffset(factor, units float32) {
	c.record("polygonOffset(%g, %g)", factor, units)
}

func (c *Context) SampleCoverage(value float32, invert bool) {
	c.record("sampleCoverage(%g, %v)", value, invert)
}

func (c *Context) StencilMask(mask uint32) { c.record("stencilMask(0x%x)", mask) }

func (c *Context) StencilFunc(fn gl.Enum, ref int32, mask uint32) {
	c.record("stencilFunc(0x%04x, %d, 0x%x)", uint32(fn), ref, mask)
}

func (c *Context) StencilOpSeparate(face, fail, zfail, zpass gl.Enum) {
	c.record("stencilOpSeparate(0x%04x, 0x%04x, 0x%04x, 0x%04x)",
		uint32(face), uint32(fail), uint32(zfail), uint32(zpass))
}

func (c *Context) Scissor(x, y, w, h int32) { c.record("scissor(%d, %d, %d, %d)", x, y, w, h) }

func (c *Context) Viewport(x, y, w, h int32) { c.record("viewport(%d, %d, %d, %d)", x, y, w, h) }

func (c *Context) ClearColor(r, g, b, a float32) {
	c.record("clearColor(%g, %g, %g, %g)", r, g, b, a)
}

func (c *Context) ClearDepth(d float32) { c.record("clearDepth(%g)", d) }

func (c *Context) ClearStencil(s int32) { c.record("clearStencil(%d)", s) }

func (c *Context) Clear(mask gl.Enum) { c.record("clear(0x%04x)", uint32(mask)) }

func (c *Context) CreateBuffer() gl.Buffer {
	if c.lost {
		return gl.Buffer{}
	}
	b := gl.Buffer{V: c.id()}
	c.record("createBuffer() -> %d", b.V)
	return b
}

func (c *Context) DeleteBuffer(b gl.Buffer) { c.record("deleteBuffer(%d)", b.V) }

func (c *Context) BindBuffer(target gl.Enum, b gl.Buffer) {
	c.record("bindBuffer(0x%04x, %d)", uint32(target), b.V)
	if c.lost {
		return
	}
	switch target {
	case gl.ArrayBuffer:
		c.boundArrayBuf = b
	case gl.ElementArrayBuffer:
		c.boundElementBuf = b
	}
}

func (c *Context) BufferData(target gl.Enum, data []byte, usage gl.Enum) {
	c.record("bufferData(0x%04x, %d bytes, 0x%04x)", uint32(target), len(data), uint32(usage))
}

func (c *Context) BufferSubData(target gl.Enum, offset int, data []byte) {
	c.record("bufferSubData(0x%04x, %d, %d bytes)", uint32(target), offset, len(data))
}

func (c *Context) CreateShader(ty gl.Enum) gl.Shader {
	if c.lost {
		return gl.Shader{}
	}
	s := gl.Shader{V: c.id()}
	c.shaders[s.V] = &shaderObj{ty: ty}
	c.record("createShader(0x%04x) -> %d", uint32(ty), s.V)
	return s
}

func (c *Context) DeleteShader(s gl.Shader) {
	c.record("deleteShader(%d)", s.V)
	delete(c.shaders, s.V)
}

func (c *Context) ShaderSource(s gl.Shader, src string) {
	c.record("shaderSource(%d, %d chars)", s.V, len(src))
	if sh := c.shaders[s.V]; sh != nil {
		sh.source = src
	}
}

func (c *Context) CompileShader(s gl.Shader) { c.record("compileShader(%d)", s.V) }

func (c *Context) GetShaderi(s gl.Shader, pname gl.Enum) int {
	if pname == gl.CompileStatus && !c.lost {
		return 1
	}
	return 0
}

func (c *Context) GetShaderInfoLog(gl.Shader) string { return "" }

func (c *Context) CreateProgram() gl.Program {
	if c.lost {
		return gl.Program{}
	}
	p := gl.Program{V: c.id()}
	c.programs[p.V] = &programObj{}
	c.record("createProgram() -> %d", p.V)
	return p
}

func (c *Context) DeleteProgram(p gl.Program) {
	c.record("deleteProgram(%d)", p.V)
	delete(c.programs, p.V)
}

func (c *Context) AttachShader(p gl.Program, s gl.Shader) {
	c.record("attachShader(%d, %d)", p.V, s.V)
	prog, sh := c.programs[p.V], c.shaders[s.V]
	if prog == nil || sh == nil {
		return
	}
	for _, d := range scanDecls(sh.source, "uniform") {
		if !containsDecl(prog.uniforms, d.name) {
			d.loc = len(prog.uniforms)
			prog.uniforms = append(prog.uniforms, d)
		}
	}
	if sh.ty == gl.VertexShader {
		for _, d := range scanDecls(sh.source, "attribute", "in") {
			if !containsDecl(prog.attribs, d.name) {
				d.loc = len(prog.attribs)
				prog.attribs = append(prog.attribs, d)
			}
		}
	}
}

func (c *Context) LinkProgram(p gl.Program) {
	c.record("linkProgram(%d)", p.V)
	if prog := c.programs[p.V]; prog != nil {
		prog.linked = true
	}
}

func (c *Context) GetProgrami(p gl.Program, pname gl.Enum) int {
	prog := c.programs[p.V]
	if prog == nil {
		return 0
	}
	switch pname {
	case gl.LinkStatus:
		if prog.linked {
			return 1
		}
	case gl.ActiveUniforms:
		return len(prog.uniforms)
	case gl.ActiveAttribs:
		return len(prog.attribs)
	}
	return 0
}

func (c *Context) GetProgramInfoLog(gl.Program) string { return "" }

func (c *Context) UseProgram(p gl.Program) {
	c.record("useProgram(%d)", p.V)
	if !c.lost {
		c.boundProgram = p
	}
}

// BoundProgram reports the currently bound program. Test helper.
func (c *Context) BoundProgram() gl.Program { return c.boundProgram }

func (c *Context) GetActiveUniform(p gl.Program, index int) (string, int, gl.Enum) {
	prog := c.programs[p.V]
	if prog == nil || index >= len(prog.uniforms) {
		return "", 0, 0
	}
	d := prog.uniforms[index]
	return d.name, d.size, d.ty
}

func (c *Context) GetActiveAttrib(p gl.Program, index int) (string, int, gl.Enum) {
	prog := c.programs[p.V]
	if prog == nil || index >= len(prog.attribs) {
		return "", 0, 0
	}
	d := prog.attribs[index]
	return d.name, d.size, d.ty
}

func (c *Context) GetUniformLocation(p gl.Program, name string) gl.UniformLocation {
	prog := c.programs[p.V]
	if prog == nil {
		return gl.UniformLocation{V: -1}
	}
	for _, d := range prog.uniforms {
		if d.name == name {
			return gl.UniformLocation{V: int32(d.loc)}
		}
	}
	return gl.UniformLocation{V: -1}
}

func (c *Context) GetAttribLocation(p gl.Program, name string) int {
	prog := c.programs[p.V]
	if prog == nil {
		return -1
	}
	for _, d := range prog.attribs {
		if d.name == name {
			return d.loc
		}
	}
	return -1
}

func (c *Context) Uniform1f(loc gl.UniformLocation, x float32) {
	c.record("uniform1f(%d, %g)", loc.V, x)
}

func (c *Context) Uniform2f(loc gl.UniformLocation, x, y float32) {
	c.record("uniform2f(%d, %g, %g)", loc.V, x, y)
}

func (c *Context) Uniform3f(loc gl.UniformLocation, x, y, z float32) {
	c.record("uniform3f(%d, %g, %g, %g)", loc.V, x, y, z)
}

func (c *Context) Uniform4f(loc gl.UniformLocation, x, y, z, w float32) {
	c.record("uniform4f(%d, %g, %g, %g, %g)", loc.V, x, y, z, w)
}

func (c *Context) Uniform1i(loc gl.UniformLocation, x int32) {
	c.record("uniform1i(%d, %d)", loc.V, x)
}

func (c *Context) Uniform2i(loc gl.UniformLocation, x, y int32) {
	c.record("uniform2i(%d, %d, %d)", loc.V, x, y)
}

func (c *Context) Uniform3i(loc gl.UniformLocation, x, y, z int32) {
	c.record("uniform3i(%d, %d, %d, %d)", loc.V, x, y, z)
}

func (c *Context) Uniform4i(loc gl.UniformLocation, x, y, z, w int32) {
	c.record("uniform4i(%d, %d, %d, %d, %d)", loc.V, x, y, z, w)
}

func (c *Context) UniformMatrix2fv(loc gl.UniformLocation, v []float32) {
	c.record("uniformMatrix2fv(%d, %v)", loc.V, v)
}

func (c *Context) UniformMatrix3fv(loc gl.UniformLocation, v []float32) {
	c.record("uniformMatrix3fv(%d, %v)", loc.V, v)
}

func (c *Context) UniformMatrix4fv(loc gl.UniformLocation, v []float32) {
	c.record("uniformMatrix4fv(%d, %v)", loc.V, v)
}

func (c *Context) EnableVertexAttribArray(slot int) {
	c.record("enableVertexAttribArray(%d)", slot)
	if !c.lost && slot < len(c.attribs) {
		c.attribs[slot].enabled = true
	}
}

func (c *Context) DisableVertexAttribArray(slot int) {
	c.record("disableVertexAttribArray(%d)", slot)
	if !c.lost && slot < len(c.attribs) {
		c.attribs[slot].enabled = false
	}
}

func (c *Context) VertexAttribPointer(slot, size int, ty gl.Enum, normalized bool, stride, offset int) {
	c.record("vertexAttribPointer(%d, %d, 0x%04x, %v, %d, %d)",
		slot, size, uint32(ty), normalized, stride, offset)
	if c.lost || slot >= len(c.attribs) {
		return
	}
	a := &c.attribs[slot]
	a.buffer = c.boundArrayBuf
	a.size = size
	a.ty = ty
	a.normalized = normalized
	a.stride = stride
	a.offset = offset
}

func (c *Context) VertexAttribDivisor(slot, divisor int) {
	c.record("vertexAttribDivisor(%d, %d)", slot, divisor)
	if !c.lost && slot < len(c.attribs) {
		c.attribs[slot].divisor = divisor
	}
}

func (c *Context) VertexAttrib4f(slot int, x, y, z, w float32) {
	c.record("vertexAttrib4f(%d, %g, %g, %g, %g)", slot, x, y, z, w)
}

func (c *Context) CreateVertexArray() gl.VertexArray {
	if c.lost {
		return gl.VertexArray{}
	}
	a := gl.VertexArray{V: c.id()}
	c.record("createVertexArray() -> %d", a.V)
	return a
}

func (c *Context) DeleteVertexArray(a gl.VertexArray) { c.record("deleteVertexArray(%d)", a.V) }

func (c *Context) BindVertexArray(a gl.VertexArray) {
	c.record("bindVertexArray(%d)", a.V)
	if !c.lost {
		c.boundVAO = a
	}
}

func (c *Context) CreateTexture() gl.Texture {
	if c.lost {
		return gl.Texture{}
	}
	t := gl.Texture{V: c.id()}
	c.record("createTexture() -> %d", t.V)
	return t
}

func (c *Context) DeleteTexture(t gl.Texture) { c.record("deleteTexture(%d)", t.V) }

func (c *Context) ActiveTexture(unit gl.Enum) {
	c.record("activeTexture(0x%04x)", uint32(unit))
	if !c.lost {
		c.activeUnit = unit
	}
}

func (c *Context) BindTexture(target gl.Enum, t gl.Texture) {
	c.record("bindTexture(0x%04x, %d)", uint32(target), t.V)
}

func (c *Context) TexImage2D(target gl.Enum, level int, internalFormat gl.Enum, width, height int, format, ty gl.Enum, data []byte) {
	c.record("texImage2D(0x%04x, %d, 0x%04x, %d, %d, 0x%04x, 0x%04x, %d bytes)",
		uint32(target), level, uint32(internalFormat), width, height,
		uint32(format), uint32(ty), len(data))
}

func (c *Context) TexParameteri(target, pname, param gl.Enum) {
	c.record("texParameteri(0x%04x, 0x%04x, 0x%04x)", uint32(target), uint32(pname), uint32(param))
}

func (c *Context) PixelStorei(pname gl.Enum, param int) {
	c.record("pixelStorei(0x%04x, %d)", uint32(pname), param)
}

func (c *Context) CreateFramebuffer() gl.Framebuffer {
	if c.lost {
		return gl.Framebuffer{}
	}
	f := gl.Framebuffer{V: c.id()}
	c.record("createFramebuffer() -> %d", f.V)
	return f
}

func (c *Context) DeleteFramebuffer(f gl.Framebuffer) { c.record("deleteFramebuffer(%d)", f.V) }

func (c *Context) BindFramebuffer(target gl.Enum, f gl.Framebuffer) {
	c.record("bindFramebuffer(0x%04x, %d)", uint32(target), f.V)
	if !c.lost {
		c.boundFramebuffer = f
	}
}

func (c *Context) FramebufferTexture2D(target, attachment, texTarget gl.Enum, t gl.Texture, level int) {
	c.record("framebufferTexture2D(0x%04x, 0x%04x, 0x%04x, %d, %d)",
		uint32(target), uint32(attachment), uint32(texTarget), t.V, level)
}

func (c *Context) FramebufferRenderbuffer(target, attachment, rbTarget gl.Enum, rb gl.Renderbuffer) {
	c.record("framebufferRenderbuffer(0x%04x, 0x%04x, 0x%04x, %d)",
		uint32(target), uint32(attachment), uint32(rbTarget), rb.V)
}

func (c *Context) CheckFramebufferStatus(gl.Enum) gl.Enum {
	if c.lost {
		return 0
	}
	return gl.FramebufferComplete
}

func (c *Context) CreateRenderbuffer() gl.Renderbuffer {
	if c.lost {
		return gl.Renderbuffer{}
	}
	rb := gl.Renderbuffer{V: c.id()}
	c.record("createRenderbuffer() -> %d", rb.V)
	return rb
}

func (c *Context) DeleteRenderbuffer(rb gl.Renderbuffer) { c.record("deleteRenderbuffer(%d)", rb.V) }

func (c *Context) BindRenderbuffer(target gl.Enum, rb gl.Renderbuffer) {
	c.record("bindRenderbuffer(0x%04x, %d)", uint32(target), rb.V)
}

func (c *Context) RenderbufferStorage(target, format gl.Enum, width, height int) {
	c.record("renderbufferStorage(0x%04x, 0x%04x, %d, %d)", uint32(target), uint32(format), width, height)
}

func (c *Context) DrawArrays(mode gl.Enum, first, count int) {
	c.record("drawArrays(0x%04x, %d, %d)", uint32(mode), first, count)
}

func (c *Context) DrawElements(mode gl.Enum, count int, ty gl.Enum, byteOffset int) {
	c.record("drawElements(0x%04x, %d, 0x%04x, %d)", uint32(mode), count, uint32(ty), byteOffset)
}

func (c *Context) DrawArraysInstanced(mode gl.Enum, first, count, instances int) {
	c.record("drawArraysInstanced(0x%04x, %d, %d, %d)", uint32(mode), first, count, instances)
}

func (c *Context) DrawElementsInstanced(mode gl.Enum, count int, ty gl.Enum, byteOffset, instances int) {
	c.record("drawElementsInstanced(0x%04x, %d, 0x%04x, %d, %d)",
		uint32(mode), count, uint32(ty), byteOffset, instances)
}

func (c *Context) CreateQuery() gl.Query {
	if c.lost {
		return gl.Query{}
	}
	return gl.Query{V: c.id()}
}

func (c *Context) DeleteQuery(gl.Query) {}

func (c *Context) BeginQuery(target gl.Enum, q gl.Query) {
	c.record("beginQuery(0x%04x, %d)", uint32(target), q.V)
}

func (c *Context) EndQuery(target gl.Enum) { c.record("endQuery(0x%04x)", uint32(target)) }

func (c *Context) QueryResultAvailable(gl.Query) bool { return true }

func (c *Context) QueryResult(gl.Query) uint64 { return 0 }

// declPattern matches GLSL global declarations like
//
//	uniform vec4 color;
//	in highp vec2 position;
//	attribute float alpha[3];
var declPattern = regexp.MustCompile(
	`(?m)^\s*(uniform|attribute|in)\s+(?:(?:highp|mediump|lowp)\s+)?(\w+)\s+(\w+)(?:\s*\[\s*(\d+)\s*\])?\s*;`)

var declTypes = map[string]gl.Enum{
	"float":       gl.Float,
	"vec2":        gl.FloatVec2,
	"vec3":        gl.FloatVec3,
	"vec4":        gl.FloatVec4,
	"int":         gl.Int,
	"ivec2":       gl.IntVec2,
	"ivec3":       gl.IntVec3,
	"ivec4":       gl.IntVec4,
	"bool":        gl.Bool,
	"bvec2":       gl.BoolVec2,
	"bvec3":       gl.BoolVec3,
	"bvec4":       gl.BoolVec4,
	"mat2":        gl.FloatMat2,
	"mat3":        gl.FloatMat3,
	"mat4":        gl.FloatMat4,
	"sampler2D":   gl.Sampler2D,
	"samplerCube": gl.SamplerCube,
}

// scanDecls extracts global declarations with one of the given qualifiers
// from GLSL source. This is how the fake derives active uniform and
// attribute metadata without a real compiler; fragment-shader "in"
// varyings are excluded by only scanning vertex shaders for attributes.
func scanDecls(src string, qualifiers ...string) []declInfo {
	var out []declInfo
	for _, m := range declPattern.FindAllStringSubmatch(src, -1) {
		qual, tyName, name, arr := m[1], m[2], m[3], m[4]
		ok := false
		for _, q := range qualifiers {
			if q == qual {
				ok = true
				break
			}
		}
		if !ok {
			continue
		}
		ty, known := declTypes[tyName]
		if !known {
			continue
		}
		size := 1
		if arr != "" {
			fmt.Sscanf(arr, "%d", &size)
		}
		out = append(out, declInfo{name: name, ty: ty, size: size})
	}
	return out
}

func containsDecl(decls []declInfo, name string) bool {
	for _, d := range decls {
		if d.name == name {
			return true
		}
	}
	return false
}
