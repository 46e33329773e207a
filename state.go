package regl

import (
	"github.com/plotly/regl-go/gl"
)

// stateVal is the mirrored value of one tracked GPU state field: up to
// four numeric lanes. Booleans are lane values 0/1; enums are stored as
// their numeric value.
type stateVal struct {
	n uint8
	v [4]float64
}

func sv1(x float64) stateVal { return stateVal{n: 1, v: [4]float64{x}} }

func sv2(x, y float64) stateVal { return stateVal{n: 2, v: [4]float64{x, y}} }

func sv3(x, y, z float64) stateVal { return stateVal{n: 3, v: [4]float64{x, y, z}} }

func sv4(x, y, z, w float64) stateVal { return stateVal{n: 4, v: [4]float64{x, y, z, w}} }

func svBool(b bool) stateVal {
	if b {
		return sv1(1)
	}
	return sv1(0)
}

func (a stateVal) equal(b stateVal) bool {
	if a.n != b.n {
		return false
	}
	for i := uint8(0); i < a.n; i++ {
		if a.v[i] != b.v[i] {
			return false
		}
	}
	return true
}

func (a stateVal) bool1() bool { return a.v[0] != 0 }

func (a stateVal) enum(i int) gl.Enum { return gl.Enum(a.v[i]) }

// stateField identifies one tracked register of the GPU state machine.
type stateField uint8

const (
	sfDitherEnable stateField = iota
	sfBlendEnable
	sfBlendColor
	sfBlendEquation
	sfBlendFunc
	sfDepthEnable
	sfDepthFunc
	sfDepthRange
	sfDepthMask
	sfColorMask
	sfCullEnable
	sfCullFace
	sfFrontFace
	sfLineWidth
	sfPolygonOffsetEnable
	sfPolygonOffsetOffset
	sfSampleAlpha
	sfSampleEnable
	sfSampleCoverage
	sfStencilEnable
	sfStencilMask
	sfStencilFunc
	sfStencilOpFront
	sfStencilOpBack
	sfScissorEnable
	sfScissorBox
	sfViewport
	numStateFields
)

// fieldMask is a bit set over the tracked fields.
type fieldMask uint32

func (m fieldMask) has(f stateField) bool { return m&(1<<f) != 0 }

func (m *fieldMask) add(f stateField) { *m |= 1 << f }

type fieldDef struct {
	name  string
	cap   gl.Enum // nonzero for Enable/Disable toggles
	def   stateVal
	apply func(g gl.Context, v stateVal)
}

func applyToggle(cap gl.Enum) func(g gl.Context, v stateVal) {
	return func(g gl.Context, v stateVal) {
		if v.bool1() {
			g.Enable(cap)
		} else {
			g.Disable(cap)
		}
	}
}

// fieldDefs registers every tracked field: its toggle capability or
// valued setter and its default, mirrored into both current and next at
// creation. Defaults match a fresh WebGL context.
var fieldDefs = [numStateFields]fieldDef{
	sfDitherEnable: {name: "dither", cap: gl.Dither, def: svBool(true),
		apply: applyToggle(gl.Dither)},
	sfBlendEnable: {name: "blend.enable", cap: gl.Blend, def: svBool(false),
		apply: applyToggle(gl.Blend)},
	sfBlendColor: {name: "blend.color", def: sv4(0, 0, 0, 0),
		apply: func(g gl.Context, v stateVal) {
			g.BlendColor(float32(v.v[0]), float32(v.v[1]), float32(v.v[2]), float32(v.v[3]))
		}},
	sfBlendEquation: {name: "blend.equation", def: sv2(float64(gl.FuncAdd), float64(gl.FuncAdd)),
		apply: func(g gl.Context, v stateVal) {
			g.BlendEquationSeparate(v.enum(0), v.enum(1))
		}},
	sfBlendFunc: {name: "blend.func",
		def: sv4(float64(gl.One), float64(gl.Zero), float64(gl.One), float64(gl.Zero)),
		apply: func(g gl.Context, v stateVal) {
			g.BlendFuncSeparate(v.enum(0), v.enum(1), v.enum(2), v.enum(3))
		}},
	sfDepthEnable: {name: "depth.enable", cap: gl.DepthTest, def: svBool(false),
		apply: applyToggle(gl.DepthTest)},
	sfDepthFunc: {name: "depth.func", def: sv1(float64(gl.Less)),
		apply: func(g gl.Context, v stateVal) { g.DepthFunc(v.enum(0)) }},
	sfDepthRange: {name: "depth.range", def: sv2(0, 1),
		apply: func(g gl.Context, v stateVal) {
			g.DepthRange(float32(v.v[0]), float32(v.v[1]))
		}},
	sfDepthMask: {name: "depth.mask", def: svBool(true),
		apply: func(g gl.Context, v stateVal) { g.DepthMask(v.bool1()) }},
	sfColorMask: {name: "colorMask", def: sv4(1, 1, 1, 1),
		apply: func(g gl.Context, v stateVal) {
			g.ColorMask(v.v[0] != 0, v.v[1] != 0, v.v[2] != 0, v.v[3] != 0)
		}},
	sfCullEnable: {name: "cull.enable", cap: gl.CullFaceCap, def: svBool(false),
		apply: applyToggle(gl.CullFaceCap)},
	sfCullFace: {name: "cull.face", def: sv1(float64(gl.Back)),
		apply: func(g gl.Context, v stateVal) { g.CullFace(v.enum(0)) }},
	sfFrontFace: {name: "frontFace", def: sv1(float64(gl.CCW)),
		apply: func(g gl.Context, v stateVal) { g.FrontFace(v.enum(0)) }},
	sfLineWidth: {name: "lineWidth", def: sv1(1),
		apply: func(g gl.Context, v stateVal) { g.LineWidth(float32(v.v[0])) }},
	sfPolygonOffsetEnable: {name: "polygonOffset.enable", cap: gl.PolygonOffsetFill,
		def: svBool(false), apply: applyToggle(gl.PolygonOffsetFill)},
	sfPolygonOffsetOffset: {name: "polygonOffset.offset", def: sv2(0, 0),
		apply: func(g gl.Context, v stateVal) {
			g.PolygonOffset(float32(v.v[0]), float32(v.v[1]))
		}},
	sfSampleAlpha: {name: "sample.alpha", cap: gl.SampleAlphaToCoverage, def: svBool(false),
		apply: applyToggle(gl.SampleAlphaToCoverage)},
	sfSampleEnable: {name: "sample.enable", cap: gl.SampleCoverageCap, def: svBool(false),
		apply: applyToggle(gl.SampleCoverageCap)},
	sfSampleCoverage: {name: "sample.coverage", def: sv2(1, 0),
		apply: func(g gl.Context, v stateVal) {
			g.SampleCoverage(float32(v.v[0]), v.v[1] != 0)
		}},
	sfStencilEnable: {name: "stencil.enable", cap: gl.StencilTest, def: svBool(false),
		apply: applyToggle(gl.StencilTest)},
	sfStencilMask: {name: "stencil.mask", def: sv1(float64(^uint32(0))),
		apply: func(g gl.Context, v stateVal) { g.StencilMask(uint32(v.v[0])) }},
	sfStencilFunc: {name: "stencil.func",
		def: sv3(float64(gl.Always), 0, float64(^uint32(0))),
		apply: func(g gl.Context, v stateVal) {
			g.StencilFunc(v.enum(0), int32(v.v[1]), uint32(v.v[2]))
		}},
	sfStencilOpFront: {name: "stencil.opFront",
		def: sv3(float64(gl.Keep), float64(gl.Keep), float64(gl.Keep)),
		apply: func(g gl.Context, v stateVal) {
			g.StencilOpSeparate(gl.Front, v.enum(0), v.enum(1), v.enum(2))
		}},
	sfStencilOpBack: {name: "stencil.opBack",
		def: sv3(float64(gl.Keep), float64(gl.Keep), float64(gl.Keep)),
		apply: func(g gl.Context, v stateVal) {
			g.StencilOpSeparate(gl.Back, v.enum(0), v.enum(1), v.enum(2))
		}},
	sfScissorEnable: {name: "scissor.enable", cap: gl.ScissorTest, def: svBool(false),
		apply: applyToggle(gl.ScissorTest)},
	sfScissorBox: {name: "scissor.box", def: sv4(0, 0, 0, 0),
		apply: func(g gl.Context, v stateVal) {
			g.Scissor(int32(v.v[0]), int32(v.v[1]), int32(v.v[2]), int32(v.v[3]))
		}},
	sfViewport: {name: "viewport", def: sv4(0, 0, 0, 0),
		apply: func(g gl.Context, v stateVal) {
			g.Viewport(int32(v.v[0]), int32(v.v[1]), int32(v.v[2]), int32(v.v[3]))
		}},
}

type attrMode uint8

const (
	attrUnused attrMode = iota
	attrPointer
	attrConstant
)

// attrRecord mirrors one vertex attribute slot. Generated code skips the
// GL call entirely when the cached record already matches the request.
type attrRecord struct {
	mode       attrMode
	buffer     gl.Buffer
	srcBuffer  *Buffer // owner of buffer, for handle refresh after restore
	size       int
	ty         gl.Enum
	normalized bool
	stride     int
	offset     int
	divisor    int
	x, y, z, w float32
}

func (a attrRecord) samePointer(b attrRecord) bool {
	return a.mode == attrPointer && b.mode == attrPointer &&
		a.buffer == b.buffer && a.size == b.size && a.ty == b.ty &&
		a.normalized == b.normalized && a.stride == b.stride &&
		a.offset == b.offset
}

// stateMachine holds the current/next mirrors of every tracked register
// plus the object-binding registers (program, framebuffer, vertex array,
// attribute slots). Invariant: current equals the real GPU state
// immediately after any generated procedure returns.
type stateMachine struct {
	g gl.Context

	current [numStateFields]stateVal
	next    [numStateFields]stateVal

	// dirty forces the next poll to re-diff everything instead of
	// trusting deltas hoisted by a running batch. Set by scope entry
	// and exit and by refresh.
	dirty bool

	program     gl.Program
	framebuffer gl.Framebuffer
	vao         gl.VertexArray
	elements    gl.Buffer
	arrayBuffer gl.Buffer

	attrs []attrRecord
}

func newStateMachine(g gl.Context, width, height int) *stateMachine {
	s := &stateMachine{
		g:     g,
		attrs: make([]attrRecord, g.Caps().MaxVertexAttribs),
	}
	for f := stateField(0); f < numStateFields; f++ {
		s.current[f] = fieldDefs[f].def
		s.next[f] = fieldDefs[f].def
	}
	box := sv4(0, 0, float64(width), float64(height))
	s.current[sfViewport], s.next[sfViewport] = box, box
	s.current[sfScissorBox], s.next[sfScissorBox] = box, box
	return s
}

// poll applies next over current for every field not in skip, issuing GL
// calls only where the mirrors differ. Runs at the start of every draw
// and once per external Poll.
func (s *stateMachine) poll(skip fieldMask) {
	for f := stateField(0); f < numStateFields; f++ {
		if skip.has(f) {
			continue
		}
		if !s.next[f].equal(s.current[f]) {
			fieldDefs[f].apply(s.g, s.next[f])
			s.current[f] = s.next[f]
		}
	}
	s.dirty = false
}

// refresh unconditionally reapplies every tracked field and rebinds
// every attribute slot. Used after context restoration, when the real
// registers are back at context defaults.
func (s *stateMachine) refresh() {
	if s.g.Caps().VertexArrays {
		s.vao = gl.VertexArray{}
		s.g.BindVertexArray(gl.VertexArray{})
	}
	for f := stateField(0); f < numStateFields; f++ {
		fieldDefs[f].apply(s.g, s.next[f])
		s.current[f] = s.next[f]
	}
	for slot := range s.attrs {
		rec := s.attrs[slot]
		switch rec.mode {
		case attrPointer:
			s.g.EnableVertexAttribArray(slot)
			s.bindArrayBuffer(rec.buffer)
			s.g.VertexAttribPointer(slot, rec.size, rec.ty, rec.normalized, rec.stride, rec.offset)
			if s.g.Caps().Instancing {
				s.g.VertexAttribDivisor(slot, rec.divisor)
			}
		case attrConstant:
			s.g.DisableVertexAttribArray(slot)
			s.g.VertexAttrib4f(slot, rec.x, rec.y, rec.z, rec.w)
		default:
			s.g.DisableVertexAttribArray(slot)
		}
	}
	s.g.BindFramebuffer(gl.FramebufferTarget, s.framebuffer)
	s.g.UseProgram(s.program)
	s.elements = gl.Buffer{}
	s.dirty = false
}

// applyOwned sets a field that the active command owns: the GL register
// and current are updated, next is left alone so the command's override
// does not leak past the call.
func (s *stateMachine) applyOwned(f stateField, v stateVal) {
	if !v.equal(s.current[f]) {
		fieldDefs[f].apply(s.g, v)
		s.current[f] = v
	}
}

// useProgram binds a program if it is not already bound.
func (s *stateMachine) useProgram(p gl.Program) {
	if p != s.program {
		s.g.UseProgram(p)
		s.program = p
	}
}

// bindFramebuffer binds the draw framebuffer if it differs.
func (s *stateMachine) bindFramebuffer(f gl.Framebuffer) {
	if f != s.framebuffer {
		s.g.BindFramebuffer(gl.FramebufferTarget, f)
		s.framebuffer = f
	}
}

func (s *stateMachine) bindArrayBuffer(b gl.Buffer) {
	if b != s.arrayBuffer {
		s.g.BindBuffer(gl.ArrayBuffer, b)
		s.arrayBuffer = b
	}
}

// bindElements binds the element array buffer if it differs. The binding
// is vertex-array state, so switching vertex arrays invalidates it.
func (s *stateMachine) bindElements(b gl.Buffer) {
	if b != s.elements {
		s.g.BindBuffer(gl.ElementArrayBuffer, b)
		s.elements = b
	}
}

// bindVAO switches the bound vertex array, invalidating the cached
// element binding and attribute records (they belong to the array).
func (s *stateMachine) bindVAO(a gl.VertexArray) {
	if a != s.vao {
		s.g.BindVertexArray(a)
		s.vao = a
		s.elements = gl.Buffer{}
		if a == (gl.VertexArray{}) {
			// Attribute records describe the default array only.
			for i := range s.attrs {
				s.attrs[i] = attrRecord{}
			}
		}
	}
}

// bindAttribute points a slot at a buffer, skipping the GL calls when
// the cached record already matches.
func (s *stateMachine) bindAttribute(slot int, rec attrRecord) {
	debugAssert(slot >= 0 && slot < len(s.attrs), "attribute slot %d out of range", slot)
	debugAssert(rec.mode == attrPointer, "bindAttribute wants a pointer record")
	cached := &s.attrs[slot]
	if cached.samePointer(rec) {
		if s.g.Caps().Instancing && cached.divisor != rec.divisor {
			s.g.VertexAttribDivisor(slot, rec.divisor)
			cached.divisor = rec.divisor
		}
		return
	}
	if cached.mode != attrPointer {
		s.g.EnableVertexAttribArray(slot)
	}
	s.bindArrayBuffer(rec.buffer)
	s.g.VertexAttribPointer(slot, rec.size, rec.ty, rec.normalized, rec.stride, rec.offset)
	if s.g.Caps().Instancing && (cached.mode != attrPointer || cached.divisor != rec.divisor) {
		s.g.VertexAttribDivisor(slot, rec.divisor)
	}
	*cached = rec
	cached.mode = attrPointer
}

// constantAttribute sets a slot to a constant vertex value.
func (s *stateMachine) constantAttribute(slot int, x, y, z, w float32) {
	cached := &s.attrs[slot]
	if cached.mode == attrConstant &&
		cached.x == x && cached.y == y && cached.z == z && cached.w == w {
		return
	}
	if cached.mode != attrConstant {
		s.g.DisableVertexAttribArray(slot)
	}
	*cached = attrRecord{mode: attrConstant, x: x, y: y, z: z, w: w}
	s.g.VertexAttrib4f(slot, x, y, z, w)
}

// onContextLost resets the mirrors of live-object registers; the
// tracked field mirrors keep their next values so refresh can rebuild
// the same state after restore.
func (s *stateMachine) onContextLost() {
	s.program = gl.Program{}
	s.framebuffer = gl.Framebuffer{}
	s.vao = gl.VertexArray{}
	s.elements = gl.Buffer{}
	s.arrayBuffer = gl.Buffer{}
	for f := stateField(0); f < numStateFields; f++ {
		s.current[f] = fieldDefs[f].def
	}
	for i := range s.attrs {
		s.attrs[i] = attrRecord{}
	}
	s.dirty = true
}
