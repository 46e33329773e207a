package regl

import (
	"fmt"

	"github.com/plotly/regl-go/gl"
	"github.com/plotly/regl-go/internal/vm"
)

// CommandSpec declares a command: shaders, data bindings, GPU state
// overrides and draw parameters. Every field marked "any" accepts either
// a plain value or a Dynamic descriptor (Prop, Context, This, the Func
// forms); plain values are constants baked into the compiled plan.
//
// A spec with shaders produces a drawable command; a spec without
// shaders is a pure scope (state overrides and context injection for
// nested commands).
type CommandSpec struct {
	// Name labels the command in errors, logs and profiling output.
	Name string

	// Vert and Frag are shader sources: a GLSL string, a WGSL wrapper
	// from WGSL(), or a Dynamic producing a GLSL string.
	Vert any
	Frag any

	// Attributes maps attribute names to bindings: *Buffer,
	// AttributeSpec, inline vertex data (see NewBuffer for accepted
	// forms), or a Dynamic producing one of those.
	Attributes map[string]any

	// Uniforms maps uniform names to values: numbers, [2]float32 through
	// [4]float32, matrix slices, bool, int, *Texture, or Dynamic.
	Uniforms map[string]any

	// Elements is an *Elements index buffer or a Dynamic producing one.
	Elements any

	// VAO supplies pre-baked positional attribute bindings, mutually
	// exclusive with Attributes and Elements.
	VAO *VAO

	// Draw parameters. Primitive accepts names ("triangles", "line
	// strip", ...) or gl enums. Unset parameters fall back to scope
	// values and then to elements-derived defaults.
	Primitive any
	Count     any
	Offset    any
	Instances any

	// Framebuffer selects the render target: *Framebuffer, nil for the
	// drawing buffer, or Dynamic. An explicit target without an explicit
	// Viewport also sets the viewport (and scissor box) to cover it.
	Framebuffer any

	// State overrides. Nil pointers and nil leaf values leave the
	// corresponding registers to the surrounding scope.
	Blend         *BlendSpec
	Depth         *DepthSpec
	Stencil       *StencilSpec
	Cull          *CullSpec
	PolygonOffset *PolygonOffsetSpec
	Sample        *SampleSpec
	Scissor       *ScissorSpec
	Viewport      any // Box or Dynamic producing Box
	ColorMask     any // [4]bool
	Dither        any // bool
	FrontFace     any // "cw" or "ccw"
	LineWidth     any // float

	// Context injects ambient context entries visible to nested commands
	// and to this command's own dynamic values.
	Context map[string]any

	// This is the record that This() references resolve against.
	This any

	// Profile overrides the instance-wide profiling flag.
	Profile any
}

// BlendSpec configures blending.
type BlendSpec struct {
	Enable   any
	Color    any // [4]float32
	Equation any // name, or BlendEquationSpec
	Func     any // BlendFuncSpec
}

// BlendEquationSpec sets separate RGB and alpha blend equations.
type BlendEquationSpec struct {
	RGB   any
	Alpha any
}

// BlendFuncSpec sets blend factors: either the common Src/Dst pair or
// all four channel-separate factors.
type BlendFuncSpec struct {
	Src, Dst                           any
	SrcRGB, DstRGB, SrcAlpha, DstAlpha any
}

// DepthSpec configures the depth test.
type DepthSpec struct {
	Enable any
	Func   any // comparison name
	Range  any // [2]float32
	Mask   any // bool
}

// StencilSpec configures the stencil test.
type StencilSpec struct {
	Enable  any
	Mask    any // uint32
	Func    any // StencilFuncSpec
	Op      any // StencilOpSpec, both faces
	OpFront any
	OpBack  any
}

// StencilFuncSpec is the stencil comparison.
type StencilFuncSpec struct {
	Cmp  any // comparison name
	Ref  any
	Mask any
}

// StencilOpSpec is the fail/zfail/zpass action triple.
type StencilOpSpec struct {
	Fail  any
	ZFail any
	ZPass any
}

// CullSpec configures face culling.
type CullSpec struct {
	Enable any
	Face   any // "front", "back", "front and back"
}

// PolygonOffsetSpec configures depth offset.
type PolygonOffsetSpec struct {
	Enable any
	Factor any
	Units  any
}

// SampleSpec configures multisample coverage.
type SampleSpec struct {
	Alpha    any // alpha-to-coverage
	Enable   any
	Coverage any // SampleCoverageSpec
}

// SampleCoverageSpec is the coverage value/invert pair.
type SampleCoverageSpec struct {
	Value  any
	Invert any
}

// ScissorSpec configures the scissor test.
type ScissorSpec struct {
	Enable any
	Box    any // Box
}

// Box is a viewport or scissor rectangle. Nil Width/Height extend to the
// edge of the current render target; nil X/Y default to zero.
type Box struct {
	X, Y          any
	Width, Height any
}

// AttributeSpec is the full form of an attribute binding.
type AttributeSpec struct {
	Buffer     *Buffer
	Size       int
	Type       gl.Enum // zero means Float
	Normalized bool
	Stride     int
	Offset     int
	Divisor    int

	// Constant disables the array and feeds every vertex the given
	// components (1 to 4 of them).
	Constant []float32
}

// Enum name tables. Values pass through unchanged when given as gl
// enums, provided they belong to the table.

var compareFuncs = map[string]gl.Enum{
	"never": gl.Never, "less": gl.Less, "<": gl.Less,
	"equal": gl.Equal, "=": gl.Equal, "==": gl.Equal, "===": gl.Equal,
	"lequal": gl.Lequal, "<=": gl.Lequal,
	"greater": gl.Greater, ">": gl.Greater,
	"notequal": gl.Notequal, "!=": gl.Notequal, "!==": gl.Notequal,
	"gequal": gl.Gequal, ">=": gl.Gequal,
	"always": gl.Always,
}

var blendFactors = map[string]gl.Enum{
	"0": gl.Zero, "zero": gl.Zero,
	"1": gl.One, "one": gl.One,
	"src color": gl.SrcColor, "one minus src color": gl.OneMinusSrcColor,
	"src alpha": gl.SrcAlpha, "one minus src alpha": gl.OneMinusSrcAlpha,
	"dst color": gl.DstColor, "one minus dst color": gl.OneMinusDstColor,
	"dst alpha": gl.DstAlpha, "one minus dst alpha": gl.OneMinusDstAlpha,
	"constant color": gl.ConstantColor, "one minus constant color": gl.OneMinusConstantColor,
	"constant alpha": gl.ConstantAlpha, "one minus constant alpha": gl.OneMinusConstantAlpha,
	"src alpha saturate": gl.SrcAlphaSaturate,
}

var blendEquations = map[string]gl.Enum{
	"add":              gl.FuncAdd,
	"subtract":         gl.FuncSubtract,
	"reverse subtract": gl.FuncReverseSubtract,
	"min":              gl.MinEquation,
	"max":              gl.MaxEquation,
}

// stencilOps carries the documented "0"/"zero" aliasing; no other enum
// accepts multiple spellings of the same op.
var stencilOps = map[string]gl.Enum{
	"0": gl.ZeroOp, "zero": gl.ZeroOp,
	"keep": gl.Keep, "replace": gl.Replace,
	"increment": gl.Incr, "decrement": gl.Decr,
	"increment wrap": gl.IncrWrap, "decrement wrap": gl.DecrWrap,
	"invert": gl.Invert,
}

var cullFaces = map[string]gl.Enum{
	"front": gl.Front, "back": gl.Back, "front and back": gl.FrontAndBack,
}

var frontFaceDirs = map[string]gl.Enum{
	"cw": gl.CW, "ccw": gl.CCW,
}

var primitives = map[string]gl.Enum{
	"points": gl.Points, "lines": gl.Lines,
	"line strip": gl.LineStrip, "line loop": gl.LineLoop,
	"triangles": gl.Triangles, "triangle strip": gl.TriangleStrip,
	"triangle fan": gl.TriangleFan,
}

func lookupEnum(table map[string]gl.Enum, v any) (gl.Enum, error) {
	switch t := v.(type) {
	case string:
		if e, ok := table[t]; ok {
			return e, nil
		}
		return 0, fmt.Errorf("unknown name %q", t)
	case gl.Enum:
		for _, e := range table {
			if e == t {
				return t, nil
			}
		}
		return 0, fmt.Errorf("enum 0x%04x not valid here", uint32(t))
	default:
		return 0, fmt.Errorf("want name or gl enum, got %T", v)
	}
}

// Loose numeric conversions. Command values come from user data of
// assorted widths.

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint:
		return float64(t), true
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func toBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func toVec(v any, n int) ([4]float64, bool) {
	var out [4]float64
	switch t := v.(type) {
	case [2]float32:
		if n != 2 {
			return out, false
		}
		out[0], out[1] = float64(t[0]), float64(t[1])
	case [3]float32:
		if n != 3 {
			return out, false
		}
		out[0], out[1], out[2] = float64(t[0]), float64(t[1]), float64(t[2])
	case [4]float32:
		if n != 4 {
			return out, false
		}
		for i, x := range t {
			out[i] = float64(x)
		}
	case [2]float64:
		if n != 2 {
			return out, false
		}
		out[0], out[1] = t[0], t[1]
	case [4]float64:
		if n != 4 {
			return out, false
		}
		out = t
	case []float32:
		if len(t) != n {
			return out, false
		}
		for i, x := range t {
			out[i] = float64(x)
		}
	case []float64:
		if len(t) != n {
			return out, false
		}
		copy(out[:], t)
	default:
		return out, false
	}
	return out, true
}

// conv converts a resolved field value into mirror lanes. The frame is
// nil for construction-time conversion of static values.
type conv func(v any, f *vm.Frame) (stateVal, error)

func convBool(v any, _ *vm.Frame) (stateVal, error) {
	b, ok := toBool(v)
	if !ok {
		return stateVal{}, fmt.Errorf("want bool, got %T", v)
	}
	return svBool(b), nil
}

func convFloat1(v any, _ *vm.Frame) (stateVal, error) {
	x, ok := toFloat(v)
	if !ok {
		return stateVal{}, fmt.Errorf("want number, got %T", v)
	}
	return sv1(x), nil
}

func convVec(n int) conv {
	return func(v any, _ *vm.Frame) (stateVal, error) {
		vec, ok := toVec(v, n)
		if !ok {
			return stateVal{}, fmt.Errorf("want %d-vector, got %T", n, v)
		}
		return stateVal{n: uint8(n), v: vec}, nil
	}
}

func convEnum1(table map[string]gl.Enum) conv {
	return func(v any, _ *vm.Frame) (stateVal, error) {
		e, err := lookupEnum(table, v)
		if err != nil {
			return stateVal{}, err
		}
		return sv1(float64(e)), nil
	}
}

func convColorMask(v any, _ *vm.Frame) (stateVal, error) {
	m, ok := v.([4]bool)
	if !ok {
		return stateVal{}, fmt.Errorf("want [4]bool, got %T", v)
	}
	var out stateVal
	out.n = 4
	for i, b := range m {
		if b {
			out.v[i] = 1
		}
	}
	return out, nil
}

func convUint(v any, _ *vm.Frame) (stateVal, error) {
	f, ok := toFloat(v)
	if !ok || f < 0 {
		return stateVal{}, fmt.Errorf("want unsigned integer, got %v (%T)", v, v)
	}
	return sv1(f), nil
}

// stateDecl binds one tracked register to its declaration. Static values
// are converted once at construction.
type stateDecl struct {
	field  stateField
	decl   declaration
	conv   conv
	static bool
	val    stateVal
}

// resolve produces the lane values for one invocation.
func (d *stateDecl) resolve(f *vm.Frame) (stateVal, error) {
	if d.static {
		return d.val, nil
	}
	return d.conv(d.decl.value(f), f)
}

// enumDecl is a draw-parameter enum (primitive) declaration.
type enumDecl struct {
	decl   declaration
	table  map[string]gl.Enum
	static bool
	val    gl.Enum
}

func (d *enumDecl) resolve(f *vm.Frame) (gl.Enum, error) {
	if d.static {
		return d.val, nil
	}
	return lookupEnum(d.table, d.decl.value(f))
}

// intDecl is a draw-parameter count/offset/instances declaration.
type intDecl struct {
	decl   declaration
	static bool
	val    int
}

func (d *intDecl) resolve(f *vm.Frame) (int, error) {
	if d.static {
		return d.val, nil
	}
	n, ok := toInt(d.decl.value(f))
	if !ok {
		return 0, fmt.Errorf("want integer, got %T", d.decl.value(f))
	}
	return n, nil
}

// attrDecl is one named attribute of the spec.
type attrDecl struct {
	name string
	id   int
	decl declaration

	// static resolution, nil for dynamic attributes
	static *resolvedAttr
}

// resolvedAttr is an attribute binding ready to apply: either a constant
// vertex value or a buffer pointer, possibly a stream buffer leased for
// the duration of one invocation.
type resolvedAttr struct {
	constant   bool
	x, y, z, w float32

	buffer     *Buffer
	size       int // 0: take component count from the shader
	ty         gl.Enum
	normalized bool
	stride     int
	offset     int
	divisor    int
	stream     bool
}

// uniformDecl is one named uniform of the spec.
type uniformDecl struct {
	name string
	id   int
	decl declaration
}

// contextDecl is one injected ambient-context entry.
type contextDecl struct {
	name string
	decl declaration
}

// parsedCommand is the compiled argument tree of one CommandSpec.
type parsedCommand struct {
	name string

	state [numStateFields]*stateDecl
	owned fieldMask

	hasFramebuffer bool
	framebuffer    declaration
	staticFBO      *Framebuffer

	hasShaders    bool
	dynamicShader bool
	vertDecl      declaration
	fragDecl      declaration
	prog          *program // static shader pair only

	attrs    []attrDecl
	uniforms []uniformDecl
	contexts []contextDecl
	thisRec  any

	vao *VAO

	hasElements bool
	elements    declaration
	staticElems *Elements

	hasPrimitive bool
	primitive    enumDecl
	hasCount     bool
	count        intDecl
	hasOffset    bool
	offset       intDecl
	hasInstances bool
	instances    intDecl

	hasProfile bool
	profile    declaration

	thisDep, contextDep, propDep bool
}

// parser accumulates a parsedCommand, failing fast on the first
// structural error.
type parser struct {
	r    *Regl
	name string
	cmd  *parsedCommand
}

func (p *parser) merge(d declaration) {
	p.cmd.thisDep = p.cmd.thisDep || d.thisDep
	p.cmd.contextDep = p.cmd.contextDep || d.contextDep
	p.cmd.propDep = p.cmd.propDep || d.propDep
}

// setField registers an owned register with converter c. Nil values mean
// "not owned" and are skipped by the caller.
func (p *parser) setField(field stateField, specField string, v any, c conv) error {
	d := classify(v)
	p.merge(d)
	sd := &stateDecl{field: field, decl: d, conv: c}
	if d.isStatic() {
		sv, err := c(d.value(nil), nil)
		if err != nil {
			return cmdWrap(p.name, specField, err)
		}
		sd.static, sd.val = true, sv
	}
	p.cmd.state[field] = sd
	p.cmd.owned.add(field)
	return nil
}

// composite builds a declaration from leaf values, OR-ing their flags.
// fn receives the resolved leaves in order. forceDynamic keeps the
// result runtime-evaluated even when every leaf is constant (used when
// fn consults the frame, as viewport defaults do).
func composite(leaves []any, forceDynamic bool, fn func(vals []any, f *vm.Frame) any) declaration {
	decls := make([]declaration, len(leaves))
	out := declaration{}
	for i, leaf := range leaves {
		decls[i] = classify(leaf)
		out.thisDep = out.thisDep || decls[i].thisDep
		out.contextDep = out.contextDep || decls[i].contextDep
		out.propDep = out.propDep || decls[i].propDep
	}
	dynamic := forceDynamic || out.thisDep || out.contextDep || out.propDep
	out.value = func(f *vm.Frame) any {
		vals := make([]any, len(decls))
		for i := range decls {
			vals[i] = decls[i].value(f)
		}
		return fn(vals, f)
	}
	if !dynamic {
		v := out.value(nil)
		out.value = func(*vm.Frame) any { return v }
	}
	return out
}

// parseCommand compiles a specification into the argument tree.
func (r *Regl) parseCommand(spec *CommandSpec) (*parsedCommand, error) {
	name := spec.Name
	if name == "" {
		name = "<unnamed>"
	}
	p := &parser{r: r, name: name, cmd: &parsedCommand{name: name, thisRec: spec.This}}

	if err := p.parseState(spec); err != nil {
		return nil, err
	}
	if err := p.parseFramebuffer(spec); err != nil {
		return nil, err
	}
	if err := p.parseViewportScissor(spec); err != nil {
		return nil, err
	}
	if err := p.parseShaders(spec); err != nil {
		return nil, err
	}
	if err := p.parseData(spec); err != nil {
		return nil, err
	}
	if err := p.parseDrawParams(spec); err != nil {
		return nil, err
	}
	if err := p.parseContext(spec); err != nil {
		return nil, err
	}
	if spec.Profile != nil {
		d := classify(spec.Profile)
		p.merge(d)
		p.cmd.hasProfile = true
		p.cmd.profile = d
	}
	return p.cmd, nil
}

func (p *parser) parseState(spec *CommandSpec) error {
	type leaf struct {
		field stateField
		spec  string
		v     any
		c     conv
	}
	var leaves []leaf
	add := func(field stateField, specField string, v any, c conv) {
		if v != nil {
			leaves = append(leaves, leaf{field, specField, v, c})
		}
	}

	add(sfDitherEnable, "dither", spec.Dither, convBool)
	add(sfColorMask, "colorMask", spec.ColorMask, convColorMask)
	add(sfFrontFace, "frontFace", spec.FrontFace, convEnum1(frontFaceDirs))
	add(sfLineWidth, "lineWidth", spec.LineWidth, convFloat1)

	if b := spec.Blend; b != nil {
		add(sfBlendEnable, "blend.enable", b.Enable, convBool)
		add(sfBlendColor, "blend.color", b.Color, convVec(4))
		if b.Equation != nil {
			if err := p.parseBlendEquation(b.Equation); err != nil {
				return err
			}
		}
		if b.Func != nil {
			if err := p.parseBlendFunc(b.Func); err != nil {
				return err
			}
		}
	}
	if d := spec.Depth; d != nil {
		add(sfDepthEnable, "depth.enable", d.Enable, convBool)
		add(sfDepthFunc, "depth.func", d.Func, convEnum1(compareFuncs))
		add(sfDepthRange, "depth.range", d.Range, convVec(2))
		add(sfDepthMask, "depth.mask", d.Mask, convBool)
	}
	if c := spec.Cull; c != nil {
		add(sfCullEnable, "cull.enable", c.Enable, convBool)
		add(sfCullFace, "cull.face", c.Face, convEnum1(cullFaces))
	}
	if po := spec.PolygonOffset; po != nil {
		add(sfPolygonOffsetEnable, "polygonOffset.enable", po.Enable, convBool)
		if po.Factor != nil || po.Units != nil {
			d := composite([]any{orZero(po.Factor), orZero(po.Units)}, false,
				func(vals []any, _ *vm.Frame) any { return vals })
			p.merge(d)
			p.cmd.state[sfPolygonOffsetOffset] = &stateDecl{
				field: sfPolygonOffsetOffset, decl: d, conv: convFloatPair("polygonOffset"),
			}
			p.cmd.owned.add(sfPolygonOffsetOffset)
			if err := p.freezeStatic(sfPolygonOffsetOffset, "polygonOffset.offset", d); err != nil {
				return err
			}
		}
	}
	if s := spec.Sample; s != nil {
		add(sfSampleAlpha, "sample.alpha", s.Alpha, convBool)
		add(sfSampleEnable, "sample.enable", s.Enable, convBool)
		if s.Coverage != nil {
			if err := p.parseSampleCoverage(s.Coverage); err != nil {
				return err
			}
		}
	}
	if st := spec.Stencil; st != nil {
		add(sfStencilEnable, "stencil.enable", st.Enable, convBool)
		add(sfStencilMask, "stencil.mask", st.Mask, convUint)
		if st.Func != nil {
			if err := p.parseStencilFunc(st.Func); err != nil {
				return err
			}
		}
		opFront, opBack := st.OpFront, st.OpBack
		if st.Op != nil {
			if opFront != nil || opBack != nil {
				return cmdErr(p.name, "stencil.op", "op excludes opFront/opBack")
			}
			opFront, opBack = st.Op, st.Op
		}
		if opFront != nil {
			if err := p.parseStencilOp(sfStencilOpFront, "stencil.opFront", opFront); err != nil {
				return err
			}
		}
		if opBack != nil {
			if err := p.parseStencilOp(sfStencilOpBack, "stencil.opBack", opBack); err != nil {
				return err
			}
		}
	}
	if sc := spec.Scissor; sc != nil {
		add(sfScissorEnable, "scissor.enable", sc.Enable, convBool)
	}

	for _, l := range leaves {
		if err := p.setField(l.field, l.spec, l.v, l.c); err != nil {
			return err
		}
	}
	return nil
}

func orZero(v any) any {
	if v == nil {
		return float64(0)
	}
	return v
}

// freezeStatic converts an already-registered field to its static value
// when its declaration has no runtime dependencies.
func (p *parser) freezeStatic(field stateField, specField string, d declaration) error {
	sd := p.cmd.state[field]
	if !d.isStatic() {
		return nil
	}
	sv, err := sd.conv(d.value(nil), nil)
	if err != nil {
		return cmdWrap(p.name, specField, err)
	}
	sd.static, sd.val = true, sv
	return nil
}

func convFloatPair(what string) conv {
	return func(v any, _ *vm.Frame) (stateVal, error) {
		vals := v.([]any)
		a, ok1 := toFloat(vals[0])
		b, ok2 := toFloat(vals[1])
		if !ok1 || !ok2 {
			return stateVal{}, fmt.Errorf("%s: want numbers", what)
		}
		return sv2(a, b), nil
	}
}

func (p *parser) parseBlendEquation(v any) error {
	var leaves []any
	switch t := v.(type) {
	case BlendEquationSpec:
		leaves = []any{t.RGB, t.Alpha}
	default:
		leaves = []any{v, v}
	}
	d := composite(leaves, false, func(vals []any, _ *vm.Frame) any { return vals })
	p.merge(d)
	c := func(v any, _ *vm.Frame) (stateVal, error) {
		vals := v.([]any)
		rgb, err := lookupEnum(blendEquations, vals[0])
		if err != nil {
			return stateVal{}, err
		}
		alpha, err := lookupEnum(blendEquations, vals[1])
		if err != nil {
			return stateVal{}, err
		}
		return sv2(float64(rgb), float64(alpha)), nil
	}
	p.cmd.state[sfBlendEquation] = &stateDecl{field: sfBlendEquation, decl: d, conv: c}
	p.cmd.owned.add(sfBlendEquation)
	return p.freezeStatic(sfBlendEquation, "blend.equation", d)
}

func (p *parser) parseBlendFunc(v any) error {
	spec, ok := v.(BlendFuncSpec)
	if !ok {
		return cmdErr(p.name, "blend.func", "want BlendFuncSpec, got %T", v)
	}
	srcRGB, srcAlpha := spec.SrcRGB, spec.SrcAlpha
	dstRGB, dstAlpha := spec.DstRGB, spec.DstAlpha
	if spec.Src != nil || spec.Dst != nil {
		if srcRGB != nil || srcAlpha != nil || dstRGB != nil || dstAlpha != nil {
			return cmdErr(p.name, "blend.func", "src/dst exclude the separate factors")
		}
		srcRGB, srcAlpha = spec.Src, spec.Src
		dstRGB, dstAlpha = spec.Dst, spec.Dst
	}
	if srcRGB == nil || srcAlpha == nil || dstRGB == nil || dstAlpha == nil {
		return cmdErr(p.name, "blend.func", "missing factor")
	}
	d := composite([]any{srcRGB, dstRGB, srcAlpha, dstAlpha}, false,
		func(vals []any, _ *vm.Frame) any { return vals })
	p.merge(d)
	c := func(v any, _ *vm.Frame) (stateVal, error) {
		vals := v.([]any)
		var out stateVal
		out.n = 4
		for i, raw := range vals {
			e, err := lookupEnum(blendFactors, raw)
			if err != nil {
				return stateVal{}, err
			}
			out.v[i] = float64(e)
		}
		return out, nil
	}
	p.cmd.state[sfBlendFunc] = &stateDecl{field: sfBlendFunc, decl: d, conv: c}
	p.cmd.owned.add(sfBlendFunc)
	return p.freezeStatic(sfBlendFunc, "blend.func", d)
}

func (p *parser) parseSampleCoverage(v any) error {
	spec, ok := v.(SampleCoverageSpec)
	if !ok {
		return cmdErr(p.name, "sample.coverage", "want SampleCoverageSpec, got %T", v)
	}
	d := composite([]any{orZero(spec.Value), orFalse(spec.Invert)}, false,
		func(vals []any, _ *vm.Frame) any { return vals })
	p.merge(d)
	c := func(v any, _ *vm.Frame) (stateVal, error) {
		vals := v.([]any)
		val, ok := toFloat(vals[0])
		if !ok {
			return stateVal{}, fmt.Errorf("coverage value: want number")
		}
		inv, ok := toBool(vals[1])
		if !ok {
			return stateVal{}, fmt.Errorf("coverage invert: want bool")
		}
		iv := 0.0
		if inv {
			iv = 1
		}
		return sv2(val, iv), nil
	}
	p.cmd.state[sfSampleCoverage] = &stateDecl{field: sfSampleCoverage, decl: d, conv: c}
	p.cmd.owned.add(sfSampleCoverage)
	return p.freezeStatic(sfSampleCoverage, "sample.coverage", d)
}

func (p *parser) parseStencilFunc(v any) error {
	spec, ok := v.(StencilFuncSpec)
	if !ok {
		return cmdErr(p.name, "stencil.func", "want StencilFuncSpec, got %T", v)
	}
	cmp := spec.Cmp
	if cmp == nil {
		cmp = "always"
	}
	d := composite([]any{cmp, orZero(spec.Ref), orAllBits(spec.Mask)}, false,
		func(vals []any, _ *vm.Frame) any { return vals })
	p.merge(d)
	c := func(v any, _ *vm.Frame) (stateVal, error) {
		vals := v.([]any)
		fn, err := lookupEnum(compareFuncs, vals[0])
		if err != nil {
			return stateVal{}, err
		}
		ref, ok := toFloat(vals[1])
		if !ok {
			return stateVal{}, fmt.Errorf("ref: want number")
		}
		mask, ok := toFloat(vals[2])
		if !ok {
			return stateVal{}, fmt.Errorf("mask: want number")
		}
		return sv3(float64(fn), ref, mask), nil
	}
	p.cmd.state[sfStencilFunc] = &stateDecl{field: sfStencilFunc, decl: d, conv: c}
	p.cmd.owned.add(sfStencilFunc)
	return p.freezeStatic(sfStencilFunc, "stencil.func", d)
}

func (p *parser) parseStencilOp(field stateField, specField string, v any) error {
	spec, ok := v.(StencilOpSpec)
	if !ok {
		return cmdErr(p.name, specField, "want StencilOpSpec, got %T", v)
	}
	d := composite([]any{orKeep(spec.Fail), orKeep(spec.ZFail), orKeep(spec.ZPass)}, false,
		func(vals []any, _ *vm.Frame) any { return vals })
	p.merge(d)
	c := func(v any, _ *vm.Frame) (stateVal, error) {
		vals := v.([]any)
		var out stateVal
		out.n = 3
		for i, raw := range vals {
			e, err := lookupEnum(stencilOps, raw)
			if err != nil {
				return stateVal{}, err
			}
			out.v[i] = float64(e)
		}
		return out, nil
	}
	p.cmd.state[field] = &stateDecl{field: field, decl: d, conv: c}
	p.cmd.owned.add(field)
	return p.freezeStatic(field, specField, d)
}

func orFalse(v any) any {
	if v == nil {
		return false
	}
	return v
}

func orAllBits(v any) any {
	if v == nil {
		return float64(^uint32(0))
	}
	return v
}

func orKeep(v any) any {
	if v == nil {
		return "keep"
	}
	return v
}

func (p *parser) parseFramebuffer(spec *CommandSpec) error {
	if spec.Framebuffer == nil {
		return nil
	}
	p.cmd.hasFramebuffer = true
	d := classify(spec.Framebuffer)
	p.merge(d)
	p.cmd.framebuffer = d
	if d.isStatic() {
		v := d.value(nil)
		if v != nil {
			fbo, ok := v.(*Framebuffer)
			if !ok {
				return cmdErr(p.name, "framebuffer", "want *Framebuffer or nil, got %T", v)
			}
			p.cmd.staticFBO = fbo
		}
	}
	return nil
}

// parseViewportScissor registers the viewport and scissor boxes. Omitted
// box extents default to the render target size, which makes the field
// context-dependent even when every given leaf is constant.
func (p *parser) parseViewportScissor(spec *CommandSpec) error {
	parseBox := func(field stateField, specField string, v any) error {
		var box Box
		switch t := v.(type) {
		case Box:
			box = t
		case Dynamic:
			d := classify(v)
			p.merge(d)
			c := func(v any, f *vm.Frame) (stateVal, error) {
				b, ok := v.(Box)
				if !ok {
					return stateVal{}, fmt.Errorf("want Box, got %T", v)
				}
				return boxVal(b, f)
			}
			p.cmd.state[field] = &stateDecl{field: field, decl: d, conv: c}
			p.cmd.owned.add(field)
			return nil
		default:
			return cmdErr(p.name, specField, "want Box or Dynamic, got %T", v)
		}
		defaulted := box.Width == nil || box.Height == nil
		d := composite([]any{orZero(box.X), orZero(box.Y), box.Width, box.Height}, defaulted,
			func(vals []any, _ *vm.Frame) any {
				return Box{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
			})
		if defaulted {
			d.contextDep = true
		}
		p.merge(d)
		c := func(v any, f *vm.Frame) (stateVal, error) {
			return boxVal(v.(Box), f)
		}
		sd := &stateDecl{field: field, decl: d, conv: c}
		p.cmd.state[field] = sd
		p.cmd.owned.add(field)
		if d.isStatic() {
			sv, err := c(d.value(nil), nil)
			if err != nil {
				return cmdWrap(p.name, specField, err)
			}
			sd.static, sd.val = true, sv
		}
		return nil
	}

	if spec.Viewport != nil {
		if err := parseBox(sfViewport, "viewport", spec.Viewport); err != nil {
			return err
		}
	}
	if spec.Scissor != nil && spec.Scissor.Box != nil {
		if err := parseBox(sfScissorBox, "scissor.box", spec.Scissor.Box); err != nil {
			return err
		}
	}
	return nil
}

// boxVal resolves a box against the current render target size.
func boxVal(b Box, f *vm.Frame) (stateVal, error) {
	x, y := 0.0, 0.0
	if b.X != nil {
		v, ok := toFloat(b.X)
		if !ok {
			return stateVal{}, fmt.Errorf("box x: want number, got %T", b.X)
		}
		x = v
	}
	if b.Y != nil {
		v, ok := toFloat(b.Y)
		if !ok {
			return stateVal{}, fmt.Errorf("box y: want number, got %T", b.Y)
		}
		y = v
	}
	fbW, fbH := 0.0, 0.0
	if f != nil {
		env := f.Context.(*Env)
		fbW, fbH = float64(env.FramebufferWidth), float64(env.FramebufferHeight)
	}
	w, h := fbW-x, fbH-y
	if b.Width != nil {
		v, ok := toFloat(b.Width)
		if !ok {
			return stateVal{}, fmt.Errorf("box width: want number, got %T", b.Width)
		}
		w = v
	}
	if b.Height != nil {
		v, ok := toFloat(b.Height)
		if !ok {
			return stateVal{}, fmt.Errorf("box height: want number, got %T", b.Height)
		}
		h = v
	}
	if w < 0 || h < 0 {
		return stateVal{}, fmt.Errorf("box extent %gx%g negative", w, h)
	}
	return sv4(x, y, w, h), nil
}

func (p *parser) parseShaders(spec *CommandSpec) error {
	if spec.Vert == nil && spec.Frag == nil {
		return nil
	}
	if spec.Vert == nil || spec.Frag == nil {
		return cmdErr(p.name, "vert", "vert and frag must be given together")
	}
	p.cmd.hasShaders = true
	vd, fd := classify(spec.Vert), classify(spec.Frag)
	p.merge(vd)
	p.merge(fd)
	p.cmd.vertDecl, p.cmd.fragDecl = vd, fd
	if vd.isStatic() && fd.isStatic() {
		vertSrc, err := sourceString(vd.value(nil))
		if err != nil {
			return cmdWrap(p.name, "vert", err)
		}
		fragSrc, err := sourceString(fd.value(nil))
		if err != nil {
			return cmdWrap(p.name, "frag", err)
		}
		prog, err := p.r.shaders.get(vertSrc, fragSrc)
		if err != nil {
			return cmdWrap(p.name, "vert", err)
		}
		p.cmd.prog = prog
		return nil
	}
	p.cmd.dynamicShader = true
	return nil
}

func (p *parser) parseData(spec *CommandSpec) error {
	if spec.VAO != nil && (len(spec.Attributes) > 0 || spec.Elements != nil) {
		return cmdErr(p.name, "vao", "vao excludes attributes and elements")
	}
	p.cmd.vao = spec.VAO

	for name, v := range spec.Attributes {
		if v == nil {
			return cmdErr(p.name, "attributes."+name, "nil binding")
		}
		d := classify(v)
		p.merge(d)
		a := attrDecl{name: name, id: p.r.strings.id(name), decl: d}
		if d.isStatic() {
			res, err := p.r.resolveAttribute(d.value(nil), true)
			if err != nil {
				return cmdWrap(p.name, "attributes."+name, err)
			}
			a.static = res
		}
		p.cmd.attrs = append(p.cmd.attrs, a)
	}

	for name, v := range spec.Uniforms {
		if v == nil {
			return cmdErr(p.name, "uniforms."+name, "nil value")
		}
		d := classify(v)
		p.merge(d)
		p.cmd.uniforms = append(p.cmd.uniforms, uniformDecl{
			name: name, id: p.r.strings.id(name), decl: d,
		})
	}

	if p.cmd.prog != nil {
		for _, a := range p.cmd.attrs {
			if p.cmd.prog.attribute(a.id) == nil {
				Logger().Debug("regl: attribute not active in program",
					"command", p.name, "attribute", a.name)
			}
		}
		for _, u := range p.cmd.uniforms {
			info := p.cmd.prog.uniform(u.id)
			if info == nil {
				Logger().Debug("regl: uniform not active in program",
					"command", p.name, "uniform", u.name)
				continue
			}
			if u.decl.isStatic() {
				if err := checkUniform(info, u.decl.value(nil)); err != nil {
					return cmdWrap(p.name, "uniforms."+u.name, err)
				}
			}
		}
	}
	return nil
}

// resolveAttribute turns a binding value into a resolvedAttr. persist
// controls how inline data is uploaded: a long-lived buffer at
// construction, a pooled stream buffer per invocation.
func (r *Regl) resolveAttribute(v any, persist bool) (*resolvedAttr, error) {
	switch t := v.(type) {
	case *Buffer:
		return &resolvedAttr{buffer: t, ty: gl.Float}, nil
	case *resolvedAttr:
		return t, nil
	case AttributeSpec:
		if t.Constant != nil {
			if len(t.Constant) == 0 || len(t.Constant) > 4 {
				return nil, fmt.Errorf("constant wants 1 to 4 components, got %d", len(t.Constant))
			}
			res := &resolvedAttr{constant: true, w: 1}
			c := t.Constant
			res.x = c[0]
			if len(c) > 1 {
				res.y = c[1]
			}
			if len(c) > 2 {
				res.z = c[2]
			}
			if len(c) > 3 {
				res.w = c[3]
			}
			return res, nil
		}
		if t.Buffer == nil {
			return nil, fmt.Errorf("attribute spec has neither buffer nor constant")
		}
		if t.Size < 0 || t.Size > 4 {
			return nil, fmt.Errorf("size %d out of range", t.Size)
		}
		if t.Stride < 0 || t.Stride > 255 {
			return nil, fmt.Errorf("stride %d out of range", t.Stride)
		}
		if t.Offset < 0 {
			return nil, fmt.Errorf("negative offset %d", t.Offset)
		}
		if t.Divisor != 0 && !r.gl.Caps().Instancing {
			return nil, fmt.Errorf("divisor: %w", ErrNotAvailable)
		}
		ty := t.Type
		if ty == 0 {
			ty = gl.Float
		}
		return &resolvedAttr{
			buffer:     t.Buffer,
			size:       t.Size,
			ty:         ty,
			normalized: t.Normalized,
			stride:     t.Stride,
			offset:     t.Offset,
			divisor:    t.Divisor,
		}, nil
	default:
		bytes, size, err := packVertexData(v)
		if err != nil {
			return nil, err
		}
		res := &resolvedAttr{size: size, ty: gl.Float}
		if persist {
			res.buffer = r.buffers.create(gl.ArrayBuffer, bytes, gl.StaticDraw)
		} else {
			res.buffer = r.buffers.createStream(bytes)
			res.stream = true
		}
		return res, nil
	}
}

func (p *parser) parseDrawParams(spec *CommandSpec) error {
	if spec.Elements != nil {
		d := classify(spec.Elements)
		p.merge(d)
		p.cmd.hasElements = true
		p.cmd.elements = d
		if d.isStatic() {
			e, ok := d.value(nil).(*Elements)
			if !ok {
				return cmdErr(p.name, "elements", "want *Elements, got %T", d.value(nil))
			}
			p.cmd.staticElems = e
		}
	}
	if spec.Primitive != nil {
		d := classify(spec.Primitive)
		p.merge(d)
		ed := enumDecl{decl: d, table: primitives}
		if d.isStatic() {
			e, err := lookupEnum(primitives, d.value(nil))
			if err != nil {
				return cmdWrap(p.name, "primitive", err)
			}
			ed.static, ed.val = true, e
		}
		p.cmd.hasPrimitive = true
		p.cmd.primitive = ed
	}
	parseInt := func(v any, specField string, min int) (intDecl, error) {
		d := classify(v)
		p.merge(d)
		id := intDecl{decl: d}
		if d.isStatic() {
			n, ok := toInt(d.value(nil))
			if !ok {
				return id, cmdErr(p.name, specField, "want integer, got %T", d.value(nil))
			}
			if n < min {
				return id, cmdErr(p.name, specField, "%d below minimum %d", n, min)
			}
			id.static, id.val = true, n
		}
		return id, nil
	}
	var err error
	if spec.Count != nil {
		if p.cmd.count, err = parseInt(spec.Count, "count", 0); err != nil {
			return err
		}
		p.cmd.hasCount = true
	}
	if spec.Offset != nil {
		if p.cmd.offset, err = parseInt(spec.Offset, "offset", 0); err != nil {
			return err
		}
		p.cmd.hasOffset = true
	}
	if spec.Instances != nil {
		if !p.r.gl.Caps().Instancing {
			return cmdWrap(p.name, "instances", ErrNotAvailable)
		}
		if p.cmd.instances, err = parseInt(spec.Instances, "instances", 0); err != nil {
			return err
		}
		p.cmd.hasInstances = true
	}
	return nil
}

func (p *parser) parseContext(spec *CommandSpec) error {
	for name, v := range spec.Context {
		d := classify(v)
		p.merge(d)
		p.cmd.contexts = append(p.cmd.contexts, contextDecl{name: name, decl: d})
	}
	return nil
}
