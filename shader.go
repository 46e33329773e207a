package regl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/glsl"

	"github.com/plotly/regl-go/gl"
)

// ShaderSource is a shader stage source in a language other than GLSL.
// Plain strings passed to CommandSpec.Vert/Frag are GLSL; WGSL sources
// are wrapped with WGSL() and cross-compiled through naga at command
// construction time.
type ShaderSource struct {
	wgsl  string
	entry string
}

// WGSL marks a WGSL shader source for a command. entryPoint names the
// @vertex or @fragment function to compile; an empty entryPoint selects
// the first entry point in the module.
func WGSL(source, entryPoint string) ShaderSource {
	return ShaderSource{wgsl: source, entry: entryPoint}
}

// translateWGSL cross-compiles a WGSL stage to GLSL ES 3.00, the dialect
// of the underlying context.
func translateWGSL(src ShaderSource) (string, error) {
	ast, err := naga.Parse(src.wgsl)
	if err != nil {
		return "", fmt.Errorf("wgsl parse: %w", err)
	}
	module, err := naga.LowerWithSource(ast, src.wgsl)
	if err != nil {
		return "", fmt.Errorf("wgsl lower: %w", err)
	}
	code, _, err := glsl.Compile(module, glsl.Options{
		LangVersion: glsl.VersionES300,
		EntryPoint:  src.entry,
	})
	if err != nil {
		return "", fmt.Errorf("glsl generation: %w", err)
	}
	return code, nil
}

// uniformInfo is the active-uniform metadata of a linked program.
type uniformInfo struct {
	name string
	id   int
	loc  gl.UniformLocation
	ty   gl.Enum
	size int
}

// attributeInfo is the active-attribute metadata of a linked program.
type attributeInfo struct {
	name string
	id   int
	loc  int
	ty   gl.Enum
	size int
}

// program is a linked, refcounted shader program keyed by the interned
// ids of its stage sources. Command bundles share programs; destroying
// the last user releases the GL object.
type program struct {
	key        programKey
	handle     gl.Program
	uniforms   []uniformInfo
	attributes []attributeInfo
	refs       int
}

func (p *program) uniform(id int) *uniformInfo {
	for i := range p.uniforms {
		if p.uniforms[i].id == id {
			return &p.uniforms[i]
		}
	}
	return nil
}

func (p *program) attribute(id int) *attributeInfo {
	for i := range p.attributes {
		if p.attributes[i].id == id {
			return &p.attributes[i]
		}
	}
	return nil
}

type programKey struct {
	frag, vert int
}

type stageKey struct {
	ty    gl.Enum
	srcID int
}

// shaderManager compiles stages memoized by interned source id and links
// programs cached by (fragment id, vertex id), with hit/miss statistics
// in the manner of an LRU-less identity cache: program sets are small
// and pinned by refcounts, so nothing is ever evicted behind a command's
// back.
type shaderManager struct {
	r        *Regl
	stages   map[stageKey]gl.Shader
	programs map[programKey]*program

	hits, misses uint64
}

func newShaderManager(r *Regl) *shaderManager {
	return &shaderManager{
		r:        r,
		stages:   make(map[stageKey]gl.Shader),
		programs: make(map[programKey]*program),
	}
}

// sourceString resolves a static Vert/Frag specification value to GLSL.
func sourceString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case ShaderSource:
		return translateWGSL(t)
	default:
		return "", fmt.Errorf("unsupported shader source type %T", v)
	}
}

func (m *shaderManager) compileStage(ty gl.Enum, src string) (gl.Shader, error) {
	key := stageKey{ty: ty, srcID: m.r.strings.id(src)}
	if s, ok := m.stages[key]; ok {
		return s, nil
	}
	g := m.r.gl
	s := g.CreateShader(ty)
	g.ShaderSource(s, src)
	g.CompileShader(s)
	if g.GetShaderi(s, gl.CompileStatus) == 0 {
		log := g.GetShaderInfoLog(s)
		g.DeleteShader(s)
		return gl.Shader{}, fmt.Errorf("shader compile failed: %s", log)
	}
	m.stages[key] = s
	return s, nil
}

// get links (or returns the cached) program for a vertex/fragment source
// pair and takes a reference on it.
func (m *shaderManager) get(vertSrc, fragSrc string) (*program, error) {
	key := programKey{
		frag: m.r.strings.id(fragSrc),
		vert: m.r.strings.id(vertSrc),
	}
	if p, ok := m.programs[key]; ok {
		m.hits++
		p.refs++
		return p, nil
	}
	m.misses++
	p, err := m.link(key, vertSrc, fragSrc)
	if err != nil {
		return nil, err
	}
	p.refs = 1
	m.programs[key] = p
	Logger().Info("regl: program linked",
		"vert", key.vert, "frag", key.frag,
		"uniforms", len(p.uniforms), "attributes", len(p.attributes))
	return p, nil
}

func (m *shaderManager) link(key programKey, vertSrc, fragSrc string) (*program, error) {
	vs, err := m.compileStage(gl.VertexShader, vertSrc)
	if err != nil {
		return nil, fmt.Errorf("vertex %w", err)
	}
	fs, err := m.compileStage(gl.FragmentShader, fragSrc)
	if err != nil {
		return nil, fmt.Errorf("fragment %w", err)
	}
	g := m.r.gl
	handle := g.CreateProgram()
	g.AttachShader(handle, vs)
	g.AttachShader(handle, fs)
	g.LinkProgram(handle)
	if g.GetProgrami(handle, gl.LinkStatus) == 0 {
		log := g.GetProgramInfoLog(handle)
		g.DeleteProgram(handle)
		return nil, errors.New("program link failed: " + log)
	}
	p := &program{key: key, handle: handle}
	m.readMetadata(p)
	return p, nil
}

// readMetadata pulls active uniform and attribute tables from the linked
// program. Array uniforms report as "name[0]"; the bracket suffix is
// stripped so lookups use the declared name.
func (m *shaderManager) readMetadata(p *program) {
	g := m.r.gl
	p.uniforms = p.uniforms[:0]
	p.attributes = p.attributes[:0]
	nu := g.GetProgrami(p.handle, gl.ActiveUniforms)
	for i := 0; i < nu; i++ {
		name, size, ty := g.GetActiveUniform(p.handle, i)
		if name == "" {
			continue
		}
		base := strings.TrimSuffix(name, "[0]")
		p.uniforms = append(p.uniforms, uniformInfo{
			name: base,
			id:   m.r.strings.id(base),
			loc:  g.GetUniformLocation(p.handle, name),
			ty:   ty,
			size: size,
		})
	}
	na := g.GetProgrami(p.handle, gl.ActiveAttribs)
	for i := 0; i < na; i++ {
		name, size, ty := g.GetActiveAttrib(p.handle, i)
		if name == "" {
			continue
		}
		p.attributes = append(p.attributes, attributeInfo{
			name: name,
			id:   m.r.strings.id(name),
			loc:  g.GetAttribLocation(p.handle, name),
			ty:   ty,
			size: size,
		})
	}
}

// release drops a reference; the GL program is deleted when the last
// user goes away. Stage objects stay cached for the instance lifetime.
func (m *shaderManager) release(p *program) {
	if p == nil {
		return
	}
	p.refs--
	if p.refs > 0 {
		return
	}
	delete(m.programs, p.key)
	if !m.r.lost {
		m.r.gl.DeleteProgram(p.handle)
	}
}

// restore recompiles every cached stage and relinks every live program
// in place after context restoration. Program pointers held by commands
// stay valid; handles and locations are refreshed.
func (m *shaderManager) restore() {
	g := m.r.gl
	sources := make(map[stageKey]string, len(m.stages))
	for key := range m.stages {
		sources[key] = m.r.strings.str(key.srcID)
	}
	m.stages = make(map[stageKey]gl.Shader, len(sources))
	for key, src := range sources {
		s := g.CreateShader(key.ty)
		g.ShaderSource(s, src)
		g.CompileShader(s)
		m.stages[key] = s
	}
	for _, p := range m.programs {
		vs := m.stages[stageKey{ty: gl.VertexShader, srcID: p.key.vert}]
		fs := m.stages[stageKey{ty: gl.FragmentShader, srcID: p.key.frag}]
		p.handle = g.CreateProgram()
		g.AttachShader(p.handle, vs)
		g.AttachShader(p.handle, fs)
		g.LinkProgram(p.handle)
		m.readMetadata(p)
	}
}

func (m *shaderManager) destroyAll() {
	if !m.r.lost {
		g := m.r.gl
		for _, p := range m.programs {
			g.DeleteProgram(p.handle)
		}
		for _, s := range m.stages {
			g.DeleteShader(s)
		}
	}
	m.programs = make(map[programKey]*program)
	m.stages = make(map[stageKey]gl.Shader)
}
