package regl

import (
	"testing"

	"github.com/plotly/regl-go/gl"
)

const (
	metaVert = `
uniform mat4 projection;
uniform vec4 tint;
attribute vec2 position;
attribute float alpha;
void main() {}
`
	metaFrag = `
uniform vec4 tint;
void main() {}
`
)

func TestProgramCache(t *testing.T) {
	r, _ := newTestRegl(t)
	p1, err := r.shaders.get(metaVert, metaFrag)
	if err != nil {
		t.Fatalf("get() error = %v", err)
	}
	p2, err := r.shaders.get(metaVert, metaFrag)
	if err != nil {
		t.Fatalf("get() error = %v", err)
	}
	if p1 != p2 {
		t.Error("same source pair linked twice")
	}
	if hits, misses := r.ProgramCacheStats(); hits != 1 || misses != 1 {
		t.Errorf("cache stats = (%d, %d), want (1, 1)", hits, misses)
	}

	p3, err := r.shaders.get(metaVert, "void main() {}\n")
	if err != nil {
		t.Fatalf("get() error = %v", err)
	}
	if p3 == p1 {
		t.Error("distinct fragment sources shared a program")
	}
}

func TestStageMemoization(t *testing.T) {
	r, g := newTestRegl(t)
	r.shaders.get(metaVert, metaFrag)
	r.shaders.get(metaVert, "void main() {}\n")
	// The shared vertex stage compiles once: one vertex, two fragments.
	if n := g.CountCalls("createShader"); n != 3 {
		t.Errorf("createShader calls = %d, want 3", n)
	}
}

func TestProgramMetadata(t *testing.T) {
	r, _ := newTestRegl(t)
	p, err := r.shaders.get(metaVert, metaFrag)
	if err != nil {
		t.Fatalf("get() error = %v", err)
	}
	if len(p.uniforms) != 2 {
		t.Fatalf("uniforms = %d, want 2", len(p.uniforms))
	}
	if len(p.attributes) != 2 {
		t.Fatalf("attributes = %d, want 2", len(p.attributes))
	}
	u := p.uniform(r.strings.id("projection"))
	if u == nil || u.ty != gl.FloatMat4 {
		t.Errorf("projection = %+v, want mat4", u)
	}
	a := p.attribute(r.strings.id("position"))
	if a == nil || a.ty != gl.FloatVec2 {
		t.Errorf("position = %+v, want vec2", a)
	}
	if p.uniform(r.strings.id("missing")) != nil {
		t.Error("lookup of inactive uniform succeeded")
	}
}

func TestProgramRefcount(t *testing.T) {
	r, g := newTestRegl(t)
	p, _ := r.shaders.get(metaVert, metaFrag)
	r.shaders.get(metaVert, metaFrag)

	r.shaders.release(p)
	if n := g.CountCalls("deleteProgram"); n != 0 {
		t.Error("program deleted while referenced")
	}
	r.shaders.release(p)
	if n := g.CountCalls("deleteProgram"); n != 1 {
		t.Errorf("deleteProgram calls = %d, want 1", n)
	}
	if _, misses := r.ProgramCacheStats(); misses != 1 {
		t.Errorf("misses = %d, want 1", misses)
	}
	// Released programs leave the cache; the next get relinks.
	r.shaders.get(metaVert, metaFrag)
	if _, misses := r.ProgramCacheStats(); misses != 2 {
		t.Errorf("misses after relink = %d, want 2", misses)
	}
}

func TestShaderRestoreKeepsPointers(t *testing.T) {
	r, g := newTestRegl(t)
	p, _ := r.shaders.get(metaVert, metaFrag)
	uinfo := p.uniform(r.strings.id("tint"))
	ainfo := p.attribute(r.strings.id("position"))

	g.RestoreContext()
	r.shaders.restore()

	if p.handle == (gl.Program{}) {
		t.Error("handle not recreated after restore")
	}
	// Metadata is rewritten in place, so captured pointers stay valid.
	if got := p.uniform(r.strings.id("tint")); got != uinfo {
		t.Error("uniform info pointer changed across restore")
	}
	if got := p.attribute(r.strings.id("position")); got != ainfo {
		t.Error("attribute info pointer changed across restore")
	}
	if uinfo.ty != gl.FloatVec4 || ainfo.ty != gl.FloatVec2 {
		t.Errorf("metadata types lost: uniform 0x%04x, attribute 0x%04x",
			uint32(uinfo.ty), uint32(ainfo.ty))
	}
}

func TestSourceString(t *testing.T) {
	if s, err := sourceString("void main() {}"); err != nil || s != "void main() {}" {
		t.Errorf("sourceString(GLSL) = (%q, %v)", s, err)
	}
	if _, err := sourceString(42); err == nil {
		t.Error("non-source value accepted")
	}
}

func TestWGSLWrapper(t *testing.T) {
	src := WGSL("@vertex fn vs() {}", "vs")
	if src.wgsl == "" || src.entry != "vs" {
		t.Errorf("WGSL() = %+v", src)
	}
}
