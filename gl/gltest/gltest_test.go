package gltest

import (
	"testing"

	"github.com/plotly/regl-go/gl"
)

func TestScanDecls(t *testing.T) {
	src := `
precision mediump float;
uniform mat4 projection;
uniform highp vec4 color;
uniform float weights[4];
attribute vec2 position;
varying vec2 uv;
uniform unknown_t thing;
`
	uniforms := scanDecls(src, "uniform")
	if len(uniforms) != 3 {
		t.Fatalf("uniforms = %d, want 3: %+v", len(uniforms), uniforms)
	}
	tests := []struct {
		i    int
		name string
		ty   gl.Enum
		size int
	}{
		{0, "projection", gl.FloatMat4, 1},
		{1, "color", gl.FloatVec4, 1},
		{2, "weights", gl.Float, 4},
	}
	for _, tt := range tests {
		d := uniforms[tt.i]
		if d.name != tt.name || d.ty != tt.ty || d.size != tt.size {
			t.Errorf("decl %d = %+v, want {%s %v %d}", tt.i, d, tt.name, tt.ty, tt.size)
		}
	}

	attribs := scanDecls(src, "attribute", "in")
	if len(attribs) != 1 || attribs[0].name != "position" {
		t.Errorf("attributes = %+v, want [position]", attribs)
	}
}

func TestProgramMetadata(t *testing.T) {
	c := New()
	vs := c.CreateShader(gl.VertexShader)
	c.ShaderSource(vs, "uniform mat4 mvp;\nattribute vec3 pos;\nvoid main() {}")
	fs := c.CreateShader(gl.FragmentShader)
	c.ShaderSource(fs, "uniform mat4 mvp;\nuniform sampler2D tex;\nvoid main() {}")

	p := c.CreateProgram()
	c.AttachShader(p, vs)
	c.AttachShader(p, fs)
	c.LinkProgram(p)

	if got := c.GetProgrami(p, gl.LinkStatus); got != 1 {
		t.Errorf("LinkStatus = %d, want 1", got)
	}
	// mvp appears in both stages but counts once.
	if got := c.GetProgrami(p, gl.ActiveUniforms); got != 2 {
		t.Errorf("ActiveUniforms = %d, want 2", got)
	}
	if got := c.GetProgrami(p, gl.ActiveAttribs); got != 1 {
		t.Errorf("ActiveAttribs = %d, want 1", got)
	}

	// Locations are assigned in attach order.
	if loc := c.GetUniformLocation(p, "mvp"); loc.V != 0 {
		t.Errorf("mvp location = %d, want 0", loc.V)
	}
	if loc := c.GetUniformLocation(p, "tex"); loc.V != 1 {
		t.Errorf("tex location = %d, want 1", loc.V)
	}
	if loc := c.GetUniformLocation(p, "nope"); loc.V != -1 {
		t.Errorf("missing uniform location = %d, want -1", loc.V)
	}
	if loc := c.GetAttribLocation(p, "pos"); loc != 0 {
		t.Errorf("pos location = %d, want 0", loc)
	}

	name, size, ty := c.GetActiveUniform(p, 1)
	if name != "tex" || size != 1 || ty != gl.Sampler2D {
		t.Errorf("GetActiveUniform(1) = (%s, %d, 0x%04x)", name, size, uint32(ty))
	}
}

func TestRegisterTracking(t *testing.T) {
	c := New()
	if !c.IsEnabled(gl.Dither) {
		t.Error("dither not enabled by default")
	}
	c.Enable(gl.DepthTest)
	if !c.IsEnabled(gl.DepthTest) {
		t.Error("enable not tracked")
	}
	c.Disable(gl.DepthTest)
	if c.IsEnabled(gl.DepthTest) {
		t.Error("disable not tracked")
	}

	p := c.CreateProgram()
	c.UseProgram(p)
	if c.BoundProgram() != p {
		t.Errorf("BoundProgram() = %v, want %v", c.BoundProgram(), p)
	}

	b := c.CreateBuffer()
	c.BindBuffer(gl.ArrayBuffer, b)
	c.VertexAttribPointer(3, 2, gl.Float, false, 8, 0)
	a := c.attribs[3]
	if a.buffer != b || a.size != 2 || a.stride != 8 {
		t.Errorf("attrib slot = %+v", a)
	}
}

func TestCallLogHelpers(t *testing.T) {
	c := New()
	c.Enable(gl.Blend)
	c.DrawArrays(gl.Triangles, 0, 3)
	c.DrawElements(gl.Triangles, 3, gl.UnsignedShort, 0)

	if n := c.CountCalls("enable"); n != 1 {
		t.Errorf("CountCalls(enable) = %d, want 1", n)
	}
	if n := c.DrawCallCount(); n != 2 {
		t.Errorf("DrawCallCount() = %d, want 2", n)
	}
	if got := c.CallsWithPrefix("drawArrays"); len(got) != 1 || got[0] != "drawArrays(0x0004, 0, 3)" {
		t.Errorf("CallsWithPrefix(drawArrays) = %v", got)
	}

	taken := c.TakeCalls()
	if len(taken) != 3 {
		t.Errorf("TakeCalls() = %d entries, want 3", len(taken))
	}
	if len(c.Calls()) != 0 {
		t.Error("log not cleared by TakeCalls")
	}
}

func TestLossSilencing(t *testing.T) {
	c := New()
	c.LoseContext()
	if !c.IsContextLost() {
		t.Fatal("IsContextLost() = false after LoseContext")
	}
	c.Enable(gl.DepthTest)
	c.DrawArrays(gl.Triangles, 0, 3)
	if len(c.Calls()) != 0 {
		t.Errorf("calls recorded while lost: %v", c.Calls())
	}
	if c.IsEnabled(gl.DepthTest) {
		t.Error("register changed while lost")
	}
	if b := c.CreateBuffer(); b != (gl.Buffer{}) {
		t.Errorf("CreateBuffer() while lost = %v, want zero", b)
	}
	if s := c.GetShaderi(gl.Shader{V: 1}, gl.CompileStatus); s != 0 {
		t.Error("shader compile reported success while lost")
	}
}

func TestRestoreResetsEverything(t *testing.T) {
	c := New()
	first := c.CreateBuffer()
	c.Enable(gl.DepthTest)
	c.UseProgram(c.CreateProgram())

	c.LoseContext()
	c.RestoreContext()

	if c.IsContextLost() {
		t.Error("still lost after restore")
	}
	if c.IsEnabled(gl.DepthTest) {
		t.Error("capability survived restore")
	}
	if c.BoundProgram() != (gl.Program{}) {
		t.Error("program binding survived restore")
	}
	// Object ids restart, so a recreated resource can reuse an old id.
	if b := c.CreateBuffer(); b != first {
		t.Errorf("first post-restore id = %v, want %v", b, first)
	}
}
