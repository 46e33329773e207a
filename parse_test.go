package regl

import (
	"errors"
	"testing"

	"github.com/plotly/regl-go/gl"
	"github.com/plotly/regl-go/gl/gltest"
)

func TestLookupEnum(t *testing.T) {
	tests := []struct {
		name    string
		table   map[string]gl.Enum
		v       any
		want    gl.Enum
		wantErr bool
	}{
		{"name", primitives, "triangles", gl.Triangles, false},
		{"two-word name", primitives, "line strip", gl.LineStrip, false},
		{"enum passthrough", primitives, gl.Points, gl.Points, false},
		{"unknown name", primitives, "heptagons", 0, true},
		{"foreign enum", primitives, gl.FuncAdd, 0, true},
		{"wrong type", primitives, 3.5, 0, true},
		{"stencil zero digit", stencilOps, "0", gl.ZeroOp, false},
		{"stencil zero word", stencilOps, "zero", gl.ZeroOp, false},
		{"blend factor digit", blendFactors, "1", gl.One, false},
		{"comparison symbol", compareFuncs, "<=", gl.Lequal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lookupEnum(tt.table, tt.v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("lookupEnum() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("lookupEnum() = 0x%04x, want 0x%04x", uint32(got), uint32(tt.want))
			}
		})
	}
}

func TestToInt(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want int
		ok   bool
	}{
		{"int", 7, 7, true},
		{"float64 integral", 7.0, 7, true},
		{"float64 fractional", 7.5, 0, false},
		{"int32", int32(-3), -3, true},
		{"string", "7", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toInt(tt.v)
			if ok != tt.ok || got != tt.want {
				t.Errorf("toInt(%v) = (%d, %v), want (%d, %v)", tt.v, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestBlendFuncSrcDstExpansion(t *testing.T) {
	r, _ := newTestRegl(t)
	pc, err := r.parseCommand(&CommandSpec{
		Blend: &BlendSpec{
			Func: BlendFuncSpec{Src: "src alpha", Dst: "one minus src alpha"},
		},
	})
	if err != nil {
		t.Fatalf("parseCommand() error = %v", err)
	}
	sd := pc.state[sfBlendFunc]
	if sd == nil || !sd.static {
		t.Fatal("blend.func not parsed as static")
	}
	want := sv4(float64(gl.SrcAlpha), float64(gl.OneMinusSrcAlpha),
		float64(gl.SrcAlpha), float64(gl.OneMinusSrcAlpha))
	if !sd.val.equal(want) {
		t.Errorf("blend.func lanes = %v, want %v", sd.val.v, want.v)
	}
}

func TestBlendFuncConflict(t *testing.T) {
	r, _ := newTestRegl(t)
	_, err := r.parseCommand(&CommandSpec{
		Blend: &BlendSpec{
			Func: BlendFuncSpec{Src: "one", Dst: "zero", SrcRGB: "one"},
		},
	})
	if err == nil {
		t.Fatal("src/dst combined with separate factors accepted")
	}
}

func TestStencilOpBothFaces(t *testing.T) {
	r, _ := newTestRegl(t)
	pc, err := r.parseCommand(&CommandSpec{
		Stencil: &StencilSpec{
			Op: StencilOpSpec{Fail: "keep", ZFail: "0", ZPass: "replace"},
		},
	})
	if err != nil {
		t.Fatalf("parseCommand() error = %v", err)
	}
	want := sv3(float64(gl.Keep), float64(gl.ZeroOp), float64(gl.Replace))
	for _, field := range []stateField{sfStencilOpFront, sfStencilOpBack} {
		sd := pc.state[field]
		if sd == nil || !sd.static || !sd.val.equal(want) {
			t.Errorf("field %d: op = %+v, want %v", field, sd, want.v)
		}
	}
}

func TestStencilOpConflict(t *testing.T) {
	r, _ := newTestRegl(t)
	_, err := r.parseCommand(&CommandSpec{
		Stencil: &StencilSpec{
			Op:      StencilOpSpec{Fail: "keep"},
			OpFront: StencilOpSpec{Fail: "keep"},
		},
	})
	if err == nil {
		t.Fatal("op combined with opFront accepted")
	}
}

func TestCommandErrorNamesField(t *testing.T) {
	r, _ := newTestRegl(t)
	_, err := r.Command(CommandSpec{
		Name:  "badDepth",
		Depth: &DepthSpec{Func: "sometimes"},
	})
	var ce *CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("error type = %T, want *CommandError", err)
	}
	if ce.Command != "badDepth" {
		t.Errorf("Command = %q, want badDepth", ce.Command)
	}
	if ce.Field != "depth.func" {
		t.Errorf("Field = %q, want depth.func", ce.Field)
	}
}

func TestViewportDefaultsAreContextDependent(t *testing.T) {
	r, _ := newTestRegl(t)

	pc, err := r.parseCommand(&CommandSpec{Viewport: Box{X: 0, Y: 0}})
	if err != nil {
		t.Fatalf("parseCommand() error = %v", err)
	}
	if !pc.contextDep {
		t.Error("box with defaulted extent not context-dependent")
	}
	if pc.state[sfViewport].static {
		t.Error("defaulted box parsed as static")
	}

	// Fully specified boxes are static.
	pc, err = r.parseCommand(&CommandSpec{Viewport: Box{Width: 10, Height: 20}})
	if err != nil {
		t.Fatalf("parseCommand() error = %v", err)
	}
	if pc.contextDep {
		t.Error("fully specified box is context-dependent")
	}
	if !pc.state[sfViewport].static || !pc.state[sfViewport].val.equal(sv4(0, 0, 10, 20)) {
		t.Errorf("viewport = %+v, want static (0, 0, 10, 20)", pc.state[sfViewport])
	}
}

func TestBoxValNegativeExtent(t *testing.T) {
	if _, err := boxVal(Box{Width: -1, Height: 5}, nil); err == nil {
		t.Error("negative extent accepted")
	}
}

func TestParseDrawParamValidation(t *testing.T) {
	r, _ := newTestRegl(t)
	if _, err := r.parseCommand(&CommandSpec{Count: -3}); err == nil {
		t.Error("negative static count accepted")
	}
	if _, err := r.parseCommand(&CommandSpec{Count: 1.5}); err == nil {
		t.Error("fractional count accepted")
	}
	if _, err := r.parseCommand(&CommandSpec{Primitive: "hexagons"}); err == nil {
		t.Error("unknown primitive accepted")
	}
}

func TestInstancesRequireCapability(t *testing.T) {
	caps := gltest.DefaultCaps()
	caps.Instancing = false
	g := gltest.New(gltest.WithCaps(caps))
	r, err := New(g, 100, 100)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = r.parseCommand(&CommandSpec{Instances: 4})
	if !errors.Is(err, ErrNotAvailable) {
		t.Errorf("instances without capability = %v, want ErrNotAvailable", err)
	}
}

func TestResolveAttribute(t *testing.T) {
	r, _ := newTestRegl(t)
	buf, err := r.NewBuffer([]float32{0, 0, 1, 1})
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}

	t.Run("bare buffer", func(t *testing.T) {
		res, err := r.resolveAttribute(buf, true)
		if err != nil {
			t.Fatalf("resolveAttribute() error = %v", err)
		}
		if res.buffer != buf || res.ty != gl.Float || res.size != 0 {
			t.Errorf("resolved = %+v", res)
		}
	})

	t.Run("full spec", func(t *testing.T) {
		res, err := r.resolveAttribute(AttributeSpec{
			Buffer: buf, Size: 2, Stride: 16, Offset: 8, Divisor: 1,
		}, true)
		if err != nil {
			t.Fatalf("resolveAttribute() error = %v", err)
		}
		if res.size != 2 || res.stride != 16 || res.offset != 8 || res.divisor != 1 {
			t.Errorf("resolved = %+v", res)
		}
	})

	t.Run("constant", func(t *testing.T) {
		res, err := r.resolveAttribute(AttributeSpec{Constant: []float32{1, 2}}, true)
		if err != nil {
			t.Fatalf("resolveAttribute() error = %v", err)
		}
		if !res.constant || res.x != 1 || res.y != 2 || res.z != 0 || res.w != 1 {
			t.Errorf("constant = %+v, want (1, 2, 0, 1)", res)
		}
	})

	t.Run("inline data", func(t *testing.T) {
		res, err := r.resolveAttribute([][2]float32{{0, 0}, {1, 0}}, true)
		if err != nil {
			t.Fatalf("resolveAttribute() error = %v", err)
		}
		if res.buffer == nil || res.size != 2 || res.stream {
			t.Errorf("inline = %+v", res)
		}
	})

	t.Run("inline stream", func(t *testing.T) {
		res, err := r.resolveAttribute([][2]float32{{0, 0}}, false)
		if err != nil {
			t.Fatalf("resolveAttribute() error = %v", err)
		}
		if !res.stream {
			t.Error("per-invocation inline data not a stream buffer")
		}
	})

	for _, bad := range []AttributeSpec{
		{Constant: []float32{}},
		{Constant: []float32{1, 2, 3, 4, 5}},
		{Buffer: buf, Size: 5},
		{Buffer: buf, Stride: 300},
		{Buffer: buf, Offset: -4},
		{},
	} {
		if _, err := r.resolveAttribute(bad, true); err == nil {
			t.Errorf("spec %+v accepted", bad)
		}
	}
}

func TestVAOExcludesAttributes(t *testing.T) {
	r, _ := newTestRegl(t)
	buf, _ := r.NewBuffer([]float32{0, 0, 1, 1})
	vao, err := r.NewVAO([]VAOAttribute{{Buffer: buf, Size: 2}}, nil)
	if err != nil {
		t.Fatalf("NewVAO() error = %v", err)
	}
	_, err = r.parseCommand(&CommandSpec{
		VAO:        vao,
		Attributes: map[string]any{"position": buf},
	})
	if err == nil {
		t.Error("vao combined with attributes accepted")
	}
}
