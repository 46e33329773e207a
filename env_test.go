package regl

import "testing"

func TestEnvValueBuiltins(t *testing.T) {
	e := &Env{
		Tick:                4,
		Time:                1.5,
		ViewportWidth:       320,
		ViewportHeight:      240,
		FramebufferWidth:    640,
		FramebufferHeight:   480,
		DrawingBufferWidth:  800,
		DrawingBufferHeight: 600,
		PixelRatio:          2,
	}
	tests := []struct {
		path string
		want any
	}{
		{"tick", 4},
		{"time", 1.5},
		{"viewportWidth", 320},
		{"viewportHeight", 240},
		{"framebufferWidth", 640},
		{"framebufferHeight", 480},
		{"drawingBufferWidth", 800},
		{"drawingBufferHeight", 600},
		{"pixelRatio", 2.0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := e.Value(tt.path); got != tt.want {
				t.Errorf("Value(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestEnvValueUserEntries(t *testing.T) {
	e := &Env{}
	e.setUser("lightDir", [3]float32{0, 1, 0})
	e.setUser("camera", map[string]any{"fov": 45.0})

	if got := e.Value("lightDir"); got != [3]float32{0, 1, 0} {
		t.Errorf("Value(lightDir) = %v", got)
	}
	if got := e.Value("camera.fov"); got != 45.0 {
		t.Errorf("Value(camera.fov) = %v, want 45", got)
	}
	if got := e.Value("missing"); got != nil {
		t.Errorf("Value(missing) = %v, want nil", got)
	}
}

func TestEnvBuiltinShadowsUser(t *testing.T) {
	e := &Env{Tick: 7}
	e.setUser("tick", 99)
	if got := e.Value("tick"); got != 7 {
		t.Errorf("Value(tick) = %v, want built-in 7", got)
	}
}

func TestResolvePath(t *testing.T) {
	type camera struct {
		Fov float64
	}
	type scene struct {
		Camera *camera
		Name   string
	}
	tests := []struct {
		name string
		v    any
		path string
		want any
	}{
		{"map key", map[string]any{"a": 1}, "a", 1},
		{"nested map", map[string]any{"a": map[string]any{"b": 2}}, "a.b", 2},
		{"struct field", scene{Name: "s"}, "Name", "s"},
		{"lowercase struct field", scene{Name: "s"}, "name", "s"},
		{"through pointer", scene{Camera: &camera{Fov: 60}}, "camera.fov", 60.0},
		{"nil pointer", scene{}, "camera.fov", nil},
		{"missing field", scene{}, "nope", nil},
		{"non-struct leaf", 3, "x", nil},
		{"nil root", nil, "x", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolvePath(tt.v, tt.path); got != tt.want {
				t.Errorf("resolvePath(%v, %q) = %v, want %v", tt.v, tt.path, got, tt.want)
			}
		})
	}
}

func TestEnvDelUser(t *testing.T) {
	e := &Env{}
	e.setUser("k", 1)
	e.delUser("k")
	if _, ok := e.getUser("k"); ok {
		t.Error("user entry survived delUser")
	}
}
