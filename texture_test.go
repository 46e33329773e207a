package regl

import (
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestNewTextureDefaults(t *testing.T) {
	r, g := newTestRegl(t)
	tex, err := r.NewTexture(TextureOptions{
		Width: 2, Height: 2,
		Data: make([]byte, 16),
	})
	if err != nil {
		t.Fatalf("NewTexture() error = %v", err)
	}
	if tex.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format() = %v, want RGBA8Unorm", tex.Format())
	}
	if tex.Width() != 2 || tex.Height() != 2 {
		t.Errorf("size = %dx%d, want 2x2", tex.Width(), tex.Height())
	}
	if n := g.CountCalls("texImage2D"); n != 1 {
		t.Errorf("texImage2D calls = %d, want 1", n)
	}
	// Min/mag filter and both wrap modes.
	if n := g.CountCalls("texParameteri"); n != 4 {
		t.Errorf("texParameteri calls = %d, want 4", n)
	}
}

func TestNewTextureValidation(t *testing.T) {
	r, _ := newTestRegl(t)
	tests := []struct {
		name string
		opts TextureOptions
	}{
		{"short data", TextureOptions{Width: 2, Height: 2, Data: make([]byte, 8)}},
		{"zero size", TextureOptions{Width: 0, Height: 2}},
		{"negative size", TextureOptions{Width: 2, Height: -1}},
		{"oversize", TextureOptions{Width: 5000, Height: 1}},
		{"unsupported format", TextureOptions{Width: 1, Height: 1, Format: gputypes.TextureFormatDepth24PlusStencil8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.NewTexture(tt.opts); err == nil {
				t.Errorf("NewTexture(%+v) succeeded", tt.opts)
			}
		})
	}
}

func TestSwapBGRA(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	got := swapBGRA(src)
	want := []byte{3, 2, 1, 4, 7, 6, 5, 8}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("swapBGRA = %v, want %v", got, want)
		}
	}
	if src[0] != 1 {
		t.Error("swapBGRA mutated its input")
	}
}

func TestImageToRGBA(t *testing.T) {
	// A subimage with a non-zero origin must be repacked.
	base := image.NewRGBA(image.Rect(0, 0, 8, 8))
	sub := base.SubImage(image.Rect(2, 2, 6, 6))
	px, w, h := imageToRGBA(sub)
	if w != 4 || h != 4 {
		t.Errorf("size = %dx%d, want 4x4", w, h)
	}
	if len(px) != 64 {
		t.Errorf("len(px) = %d, want 64", len(px))
	}

	// Non-RGBA images convert too.
	gray := image.NewGray(image.Rect(0, 0, 3, 2))
	px, w, h = imageToRGBA(gray)
	if w != 3 || h != 2 || len(px) != 24 {
		t.Errorf("gray conversion = %d bytes %dx%d, want 24 bytes 3x2", len(px), w, h)
	}
}

func TestNewTextureFromImage(t *testing.T) {
	r, _ := newTestRegl(t)
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	tex, err := r.NewTexture(TextureOptions{Image: img})
	if err != nil {
		t.Fatalf("NewTexture() error = %v", err)
	}
	if tex.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format() = %v, want RGBA8Unorm", tex.Format())
	}
	if tex.Width() != 4 || tex.Height() != 4 {
		t.Errorf("size = %dx%d, want 4x4", tex.Width(), tex.Height())
	}
}

func TestTextureUnitLease(t *testing.T) {
	r, _ := newTestRegl(t)
	mk := func() *Texture {
		tex, err := r.NewTexture(TextureOptions{Width: 1, Height: 1, Data: make([]byte, 4)})
		if err != nil {
			t.Fatalf("NewTexture() error = %v", err)
		}
		return tex
	}
	t1, t2, t3 := mk(), mk(), mk()

	if unit := t1.bind(); unit != 0 {
		t.Errorf("first lease = %d, want 0", unit)
	}
	if unit := t2.bind(); unit != 1 {
		t.Errorf("second lease = %d, want 1", unit)
	}
	// A nested bind of the same texture shares the lease.
	if unit := t1.bind(); unit != 0 {
		t.Errorf("nested lease = %d, want 0", unit)
	}
	t1.unbind()
	t1.unbind()
	if unit := t3.bind(); unit != 0 {
		t.Errorf("lease after release = %d, want 0", unit)
	}
	t2.unbind()
	t3.unbind()
}

func TestTextureFlipY(t *testing.T) {
	r, g := newTestRegl(t)
	_, err := r.NewTexture(TextureOptions{
		Width: 1, Height: 1,
		Data: make([]byte, 4), FlipY: true,
	})
	if err != nil {
		t.Fatalf("NewTexture() error = %v", err)
	}
	var flips []string
	for _, call := range g.Calls() {
		if strings.HasPrefix(call, "pixelStorei(0x9240") {
			flips = append(flips, call)
		}
	}
	// Set for the upload, cleared afterwards.
	if len(flips) != 2 {
		t.Errorf("flip-Y pixelStorei calls = %v, want set and reset", flips)
	}
}

func TestSamplerUniform(t *testing.T) {
	r, g := newTestRegl(t)
	tex, err := r.NewTexture(TextureOptions{Width: 1, Height: 1, Data: make([]byte, 4)})
	if err != nil {
		t.Fatalf("NewTexture() error = %v", err)
	}
	cmd, err := r.Command(CommandSpec{
		Vert:       "attribute vec2 position;\nvoid main() {}\n",
		Frag:       "uniform sampler2D tex;\nvoid main() {}\n",
		Attributes: map[string]any{"position": triPositions},
		Uniforms:   map[string]any{"tex": tex},
		Count:      3,
	})
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	g.ClearCalls()
	if err := cmd.Draw(nil); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	got := g.CallsWithPrefix("uniform1i")
	if len(got) != 1 || got[0] != "uniform1i(0, 0)" {
		t.Errorf("sampler upload = %v, want [uniform1i(0, 0)]", got)
	}
	if n := g.CountCalls("activeTexture"); n != 1 {
		t.Errorf("activeTexture calls = %d, want 1", n)
	}
	// The lease is returned when the draw finishes.
	if tex.binds != 0 {
		t.Errorf("binds after draw = %d, want 0", tex.binds)
	}
}

func TestTextureOnNonSamplerUniform(t *testing.T) {
	r, _ := newTestRegl(t)
	tex, _ := r.NewTexture(TextureOptions{Width: 1, Height: 1, Data: make([]byte, 4)})
	_, err := r.Command(CommandSpec{
		Vert:       triVert,
		Frag:       triFrag,
		Attributes: map[string]any{"position": triPositions},
		Uniforms:   map[string]any{"color": tex},
		Count:      3,
	})
	// A texture on a vec4 uniform is rejected up front, not on first draw.
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Field != "uniforms.color" {
		t.Errorf("Command() error = %v, want CommandError on uniforms.color", err)
	}
}

func TestTextureRestore(t *testing.T) {
	r, g := newTestRegl(t)
	tex, err := r.NewTexture(TextureOptions{
		Width: 1, Height: 1,
		Data: []byte{10, 20, 30, 40},
	})
	if err != nil {
		t.Fatalf("NewTexture() error = %v", err)
	}
	r.LoseContext()
	g.LoseContext()
	g.RestoreContext()
	g.ClearCalls()
	r.RestoreContext()

	if n := g.CountCalls("texImage2D"); n != 1 {
		t.Errorf("texImage2D calls on restore = %d, want 1", n)
	}
	if tex.destroyed {
		t.Error("texture destroyed by restore")
	}
}
