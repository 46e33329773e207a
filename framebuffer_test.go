package regl

import (
	"strings"
	"testing"
)

func TestNewFramebufferAutoColor(t *testing.T) {
	r, g := newTestRegl(t)
	fbo, err := r.NewFramebuffer(FramebufferOptions{Width: 32, Height: 16})
	if err != nil {
		t.Fatalf("NewFramebuffer() error = %v", err)
	}
	if fbo.Width() != 32 || fbo.Height() != 16 {
		t.Errorf("size = %dx%d, want 32x16", fbo.Width(), fbo.Height())
	}
	if fbo.Color() == nil {
		t.Fatal("no color attachment allocated")
	}
	if fbo.Color().Width() != 32 || fbo.Color().Height() != 16 {
		t.Errorf("color size = %dx%d, want 32x16", fbo.Color().Width(), fbo.Color().Height())
	}
	if n := g.CountCalls("framebufferTexture2D"); n != 1 {
		t.Errorf("framebufferTexture2D calls = %d, want 1", n)
	}
	if n := g.CountCalls("renderbufferStorage"); n != 0 {
		t.Errorf("renderbufferStorage calls = %d, want 0", n)
	}
}

func TestNewFramebufferColorSizeWins(t *testing.T) {
	r, _ := newTestRegl(t)
	tex, err := r.NewTexture(TextureOptions{Width: 8, Height: 8})
	if err != nil {
		t.Fatalf("NewTexture() error = %v", err)
	}
	fbo, err := r.NewFramebuffer(FramebufferOptions{Width: 99, Height: 99, Color: tex})
	if err != nil {
		t.Fatalf("NewFramebuffer() error = %v", err)
	}
	if fbo.Width() != 8 || fbo.Height() != 8 {
		t.Errorf("size = %dx%d, want color texture's 8x8", fbo.Width(), fbo.Height())
	}
}

func TestNewFramebufferDepthStencil(t *testing.T) {
	tests := []struct {
		name           string
		depth, stencil bool
		wantStorage    string
	}{
		{"depth", true, false, "renderbufferStorage(0x8d41, 0x81a5, 4, 4)"},
		{"stencil", false, true, "renderbufferStorage(0x8d41, 0x8d48, 4, 4)"},
		{"both", true, true, "renderbufferStorage(0x8d41, 0x84f9, 4, 4)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g := newTestRegl(t)
			_, err := r.NewFramebuffer(FramebufferOptions{
				Width: 4, Height: 4,
				Depth: tt.depth, Stencil: tt.stencil,
			})
			if err != nil {
				t.Fatalf("NewFramebuffer() error = %v", err)
			}
			got := g.CallsWithPrefix("renderbufferStorage")
			if len(got) != 1 || got[0] != tt.wantStorage {
				t.Errorf("storage = %v, want [%s]", got, tt.wantStorage)
			}
			if n := g.CountCalls("framebufferRenderbuffer"); n != 1 {
				t.Errorf("framebufferRenderbuffer calls = %d, want 1", n)
			}
		})
	}
}

func TestNewFramebufferValidation(t *testing.T) {
	r, _ := newTestRegl(t)
	if _, err := r.NewFramebuffer(FramebufferOptions{}); err == nil {
		t.Error("zero size without color texture accepted")
	}
	if _, err := r.NewFramebuffer(FramebufferOptions{Width: -1, Height: 4}); err == nil {
		t.Error("negative width accepted")
	}
}

func TestNewFramebufferRestoresBinding(t *testing.T) {
	r, g := newTestRegl(t)
	if _, err := r.NewFramebuffer(FramebufferOptions{Width: 4, Height: 4}); err != nil {
		t.Fatalf("NewFramebuffer() error = %v", err)
	}
	calls := g.CallsWithPrefix("bindFramebuffer")
	if len(calls) == 0 {
		t.Fatal("no bindFramebuffer calls")
	}
	last := calls[len(calls)-1]
	if !strings.HasSuffix(last, ", 0)") {
		t.Errorf("final binding = %s, want rebind of default target", last)
	}
}

func TestDrawIntoFramebufferSetsViewport(t *testing.T) {
	r, g := newTestRegl(t)
	fbo, err := r.NewFramebuffer(FramebufferOptions{Width: 16, Height: 8})
	if err != nil {
		t.Fatalf("NewFramebuffer() error = %v", err)
	}
	cmd, err := r.Command(CommandSpec{
		Vert:        "attribute vec2 position;\nvoid main() {}\n",
		Frag:        "void main() {}\n",
		Attributes:  map[string]any{"position": triPositions},
		Count:       3,
		Framebuffer: fbo,
	})
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	g.ClearCalls()
	if err := cmd.Draw(nil); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	vp := g.CallsWithPrefix("viewport")
	if len(vp) != 1 || vp[0] != "viewport(0, 0, 16, 8)" {
		t.Errorf("viewport = %v, want [viewport(0, 0, 16, 8)]", vp)
	}
	if n := g.CountCalls("bindFramebuffer"); n != 1 {
		t.Errorf("bindFramebuffer calls = %d, want 1", n)
	}
	if r.Env().FramebufferWidth != 16 || r.Env().FramebufferHeight != 8 {
		t.Errorf("env framebuffer dims = %dx%d, want 16x8",
			r.Env().FramebufferWidth, r.Env().FramebufferHeight)
	}
}

func TestFramebufferDestroyOwnedColor(t *testing.T) {
	r, g := newTestRegl(t)
	fbo, err := r.NewFramebuffer(FramebufferOptions{Width: 4, Height: 4, Depth: true})
	if err != nil {
		t.Fatalf("NewFramebuffer() error = %v", err)
	}
	color := fbo.Color()
	fbo.Destroy()
	if !color.destroyed {
		t.Error("owned color texture survived framebuffer destroy")
	}
	if n := g.CountCalls("deleteFramebuffer"); n != 1 {
		t.Errorf("deleteFramebuffer calls = %d, want 1", n)
	}
	if n := g.CountCalls("deleteRenderbuffer"); n != 1 {
		t.Errorf("deleteRenderbuffer calls = %d, want 1", n)
	}
}

func TestFramebufferKeepsSharedColor(t *testing.T) {
	r, _ := newTestRegl(t)
	tex, _ := r.NewTexture(TextureOptions{Width: 4, Height: 4})
	fbo, err := r.NewFramebuffer(FramebufferOptions{Color: tex})
	if err != nil {
		t.Fatalf("NewFramebuffer() error = %v", err)
	}
	fbo.Destroy()
	if tex.destroyed {
		t.Error("caller-owned color texture destroyed with the framebuffer")
	}
}

func TestFramebufferRestore(t *testing.T) {
	r, g := newTestRegl(t)
	fbo, err := r.NewFramebuffer(FramebufferOptions{Width: 4, Height: 4, Depth: true})
	if err != nil {
		t.Fatalf("NewFramebuffer() error = %v", err)
	}
	r.LoseContext()
	g.LoseContext()
	g.RestoreContext()
	g.ClearCalls()
	r.RestoreContext()

	if n := g.CountCalls("createFramebuffer"); n != 1 {
		t.Errorf("createFramebuffer calls = %d, want 1", n)
	}
	if n := g.CountCalls("framebufferTexture2D"); n != 1 {
		t.Errorf("framebufferTexture2D calls = %d, want 1", n)
	}
	if fbo.destroyed {
		t.Error("framebuffer destroyed by restore")
	}
}
