package regl

import (
	"fmt"

	"github.com/plotly/regl-go/gl"

	"github.com/gogpu/gputypes"
)

// FramebufferOptions configures an offscreen render target. When Color
// is nil a fresh RGBA8 texture of the given size is allocated and owned
// by the framebuffer.
type FramebufferOptions struct {
	Width, Height int
	Color         *Texture
	Depth         bool
	Stencil       bool
}

// Framebuffer is an offscreen render target: a color texture plus an
// optional depth/stencil renderbuffer. Commands render into one through
// the CommandSpec.Framebuffer field.
type Framebuffer struct {
	r      *Regl
	handle gl.Framebuffer
	width  int
	height int

	color     *Texture
	ownsColor bool

	ds       gl.Renderbuffer
	dsFormat gl.Enum
	dsAttach gl.Enum

	destroyed bool
}

// Width returns the render target width in pixels.
func (f *Framebuffer) Width() int { return f.width }

// Height returns the render target height in pixels.
func (f *Framebuffer) Height() int { return f.height }

// Color returns the color attachment texture.
func (f *Framebuffer) Color() *Texture { return f.color }

// Destroy releases the framebuffer and any attachments it owns.
func (f *Framebuffer) Destroy() {
	if f.destroyed {
		Logger().Warn("regl: framebuffer destroyed twice")
		return
	}
	f.destroyed = true
	f.r.framebuffers.remove(f)
	if !f.r.lost {
		g := f.r.gl
		g.DeleteFramebuffer(f.handle)
		if f.ds != (gl.Renderbuffer{}) {
			g.DeleteRenderbuffer(f.ds)
		}
	}
	if f.ownsColor && !f.color.destroyed {
		f.color.Destroy()
	}
}

func (f *Framebuffer) attach() error {
	g := f.r.gl
	g.BindFramebuffer(gl.FramebufferTarget, f.handle)
	g.FramebufferTexture2D(gl.FramebufferTarget, gl.ColorAttachment0, gl.Texture2D, f.color.handle, 0)
	if f.ds != (gl.Renderbuffer{}) {
		g.BindRenderbuffer(gl.RenderbufferTarget, f.ds)
		g.RenderbufferStorage(gl.RenderbufferTarget, f.dsFormat, f.width, f.height)
		g.FramebufferRenderbuffer(gl.FramebufferTarget, f.dsAttach, gl.RenderbufferTarget, f.ds)
	}
	if status := g.CheckFramebufferStatus(gl.FramebufferTarget); status != gl.FramebufferComplete {
		return fmt.Errorf("regl: framebuffer incomplete: 0x%04x", uint32(status))
	}
	return nil
}

type framebufferManager struct {
	r   *Regl
	set map[*Framebuffer]struct{}
}

func newFramebufferManager(r *Regl) *framebufferManager {
	return &framebufferManager{r: r, set: make(map[*Framebuffer]struct{})}
}

func (m *framebufferManager) remove(f *Framebuffer) { delete(m.set, f) }

// restore rebuilds framebuffer objects. Color textures are recreated by
// the texture manager first; only the FBO and renderbuffer need new
// handles here.
func (m *framebufferManager) restore() {
	g := m.r.gl
	for f := range m.set {
		f.handle = g.CreateFramebuffer()
		if f.ds != (gl.Renderbuffer{}) {
			f.ds = g.CreateRenderbuffer()
		}
		if err := f.attach(); err != nil {
			Logger().Error("regl: framebuffer restore failed", "error", err)
		}
	}
	g.BindFramebuffer(gl.FramebufferTarget, m.r.state.framebuffer)
}

func (m *framebufferManager) destroyAll() {
	for f := range m.set {
		f.destroyed = true
		if !m.r.lost {
			m.r.gl.DeleteFramebuffer(f.handle)
			if f.ds != (gl.Renderbuffer{}) {
				m.r.gl.DeleteRenderbuffer(f.ds)
			}
		}
	}
	m.set = make(map[*Framebuffer]struct{})
}

// NewFramebuffer creates an offscreen render target. When Color is set
// its size wins over Width/Height.
func (r *Regl) NewFramebuffer(opts FramebufferOptions) (*Framebuffer, error) {
	if r.lost {
		return nil, ErrContextLost
	}
	f := &Framebuffer{r: r, width: opts.Width, height: opts.Height}
	if opts.Color != nil {
		f.color = opts.Color
		f.width = opts.Color.width
		f.height = opts.Color.height
	} else {
		if f.width <= 0 || f.height <= 0 {
			return nil, fmt.Errorf("regl: invalid framebuffer size %dx%d", f.width, f.height)
		}
		tex, err := r.NewTexture(TextureOptions{
			Width:  f.width,
			Height: f.height,
			Format: gputypes.TextureFormatRGBA8Unorm,
		})
		if err != nil {
			return nil, err
		}
		f.color = tex
		f.ownsColor = true
	}

	g := r.gl
	f.handle = g.CreateFramebuffer()
	switch {
	case opts.Depth && opts.Stencil:
		f.ds = g.CreateRenderbuffer()
		f.dsFormat = gl.DepthStencil
		f.dsAttach = gl.DepthStencilAttach
	case opts.Depth:
		f.ds = g.CreateRenderbuffer()
		f.dsFormat = gl.DepthComponent16
		f.dsAttach = gl.DepthAttachment
	case opts.Stencil:
		f.ds = g.CreateRenderbuffer()
		f.dsFormat = gl.StencilIndex8
		f.dsAttach = gl.StencilAttachment
	}
	if err := f.attach(); err != nil {
		g.DeleteFramebuffer(f.handle)
		if f.ds != (gl.Renderbuffer{}) {
			g.DeleteRenderbuffer(f.ds)
		}
		if f.ownsColor {
			f.color.Destroy()
		}
		g.BindFramebuffer(gl.FramebufferTarget, r.state.framebuffer)
		return nil, err
	}
	g.BindFramebuffer(gl.FramebufferTarget, r.state.framebuffer)
	r.framebuffers.set[f] = struct{}{}
	return f, nil
}
