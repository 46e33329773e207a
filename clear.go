package regl

import (
	"github.com/gogpu/gputypes"

	"github.com/plotly/regl-go/gl"
)

// ClearOptions selects which planes to clear and with what values. Nil
// fields leave their plane untouched.
type ClearOptions struct {
	Color   *gputypes.Color
	Depth   *float32
	Stencil *int32

	// Framebuffer overrides the clear target; nil clears the target of
	// the enclosing scope (the drawing buffer by default).
	Framebuffer *Framebuffer
}

// Clear fills the selected planes of the current render target. Pending
// scope state (scissor box, color mask) is flushed first, so a clear
// inside a scissored scope clears only the scissor box.
func (r *Regl) Clear(opts ClearOptions) error {
	if r.destroyed {
		return ErrDestroyed
	}
	if r.lost {
		return ErrContextLost
	}
	fbo := r.scopeFBO
	if opts.Framebuffer != nil {
		fbo = opts.Framebuffer
	}
	var h gl.Framebuffer
	if fbo != nil {
		if fbo.destroyed {
			return ErrDestroyed
		}
		h = fbo.handle
	}
	r.state.bindFramebuffer(h)
	r.state.poll(0)

	g := r.gl
	var mask gl.Enum
	if c := opts.Color; c != nil {
		g.ClearColor(float32(c.R), float32(c.G), float32(c.B), float32(c.A))
		mask |= gl.ColorBufferBit
	}
	if d := opts.Depth; d != nil {
		g.ClearDepth(*d)
		mask |= gl.DepthBufferBit
	}
	if s := opts.Stencil; s != nil {
		g.ClearStencil(*s)
		mask |= gl.StencilBufferBit
	}
	if mask == 0 {
		Logger().Warn("regl: clear with no planes selected")
		return nil
	}
	g.Clear(mask)
	return nil
}
