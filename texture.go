package regl

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"

	"github.com/plotly/regl-go/gl"
)

// TextureOptions configures a 2D texture. Either Data (raw pixels in the
// chosen Format, tightly packed) or Image (converted to RGBA) supplies
// the contents; both nil allocates an uninitialized texture of the given
// size, which is the usual shape for framebuffer color attachments.
type TextureOptions struct {
	Width, Height int
	Format        gputypes.TextureFormat
	Data          []byte
	Image         image.Image

	MinFilter gl.Enum
	MagFilter gl.Enum
	WrapS     gl.Enum
	WrapT     gl.Enum
	FlipY     bool
}

// Texture is a 2D GPU texture. Textures referenced by uniforms lease a
// texture unit for the duration of the draw that samples them.
type Texture struct {
	r      *Regl
	handle gl.Texture
	width  int
	height int
	format gputypes.TextureFormat

	glFormat gl.Enum
	glType   gl.Enum

	opts     TextureOptions
	retained []byte

	unit  int // leased unit, -1 when unbound
	binds int

	destroyed bool
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.height }

// Format returns the texture's pixel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Destroy releases the GPU texture.
func (t *Texture) Destroy() {
	if t.destroyed {
		Logger().Warn("regl: texture destroyed twice")
		return
	}
	t.destroyed = true
	t.r.textures.remove(t)
	if !t.r.lost {
		t.r.gl.DeleteTexture(t.handle)
	}
}

// bind leases a texture unit and binds the texture to it, returning the
// unit index for the sampler uniform. Nested draws sampling the same
// texture share the lease.
func (t *Texture) bind() int {
	t.binds++
	if t.binds > 1 {
		return t.unit
	}
	t.unit = t.r.textures.lease(t)
	g := t.r.gl
	g.ActiveTexture(gl.Texture0 + gl.Enum(t.unit))
	g.BindTexture(gl.Texture2D, t.handle)
	return t.unit
}

// unbind releases the lease taken by bind.
func (t *Texture) unbind() {
	t.binds--
	if t.binds > 0 {
		return
	}
	t.r.textures.unlease(t)
	t.unit = -1
}

// textureFormatGL maps a texture format to its GL upload parameters and
// bytes per pixel.
func textureFormatGL(f gputypes.TextureFormat) (format, ty gl.Enum, bpp int, err error) {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm:
		return gl.RGBA, gl.UnsignedByte, 4, nil
	case gputypes.TextureFormatBGRA8Unorm:
		// Uploaded as RGBA after a channel swap; GLES has no BGRA.
		return gl.RGBA, gl.UnsignedByte, 4, nil
	case gputypes.TextureFormatR8Unorm:
		return gl.Luminance, gl.UnsignedByte, 1, nil
	default:
		return 0, 0, 0, fmt.Errorf("regl: unsupported texture format %v", f)
	}
}

func swapBGRA(px []byte) []byte {
	out := append([]byte(nil), px...)
	for i := 0; i+3 < len(out); i += 4 {
		out[i], out[i+2] = out[i+2], out[i]
	}
	return out
}

// imageToRGBA converts an arbitrary image to tightly packed RGBA bytes.
func imageToRGBA(src image.Image) (px []byte, w, h int) {
	b := src.Bounds()
	w, h = b.Dx(), b.Dy()
	rgba, ok := src.(*image.RGBA)
	if !ok || rgba.Stride != 4*w || !b.Min.Eq(image.Point{}) {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
		rgba = dst
	}
	return rgba.Pix, w, h
}

// textureManager owns live textures and the texture-unit lease table.
type textureManager struct {
	r     *Regl
	set   map[*Texture]struct{}
	units []*Texture
	clock int
}

func newTextureManager(r *Regl) *textureManager {
	return &textureManager{
		r:     r,
		set:   make(map[*Texture]struct{}),
		units: make([]*Texture, r.gl.Caps().MaxTextureUnits),
	}
}

func (m *textureManager) remove(t *Texture) {
	delete(m.set, t)
	if t.binds > 0 {
		m.unlease(t)
	}
}

// lease picks a texture unit: a free one if any, else round-robin over
// units whose occupant is not currently bound by an active draw.
func (m *textureManager) lease(t *Texture) int {
	for i, occ := range m.units {
		if occ == nil {
			m.units[i] = t
			return i
		}
	}
	for range m.units {
		i := m.clock
		m.clock = (m.clock + 1) % len(m.units)
		if m.units[i].binds == 0 {
			m.units[i].unit = -1
			m.units[i] = t
			return i
		}
	}
	// Every unit pinned by the current draw. More samplers than units is
	// a program the hardware cannot run anyway.
	Logger().Error("regl: texture unit overflow", "units", len(m.units))
	return 0
}

func (m *textureManager) unlease(t *Texture) {
	for i, occ := range m.units {
		if occ == t {
			m.units[i] = nil
			return
		}
	}
}

func (m *textureManager) upload(t *Texture, px []byte) {
	g := m.r.gl
	g.BindTexture(gl.Texture2D, t.handle)
	g.PixelStorei(gl.UnpackAlignment, 1)
	if t.opts.FlipY {
		g.PixelStorei(gl.UnpackFlipY, 1)
		defer g.PixelStorei(gl.UnpackFlipY, 0)
	}
	g.TexImage2D(gl.Texture2D, 0, t.glFormat, t.width, t.height, t.glFormat, t.glType, px)
	g.TexParameteri(gl.Texture2D, gl.TextureMinFilter, t.opts.MinFilter)
	g.TexParameteri(gl.Texture2D, gl.TextureMagFilter, t.opts.MagFilter)
	g.TexParameteri(gl.Texture2D, gl.TextureWrapS, t.opts.WrapS)
	g.TexParameteri(gl.Texture2D, gl.TextureWrapT, t.opts.WrapT)
}

func (m *textureManager) restore() {
	for i := range m.units {
		m.units[i] = nil
	}
	g := m.r.gl
	for t := range m.set {
		t.handle = g.CreateTexture()
		t.unit = -1
		t.binds = 0
		m.upload(t, t.retained)
	}
}

func (m *textureManager) destroyAll() {
	for t := range m.set {
		t.destroyed = true
		if !m.r.lost {
			m.r.gl.DeleteTexture(t.handle)
		}
	}
	m.set = make(map[*Texture]struct{})
	for i := range m.units {
		m.units[i] = nil
	}
}

// NewTexture creates a 2D texture. A zero Format means RGBA8; zero
// filter and wrap values mean Nearest and ClampToEdge.
func (r *Regl) NewTexture(opts TextureOptions) (*Texture, error) {
	if r.lost {
		return nil, ErrContextLost
	}
	if opts.Format == gputypes.TextureFormatUndefined {
		opts.Format = gputypes.TextureFormatRGBA8Unorm
	}
	if opts.MinFilter == 0 {
		opts.MinFilter = gl.Nearest
	}
	if opts.MagFilter == 0 {
		opts.MagFilter = gl.Nearest
	}
	if opts.WrapS == 0 {
		opts.WrapS = gl.ClampToEdge
	}
	if opts.WrapT == 0 {
		opts.WrapT = gl.ClampToEdge
	}

	var px []byte
	w, h := opts.Width, opts.Height
	switch {
	case opts.Image != nil:
		opts.Format = gputypes.TextureFormatRGBA8Unorm
		px, w, h = imageToRGBA(opts.Image)
	case opts.Data != nil:
		px = opts.Data
	}

	format, ty, bpp, err := textureFormatGL(opts.Format)
	if err != nil {
		return nil, err
	}
	if opts.Format == gputypes.TextureFormatBGRA8Unorm && px != nil {
		px = swapBGRA(px)
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("regl: invalid texture size %dx%d", w, h)
	}
	if max := r.gl.Caps().MaxTextureSize; w > max || h > max {
		return nil, fmt.Errorf("regl: texture size %dx%d exceeds limit %d", w, h, max)
	}
	if px != nil && len(px) != w*h*bpp {
		return nil, fmt.Errorf("regl: texture data length %d, want %d", len(px), w*h*bpp)
	}

	t := &Texture{
		r:        r,
		handle:   r.gl.CreateTexture(),
		width:    w,
		height:   h,
		format:   opts.Format,
		glFormat: format,
		glType:   ty,
		opts:     opts,
		retained: append([]byte(nil), px...),
		unit:     -1,
	}
	t.opts.Image = nil
	t.opts.Data = nil
	r.textures.upload(t, px)
	r.textures.set[t] = struct{}{}
	return t, nil
}
