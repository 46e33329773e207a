package regl

import (
	"fmt"

	"github.com/plotly/regl-go/gl"
)

// VAOAttribute describes one vertex attribute binding of a VAO. Bindings
// are positional: the i-th attribute occupies slot i, and commands using
// the VAO must lay their attributes out accordingly.
type VAOAttribute struct {
	Buffer     *Buffer
	Size       int
	Type       gl.Enum // zero means Float
	Normalized bool
	Stride     int
	Offset     int
	Divisor    int

	// Constant attributes have no buffer; the vector below feeds every
	// vertex.
	Constant   bool
	X, Y, Z, W float32
}

// VAO is a pre-baked set of vertex attribute bindings, optionally with an
// element buffer. On hardware with vertex array objects a draw switches
// the whole set in one call; elsewhere the bindings replay through the
// attribute cache each time.
type VAO struct {
	r         *Regl
	handle    gl.VertexArray
	recs      []attrRecord
	elements  *Elements
	destroyed bool
}

// Destroy releases the vertex array object. The buffers it references
// are not destroyed.
func (v *VAO) Destroy() {
	if v.destroyed {
		Logger().Warn("regl: vao destroyed twice")
		return
	}
	v.destroyed = true
	v.r.vaos.remove(v)
	if !v.r.lost && v.handle != (gl.VertexArray{}) {
		v.r.gl.DeleteVertexArray(v.handle)
	}
}

// record bakes the bindings into the native vertex array object. The
// element binding is array state; the array-buffer binding is global and
// tracked through the mirror.
func (v *VAO) record() {
	g := v.r.gl
	s := v.r.state
	g.BindVertexArray(v.handle)
	for slot, rec := range v.recs {
		switch rec.mode {
		case attrPointer:
			g.EnableVertexAttribArray(slot)
			g.BindBuffer(gl.ArrayBuffer, rec.buffer)
			s.arrayBuffer = rec.buffer
			g.VertexAttribPointer(slot, rec.size, rec.ty, rec.normalized, rec.stride, rec.offset)
			if g.Caps().Instancing {
				g.VertexAttribDivisor(slot, rec.divisor)
			}
		case attrConstant:
			g.DisableVertexAttribArray(slot)
			g.VertexAttrib4f(slot, rec.x, rec.y, rec.z, rec.w)
		}
	}
	if v.elements != nil {
		g.BindBuffer(gl.ElementArrayBuffer, v.elements.handle)
	}
	g.BindVertexArray(s.vao)
}

// bind makes the VAO's bindings current for the next draw.
func (v *VAO) bind() {
	s := v.r.state
	if v.handle != (gl.VertexArray{}) {
		s.bindVAO(v.handle)
		return
	}
	s.bindVAO(gl.VertexArray{})
	for slot, rec := range v.recs {
		switch rec.mode {
		case attrPointer:
			s.bindAttribute(slot, rec)
		case attrConstant:
			s.constantAttribute(slot, rec.x, rec.y, rec.z, rec.w)
		}
	}
	if v.elements != nil {
		s.bindElements(v.elements.handle)
	}
}

type vaoManager struct {
	r   *Regl
	set map[*VAO]struct{}
}

func newVAOManager(r *Regl) *vaoManager {
	return &vaoManager{r: r, set: make(map[*VAO]struct{})}
}

func (m *vaoManager) remove(v *VAO) { delete(m.set, v) }

// restore re-records every native VAO after the buffer managers have
// recreated the underlying buffers.
func (m *vaoManager) restore() {
	for v := range m.set {
		for i := range v.recs {
			if v.recs[i].mode == attrPointer && v.recs[i].srcBuffer != nil {
				v.recs[i].buffer = v.recs[i].srcBuffer.handle
			}
		}
		if v.handle != (gl.VertexArray{}) {
			v.handle = m.r.gl.CreateVertexArray()
			v.record()
		}
	}
}

func (m *vaoManager) destroyAll() {
	for v := range m.set {
		v.destroyed = true
		if !m.r.lost && v.handle != (gl.VertexArray{}) {
			m.r.gl.DeleteVertexArray(v.handle)
		}
	}
	m.set = make(map[*VAO]struct{})
}

// newBakedVAO builds a binding set from already-resolved attribute
// records, used for commands whose attributes are fully static.
func newBakedVAO(r *Regl, recs []attrRecord, elems *Elements) *VAO {
	v := &VAO{r: r, recs: recs, elements: elems}
	if r.gl.Caps().VertexArrays {
		v.handle = r.gl.CreateVertexArray()
		v.record()
	}
	r.vaos.set[v] = struct{}{}
	return v
}

// NewVAO bakes a positional set of attribute bindings, optionally with an
// element buffer.
func (r *Regl) NewVAO(attrs []VAOAttribute, elements *Elements) (*VAO, error) {
	if r.lost {
		return nil, ErrContextLost
	}
	if max := r.gl.Caps().MaxVertexAttribs; len(attrs) > max {
		return nil, fmt.Errorf("regl: %d vao attributes exceed the %d slots", len(attrs), max)
	}
	v := &VAO{r: r, elements: elements, recs: make([]attrRecord, len(attrs))}
	for i, a := range attrs {
		if a.Constant {
			v.recs[i] = attrRecord{mode: attrConstant, x: a.X, y: a.Y, z: a.Z, w: a.W}
			continue
		}
		if a.Buffer == nil {
			return nil, fmt.Errorf("regl: vao attribute %d has neither buffer nor constant", i)
		}
		ty := a.Type
		if ty == 0 {
			ty = gl.Float
		}
		size := a.Size
		if size == 0 {
			size = 4
		}
		v.recs[i] = attrRecord{
			mode:       attrPointer,
			buffer:     a.Buffer.handle,
			srcBuffer:  a.Buffer,
			size:       size,
			ty:         ty,
			normalized: a.Normalized,
			stride:     a.Stride,
			offset:     a.Offset,
			divisor:    a.Divisor,
		}
	}
	if r.gl.Caps().VertexArrays {
		v.handle = r.gl.CreateVertexArray()
		v.record()
	}
	r.vaos.set[v] = struct{}{}
	return v, nil
}
