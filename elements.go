package regl

import (
	"fmt"

	"github.com/plotly/regl-go/gl"
)

// Elements is a GPU index buffer with inferred draw metadata: index
// type, index count, primitive shape, and the vertex count used to
// derive default draw parameters.
type Elements struct {
	r         *Regl
	handle    gl.Buffer
	indexType gl.Enum
	primitive gl.Enum
	count     int
	retained  []byte
	destroyed bool
}

// IndexType returns the GL index type (UnsignedByte, UnsignedShort or
// UnsignedInt).
func (e *Elements) IndexType() gl.Enum { return e.indexType }

// Primitive returns the primitive inferred from the element shape.
func (e *Elements) Primitive() gl.Enum { return e.primitive }

// VertexCount returns the number of indices.
func (e *Elements) VertexCount() int { return e.count }

// Destroy releases the GPU index buffer.
func (e *Elements) Destroy() {
	if e.destroyed {
		Logger().Warn("regl: elements destroyed twice")
		return
	}
	e.destroyed = true
	e.r.elements.remove(e)
	if !e.r.lost {
		e.r.gl.DeleteBuffer(e.handle)
	}
}

type elementsManager struct {
	r   *Regl
	set map[*Elements]struct{}
}

func newElementsManager(r *Regl) *elementsManager {
	return &elementsManager{r: r, set: make(map[*Elements]struct{})}
}

func (m *elementsManager) remove(e *Elements) { delete(m.set, e) }

func (m *elementsManager) restore() {
	g := m.r.gl
	for e := range m.set {
		e.handle = g.CreateBuffer()
		g.BindBuffer(gl.ElementArrayBuffer, e.handle)
		g.BufferData(gl.ElementArrayBuffer, e.retained, gl.StaticDraw)
	}
}

func (m *elementsManager) destroyAll() {
	for e := range m.set {
		e.destroyed = true
		if !m.r.lost {
			m.r.gl.DeleteBuffer(e.handle)
		}
	}
	m.set = make(map[*Elements]struct{})
}

// NewElements creates an index buffer. Accepted forms:
//
//   - []uint8, []uint16, []uint32: flat index lists, primitive Triangles
//   - [][2]uint16: line segments, primitive Lines
//   - [][3]uint16: triangle triples, primitive Triangles
//
// The inferred primitive and vertex count feed default draw parameters
// for commands that bind these elements without their own.
func (r *Regl) NewElements(data any) (*Elements, error) {
	if r.lost {
		return nil, ErrContextLost
	}
	var (
		bytes     []byte
		indexType gl.Enum
		primitive = gl.Triangles
		count     int
	)
	switch t := data.(type) {
	case []uint8:
		bytes = t
		indexType = gl.UnsignedByte
		count = len(t)
	case []uint16:
		bytes = uint16sToBytes(t)
		indexType = gl.UnsignedShort
		count = len(t)
	case []uint32:
		bytes = uint32sToBytes(t)
		indexType = gl.UnsignedInt
		count = len(t)
	case [][2]uint16:
		flat := make([]uint16, 0, 2*len(t))
		for _, pair := range t {
			flat = append(flat, pair[0], pair[1])
		}
		bytes = uint16sToBytes(flat)
		indexType = gl.UnsignedShort
		primitive = gl.Lines
		count = len(flat)
	case [][3]uint16:
		flat := make([]uint16, 0, 3*len(t))
		for _, tri := range t {
			flat = append(flat, tri[0], tri[1], tri[2])
		}
		bytes = uint16sToBytes(flat)
		indexType = gl.UnsignedShort
		count = len(flat)
	default:
		return nil, fmt.Errorf("regl: unsupported element data type %T", data)
	}
	g := r.gl
	e := &Elements{
		r:         r,
		handle:    g.CreateBuffer(),
		indexType: indexType,
		primitive: primitive,
		count:     count,
		retained:  append([]byte(nil), bytes...),
	}
	g.BindBuffer(gl.ElementArrayBuffer, e.handle)
	g.BufferData(gl.ElementArrayBuffer, bytes, gl.StaticDraw)
	r.state.elements = e.handle
	r.elements.set[e] = struct{}{}
	return e, nil
}

func uint16sToBytes(src []uint16) []byte {
	out := make([]byte, 2*len(src))
	for i, v := range src {
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

func uint32sToBytes(src []uint32) []byte {
	out := make([]byte, 4*len(src))
	for i, v := range src {
		out[4*i] = byte(v)
		out[4*i+1] = byte(v >> 8)
		out[4*i+2] = byte(v >> 16)
		out[4*i+3] = byte(v >> 24)
	}
	return out
}
