package regl

import (
	"fmt"
	"math"

	"github.com/plotly/regl-go/gl"
)

// Buffer is a GPU vertex buffer. Buffers created from inline data keep a
// CPU copy so they can be recreated after context restoration.
type Buffer struct {
	r         *Regl
	handle    gl.Buffer
	target    gl.Enum
	usage     gl.Enum
	byteLen   int
	retained  []byte
	stream    bool
	destroyed bool
}

// GLHandle returns the underlying GL buffer object.
func (b *Buffer) GLHandle() gl.Buffer { return b.handle }

// ByteLength returns the buffer's size in bytes.
func (b *Buffer) ByteLength() int { return b.byteLen }

// Subdata replaces a range of the buffer contents.
func (b *Buffer) Subdata(offset int, data any) error {
	if b.destroyed {
		return ErrDestroyed
	}
	if b.r.lost {
		return ErrContextLost
	}
	bytes, _, err := packVertexData(data)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(bytes) > b.byteLen {
		return fmt.Errorf("regl: buffer subdata out of range: offset %d + %d bytes > %d", offset, len(bytes), b.byteLen)
	}
	g := b.r.gl
	g.BindBuffer(b.target, b.handle)
	g.BufferSubData(b.target, offset, bytes)
	if b.retained != nil {
		copy(b.retained[offset:], bytes)
	}
	if b.target == gl.ArrayBuffer {
		b.r.state.arrayBuffer = b.handle
	}
	return nil
}

// Destroy releases the GPU buffer.
func (b *Buffer) Destroy() {
	if b.destroyed {
		Logger().Warn("regl: buffer destroyed twice")
		return
	}
	b.destroyed = true
	b.r.buffers.remove(b)
	if !b.r.lost {
		b.r.gl.DeleteBuffer(b.handle)
	}
}

// bufferManager owns every live buffer so that context restoration can
// recreate them from their retained data, plus a pool of stream buffers
// for inline per-call attribute data.
type bufferManager struct {
	r       *Regl
	buffers map[*Buffer]struct{}
	pool    []*Buffer
}

func newBufferManager(r *Regl) *bufferManager {
	return &bufferManager{r: r, buffers: make(map[*Buffer]struct{})}
}

func (m *bufferManager) create(target gl.Enum, data []byte, usage gl.Enum) *Buffer {
	g := m.r.gl
	b := &Buffer{
		r:        m.r,
		handle:   g.CreateBuffer(),
		target:   target,
		usage:    usage,
		byteLen:  len(data),
		retained: append([]byte(nil), data...),
	}
	g.BindBuffer(target, b.handle)
	g.BufferData(target, data, usage)
	if target == gl.ArrayBuffer {
		m.r.state.arrayBuffer = b.handle
	} else if target == gl.ElementArrayBuffer {
		m.r.state.elements = b.handle
	}
	m.buffers[b] = struct{}{}
	return b
}

func (m *bufferManager) remove(b *Buffer) { delete(m.buffers, b) }

// createStream leases a pooled buffer for inline array data. The buffer
// lives only until the invocation that created it returns.
func (m *bufferManager) createStream(data []byte) *Buffer {
	var b *Buffer
	if n := len(m.pool); n > 0 {
		b = m.pool[n-1]
		m.pool = m.pool[:n-1]
		g := m.r.gl
		g.BindBuffer(gl.ArrayBuffer, b.handle)
		g.BufferData(gl.ArrayBuffer, data, gl.StreamDraw)
		m.r.state.arrayBuffer = b.handle
		b.byteLen = len(data)
	} else {
		b = m.create(gl.ArrayBuffer, data, gl.StreamDraw)
		b.retained = nil
	}
	b.stream = true
	return b
}

// destroyStream returns a stream buffer to the pool.
func (m *bufferManager) destroyStream(b *Buffer) {
	b.stream = false
	m.pool = append(m.pool, b)
}

// restore recreates every live buffer after context restoration.
// Stream pool entries are discarded; they hold no retained data.
func (m *bufferManager) restore() {
	m.pool = nil
	g := m.r.gl
	for b := range m.buffers {
		b.handle = g.CreateBuffer()
		g.BindBuffer(b.target, b.handle)
		g.BufferData(b.target, b.retained, b.usage)
	}
}

func (m *bufferManager) destroyAll() {
	for b := range m.buffers {
		b.destroyed = true
		if !m.r.lost {
			m.r.gl.DeleteBuffer(b.handle)
		}
	}
	m.buffers = make(map[*Buffer]struct{})
	m.pool = nil
}

// NewBuffer creates a GPU vertex buffer from inline data. Accepted
// forms: []byte, []float32, [][]float32 (flattened; inner lengths must
// agree), and the fixed-size vector forms [][2]float32 through
// [][4]float32.
func (r *Regl) NewBuffer(data any) (*Buffer, error) {
	if r.lost {
		return nil, ErrContextLost
	}
	bytes, _, err := packVertexData(data)
	if err != nil {
		return nil, err
	}
	return r.buffers.create(gl.ArrayBuffer, bytes, gl.StaticDraw), nil
}

func putFloat32(dst []byte, v float32) {
	bits := math.Float32bits(v)
	dst[0] = byte(bits)
	dst[1] = byte(bits >> 8)
	dst[2] = byte(bits >> 16)
	dst[3] = byte(bits >> 24)
}

func floatsToBytes(src []float32) []byte {
	out := make([]byte, 4*len(src))
	for i, v := range src {
		putFloat32(out[4*i:], v)
	}
	return out
}

// packVertexData converts inline vertex data to raw bytes, returning
// the inferred component count per vertex (0 when unknowable).
func packVertexData(data any) ([]byte, int, error) {
	switch t := data.(type) {
	case []byte:
		return t, 0, nil
	case []float32:
		return floatsToBytes(t), 0, nil
	case [][]float32:
		if len(t) == 0 {
			return nil, 0, fmt.Errorf("regl: empty vertex data")
		}
		size := len(t[0])
		flat := make([]float32, 0, len(t)*size)
		for i, row := range t {
			if len(row) != size {
				return nil, 0, fmt.Errorf("regl: ragged vertex data: row %d has %d components, want %d", i, len(row), size)
			}
			flat = append(flat, row...)
		}
		return floatsToBytes(flat), size, nil
	case [][2]float32:
		flat := make([]float32, 0, 2*len(t))
		for _, row := range t {
			flat = append(flat, row[0], row[1])
		}
		return floatsToBytes(flat), 2, nil
	case [][3]float32:
		flat := make([]float32, 0, 3*len(t))
		for _, row := range t {
			flat = append(flat, row[0], row[1], row[2])
		}
		return floatsToBytes(flat), 3, nil
	case [][4]float32:
		flat := make([]float32, 0, 4*len(t))
		for _, row := range t {
			flat = append(flat, row[0], row[1], row[2], row[3])
		}
		return floatsToBytes(flat), 4, nil
	default:
		return nil, 0, fmt.Errorf("regl: unsupported vertex data type %T", data)
	}
}
