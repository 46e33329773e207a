package regl

import (
	"testing"

	"github.com/plotly/regl-go/gl/gltest"
)

func newTestRegl(t *testing.T) (*Regl, *gltest.Context) {
	t.Helper()
	g := gltest.New()
	r, err := New(g, 100, 100)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	g.ClearCalls()
	return r, g
}

func TestPackVertexData(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		wantLen  int
		wantSize int
		wantErr  bool
	}{
		{name: "bytes", data: []byte{1, 2, 3}, wantLen: 3},
		{name: "floats", data: []float32{1, 2, 3}, wantLen: 12},
		{name: "nested", data: [][]float32{{0, 0}, {1, 0}, {0, 1}}, wantLen: 24, wantSize: 2},
		{name: "vec2", data: [][2]float32{{0, 0}, {1, 1}}, wantLen: 16, wantSize: 2},
		{name: "vec3", data: [][3]float32{{0, 0, 0}}, wantLen: 12, wantSize: 3},
		{name: "vec4", data: [][4]float32{{0, 0, 0, 1}}, wantLen: 16, wantSize: 4},
		{name: "ragged", data: [][]float32{{0, 0}, {1}}, wantErr: true},
		{name: "empty nested", data: [][]float32{}, wantErr: true},
		{name: "unsupported", data: "vertices", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bytes, size, err := packVertexData(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("packVertexData() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if len(bytes) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(bytes), tt.wantLen)
			}
			if size != tt.wantSize {
				t.Errorf("size = %d, want %d", size, tt.wantSize)
			}
		})
	}
}

func TestPackVertexDataLittleEndian(t *testing.T) {
	bytes, _, err := packVertexData([]float32{1})
	if err != nil {
		t.Fatalf("packVertexData() error = %v", err)
	}
	want := []byte{0x00, 0x00, 0x80, 0x3f}
	for i := range want {
		if bytes[i] != want[i] {
			t.Fatalf("bytes = % x, want % x", bytes, want)
		}
	}
}

func TestNewBuffer(t *testing.T) {
	r, g := newTestRegl(t)
	b, err := r.NewBuffer([]float32{0, 0, 1, 0, 0, 1})
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	if b.ByteLength() != 24 {
		t.Errorf("ByteLength() = %d, want 24", b.ByteLength())
	}
	if n := g.CountCalls("bufferData"); n != 1 {
		t.Errorf("bufferData calls = %d, want 1", n)
	}
}

func TestBufferSubdata(t *testing.T) {
	r, g := newTestRegl(t)
	b, err := r.NewBuffer([]float32{0, 0, 0, 0})
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}

	if err := b.Subdata(4, []float32{9}); err != nil {
		t.Fatalf("Subdata() error = %v", err)
	}
	if n := g.CountCalls("bufferSubData"); n != 1 {
		t.Errorf("bufferSubData calls = %d, want 1", n)
	}

	if err := b.Subdata(16, []float32{1}); err == nil {
		t.Error("out-of-range Subdata succeeded")
	}
	if err := b.Subdata(-1, []float32{1}); err == nil {
		t.Error("negative-offset Subdata succeeded")
	}
}

func TestStreamPoolReuse(t *testing.T) {
	r, g := newTestRegl(t)
	b1 := r.buffers.createStream([]byte{1, 2, 3, 4})
	r.buffers.destroyStream(b1)
	g.ClearCalls()

	b2 := r.buffers.createStream([]byte{5, 6, 7, 8})
	if b2 != b1 {
		t.Error("stream lease did not reuse the pooled buffer")
	}
	if n := g.CountCalls("createBuffer"); n != 0 {
		t.Errorf("createBuffer calls on reuse = %d, want 0", n)
	}
	if n := g.CountCalls("bufferData"); n != 1 {
		t.Errorf("bufferData calls on reuse = %d, want 1", n)
	}
}

func TestBufferDestroy(t *testing.T) {
	r, g := newTestRegl(t)
	b, _ := r.NewBuffer([]float32{1})
	b.Destroy()
	if n := g.CountCalls("deleteBuffer"); n != 1 {
		t.Errorf("deleteBuffer calls = %d, want 1", n)
	}
	if err := b.Subdata(0, []float32{2}); err != ErrDestroyed {
		t.Errorf("Subdata after destroy = %v, want ErrDestroyed", err)
	}
}

func TestNewBufferWhileLost(t *testing.T) {
	r, _ := newTestRegl(t)
	r.LoseContext()
	if _, err := r.NewBuffer([]float32{1}); err != ErrContextLost {
		t.Errorf("NewBuffer() while lost = %v, want ErrContextLost", err)
	}
}
