package regl

import (
	"testing"

	"github.com/plotly/regl-go/gl"
)

func TestNewElementsInference(t *testing.T) {
	tests := []struct {
		name          string
		data          any
		wantType      gl.Enum
		wantPrimitive gl.Enum
		wantCount     int
	}{
		{"uint8", []uint8{0, 1, 2}, gl.UnsignedByte, gl.Triangles, 3},
		{"uint16", []uint16{0, 1, 2, 2, 3, 0}, gl.UnsignedShort, gl.Triangles, 6},
		{"uint32", []uint32{0, 1, 2}, gl.UnsignedInt, gl.Triangles, 3},
		{"line pairs", [][2]uint16{{0, 1}, {1, 2}}, gl.UnsignedShort, gl.Lines, 4},
		{"triangle triples", [][3]uint16{{0, 1, 2}, {2, 3, 0}}, gl.UnsignedShort, gl.Triangles, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRegl(t)
			e, err := r.NewElements(tt.data)
			if err != nil {
				t.Fatalf("NewElements() error = %v", err)
			}
			if e.IndexType() != tt.wantType {
				t.Errorf("IndexType() = 0x%04x, want 0x%04x", uint32(e.IndexType()), uint32(tt.wantType))
			}
			if e.Primitive() != tt.wantPrimitive {
				t.Errorf("Primitive() = 0x%04x, want 0x%04x", uint32(e.Primitive()), uint32(tt.wantPrimitive))
			}
			if e.VertexCount() != tt.wantCount {
				t.Errorf("VertexCount() = %d, want %d", e.VertexCount(), tt.wantCount)
			}
		})
	}
}

func TestNewElementsUnsupported(t *testing.T) {
	r, _ := newTestRegl(t)
	if _, err := r.NewElements([]float32{0, 1, 2}); err == nil {
		t.Error("float indices accepted")
	}
}

func TestUint16sToBytes(t *testing.T) {
	got := uint16sToBytes([]uint16{0x0102, 0x0304})
	want := []byte{0x02, 0x01, 0x04, 0x03}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("uint16sToBytes = % x, want % x", got, want)
		}
	}
}

func TestElementsDestroy(t *testing.T) {
	r, g := newTestRegl(t)
	e, _ := r.NewElements([]uint16{0, 1, 2})
	e.Destroy()
	if n := g.CountCalls("deleteBuffer"); n != 1 {
		t.Errorf("deleteBuffer calls = %d, want 1", n)
	}
}
