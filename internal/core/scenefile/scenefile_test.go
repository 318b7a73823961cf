package scenefile

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"

	"github.com/dxengine/engine/internal/core/ecs"
)

// go test -run ^TestHeaderOffsets$ . -count 1
func TestHeaderOffsets(t *testing.T) {
	w := NewWriter()
	ReserveHeader(w)
	if w.Len() != HeaderSize {
		t.Fatalf("header size %d, want %d", w.Len(), HeaderSize)
	}
	w.WriteU32(EntityBlockMarker)
	w.WriteCount(0)

	MarkBlock(w, ecs.NameComponent)
	w.WriteCount(1)
	w.WriteString("cube")

	r := NewReader(w.Bytes())
	h, err := ReadHeader(r)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if !h.Has(ecs.NameComponent) || h.Has(ecs.TransformComponent) {
		t.Fatalf("unexpected offsets %v", h.Offsets)
	}
	if err := OpenBlock(r, h, ecs.NameComponent); err != nil {
		t.Fatal(err)
	}
	if n := r.ReadCount(4); n != 1 {
		t.Fatalf("count = %d", n)
	}
	if s := r.ReadString(); s != "cube" {
		t.Errorf("ReadString = %q", s)
	}
	if r.Err() != nil || r.Remaining() != 0 {
		t.Errorf("err=%v remaining=%d", r.Err(), r.Remaining())
	}
}

// go test -run ^TestHeaderVersion$ . -count 1
func TestHeaderVersion(t *testing.T) {
	w := NewWriter()
	ReserveHeader(w)
	w.PatchU32(0, 1)

	if _, err := ReadHeader(NewReader(w.Bytes())); !eris.Is(err, ecs.ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

// go test -run ^TestMarkerMismatch$ . -count 1
func TestMarkerMismatch(t *testing.T) {
	w := NewWriter()
	ReserveHeader(w)
	MarkBlock(w, ecs.MoveComponent)
	w.PatchU32(w.Len()-4, 77)

	r := NewReader(w.Bytes())
	h, err := ReadHeader(r)
	if err != nil {
		t.Fatal(err)
	}
	if err := OpenBlock(r, h, ecs.MoveComponent); !eris.Is(err, ecs.ErrCorruptData) {
		t.Errorf("expected ErrCorruptData, got %v", err)
	}
}

// go test -run ^TestReaderTruncated$ . -count 1
func TestReaderTruncated(t *testing.T) {
	w := NewWriter()
	w.WriteQuat(mgl32.Quat{W: 1, V: mgl32.Vec3{0.5, 0.25, 0.125}})
	w.WriteMat4(mgl32.Translate3D(1, 2, 3))
	data := w.Bytes()

	r := NewReader(data)
	q := r.ReadQuat()
	m := r.ReadMat4()
	if q.W != 1 || q.V[2] != 0.125 || m.At(0, 3) != 1 || m.At(2, 3) != 3 {
		t.Errorf("bad decode: q=%v m=%v", q, m)
	}

	r = NewReader(data[:10])
	r.ReadQuat()
	if !eris.Is(r.Err(), ecs.ErrCorruptData) {
		t.Errorf("expected ErrCorruptData on truncated input, got %v", r.Err())
	}

	r = NewReader([]byte{0xff, 0xff, 0xff, 0x00})
	if n := r.ReadCount(4); n != 0 || r.Err() == nil {
		t.Errorf("oversized count accepted: %d", n)
	}
}

// go test -run ^TestEntityCount$ . -count 1
func TestEntityCount(t *testing.T) {
	w := NewWriter()
	ReserveHeader(w)
	w.WriteU32(EntityBlockMarker)
	w.WriteU32(2)
	w.WriteU32(10)
	w.WriteU32(11)
	w.WriteU64(1)
	w.WriteU64(3)

	if n, err := EntityCount(w.Bytes()); err != nil || n != 2 {
		t.Errorf("EntityCount = %d, %v", n, err)
	}
	if _, err := EntityCount(w.Bytes()[:HeaderSize+8]); !eris.Is(err, ecs.ErrCorruptData) {
		t.Errorf("truncated ids accepted: %v", err)
	}
	if _, err := EntityCount(w.Bytes()[:4]); err == nil {
		t.Error("truncated header accepted")
	}
}
