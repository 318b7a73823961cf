package scenefile

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"

	"github.com/dxengine/engine/internal/core/ecs"
)

// maxCount caps element counts read from a file so a corrupt count cannot
// trigger a huge allocation.
const maxCount = 1 << 26

// Reader reads scene file fields. The first out-of-range read records an
// error and every later read returns zero values; check Err once per block.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) Err() error { return r.err }

func (r *Reader) fail(n int) bool {
	if r.err != nil {
		return true
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = eris.Wrapf(ecs.ErrCorruptData, "read %d bytes at offset %d: file has %d bytes", n, r.off, len(r.data))
		return true
	}
	return false
}

// Seek moves to an absolute offset.
func (r *Reader) Seek(off int) {
	if r.err != nil {
		return
	}
	if off < 0 || off > len(r.data) {
		r.err = eris.Wrapf(ecs.ErrCorruptData, "seek to %d: file has %d bytes", off, len(r.data))
		return
	}
	r.off = off
}

// Offset returns the current read position.
func (r *Reader) Offset() int { return r.off }

// ReadU32 reads 4 bytes as little-endian uint32.
func (r *Reader) ReadU32() uint32 {
	if r.fail(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

// ReadU64 reads 8 bytes as little-endian uint64.
func (r *Reader) ReadU64() uint64 {
	if r.fail(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v
}

func (r *Reader) ReadF32() float32 {
	return math.Float32frombits(r.ReadU32())
}

// ReadCount reads a u32 element count and validates it against the
// remaining bytes, assuming each element takes at least minSize bytes.
func (r *Reader) ReadCount(minSize int) int {
	n := int(r.ReadU32())
	if r.err != nil {
		return 0
	}
	if n > maxCount || (minSize > 0 && n*minSize > r.Remaining()) {
		r.err = eris.Wrapf(ecs.ErrCorruptData, "element count %d exceeds remaining %d bytes", n, r.Remaining())
		return 0
	}
	return n
}

func (r *Reader) ReadVec2() mgl32.Vec2 {
	return mgl32.Vec2{r.ReadF32(), r.ReadF32()}
}

func (r *Reader) ReadVec3() mgl32.Vec3 {
	return mgl32.Vec3{r.ReadF32(), r.ReadF32(), r.ReadF32()}
}

func (r *Reader) ReadVec4() mgl32.Vec4 {
	return mgl32.Vec4{r.ReadF32(), r.ReadF32(), r.ReadF32(), r.ReadF32()}
}

// ReadQuat reads x, y, z, w.
func (r *Reader) ReadQuat() mgl32.Quat {
	v := r.ReadVec3()
	return mgl32.Quat{W: r.ReadF32(), V: v}
}

func (r *Reader) ReadMat4() mgl32.Mat4 {
	var m mgl32.Mat4
	for i := range m {
		m[i] = r.ReadF32()
	}
	return m
}

// ReadString reads [len u32][raw bytes].
func (r *Reader) ReadString() string {
	n := int(r.ReadU32())
	if r.fail(n) {
		return ""
	}
	s := string(r.data[r.off : r.off+n])
	r.off += n
	return s
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}
