package scenefile

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Writer builds a scene file in memory. All multi-byte writes are little-endian.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 4096)}
}

// WriteU32 writes 4 bytes little-endian unsigned.
func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteU64 writes 8 bytes little-endian unsigned.
func (w *Writer) WriteU64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteF32(v float32) {
	w.WriteU32(math.Float32bits(v))
}

// WriteCount writes a slice length as u32.
func (w *Writer) WriteCount(n int) {
	w.WriteU32(uint32(n))
}

func (w *Writer) WriteVec2(v mgl32.Vec2) {
	w.WriteF32(v[0])
	w.WriteF32(v[1])
}

func (w *Writer) WriteVec3(v mgl32.Vec3) {
	for _, f := range v {
		w.WriteF32(f)
	}
}

func (w *Writer) WriteVec4(v mgl32.Vec4) {
	for _, f := range v {
		w.WriteF32(f)
	}
}

// WriteQuat writes x, y, z, w.
func (w *Writer) WriteQuat(q mgl32.Quat) {
	w.WriteVec3(q.V)
	w.WriteF32(q.W)
}

// WriteMat4 writes the 16 floats in column-major order.
func (w *Writer) WriteMat4(m mgl32.Mat4) {
	for _, f := range m {
		w.WriteF32(f)
	}
}

// WriteString writes [len u32][raw bytes].
func (w *Writer) WriteString(s string) {
	w.WriteU32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// PatchU32 overwrites 4 bytes at off. Used to fill header offsets once
// the blocks have been written.
func (w *Writer) PatchU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[off:], v)
}

// Bytes returns the content written so far.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current length, i.e. the offset of the next write.
func (w *Writer) Len() int {
	return len(w.buf)
}
