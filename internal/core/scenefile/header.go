package scenefile

import (
	"github.com/rotisserie/eris"

	"github.com/dxengine/engine/internal/core/ecs"
)

// File layout, little-endian:
//
//	[version u32][slots u32 = 17][17 x (marker u32, offset u32)]
//	[entity block: marker 1000][count u32][ids u32 x n][flags u64 x n]
//	[component blocks: marker u32, count u32, flat arrays]
//
// Slot i of the header belongs to the component type with value i. A zero
// offset means the block was not written.
const (
	Version     uint32 = 2
	HeaderSlots        = 17

	// EntityBlockMarker tags the entity id/flags block right after the header.
	EntityBlockMarker uint32 = 1000

	headerPrefixSize = 8
	slotSize         = 8
	HeaderSize       = headerPrefixSize + HeaderSlots*slotSize
)

// Header maps each slot to the byte offset of its block.
type Header struct {
	Version uint32
	Offsets [HeaderSlots]uint32
}

// ReserveHeader writes a header with all offsets set to zero. Blocks then
// call MarkBlock to record where they start.
func ReserveHeader(w *Writer) {
	w.WriteU32(Version)
	w.WriteU32(HeaderSlots)
	for i := 0; i < HeaderSlots; i++ {
		w.WriteU32(uint32(i))
		w.WriteU32(0)
	}
}

// MarkBlock records the current write position as the offset of slot ct
// and writes the block marker.
func MarkBlock(w *Writer, ct ecs.ComponentType) {
	w.PatchU32(headerPrefixSize+int(ct)*slotSize+4, uint32(w.Len()))
	w.WriteU32(uint32(ct))
}

// ReadHeader decodes the header and rejects unknown versions.
func ReadHeader(r *Reader) (Header, error) {
	var h Header
	h.Version = r.ReadU32()
	if err := r.Err(); err != nil {
		return h, eris.Wrap(err, "read header")
	}
	if h.Version != Version {
		return h, eris.Wrapf(ecs.ErrUnsupportedVersion, "scene file version %d, supported %d", h.Version, Version)
	}
	slots := r.ReadU32()
	if slots != HeaderSlots {
		return h, eris.Wrapf(ecs.ErrCorruptData, "header has %d slots, want %d", slots, HeaderSlots)
	}
	for i := 0; i < HeaderSlots; i++ {
		marker := r.ReadU32()
		off := r.ReadU32()
		if r.Err() != nil {
			return h, eris.Wrap(r.Err(), "read header")
		}
		if marker != uint32(i) {
			return h, eris.Wrapf(ecs.ErrCorruptData, "header slot %d carries marker %d", i, marker)
		}
		if off != 0 && (off < HeaderSize || int(off) >= len(r.data)) {
			return h, eris.Wrapf(ecs.ErrCorruptData, "header slot %d points to offset %d", i, off)
		}
		h.Offsets[i] = off
	}
	return h, nil
}

// Has reports whether the block of ct was written.
func (h Header) Has(ct ecs.ComponentType) bool {
	return int(ct) < HeaderSlots && h.Offsets[ct] != 0
}

// ExpectMarker reads a u32 and fails with ErrCorruptData if it is not want.
func ExpectMarker(r *Reader, want uint32, block string) error {
	got := r.ReadU32()
	if err := r.Err(); err != nil {
		return eris.Wrapf(err, "read %s marker", block)
	}
	if got != want {
		return eris.Wrapf(ecs.ErrCorruptData, "%s block: marker %d, want %d", block, got, want)
	}
	return nil
}

// OpenBlock seeks to the block of ct and checks its marker.
func OpenBlock(r *Reader, h Header, ct ecs.ComponentType) error {
	r.Seek(int(h.Offsets[ct]))
	return ExpectMarker(r, uint32(ct), ct.String())
}

// EntityCount reads the header and the count of the entity block without
// decoding the rest of the file.
func EntityCount(data []byte) (int, error) {
	r := NewReader(data)
	if _, err := ReadHeader(r); err != nil {
		return 0, err
	}
	if err := ExpectMarker(r, EntityBlockMarker, "entity"); err != nil {
		return 0, err
	}
	n := r.ReadCount(12)
	if err := r.Err(); err != nil {
		return 0, eris.Wrap(err, "read entity count")
	}
	return n, nil
}
