package persist

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/world"
)

func sceneBlob(t *testing.T, n int) []byte {
	t.Helper()
	m := world.NewEntityManager(zap.NewNop(), world.WithSeed(5))
	ids, err := m.CreateEntities(n)
	if err != nil {
		t.Fatal(err)
	}
	pos := make([]mgl32.Vec3, n)
	dirs := make([]mgl32.Quat, n)
	scales := make([]float32, n)
	for i := range ids {
		pos[i] = mgl32.Vec3{float32(i), 0, 0}
		dirs[i] = mgl32.QuatIdent()
		scales[i] = 1
	}
	if err := m.AddTransformComponent(ids, pos, dirs, scales); err != nil {
		t.Fatal(err)
	}
	blob, err := m.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	return blob
}

// go test -run ^TestNewSnapshot$ . -count 1
func TestNewSnapshot(t *testing.T) {
	blob := sceneBlob(t, 4)
	s, err := NewSnapshot("demo", blob)
	if err != nil {
		t.Fatal(err)
	}
	if s.Entities != 4 || s.Name != "demo" || len(s.Checksum) != 32 {
		t.Errorf("snapshot = %+v", s)
	}
	if err := s.Verify(); err != nil {
		t.Errorf("Verify() = %v", err)
	}

	other, err := NewSnapshot("demo", blob)
	if err != nil {
		t.Fatal(err)
	}
	if other.ID == s.ID {
		t.Error("snapshot ids repeat")
	}

	t.Run("tampered", func(t *testing.T) {
		bad := s
		bad.Data = append([]byte(nil), blob...)
		bad.Data[len(bad.Data)-1] ^= 0xff
		if err := bad.Verify(); !errors.Is(err, ErrChecksum) {
			t.Errorf("Verify() = %v, want ErrChecksum", err)
		}
	})

	t.Run("not a scene", func(t *testing.T) {
		if _, err := NewSnapshot("junk", []byte("hello")); err == nil {
			t.Error("junk blob accepted")
		}
	})
}
