package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dxengine/engine/internal/component"
	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/world"
)

// go test -run ^TestBuildDump$ . -count 1
func TestBuildDump(t *testing.T) {
	src := world.NewEntityManager(zap.NewNop(), world.WithSeed(8))
	ids, err := src.CreateEntities(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := src.AddTransformComponent(ids[:1], []mgl32.Vec3{{1, 2, 3}}, []mgl32.Quat{mgl32.QuatIdent()}, []float32{1}); err != nil {
		t.Fatal(err)
	}
	if err := src.AddNameComponent(ids, []string{"box", "marker"}); err != nil {
		t.Fatal(err)
	}
	if err := src.AddMeshComponent(ids[:1], []component.MeshID{4}); err != nil {
		t.Fatal(err)
	}
	blob, err := src.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	mgr := world.NewEntityManager(zap.NewNop())
	if err := mgr.UnmarshalBinary(blob); err != nil {
		t.Fatal(err)
	}

	t.Run("summary", func(t *testing.T) {
		dump, err := buildDump(mgr, false)
		if err != nil {
			t.Fatal(err)
		}
		if dump.Entities != 2 || dump.Components["Name"] != 2 || dump.Components["Transform"] != 1 || len(dump.List) != 0 {
			t.Errorf("dump = %+v", dump)
		}
		var out bytes.Buffer
		writeSummary(&out, dump)
		if !strings.Contains(out.String(), "entities: 2") || !strings.Contains(out.String(), "WorldMatrix") {
			t.Errorf("summary:\n%s", out.String())
		}
	})

	t.Run("yaml", func(t *testing.T) {
		dump, err := buildDump(mgr, true)
		if err != nil {
			t.Fatal(err)
		}
		var out bytes.Buffer
		if err := writeYAML(&out, dump); err != nil {
			t.Fatal(err)
		}
		var back SceneDump
		if err := yaml.Unmarshal(out.Bytes(), &back); err != nil {
			t.Fatal(err)
		}
		if len(back.List) != 2 {
			t.Fatalf("list = %+v", back.List)
		}
		box := back.List[0]
		if uint32(ids[0]) > uint32(ids[1]) {
			box = back.List[1]
		}
		if box.Name != "box" || len(box.Position) != 3 || box.Position[2] != 3 || len(box.Meshes) != 1 || box.Meshes[0] != 4 {
			t.Errorf("box = %+v", box)
		}
		if ecs.EntityID(box.ID) != ids[0] {
			t.Errorf("box id = %d, want %d", box.ID, ids[0])
		}
	})
}
