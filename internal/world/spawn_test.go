package world

import (
	"testing"

	"github.com/rotisserie/eris"

	"github.com/dxengine/engine/internal/component"
	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/data"
)

const testScene = `
entities:
  - name: crate
    count: 3
    transform: {position: [0, 1, 0], scale: 0.5}
    move: {translation: [0, 0, 2]}
    meshes: [4]
    render: {shader: texture}
    render_states: [cull_none, alpha_clipping]
    tex_transform: {type: atlas, rows: 2, columns: 4, frame_duration: 0.05}
    bounding: {type: aabb, extents: [1, 1, 1]}
  - name: water
    transform: {}
    meshes: [5]
    render: {shader: light, topology: triangle_strip}
    tex_transform: {type: static, scroll: [0.1, 0, 0]}
  - name: lamp
    light: {type: spot, position: [0, 4, 0], direction: [0, -1, 0], range: 20, spot: 8, attenuation: [1, 0, 0]}
`

// go test -run ^TestSpawnScene$ . -count 1
func TestSpawnScene(t *testing.T) {
	scene, err := data.ParseScene([]byte(testScene))
	if err != nil {
		t.Fatal(err)
	}
	m := newManager()
	n, err := SpawnScene(m, scene)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 || m.Len() != 5 {
		t.Fatalf("spawned %d, Len() = %d", n, m.Len())
	}
	checkSorted(t, m)

	crate := m.Name().GetIDByName("crate_2")
	if crate == ecs.InvalidEntityID || m.Name().GetIDByName("water") == ecs.InvalidEntityID {
		t.Fatalf("names = %v", m.Name().AllNames())
	}
	want := ecs.FlagsOf(ecs.NameComponent, ecs.TransformComponent, ecs.WorldMatrixComponent, ecs.MoveComponent,
		ecs.MeshComponent, ecs.RenderedComponent, ecs.RenderStatesComponent, ecs.TextureTransformComponent, ecs.BoundingComponent)
	if f, _ := m.GetComponentFlagsByIDs([]ecs.EntityID{crate}); f[0] != want {
		t.Errorf("crate flags = %v, want %v", f[0], want)
	}

	rs, err := m.RenderStates().GetRenderStates(m.RenderStates().IDs())
	if err != nil {
		t.Fatal(err)
	}
	if len(rs.EnttsAlphaClipping) != 3 || len(rs.EnttsDefault) != 1 {
		t.Errorf("alpha clipped=%v default=%v", rs.EnttsAlphaClipping, rs.EnttsDefault)
	}
	if typ, _ := m.TextureTransform().GetTransformType(crate); typ != component.TexTransformAtlasAnimation {
		t.Errorf("crate texture transform = %v", typ)
	}
	if m.Light().GetLightsNum(component.LightSpot) != 1 {
		t.Error("spot light missing")
	}

	m.Update(0.1, 0.1)
	if f, _ := m.TextureTransform().GetAtlasFrame(crate); f != 2 {
		t.Errorf("atlas frame after 0.1s = %d, want 2", f)
	}
}

// go test -run ^TestSpawnSceneRollback$ . -count 1
func TestSpawnSceneRollback(t *testing.T) {
	scene, err := data.ParseScene([]byte(`
entities:
  - name: ok
    transform: {}
  - name: broken
    render: {shader: hologram}
`))
	if err != nil {
		t.Fatal(err)
	}
	m := newManager()
	if _, err := SpawnScene(m, scene); !eris.Is(err, ecs.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
	if m.Len() != 0 || m.Name().Len() != 0 || m.Transform().Len() != 0 {
		t.Errorf("failed spawn left %d entities", m.Len())
	}
}

// go test -run ^TestSpawnDemoScene$ . -count 1
func TestSpawnDemoScene(t *testing.T) {
	scene, err := data.LoadScene("../../scenes/demo.yaml")
	if err != nil {
		t.Fatal(err)
	}
	m := newManager()
	n, err := SpawnScene(m, scene)
	if err != nil {
		t.Fatal(err)
	}
	if n != scene.Count() || m.Len() != 8 {
		t.Fatalf("spawned %d, Len() = %d", n, m.Len())
	}
	if m.Light().Len() != 2 || m.Name().GetIDByName("crate_3") == ecs.InvalidEntityID {
		t.Errorf("lights = %d", m.Light().Len())
	}
	for i := 1; i <= 10; i++ {
		m.Update(float32(i)*0.016, 0.016)
	}
	checkSorted(t, m)
}
