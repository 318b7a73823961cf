package world

import (
	"math"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/component"
	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/core/event"
)

func newManager(opts ...Option) *EntityManager {
	return NewEntityManager(zap.NewNop(), append([]Option{WithSeed(42)}, opts...)...)
}

func identities(n int) []mgl32.Quat {
	return repeat(mgl32.QuatIdent(), n)
}

// checkSorted fails the test if any component id list is not strictly
// ascending or the flag bits disagree with the component rows.
func checkSorted(t *testing.T, m *EntityManager) {
	t.Helper()
	if !ecs.IsStrictlySorted(m.IDs()) || len(m.IDs()) != len(m.Flags()) {
		t.Fatalf("entity table broken: %d ids, %d flags", len(m.IDs()), len(m.Flags()))
	}
	for ct := ecs.ComponentType(0); int(ct) < ecs.NumComponentTypes; ct++ {
		ids, _ := m.st.componentIDs(ct)
		if !ecs.IsStrictlySorted(ids) {
			t.Fatalf("%s ids not sorted: %v", ct, ids)
		}
	}
	if err := m.st.checkFlags(); err != nil {
		t.Fatalf("flags inconsistent: %v", err)
	}
}

// go test -run ^TestCreateEntities$ . -count 1
func TestCreateEntities(t *testing.T) {
	m := newManager()

	t.Run("batch", func(t *testing.T) {
		ids, err := m.CreateEntities(100)
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != 100 || !ecs.IsStrictlySorted(ids) || slices.Contains(ids, ecs.InvalidEntityID) {
			t.Fatalf("bad ids: %v", ids)
		}
		id, err := m.CreateEntity()
		if err != nil || slices.Contains(ids, id) {
			t.Fatalf("CreateEntity = %d, %v", id, err)
		}
		if m.Len() != 101 {
			t.Errorf("Len() = %d, want 101", m.Len())
		}
		checkSorted(t, m)
	})

	t.Run("zero count", func(t *testing.T) {
		if _, err := m.CreateEntities(0); !eris.Is(err, ecs.ErrPrecondition) {
			t.Errorf("expected ErrPrecondition, got %v", err)
		}
	})

	t.Run("same seed same ids", func(t *testing.T) {
		a, _ := newManager().CreateEntities(10)
		b, _ := newManager().CreateEntities(10)
		if !slices.Equal(a, b) {
			t.Errorf("seeded managers differ: %v vs %v", a, b)
		}
	})
}

// go test -run ^TestAddComponentErrors$ . -count 1
func TestAddComponentErrors(t *testing.T) {
	m := newManager()
	ids, _ := m.CreateEntities(3)

	cases := []struct {
		name string
		err  error
		call func() error
	}{
		{"length mismatch", ecs.ErrPrecondition, func() error {
			return m.AddTransformComponent(ids, make([]mgl32.Vec3, 2), identities(3), []float32{1, 1, 1})
		}},
		{"empty ids", ecs.ErrPrecondition, func() error {
			return m.AddNameComponent(nil, nil)
		}},
		{"unknown id", ecs.ErrNotFound, func() error {
			return m.AddMeshComponent([]ecs.EntityID{ids[0], 7}, []component.MeshID{1})
		}},
		{"duplicate ids", ecs.ErrPrecondition, func() error {
			return m.AddMeshComponent([]ecs.EntityID{ids[0], ids[0]}, []component.MeshID{1})
		}},
		{"move without transform", ecs.ErrPrecondition, func() error {
			return m.AddMoveComponent(ids[:1], make([]mgl32.Vec3, 1), identities(1), []float32{1})
		}},
		{"zero quaternion", ecs.ErrPrecondition, func() error {
			return m.AddTransformComponent(ids[:1], make([]mgl32.Vec3, 1), make([]mgl32.Quat, 1), []float32{1})
		}},
		{"bad shader", ecs.ErrPrecondition, func() error {
			return m.AddRenderingComponent(ids[:1], []component.ShaderType{9}, []component.PrimitiveTopology{component.TopologyTriangleList})
		}},
		{"bad render state", ecs.ErrPrecondition, func() error {
			return m.AddRenderStatesComponent(ids[:1], [][]component.RenderState{{component.NumRenderStates}})
		}},
		{"short texture set", ecs.ErrPrecondition, func() error {
			return m.AddTexturedComponent(ids[:1], [][]component.TexID{{1}}, [][]string{{"a.dds"}})
		}},
		{"nil light params", ecs.ErrPrecondition, func() error {
			return m.AddLightComponent(ids[:1], nil)
		}},
		{"atlas length mismatch", ecs.ErrPrecondition, func() error {
			return m.AddTextureTransformComponent(ids[:2], component.AtlasAnimParams{
				TexRows: []uint32{2}, TexColumns: []uint32{2}, FrameDurations: []float32{1},
			})
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := c.call(); !eris.Is(err, c.err) {
				t.Errorf("expected %v, got %v", c.err, err)
			}
		})
	}

	// nothing above may have left a trace
	for _, f := range m.Flags() {
		if f != 0 {
			t.Fatalf("rejected call changed flags: %v", f)
		}
	}
	checkSorted(t, m)

	t.Run("already exists", func(t *testing.T) {
		if err := m.AddNameComponent(ids[:1], []string{"a"}); err != nil {
			t.Fatal(err)
		}
		if err := m.AddNameComponent(ids[:1], []string{"b"}); !eris.Is(err, ecs.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
		if err := m.AddNameComponent(ids[1:2], []string{"a"}); !eris.Is(err, ecs.ErrAlreadyExists) {
			t.Errorf("duplicate name accepted: %v", err)
		}
	})
}

// go test -run ^TestSortedInvariant$ . -count 1
func TestSortedInvariant(t *testing.T) {
	m := newManager()
	ids, _ := m.CreateEntities(200)

	// insert in descending order, in several batches
	rev := slices.Clone(ids)
	slices.Reverse(rev)
	for start := 0; start < len(rev); start += 40 {
		batch := rev[start : start+40]
		n := len(batch)
		pos := make([]mgl32.Vec3, n)
		for i, id := range batch {
			pos[i] = mgl32.Vec3{float32(id % 1000), 0, 0}
		}
		if err := m.AddTransformComponent(batch, pos, identities(n), repeat[float32](1, n)); err != nil {
			t.Fatal(err)
		}
		if err := m.AddRenderingComponent(batch, repeat(component.ShaderLight, n), repeat(component.TopologyTriangleList, n)); err != nil {
			t.Fatal(err)
		}
		if err := m.AddMeshComponent(batch, []component.MeshID{component.MeshID(start)}); err != nil {
			t.Fatal(err)
		}
		checkSorted(t, m)
	}

	// data stays attached to its id
	got, _, _, err := m.Transform().GetTransformDataOfEntts(ids)
	if err != nil {
		t.Fatal(err)
	}
	for i, id := range ids {
		if got[i][0] != float32(id%1000) {
			t.Fatalf("entity %d has position %v", id, got[i])
		}
	}

	// remove every third entity
	var victims []ecs.EntityID
	for i := 0; i < len(ids); i += 3 {
		victims = append(victims, ids[i])
	}
	if err := m.DestroyEntities(victims); err != nil {
		t.Fatal(err)
	}
	checkSorted(t, m)
	if m.Len() != 200-len(victims) || m.Transform().Len() != m.Len() {
		t.Errorf("Len() = %d, transforms = %d", m.Len(), m.Transform().Len())
	}
	if m.CheckEnttsByIDsExist(victims[:1]) {
		t.Error("destroyed entity still exists")
	}
	if err := m.DestroyEntities(victims[:1]); !eris.Is(err, ecs.ErrNotFound) {
		t.Errorf("destroying twice: %v", err)
	}
}

// go test -run ^TestQueries$ . -count 1
func TestQueries(t *testing.T) {
	m := newManager()
	ids, _ := m.CreateEntities(4)
	if err := m.AddTransformComponent(ids[:3], make([]mgl32.Vec3, 3), identities(3), []float32{1, 1, 1}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddMoveComponent(ids[1:3], make([]mgl32.Vec3, 2), identities(2), []float32{1, 1}); err != nil {
		t.Fatal(err)
	}

	flags, err := m.GetComponentFlagsByIDs(ids)
	if err != nil {
		t.Fatal(err)
	}
	want := ecs.FlagsOf(ecs.TransformComponent, ecs.WorldMatrixComponent, ecs.MoveComponent)
	if flags[1] != want || flags[3] != 0 {
		t.Errorf("flags = %v", flags)
	}

	if !m.CheckEnttsByIDsHaveComponent(ids[:3], ecs.TransformComponent) || m.CheckEnttsByIDsHaveComponent(ids, ecs.TransformComponent) {
		t.Error("CheckEnttsByIDsHaveComponent wrong")
	}
	if m.CheckEnttsByIDsHaveComponent([]ecs.EntityID{ids[0], 5}, ecs.TransformComponent) {
		t.Error("unknown id reported as having a component")
	}

	moving, err := m.FilterInputEnttsByComponents([]ecs.EntityID{ids[2], ids[0], ids[1]}, ecs.TransformComponent, ecs.MoveComponent)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(moving, []ecs.EntityID{ids[2], ids[1]}) {
		t.Errorf("filtered = %v", moving)
	}
	if _, err := m.FilterInputEnttsByComponents(ids, ecs.ComponentType(60)); !eris.Is(err, ecs.ErrPrecondition) {
		t.Errorf("unknown component type accepted: %v", err)
	}

	byMove, err := m.GetEnttsByComponent(ecs.MoveComponent)
	if err != nil || !slices.Equal(byMove, ids[1:3]) {
		t.Errorf("GetEnttsByComponent(Move) = %v, %v", byMove, err)
	}
	byMove[0] = 0
	if again, _ := m.GetEnttsByComponent(ecs.MoveComponent); again[0] == 0 {
		t.Error("GetEnttsByComponent returned internal storage")
	}
	if _, err := m.GetEnttsByComponent(ecs.ComponentType(40)); !eris.Is(err, ecs.ErrPrecondition) {
		t.Errorf("expected ErrPrecondition, got %v", err)
	}
}

// go test -run ^TestRenderingData$ . -count 1
func TestRenderingData(t *testing.T) {
	m := newManager()
	ids, _ := m.CreateEntities(3)
	a, b, c := ids[0], ids[1], ids[2]
	pos := []mgl32.Vec3{{1, 0, 0}, {2, 0, 0}, {3, 0, 0}}
	if err := m.AddTransformComponent(ids, pos, identities(3), []float32{1, 1, 1}); err != nil {
		t.Fatal(err)
	}
	shaders := []component.ShaderType{component.ShaderColor, component.ShaderTexture, component.ShaderLight}
	if err := m.AddRenderingComponent(ids, shaders, repeat(component.TopologyTriangleList, 3)); err != nil {
		t.Fatal(err)
	}
	if err := m.AddMeshComponent([]ecs.EntityID{a, b}, []component.MeshID{1}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddMeshComponent([]ecs.EntityID{b, c}, []component.MeshID{2}); err != nil {
		t.Fatal(err)
	}

	rd, err := m.GetRenderingDataOfEntts([]ecs.EntityID{c, b, a})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(rd.MeshIDs, []component.MeshID{1, 2}) || !slices.Equal(rd.InstancesPerMesh, []int{2, 2}) {
		t.Fatalf("meshes=%v instances=%v", rd.MeshIDs, rd.InstancesPerMesh)
	}
	if !slices.Equal(rd.EnttsSortedByMeshes, []ecs.EntityID{a, b, b, c}) {
		t.Fatalf("entities = %v", rd.EnttsSortedByMeshes)
	}
	x := map[ecs.EntityID]float32{a: 1, b: 2, c: 3}
	shaderOf := map[ecs.EntityID]component.ShaderType{a: shaders[0], b: shaders[1], c: shaders[2]}
	for i, id := range rd.EnttsSortedByMeshes {
		if rd.WorldMatrices[i][12] != x[id] {
			t.Errorf("world matrix %d belongs to another entity: %v", i, rd.WorldMatrices[i].Col(3))
		}
		if rd.ShaderTypes[i] != shaderOf[id] {
			t.Errorf("shader %d = %v, want %v", i, rd.ShaderTypes[i], shaderOf[id])
		}
		if rd.TexTransforms[i] != mgl32.Ident4() {
			t.Errorf("texture transform %d should be identity", i)
		}
	}

	other, _ := m.CreateEntity()
	if _, err := m.GetRenderingDataOfEntts([]ecs.EntityID{a, other}); !eris.Is(err, ecs.ErrNotFound) {
		t.Errorf("entity without mesh accepted: %v", err)
	}

	topologies, err := m.Render().GetTopologiesOfEntts([]ecs.EntityID{c, a})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(topologies, repeat(component.TopologyTriangleList, 2)) {
		t.Errorf("topologies = %v", topologies)
	}
	if _, err := m.Render().GetTopologiesOfEntts([]ecs.EntityID{other}); !eris.Is(err, ecs.ErrNotFound) {
		t.Errorf("topology of unrendered entity: %v", err)
	}

	m.Render().SetVisibleEntts([]ecs.EntityID{c, other, a})
	if want := ecs.SortedUnique([]ecs.EntityID{a, c}); !slices.Equal(m.Render().VisibleEntts(), want) {
		t.Errorf("visible = %v, want %v", m.Render().VisibleEntts(), want)
	}
	m.Render().ClearVisibleEntts()
	if len(m.Render().VisibleEntts()) != 0 {
		t.Errorf("visible after clear = %v", m.Render().VisibleEntts())
	}
}

// go test -run ^TestFramePipeline$ . -count 1
func TestFramePipeline(t *testing.T) {
	m := newManager()
	ids, _ := m.CreateEntities(50)
	if err := m.AddTransformComponent(ids, make([]mgl32.Vec3, 50), identities(50), repeat[float32](1, 50)); err != nil {
		t.Fatal(err)
	}
	spin := mgl32.QuatRotate(0.01, mgl32.Vec3{0, 1, 0})
	if err := m.AddMoveComponent(ids, repeat(mgl32.Vec3{1, 0, 0}, 50), repeat(spin, 50), repeat[float32](1, 50)); err != nil {
		t.Fatal(err)
	}

	const dt = 0.016
	var total float32
	for i := 0; i < 60; i++ {
		total += dt
		m.Update(total, dt)
	}

	pos, dirs, scales, err := m.Transform().GetTransformDataOfEntts(ids)
	if err != nil {
		t.Fatal(err)
	}
	worlds, _ := m.Transform().GetWorldMatricesOfEntts(ids)
	wantAngle := 60 * 0.01
	for i := range ids {
		if math.Abs(float64(pos[i][0])-0.96) > 1e-4 || pos[i][1] != 0 || scales[i] != 1 {
			t.Fatalf("entity %d: pos=%v scale=%v", i, pos[i], scales[i])
		}
		if math.Abs(float64(dirs[i].Len())-1) > 1e-5 {
			t.Fatalf("entity %d quaternion drifted: %v", i, dirs[i].Len())
		}
		angle := 2 * math.Acos(math.Min(1, float64(dirs[i].W)))
		if math.Abs(angle-wantAngle) > 1e-3 {
			t.Fatalf("entity %d rotated by %v, want %v", i, angle, wantAngle)
		}
		if worlds[i][12] != pos[i][0] {
			t.Fatalf("world matrix translation %v, position %v", worlds[i][12], pos[i][0])
		}
	}
}

// go test -run ^TestDeferredDestruction$ . -count 1
func TestDeferredDestruction(t *testing.T) {
	bus := event.NewBus()
	m := newManager(WithEventBus(bus))
	var destroyed, created []ecs.EntityID
	event.Subscribe(bus, func(e event.EntitiesDestroyed) { destroyed = append(destroyed, e.IDs...) })
	event.Subscribe(bus, func(e event.EntitiesCreated) { created = append(created, e.IDs...) })

	ids, _ := m.CreateEntities(3)
	if err := m.AddNameComponent(ids, []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}
	if len(created) != 0 {
		t.Fatal("event delivered before the frame")
	}
	if err := m.MarkForDestruction(ids[1]); err != nil {
		t.Fatal(err)
	}
	if err := m.MarkForDestruction(99); !eris.Is(err, ecs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if !m.CheckEnttsByIDsExist(ids) {
		t.Fatal("entity destroyed before the frame ended")
	}

	m.Update(0.016, 0.016)
	if len(created) != 3 {
		t.Errorf("created events = %v", created)
	}
	if m.CheckEnttsByIDsExist(ids[1:2]) || m.Name().GetIDByName("b") != ecs.InvalidEntityID {
		t.Fatal("queued entity survived the frame")
	}
	checkSorted(t, m)

	// the cleanup event is seen on the next frame
	if len(destroyed) != 0 {
		t.Fatal("destroy event delivered in the same frame")
	}
	m.Update(0.032, 0.016)
	if !slices.Equal(destroyed, ids[1:2]) {
		t.Errorf("destroyed events = %v", destroyed)
	}
}
