package scripting

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/world"
)

const sceneScript = `
local ids = ecs.create(2)
ecs.add_name(ids[1], "player")
ecs.add_transform(ids[1], 1, 2, 3)
ecs.add_move(ids[1], 1, 0, 0)
ecs.add_mesh(ids[1], 7, 8)
ecs.add_render(ids[1], "light")
ecs.add_states(ids[1], "fill_wireframe")
ecs.add_name(ids[2], "doomed")

frames = 0
function on_update(total, dt)
  frames = frames + 1
  if frames == 2 then
    ecs.destroy(ecs.id_by_name("doomed"))
  end
end
`

func newEngine(t *testing.T) (*Engine, *world.EntityManager) {
	t.Helper()
	mgr := world.NewEntityManager(zap.NewNop(), world.WithSeed(3))
	e := NewEngine(mgr, zap.NewNop())
	t.Cleanup(e.Close)
	return e, mgr
}

// go test -run ^TestScriptBuildsScene$ . -count 1
func TestScriptBuildsScene(t *testing.T) {
	e, mgr := newEngine(t)
	if err := e.RunString(sceneScript); err != nil {
		t.Fatal(err)
	}
	if mgr.Len() != 2 || !e.HasUpdate() {
		t.Fatalf("Len() = %d", mgr.Len())
	}
	player := mgr.Name().GetIDByName("player")
	want := ecs.FlagsOf(ecs.NameComponent, ecs.TransformComponent, ecs.WorldMatrixComponent, ecs.MoveComponent,
		ecs.MeshComponent, ecs.RenderedComponent, ecs.RenderStatesComponent)
	if f, err := mgr.GetComponentFlagsByIDs([]ecs.EntityID{player}); err != nil || f[0] != want {
		t.Fatalf("player flags = %v, %v", f, err)
	}

	mgr.Register(NewScriptSystem(e, zap.NewNop()))
	for i := 1; i <= 3; i++ {
		mgr.Update(float32(i)*0.5, 0.5)
	}
	if mgr.Len() != 1 || mgr.Name().GetIDByName("doomed") != ecs.InvalidEntityID {
		t.Errorf("destroy from on_update did not apply, Len() = %d", mgr.Len())
	}

	if err := e.RunString(`x, y, z = ecs.position(ecs.id_by_name("player"))`); err != nil {
		t.Fatal(err)
	}
	// 1 + 3 frames * 0.5s * 1 unit/s
	x := float64(lua.LVAsNumber(e.vm.GetGlobal("x")))
	if math.Abs(x-2.5) > 1e-5 {
		t.Errorf("x = %v, want 2.5", x)
	}
}

// go test -run ^TestScriptErrors$ . -count 1
func TestScriptErrors(t *testing.T) {
	e, _ := newEngine(t)
	cases := map[string]string{
		"unknown entity": `ecs.add_name(12345, "ghost")`,
		"bad shader":     `local ids = ecs.create(1); ecs.add_render(ids[1], "hologram")`,
		"bad state":      `local ids = ecs.create(1); ecs.add_states(ids[1], "sparkly")`,
		"zero count":     `ecs.create(0)`,
		"duplicate name": `local ids = ecs.create(2); ecs.add_name(ids[1], "a"); ecs.add_name(ids[2], "a")`,
		"no transform":   `local ids = ecs.create(1); ecs.add_move(ids[1], 1, 0, 0)`,
		"syntax":         `ecs.create(`,
		"wrapped id":     `local ids = ecs.create(1); ecs.add_name(ids[1] + 4294967296, "w")`,
		"negative id":    `ecs.add_name(-1, "n")`,
		"fractional id":  `local ids = ecs.create(1); ecs.add_name(ids[1] + 0.5, "f")`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if err := e.RunString(src); err == nil {
				t.Error("script error not reported")
			}
		})
	}
}

// go test -run ^TestLoadDir$ . -count 1
func TestLoadDir(t *testing.T) {
	e, mgr := newEngine(t)
	dir := t.TempDir()
	files := map[string]string{
		"01_create.lua": `ecs.create(3)`,
		"02_more.lua":   `ecs.create(ecs.count())`,
		"notes.txt":     `not lua`,
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.LoadDir(dir); err != nil {
		t.Fatal(err)
	}
	if mgr.Len() != 6 {
		t.Errorf("Len() = %d, want 6", mgr.Len())
	}
	if err := e.LoadDir(filepath.Join(dir, "missing")); err != nil {
		t.Errorf("missing dir: %v", err)
	}
}
