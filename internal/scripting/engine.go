package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/component"
	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/world"
)

// Engine wraps a single gopher-lua VM bound to an entity manager through
// the global "ecs" table.
// Single-goroutine access only (frame loop).
type Engine struct {
	vm  *lua.LState
	mgr *world.EntityManager
	log *zap.Logger
}

var shaderByName = map[string]component.ShaderType{
	"color":   component.ShaderColor,
	"texture": component.ShaderTexture,
	"light":   component.ShaderLight,
}

// NewEngine creates a Lua VM exposing mgr to scripts.
func NewEngine(mgr *world.EntityManager, log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, mgr: mgr, log: log}
	vm.SetGlobal("ecs", vm.SetFuncs(vm.NewTable(), map[string]lua.LGFunction{
		"create":        e.luaCreate,
		"count":         e.luaCount,
		"add_transform": e.luaAddTransform,
		"add_move":      e.luaAddMove,
		"add_name":      e.luaAddName,
		"add_mesh":      e.luaAddMesh,
		"add_render":    e.luaAddRender,
		"add_states":    e.luaAddStates,
		"position":      e.luaPosition,
		"set_position":  e.luaSetPosition,
		"id_by_name":    e.luaIDByName,
		"destroy":       e.luaDestroy,
		"log":           e.luaLog,
	}))
	return e
}

// LoadDir runs every .lua file of dir in name order. A missing dir is not
// an error.
func (e *Engine) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		if err := e.RunFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) RunFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

func (e *Engine) RunString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("run lua chunk: %w", err)
	}
	return nil
}

// HasUpdate reports whether a script defined on_update.
func (e *Engine) HasUpdate() bool {
	return e.vm.GetGlobal("on_update") != lua.LNil
}

// CallUpdate calls the Lua on_update(total, dt) function if it exists.
func (e *Engine) CallUpdate(totalTime, deltaTime float32) error {
	fn := e.vm.GetGlobal("on_update")
	if fn == lua.LNil {
		return nil
	}
	return e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(totalTime), lua.LNumber(deltaTime))
}

func (e *Engine) Close() {
	e.vm.Close()
}

// ---------------------------------------------------------------------------
// ecs.* bindings. Manager errors become Lua errors.
// ---------------------------------------------------------------------------

func (e *Engine) check(L *lua.LState, err error) {
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
}

// checkID reads argument n as an entity id. Numbers that do not fit a
// uint32 are rejected rather than truncated onto another entity.
func checkID(L *lua.LState, n int) ecs.EntityID {
	v := float64(L.CheckNumber(n))
	if v < 0 || v > math.MaxUint32 || v != math.Trunc(v) {
		L.ArgError(n, fmt.Sprintf("entity id %v out of range", v))
	}
	return ecs.EntityID(v)
}

func optF32(L *lua.LState, n int, def float32) float32 {
	return float32(L.OptNumber(n, lua.LNumber(def)))
}

// ecs.create(n) -> {id, ...}
func (e *Engine) luaCreate(L *lua.LState) int {
	ids, err := e.mgr.CreateEntities(L.OptInt(1, 1))
	e.check(L, err)
	t := L.CreateTable(len(ids), 0)
	for _, id := range ids {
		t.Append(lua.LNumber(id))
	}
	L.Push(t)
	return 1
}

func (e *Engine) luaCount(L *lua.LState) int {
	L.Push(lua.LNumber(e.mgr.Len()))
	return 1
}

// ecs.add_transform(id, x, y, z [, qx, qy, qz, qw [, scale]])
func (e *Engine) luaAddTransform(L *lua.LState) int {
	id := checkID(L, 1)
	pos := mgl32.Vec3{optF32(L, 2, 0), optF32(L, 3, 0), optF32(L, 4, 0)}
	q := mgl32.Quat{V: mgl32.Vec3{optF32(L, 5, 0), optF32(L, 6, 0), optF32(L, 7, 0)}, W: optF32(L, 8, 1)}
	e.check(L, e.mgr.AddTransformComponent([]ecs.EntityID{id},
		[]mgl32.Vec3{pos}, []mgl32.Quat{q}, []float32{optF32(L, 9, 1)}))
	return 0
}

// ecs.add_move(id, tx, ty, tz [, qx, qy, qz, qw [, scale_factor]])
func (e *Engine) luaAddMove(L *lua.LState) int {
	id := checkID(L, 1)
	tr := mgl32.Vec3{optF32(L, 2, 0), optF32(L, 3, 0), optF32(L, 4, 0)}
	q := mgl32.Quat{V: mgl32.Vec3{optF32(L, 5, 0), optF32(L, 6, 0), optF32(L, 7, 0)}, W: optF32(L, 8, 1)}
	e.check(L, e.mgr.AddMoveComponent([]ecs.EntityID{id},
		[]mgl32.Vec3{tr}, []mgl32.Quat{q}, []float32{optF32(L, 9, 1)}))
	return 0
}

func (e *Engine) luaAddName(L *lua.LState) int {
	id := checkID(L, 1)
	e.check(L, e.mgr.AddNameComponent([]ecs.EntityID{id}, []string{L.CheckString(2)}))
	return 0
}

// ecs.add_mesh(id, mesh, ...)
func (e *Engine) luaAddMesh(L *lua.LState) int {
	id := checkID(L, 1)
	var meshes []component.MeshID
	for i := 2; i <= L.GetTop(); i++ {
		meshes = append(meshes, component.MeshID(L.CheckInt64(i)))
	}
	e.check(L, e.mgr.AddMeshComponent([]ecs.EntityID{id}, meshes))
	return 0
}

// ecs.add_render(id, shader) draws triangle lists.
func (e *Engine) luaAddRender(L *lua.LState) int {
	id := checkID(L, 1)
	name := L.OptString(2, "color")
	shader, ok := shaderByName[name]
	if !ok {
		L.ArgError(2, "unknown shader "+name)
	}
	e.check(L, e.mgr.AddRenderingComponent([]ecs.EntityID{id},
		[]component.ShaderType{shader}, []component.PrimitiveTopology{component.TopologyTriangleList}))
	return 0
}

// ecs.add_states(id, "cull_none", ...)
func (e *Engine) luaAddStates(L *lua.LState) int {
	id := checkID(L, 1)
	var states []component.RenderState
	for i := 2; i <= L.GetTop(); i++ {
		s, ok := component.ParseRenderState(L.CheckString(i))
		if !ok {
			L.ArgError(i, "unknown render state")
		}
		states = append(states, s)
	}
	e.check(L, e.mgr.AddRenderStatesComponent([]ecs.EntityID{id}, [][]component.RenderState{states}))
	return 0
}

// ecs.position(id) -> x, y, z
func (e *Engine) luaPosition(L *lua.LState) int {
	pos, _, _, err := e.mgr.Transform().GetTransformDataOfEntts([]ecs.EntityID{checkID(L, 1)})
	e.check(L, err)
	L.Push(lua.LNumber(pos[0][0]))
	L.Push(lua.LNumber(pos[0][1]))
	L.Push(lua.LNumber(pos[0][2]))
	return 3
}

// ecs.set_position(id, x, y, z) keeps rotation and scale.
func (e *Engine) luaSetPosition(L *lua.LState) int {
	ids := []ecs.EntityID{checkID(L, 1)}
	tr := e.mgr.Transform()
	_, dirs, scales, err := tr.GetTransformDataOfEntts(ids)
	e.check(L, err)
	pos := mgl32.Vec3{optF32(L, 2, 0), optF32(L, 3, 0), optF32(L, 4, 0)}
	e.check(L, tr.SetTransformDataByIDs(ids, []mgl32.Vec3{pos}, dirs, scales))
	return 0
}

// ecs.id_by_name(name) -> id or 0
func (e *Engine) luaIDByName(L *lua.LState) int {
	L.Push(lua.LNumber(e.mgr.Name().GetIDByName(L.CheckString(1))))
	return 1
}

// ecs.destroy(id) removes the entity at the end of the frame.
func (e *Engine) luaDestroy(L *lua.LState) int {
	e.check(L, e.mgr.MarkForDestruction(checkID(L, 1)))
	return 0
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}
