package world

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/component"
	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/core/event"
	coresys "github.com/dxengine/engine/internal/core/system"
	"github.com/dxengine/engine/internal/system"
)

// EntityManager is the entry point of the scene store. It owns the entity
// table and every component system, validates all input before mutating
// anything and runs the frame pipeline.
// Single goroutine access only.
type EntityManager struct {
	log           *zap.Logger
	bus           *event.Bus
	seed          int64
	animateLights bool
	extra         []coresys.System

	st *state
}

type Option func(*EntityManager)

// WithSeed makes entity id generation deterministic.
func WithSeed(seed int64) Option {
	return func(m *EntityManager) { m.seed = seed }
}

// WithEventBus publishes lifecycle events on bus instead of a private one.
func WithEventBus(bus *event.Bus) Option {
	return func(m *EntityManager) { m.bus = bus }
}

// WithAnimatedLights turns on the orbiting of directional and point lights.
func WithAnimatedLights(on bool) Option {
	return func(m *EntityManager) { m.animateLights = on }
}

func NewEntityManager(log *zap.Logger, opts ...Option) *EntityManager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &EntityManager{log: log}
	for _, o := range opts {
		o(m)
	}
	if m.bus == nil {
		m.bus = event.NewBus()
	}
	if m.seed == 0 {
		m.seed = time.Now().UnixNano()
	}
	m.st = m.newState()
	return m
}

func (m *EntityManager) newState() *state {
	return newState(m.seed, m.bus, m.animateLights, m.log)
}

// Bus returns the event bus lifecycle events are published on.
func (m *EntityManager) Bus() *event.Bus { return m.bus }

// Register adds a frame system. It survives scene loads.
func (m *EntityManager) Register(s coresys.System) {
	m.extra = append(m.extra, s)
	m.st.runner.Register(s)
}

// Update runs one frame: last frame's events, movement, scripts, texture
// animations, lights, then deferred destruction.
func (m *EntityManager) Update(totalGameTime, deltaTime float32) {
	m.st.runner.Tick(totalGameTime, deltaTime)
}

// System accessors. The returned pointers are invalidated by Deserialize.

func (m *EntityManager) Transform() *system.TransformSystem { return m.st.transform }
func (m *EntityManager) Move() *system.MoveSystem { return m.st.move }
func (m *EntityManager) Mesh() *system.MeshSystem { return m.st.mesh }
func (m *EntityManager) Render() *system.RenderSystem { return m.st.render }
func (m *EntityManager) RenderStates() *system.RenderStatesSystem { return m.st.renderStates }
func (m *EntityManager) Name() *system.NameSystem { return m.st.name }
func (m *EntityManager) Textures() *system.TexturesSystem { return m.st.textures }
func (m *EntityManager) TextureTransform() *system.TextureTransformSystem { return m.st.texTransform }
func (m *EntityManager) Light() *system.LightSystem { return m.st.light }
func (m *EntityManager) Bounding() *system.BoundingSystem { return m.st.bounding }

// IDs returns the live ids, sorted ascending. The slice must not be modified.
func (m *EntityManager) IDs() []ecs.EntityID { return m.st.world.IDs() }

// Flags returns the bitmasks parallel to IDs. The slice must not be modified.
func (m *EntityManager) Flags() []ecs.ComponentFlags { return m.st.world.Flags() }

func (m *EntityManager) Len() int { return m.st.world.Len() }

// fail logs a rejected operation and returns err unchanged.
func (m *EntityManager) fail(op string, err error) error {
	m.log.Warn("entity manager: "+op+" failed", zap.Error(err))
	return err
}

// ---------------------------------------------------------------------------
// entities
// ---------------------------------------------------------------------------

// CreateEntities creates n entities with no components and returns their
// ids sorted ascending.
func (m *EntityManager) CreateEntities(n int) ([]ecs.EntityID, error) {
	ids, err := m.st.world.Create(n)
	if err != nil {
		return nil, m.fail("create entities", err)
	}
	event.Emit(m.bus, event.EntitiesCreated{IDs: ids})
	return ids, nil
}

func (m *EntityManager) CreateEntity() (ecs.EntityID, error) {
	ids, err := m.CreateEntities(1)
	if err != nil {
		return ecs.InvalidEntityID, err
	}
	return ids[0], nil
}

// DestroyEntities removes the entities from every component and from the
// entity table. All ids must exist.
func (m *EntityManager) DestroyEntities(ids []ecs.EntityID) error {
	if err := m.checkTargets("destroy entities", ids); err != nil {
		return m.fail("destroy entities", err)
	}
	sorted := ecs.SortedUnique(ids)
	m.st.world.Destroy(sorted)
	event.Emit(m.bus, event.EntitiesDestroyed{IDs: sorted})
	return nil
}

// MarkForDestruction queues id for removal at the end of the next Update.
func (m *EntityManager) MarkForDestruction(id ecs.EntityID) error {
	if !m.st.world.Alive(id) {
		return m.fail("mark for destruction", eris.Wrapf(ecs.ErrNotFound, "entity %d", id))
	}
	m.st.world.MarkForDestruction(id)
	return nil
}

// ---------------------------------------------------------------------------
// validation helpers
// ---------------------------------------------------------------------------

// checkTargets requires a non-empty list of distinct live ids.
func (m *EntityManager) checkTargets(what string, ids []ecs.EntityID) error {
	if err := ecs.CheckNotEmpty(what, len(ids)); err != nil {
		return err
	}
	if len(ecs.SortedUnique(ids)) != len(ids) {
		return eris.Wrapf(ecs.ErrPrecondition, "%s: duplicate entity ids", what)
	}
	return m.st.world.MustExist(ids)
}

func (m *EntityManager) checkNoComponent(ids []ecs.EntityID, ct ecs.ComponentType) error {
	for _, id := range ids {
		if f, _ := m.st.world.FlagsOf(id); f.Has(ct) {
			return eris.Wrapf(ecs.ErrAlreadyExists, "entity %d already has %s", id, ct)
		}
	}
	return nil
}

func (m *EntityManager) checkHasComponent(ids []ecs.EntityID, ct ecs.ComponentType) error {
	for _, id := range ids {
		if f, _ := m.st.world.FlagsOf(id); !f.Has(ct) {
			return eris.Wrapf(ecs.ErrPrecondition, "entity %d has no %s", id, ct)
		}
	}
	return nil
}

// checkNew combines checkTargets and checkNoComponent.
func (m *EntityManager) checkNew(ids []ecs.EntityID, ct ecs.ComponentType) error {
	if err := m.checkTargets(ct.String()+" ids", ids); err != nil {
		return err
	}
	return m.checkNoComponent(ids, ct)
}

func checkQuats(what string, qs []mgl32.Quat) error {
	for i, q := range qs {
		if q.Len() == 0 {
			return eris.Wrapf(ecs.ErrPrecondition, "%s %d is a zero quaternion", what, i)
		}
	}
	return nil
}

// added sets the component bits and publishes one ComponentAdded for the
// first type.
func (m *EntityManager) added(ids []ecs.EntityID, types ...ecs.ComponentType) {
	m.st.world.SetComponent(ids, types...)
	event.Emit(m.bus, event.ComponentAdded{Type: types[0], IDs: append([]ecs.EntityID(nil), ids...)})
}

// ---------------------------------------------------------------------------
// components
// ---------------------------------------------------------------------------

func (m *EntityManager) AddTransformComponent(ids []ecs.EntityID, positions []mgl32.Vec3, dirQuats []mgl32.Quat, scales []float32) error {
	err := m.checkNew(ids, ecs.TransformComponent)
	if err == nil {
		err = ecs.FirstErr(
			ecs.CheckLen("positions", len(positions), len(ids)),
			ecs.CheckLen("direction quaternions", len(dirQuats), len(ids)),
			ecs.CheckLen("scales", len(scales), len(ids)),
			checkQuats("direction quaternion", dirQuats),
		)
	}
	if err != nil {
		return m.fail("add transform", err)
	}
	m.st.transform.AddRecords(ids, positions, dirQuats, scales)
	m.added(ids, ecs.TransformComponent, ecs.WorldMatrixComponent)
	return nil
}

// AddMoveComponent requires every entity to have a Transform already.
func (m *EntityManager) AddMoveComponent(ids []ecs.EntityID, translations []mgl32.Vec3, rotationQuats []mgl32.Quat, scaleFactors []float32) error {
	err := m.checkNew(ids, ecs.MoveComponent)
	if err == nil {
		err = ecs.FirstErr(
			m.checkHasComponent(ids, ecs.TransformComponent),
			ecs.CheckLen("translations", len(translations), len(ids)),
			ecs.CheckLen("rotation quaternions", len(rotationQuats), len(ids)),
			ecs.CheckLen("scale factors", len(scaleFactors), len(ids)),
			checkQuats("rotation quaternion", rotationQuats),
		)
	}
	if err != nil {
		return m.fail("add move", err)
	}
	m.st.move.AddRecords(ids, translations, rotationQuats, scaleFactors)
	m.added(ids, ecs.MoveComponent)
	return nil
}

// AddMeshComponent relates every mesh to every entity. Calling it again
// for the same entities adds meshes.
func (m *EntityManager) AddMeshComponent(ids []ecs.EntityID, meshIDs []component.MeshID) error {
	err := m.checkTargets("mesh ids", ids)
	if err == nil {
		err = ecs.CheckNotEmpty("meshes", len(meshIDs))
	}
	if err != nil {
		return m.fail("add mesh", err)
	}
	m.st.mesh.AddRecords(ids, meshIDs)
	m.added(ids, ecs.MeshComponent)
	return nil
}

// AddRenderingComponent also gives every entity the default render states
// unless it already has render states.
func (m *EntityManager) AddRenderingComponent(ids []ecs.EntityID, shaderTypes []component.ShaderType, topologies []component.PrimitiveTopology) error {
	err := m.checkNew(ids, ecs.RenderedComponent)
	if err == nil {
		err = ecs.FirstErr(
			ecs.CheckLen("shader types", len(shaderTypes), len(ids)),
			ecs.CheckLen("topologies", len(topologies), len(ids)),
		)
	}
	if err == nil {
		for i := range ids {
			if shaderTypes[i] > component.ShaderLight {
				err = eris.Wrapf(ecs.ErrPrecondition, "unknown shader type %d", shaderTypes[i])
				break
			}
			if topologies[i] < component.TopologyPointList || topologies[i] > component.TopologyTriangleStrip {
				err = eris.Wrapf(ecs.ErrPrecondition, "unknown primitive topology %d", topologies[i])
				break
			}
		}
	}
	if err != nil {
		return m.fail("add rendering", err)
	}
	m.st.render.AddRecords(ids, shaderTypes, topologies)
	m.st.renderStates.AddWithDefaultStates(ids)
	m.added(ids, ecs.RenderedComponent, ecs.RenderStatesComponent)
	return nil
}

func (m *EntityManager) AddNameComponent(ids []ecs.EntityID, names []string) error {
	err := m.checkNew(ids, ecs.NameComponent)
	if err == nil {
		err = ecs.CheckLen("names", len(names), len(ids))
	}
	if err == nil {
		err = m.st.name.Validate(names)
	}
	if err != nil {
		return m.fail("add name", err)
	}
	m.st.name.AddRecords(ids, names)
	m.added(ids, ecs.NameComponent)
	return nil
}

// AddTexturedComponent takes one full set of TexTypesCount ids and paths
// per entity. Entities that already have textures get them replaced.
func (m *EntityManager) AddTexturedComponent(ids []ecs.EntityID, texIDs [][]component.TexID, texPaths [][]string) error {
	err := m.checkTargets("textured ids", ids)
	if err == nil {
		err = ecs.FirstErr(
			ecs.CheckLen("texture id sets", len(texIDs), len(ids)),
			ecs.CheckLen("texture path sets", len(texPaths), len(ids)),
		)
	}
	var idSets [][component.TexTypesCount]component.TexID
	var pathSets [][component.TexTypesCount]string
	if err == nil {
		idSets = make([][component.TexTypesCount]component.TexID, len(ids))
		pathSets = make([][component.TexTypesCount]string, len(ids))
		for i := range ids {
			if err = ecs.FirstErr(
				ecs.CheckLen("texture ids", len(texIDs[i]), component.TexTypesCount),
				ecs.CheckLen("texture paths", len(texPaths[i]), component.TexTypesCount),
			); err != nil {
				break
			}
			for j, p := range texPaths[i] {
				if p == "" {
					err = eris.Wrapf(ecs.ErrPrecondition, "entity %d: empty path for texture slot %d", ids[i], j)
					break
				}
			}
			if err != nil {
				break
			}
			copy(idSets[i][:], texIDs[i])
			copy(pathSets[i][:], texPaths[i])
		}
	}
	if err != nil {
		return m.fail("add textured", err)
	}
	m.st.textures.AddRecords(ids, idSets, pathSets)
	m.added(ids, ecs.TexturedComponent)
	return nil
}

func (m *EntityManager) AddTextureTransformComponent(ids []ecs.EntityID, params component.TexTransformParams) error {
	err := m.checkNew(ids, ecs.TextureTransformComponent)
	if err == nil {
		err = system.ValidateTexTransformParams(len(ids), params)
	}
	if err != nil {
		return m.fail("add texture transform", err)
	}
	m.st.texTransform.AddRecords(ids, params)
	m.added(ids, ecs.TextureTransformComponent)
	return nil
}

func (m *EntityManager) AddLightComponent(ids []ecs.EntityID, params component.LightParams) error {
	err := m.checkNew(ids, ecs.LightComponent)
	if err == nil {
		err = system.ValidateLightParams(len(ids), params)
	}
	if err != nil {
		return m.fail("add light", err)
	}
	m.st.light.AddRecords(ids, params)
	m.added(ids, ecs.LightComponent)
	return nil
}

// AddRenderStatesComponent inserts entities with the default states and
// applies the given states on top. Entities that already have render
// states are updated: each state replaces the others of its category.
// states may be shorter than ids.
func (m *EntityManager) AddRenderStatesComponent(ids []ecs.EntityID, states [][]component.RenderState) error {
	err := m.checkTargets("render states ids", ids)
	if err == nil && len(states) > len(ids) {
		err = eris.Wrapf(ecs.ErrPrecondition, "%d state lists for %d entities", len(states), len(ids))
	}
	if err == nil {
	loop:
		for _, list := range states {
			for _, s := range list {
				if s >= component.NumRenderStates {
					err = eris.Wrapf(ecs.ErrPrecondition, "unknown render state %d", s)
					break loop
				}
			}
		}
	}
	if err != nil {
		return m.fail("add render states", err)
	}
	m.st.renderStates.AddOrUpdate(ids, states)
	m.added(ids, ecs.RenderStatesComponent)
	return nil
}

func (m *EntityManager) AddBoundingComponent(ids []ecs.EntityID, types []component.BoundingType, centers, extents []mgl32.Vec3) error {
	err := m.checkNew(ids, ecs.BoundingComponent)
	if err == nil {
		err = ecs.FirstErr(
			ecs.CheckLen("bounding types", len(types), len(ids)),
			ecs.CheckLen("bounding centers", len(centers), len(ids)),
			ecs.CheckLen("bounding extents", len(extents), len(ids)),
		)
	}
	if err == nil {
		for _, t := range types {
			if t > component.BoundingAABB {
				err = eris.Wrapf(ecs.ErrPrecondition, "unknown bounding type %d", t)
				break
			}
		}
	}
	if err != nil {
		return m.fail("add bounding", err)
	}
	m.st.bounding.AddRecords(ids, types, centers, extents)
	m.added(ids, ecs.BoundingComponent)
	return nil
}

// ---------------------------------------------------------------------------
// queries
// ---------------------------------------------------------------------------

func (m *EntityManager) CheckEnttsByIDsExist(ids []ecs.EntityID) bool {
	return m.st.world.AllAlive(ids)
}

// CheckEnttsByIDsHaveComponent reports whether every id exists and has ct.
func (m *EntityManager) CheckEnttsByIDsHaveComponent(ids []ecs.EntityID, ct ecs.ComponentType) bool {
	for _, id := range ids {
		f, ok := m.st.world.FlagsOf(id)
		if !ok || !f.Has(ct) {
			return false
		}
	}
	return true
}

func (m *EntityManager) GetComponentFlagsByIDs(ids []ecs.EntityID) ([]ecs.ComponentFlags, error) {
	out := make([]ecs.ComponentFlags, len(ids))
	for i, id := range ids {
		f, ok := m.st.world.FlagsOf(id)
		if !ok {
			return nil, m.fail("get component flags", eris.Wrapf(ecs.ErrNotFound, "entity %d", id))
		}
		out[i] = f
	}
	return out, nil
}

// FilterInputEnttsByComponents keeps, in input order, the ids that have
// every listed component.
func (m *EntityManager) FilterInputEnttsByComponents(ids []ecs.EntityID, cts ...ecs.ComponentType) ([]ecs.EntityID, error) {
	for _, ct := range cts {
		if !ct.Valid() {
			return nil, m.fail("filter entities", eris.Wrapf(ecs.ErrPrecondition, "unknown component type %d", ct))
		}
	}
	mask := ecs.FlagsOf(cts...)
	out := make([]ecs.EntityID, 0, len(ids))
	for _, id := range ids {
		f, ok := m.st.world.FlagsOf(id)
		if !ok {
			return nil, m.fail("filter entities", eris.Wrapf(ecs.ErrNotFound, "entity %d", id))
		}
		if f.HasAll(mask) {
			out = append(out, id)
		}
	}
	return out, nil
}

// GetEnttsByComponent returns a sorted copy of the ids owning ct.
func (m *EntityManager) GetEnttsByComponent(ct ecs.ComponentType) ([]ecs.EntityID, error) {
	ids, ok := m.st.componentIDs(ct)
	if !ok {
		return nil, m.fail("get entities by component", eris.Wrapf(ecs.ErrPrecondition, "unknown component type %d", ct))
	}
	return append([]ecs.EntityID(nil), ids...), nil
}

// RenderingData is what the renderer needs for one batch of entities.
// EnttsSortedByMeshes holds one group per mesh (InstancesPerMesh[i]
// entities for MeshIDs[i]); the other slices are aligned with it.
type RenderingData struct {
	MeshIDs             []component.MeshID
	InstancesPerMesh    []int
	EnttsSortedByMeshes []ecs.EntityID
	WorldMatrices       []mgl32.Mat4
	ShaderTypes         []component.ShaderType
	TexTransforms       []mgl32.Mat4
}

// GetRenderingDataOfEntts groups ids by mesh and gathers their world
// matrices, shader types and texture transforms. Every id needs Mesh,
// Transform and Rendered.
func (m *EntityManager) GetRenderingDataOfEntts(ids []ecs.EntityID) (RenderingData, error) {
	var rd RenderingData
	var err error
	rd.MeshIDs, rd.EnttsSortedByMeshes, rd.InstancesPerMesh, err = m.st.mesh.GetMeshesIDsRelatedToEntts(ids)
	if err != nil {
		return RenderingData{}, m.fail("get rendering data", err)
	}
	if rd.WorldMatrices, err = m.st.transform.GetWorldMatricesOfEntts(rd.EnttsSortedByMeshes); err != nil {
		return RenderingData{}, m.fail("get rendering data", err)
	}
	if rd.ShaderTypes, err = m.st.render.GetShaderTypesOfEntts(rd.EnttsSortedByMeshes); err != nil {
		return RenderingData{}, m.fail("get rendering data", err)
	}
	rd.TexTransforms = m.st.texTransform.GetTexTransformsForEntts(rd.EnttsSortedByMeshes)
	return rd, nil
}
