package world

import (
	"go.uber.org/zap"

	"github.com/dxengine/engine/internal/component"
	"github.com/dxengine/engine/internal/core/ecs"
	"github.com/dxengine/engine/internal/core/event"
	coresys "github.com/dxengine/engine/internal/core/system"
	"github.com/dxengine/engine/internal/system"
)

// state is everything a scene owns: the entity table, every component
// system and the frame runner. Loading a scene builds a new state and
// swaps it in whole.
type state struct {
	world  *ecs.World
	runner *coresys.Runner

	transform    *system.TransformSystem
	move         *system.MoveSystem
	mesh         *system.MeshSystem
	render       *system.RenderSystem
	renderStates *system.RenderStatesSystem
	name         *system.NameSystem
	textures     *system.TexturesSystem
	texTransform *system.TextureTransformSystem
	light        *system.LightSystem
	bounding     *system.BoundingSystem
}

func newState(seed int64, bus *event.Bus, animateLights bool, log *zap.Logger) *state {
	st := &state{
		world:  ecs.NewWorld(seed),
		runner: coresys.NewRunner(),
	}
	st.transform = system.NewTransformSystem(&component.Transform{}, &component.WorldMatrix{}, log)
	st.move = system.NewMoveSystem(&component.Movement{}, st.transform, log)
	st.mesh = system.NewMeshSystem(component.NewMesh(), log)
	st.render = system.NewRenderSystem(&component.Rendered{}, log)
	st.renderStates = system.NewRenderStatesSystem(&component.RenderStates{}, log)
	st.name = system.NewNameSystem(&component.Name{}, log)
	st.textures = system.NewTexturesSystem(&component.Textured{}, log)
	st.texTransform = system.NewTextureTransformSystem(&component.TextureTransform{}, log)
	st.light = system.NewLightSystem(&component.Light{}, log)
	st.light.SetAnimated(animateLights)
	st.bounding = system.NewBoundingSystem(&component.Bounding{}, log)

	reg := st.world.Registry()
	for _, r := range st.removables() {
		reg.Register(r)
	}

	st.runner.Register(system.NewEventDispatchSystem(bus))
	st.runner.Register(st.move)
	st.runner.Register(st.texTransform)
	st.runner.Register(st.light)
	st.runner.Register(system.NewCleanupSystem(st.world, bus, log))
	return st
}

// removables lists the component systems in scene file block order.
func (st *state) removables() []ecs.Removable {
	return []ecs.Removable{
		st.transform,
		st.name,
		st.move,
		st.mesh,
		st.render,
		st.textures,
		st.texTransform,
		st.light,
		st.renderStates,
		st.bounding,
	}
}

// componentIDs returns the sorted ids owning ct. WorldMatrix shares the
// ids of Transform.
func (st *state) componentIDs(ct ecs.ComponentType) ([]ecs.EntityID, bool) {
	switch ct {
	case ecs.TransformComponent, ecs.WorldMatrixComponent:
		return st.transform.IDs(), true
	case ecs.NameComponent:
		return st.name.IDs(), true
	case ecs.MoveComponent:
		return st.move.IDs(), true
	case ecs.MeshComponent:
		return st.mesh.GetEnttsIDsFromMeshComponent(), true
	case ecs.RenderedComponent:
		return st.render.IDs(), true
	case ecs.TexturedComponent:
		return st.textures.IDs(), true
	case ecs.TextureTransformComponent:
		return st.texTransform.IDs(), true
	case ecs.LightComponent:
		return st.light.IDs(), true
	case ecs.RenderStatesComponent:
		return st.renderStates.IDs(), true
	case ecs.BoundingComponent:
		return st.bounding.IDs(), true
	}
	return nil, false
}
