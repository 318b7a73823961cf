package component

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/dxengine/engine/internal/core/ecs"
)

type LightType uint32

const (
	LightDirectional LightType = iota
	LightPoint
	LightSpot
)

func (t LightType) String() string {
	switch t {
	case LightDirectional:
		return "directional"
	case LightPoint:
		return "point"
	case LightSpot:
		return "spot"
	}
	return "unknown"
}

// LightProp names a settable light property.
type LightProp uint32

const (
	LightAmbient LightProp = iota
	LightDiffuse
	LightSpecular
	LightPosition
	LightDirection
	LightRange
	LightAttenuation
	LightSpotExp
)

type DirLight struct {
	Ambient   mgl32.Vec4
	Diffuse   mgl32.Vec4
	Specular  mgl32.Vec4
	Direction mgl32.Vec3 // unit length
}

type PointLight struct {
	Ambient  mgl32.Vec4
	Diffuse  mgl32.Vec4
	Specular mgl32.Vec4
	Position mgl32.Vec3
	Range    float32
	Att      mgl32.Vec3 // inverted attenuation (1/a0, 1/a1, 1/a2), zero stays zero
}

type SpotLight struct {
	Ambient   mgl32.Vec4
	Diffuse   mgl32.Vec4
	Specular  mgl32.Vec4
	Position  mgl32.Vec3
	Range     float32
	Direction mgl32.Vec3 // unit length
	Spot      float32    // cone exponent
	Att       mgl32.Vec3 // inverted attenuation
}

type DirLights struct {
	IDs  []ecs.EntityID
	Data []DirLight
}

type PointLights struct {
	IDs  []ecs.EntityID
	Data []PointLight
}

type SpotLights struct {
	IDs  []ecs.EntityID
	Data []SpotLight
}

// Light tracks entities having any kind of light in IDs; each kind keeps
// its own sorted store.
type Light struct {
	IDs   []ecs.EntityID
	Dir   DirLights
	Point PointLights
	Spot  SpotLights
}

// LightParams is the closed set of light initializers.
type LightParams interface {
	LightType() LightType
	Len() int
	lightParams()
}

type DirLightParams struct {
	Ambients   []mgl32.Vec4
	Diffuses   []mgl32.Vec4
	Speculars  []mgl32.Vec4
	Directions []mgl32.Vec3
}

type PointLightParams struct {
	Ambients     []mgl32.Vec4
	Diffuses     []mgl32.Vec4
	Speculars    []mgl32.Vec4
	Positions    []mgl32.Vec3
	Ranges       []float32
	Attenuations []mgl32.Vec3 // not inverted
}

type SpotLightParams struct {
	Ambients      []mgl32.Vec4
	Diffuses      []mgl32.Vec4
	Speculars     []mgl32.Vec4
	Positions     []mgl32.Vec3
	Directions    []mgl32.Vec3
	Ranges        []float32
	SpotExponents []float32
	Attenuations  []mgl32.Vec3 // not inverted
}

func (DirLightParams) LightType() LightType   { return LightDirectional }
func (PointLightParams) LightType() LightType { return LightPoint }
func (SpotLightParams) LightType() LightType  { return LightSpot }

func (p DirLightParams) Len() int   { return len(p.Ambients) }
func (p PointLightParams) Len() int { return len(p.Ambients) }
func (p SpotLightParams) Len() int  { return len(p.Ambients) }

func (DirLightParams) lightParams()   {}
func (PointLightParams) lightParams() {}
func (SpotLightParams) lightParams()  {}
