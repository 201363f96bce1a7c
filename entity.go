package archphys

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ishabanya/archphys/geom"
)

// EntityID identifies a physics entity. It packs a slot index and a
// generation counter, so an id held after removal resolves to "not found"
// instead of aliasing a recycled slot.
type EntityID uint64

// NoEntity is the zero id; it never resolves to a live entity
const NoEntity EntityID = 0

func makeEntityID(index, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) index() uint32      { return uint32(id) }
func (id EntityID) generation() uint32 { return uint32(id >> 32) }

// CollisionGroup is a bitmask; two entities collide only if the AND of
// their masks is non-zero.
type CollisionGroup uint32

const (
	GroupNone      CollisionGroup = 0
	GroupFurniture CollisionGroup = 1 << 0
	GroupWall      CollisionGroup = 1 << 1
	GroupFloor     CollisionGroup = 1 << 2
	GroupDecor     CollisionGroup = 1 << 3
	GroupAll       CollisionGroup = ^CollisionGroup(0)
)

// Material holds the surface response of an entity
type Material struct {
	Friction    float64 // 0 = frictionless, 1 = full tangential stop
	Restitution float64 // 0 = no rebound, 1 = perfect restitution
}

// EntityHandle is the boundary to the render/AR collaborator owning the
// visual object. The simulation reads the visual extents once at creation
// and writes the final transform once per step.
type EntityHandle interface {
	VisualExtents() mgl64.Vec3
	SetWorldTransform(position mgl64.Vec3, rotation mgl64.Quat)
}

var ErrNonPositiveMass = errors.New("archphys: dynamic entity requires positive mass")

// PhysicsEntity represents a simulated furniture object. It is owned
// exclusively by the World; external collaborators hold only the Handle.
type PhysicsEntity struct {
	ID EntityID

	Transform       geom.Transform
	Velocity        mgl64.Vec3 // linear velocity (m/s)
	AngularVelocity mgl64.Vec3 // rotation speed (rad/s)

	accumulatedForce  mgl64.Vec3
	accumulatedTorque mgl64.Vec3

	Mass        float64
	inverseMass float64
	inertia     float64 // scalar moment of inertia, derived from mass and shape

	Material Material
	Shape    geom.Shape
	Group    CollisionGroup

	IsKinematic      bool
	IsActive         bool
	IsPhysicsEnabled bool
	IsSleeping       bool
	SleepTimer       float64

	Handle EntityHandle

	aabb geom.AABB
}

// NewEntity creates a dynamic entity. Mass must be positive.
func NewEntity(transform geom.Transform, shape geom.Shape, mass float64, material Material) (*PhysicsEntity, error) {
	if mass <= 0 {
		return nil, ErrNonPositiveMass
	}

	e := &PhysicsEntity{
		Transform:        transform,
		Mass:             mass,
		inverseMass:      1.0 / mass,
		inertia:          shape.Inertia(mass),
		Material:         material,
		Shape:            shape,
		Group:            GroupFurniture,
		IsActive:         true,
		IsPhysicsEnabled: true,
	}
	e.aabb = shape.ComputeAABB(transform)

	return e, nil
}

// NewKinematicEntity creates an entity whose motion is driven externally.
// It still participates in collisions but is never integrated.
func NewKinematicEntity(transform geom.Transform, shape geom.Shape) *PhysicsEntity {
	e := &PhysicsEntity{
		Transform:        transform,
		Shape:            shape,
		Group:            GroupFurniture,
		IsKinematic:      true,
		IsActive:         true,
		IsPhysicsEnabled: true,
	}
	e.aabb = shape.ComputeAABB(transform)

	return e
}

// InverseMass returns 1/mass for dynamic entities, 0 for kinematic ones
func (e *PhysicsEntity) InverseMass() float64 {
	if e.IsKinematic {
		return 0
	}
	return e.inverseMass
}

// Inertia returns the scalar moment of inertia
func (e *PhysicsEntity) Inertia() float64 {
	return e.inertia
}

// BoundingRadius returns the narrow-phase sphere radius of the entity
func (e *PhysicsEntity) BoundingRadius() float64 {
	return e.Shape.BoundingRadius()
}

// AABB returns the bounding box cached at the last UpdateAABB call
func (e *PhysicsEntity) AABB() geom.AABB {
	return e.aabb
}

// UpdateAABB recomputes the cached bounding box from the current transform
func (e *PhysicsEntity) UpdateAABB() {
	e.aabb = e.Shape.ComputeAABB(e.Transform)
}

// AddForce accumulates a force through the center of mass for the next
// integration. Kinematic entities ignore forces; sleeping entities wake.
func (e *PhysicsEntity) AddForce(force mgl64.Vec3) {
	if e.IsKinematic {
		return
	}
	e.Wake()
	e.accumulatedForce = e.accumulatedForce.Add(force)
}

// AddForceAtPoint accumulates a force applied at a world-space point,
// producing torque from the lever arm.
func (e *PhysicsEntity) AddForceAtPoint(force, point mgl64.Vec3) {
	if e.IsKinematic {
		return
	}
	e.Wake()
	e.accumulatedForce = e.accumulatedForce.Add(force)
	lever := point.Sub(e.Transform.Position)
	e.accumulatedTorque = e.accumulatedTorque.Add(lever.Cross(force))
}

// AddTorque accumulates a torque for the next integration
func (e *PhysicsEntity) AddTorque(torque mgl64.Vec3) {
	if e.IsKinematic {
		return
	}
	e.Wake()
	e.accumulatedTorque = e.accumulatedTorque.Add(torque)
}

// ApplyImpulse changes velocity immediately through the center of mass
func (e *PhysicsEntity) ApplyImpulse(impulse mgl64.Vec3) {
	if e.IsKinematic {
		return
	}
	e.Wake()
	e.Velocity = e.Velocity.Add(impulse.Mul(e.inverseMass))
}

// ApplyImpulseAtPoint changes velocity immediately; the lever arm from
// the world-space point contributes angular velocity through the scalar
// inertia.
func (e *PhysicsEntity) ApplyImpulseAtPoint(impulse, point mgl64.Vec3) {
	if e.IsKinematic {
		return
	}
	e.Wake()
	e.Velocity = e.Velocity.Add(impulse.Mul(e.inverseMass))

	if e.inertia > 0 {
		lever := point.Sub(e.Transform.Position)
		e.AngularVelocity = e.AngularVelocity.Add(lever.Cross(impulse).Mul(1.0 / e.inertia))
	}
}

// ClearForces resets the accumulators; called after every integration
func (e *PhysicsEntity) ClearForces() {
	e.accumulatedForce = mgl64.Vec3{}
	e.accumulatedTorque = mgl64.Vec3{}
}

// Sleep zeroes motion and marks the entity as resting
func (e *PhysicsEntity) Sleep() {
	e.IsSleeping = true
	e.SleepTimer = 0
	e.Velocity = mgl64.Vec3{}
	e.AngularVelocity = mgl64.Vec3{}
	e.ClearForces()
}

// Wake clears the sleeping state and sleep timer
func (e *PhysicsEntity) Wake() {
	e.IsSleeping = false
	e.SleepTimer = 0
}

// PushTransform writes the final transform out to the external handle
func (e *PhysicsEntity) PushTransform() {
	if e.Handle != nil {
		e.Handle.SetWorldTransform(e.Transform.Position, e.Transform.Rotation)
	}
}

// StaticCollider represents a scanned room surface. It is immutable from
// the simulation's perspective; the AR-surface collaborator replaces it
// wholesale on anchor updates.
type StaticCollider struct {
	ID        string
	Transform geom.Transform
	Shape     geom.Shape

	aabb geom.AABB
}

// NewStaticCollider creates a collider for a scanned surface
func NewStaticCollider(id string, transform geom.Transform, shape geom.Shape) *StaticCollider {
	return &StaticCollider{
		ID:        id,
		Transform: transform,
		Shape:     shape,
		aabb:      shape.ComputeAABB(transform),
	}
}

// AABB returns the collider's world bounding box
func (c *StaticCollider) AABB() geom.AABB {
	return c.aabb
}
