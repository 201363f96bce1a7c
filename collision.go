package archphys

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/ishabanya/archphys/geom"
)

// CollisionKind distinguishes entity-entity from entity-static contacts
type CollisionKind int

const (
	CollisionEntityEntity CollisionKind = iota
	CollisionEntityStatic
)

// Collision is a transient contact produced by the narrow phase. It lives
// for one step only and is recomputed from scratch every frame.
type Collision struct {
	Kind CollisionKind

	EntityA  EntityID
	EntityB  EntityID // CollisionEntityEntity only
	Collider string   // CollisionEntityStatic only

	Point       mgl64.Vec3 // world-space contact point
	Normal      mgl64.Vec3 // from A toward B / toward the surface
	Penetration float64
}

// CollisionPair identifies a contact independent of discovery order, so
// frame-to-frame set differences are stable.
type CollisionPair struct {
	A        EntityID
	B        EntityID
	Collider string
}

// makeEntityPair canonicalizes the two ids by numeric order
func makeEntityPair(a, b EntityID) CollisionPair {
	if b < a {
		a, b = b, a
	}
	return CollisionPair{A: a, B: b}
}

func makeStaticPair(e EntityID, collider string) CollisionPair {
	return CollisionPair{A: e, Collider: collider}
}

// CollisionDetector turns broad-phase candidates into resolved contacts.
// Narrow-phase entity-entity tests use bounding spheres; entity-static
// tests dispatch on the collider's shape kind. Meshes collide as their
// bounding box, a documented precision trade-off.
type CollisionDetector struct {
	grid   *SpatialGrid
	margin float64

	// Narrow-phase results for sleeping entities against static
	// surfaces, reused until either side moves or changes.
	staticCache map[EntityID]map[string]Collision

	checksPerformed int
}

// NewCollisionDetector creates a detector using the given broad phase
func NewCollisionDetector(grid *SpatialGrid, margin float64) *CollisionDetector {
	return &CollisionDetector{
		grid:        grid,
		margin:      margin,
		staticCache: make(map[EntityID]map[string]Collision),
	}
}

// ChecksPerformed returns the number of narrow-phase tests run in the
// last Detect call.
func (d *CollisionDetector) ChecksPerformed() int {
	return d.checksPerformed
}

// InvalidateCollider drops every cached static contact referencing the
// collider; called whenever the AR feed updates or removes a surface.
func (d *CollisionDetector) InvalidateCollider(id string) {
	for entityID, contacts := range d.staticCache {
		if _, ok := contacts[id]; ok {
			delete(contacts, id)
			if len(contacts) == 0 {
				delete(d.staticCache, entityID)
			}
		}
	}
}

// InvalidateEntity drops the entity's cached static contacts; called on
// wake, move and removal.
func (d *CollisionDetector) InvalidateEntity(id EntityID) {
	delete(d.staticCache, id)
}

// Detect runs broad and narrow phase over all active, physics-enabled
// entities and returns this frame's contacts. The out slice is reused.
func (d *CollisionDetector) Detect(w *World, out []Collision) []Collision {
	d.checksPerformed = 0
	out = out[:0]

	for _, a := range w.entities {
		if !a.IsActive || !a.IsPhysicsEnabled {
			continue
		}

		// Entity-entity candidates from the grid; the id order test
		// keeps each pair tested exactly once.
		for _, otherID := range d.grid.PotentialCollisions(a) {
			if otherID <= a.ID {
				continue
			}
			b := w.lookup(otherID)
			if b == nil || !b.IsActive || !b.IsPhysicsEnabled {
				continue
			}
			if a.IsSleeping && b.IsSleeping {
				continue
			}
			if a.Group&b.Group == 0 {
				continue
			}

			d.checksPerformed++
			if c, hit := d.testEntityEntity(a, b); hit {
				out = append(out, c)
			}
		}

		// Entity-static candidates
		for _, colliderID := range d.grid.PotentialStaticCollisions(a) {
			collider := w.staticColliders[colliderID]
			if collider == nil {
				continue
			}

			if a.IsSleeping {
				if cached, ok := d.staticCache[a.ID][colliderID]; ok {
					out = append(out, cached)
					continue
				}
			}

			d.checksPerformed++
			if c, hit := d.testEntityStatic(a, collider); hit {
				out = append(out, c)
				if a.IsSleeping {
					d.cacheStatic(a.ID, colliderID, c)
				}
			}
		}
	}

	return out
}

func (d *CollisionDetector) cacheStatic(entity EntityID, collider string, c Collision) {
	contacts := d.staticCache[entity]
	if contacts == nil {
		contacts = make(map[string]Collision)
		d.staticCache[entity] = contacts
	}
	contacts[collider] = c
}

// testEntityEntity approximates both entities as bounding spheres
func (d *CollisionDetector) testEntityEntity(a, b *PhysicsEntity) (Collision, bool) {
	rA := a.BoundingRadius()
	rB := b.BoundingRadius()

	delta := b.Transform.Position.Sub(a.Transform.Position)
	distance := delta.Len()
	combined := rA + rB + d.margin

	if distance >= combined {
		return Collision{}, false
	}

	// Coincident centers: any normal works, pick up
	normal := mgl64.Vec3{0, 1, 0}
	if distance > 1e-12 {
		normal = delta.Mul(1.0 / distance)
	}

	return Collision{
		Kind:        CollisionEntityEntity,
		EntityA:     a.ID,
		EntityB:     b.ID,
		Normal:      normal,
		Penetration: combined - distance,
		Point:       a.Transform.Position.Add(normal.Mul(rA)),
	}, true
}

// testEntityStatic dispatches on the collider's shape kind. The entity
// side stays a bounding sphere.
func (d *CollisionDetector) testEntityStatic(e *PhysicsEntity, col *StaticCollider) (Collision, bool) {
	radius := e.BoundingRadius() + d.margin
	center := e.Transform.Position

	switch col.Shape.Kind {
	case geom.KindPlane:
		normal := col.Shape.WorldNormal(col.Transform)
		planePoint := normal.Mul(col.Shape.Distance).Add(col.Transform.Position)
		signed := center.Sub(planePoint).Dot(normal)

		if signed >= radius || signed < -radius {
			return Collision{}, false
		}

		return Collision{
			Kind:        CollisionEntityStatic,
			EntityA:     e.ID,
			Collider:    col.ID,
			Normal:      normal,
			Penetration: radius - signed,
			Point:       center.Sub(normal.Mul(signed)),
		}, true

	case geom.KindBox, geom.KindMesh:
		// Closest point on the (mesh-approximating) box to the sphere
		// center, then a sphere-to-point test.
		closest := col.Shape.ClosestPointOnBox(col.Transform, center)
		delta := center.Sub(closest)
		distance := delta.Len()

		if distance >= radius {
			return Collision{}, false
		}

		normal := mgl64.Vec3{0, 1, 0}
		if distance > 1e-12 {
			normal = delta.Mul(1.0 / distance)
		}

		return Collision{
			Kind:        CollisionEntityStatic,
			EntityA:     e.ID,
			Collider:    col.ID,
			Normal:      normal,
			Penetration: radius - distance,
			Point:       closest,
		}, true

	case geom.KindSphere:
		delta := center.Sub(col.Transform.Position)
		distance := delta.Len()
		combined := radius + col.Shape.Radius

		if distance >= combined {
			return Collision{}, false
		}

		normal := mgl64.Vec3{0, 1, 0}
		if distance > 1e-12 {
			normal = delta.Mul(1.0 / distance)
		}

		return Collision{
			Kind:        CollisionEntityStatic,
			EntityA:     e.ID,
			Collider:    col.ID,
			Normal:      normal,
			Penetration: combined - distance,
			Point:       col.Transform.Position.Add(normal.Mul(col.Shape.Radius)),
		}, true
	}

	return Collision{}, false
}

// Resolve applies positional and impulse corrections for this frame's
// contacts. Degenerate contacts resolve to no-ops, never errors.
func (d *CollisionDetector) Resolve(w *World, collisions []Collision) {
	for _, c := range collisions {
		switch c.Kind {
		case CollisionEntityEntity:
			a := w.lookup(c.EntityA)
			b := w.lookup(c.EntityB)
			if a == nil || b == nil {
				continue
			}
			d.resolveEntityEntity(a, b, c)

		case CollisionEntityStatic:
			e := w.lookup(c.EntityA)
			if e == nil {
				continue
			}
			d.resolveEntityStatic(e, c)
		}
	}
}

// resolveEntityEntity splits penetration in inverse proportion to mass
// and applies the standard normal impulse with combined restitution.
func (d *CollisionDetector) resolveEntityEntity(a, b *PhysicsEntity, c Collision) {
	invMassA := a.InverseMass()
	invMassB := b.InverseMass()
	totalInvMass := invMassA + invMassB
	if totalInvMass <= 0 {
		return
	}

	// Positional correction: the heavier body moves less
	correction := c.Normal.Mul(c.Penetration / totalInvMass)
	if !a.IsKinematic {
		a.Transform.Position = a.Transform.Position.Sub(correction.Mul(invMassA))
	}
	if !b.IsKinematic {
		b.Transform.Position = b.Transform.Position.Add(correction.Mul(invMassB))
	}

	// Velocity correction, skipped when already separating
	relative := b.Velocity.Sub(a.Velocity)
	normalSpeed := relative.Dot(c.Normal)
	if normalSpeed > 0 {
		return
	}

	restitution := min(a.Material.Restitution, b.Material.Restitution)
	j := -(1 + restitution) * normalSpeed / totalInvMass
	impulse := c.Normal.Mul(j)

	// A real impulse disturbs a sleeping partner; resting-contact noise
	// below the threshold leaves it asleep.
	const wakeImpulseThreshold = 1e-4
	if j > wakeImpulseThreshold {
		a.Wake()
		b.Wake()
	}

	if !a.IsSleeping {
		a.Velocity = a.Velocity.Sub(impulse.Mul(invMassA))
	}
	if !b.IsSleeping {
		b.Velocity = b.Velocity.Add(impulse.Mul(invMassB))
	}
}

// resolveEntityStatic pushes the entity fully out of the surface,
// reflects the normal velocity and opposes tangential sliding.
func (d *CollisionDetector) resolveEntityStatic(e *PhysicsEntity, c Collision) {
	if e.IsKinematic {
		return
	}

	e.Transform.Position = e.Transform.Position.Add(c.Normal.Mul(c.Penetration))

	normalSpeed := e.Velocity.Dot(c.Normal)
	if normalSpeed < 0 {
		// Reflect the into-surface component with restitution
		e.Velocity = e.Velocity.Sub(c.Normal.Mul((1 + e.Material.Restitution) * normalSpeed))
	}

	// Friction opposes what remains of the tangential velocity
	tangential := e.Velocity.Sub(c.Normal.Mul(e.Velocity.Dot(c.Normal)))
	tangentSpeed := tangential.Len()
	if tangentSpeed > 1e-9 {
		drop := e.Material.Friction * tangentSpeed
		if drop > tangentSpeed {
			drop = tangentSpeed
		}
		e.Velocity = e.Velocity.Sub(tangential.Mul(drop / tangentSpeed))
	}
}
