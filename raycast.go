package archphys

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ishabanya/archphys/geom"
)

// RaycastHit describes the nearest intersection found by a ray query.
// Exactly one of Entity/Collider identifies what was hit.
type RaycastHit struct {
	Entity   EntityID
	Collider string

	Point    mgl64.Vec3
	Normal   mgl64.Vec3
	Distance float64
}

// Raycast finds the nearest entity or static surface along a ray, used
// by the host to drop furniture onto surfaces. Entities are tested as
// bounding spheres, static colliders per shape kind. Returns false when
// nothing is hit within maxDistance.
func (w *World) Raycast(origin, direction mgl64.Vec3, maxDistance float64) (RaycastHit, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if direction.Len() < 1e-12 || maxDistance <= 0 {
		return RaycastHit{}, false
	}
	dir := direction.Normalize()

	best := RaycastHit{Distance: maxDistance}
	found := false

	for _, e := range w.entities {
		if !e.IsActive {
			continue
		}
		t, ok := raySphere(origin, dir, e.Transform.Position, e.BoundingRadius())
		if !ok || t >= best.Distance {
			continue
		}
		point := origin.Add(dir.Mul(t))
		normal := point.Sub(e.Transform.Position)
		if normal.Len() > 1e-12 {
			normal = normal.Normalize()
		}
		best = RaycastHit{Entity: e.ID, Point: point, Normal: normal, Distance: t}
		found = true
	}

	for _, col := range w.staticColliders {
		t, normal, ok := rayStatic(origin, dir, col)
		if !ok || t >= best.Distance {
			continue
		}
		best = RaycastHit{
			Collider: col.ID,
			Point:    origin.Add(dir.Mul(t)),
			Normal:   normal,
			Distance: t,
		}
		found = true
	}

	return best, found
}

func rayStatic(origin, dir mgl64.Vec3, col *StaticCollider) (float64, mgl64.Vec3, bool) {
	switch col.Shape.Kind {
	case geom.KindPlane:
		normal := col.Shape.WorldNormal(col.Transform)
		planePoint := normal.Mul(col.Shape.Distance).Add(col.Transform.Position)
		denom := dir.Dot(normal)
		if math.Abs(denom) < 1e-12 {
			return 0, mgl64.Vec3{}, false
		}
		t := planePoint.Sub(origin).Dot(normal) / denom
		if t < 0 {
			return 0, mgl64.Vec3{}, false
		}
		if denom > 0 {
			normal = normal.Mul(-1)
		}
		return t, normal, true

	case geom.KindBox, geom.KindMesh:
		return rayAABB(origin, dir, col.AABB())

	case geom.KindSphere:
		t, ok := raySphere(origin, dir, col.Transform.Position, col.Shape.Radius)
		if !ok {
			return 0, mgl64.Vec3{}, false
		}
		point := origin.Add(dir.Mul(t))
		normal := point.Sub(col.Transform.Position)
		if normal.Len() > 1e-12 {
			normal = normal.Normalize()
		}
		return t, normal, true
	}

	return 0, mgl64.Vec3{}, false
}

// raySphere returns the nearest non-negative ray parameter hitting the
// sphere
func raySphere(origin, dir, center mgl64.Vec3, radius float64) (float64, bool) {
	if radius <= 0 {
		return 0, false
	}

	oc := origin.Sub(center)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius

	discriminant := b*b - c
	if discriminant < 0 {
		return 0, false
	}

	sqrtD := math.Sqrt(discriminant)
	t := -b - sqrtD
	if t < 0 {
		t = -b + sqrtD
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}

// rayAABB is the slab test; the returned normal is the axis of entry
func rayAABB(origin, dir mgl64.Vec3, box geom.AABB) (float64, mgl64.Vec3, bool) {
	tMin := math.Inf(-1)
	tMax := math.Inf(1)
	entryAxis := 0
	entrySign := 1.0

	for i := 0; i < 3; i++ {
		if math.Abs(dir[i]) < 1e-12 {
			if origin[i] < box.Min[i] || origin[i] > box.Max[i] {
				return 0, mgl64.Vec3{}, false
			}
			continue
		}

		inv := 1.0 / dir[i]
		t1 := (box.Min[i] - origin[i]) * inv
		t2 := (box.Max[i] - origin[i]) * inv
		sign := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			sign = 1.0
		}
		if t1 > tMin {
			tMin = t1
			entryAxis = i
			entrySign = sign
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, mgl64.Vec3{}, false
		}
	}

	t := tMin
	if t < 0 {
		t = tMax
		if t < 0 {
			return 0, mgl64.Vec3{}, false
		}
	}

	var normal mgl64.Vec3
	normal[entryAxis] = entrySign
	return t, normal, true
}
