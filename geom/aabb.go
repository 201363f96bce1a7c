package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	// AABBs overlap if they overlap on all three axes
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// Center returns the midpoint of the box
func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Extents returns the full size of the box on each axis
func (a AABB) Extents() mgl64.Vec3 {
	return a.Max.Sub(a.Min)
}

// Inflated returns the AABB grown by d on every side
func (a AABB) Inflated(d float64) AABB {
	r := mgl64.Vec3{d, d, d}
	return AABB{Min: a.Min.Sub(r), Max: a.Max.Add(r)}
}

// ClosestPoint returns the point inside the AABB closest to p,
// clamping per axis
func (a AABB) ClosestPoint(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		math.Max(a.Min.X(), math.Min(p.X(), a.Max.X())),
		math.Max(a.Min.Y(), math.Min(p.Y(), a.Max.Y())),
		math.Max(a.Min.Z(), math.Min(p.Z(), a.Max.Z())),
	}
}
