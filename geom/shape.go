package geom

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeKind discriminates the closed set of bounding volumes.
// Narrow-phase dispatch switches exhaustively on this value.
type ShapeKind int

const (
	KindSphere ShapeKind = iota
	KindBox
	KindPlane
	KindMesh
)

var (
	ErrNonPositiveExtent = errors.New("geom: shape extent must be positive")
	ErrDegenerateNormal  = errors.New("geom: plane normal must be non-zero")
	ErrEmptyMesh         = errors.New("geom: mesh requires at least one triangle")
)

// Shape is a tagged variant over sphere/box/plane/mesh bounding volumes.
// Only the fields of the active kind are meaningful. A mesh keeps its
// vertex/index buffers but collides as its local bounding box.
type Shape struct {
	Kind ShapeKind

	// KindSphere
	Radius float64

	// KindBox, and the box approximation of KindMesh
	HalfExtents mgl64.Vec3

	// KindPlane: Normal·p = Distance
	Normal   mgl64.Vec3
	Distance float64

	// KindMesh
	Vertices []mgl64.Vec3
	Indices  []uint32

	// Local-space center offset of the mesh bounding box
	meshCenter mgl64.Vec3
}

// NewSphere builds a sphere shape
func NewSphere(radius float64) (Shape, error) {
	if radius <= 0 {
		return Shape{}, ErrNonPositiveExtent
	}
	return Shape{Kind: KindSphere, Radius: radius}, nil
}

// NewBox builds a box shape from its full size on each axis
func NewBox(size mgl64.Vec3) (Shape, error) {
	if size.X() <= 0 || size.Y() <= 0 || size.Z() <= 0 {
		return Shape{}, ErrNonPositiveExtent
	}
	return Shape{Kind: KindBox, HalfExtents: size.Mul(0.5)}, nil
}

// NewPlane builds an infinite plane Normal·p = Distance.
// The normal is normalized here.
func NewPlane(normal mgl64.Vec3, distance float64) (Shape, error) {
	if normal.Len() < 1e-12 {
		return Shape{}, ErrDegenerateNormal
	}
	return Shape{Kind: KindPlane, Normal: normal.Normalize(), Distance: distance}, nil
}

// NewMesh builds a mesh shape; collision uses the local bounding box of
// its vertices, a stated precision trade-off.
func NewMesh(vertices []mgl64.Vec3, indices []uint32) (Shape, error) {
	if len(vertices) == 0 || len(indices) < 3 {
		return Shape{}, ErrEmptyMesh
	}

	min := vertices[0]
	max := vertices[0]
	for _, v := range vertices[1:] {
		min[0] = math.Min(min[0], v[0])
		min[1] = math.Min(min[1], v[1])
		min[2] = math.Min(min[2], v[2])
		max[0] = math.Max(max[0], v[0])
		max[1] = math.Max(max[1], v[1])
		max[2] = math.Max(max[2], v[2])
	}

	half := max.Sub(min).Mul(0.5)
	if half.X() <= 0 && half.Y() <= 0 && half.Z() <= 0 {
		return Shape{}, ErrNonPositiveExtent
	}

	return Shape{
		Kind:        KindMesh,
		Vertices:    vertices,
		Indices:     indices,
		HalfExtents: half,
		meshCenter:  min.Add(max).Mul(0.5),
	}, nil
}

// BoundingRadius returns the radius of the smallest sphere centered on the
// shape origin that encloses the volume. Planes report zero.
func (s Shape) BoundingRadius() float64 {
	switch s.Kind {
	case KindSphere:
		return s.Radius
	case KindBox:
		return s.HalfExtents.Len()
	case KindMesh:
		return s.meshCenter.Len() + s.HalfExtents.Len()
	case KindPlane:
		return 0
	}
	return 0
}

// Volume returns the enclosed volume. Planes report zero.
func (s Shape) Volume() float64 {
	switch s.Kind {
	case KindSphere:
		return (4.0 / 3.0) * math.Pi * s.Radius * s.Radius * s.Radius
	case KindBox, KindMesh:
		return 8.0 * s.HalfExtents.X() * s.HalfExtents.Y() * s.HalfExtents.Z()
	case KindPlane:
		return 0
	}
	return 0
}

// Inertia returns a scalar moment of inertia about the center of mass.
// The simulation treats bodies as dynamically isotropic; this is the
// sphere/box formula collapsed to one axis-averaged scalar.
func (s Shape) Inertia(mass float64) float64 {
	switch s.Kind {
	case KindSphere:
		return (2.0 / 5.0) * mass * s.Radius * s.Radius
	case KindBox, KindMesh:
		x := s.HalfExtents.X() * 2
		y := s.HalfExtents.Y() * 2
		z := s.HalfExtents.Z() * 2
		// Averaged box inertia: (m/12) * mean of the three axis terms
		return mass / 12.0 * ((y*y + z*z) + (x*x + z*z) + (x*x + y*y)) / 3.0
	case KindPlane:
		return math.Inf(1)
	}
	return 0
}

// ComputeAABB calculates the world-space bounding box at the given transform
func (s Shape) ComputeAABB(transform Transform) AABB {
	switch s.Kind {
	case KindSphere:
		r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}
		return AABB{
			Min: transform.Position.Sub(r),
			Max: transform.Position.Add(r),
		}

	case KindBox, KindMesh:
		center := transform.Apply(s.meshCenter)
		h := s.HalfExtents
		corners := [8]mgl64.Vec3{
			{-h.X(), -h.Y(), -h.Z()},
			{+h.X(), -h.Y(), -h.Z()},
			{-h.X(), +h.Y(), -h.Z()},
			{+h.X(), +h.Y(), -h.Z()},
			{-h.X(), -h.Y(), +h.Z()},
			{+h.X(), -h.Y(), +h.Z()},
			{-h.X(), +h.Y(), +h.Z()},
			{+h.X(), +h.Y(), +h.Z()},
		}

		world := transform.Rotation.Rotate(corners[0]).Add(center)
		min, max := world, world
		for i := 1; i < 8; i++ {
			world = transform.Rotation.Rotate(corners[i]).Add(center)
			min[0] = math.Min(min[0], world[0])
			min[1] = math.Min(min[1], world[1])
			min[2] = math.Min(min[2], world[2])
			max[0] = math.Max(max[0], world[0])
			max[1] = math.Max(max[1], world[1])
			max[2] = math.Max(max[2], world[2])
		}
		return AABB{Min: min, Max: max}

	case KindPlane:
		const thickness = 1.0
		const huge = 1e10

		normal := transform.Rotation.Rotate(s.Normal)
		planePoint := normal.Mul(s.Distance).Add(transform.Position)

		min := planePoint.Sub(normal.Mul(thickness))
		max := planePoint.Add(normal.Mul(thickness))
		for i := 0; i < 3; i++ {
			if min[i] > max[i] {
				min[i], max[i] = max[i], min[i]
			}
			// Extend to "infinity" along axes perpendicular to the normal
			if math.Abs(normal[i]) < 1.0-1e-9 {
				min[i] = -huge
				max[i] = huge
			}
		}
		return AABB{Min: min, Max: max}
	}
	return AABB{}
}

// WorldNormal returns the plane normal rotated into world space.
// Zero vector for non-plane shapes.
func (s Shape) WorldNormal(transform Transform) mgl64.Vec3 {
	if s.Kind != KindPlane {
		return mgl64.Vec3{}
	}
	return transform.Rotation.Rotate(s.Normal)
}

// ClosestPointOnBox clamps a world-space point to the oriented box of the
// shape at the given transform. Valid for KindBox and KindMesh.
func (s Shape) ClosestPointOnBox(transform Transform, point mgl64.Vec3) mgl64.Vec3 {
	local := transform.ApplyInverse(point).Sub(s.meshCenter)
	clamped := mgl64.Vec3{
		math.Max(-s.HalfExtents.X(), math.Min(local.X(), s.HalfExtents.X())),
		math.Max(-s.HalfExtents.Y(), math.Min(local.Y(), s.HalfExtents.Y())),
		math.Max(-s.HalfExtents.Z(), math.Min(local.Z(), s.HalfExtents.Z())),
	}
	return transform.Apply(clamped.Add(s.meshCenter))
}
