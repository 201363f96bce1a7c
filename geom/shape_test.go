package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNewSphere(t *testing.T) {
	s, err := NewSphere(0.5)
	if err != nil {
		t.Fatalf("NewSphere: %v", err)
	}
	if s.Kind != KindSphere || s.Radius != 0.5 {
		t.Errorf("sphere = %+v", s)
	}

	for _, radius := range []float64{0, -1} {
		if _, err := NewSphere(radius); err != ErrNonPositiveExtent {
			t.Errorf("NewSphere(%v) error = %v, want ErrNonPositiveExtent", radius, err)
		}
	}
}

func TestNewBox(t *testing.T) {
	s, err := NewBox(mgl64.Vec3{2, 4, 6})
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	if s.HalfExtents != (mgl64.Vec3{1, 2, 3}) {
		t.Errorf("HalfExtents = %v, want half the full size", s.HalfExtents)
	}

	bad := []mgl64.Vec3{{0, 1, 1}, {1, -1, 1}, {1, 1, 0}}
	for _, size := range bad {
		if _, err := NewBox(size); err != ErrNonPositiveExtent {
			t.Errorf("NewBox(%v) error = %v, want ErrNonPositiveExtent", size, err)
		}
	}
}

func TestNewPlane(t *testing.T) {
	s, err := NewPlane(mgl64.Vec3{0, 2, 0}, 1.5)
	if err != nil {
		t.Fatalf("NewPlane: %v", err)
	}
	if s.Normal != (mgl64.Vec3{0, 1, 0}) {
		t.Errorf("normal = %v, want normalized", s.Normal)
	}
	if s.Distance != 1.5 {
		t.Errorf("distance = %v, want 1.5", s.Distance)
	}

	if _, err := NewPlane(mgl64.Vec3{}, 0); err != ErrDegenerateNormal {
		t.Errorf("zero normal error = %v, want ErrDegenerateNormal", err)
	}
}

func TestNewMesh(t *testing.T) {
	vertices := []mgl64.Vec3{{-1, 0, -2}, {1, 0, -2}, {0, 0.5, 2}}
	indices := []uint32{0, 1, 2}

	s, err := NewMesh(vertices, indices)
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	if s.Kind != KindMesh {
		t.Errorf("kind = %v, want KindMesh", s.Kind)
	}
	if s.HalfExtents != (mgl64.Vec3{1, 0.25, 2}) {
		t.Errorf("HalfExtents = %v, want the vertex bounds", s.HalfExtents)
	}

	if _, err := NewMesh(nil, nil); err != ErrEmptyMesh {
		t.Errorf("empty mesh error = %v, want ErrEmptyMesh", err)
	}
	if _, err := NewMesh(vertices, []uint32{0, 1}); err != ErrEmptyMesh {
		t.Errorf("two-index mesh error = %v, want ErrEmptyMesh", err)
	}
}

func TestBoundingRadius(t *testing.T) {
	sphere, _ := NewSphere(0.5)
	if sphere.BoundingRadius() != 0.5 {
		t.Errorf("sphere bounding radius = %v", sphere.BoundingRadius())
	}

	box, _ := NewBox(mgl64.Vec3{2, 2, 2})
	want := math.Sqrt(3) // corner of a unit half-extent box
	if math.Abs(box.BoundingRadius()-want) > 1e-12 {
		t.Errorf("box bounding radius = %v, want %v", box.BoundingRadius(), want)
	}

	plane, _ := NewPlane(mgl64.Vec3{0, 1, 0}, 0)
	if plane.BoundingRadius() != 0 {
		t.Errorf("plane bounding radius = %v, want 0", plane.BoundingRadius())
	}
}

func TestVolume(t *testing.T) {
	sphere, _ := NewSphere(1)
	if math.Abs(sphere.Volume()-(4.0/3.0)*math.Pi) > 1e-12 {
		t.Errorf("unit sphere volume = %v", sphere.Volume())
	}

	box, _ := NewBox(mgl64.Vec3{1, 2, 3})
	if math.Abs(box.Volume()-6) > 1e-12 {
		t.Errorf("box volume = %v, want 6", box.Volume())
	}
}

func TestInertia(t *testing.T) {
	sphere, _ := NewSphere(0.5)
	want := 0.4 * 2.0 * 0.25 // 2/5 m r²
	if math.Abs(sphere.Inertia(2)-want) > 1e-12 {
		t.Errorf("sphere inertia = %v, want %v", sphere.Inertia(2), want)
	}

	box, _ := NewBox(mgl64.Vec3{1, 1, 1})
	if box.Inertia(3) <= 0 {
		t.Errorf("box inertia = %v, want positive", box.Inertia(3))
	}

	plane, _ := NewPlane(mgl64.Vec3{0, 1, 0}, 0)
	if !math.IsInf(plane.Inertia(1), 1) {
		t.Errorf("plane inertia = %v, want +Inf", plane.Inertia(1))
	}
}

func TestComputeAABBSphere(t *testing.T) {
	s, _ := NewSphere(0.5)
	aabb := s.ComputeAABB(NewTransformAt(mgl64.Vec3{1, 2, 3}))

	if aabb.Min != (mgl64.Vec3{0.5, 1.5, 2.5}) || aabb.Max != (mgl64.Vec3{1.5, 2.5, 3.5}) {
		t.Errorf("sphere AABB = %+v", aabb)
	}
}

func TestComputeAABBRotatedBox(t *testing.T) {
	s, _ := NewBox(mgl64.Vec3{2, 2, 2})
	transform := Transform{
		Position: mgl64.Vec3{},
		Rotation: mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 1, 0}),
	}
	aabb := s.ComputeAABB(transform)

	// A unit-half-extent box rotated 45° about y spans sqrt(2) in x/z
	want := math.Sqrt(2)
	if math.Abs(aabb.Max.X()-want) > 1e-9 || math.Abs(aabb.Max.Z()-want) > 1e-9 {
		t.Errorf("rotated box AABB max = %v, want x/z of %v", aabb.Max, want)
	}
	if math.Abs(aabb.Max.Y()-1) > 1e-9 {
		t.Errorf("rotated box AABB max.y = %v, want 1", aabb.Max.Y())
	}
}

func TestComputeAABBMeshUsesOffsetCenter(t *testing.T) {
	// Vertices offset from the local origin: the AABB must follow them
	vertices := []mgl64.Vec3{{9, 0, 9}, {11, 0, 9}, {10, 1, 11}}
	s, err := NewMesh(vertices, []uint32{0, 1, 2})
	if err != nil {
		t.Fatal(err)
	}

	aabb := s.ComputeAABB(NewTransform())
	if math.Abs(aabb.Min.X()-9) > 1e-9 || math.Abs(aabb.Max.X()-11) > 1e-9 {
		t.Errorf("mesh AABB = %+v, want x spanning [9, 11]", aabb)
	}
}

func TestComputeAABBPlane(t *testing.T) {
	s, _ := NewPlane(mgl64.Vec3{0, 1, 0}, 0)
	aabb := s.ComputeAABB(NewTransform())

	if aabb.Extents().X() < 1e9 || aabb.Extents().Z() < 1e9 {
		t.Errorf("plane AABB %+v not extended along its surface", aabb)
	}
	if aabb.Extents().Y() > 10 {
		t.Errorf("plane AABB thickness = %v, want thin across the normal", aabb.Extents().Y())
	}
}

func TestClosestPointOnBox(t *testing.T) {
	s, _ := NewBox(mgl64.Vec3{2, 2, 2})

	tests := []struct {
		name  string
		point mgl64.Vec3
		want  mgl64.Vec3
	}{
		{"outside one axis", mgl64.Vec3{5, 0, 0}, mgl64.Vec3{1, 0, 0}},
		{"outside corner", mgl64.Vec3{5, 5, 5}, mgl64.Vec3{1, 1, 1}},
		{"inside stays", mgl64.Vec3{0.2, -0.3, 0.4}, mgl64.Vec3{0.2, -0.3, 0.4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.ClosestPointOnBox(NewTransform(), tt.point)
			if got.Sub(tt.want).Len() > 1e-9 {
				t.Errorf("ClosestPointOnBox(%v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}
}

func TestClosestPointOnBoxTranslated(t *testing.T) {
	s, _ := NewBox(mgl64.Vec3{2, 2, 2})
	transform := NewTransformAt(mgl64.Vec3{10, 0, 0})

	got := s.ClosestPointOnBox(transform, mgl64.Vec3{0, 0, 0})
	if got.Sub(mgl64.Vec3{9, 0, 0}).Len() > 1e-9 {
		t.Errorf("ClosestPointOnBox = %v, want the near face at (9,0,0)", got)
	}
}
