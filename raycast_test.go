package archphys

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestRaycastHitsEntity(t *testing.T) {
	w := NewWorld(testConfig(), nil)

	e := createSphereEntity(t, mgl64.Vec3{0, 0, -5}, 0.5, 1)
	id := w.AddEntity(e)

	hit, ok := w.Raycast(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, -1}, 100)
	if !ok {
		t.Fatal("ray toward a sphere missed")
	}
	if hit.Entity != id {
		t.Errorf("hit entity = %v, want %v", hit.Entity, id)
	}
	if math.Abs(hit.Distance-4.5) > 1e-9 {
		t.Errorf("hit distance = %v, want 4.5", hit.Distance)
	}
	if hit.Normal.Z() < 0.99 {
		t.Errorf("hit normal = %v, want facing the ray origin", hit.Normal)
	}
}

func TestRaycastHitsPlane(t *testing.T) {
	w := NewWorld(testConfig(), nil)
	w.AddStaticCollider(createFloorCollider(t, "floor", 0))

	hit, ok := w.Raycast(mgl64.Vec3{2, 3, 1}, mgl64.Vec3{0, -1, 0}, 100)
	if !ok {
		t.Fatal("downward ray missed the floor")
	}
	if hit.Collider != "floor" {
		t.Errorf("hit collider = %q, want floor", hit.Collider)
	}
	if math.Abs(hit.Distance-3) > 1e-9 {
		t.Errorf("hit distance = %v, want 3", hit.Distance)
	}
	if math.Abs(hit.Point.Y()) > 1e-9 {
		t.Errorf("hit point = %v, want on the y=0 plane", hit.Point)
	}
	if hit.Normal.Y() < 0.99 {
		t.Errorf("hit normal = %v, want up toward the ray", hit.Normal)
	}
}

func TestRaycastNearestWins(t *testing.T) {
	w := NewWorld(testConfig(), nil)
	w.AddStaticCollider(createFloorCollider(t, "floor", 0))

	e := createSphereEntity(t, mgl64.Vec3{0, 1, 0}, 0.3, 1)
	id := w.AddEntity(e)

	// Straight down through the sphere onto the floor: the sphere is
	// closer.
	hit, ok := w.Raycast(mgl64.Vec3{0, 5, 0}, mgl64.Vec3{0, -1, 0}, 100)
	if !ok {
		t.Fatal("ray missed everything")
	}
	if hit.Entity != id || hit.Collider != "" {
		t.Errorf("hit = %+v, want the sphere in front of the floor", hit)
	}
}

func TestRaycastBox(t *testing.T) {
	w := NewWorld(testConfig(), nil)
	table, err := newBoxStatic("table", mgl64.Vec3{0, 0, -3}, mgl64.Vec3{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	w.AddStaticCollider(table)

	hit, ok := w.Raycast(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, -1}, 100)
	if !ok {
		t.Fatal("ray missed the box")
	}
	if hit.Collider != "table" {
		t.Errorf("hit collider = %q, want table", hit.Collider)
	}
	if math.Abs(hit.Distance-2.5) > 1e-9 {
		t.Errorf("hit distance = %v, want the near face at 2.5", hit.Distance)
	}
	if hit.Normal.Z() < 0.99 {
		t.Errorf("entry normal = %v, want facing the ray", hit.Normal)
	}
}

func TestRaycastMisses(t *testing.T) {
	w := NewWorld(testConfig(), nil)
	w.AddEntity(createSphereEntity(t, mgl64.Vec3{0, 0, -5}, 0.5, 1))

	tests := []struct {
		name        string
		origin      mgl64.Vec3
		direction   mgl64.Vec3
		maxDistance float64
	}{
		{"wrong direction", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, 1}, 100},
		{"out of range", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, -1}, 2},
		{"offset to the side", mgl64.Vec3{5, 0, 0}, mgl64.Vec3{0, 0, -1}, 100},
		{"zero direction", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{}, 100},
		{"non-positive reach", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, -1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := w.Raycast(tt.origin, tt.direction, tt.maxDistance); ok {
				t.Error("expected a miss")
			}
		})
	}
}

func TestRaycastFromInsideSphere(t *testing.T) {
	w := NewWorld(testConfig(), nil)
	id := w.AddEntity(createSphereEntity(t, mgl64.Vec3{0, 0, 0}, 1, 1))

	hit, ok := w.Raycast(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, 100)
	if !ok {
		t.Fatal("ray from inside the sphere missed")
	}
	if hit.Entity != id {
		t.Errorf("hit entity = %v, want %v", hit.Entity, id)
	}
	if math.Abs(hit.Distance-1) > 1e-9 {
		t.Errorf("exit distance = %v, want 1", hit.Distance)
	}
}
