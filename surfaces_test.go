package archphys

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ishabanya/archphys/geom"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		height float64
		normal mgl64.Vec3
		want   SurfaceClass
	}{
		{"floor", 0, mgl64.Vec3{0, 1, 0}, SurfaceFloor},
		{"slightly tilted floor", 0.1, mgl64.Vec3{0.1, 1, 0}, SurfaceFloor},
		{"table top", 0.75, mgl64.Vec3{0, 1, 0}, SurfaceTable},
		{"ceiling", 2.5, mgl64.Vec3{0, -1, 0}, SurfaceCeiling},
		{"wall", 1.5, mgl64.Vec3{0, 0, 1}, SurfaceWall},
		{"wall other axis", 1.5, mgl64.Vec3{-1, 0, 0}, SurfaceWall},
		{"steep ramp", 1.0, mgl64.Vec3{0, 0.5, 0.87}, SurfaceUnknown},
		{"degenerate normal", 0, mgl64.Vec3{}, SurfaceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transform := geom.NewTransformAt(mgl64.Vec3{0, tt.height, 0})
			if got := Classify(transform, tt.normal); got != tt.want {
				t.Errorf("Classify(height %v, normal %v) = %v, want %v", tt.height, tt.normal, got, tt.want)
			}
		})
	}
}

func newTrackerWorld(t *testing.T) (*World, *SnapSystem, *SurfaceTracker) {
	t.Helper()
	cfg := testConfig()
	w := NewWorld(cfg, nil)
	snaps := NewSnapSystem(w, cfg.Snap)
	w.AttachSnapSystem(snaps)
	return w, snaps, NewSurfaceTracker(w, snaps, nil)
}

func floorEvent(kind SurfaceEventKind, anchor string) SurfaceEvent {
	return SurfaceEvent{
		Kind:      kind,
		AnchorID:  anchor,
		Transform: geom.NewTransformAt(mgl64.Vec3{0, 0, 0}),
		Normal:    mgl64.Vec3{0, 1, 0},
		Extent:    mgl64.Vec3{6, 0, 6},
	}
}

func TestTrackerAddsColliderAndTarget(t *testing.T) {
	w, snaps, tracker := newTrackerWorld(t)

	tracker.Handle(floorEvent(SurfaceAdded, "anchor-1"))

	colliderID, ok := tracker.ColliderFor("anchor-1")
	if !ok {
		t.Fatal("no collider recorded for the anchor")
	}
	if w.StaticCollider(colliderID) == nil {
		t.Error("recorded collider id does not resolve in the world")
	}
	if got := tracker.ClassOf("anchor-1"); got != SurfaceFloor {
		t.Errorf("ClassOf = %v, want SurfaceFloor", got)
	}

	target := snaps.Target("target:anchor-1")
	if target == nil {
		t.Fatal("floor anchor carries no snap target")
	}
	if target.Type != SnapFloor {
		t.Errorf("target type = %v, want SnapFloor", target.Type)
	}
}

func TestTrackerUpdateReclassifies(t *testing.T) {
	_, snaps, tracker := newTrackerWorld(t)

	tracker.Handle(floorEvent(SurfaceAdded, "anchor-1"))

	// The anchor re-orients into a wall
	wall := SurfaceEvent{
		Kind:      SurfaceUpdated,
		AnchorID:  "anchor-1",
		Transform: geom.NewTransformAt(mgl64.Vec3{0, 1.5, -3}),
		Normal:    mgl64.Vec3{0, 0, 1},
		Extent:    mgl64.Vec3{6, 3, 0},
	}
	tracker.Handle(wall)

	if got := tracker.ClassOf("anchor-1"); got != SurfaceWall {
		t.Errorf("ClassOf after update = %v, want SurfaceWall", got)
	}
	target := snaps.Target("target:anchor-1")
	if target == nil || target.Type != SnapWall {
		t.Errorf("target after update = %+v, want a SnapWall target", target)
	}
}

func TestTrackerRemoveInvalidatesEverything(t *testing.T) {
	w, snaps, tracker := newTrackerWorld(t)

	tracker.Handle(floorEvent(SurfaceAdded, "anchor-1"))
	colliderID, _ := tracker.ColliderFor("anchor-1")

	tracker.Handle(SurfaceEvent{Kind: SurfaceRemoved, AnchorID: "anchor-1"})

	if _, ok := tracker.ColliderFor("anchor-1"); ok {
		t.Error("collider mapping survived removal")
	}
	if w.StaticCollider(colliderID) != nil {
		t.Error("collider survived removal in the world")
	}
	if snaps.Target("target:anchor-1") != nil {
		t.Error("snap target survived removal")
	}
	if tracker.ClassOf("anchor-1") != SurfaceUnknown {
		t.Error("classification survived removal")
	}

	// Removing again is a no-op
	tracker.Handle(SurfaceEvent{Kind: SurfaceRemoved, AnchorID: "anchor-1"})
}

func TestTrackerMeshAnchor(t *testing.T) {
	w, snaps, tracker := newTrackerWorld(t)

	tracker.Handle(SurfaceEvent{
		Kind:      SurfaceAdded,
		AnchorID:  "scan-1",
		Transform: geom.NewTransformAt(mgl64.Vec3{1, 0, 1}),
		Vertices:  []mgl64.Vec3{{-1, 0, -1}, {1, 0, -1}, {0, 0.3, 1}},
		Indices:   []uint32{0, 1, 2},
	})

	colliderID, ok := tracker.ColliderFor("scan-1")
	if !ok {
		t.Fatal("no collider for the mesh anchor")
	}
	col := w.StaticCollider(colliderID)
	if col == nil {
		t.Fatal("mesh collider missing from the world")
	}
	if col.Shape.Kind != geom.KindMesh {
		t.Errorf("collider shape kind = %v, want KindMesh", col.Shape.Kind)
	}

	// Unclassified scans carry no snap target
	if snaps.Target("target:scan-1") != nil {
		t.Error("mesh anchor gained a snap target")
	}
}

func TestTrackerSkipsDegenerateGeometry(t *testing.T) {
	_, _, tracker := newTrackerWorld(t)

	tracker.Handle(SurfaceEvent{
		Kind:      SurfaceAdded,
		AnchorID:  "bad-1",
		Transform: geom.NewTransform(),
		Normal:    mgl64.Vec3{}, // degenerate
	})

	if _, ok := tracker.ColliderFor("bad-1"); ok {
		t.Error("degenerate surface produced a collider")
	}
}

func TestTrackerCeilingHasNoTarget(t *testing.T) {
	_, snaps, tracker := newTrackerWorld(t)

	tracker.Handle(SurfaceEvent{
		Kind:      SurfaceAdded,
		AnchorID:  "ceiling-1",
		Transform: geom.NewTransformAt(mgl64.Vec3{0, 2.4, 0}),
		Normal:    mgl64.Vec3{0, -1, 0},
		Extent:    mgl64.Vec3{6, 0, 6},
	})

	if snaps.Target("target:ceiling-1") != nil {
		t.Error("ceiling gained a snap target")
	}
}
