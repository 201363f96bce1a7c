package archphys

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ishabanya/archphys/geom"
	"github.com/ishabanya/archphys/logger"
)

// SurfaceEventKind identifies an AR anchor lifecycle change
type SurfaceEventKind int

const (
	SurfaceAdded SurfaceEventKind = iota
	SurfaceUpdated
	SurfaceRemoved
)

// SurfaceClass is the room-semantic classification of a scanned surface
type SurfaceClass int

const (
	SurfaceUnknown SurfaceClass = iota
	SurfaceFloor
	SurfaceCeiling
	SurfaceWall
	SurfaceTable
)

// SurfaceEvent is one item of the add/update/remove stream delivered by
// the AR/scanning collaborator. A plane carries Normal and Extent; a
// scanned mesh carries vertex/index buffers instead.
type SurfaceEvent struct {
	Kind     SurfaceEventKind
	AnchorID string

	Transform geom.Transform
	Normal    mgl64.Vec3
	Extent    mgl64.Vec3 // full plane extent; zero for meshes

	Vertices []mgl64.Vec3
	Indices  []uint32
}

// tableHeight is the minimum anchor height for an upward plane to count
// as a table instead of floor
const tableHeight = 0.4

// SurfaceTracker consumes the AR surface feed and maintains the
// simulation-side mirror: a StaticCollider and, where the classification
// warrants one, a SnapTarget per anchor. The anchor-to-collider and
// anchor-to-target relations are explicit maps, invalidated
// synchronously on remove events, never recovered by traversal.
type SurfaceTracker struct {
	world *World
	snaps *SnapSystem
	log   *logger.Logger

	colliderByAnchor map[string]string
	targetByAnchor   map[string]string
	classByAnchor    map[string]SurfaceClass
}

// NewSurfaceTracker creates a tracker feeding the given world and snap
// system. The snap system may be nil; colliders are still maintained.
func NewSurfaceTracker(world *World, snaps *SnapSystem, log *logger.Logger) *SurfaceTracker {
	return &SurfaceTracker{
		world:            world,
		snaps:            snaps,
		log:              log,
		colliderByAnchor: make(map[string]string),
		targetByAnchor:   make(map[string]string),
		classByAnchor:    make(map[string]SurfaceClass),
	}
}

// Handle applies one surface event. Malformed geometry is skipped, never
// fatal; remove events for unknown anchors are no-ops.
func (t *SurfaceTracker) Handle(ev SurfaceEvent) {
	switch ev.Kind {
	case SurfaceAdded, SurfaceUpdated:
		t.upsert(ev)
	case SurfaceRemoved:
		t.remove(ev.AnchorID)
	}
}

// Classify derives the room semantics of a plane from its world normal
// and height
func Classify(transform geom.Transform, normal mgl64.Vec3) SurfaceClass {
	if normal.Len() < 1e-12 {
		return SurfaceUnknown
	}
	n := normal.Normalize()

	switch {
	case n.Y() > 0.8:
		if transform.Position.Y() > tableHeight {
			return SurfaceTable
		}
		return SurfaceFloor
	case n.Y() < -0.8:
		return SurfaceCeiling
	case math.Abs(n.Y()) < 0.3:
		return SurfaceWall
	}
	return SurfaceUnknown
}

// ClassOf returns the classification recorded for an anchor
func (t *SurfaceTracker) ClassOf(anchorID string) SurfaceClass {
	return t.classByAnchor[anchorID]
}

// ColliderFor returns the collider id mirroring an anchor, if any
func (t *SurfaceTracker) ColliderFor(anchorID string) (string, bool) {
	id, ok := t.colliderByAnchor[anchorID]
	return id, ok
}

func (t *SurfaceTracker) upsert(ev SurfaceEvent) {
	shape, class, ok := t.buildShape(ev)
	if !ok {
		t.log.Warn("surface %s has degenerate geometry; skipped", ev.AnchorID)
		return
	}

	colliderID := "surface:" + ev.AnchorID
	t.world.AddStaticCollider(NewStaticCollider(colliderID, ev.Transform, shape))
	t.colliderByAnchor[ev.AnchorID] = colliderID
	t.classByAnchor[ev.AnchorID] = class

	t.syncSnapTarget(ev, class)
}

func (t *SurfaceTracker) buildShape(ev SurfaceEvent) (geom.Shape, SurfaceClass, bool) {
	if len(ev.Vertices) > 0 {
		shape, err := geom.NewMesh(ev.Vertices, ev.Indices)
		if err != nil {
			return geom.Shape{}, SurfaceUnknown, false
		}
		return shape, SurfaceUnknown, true
	}

	shape, err := geom.NewPlane(ev.Normal, 0)
	if err != nil {
		return geom.Shape{}, SurfaceUnknown, false
	}
	return shape, Classify(ev.Transform, ev.Normal), true
}

// syncSnapTarget keeps the anchor's snap target in step with its class:
// floors and tables invite floor snaps, walls invite wall snaps,
// everything else carries no target.
func (t *SurfaceTracker) syncSnapTarget(ev SurfaceEvent, class SurfaceClass) {
	if t.snaps == nil {
		return
	}

	var targetType SnapTargetType
	switch class {
	case SurfaceFloor, SurfaceTable:
		targetType = SnapFloor
	case SurfaceWall:
		targetType = SnapWall
	default:
		if targetID, ok := t.targetByAnchor[ev.AnchorID]; ok {
			t.snaps.RemoveTarget(targetID)
			delete(t.targetByAnchor, ev.AnchorID)
		}
		return
	}

	targetID := "target:" + ev.AnchorID
	t.snaps.AddTarget(&SnapTarget{
		ID:        targetID,
		Type:      targetType,
		Transform: ev.Transform,
		Normal:    ev.Normal,
		Extents:   ev.Extent,
	})
	t.targetByAnchor[ev.AnchorID] = targetID
}

func (t *SurfaceTracker) remove(anchorID string) {
	if colliderID, ok := t.colliderByAnchor[anchorID]; ok {
		t.world.RemoveStaticCollider(colliderID)
		delete(t.colliderByAnchor, anchorID)
	}
	if targetID, ok := t.targetByAnchor[anchorID]; ok {
		if t.snaps != nil {
			t.snaps.RemoveTarget(targetID)
		}
		delete(t.targetByAnchor, anchorID)
	}
	delete(t.classByAnchor, anchorID)
}
