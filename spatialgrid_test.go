package archphys

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestWorldToCell(t *testing.T) {
	grid := NewSpatialGrid(1.0)

	tests := []struct {
		name string
		pos  mgl64.Vec3
		want CellKey
	}{
		{"origin", mgl64.Vec3{0, 0, 0}, CellKey{0, 0, 0}},
		{"inside first cell", mgl64.Vec3{0.5, 0.9, 0.1}, CellKey{0, 0, 0}},
		{"positive boundary", mgl64.Vec3{1, 1, 1}, CellKey{1, 1, 1}},
		{"negative", mgl64.Vec3{-0.5, -1.5, -2.5}, CellKey{-1, -2, -3}},
		{"negative boundary", mgl64.Vec3{-1, 0, 0}, CellKey{-1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := grid.worldToCell(tt.pos); got != tt.want {
				t.Errorf("worldToCell(%v) = %v, want %v", tt.pos, got, tt.want)
			}
		})
	}
}

func TestGridCellSizeFallback(t *testing.T) {
	if got := NewSpatialGrid(-2).CellSize(); got != 1.0 {
		t.Errorf("CellSize after invalid size = %v, want 1.0", got)
	}
}

func TestGridMembership(t *testing.T) {
	w := NewWorld(testConfig(), nil)
	grid := w.Grid()

	// A sphere of radius 0.3 at the origin spans the 8 cells around it
	e := createSphereEntity(t, mgl64.Vec3{0, 0, 0}, 0.3, 1)
	w.AddEntity(e)

	if got := grid.CellCount(); got != 8 {
		t.Errorf("CellCount = %d, want 8", got)
	}

	// Moving wholesale into one cell shrinks membership
	e.Transform.Position = mgl64.Vec3{0.5, 0.5, 0.5}
	e.UpdateAABB()
	grid.UpdateEntity(e)

	if got := grid.CellCount(); got != 1 {
		t.Errorf("CellCount after move = %d, want 1", got)
	}
}

func TestGridRemoveEntityDeletesEmptyCells(t *testing.T) {
	w := NewWorld(testConfig(), nil)
	grid := w.Grid()

	e := createSphereEntity(t, mgl64.Vec3{0.5, 0.5, 0.5}, 0.1, 1)
	id := w.AddEntity(e)
	if grid.CellCount() == 0 {
		t.Fatal("no cells after insert")
	}

	w.RemoveEntity(id)
	if got := grid.CellCount(); got != 0 {
		t.Errorf("CellCount after removal = %d, want 0", got)
	}

	grid.RemoveEntity(id) // no-op
}

func TestPotentialCollisionsSameCell(t *testing.T) {
	w := NewWorld(testConfig(), nil)

	a := createSphereEntity(t, mgl64.Vec3{0.2, 0.5, 0.5}, 0.1, 1)
	b := createSphereEntity(t, mgl64.Vec3{0.8, 0.5, 0.5}, 0.1, 1)
	c := createSphereEntity(t, mgl64.Vec3{10.5, 0.5, 0.5}, 0.1, 1)
	w.AddEntity(a)
	w.AddEntity(b)
	w.AddEntity(c)

	candidates := w.Grid().PotentialCollisions(a)
	seen := make(map[EntityID]bool)
	for _, id := range candidates {
		seen[id] = true
	}

	if !seen[b.ID] {
		t.Error("same-cell entity missing from candidates")
	}
	if seen[c.ID] {
		t.Error("distant entity reported as candidate")
	}
	if seen[a.ID] {
		t.Error("entity listed as its own candidate")
	}
}

func TestPotentialCollisionsDeduplicated(t *testing.T) {
	w := NewWorld(testConfig(), nil)

	// Both large enough to share several cells
	a := createSphereEntity(t, mgl64.Vec3{0, 0, 0}, 0.6, 1)
	b := createSphereEntity(t, mgl64.Vec3{0.2, 0.2, 0.2}, 0.6, 1)
	w.AddEntity(a)
	w.AddEntity(b)

	candidates := w.Grid().PotentialCollisions(a)
	count := 0
	for _, id := range candidates {
		if id == b.ID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("shared-cell neighbor reported %d times, want 1", count)
	}
}

func TestPlaneColliderIsAlwaysCandidate(t *testing.T) {
	w := NewWorld(testConfig(), nil)
	w.AddStaticCollider(createFloorCollider(t, "floor", 0))

	// The infinite plane must not blow up the cell structure
	if got := w.Grid().CellCount(); got != 0 {
		t.Errorf("plane occupies %d cells, want 0", got)
	}

	// And must be a candidate no matter where the entity is
	e := createSphereEntity(t, mgl64.Vec3{500, 300, -900}, 0.1, 1)
	w.AddEntity(e)

	candidates := w.Grid().PotentialStaticCollisions(e)
	if len(candidates) != 1 || candidates[0] != "floor" {
		t.Errorf("PotentialStaticCollisions = %v, want [floor]", candidates)
	}
}

func TestStaticColliderMembership(t *testing.T) {
	w := NewWorld(testConfig(), nil)
	grid := w.Grid()

	box, err := newBoxStatic("table", mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{0.8, 0.8, 0.8})
	if err != nil {
		t.Fatal(err)
	}
	w.AddStaticCollider(box)
	if grid.CellCount() == 0 {
		t.Fatal("bounded static collider occupies no cells")
	}

	e := createSphereEntity(t, mgl64.Vec3{0.5, 1.0, 0.5}, 0.2, 1)
	w.AddEntity(e)

	found := false
	for _, id := range grid.PotentialStaticCollisions(e) {
		if id == "table" {
			found = true
		}
	}
	if !found {
		t.Error("nearby static collider missing from candidates")
	}

	w.RemoveStaticCollider("table")
	for _, id := range grid.PotentialStaticCollisions(e) {
		if id == "table" {
			t.Error("removed static collider still a candidate")
		}
	}
}

func TestQueryRadius(t *testing.T) {
	w := NewWorld(testConfig(), nil)

	inside := createSphereEntity(t, mgl64.Vec3{1, 0, 0}, 0.1, 1)
	outside := createSphereEntity(t, mgl64.Vec3{20, 0, 0}, 0.1, 1)
	w.AddEntity(inside)
	w.AddEntity(outside)

	ids := w.Grid().QueryRadius(mgl64.Vec3{0, 0, 0}, 2)
	seen := make(map[EntityID]bool)
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[inside.ID] {
		t.Error("in-range entity missing from radius query")
	}
	if seen[outside.ID] {
		t.Error("out-of-range entity returned by radius query")
	}
}

func TestOptimizeDropsEmptyCells(t *testing.T) {
	grid := NewSpatialGrid(1.0)
	grid.cells[CellKey{5, 5, 5}] = &cell{}
	grid.cells[CellKey{6, 6, 6}] = &cell{entities: []EntityID{42}}

	grid.Optimize()

	if _, ok := grid.cells[CellKey{5, 5, 5}]; ok {
		t.Error("Optimize kept an empty cell")
	}
	if _, ok := grid.cells[CellKey{6, 6, 6}]; !ok {
		t.Error("Optimize dropped an occupied cell")
	}
}
