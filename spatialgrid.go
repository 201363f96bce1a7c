package archphys

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ishabanya/archphys/geom"
)

// CellKey is the integer coordinate of a cell in the uniform grid
type CellKey struct {
	X, Y, Z int
}

// cell holds the occupants of one grid cell: moving entities and static
// room colliders are kept in separate lists so each query walks only the
// population it cares about.
type cell struct {
	entities []EntityID
	statics  []string
}

func (c *cell) empty() bool {
	return len(c.entities) == 0 && len(c.statics) == 0
}

// SpatialGrid is a uniform spatial hash used as the collision broad
// phase. Cells are created lazily on insert and deleted once empty; a
// periodic Optimize sweep compacts whatever removal left behind.
//
// The grid must never produce false negatives: an object is registered in
// every cell its bounding box overlaps. False positives are expected and
// filtered by the narrow phase.
type SpatialGrid struct {
	cellSize float64
	cells    map[CellKey]*cell

	// Reverse membership, so updates and removals never have to guess
	// which cells an object was in.
	entityCells map[EntityID][]CellKey
	staticCells map[string][]CellKey

	// Colliders whose bounding box is effectively infinite (planes).
	// They live outside the cell structure and are candidates for every
	// query.
	unboundedStatics map[string]struct{}
}

// NewSpatialGrid creates a grid with the given cell size in world units
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 1.0
	}
	return &SpatialGrid{
		cellSize:         cellSize,
		cells:            make(map[CellKey]*cell),
		entityCells:      make(map[EntityID][]CellKey),
		staticCells:      make(map[string][]CellKey),
		unboundedStatics: make(map[string]struct{}),
	}
}

// maxBoundedSpan is the world-unit span above which a collider's bounding
// box is treated as infinite and kept out of the cell structure.
const maxBoundedSpan = 1e6

// worldToCell converts a world position to its cell coordinate
func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

func (sg *SpatialGrid) cellRange(aabb geom.AABB) (CellKey, CellKey) {
	return sg.worldToCell(aabb.Min), sg.worldToCell(aabb.Max)
}

// UpdateEntity recomputes the cell membership of an entity from its
// current bounding box. Call once per step for anything that moved.
func (sg *SpatialGrid) UpdateEntity(e *PhysicsEntity) {
	sg.RemoveEntity(e.ID)

	minCell, maxCell := sg.cellRange(e.AABB())
	keys := sg.entityCells[e.ID]

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				key := CellKey{x, y, z}
				c := sg.cells[key]
				if c == nil {
					c = &cell{}
					sg.cells[key] = c
				}
				c.entities = append(c.entities, e.ID)
				keys = append(keys, key)
			}
		}
	}

	sg.entityCells[e.ID] = keys
}

// RemoveEntity clears an entity out of every cell it occupies.
// Unknown ids are no-ops.
func (sg *SpatialGrid) RemoveEntity(id EntityID) {
	keys, ok := sg.entityCells[id]
	if !ok {
		return
	}

	for _, key := range keys {
		c := sg.cells[key]
		if c == nil {
			continue
		}
		for i, other := range c.entities {
			if other == id {
				c.entities = append(c.entities[:i], c.entities[i+1:]...)
				break
			}
		}
		if c.empty() {
			delete(sg.cells, key)
		}
	}

	delete(sg.entityCells, id)
}

// UpdateStaticCollider registers or re-registers a scanned surface
func (sg *SpatialGrid) UpdateStaticCollider(col *StaticCollider) {
	sg.RemoveStaticCollider(col.ID)

	aabb := col.AABB()
	extents := aabb.Max.Sub(aabb.Min)
	if extents.X() > maxBoundedSpan || extents.Y() > maxBoundedSpan || extents.Z() > maxBoundedSpan {
		sg.unboundedStatics[col.ID] = struct{}{}
		return
	}

	minCell, maxCell := sg.cellRange(aabb)
	keys := sg.staticCells[col.ID]

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				key := CellKey{x, y, z}
				c := sg.cells[key]
				if c == nil {
					c = &cell{}
					sg.cells[key] = c
				}
				c.statics = append(c.statics, col.ID)
				keys = append(keys, key)
			}
		}
	}

	sg.staticCells[col.ID] = keys
}

// RemoveStaticCollider clears a surface out of the grid
func (sg *SpatialGrid) RemoveStaticCollider(id string) {
	delete(sg.unboundedStatics, id)

	keys, ok := sg.staticCells[id]
	if !ok {
		return
	}

	for _, key := range keys {
		c := sg.cells[key]
		if c == nil {
			continue
		}
		for i, other := range c.statics {
			if other == id {
				c.statics = append(c.statics[:i], c.statics[i+1:]...)
				break
			}
		}
		if c.empty() {
			delete(sg.cells, key)
		}
	}

	delete(sg.staticCells, id)
}

// PotentialCollisions returns every other entity sharing at least one
// cell with the given entity, deduplicated.
func (sg *SpatialGrid) PotentialCollisions(e *PhysicsEntity) []EntityID {
	var results []EntityID
	seen := make(map[EntityID]struct{})

	for _, key := range sg.entityCells[e.ID] {
		c := sg.cells[key]
		if c == nil {
			continue
		}
		for _, other := range c.entities {
			if other == e.ID {
				continue
			}
			if _, ok := seen[other]; ok {
				continue
			}
			seen[other] = struct{}{}
			results = append(results, other)
		}
	}

	return results
}

// PotentialStaticCollisions returns every static collider sharing at
// least one cell with the given entity.
func (sg *SpatialGrid) PotentialStaticCollisions(e *PhysicsEntity) []string {
	var results []string
	seen := make(map[string]struct{})

	for id := range sg.unboundedStatics {
		seen[id] = struct{}{}
		results = append(results, id)
	}

	for _, key := range sg.entityCells[e.ID] {
		c := sg.cells[key]
		if c == nil {
			continue
		}
		for _, id := range c.statics {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			results = append(results, id)
		}
	}

	return results
}

// QueryRadius returns all entities occupying cells that overlap the
// sphere at center with the given radius.
func (sg *SpatialGrid) QueryRadius(center mgl64.Vec3, radius float64) []EntityID {
	r := mgl64.Vec3{radius, radius, radius}
	minCell := sg.worldToCell(center.Sub(r))
	maxCell := sg.worldToCell(center.Add(r))

	var results []EntityID
	seen := make(map[EntityID]struct{})

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				c := sg.cells[CellKey{x, y, z}]
				if c == nil {
					continue
				}
				for _, id := range c.entities {
					if _, ok := seen[id]; ok {
						continue
					}
					seen[id] = struct{}{}
					results = append(results, id)
				}
			}
		}
	}

	return results
}

// Optimize compacts the grid: empty cells left behind by removals are
// deleted and oversized occupant slices are reallocated tight. Meant to
// run periodically, not every step.
func (sg *SpatialGrid) Optimize() {
	for key, c := range sg.cells {
		if c.empty() {
			delete(sg.cells, key)
			continue
		}
		if cap(c.entities) > 4*len(c.entities) && cap(c.entities) > 8 {
			c.entities = append(make([]EntityID, 0, len(c.entities)), c.entities...)
		}
		if cap(c.statics) > 4*len(c.statics) && cap(c.statics) > 8 {
			c.statics = append(make([]string, 0, len(c.statics)), c.statics...)
		}
	}
}

// CellCount returns the number of live cells
func (sg *SpatialGrid) CellCount() int {
	return len(sg.cells)
}

// CellSize returns the configured cell size
func (sg *SpatialGrid) CellSize() float64 {
	return sg.cellSize
}
