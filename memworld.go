package portals

import (
	"fmt"
	"slices"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

// MemoryWorld is an in-memory World. Blocks below Ground are solid unless
// set otherwise; everything else is air. It records every side effect so
// callers can inspect what the engine did.
type MemoryWorld struct {
	// Ground is the first y that defaults to air.
	Ground int
	// MinY and MaxY bound every dimension.
	MinY, MaxY int
	// TeleportErr, when set, is consulted before every teleport.
	TeleportErr func(id EntityID, dst Destination) error

	next     int
	entities map[EntityID]*Entity
	order    []EntityID
	blocks   map[Dimension]map[cube.Pos]BlockKind
	unloaded map[Dimension]map[[2]int]bool

	Cues       []CueRecord
	Messages   map[EntityID][]string
	Broadcasts []string
	Damaged    map[EntityID]float64
	Poisoned   map[EntityID]int
	Teleports  []TeleportRecord
	Removed    []EntityID
	// BlockReads counts ReadBlocks passes.
	BlockReads int
}

// CueRecord is a cue played by the engine.
type CueRecord struct {
	ID  EntityID
	Cue Cue
}

// TeleportRecord is a teleport performed by the engine.
type TeleportRecord struct {
	ID          EntityID
	Destination Destination
}

// NewMemoryWorld creates an empty world with its ground at y=0.
func NewMemoryWorld() *MemoryWorld {
	return &MemoryWorld{
		MinY:     -64,
		MaxY:     320,
		entities: make(map[EntityID]*Entity),
		blocks:   make(map[Dimension]map[cube.Pos]BlockKind),
		unloaded: make(map[Dimension]map[[2]int]bool),
		Messages: make(map[EntityID][]string),
		Damaged:  make(map[EntityID]float64),
		Poisoned: make(map[EntityID]int),
	}
}

// Compile-time check that MemoryWorld implements World.
var _ World = (*MemoryWorld)(nil)

// AddEntity adds an entity and returns its id. An empty id is replaced by a
// generated one.
func (w *MemoryWorld) AddEntity(e Entity) EntityID {
	if e.ID == "" {
		w.next++
		e.ID = EntityID(fmt.Sprintf("entity-%d", w.next))
	}
	if _, ok := w.entities[e.ID]; !ok {
		w.order = append(w.order, e.ID)
	}
	w.entities[e.ID] = &e
	return e.ID
}

// Move sets the position of an entity.
func (w *MemoryWorld) Move(id EntityID, pos mgl64.Vec3) {
	if e, ok := w.entities[id]; ok {
		e.Position = pos
	}
}

// Update replaces the snapshot of an existing entity.
func (w *MemoryWorld) Update(e Entity) {
	if _, ok := w.entities[e.ID]; ok {
		w.entities[e.ID] = &e
	}
}

// Fill sets every block in the box spanned by a and b.
func (w *MemoryWorld) Fill(dim Dimension, a, b cube.Pos, kind BlockKind) {
	lo := cube.Pos{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])}
	hi := cube.Pos{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])}
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				_ = w.SetBlock(dim, cube.Pos{x, y, z}, kind)
			}
		}
	}
}

// Unload marks the chunk holding pos as not loaded.
func (w *MemoryWorld) Unload(dim Dimension, pos cube.Pos) {
	if w.unloaded[dim] == nil {
		w.unloaded[dim] = make(map[[2]int]bool)
	}
	w.unloaded[dim][chunkOf(pos)] = true
}

// Load marks the chunk holding pos as loaded.
func (w *MemoryWorld) Load(dim Dimension, pos cube.Pos) {
	delete(w.unloaded[dim], chunkOf(pos))
}

func chunkOf(pos cube.Pos) [2]int {
	return [2]int{pos[0] >> 4, pos[2] >> 4}
}

// Portals returns the ids of live portal anchors.
func (w *MemoryWorld) Portals() []EntityID {
	var ids []EntityID
	for _, id := range w.order {
		if e, ok := w.entities[id]; ok && e.HasFamily(FamilyPortal) {
			ids = append(ids, id)
		}
	}
	return ids
}

// CuesFor returns the cues played on id, in order.
func (w *MemoryWorld) CuesFor(id EntityID) []Cue {
	var cues []Cue
	for _, c := range w.Cues {
		if c.ID == id {
			cues = append(cues, c.Cue)
		}
	}
	return cues
}

// SpawnPortal implements World.
func (w *MemoryWorld) SpawnPortal(dim Dimension, pos mgl64.Vec3) (EntityID, error) {
	w.next++
	id := EntityID(fmt.Sprintf("portal-%d", w.next))
	w.AddEntity(Entity{
		ID:        id,
		Name:      "portal",
		Families:  []string{FamilyPortal},
		Dimension: dim,
		Position:  pos,
	})
	return id, nil
}

// RemoveEntity implements World.
func (w *MemoryWorld) RemoveEntity(id EntityID) {
	if _, ok := w.entities[id]; !ok {
		return
	}
	delete(w.entities, id)
	w.order = slices.DeleteFunc(w.order, func(o EntityID) bool { return o == id })
	w.Removed = append(w.Removed, id)
}

// Entity implements World.
func (w *MemoryWorld) Entity(id EntityID) (Entity, bool) {
	e, ok := w.entities[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// EntitiesNear implements World.
func (w *MemoryWorld) EntitiesNear(dim Dimension, pos mgl64.Vec3, radius float64) []Entity {
	var near []Entity
	for _, id := range w.order {
		e := w.entities[id]
		if e.Dimension == dim && e.Position.Sub(pos).Len() <= radius {
			near = append(near, *e)
		}
	}
	return near
}

// Block implements World.
func (w *MemoryWorld) Block(dim Dimension, pos cube.Pos) (BlockKind, bool) {
	if w.unloaded[dim][chunkOf(pos)] {
		return BlockAir, false
	}
	if k, ok := w.blocks[dim][pos]; ok {
		return k, true
	}
	if pos[1] < w.Ground {
		return BlockSolid, true
	}
	return BlockAir, true
}

// ReadBlocks implements BlockReader.
func (w *MemoryWorld) ReadBlocks(dim Dimension, fn func(block BlockLookup)) {
	w.BlockReads++
	fn(func(pos cube.Pos) (BlockKind, bool) { return w.Block(dim, pos) })
}

// SetBlock implements World.
func (w *MemoryWorld) SetBlock(dim Dimension, pos cube.Pos, kind BlockKind) error {
	if w.blocks[dim] == nil {
		w.blocks[dim] = make(map[cube.Pos]BlockKind)
	}
	w.blocks[dim][pos] = kind
	return nil
}

// HeightRange implements World.
func (w *MemoryWorld) HeightRange(Dimension) (int, int) {
	return w.MinY, w.MaxY
}

// Teleport implements World.
func (w *MemoryWorld) Teleport(id EntityID, dst Destination) error {
	e, ok := w.entities[id]
	if !ok {
		return fmt.Errorf("teleport %s: entity not found", id)
	}
	if w.TeleportErr != nil {
		if err := w.TeleportErr(id, dst); err != nil {
			return err
		}
	}
	e.Dimension = dst.Dimension
	e.Position = dst.Position
	if !dst.KeepYaw {
		e.Yaw = dst.Yaw
	}
	w.Teleports = append(w.Teleports, TeleportRecord{ID: id, Destination: dst})
	return nil
}

// Damage implements World.
func (w *MemoryWorld) Damage(id EntityID, amount float64) {
	w.Damaged[id] += amount
}

// Poison implements World.
func (w *MemoryWorld) Poison(id EntityID, ticks, _ int) {
	w.Poisoned[id] = ticks
}

// PlayCue implements World.
func (w *MemoryWorld) PlayCue(id EntityID, cue Cue) {
	w.Cues = append(w.Cues, CueRecord{ID: id, Cue: cue})
}

// Message implements World.
func (w *MemoryWorld) Message(id EntityID, msg string) {
	w.Messages[id] = append(w.Messages[id], msg)
}

// Broadcast implements World.
func (w *MemoryWorld) Broadcast(msg string) {
	w.Broadcasts = append(w.Broadcasts, msg)
}
