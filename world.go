package portals

import (
	"slices"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

// Dimension identifies one of the worlds a host runs.
type Dimension int

const (
	Overworld Dimension = iota
	Nether
	End
)

// String returns the display label of the dimension.
func (d Dimension) String() string {
	switch d {
	case Overworld:
		return "Overworld"
	case Nether:
		return "Nether"
	case End:
		return "The End"
	default:
		return "Unknown"
	}
}

// ID returns the persisted identifier of the dimension.
func (d Dimension) ID() string {
	switch d {
	case Overworld:
		return "minecraft:overworld"
	case Nether:
		return "minecraft:nether"
	case End:
		return "minecraft:the_end"
	default:
		return "minecraft:unknown"
	}
}

// ParseDimension parses a persisted dimension identifier.
func ParseDimension(id string) (Dimension, bool) {
	switch id {
	case "minecraft:overworld", "overworld":
		return Overworld, true
	case "minecraft:nether", "nether":
		return Nether, true
	case "minecraft:the_end", "the_end":
		return End, true
	}
	return Overworld, false
}

// Orientation is the surface a portal is mounted on. The numeric values are
// persisted.
type Orientation int

const (
	// OrientationWall is a vertical portal on the side of a block.
	OrientationWall Orientation = iota
	// OrientationCeiling is a portal on the underside of a block, facing down.
	OrientationCeiling
	// OrientationFloor is a portal on top of a block, facing up.
	OrientationFloor
)

// BlockKind is the coarse classification of a block the engine cares about.
type BlockKind int

const (
	BlockAir BlockKind = iota
	BlockSolid
	BlockWater
	BlockLava
)

// Fluid reports whether the kind is water or lava.
func (k BlockKind) Fluid() bool {
	return k == BlockWater || k == BlockLava
}

// Entity families used to filter portal users.
const (
	FamilyPortal      = "portal"
	FamilyProjectile  = "projectile"
	FamilyDragon      = "dragon"
	FamilyMinecart    = "minecart"
	FamilyLightweight = "lightweight"
	FamilyFish        = "fish"
	FamilyTNT         = "tnt"
	FamilyItem        = "item"
)

// Entity is a snapshot of a host entity taken when it was queried.
type Entity struct {
	ID        EntityID
	Name      string
	Families  []string
	Dimension Dimension
	Position  mgl64.Vec3
	Yaw       float64
	Player    bool
	Sprinting bool
	Sneaking  bool
	Riding    bool
	Baby      bool
}

// HasFamily reports whether the entity belongs to family f.
func (e Entity) HasFamily(f string) bool {
	return slices.Contains(e.Families, f)
}

// Cell returns the block position the entity occupies.
func (e Entity) Cell() cube.Pos {
	return cube.PosFromVec3(e.Position)
}

// Destination is where a teleport moves an entity.
type Destination struct {
	Dimension Dimension
	Position  mgl64.Vec3
	Yaw       float64
	// KeepYaw leaves the entity's yaw untouched and ignores Yaw.
	KeepYaw bool
}

// Cue is a visual or audible effect the host plays on an entity.
type Cue string

const (
	CuePortalPass  Cue = "portal.pass"
	CuePortalOpen  Cue = "portal.open"
	CuePortalClose Cue = "portal.close"
	CueFire        Cue = "gun.fire"
	CueEmpty       Cue = "gun.empty"
	CueSelect      Cue = "gun.selection"
	CueEnterFront  Cue = "player.in_front"
	CueEnterBack   Cue = "player.in_back"
	CueEnterUp     Cue = "player.in_up"
	CueEnterDown   Cue = "player.in_down"
	CueDive        Cue = "player.dive"
	CueExitFront   Cue = "player.out_front"
	CueExitUp      Cue = "player.out_up"
	CueExitDown    Cue = "player.out_down"
)

// World is everything the engine needs from the host. Implementations are
// only called from the engine's goroutine.
type World interface {
	// SpawnPortal creates a portal anchor entity and returns its id.
	SpawnPortal(dim Dimension, pos mgl64.Vec3) (EntityID, error)
	// RemoveEntity removes an entity. Removing a missing entity is a no-op.
	RemoveEntity(id EntityID)
	// Entity returns a snapshot of a live entity.
	Entity(id EntityID) (Entity, bool)
	// EntitiesNear returns the entities within radius of pos.
	EntitiesNear(dim Dimension, pos mgl64.Vec3, radius float64) []Entity
	// Block classifies the block at pos. loaded is false when the chunk
	// holding pos is not available.
	Block(dim Dimension, pos cube.Pos) (kind BlockKind, loaded bool)
	// SetBlock replaces the block at pos.
	SetBlock(dim Dimension, pos cube.Pos, kind BlockKind) error
	// HeightRange returns the lowest and highest buildable y of dim.
	HeightRange(dim Dimension) (min, max int)
	// Teleport moves an entity, possibly across dimensions.
	Teleport(id EntityID, dst Destination) error
	// Damage hurts an entity.
	Damage(id EntityID, amount float64)
	// Poison applies the portal fluid poison to an entity.
	Poison(id EntityID, ticks, amplifier int)
	// PlayCue plays a cue on an entity.
	PlayCue(id EntityID, cue Cue)
	// Message shows a message to a player.
	Message(id EntityID, msg string)
	// Broadcast shows a message to every player.
	Broadcast(msg string)
}

// BlockLookup classifies the block at pos, reporting loaded like World.Block.
type BlockLookup func(pos cube.Pos) (kind BlockKind, loaded bool)

// BlockReader is implemented by Worlds that can classify many blocks in one
// pass. The lookup handed to fn is only valid until fn returns.
type BlockReader interface {
	ReadBlocks(dim Dimension, fn func(block BlockLookup))
}

// readBlocks runs fn with a block lookup for dim, batched when w is a
// BlockReader.
func readBlocks(w World, dim Dimension, fn func(block BlockLookup)) {
	if r, ok := w.(BlockReader); ok {
		r.ReadBlocks(dim, fn)
		return
	}
	fn(func(pos cube.Pos) (BlockKind, bool) { return w.Block(dim, pos) })
}
