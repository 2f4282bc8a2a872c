package dfhost

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/entity"
	"github.com/df-mc/dragonfly/server/entity/effect"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/df-mc/dragonfly/server/world/sound"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/oriumgames/portals"
)

// Anchor keys. Portal anchors are virtual, so their position lives in the
// store next to the portal's own properties.
const (
	keyAnchorDim = "dfhost:dimension"
	keyAnchorX   = "dfhost:x"
	keyAnchorY   = "dfhost:y"
	keyAnchorZ   = "dfhost:z"
)

// anchor is a portal entity the host simulates without a client-side entity.
type anchor struct {
	dim portals.Dimension
	pos mgl64.Vec3
}

// World implements portals.World over dragonfly worlds.
//
// Concurrency:
// Every method opens its own transaction and waits for it, so methods must
// never be called from inside a world transaction. The Runner goroutine is
// the only intended caller.
type World struct {
	worlds map[portals.Dimension]*world.World
	store  portals.Store
	log    *slog.Logger

	mu      sync.Mutex
	anchors map[portals.EntityID]anchor
	handles map[portals.EntityID]*world.EntityHandle
}

// Compile-time checks that World implements the portals ports.
var (
	_ portals.World       = (*World)(nil)
	_ portals.BlockReader = (*World)(nil)
)

// NewWorld creates a World over worlds and restores the portal anchors
// saved in store.
func NewWorld(worlds map[portals.Dimension]*world.World, store portals.Store, log *slog.Logger) (*World, error) {
	if _, ok := worlds[portals.Overworld]; !ok {
		return nil, fmt.Errorf("dfhost: no overworld")
	}
	if log == nil {
		log = slog.Default()
	}
	w := &World{
		worlds:  worlds,
		store:   store,
		log:     log,
		anchors: make(map[portals.EntityID]anchor),
		handles: make(map[portals.EntityID]*world.EntityHandle),
	}
	w.restore()
	return w, nil
}

// restore loads anchors from the store.
func (w *World) restore() {
	for _, owner := range w.store.Owners() {
		props := portals.PropsOf(w.store, owner)
		raw, ok := props.String(keyAnchorDim)
		if !ok {
			continue
		}
		dim, ok := portals.ParseDimension(raw)
		if !ok {
			w.log.Warn("dfhost: anchor with unknown dimension", "portal", owner, "dimension", raw)
			continue
		}
		x, _ := props.Number(keyAnchorX)
		y, _ := props.Number(keyAnchorY)
		z, _ := props.Number(keyAnchorZ)
		w.anchors[owner] = anchor{dim: dim, pos: mgl64.Vec3{x, y, z}}
	}
	if len(w.anchors) > 0 {
		w.log.Info("dfhost: restored portal anchors", "count", len(w.anchors))
	}
}

// idOf returns the engine id of a dragonfly entity.
func idOf(h *world.EntityHandle) portals.EntityID {
	return portals.EntityID(h.UUID().String())
}

// Track records a handle so the entity can be found by id later.
func (w *World) Track(h *world.EntityHandle) portals.EntityID {
	id := idOf(h)
	w.mu.Lock()
	w.handles[id] = h
	w.mu.Unlock()
	return id
}

// Forget drops a tracked handle.
func (w *World) Forget(id portals.EntityID) {
	w.mu.Lock()
	delete(w.handles, id)
	w.mu.Unlock()
}

func (w *World) handle(id portals.EntityID) (*world.EntityHandle, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	h, ok := w.handles[id]
	return h, ok
}

func (w *World) anchor(id portals.EntityID) (anchor, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, ok := w.anchors[id]
	return a, ok
}

// dimensionOf returns the dimension a dragonfly world is registered under.
func (w *World) dimensionOf(wld *world.World) portals.Dimension {
	for dim, candidate := range w.worlds {
		if candidate == wld {
			return dim
		}
	}
	return portals.Overworld
}

// exec runs fn in the world of dim and waits for it.
func (w *World) exec(dim portals.Dimension, fn func(tx *world.Tx)) bool {
	wld, ok := w.worlds[dim]
	if !ok {
		return false
	}
	<-wld.Exec(fn)
	return true
}

// withEntity runs fn in the transaction of the world holding id.
func (w *World) withEntity(id portals.EntityID, fn func(tx *world.Tx, e world.Entity)) bool {
	h, ok := w.handle(id)
	if !ok {
		return false
	}
	if !h.ExecWorld(fn) {
		w.Forget(id)
		return false
	}
	return true
}

// SpawnPortal implements portals.World.
func (w *World) SpawnPortal(dim portals.Dimension, pos mgl64.Vec3) (portals.EntityID, error) {
	if _, ok := w.worlds[dim]; !ok {
		return "", fmt.Errorf("dfhost: no world for %s", dim)
	}
	id := portals.EntityID("portal-" + uuid.NewString())
	props := portals.PropsOf(w.store, id)
	if err := props.Set(keyAnchorDim, dim.ID()); err != nil {
		return "", err
	}
	_ = props.Set(keyAnchorX, pos.X())
	_ = props.Set(keyAnchorY, pos.Y())
	_ = props.Set(keyAnchorZ, pos.Z())

	w.mu.Lock()
	w.anchors[id] = anchor{dim: dim, pos: pos}
	w.mu.Unlock()
	return id, nil
}

// RemoveEntity implements portals.World. Players are never removed.
func (w *World) RemoveEntity(id portals.EntityID) {
	if _, ok := w.anchor(id); ok {
		w.mu.Lock()
		delete(w.anchors, id)
		w.mu.Unlock()
		props := portals.PropsOf(w.store, id)
		for _, key := range []string{keyAnchorDim, keyAnchorX, keyAnchorY, keyAnchorZ} {
			_ = props.Delete(key)
		}
		return
	}
	w.withEntity(id, func(tx *world.Tx, e world.Entity) {
		if _, ok := e.(*player.Player); ok {
			return
		}
		tx.RemoveEntity(e)
	})
	w.Forget(id)
}

// Entity implements portals.World.
func (w *World) Entity(id portals.EntityID) (portals.Entity, bool) {
	if a, ok := w.anchor(id); ok {
		return anchorEntity(id, a), true
	}
	var (
		out   portals.Entity
		found bool
	)
	w.withEntity(id, func(tx *world.Tx, e world.Entity) {
		out, found = snapshot(w.dimensionOf(tx.World()), e), true
	})
	return out, found
}

func anchorEntity(id portals.EntityID, a anchor) portals.Entity {
	return portals.Entity{
		ID:        id,
		Name:      "Portal",
		Families:  []string{portals.FamilyPortal},
		Dimension: a.dim,
		Position:  a.pos,
	}
}

// snapshot copies what the engine needs out of a live entity.
func snapshot(dim portals.Dimension, e world.Entity) portals.Entity {
	out := portals.Entity{
		ID:        idOf(e.H()),
		Dimension: dim,
		Position:  e.Position(),
		Yaw:       e.Rotation().Yaw(),
		Families:  families(e.H().Type().EncodeEntity()),
	}
	out.Baby, out.Riding = entityState(e)
	if p, ok := e.(*player.Player); ok {
		out.Player = true
		out.Name = p.Name()
		out.Sneaking = p.Sneaking()
		out.Sprinting = p.Sprinting()
	} else {
		out.Name = strings.TrimPrefix(e.H().Type().EncodeEntity(), "minecraft:")
	}
	return out
}

// Dragonfly ships no mobs and no mounts, so none of its own entities is a
// baby or rides anything. Entities added by plugins report both through
// these methods.
type (
	ageable interface{ Baby() bool }
	rider   interface{ Riding() bool }
)

// entityState reads the baby and riding state of e where e reports it.
func entityState(e any) (baby, riding bool) {
	if a, ok := e.(ageable); ok {
		baby = a.Baby()
	}
	if r, ok := e.(rider); ok {
		riding = r.Riding()
	}
	return baby, riding
}

// families maps a dragonfly entity type to engine families.
func families(typ string) []string {
	switch typ {
	case "minecraft:item":
		return []string{portals.FamilyItem}
	case "minecraft:tnt":
		return []string{portals.FamilyTNT}
	case "minecraft:falling_block", "minecraft:xp_orb":
		return []string{portals.FamilyLightweight}
	case "minecraft:arrow", "minecraft:snowball", "minecraft:egg", "minecraft:ender_pearl",
		"minecraft:splash_potion", "minecraft:lingering_potion", "minecraft:xp_bottle",
		"minecraft:fireworks_rocket", "minecraft:wind_charge_projectile":
		return []string{portals.FamilyProjectile}
	case "minecraft:ender_dragon":
		return []string{portals.FamilyDragon}
	}
	return nil
}

// EntitiesNear implements portals.World. Dragonfly entities seen here are
// tracked so later calls can find them by id.
func (w *World) EntitiesNear(dim portals.Dimension, pos mgl64.Vec3, radius float64) []portals.Entity {
	var out []portals.Entity
	w.exec(dim, func(tx *world.Tx) {
		box := cube.Box(pos.X()-radius, pos.Y()-radius, pos.Z()-radius, pos.X()+radius, pos.Y()+radius, pos.Z()+radius)
		for e := range tx.EntitiesWithin(box) {
			if e.Position().Sub(pos).Len() > radius {
				continue
			}
			w.Track(e.H())
			out = append(out, snapshot(dim, e))
		}
	})

	w.mu.Lock()
	for id, a := range w.anchors {
		if a.dim == dim && a.pos.Sub(pos).Len() <= radius {
			out = append(out, anchorEntity(id, a))
		}
	}
	w.mu.Unlock()
	return out
}

// Block implements portals.World.
func (w *World) Block(dim portals.Dimension, pos cube.Pos) (portals.BlockKind, bool) {
	kind, loaded := portals.BlockAir, false
	w.exec(dim, func(tx *world.Tx) {
		kind, loaded = classify(tx, pos)
	})
	return kind, loaded
}

// ReadBlocks implements portals.BlockReader. Every lookup fn makes runs in
// one transaction, so a safe placement search costs a single world.Exec.
func (w *World) ReadBlocks(dim portals.Dimension, fn func(block portals.BlockLookup)) {
	ran := w.exec(dim, func(tx *world.Tx) {
		fn(func(pos cube.Pos) (portals.BlockKind, bool) { return classify(tx, pos) })
	})
	if !ran {
		fn(func(cube.Pos) (portals.BlockKind, bool) { return portals.BlockAir, false })
	}
}

// classify maps the block at pos to a portals.BlockKind.
func classify(tx *world.Tx, pos cube.Pos) (portals.BlockKind, bool) {
	if pos.OutOfBounds(tx.Range()) {
		return portals.BlockAir, false
	}
	if liq, ok := tx.Liquid(pos); ok {
		switch liq.(type) {
		case block.Water:
			return portals.BlockWater, true
		case block.Lava:
			return portals.BlockLava, true
		}
	}
	if _, ok := tx.Block(pos).(block.Air); !ok {
		return portals.BlockSolid, true
	}
	return portals.BlockAir, true
}

// SetBlock implements portals.World.
func (w *World) SetBlock(dim portals.Dimension, pos cube.Pos, kind portals.BlockKind) error {
	var b world.Block
	switch kind {
	case portals.BlockAir:
		b = block.Air{}
	case portals.BlockWater:
		b = block.Water{Still: true, Depth: 8}
	case portals.BlockLava:
		b = block.Lava{Still: true, Depth: 8}
	default:
		b = block.Stone{}
	}
	if !w.exec(dim, func(tx *world.Tx) { tx.SetBlock(pos, b, nil) }) {
		return fmt.Errorf("dfhost: no world for %s", dim)
	}
	return nil
}

// HeightRange implements portals.World.
func (w *World) HeightRange(dim portals.Dimension) (int, int) {
	wld, ok := w.worlds[dim]
	if !ok {
		wld = w.worlds[portals.Overworld]
	}
	r := wld.Range()
	return r.Min(), r.Max()
}

// Teleport implements portals.World. Moving across dimensions removes the
// entity from its world and adds it to the target one.
func (w *World) Teleport(id portals.EntityID, dst portals.Destination) error {
	if _, ok := w.anchor(id); ok {
		// Anchors do not move. The engine teleports a portal onto itself to
		// refresh it, which has nothing to refresh here.
		return nil
	}
	target, ok := w.worlds[dst.Dimension]
	if !ok {
		return fmt.Errorf("dfhost: no world for %s", dst.Dimension)
	}

	var (
		moved   *world.EntityHandle
		errMove error
	)
	found := w.withEntity(id, func(tx *world.Tx, e world.Entity) {
		if tx.World() != target {
			moved = tx.RemoveEntity(e)
			return
		}
		errMove = place(e, dst)
	})
	if !found {
		return fmt.Errorf("dfhost: entity %s not found", id)
	}
	if moved == nil {
		return errMove
	}
	<-target.Exec(func(tx *world.Tx) {
		errMove = place(tx.AddEntity(moved), dst)
	})
	return errMove
}

// place moves e within its current world.
func place(e world.Entity, dst portals.Destination) error {
	tp, ok := e.(interface{ Teleport(mgl64.Vec3) })
	if !ok {
		return fmt.Errorf("dfhost: %s cannot be teleported", e.H().Type().EncodeEntity())
	}
	tp.Teleport(dst.Position)
	if p, ok := e.(*player.Player); ok && !dst.KeepYaw {
		p.Move(mgl64.Vec3{}, yawDelta(p.Rotation().Yaw(), dst.Yaw), 0)
	}
	return nil
}

// yawDelta returns the shortest turn from one yaw to another.
func yawDelta(from, to float64) float64 {
	return math.Mod(to-from+540, 360) - 180
}

// Damage implements portals.World.
func (w *World) Damage(id portals.EntityID, amount float64) {
	w.withEntity(id, func(tx *world.Tx, e world.Entity) {
		if l, ok := e.(entity.Living); ok {
			l.Hurt(amount, entity.SuffocationDamageSource{})
		}
	})
}

// Poison implements portals.World.
func (w *World) Poison(id portals.EntityID, ticks, amplifier int) {
	d := time.Duration(ticks) * time.Second / 20
	w.withEntity(id, func(tx *world.Tx, e world.Entity) {
		if l, ok := e.(entity.Living); ok {
			l.AddEffect(effect.New(effect.FatalPoison, amplifier+1, d))
			l.AddEffect(effect.New(effect.Slowness, 1, d))
		}
	})
}

// cueSound returns the sound played for a cue. Player cues have no sound.
func cueSound(cue portals.Cue) (world.Sound, bool) {
	switch cue {
	case portals.CuePortalPass:
		return sound.Teleport{}, true
	case portals.CuePortalOpen:
		return sound.Ignite{}, true
	case portals.CuePortalClose:
		return sound.Fizz{}, true
	case portals.CueFire:
		return sound.Pop{}, true
	case portals.CueEmpty, portals.CueSelect:
		return sound.Click{}, true
	}
	return nil, false
}

// PlayCue implements portals.World.
func (w *World) PlayCue(id portals.EntityID, cue portals.Cue) {
	snd, ok := cueSound(cue)
	if !ok {
		return
	}
	if a, ok := w.anchor(id); ok {
		w.exec(a.dim, func(tx *world.Tx) { tx.PlaySound(a.pos, snd) })
		return
	}
	w.withEntity(id, func(tx *world.Tx, e world.Entity) {
		tx.PlaySound(e.Position(), snd)
	})
}

// Message implements portals.World.
func (w *World) Message(id portals.EntityID, msg string) {
	w.withEntity(id, func(tx *world.Tx, e world.Entity) {
		if p, ok := e.(*player.Player); ok {
			p.Message(msg)
		}
	})
}

// Broadcast implements portals.World.
func (w *World) Broadcast(msg string) {
	w.mu.Lock()
	ids := make([]portals.EntityID, 0, len(w.handles))
	for id, h := range w.handles {
		if h.Type().EncodeEntity() == "minecraft:player" {
			ids = append(ids, id)
		}
	}
	w.mu.Unlock()
	for _, id := range ids {
		w.Message(id, msg)
	}
}
