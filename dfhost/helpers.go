package dfhost

import (
	"github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
)

// Item value keys.
const (
	itemKeyGun     = "portalgun:portal_gun_id"
	itemKeyCharged = "portalgun:charged"
)

// Shot ranges in blocks.
const (
	shotRange             = 64.0
	highPressureShotRange = 128.0
)

// NewGunItem returns a portal gun item. The gun gets its id the first time
// it is used.
func NewGunItem(charged bool) item.Stack {
	name := "§bPortal Gun"
	if !charged {
		name = "§7Portal Gun (empty)"
	}
	return item.NewStack(item.Stick{}, 1).
		WithCustomName(name).
		WithValue(itemKeyGun, 0).
		WithValue(itemKeyCharged, charged)
}

// GunItem returns the gun id stored on s. ok is false when s is not a
// portal gun.
func GunItem(s item.Stack) (id int, charged bool, ok bool) {
	v, ok := s.Value(itemKeyGun)
	if !ok {
		return 0, false, false
	}
	switch t := v.(type) {
	case int:
		id = t
	case int32:
		id = int(t)
	case int64:
		id = int(t)
	case float64:
		id = int(t)
	}
	if c, ok := s.Value(itemKeyCharged); ok {
		charged, _ = c.(bool)
	}
	return id, charged, true
}

// heldGun returns the gun in p's main hand.
func heldGun(p *player.Player) (id int, charged bool, ok bool) {
	main, _ := p.HeldItems()
	return GunItem(main)
}

// handlerOf extracts the portals handler from a player.
// Returns nil if the player was not accepted by a Host.
func handlerOf(p *player.Player) *Handler {
	h, ok := p.Handler().(*Handler)
	if !ok {
		return nil
	}
	return h
}

// Command extracts the player and its handler from a command source.
// Returns (nil, nil) if the source is not a player or has no handler.
//
// Usage:
//
//	func (c MyCommand) Run(src cmd.Source, out *cmd.Output, tx *world.Tx) {
//	    p, h := dfhost.Command(src)
//	    if p == nil || h == nil {
//	        out.Error("Player-only command")
//	        return
//	    }
//	}
func Command(src cmd.Source) (*player.Player, *Handler) {
	p, ok := src.(*player.Player)
	if !ok {
		return nil, nil
	}
	return p, handlerOf(p)
}

// eyeRay returns where p looks from and the direction it looks in.
func eyeRay(p *player.Player) (mgl64.Vec3, mgl64.Vec3) {
	eye := p.Position().Add(mgl64.Vec3{0, p.EyeHeight(), 0})
	return eye, p.Rotation().Vec3()
}

// traceBlock walks from start along dir and returns the first solid block
// and the face the ray entered it through.
func traceBlock(tx *world.Tx, start, dir mgl64.Vec3, maxDist float64) (cube.Pos, cube.Face, float64, bool) {
	const step = 0.05
	if dir.Len() == 0 {
		return cube.Pos{}, 0, 0, false
	}
	dir = dir.Normalize()
	prev := cube.PosFromVec3(start)
	for d := step; d <= maxDist; d += step {
		cell := cube.PosFromVec3(start.Add(dir.Mul(d)))
		if cell == prev {
			continue
		}
		if cell.OutOfBounds(tx.Range()) {
			return cube.Pos{}, 0, 0, false
		}
		if solid(tx, cell) {
			return cell, faceBetween(prev, cell), d, true
		}
		prev = cell
	}
	return cube.Pos{}, 0, 0, false
}

// solid reports whether a shot stops at pos.
func solid(tx *world.Tx, pos cube.Pos) bool {
	if _, ok := tx.Liquid(pos); ok {
		return false
	}
	_, air := tx.Block(pos).(block.Air)
	return !air
}

// faceBetween returns the face of to that points back at from.
func faceBetween(from, to cube.Pos) cube.Face {
	d := from.Sub(to)
	switch {
	case d.Y() > 0:
		return cube.FaceUp
	case d.Y() < 0:
		return cube.FaceDown
	case d.X() > 0:
		return cube.FaceEast
	case d.X() < 0:
		return cube.FaceWest
	case d.Z() > 0:
		return cube.FaceSouth
	default:
		return cube.FaceNorth
	}
}
