package portals

import (
	"fmt"
	"math"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

// Hit is a projectile landing on a block face.
type Hit struct {
	Dimension  Dimension
	Block      cube.Pos
	Face       cube.Face
	ShooterYaw float64
}

// Placement is where and how a portal is spawned.
type Placement struct {
	Dimension   Dimension
	Position    mgl64.Vec3
	Rotation    int
	Orientation Orientation
}

// normalizeYaw maps any yaw into [0, 360).
func normalizeYaw(yaw float64) float64 {
	yaw = math.Mod(yaw, 360)
	if yaw < 0 {
		yaw += 360
	}
	return yaw
}

// RotationFromYaw buckets a shooter's yaw into the four portal rotations,
// so a floor or ceiling portal faces back at the shooter.
func RotationFromYaw(yaw float64) int {
	ry := normalizeYaw(yaw + 180)
	switch {
	case ry < 45 || ry >= 315:
		return 0
	case ry < 135:
		return 1
	case ry < 225:
		return 2
	default:
		return 3
	}
}

// PlacementFor returns the placement of a portal fired at hit. The portal
// occupies the cell in front of the hit face, anchored at its bottom centre.
func PlacementFor(hit Hit) Placement {
	cell := hit.Block.Side(hit.Face)
	p := Placement{
		Dimension: hit.Dimension,
		Position:  mgl64.Vec3{float64(cell[0]) + 0.5, float64(cell[1]), float64(cell[2]) + 0.5},
	}
	switch hit.Face {
	case cube.FaceUp:
		p.Orientation, p.Rotation = OrientationFloor, RotationFromYaw(hit.ShooterYaw)
	case cube.FaceDown:
		p.Orientation, p.Rotation = OrientationCeiling, RotationFromYaw(hit.ShooterYaw)
	case cube.FaceNorth:
		p.Rotation = 2
	case cube.FaceWest:
		p.Rotation = 1
	case cube.FaceSouth:
		p.Rotation = 0
	case cube.FaceEast:
		p.Rotation = 3
	}
	return p
}

// spawnPosition lifts a wall portal standing on a block so its frame clears
// the ground.
func spawnPosition(w World, dim Dimension, pos mgl64.Vec3, o Orientation, scale float64) mgl64.Vec3 {
	if o != OrientationWall || scale < 1 {
		return pos
	}
	below := cube.PosFromVec3(pos).Side(cube.FaceDown)
	if kind, ok := w.Block(dim, below); !ok || kind == BlockAir {
		return pos
	}
	if scale > 1 {
		pos[1] += 2
	} else {
		pos[1]++
	}
	return pos
}

// SafeCell is the result of a safe placement search.
type SafeCell struct {
	Pos cube.Pos
	// LavaBelow is set when the cell sits directly on lava.
	LavaBelow bool
}

// FindSafeCell looks for a cell near target where a portal can stand.
//
// An air target drops down to the first non-air block and returns the cell
// above it. Any other target returns the nearest air or water cell within
// radius, and falls back to scanning at most up cells straight up.
func FindSafeCell(w World, dim Dimension, target cube.Pos, radius, up int) (cell SafeCell, err error) {
	lo, hi := w.HeightRange(dim)
	readBlocks(w, dim, func(block BlockLookup) {
		cell, err = findSafeCell(block, lo, hi, target, radius, up)
	})
	return cell, err
}

func findSafeCell(block BlockLookup, lo, hi int, target cube.Pos, radius, up int) (SafeCell, error) {
	kind, ok := block(target)
	if !ok {
		return SafeCell{}, fmt.Errorf("safe placement at %v: %w", target, ErrChunkTimeout)
	}
	open := func(k BlockKind) bool { return k == BlockAir || k == BlockWater }
	found := func(p cube.Pos) SafeCell {
		below, _ := block(p.Side(cube.FaceDown))
		return SafeCell{Pos: p, LavaBelow: below == BlockLava}
	}

	if kind == BlockAir {
		for y := target[1]; y > lo; y-- {
			p := cube.Pos{target[0], y, target[2]}
			if below, _ := block(p.Side(cube.FaceDown)); below != BlockAir {
				return found(p), nil
			}
		}
		return SafeCell{}, fmt.Errorf("safe placement at %v: %w", target, ErrNoSafeLocation)
	}

	var (
		best     cube.Pos
		bestDist = -1
	)
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			for dz := -radius; dz <= radius; dz++ {
				p := target.Add(cube.Pos{dx, dy, dz})
				if p[1] < lo || p[1] > hi {
					continue
				}
				k, ok := block(p)
				if !ok || !open(k) {
					continue
				}
				if d := dx*dx + dy*dy + dz*dz; bestDist < 0 || d < bestDist {
					best, bestDist = p, d
				}
			}
		}
	}
	if bestDist >= 0 {
		return found(best), nil
	}

	for y := target[1] + 1; y <= min(hi, target[1]+up); y++ {
		p := cube.Pos{target[0], y, target[2]}
		if k, ok := block(p); ok && open(k) {
			return found(p), nil
		}
	}
	return SafeCell{}, fmt.Errorf("safe placement at %v: %w", target, ErrNoSafeLocation)
}

// DetectionRadius returns how close an entity must be to a portal to use it.
func DetectionRadius(scale float64, o Orientation) float64 {
	switch {
	case scale == 0.5:
		return 0.8
	case scale == 1:
		if o == OrientationWall {
			return 1.2
		}
		return 1
	case scale > 1:
		if o == OrientationWall {
			return 2.2
		}
		return 2
	default:
		return 1
	}
}

// exitYaw maps a wall portal rotation to the yaw of an entity leaving it.
var exitYaw = [4]float64{0, 90, 180, -90}

// DestinationFor returns where an entity entering dual's partner comes out.
// at is the dual's current position.
func DestinationFor(dual Portal, dim Dimension, at mgl64.Vec3) Destination {
	dst := Destination{Dimension: dim, Position: at, KeepYaw: true}
	if dual.Orientation != OrientationWall {
		return dst
	}
	if dual.Scale >= 1 {
		dst.Position[1]--
	}
	dst.Yaw, dst.KeepYaw = exitYaw[((dual.Rotation%4)+4)%4], false
	return dst
}

// EntryCue picks the animation a player plays when stepping into p.
func EntryCue(p Portal, e Entity) Cue {
	switch p.Orientation {
	case OrientationCeiling:
		return CueEnterUp
	case OrientationFloor:
		if e.Sprinting {
			return CueDive
		}
		return CueEnterDown
	}
	delta := normalizeYaw(e.Yaw - float64(p.Rotation)*90 + 360)
	if delta <= 45 || delta >= 315 {
		return CueEnterBack
	}
	return CueEnterFront
}

// ExitCue picks the animation a player plays when leaving a portal mounted
// with orientation o.
func ExitCue(o Orientation) Cue {
	switch o {
	case OrientationCeiling:
		return CueExitUp
	case OrientationFloor:
		return CueExitDown
	default:
		return CueExitFront
	}
}
