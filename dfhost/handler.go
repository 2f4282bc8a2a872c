package dfhost

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/oriumgames/portals"
)

// punchReach is how far in front of a sneaking player a portal can be
// punched away.
const punchReach = 2.5

// Handler turns a player's dragonfly events into engine calls.
//
// Concurrency:
// Dragonfly calls handlers inside the player's world transaction. Handlers
// read what they need from the player there and post the engine call to the
// Runner. They never wait for the Runner, since the Runner itself opens
// world transactions.
type Handler struct {
	player.NopHandler

	host *Host
	id   portals.EntityID
}

// Compile-time check that Handler implements player.Handler.
var _ player.Handler = (*Handler)(nil)

// ID returns the engine id of the handled player.
func (h *Handler) ID() portals.EntityID {
	return h.id
}

// Host returns the host the player was accepted by.
func (h *Handler) Host() *Host {
	return h.host
}

// user snapshots the handled player.
func (h *Handler) user(p *player.Player) portals.Entity {
	return snapshot(h.host.world.dimensionOf(p.Tx().World()), p)
}

// use runs an item use on the Runner goroutine. It shows the menu when asked
// for and reports whether the gun fired.
func (h *Handler) use(user portals.Entity, gunID int, charged bool) (portals.UseResult, bool) {
	e := h.host.engine
	res, err := e.HandleItemUse(portals.ItemUse{User: user, GunID: gunID, Charged: charged})
	if err != nil {
		h.host.log.Warn("dfhost: item use", "player", user.Name, "error", err)
		return res, false
	}
	if gunID == 0 {
		h.host.stampGun(h.id, res.Gun.ID)
	}
	if res.Action == portals.UseOpenMenu {
		if text, err := e.DescribeGun(res.Gun.ID); err == nil {
			h.host.world.Message(h.id, text)
		}
	}
	return res, res.Action == portals.UseFired
}

// land opens a portal where a fired shot hit. Runs on the Runner goroutine.
func (h *Handler) land(user portals.Entity, res portals.UseResult, hit portals.Hit) {
	_, err := h.host.engine.HandleProjectileHitBlock(portals.ProjectileHit{
		Shooter: h.id,
		GunID:   res.Gun.ID,
		Bootleg: res.Projectile.Bootleg,
		Hit:     hit,
	})
	if err != nil {
		h.host.log.Debug("dfhost: shot did not open a portal", "player", user.Name, "error", err)
	}
}

// HandleItemUse fires the held gun, or opens its menu when sneaking.
func (h *Handler) HandleItemUse(ctx *player.Context) {
	p := ctx.Val()
	gunID, charged, ok := heldGun(p)
	if !ok {
		return
	}
	ctx.Cancel()

	user := h.user(p)
	eye, dir := eyeRay(p)
	pos, face, dist, landed := traceBlock(p.Tx(), eye, dir, highPressureShotRange)

	h.host.post(func() {
		res, fired := h.use(user, gunID, charged)
		if !fired {
			return
		}
		maxDist := shotRange
		if res.Projectile.HighPressure {
			maxDist = highPressureShotRange
		}
		if !landed || dist > maxDist {
			return
		}
		h.land(user, res, portals.Hit{Dimension: user.Dimension, Block: pos, Face: face, ShooterYaw: user.Yaw})
	})
}

// HandleItemUseOnBlock fires the held gun at the clicked face.
func (h *Handler) HandleItemUseOnBlock(ctx *player.Context, pos cube.Pos, face cube.Face, clickPos mgl64.Vec3) {
	p := ctx.Val()
	gunID, charged, ok := heldGun(p)
	if !ok {
		return
	}
	ctx.Cancel()
	user := h.user(p)

	h.host.post(func() {
		if res, fired := h.use(user, gunID, charged); fired {
			h.land(user, res, portals.Hit{Dimension: user.Dimension, Block: pos, Face: face, ShooterYaw: user.Yaw})
		}
	})
}

// HandleItemUseOnEntity shoots an entity at point blank range.
func (h *Handler) HandleItemUseOnEntity(ctx *player.Context, target world.Entity) {
	p := ctx.Val()
	gunID, charged, ok := heldGun(p)
	if !ok {
		return
	}
	ctx.Cancel()
	user := h.user(p)
	targetID := h.host.world.Track(target.H())

	h.host.post(func() {
		if _, fired := h.use(user, gunID, charged); fired {
			h.host.engine.HandleProjectileHitEntity(portals.ProjectileHitEntity{Shooter: h.id, Target: targetID})
		}
	})
}

// HandleStartBreak cycles the selected location of a gun with fast location
// change enabled.
func (h *Handler) HandleStartBreak(ctx *player.Context, pos cube.Pos) {
	p := ctx.Val()
	gunID, _, ok := heldGun(p)
	if !ok || gunID == 0 {
		return
	}
	user := h.user(p)
	// Stores allow concurrent reads.
	if g, err := portals.LoadGun(h.host.store, gunID); err == nil && g.FastLocationChange {
		ctx.Cancel()
	}
	h.host.post(func() {
		h.host.engine.HandleHitBlock(portals.HitBlock{User: user, GunID: gunID})
	})
}

// HandlePunchAir removes the portal a sneaking player punches.
func (h *Handler) HandlePunchAir(ctx *player.Context) {
	p := ctx.Val()
	gunID, _, ok := heldGun(p)
	if !ok || !p.Sneaking() {
		return
	}
	user := h.user(p)
	eye, dir := eyeRay(p)
	reach := eye.Add(dir.Mul(punchReach))

	h.host.post(func() {
		var (
			target portals.EntityID
			best   = punchReach
		)
		for _, ent := range h.host.world.EntitiesNear(user.Dimension, reach, punchReach) {
			if !ent.HasFamily(portals.FamilyPortal) {
				continue
			}
			if d := ent.Position.Sub(reach).Len(); d <= best {
				target, best = ent.ID, d
			}
		}
		if target == "" {
			return
		}
		h.host.engine.HandleAttackEntity(portals.AttackEntity{Attacker: user, GunID: gunID, Target: target})
	})
}

// HandleAttackEntity lets a sneaking player break a portal by hitting it.
func (h *Handler) HandleAttackEntity(ctx *player.Context, target world.Entity, force, height *float64, critical *bool) {
	p := ctx.Val()
	gunID, _, ok := heldGun(p)
	if !ok {
		return
	}
	user := h.user(p)
	targetID := h.host.world.Track(target.H())
	h.host.post(func() {
		h.host.engine.HandleAttackEntity(portals.AttackEntity{Attacker: user, GunID: gunID, Target: targetID})
	})
}

// HandleQuit forgets the player.
func (h *Handler) HandleQuit(p *player.Player) {
	h.host.world.Forget(h.id)
	h.host.log.Debug("dfhost: player left", "player", p.Name())
}
