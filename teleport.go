package portals

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// teleportPass moves entities standing in linked portals to their duals.
// A failure with one entity never stops the pass.
func (e *Engine) teleportPass(conf Config) {
	for _, p := range e.portals.All() {
		if p.Closing {
			continue
		}
		self, ok := e.world.Entity(p.ID)
		if !ok {
			continue
		}

		dual, dualOK := e.portals.Get(p.DualID)
		dualEnt, dualLive := e.world.Entity(p.DualID)
		linked := p.DualID != "" && dualOK && dualLive
		if linked != p.Linked {
			p.Linked = linked
			e.setPortal(p)
		}
		if !linked {
			continue
		}

		e.flowFluid(self, dualEnt)

		radius := DetectionRadius(p.Scale, p.Orientation)
		for _, ent := range e.world.EntitiesNear(self.Dimension, self.Position, radius) {
			if !e.canUse(ent, p, conf) {
				continue
			}
			if p.Bootlegged {
				e.world.Poison(ent.ID, conf.PoisonTicks, conf.PoisonAmplifier)
				e.cooldowns.Add(ent.ID, conf.BootlegCooldown)
				continue
			}
			e.enter(ent, p, dual, dualEnt, conf)
		}
	}
}

// flowFluid copies water or lava in a portal's cell to its dual's cell, then
// nudges the portal so the host re-checks its surroundings next tick.
func (e *Engine) flowFluid(self, dual Entity) {
	kind, ok := e.world.Block(self.Dimension, self.Cell())
	if !ok || !kind.Fluid() {
		return
	}
	if err := e.world.SetBlock(dual.Dimension, dual.Cell(), kind); err != nil {
		e.log.Warn("portals: copy fluid", "portal", dual.ID, "error", err)
	}
	nudge := Destination{Dimension: self.Dimension, Position: self.Position, KeepYaw: true}
	if err := e.world.Teleport(self.ID, nudge); err != nil {
		e.log.Warn("portals: nudge portal", "portal", self.ID, "error", err)
	}
}

// canUse reports whether ent may enter p.
func (e *Engine) canUse(ent Entity, p Portal, conf Config) bool {
	if ent.HasFamily(FamilyPortal) || ent.HasFamily(FamilyProjectile) || ent.HasFamily(FamilyDragon) {
		return false
	}
	if ent.Riding || e.cooldowns.Active(ent.ID) || PropsOf(e.store, ent.ID).Flag(keyTeleported) {
		return false
	}
	if p.Scale < 1 {
		return smallEnough(ent, conf)
	}
	return true
}

// smallEnough reports whether ent fits through a portal below scale 1.
func smallEnough(ent Entity, conf Config) bool {
	switch {
	case ent.Baby, ent.HasFamily(FamilyItem):
		return true
	case ent.Player:
		return conf.SmallPortalsAllowPlayers
	}
	for _, f := range []string{FamilyMinecart, FamilyLightweight, FamilyFish, FamilyTNT} {
		if ent.HasFamily(f) {
			return true
		}
	}
	return false
}

// enter sends ent through p. Players play an entry animation first and are
// moved once it ends.
func (e *Engine) enter(ent Entity, p, dual Portal, dualEnt Entity, conf Config) {
	e.world.PlayCue(p.ID, CuePortalPass)
	e.world.PlayCue(dual.ID, CuePortalPass)
	e.tag(ent.ID, dual.ID)

	if !ent.Player {
		e.cooldowns.Add(ent.ID, conf.EntityCooldown)
		e.move(ent.ID, p.ID, dual, dualEnt.Dimension, dualEnt.Position)
	} else {
		e.cooldowns.Add(ent.ID, conf.PlayerCooldown)
		e.world.PlayCue(ent.ID, EntryCue(p, ent))
		from, to := p.ID, dual.ID
		e.After(conf.PlayerTeleportDelay, func() {
			dual, ok := e.portals.Get(to)
			if !ok || dual.Closing {
				return
			}
			dualEnt, ok := e.world.Entity(to)
			if !ok {
				return
			}
			if _, ok := e.world.Entity(ent.ID); !ok {
				return
			}
			if e.move(ent.ID, from, dual, dualEnt.Dimension, dualEnt.Position) {
				e.world.PlayCue(ent.ID, ExitCue(dual.Orientation))
			}
		}, to)
	}

	if p.AutoClose || dual.AutoClose {
		e.scheduleAutoClose(p, dual, conf)
	}
}

// move teleports id out of dual at the given position.
func (e *Engine) move(id, from EntityID, dual Portal, dim Dimension, at mgl64.Vec3) bool {
	dst := DestinationFor(dual, dim, at)
	if err := e.world.Teleport(id, dst); err != nil {
		e.log.Warn("portals: teleport", "entity", id, "portal", from, "error", err)
		e.world.Broadcast(fmt.Sprintf("§cTeleport failed: %v", err))
		return false
	}
	e.emit(EventTeleported{Entity: id, From: from, To: dual.ID, Destination: dst})
	return true
}

// tag marks id as just teleported through to portal.
func (e *Engine) tag(id, portal EntityID) {
	props := PropsOf(e.store, id)
	if err := props.Set(keyTeleported, true); err != nil {
		e.log.Warn("portals: tag entity", "entity", id, "error", err)
	}
	if err := props.Set(keyLastPortal, string(portal)); err != nil {
		e.log.Warn("portals: tag entity", "entity", id, "error", err)
	}
}

// untag removes the teleport markers of id.
func (e *Engine) untag(id EntityID) {
	props := PropsOf(e.store, id)
	_ = props.Delete(keyTeleported)
	_ = props.Delete(keyLastPortal)
}

// scheduleAutoClose closes the pair p and dual once, after the auto close
// delay. The member that is not a chain root is the one removed.
func (e *Engine) scheduleAutoClose(p, dual Portal, conf Config) {
	key := pairKey(p.ID, dual.ID)
	if h, ok := e.autoClose[key]; ok && h.Pending() {
		return
	}
	candidate := p.ID
	if p.IsRoot() {
		candidate = dual.ID
	}
	e.autoClose[key] = e.After(conf.AutoCloseDelay, func() {
		delete(e.autoClose, key)
		e.RemoveChainMember(candidate)
	}, candidate)
}

func pairKey(a, b EntityID) [2]EntityID {
	if a > b {
		a, b = b, a
	}
	return [2]EntityID{a, b}
}

// cleanupTags clears the teleport tag of entities that are off cooldown and
// have left the portal they came out of.
func (e *Engine) cleanupTags() {
	for _, owner := range e.store.Owners() {
		props := PropsOf(e.store, owner)
		if !props.Flag(keyTeleported) || e.cooldowns.Active(owner) {
			continue
		}
		ent, ok := e.world.Entity(owner)
		if !ok {
			e.untag(owner)
			continue
		}
		last, _ := props.String(keyLastPortal)
		portal, ok := e.world.Entity(EntityID(last))
		if !ok || portal.Dimension != ent.Dimension {
			e.untag(owner)
			continue
		}
		threshold := 2.0
		if p, ok := e.portals.Get(portal.ID); ok && p.Scale > 1 {
			threshold = 3
		}
		if ent.Position.Sub(portal.Position).Len() >= threshold {
			e.untag(owner)
		}
	}
}
