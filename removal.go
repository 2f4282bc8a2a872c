package portals

import "slices"

// RemovePortalAlone closes a portal without touching its dual. Closing an
// unknown or already closing portal is a no-op.
func (e *Engine) RemovePortalAlone(id EntityID) {
	e.beginClose(id)
}

// RemovePortalWithDual closes a portal and the portal it is linked to.
func (e *Engine) RemovePortalWithDual(id EntityID) {
	p, ok := e.portals.Get(id)
	if !ok {
		return
	}
	e.beginClose(id)
	if p.DualID != "" {
		e.beginClose(p.DualID)
	}
}

// RemoveChainMember removes a portal with chain awareness. Removing the root
// of a chain longer than two tears the whole chain down; removing any other
// member of such a chain prunes only that member and relinks the ends of what
// is left. Everything else is removed together with its dual.
func (e *Engine) RemoveChainMember(id EntityID) {
	p, ok := e.portals.Get(id)
	if !ok {
		return
	}
	if p.Role == RoleNone || p.DualID == "" {
		e.RemovePortalWithDual(id)
		return
	}
	dual, ok := e.portals.Get(p.DualID)
	if !ok || !e.live(p.DualID) {
		e.RemovePortalAlone(id)
		return
	}

	root := dual
	if p.IsRoot() {
		root = p
	}
	if len(root.ChildList) <= 2 {
		e.RemovePortalWithDual(id)
		return
	}

	if p.IsRoot() {
		for _, member := range root.ChildList {
			e.RemovePortalAlone(member)
		}
		return
	}

	root.ChildList = withoutID(root.ChildList, id)
	e.setPortal(root)
	if last := root.ChildList[len(root.ChildList)-1]; last != root.ChildList[0] {
		e.link(root.ChildList[0], last)
	}
	e.RemovePortalAlone(id)
}

// RemoveAllPortals closes every portal of gun id.
func (e *Engine) RemoveAllPortals(id int) error {
	g, err := LoadGun(e.store, id)
	if err != nil {
		return err
	}
	e.removeAll(&g)
	return SaveGun(e.store, g)
}

func (e *Engine) removeAll(g *Gun) {
	for _, id := range g.ActivePortals {
		e.RemovePortalAlone(id)
	}
	g.ActivePortals = nil
}

// beginClose starts the close animation of id and schedules its deletion.
// Fluid left in the portal's cell is cleared right away.
func (e *Engine) beginClose(id EntityID) {
	p, ok := e.portals.Get(id)
	if !ok || p.Closing {
		return
	}
	if ent, ok := e.world.Entity(id); ok {
		cell := ent.Cell()
		if kind, ok := e.world.Block(ent.Dimension, cell); ok && kind.Fluid() {
			if err := e.world.SetBlock(ent.Dimension, cell, BlockAir); err != nil {
				e.log.Warn("portals: clear fluid", "portal", id, "error", err)
			}
		}
		e.world.PlayCue(id, CuePortalClose)
	}
	p.Closing, p.Linked = true, false
	e.setPortal(p)
	e.emit(EventPortalClosing{ID: id})

	e.After(e.Config().CloseDelay, func() { e.deletePortal(id) })
}

// deletePortal removes the entity and state of id, unlinks every portal that
// still points at it, and cancels its pending tasks.
func (e *Engine) deletePortal(id EntityID) {
	p, ok := e.portals.Get(id)
	e.world.RemoveEntity(id)
	if !ok {
		return
	}

	for _, other := range e.portals.All() {
		if other.ID == id {
			continue
		}
		changed := false
		if other.DualID == id {
			other.DualID, other.Linked = "", false
			changed = true
		}
		if slices.Contains(other.ChildList, id) {
			other.ChildList = withoutID(other.ChildList, id)
			changed = true
		}
		if changed {
			e.setPortal(other)
		}
	}

	if g, err := LoadGun(e.store, p.OwnerGunID); err == nil && slices.Contains(g.ActivePortals, id) {
		g.ActivePortals = withoutID(g.ActivePortals, id)
		e.saveGun(g)
	}

	if err := e.portals.Remove(id); err != nil {
		e.log.Warn("portals: remove portal state", "portal", id, "error", err)
	}
	e.tasks.CancelOwned(id)
	for pair, h := range e.autoClose {
		if pair[0] == id || pair[1] == id {
			h.Cancel()
			delete(e.autoClose, pair)
		}
	}
	e.emit(EventPortalRemoved{ID: id})
}
