package portals

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// linkCustom handles a portal fired in custom mode. The shot either joins
// the chain anchored at the selected location, or replaces every previous
// portal and starts a new chain whose anchor is placed once the target chunk
// is loaded.
func (e *Engine) linkCustom(g *Gun, newID, shooter EntityID) {
	if g.CustomLocation == nil {
		e.world.Message(shooter, "§cNo custom location selected.")
		e.abortShot(g, newID)
		return
	}
	loc := *g.CustomLocation

	if len(g.ActivePortals) > 1 {
		root, ok := e.portals.Get(g.ActivePortals[0])
		if ok && root.IsRoot() && root.LocationID != nil && *root.LocationID == loc.ID {
			if !slices.Contains(root.ChildList, newID) {
				root.ChildList = append(root.ChildList, newID)
			}
			e.setPortal(root)
			if p, ok := e.portals.Get(newID); ok {
				p.Role = RoleMember
				e.setPortal(p)
			}
			e.link(root.ID, newID)
			e.saveGun(*g)
			return
		}
	}

	for _, id := range g.ActivePortals {
		if id != newID {
			e.RemovePortalAlone(id)
		}
	}
	g.ActivePortals = []EntityID{newID}
	e.saveGun(*g)

	dim, ok := loc.Dimension()
	if !ok {
		e.world.Message(shooter, "§cUnknown dimension: "+loc.DimensionID)
		e.abortShot(g, newID)
		return
	}
	target := loc.Pos()
	gunID := g.ID
	e.Poll(e.Config().ChunkLoadTimeout, func() bool {
		_, loaded := e.world.Block(dim, target)
		return loaded
	}, func(loaded bool) {
		entry, ok := e.portals.Get(newID)
		if !ok || entry.Closing || !e.live(newID) {
			return
		}
		g, err := LoadGun(e.store, gunID)
		if err != nil {
			e.log.Warn("portals: custom anchor", "gun", gunID, "error", err)
			return
		}
		if !loaded {
			e.log.Warn("portals: custom anchor chunk did not load", "gun", gunID, "location", loc.String())
			e.world.Message(shooter, "§cThe destination could not be loaded.")
			e.abortShot(&g, newID)
			return
		}
		e.placeAnchor(&g, entry, loc, dim, shooter)
	}, newID)
}

// placeAnchor spawns the root of a custom chain at loc and links it to the
// entry portal.
func (e *Engine) placeAnchor(g *Gun, entry Portal, loc Location, dim Dimension, shooter EntityID) {
	conf := e.Config()
	cell := loc.Pos()
	if g.SafePlacement {
		safe, err := FindSafeCell(e.world, dim, cell, conf.SafeSearchRadius, conf.SafeSearchUp)
		if err != nil {
			e.world.Message(shooter, "§cNo safe location found near "+loc.Name+".")
			e.abortShot(g, entry.ID)
			return
		}
		if safe.LavaBelow {
			e.world.Message(shooter, "§eWarning: there is lava below the destination.")
		}
		cell = safe.Pos
	}

	pl := Placement{
		Dimension: dim,
		Position:  mgl64.Vec3{float64(cell[0]) + 0.5, float64(cell[1]), float64(cell[2]) + 0.5},
		Rotation:  entry.Rotation,
	}
	switch entry.Orientation {
	case OrientationCeiling:
		pl.Orientation = OrientationFloor
	case OrientationFloor:
		pl.Orientation = OrientationCeiling
		pl.Position[1] += 2
	}

	anchor, err := e.spawnPortal(*g, pl, entry.Bootlegged)
	if err != nil {
		e.log.Warn("portals: custom anchor", "gun", g.ID, "error", err)
		e.world.Message(shooter, "§cThe destination portal could not be opened.")
		e.abortShot(g, entry.ID)
		return
	}
	locID := loc.ID
	anchor.LocationID = &locID
	anchor.Role = RoleRoot
	anchor.ChildList = []EntityID{anchor.ID, entry.ID}
	e.setPortal(anchor)

	entry.Role = RoleMember
	e.setPortal(entry)
	e.link(anchor.ID, entry.ID)

	g.ActivePortals = []EntityID{anchor.ID, entry.ID}
	g.History = pushHistory(g.History, loc, conf.HistoryLimit)
	e.saveGun(*g)
}

// abortShot destroys the entry portal of a failed shot and forgets it.
func (e *Engine) abortShot(g *Gun, id EntityID) {
	e.RemovePortalAlone(id)
	g.ActivePortals = withoutID(g.ActivePortals, id)
	e.saveGun(*g)
}
