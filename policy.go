package portals

import (
	"fmt"
	"slices"
)

// onPortalCreated links newID into the portals of g. newID has already been
// appended to g.ActivePortals. The gun is saved before returning, except in
// custom mode where anchor placement finishes asynchronously.
func (e *Engine) onPortalCreated(g *Gun, newID, shooter EntityID) {
	list := g.ActivePortals
	n := len(list)

	switch g.Mode {
	case ModeFIFO:
		if n > 2 {
			oldest := list[0]
			list = list[1:]
			e.RemovePortalAlone(oldest)
		}
		if len(list) == 2 {
			e.link(list[0], list[1])
		}
	case ModeLIFO:
		if n > 2 {
			previous := list[1]
			list = slices.Delete(slices.Clone(list), 1, 2)
			e.RemovePortalAlone(previous)
		}
		if len(list) == 2 {
			e.link(list[0], list[1])
		}
	case ModeMultiPair:
		if n%2 == 0 {
			e.link(list[n-2], list[n-1])
		}
		if limit := e.Config().MultiPairAdvisory; n > limit {
			e.world.Message(shooter, fmt.Sprintf("§eThis gun has %d portals open. Consider closing some.", n))
		}
	case ModeRoot:
		e.joinRootChain(list, newID)
	case ModeCustom:
		e.linkCustom(g, newID, shooter)
		return
	}

	g.ActivePortals = list
	e.saveGun(*g)
}

// joinRootChain makes list[0] the root of the chain in list and links it to
// newID.
func (e *Engine) joinRootChain(list []EntityID, newID EntityID) {
	if len(list) == 1 {
		p, ok := e.portals.Get(newID)
		if !ok {
			return
		}
		p.Role, p.ChildList = RoleRoot, []EntityID{newID}
		e.setPortal(p)
		return
	}

	root, ok := e.portals.Get(list[0])
	if !ok {
		return
	}
	root.Role = RoleRoot
	root.ChildList = slices.Clone(list)
	e.setPortal(root)

	if p, ok := e.portals.Get(newID); ok {
		p.Role = RoleMember
		e.setPortal(p)
	}
	e.link(root.ID, newID)
}
