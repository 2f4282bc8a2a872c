package portals

import (
	"slices"
	"testing"
)

func rootChain(t *testing.T, te *testEngine, n int) (int, []EntityID) {
	t.Helper()
	gun := te.newGun(t, ModeRoot)
	ids := make([]EntityID, 0, n)
	for i := range n {
		ids = append(ids, te.shoot(t, gun, i*10, 0))
	}
	return gun, ids
}

func TestRemoveAloneIsIdempotent(t *testing.T) {
	te := newTestEngine(t)
	gun := te.newGun(t, ModeFIFO)
	p1 := te.shoot(t, gun, 0, 0)
	p2 := te.shoot(t, gun, 10, 0)

	te.RemovePortalAlone(p1)
	te.RemovePortalAlone(p1)
	if te.portal(t, p2).Closing {
		t.Fatalf("dual must stay open")
	}
	closes := 0
	for _, c := range te.world.CuesFor(p1) {
		if c == CuePortalClose {
			closes++
		}
	}
	if closes != 1 {
		t.Fatalf("close cue played %d times", closes)
	}

	te.ticks(DefaultConfig().CloseDelay)
	if got := slices.Index(te.world.Removed, p1); got < 0 {
		t.Fatalf("portal not removed: %v", te.world.Removed)
	}
	if n := len(te.world.Removed); n != 1 {
		t.Fatalf("removed %d entities, want 1", n)
	}
	if p := te.portal(t, p2); p.DualID != "" || p.Linked {
		t.Fatalf("survivor still points at the removed portal: %+v", p)
	}
	if got := te.gun(t, gun).ActivePortals; !slices.Equal(got, []EntityID{p2}) {
		t.Fatalf("active portals: %v", got)
	}
}

func TestRemoveAloneClearsFluid(t *testing.T) {
	te := newTestEngine(t)
	gun := te.newGun(t, ModeFIFO)
	p1 := te.shoot(t, gun, 0, 0)
	ent, _ := te.world.Entity(p1)
	te.world.SetBlock(Overworld, ent.Cell(), BlockWater)

	te.RemovePortalAlone(p1)
	if kind, _ := te.world.Block(Overworld, ent.Cell()); kind != BlockAir {
		t.Fatalf("fluid not cleared, got %v", kind)
	}
}

func TestRemoveWithDual(t *testing.T) {
	te := newTestEngine(t)
	gun := te.newGun(t, ModeFIFO)
	p1 := te.shoot(t, gun, 0, 0)
	p2 := te.shoot(t, gun, 10, 0)

	te.RemovePortalWithDual(p2)
	if !te.portal(t, p1).Closing || !te.portal(t, p2).Closing {
		t.Fatalf("both portals should be closing")
	}
	te.ticks(DefaultConfig().CloseDelay)
	if len(te.world.Portals()) != 0 || len(te.Portals().IDs()) != 0 {
		t.Fatalf("portals left: %v %v", te.world.Portals(), te.Portals().IDs())
	}
	if got := te.gun(t, gun).ActivePortals; len(got) != 0 {
		t.Fatalf("active portals: %v", got)
	}
}

func TestRemoveChainMemberPrunesAndRelinks(t *testing.T) {
	te := newTestEngine(t)
	_, ids := rootChain(t, te, 4)
	p1, p2, p3, p4 := ids[0], ids[1], ids[2], ids[3]

	te.RemoveChainMember(p4)
	root := te.portal(t, p1)
	if !slices.Equal(root.ChildList, []EntityID{p1, p2, p3}) {
		t.Fatalf("children: %v", root.ChildList)
	}
	assertLinked(t, te, p1, p3)
	if !te.portal(t, p4).Closing {
		t.Fatalf("pruned member should be closing")
	}
	for _, id := range []EntityID{p1, p2, p3} {
		if te.portal(t, id).Closing {
			t.Fatalf("%s should stay open", id)
		}
	}

	te.RemoveChainMember(p2)
	root = te.portal(t, p1)
	if !slices.Equal(root.ChildList, []EntityID{p1, p3}) {
		t.Fatalf("children: %v", root.ChildList)
	}
	assertLinked(t, te, p1, p3)

	te.ticks(DefaultConfig().CloseDelay)
	assertNoDangling(t, te)
	if _, ok := te.Portals().Get(p2); ok {
		t.Fatalf("removed member still stored")
	}
}

func TestRemoveChainMemberOfPair(t *testing.T) {
	te := newTestEngine(t)
	_, ids := rootChain(t, te, 2)

	te.RemoveChainMember(ids[1])
	if !te.portal(t, ids[0]).Closing || !te.portal(t, ids[1]).Closing {
		t.Fatalf("a two portal chain closes as a pair")
	}
}

func TestRemoveChainRootTearsDown(t *testing.T) {
	te := newTestEngine(t)
	gun, ids := rootChain(t, te, 3)

	te.RemoveChainMember(ids[0])
	for _, id := range ids {
		if !te.portal(t, id).Closing {
			t.Fatalf("%s should be closing", id)
		}
	}
	te.ticks(DefaultConfig().CloseDelay)
	if len(te.world.Portals()) != 0 {
		t.Fatalf("portals left: %v", te.world.Portals())
	}
	if got := te.gun(t, gun).ActivePortals; len(got) != 0 {
		t.Fatalf("active portals: %v", got)
	}
}

func TestRemoveChainMemberWithDeadDual(t *testing.T) {
	te := newTestEngine(t)
	_, ids := rootChain(t, te, 3)
	// The root entity vanished without going through the engine.
	te.world.RemoveEntity(ids[0])

	te.RemoveChainMember(ids[1])
	if !te.portal(t, ids[1]).Closing {
		t.Fatalf("member should be closing")
	}
	if te.portal(t, ids[2]).Closing {
		t.Fatalf("other members must stay")
	}
}

func TestDeleteCancelsOwnedTasks(t *testing.T) {
	te := newTestEngine(t)
	gun := te.newGun(t, ModeFIFO)
	p1 := te.shoot(t, gun, 0, 0)

	ran := false
	h := te.After(50, func() { ran = true }, p1)
	te.RemovePortalAlone(p1)
	te.ticks(DefaultConfig().CloseDelay)
	if !h.Cancelled() {
		t.Fatalf("owned task should be cancelled")
	}
	te.ticks(50)
	if ran {
		t.Fatalf("cancelled task ran")
	}

	var removed bool
	for _, ev := range te.events {
		if r, ok := ev.(EventPortalRemoved); ok && r.ID == p1 {
			removed = true
		}
	}
	if !removed {
		t.Fatalf("no removal event")
	}
}

func TestRemoveAllPortals(t *testing.T) {
	te := newTestEngine(t)
	gun := te.newGun(t, ModeMultiPair)
	for i := range 3 {
		te.shoot(t, gun, i*10, 0)
	}
	if err := te.RemoveAllPortals(gun); err != nil {
		t.Fatalf("remove all: %v", err)
	}
	if got := te.gun(t, gun).ActivePortals; len(got) != 0 {
		t.Fatalf("active portals: %v", got)
	}
	te.ticks(DefaultConfig().CloseDelay)
	if len(te.world.Portals()) != 0 {
		t.Fatalf("portals left: %v", te.world.Portals())
	}
	if err := te.RemoveAllPortals(99999); err == nil {
		t.Fatalf("expected error for unknown gun")
	}
}
