package portals

import (
	"slices"
	"strings"
	"testing"
)

func TestFIFORetiresOldest(t *testing.T) {
	te := newTestEngine(t)
	gun := te.newGun(t, ModeFIFO)

	p1 := te.shoot(t, gun, 0, 0)
	p2 := te.shoot(t, gun, 10, 0)
	assertLinked(t, te, p1, p2)

	p3 := te.shoot(t, gun, 20, 0)
	if !te.portal(t, p1).Closing {
		t.Fatalf("oldest portal should be closing")
	}
	assertLinked(t, te, p2, p3)
	if got := te.gun(t, gun).ActivePortals; !slices.Equal(got, []EntityID{p2, p3}) {
		t.Fatalf("active portals: got %v", got)
	}

	te.ticks(DefaultConfig().CloseDelay - 1)
	if _, ok := te.world.Entity(p1); !ok {
		t.Fatalf("portal removed before its close delay")
	}
	te.ticks(1)
	if _, ok := te.world.Entity(p1); ok {
		t.Fatalf("portal still present after its close delay")
	}
	if _, ok := te.Portals().Get(p1); ok {
		t.Fatalf("portal state not cleared")
	}
	assertLinked(t, te, p2, p3)
	assertNoDangling(t, te)
}

func TestLIFOKeepsFirst(t *testing.T) {
	te := newTestEngine(t)
	gun := te.newGun(t, ModeLIFO)

	p1 := te.shoot(t, gun, 0, 0)
	p2 := te.shoot(t, gun, 10, 0)
	p3 := te.shoot(t, gun, 20, 0)

	if !te.portal(t, p2).Closing {
		t.Fatalf("previous shot should be closing")
	}
	if te.portal(t, p1).Closing {
		t.Fatalf("first portal must stay")
	}
	assertLinked(t, te, p1, p3)
	if got := te.gun(t, gun).ActivePortals; !slices.Equal(got, []EntityID{p1, p3}) {
		t.Fatalf("active portals: got %v", got)
	}

	p4 := te.shoot(t, gun, 30, 0)
	assertLinked(t, te, p1, p4)
	te.ticks(DefaultConfig().CloseDelay)
	assertNoDangling(t, te)
	if got := te.gun(t, gun).ActivePortals; !slices.Equal(got, []EntityID{p1, p4}) {
		t.Fatalf("active portals: got %v", got)
	}
}

func TestMultiPairLinksConsecutiveShots(t *testing.T) {
	te := newTestEngine(t)
	gun := te.newGun(t, ModeMultiPair)

	var ids []EntityID
	for i := range 5 {
		ids = append(ids, te.shoot(t, gun, i*10, 0))
	}
	assertLinked(t, te, ids[0], ids[1])
	assertLinked(t, te, ids[2], ids[3])
	if p := te.portal(t, ids[4]); p.DualID != "" {
		t.Fatalf("odd portal should wait for a partner, has %s", p.DualID)
	}
	if got := te.gun(t, gun).ActivePortals; len(got) != 5 {
		t.Fatalf("active portals: got %v", got)
	}
	for _, id := range ids {
		if te.portal(t, id).Closing {
			t.Fatalf("multi pair never retires portals, %s is closing", id)
		}
	}
}

func TestMultiPairAdvisory(t *testing.T) {
	conf := DefaultConfig()
	conf.MultiPairAdvisory = 2
	te := newTestEngineWith(t, conf)
	gun := te.newGun(t, ModeMultiPair)

	te.shoot(t, gun, 0, 0)
	te.shoot(t, gun, 10, 0)
	if len(te.messages(shooterID)) != 0 {
		t.Fatalf("no advisory expected yet: %v", te.messages(shooterID))
	}
	te.shoot(t, gun, 20, 0)
	msgs := te.messages(shooterID)
	if len(msgs) != 1 || !strings.Contains(msgs[0], "3 portals") {
		t.Fatalf("advisory: %v", msgs)
	}
}

func TestRootChain(t *testing.T) {
	te := newTestEngine(t)
	gun := te.newGun(t, ModeRoot)

	p1 := te.shoot(t, gun, 0, 0)
	root := te.portal(t, p1)
	if root.Role != RoleRoot || !slices.Equal(root.ChildList, []EntityID{p1}) {
		t.Fatalf("first shot: role %v children %v", root.Role, root.ChildList)
	}

	p2 := te.shoot(t, gun, 10, 0)
	p3 := te.shoot(t, gun, 20, 0)
	root = te.portal(t, p1)
	if !slices.Equal(root.ChildList, []EntityID{p1, p2, p3}) {
		t.Fatalf("children: got %v", root.ChildList)
	}
	assertLinked(t, te, p1, p3)
	if p := te.portal(t, p2); p.Role != RoleMember || p.DualID != p1 {
		t.Fatalf("member p2: role %v dual %s", p.Role, p.DualID)
	}
	if got := te.gun(t, gun).ActivePortals; !slices.Equal(got, []EntityID{p1, p2, p3}) {
		t.Fatalf("active portals: got %v", got)
	}
}

func TestChangeModeClosesPortals(t *testing.T) {
	te := newTestEngine(t)
	gun := te.newGun(t, ModeFIFO)
	p1 := te.shoot(t, gun, 0, 0)
	p2 := te.shoot(t, gun, 10, 0)

	if _, err := te.ChangeMode(gun, ModeFIFO); err != nil {
		t.Fatalf("change mode: %v", err)
	}
	if te.portal(t, p1).Closing {
		t.Fatalf("same mode must not close portals")
	}

	g, err := te.ChangeMode(gun, ModeRoot)
	if err != nil {
		t.Fatalf("change mode: %v", err)
	}
	if len(g.ActivePortals) != 0 {
		t.Fatalf("active portals: %v", g.ActivePortals)
	}
	if !te.portal(t, p1).Closing || !te.portal(t, p2).Closing {
		t.Fatalf("portals should be closing after a mode change")
	}
	te.ticks(DefaultConfig().CloseDelay)
	if n := len(te.world.Portals()); n != 0 {
		t.Fatalf("%d portals left", n)
	}
}

func TestLinkedEventEmitted(t *testing.T) {
	te := newTestEngine(t)
	gun := te.newGun(t, ModeFIFO)
	p1 := te.shoot(t, gun, 0, 0)
	p2 := te.shoot(t, gun, 10, 0)

	for _, ev := range te.events {
		if l, ok := ev.(EventPortalsLinked); ok && l.A == p1 && l.B == p2 {
			return
		}
	}
	t.Fatalf("no link event for %s and %s", p1, p2)
}
