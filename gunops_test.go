package portals

import (
	"errors"
	"testing"
)

func TestSetScaleRejectsUnknownSizes(t *testing.T) {
	te := newTestEngine(t)
	gun := te.newGun(t, ModeFIFO)
	for _, s := range Scales {
		if _, err := te.SetScale(gun, s); err != nil {
			t.Fatalf("scale %v: %v", s, err)
		}
	}
	if _, err := te.SetScale(gun, 0.75); err == nil {
		t.Fatalf("expected error")
	}
	if g := te.gun(t, gun); g.Scale != 2 {
		t.Fatalf("rejected scale stored: %v", g.Scale)
	}
}

func TestParseSetting(t *testing.T) {
	for s := SettingAutoClose; s <= SettingFastLocationChange; s++ {
		got, err := ParseSetting(s.String())
		if err != nil || got != s {
			t.Fatalf("ParseSetting(%q): got %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseSetting("teleport"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestResetGunClosesPortals(t *testing.T) {
	te := newTestEngine(t)
	gun := te.newGun(t, ModeRoot)
	p1 := te.shoot(t, gun, 0, 0)
	p2 := te.shoot(t, gun, 10, 0)

	g, err := te.ResetGun(gun)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if g.Mode != ModeFIFO || len(g.ActivePortals) != 0 || g.Charge != 100 {
		t.Fatalf("after reset: %+v", g)
	}
	if !te.portal(t, p1).Closing || !te.portal(t, p2).Closing {
		t.Fatalf("portals should close on reset")
	}
}

func TestRechargeGunClampsToMax(t *testing.T) {
	te := newTestEngine(t)
	gun := te.newGun(t, ModeFIFO)
	g, err := te.RechargeGun(gun, TubeBootleg, 1000)
	if err != nil {
		t.Fatalf("recharge: %v", err)
	}
	if g.Charge != 100 || !g.Bootlegged {
		t.Fatalf("got %+v", g)
	}
	if _, err := te.RechargeGun(404, TubeCharged, 1); !errors.Is(err, ErrGunNotFound) {
		t.Fatalf("unknown gun: got %v", err)
	}
}

func TestSavedAndHistorySelection(t *testing.T) {
	te := newTestEngine(t)
	gun := te.newGun(t, ModeFIFO)
	user, _ := te.world.Entity(shooterID)

	if _, err := te.SaveLocation(gun, user, ""); err == nil {
		t.Fatalf("empty name accepted")
	}
	saved, err := te.SaveLocation(gun, user, "base")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Z != -100 || saved.ID != 0 {
		t.Fatalf("saved: %+v", saved)
	}
	g, err := te.SelectSavedLocation(gun, 0)
	if err != nil || g.CustomLocation == nil || g.CustomLocation.Name != "base" {
		t.Fatalf("select saved: %+v %v", g.CustomLocation, err)
	}
	if _, err := te.SelectSavedLocation(gun, 3); err == nil {
		t.Fatalf("bad index accepted")
	}
	if _, err := te.SelectHistoryLocation(gun, 0); err == nil {
		t.Fatalf("empty history accepted")
	}

	deleted, err := te.DeleteLocation(gun, 0)
	if err != nil || deleted.Name != "base" {
		t.Fatalf("delete: %+v %v", deleted, err)
	}

	g.History = []Location{{Name: "old", DimensionID: Nether.ID()}}
	if err := te.SaveGun(g); err != nil {
		t.Fatalf("save gun: %v", err)
	}
	g, err = te.SelectHistoryLocation(gun, 0)
	if err != nil || g.CustomLocation.Name != "old" {
		t.Fatalf("select history: %+v %v", g.CustomLocation, err)
	}
}

func TestSelectCoordinatesChecksBounds(t *testing.T) {
	te := newTestEngine(t)
	gun := te.newGun(t, ModeLIFO)
	if _, err := te.SelectCoordinates(gun, Overworld, 0, 1000, 0); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("got %v", err)
	}
	if g := te.gun(t, gun); g.Mode != ModeLIFO || g.CustomLocation != nil {
		t.Fatalf("rejected coordinates changed the gun: %+v", g)
	}

	g, err := te.SelectCoordinates(gun, Nether, 5, 70, 5)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	l := g.CustomLocation
	if l == nil || l.Name != "Unnamed Location" || l.ID >= 0 || l.DimensionID != Nether.ID() || g.Mode != ModeCustom {
		t.Fatalf("got %+v mode %v", l, g.Mode)
	}
}
