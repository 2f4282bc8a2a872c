package portals

import (
	"errors"
	"slices"
	"testing"
)

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry(NewMemoryStore())
	loc := -12
	want := Portal{
		ID:          "portal-1",
		DualID:      "portal-2",
		OwnerGunID:  77,
		Rotation:    3,
		Orientation: OrientationCeiling,
		Scale:       1.5,
		Role:        RoleRoot,
		ChildList:   []EntityID{"portal-1", "portal-2"},
		AutoClose:   true,
		Bootlegged:  true,
		LocationID:  &loc,
		Linked:      true,
	}
	if err := r.Set(want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok := r.Get("portal-1")
	if !ok {
		t.Fatalf("portal not found")
	}
	if got.DualID != want.DualID || got.OwnerGunID != 77 || got.Rotation != 3 ||
		got.Orientation != OrientationCeiling || got.Scale != 1.5 || got.Role != RoleRoot ||
		!got.AutoClose || !got.Bootlegged || !got.Linked || got.Closing {
		t.Fatalf("got %+v", got)
	}
	if !slices.Equal(got.ChildList, want.ChildList) {
		t.Fatalf("children: %v", got.ChildList)
	}
	if got.LocationID == nil || *got.LocationID != loc {
		t.Fatalf("location id: %v", got.LocationID)
	}
}

func TestRegistryDeletesAbsentOptionals(t *testing.T) {
	s := NewMemoryStore()
	r := NewRegistry(s)
	loc := 3
	p := Portal{ID: "portal-1", DualID: "portal-2", OwnerGunID: 1, Scale: 1, Role: RoleMember,
		ChildList: []EntityID{"portal-1"}, LocationID: &loc}
	if err := r.Set(p); err != nil {
		t.Fatalf("set: %v", err)
	}
	p.DualID, p.Role, p.ChildList, p.LocationID = "", RoleNone, nil, nil
	if err := r.Set(p); err != nil {
		t.Fatalf("set: %v", err)
	}
	for _, key := range []string{keyDual, keyIsRoot, keyChildList, keyLocationID} {
		if PropsOf(s, "portal-1").Has(key) {
			t.Fatalf("%s still stored", key)
		}
	}
	got, _ := r.Get("portal-1")
	if got.Role != RoleNone || got.DualID != "" || got.LocationID != nil {
		t.Fatalf("got %+v", got)
	}
}

func TestRegistryMemberRole(t *testing.T) {
	r := NewRegistry(NewMemoryStore())
	if err := r.Set(Portal{ID: "portal-3", OwnerGunID: 1, Scale: 1, Role: RoleMember}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := r.Get("portal-3"); got.Role != RoleMember || got.IsRoot() {
		t.Fatalf("role: %v", got.Role)
	}
}

func TestRegistryIgnoresNonPortals(t *testing.T) {
	s := NewMemoryStore()
	r := NewRegistry(s)
	_ = PropsOf(s, "pig").Set(keyTeleported, true)
	if _, ok := r.Get("pig"); ok {
		t.Fatalf("entity without an owner gun read as a portal")
	}
	if _, ok := r.Get(""); ok {
		t.Fatalf("empty id read as a portal")
	}
	if len(r.IDs()) != 0 {
		t.Fatalf("ids: %v", r.IDs())
	}
	if err := r.Set(Portal{}); err == nil {
		t.Fatalf("expected error for an empty id")
	}
}

func TestRegistryLink(t *testing.T) {
	r := NewRegistry(NewMemoryStore())
	for _, id := range []EntityID{"portal-1", "portal-2", "portal-3"} {
		if err := r.Set(Portal{ID: id, OwnerGunID: 1, Scale: 1}); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	if err := r.Link("portal-1", "portal-2"); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := r.Link("portal-3", "portal-2"); err != nil {
		t.Fatalf("link: %v", err)
	}
	refs := r.ReferencingDual("portal-2")
	if len(refs) != 2 {
		t.Fatalf("referencing portal-2: %v", refs)
	}
	if err := r.Link("portal-1", "portal-9"); !errors.Is(err, ErrPortalNotFound) {
		t.Fatalf("missing portal: got %v", err)
	}

	if err := r.Remove("portal-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := r.IDs(); !slices.Equal(got, []EntityID{"portal-2", "portal-3"}) {
		t.Fatalf("ids: %v", got)
	}
}
