package sqlstore

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/oriumgames/portals"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "portals.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s, path
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	s, path := openTemp(t)
	for key, v := range map[string]any{"name": "portal-2", "scale": 1.5, "rotation": 3, "root": true} {
		if err := s.SetProperty("portal-1", key, v); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	if err := s.SetProperty("portal-1", "scale", 2); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := s.SetProperty("gun-7", "charge", 40); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	want := map[string]any{"name": "portal-2", "scale": 2.0, "rotation": 3.0, "root": true}
	for key, w := range want {
		if got, ok := s.Property("portal-1", key); !ok || got != w {
			t.Fatalf("%s: got %v (%T), want %v", key, got, got, w)
		}
	}
	if got := s.PropertyKeys("portal-1"); !slices.Equal(got, []string{"name", "root", "rotation", "scale"}) {
		t.Fatalf("keys: %v", got)
	}
	if got := s.Owners(); !slices.Equal(got, []portals.EntityID{"gun-7", "portal-1"}) {
		t.Fatalf("owners: %v", got)
	}
}

func TestStoreDeletePersists(t *testing.T) {
	s, path := openTemp(t)
	_ = s.SetProperty("a", "x", 1)
	_ = s.SetProperty("a", "y", 2)
	_ = s.SetProperty("b", "x", "keep")

	if err := s.DeleteProperty("a", "x"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteProperty("a", "missing"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if err := s.ClearProperties("b"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	_ = s.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, ok := s.Property("a", "x"); ok {
		t.Fatalf("deleted property came back")
	}
	if got, ok := s.Property("a", "y"); !ok || got != 2.0 {
		t.Fatalf("y: %v", got)
	}
	if got := s.Owners(); !slices.Equal(got, []portals.EntityID{"a"}) {
		t.Fatalf("owners: %v", got)
	}

	if err := s.DeleteProperty("a", "y"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(s.Owners()) != 0 {
		t.Fatalf("empty owner kept: %v", s.Owners())
	}
}

func TestStoreRejectsUnsupportedValues(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	err := s.SetProperty("a", "list", []string{"x"})
	if !errors.Is(err, portals.ErrUnsupportedValue) {
		t.Fatalf("got %v", err)
	}
	if _, ok := s.Property("a", "list"); ok {
		t.Fatalf("rejected value stored")
	}
}

func TestStoreServesRegistry(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	r := portals.NewRegistry(s)
	if err := r.Set(portals.Portal{ID: "portal-1", DualID: "portal-2", OwnerGunID: 3, Scale: 1,
		ChildList: []portals.EntityID{"portal-1", "portal-2"}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	p, ok := r.Get("portal-1")
	if !ok || p.DualID != "portal-2" || len(p.ChildList) != 2 {
		t.Fatalf("got %+v", p)
	}
}

func TestOpenAndClose(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatalf("empty path accepted")
	}
	s, _ := openTemp(t)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err == nil {
		t.Fatalf("second close should fail")
	}
}
