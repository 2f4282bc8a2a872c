package portals

import (
	"errors"
	"fmt"
	"slices"
)

// Role is the position of a portal inside a root chain.
type Role int

const (
	// RoleNone marks a simple portal outside any chain.
	RoleNone Role = iota
	// RoleMember marks a non-root chain member.
	RoleMember
	// RoleRoot marks the anchor of a chain.
	RoleRoot
)

// String returns the string representation of the role.
func (r Role) String() string {
	switch r {
	case RoleNone:
		return "None"
	case RoleMember:
		return "Member"
	case RoleRoot:
		return "Root"
	default:
		return "Unknown"
	}
}

// Portal is the stored state of a portal anchor.
type Portal struct {
	ID          EntityID
	DualID      EntityID
	OwnerGunID  int
	Rotation    int
	Orientation Orientation
	Scale       float64
	Role        Role
	// ChildList holds the chain in creation order. Only the root's list is
	// authoritative.
	ChildList  []EntityID
	AutoClose  bool
	Bootlegged bool
	LocationID *int
	Linked     bool
	Closing    bool
}

// IsRoot reports whether the portal anchors a chain.
func (p Portal) IsRoot() bool { return p.Role == RoleRoot }

// Registry maps portal ids to their stored state.
type Registry struct {
	store Store
}

// NewRegistry creates a registry backed by s.
func NewRegistry(s Store) *Registry {
	return &Registry{store: s}
}

// Get returns the state of id. Every stored portal carries an owner gun, so
// an owner without one is not a portal.
func (r *Registry) Get(id EntityID) (Portal, bool) {
	if id == "" {
		return Portal{}, false
	}
	props := PropsOf(r.store, id)
	gun, ok := props.Int(keyOwnerGun)
	if !ok {
		return Portal{}, false
	}

	p := Portal{ID: id, OwnerGunID: gun}
	if dual, ok := props.String(keyDual); ok {
		p.DualID = EntityID(dual)
	}
	p.Rotation, _ = props.Int(keyRotation)
	orientation, _ := props.Int(keyOrientation)
	p.Orientation = Orientation(orientation)
	p.Scale = 1
	if scale, ok := props.Number(keyScale); ok {
		p.Scale = scale
	}
	if root, ok := props.Bool(keyIsRoot); ok {
		p.Role = RoleMember
		if root {
			p.Role = RoleRoot
		}
	}
	if list, ok, err := LoadJSON[[]EntityID](props, keyChildList); ok && err == nil {
		p.ChildList = list
	}
	p.AutoClose = props.Flag(keyAutoClose)
	p.Bootlegged = props.Flag(keyBootlegged)
	if loc, ok := props.Int(keyLocationID); ok {
		p.LocationID = &loc
	}
	p.Linked = props.Flag(keyLinked)
	p.Closing = props.Flag(keyClosing)
	return p, true
}

// Set stores the full state of p. Keys for absent optional fields are
// deleted.
func (r *Registry) Set(p Portal) error {
	if p.ID == "" {
		return errors.New("set portal: empty id")
	}
	props := PropsOf(r.store, p.ID)
	var errs []error
	set := func(key string, v any) { errs = append(errs, props.Set(key, v)) }
	del := func(key string) { errs = append(errs, props.Delete(key)) }

	set(keyOwnerGun, p.OwnerGunID)
	if p.DualID != "" {
		set(keyDual, string(p.DualID))
	} else {
		del(keyDual)
	}
	set(keyRotation, p.Rotation)
	set(keyOrientation, int(p.Orientation))
	set(keyScale, p.Scale)
	switch p.Role {
	case RoleNone:
		del(keyIsRoot)
	default:
		set(keyIsRoot, p.Role == RoleRoot)
	}
	if len(p.ChildList) > 0 {
		errs = append(errs, StoreJSON(props, keyChildList, p.ChildList))
	} else {
		del(keyChildList)
	}
	set(keyAutoClose, p.AutoClose)
	set(keyBootlegged, p.Bootlegged)
	if p.LocationID != nil {
		set(keyLocationID, *p.LocationID)
	} else {
		del(keyLocationID)
	}
	set(keyLinked, p.Linked)
	set(keyClosing, p.Closing)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("set portal %s: %w", p.ID, err)
	}
	return nil
}

// Remove deletes every stored key of id.
func (r *Registry) Remove(id EntityID) error {
	return r.store.ClearProperties(id)
}

// Link pairs a and b so each one's dual is the other.
func (r *Registry) Link(a, b EntityID) error {
	pa, ok := r.Get(a)
	if !ok {
		return fmt.Errorf("link %s: %w", a, ErrPortalNotFound)
	}
	pb, ok := r.Get(b)
	if !ok {
		return fmt.Errorf("link %s: %w", b, ErrPortalNotFound)
	}
	pa.DualID, pb.DualID = b, a
	if err := r.Set(pa); err != nil {
		return err
	}
	return r.Set(pb)
}

// IDs returns the ids of every stored portal.
func (r *Registry) IDs() []EntityID {
	var ids []EntityID
	for _, owner := range r.store.Owners() {
		if _, ok := r.store.Property(owner, keyOwnerGun); ok {
			ids = append(ids, owner)
		}
	}
	return ids
}

// All returns the state of every stored portal.
func (r *Registry) All() []Portal {
	ids := r.IDs()
	all := make([]Portal, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.Get(id); ok {
			all = append(all, p)
		}
	}
	return all
}

// ReferencingDual returns the portals whose dual is id.
func (r *Registry) ReferencingDual(id EntityID) []Portal {
	var refs []Portal
	for _, p := range r.All() {
		if p.DualID == id {
			refs = append(refs, p)
		}
	}
	return refs
}

// withoutID returns list without id, preserving order.
func withoutID(list []EntityID, id EntityID) []EntityID {
	return slices.DeleteFunc(slices.Clone(list), func(o EntityID) bool { return o == id })
}
