package portals

// Input types carry what the host knows when one of its events fires.
// Hosts fill them from their own event parameters, so the engine does not
// depend on a particular server's handler signatures.

// ItemUse is a player using a portal gun.
type ItemUse struct {
	User Entity
	// GunID is the id stored on the item, zero for a gun never used.
	GunID int
	// Charged is the item variant, used to pick the starting charge of a
	// new gun.
	Charged bool
}

// ProjectileHit is a portal gun projectile landing on a block.
type ProjectileHit struct {
	Shooter EntityID
	GunID   int
	Hit     Hit
	Bootleg bool
}

// ProjectileHitEntity is a portal gun projectile hitting an entity.
type ProjectileHitEntity struct {
	Shooter EntityID
	Target  EntityID
}

// AttackEntity is a player holding a portal gun hitting an entity.
type AttackEntity struct {
	Attacker Entity
	GunID    int
	Target   EntityID
}

// HitBlock is a player holding a portal gun hitting a block.
type HitBlock struct {
	User  Entity
	GunID int
}

// UseAction is the outcome of an ItemUse.
type UseAction int

const (
	// UseFired means a projectile should be launched.
	UseFired UseAction = iota
	// UseEmpty means the gun had no charge.
	UseEmpty
	// UseOpenMenu means the player asked for the gun menu.
	UseOpenMenu
)

// String returns the string representation of the action.
func (a UseAction) String() string {
	switch a {
	case UseFired:
		return "Fired"
	case UseEmpty:
		return "Empty"
	case UseOpenMenu:
		return "OpenMenu"
	default:
		return "Unknown"
	}
}

// Projectile describes the shot a fired gun launches.
type Projectile struct {
	Bootleg      bool
	HighPressure bool
}

// UseResult is returned by Engine.HandleItemUse.
type UseResult struct {
	Action     UseAction
	Gun        Gun
	Projectile Projectile
}

// Event is emitted by the engine to listeners registered with
// Builder.Listen.
type Event interface {
	event()
}

// EventPortalCreated is emitted when a portal is spawned.
type EventPortalCreated struct {
	Portal Portal
}

// EventPortalsLinked is emitted when two portals are paired.
type EventPortalsLinked struct {
	A, B EntityID
}

// EventPortalClosing is emitted when a portal starts its close animation.
type EventPortalClosing struct {
	ID EntityID
}

// EventPortalRemoved is emitted when a portal entity is deleted.
type EventPortalRemoved struct {
	ID EntityID
}

// EventTeleported is emitted when an entity is moved through a portal.
type EventTeleported struct {
	Entity      EntityID
	From, To    EntityID
	Destination Destination
}

// EventGunDischarged is emitted when a gun runs out of charge.
type EventGunDischarged struct {
	GunID int
}

func (EventPortalCreated) event() {}
func (EventPortalsLinked) event() {}
func (EventPortalClosing) event() {}
func (EventPortalRemoved) event() {}
func (EventTeleported) event() {}
func (EventGunDischarged) event() {}
