package portals

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync/atomic"
)

// Engine runs the portal gun logic against a World and a Store.
// Create one with NewBuilder.
type Engine struct {
	world     World
	store     Store
	portals   *Registry
	conf      atomic.Pointer[Config]
	log       *slog.Logger
	rand      *rand.Rand
	tasks     *taskQueue
	cooldowns *Ledger
	tick      uint64

	// autoClose holds the pending auto close task of each portal pair.
	autoClose map[[2]EntityID]*TaskHandle
	listeners []func(Event)
}

// Config returns the active config.
func (e *Engine) Config() Config {
	return *e.conf.Load()
}

// SetConfig swaps the active config. It is safe to call from any goroutine
// and takes effect on the next operation that reads it.
func (e *Engine) SetConfig(c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	e.conf.Store(&c)
	e.log.Info("portals: config updated")
	return nil
}

// World returns the host the engine acts on.
func (e *Engine) World() World { return e.world }

// Store returns the property store.
func (e *Engine) Store() Store { return e.store }

// Portals returns the portal registry.
func (e *Engine) Portals() *Registry { return e.portals }

// Cooldowns returns the teleport cooldown ledger.
func (e *Engine) Cooldowns() *Ledger { return e.cooldowns }

// Now returns the number of ticks run so far.
func (e *Engine) Now() uint64 { return e.tick }

// PendingTasks returns the number of scheduled tasks that will still run.
func (e *Engine) PendingTasks() int { return e.tasks.Pending() }

// After schedules fn to run delay ticks from now. The task is cancelled
// when any of owners is removed as a portal.
func (e *Engine) After(delay int, fn func(), owners ...EntityID) *TaskHandle {
	return e.tasks.Schedule(e.tick, delay, fn, owners...)
}

// Poll calls check once now and then once per tick until it returns true or
// timeout ticks have passed, then calls done with the last result.
func (e *Engine) Poll(timeout int, check func() bool, done func(ok bool), owners ...EntityID) {
	if check() {
		done(true)
		return
	}
	var attempt func(left int)
	attempt = func(left int) {
		if check() {
			done(true)
			return
		}
		if left <= 1 {
			done(false)
			return
		}
		e.After(1, func() { attempt(left - 1) }, owners...)
	}
	e.After(1, func() { attempt(timeout) }, owners...)
}

// Tick advances the engine by one game tick: due tasks run, cooldowns count
// down, linked portals move nearby entities, and every few ticks stale
// teleport tags are cleared.
func (e *Engine) Tick() {
	e.tick++
	conf := e.Config()

	e.tasks.run(e.tick, e.log)
	e.cooldowns.Decrement()
	e.teleportPass(conf)
	if conf.TagCleanupInterval > 0 && e.tick%uint64(conf.TagCleanupInterval) == 0 {
		e.cleanupTags()
	}
}

// emit sends ev to every listener.
func (e *Engine) emit(ev Event) {
	for _, fn := range e.listeners {
		fn(ev)
	}
}

// Gun loads the state of gun id.
func (e *Engine) Gun(id int) (Gun, error) {
	return LoadGun(e.store, id)
}

// SaveGun stores g.
func (e *Engine) SaveGun(g Gun) error {
	return SaveGun(e.store, g)
}

// saveGun stores g and logs failures.
func (e *Engine) saveGun(g Gun) {
	if err := SaveGun(e.store, g); err != nil {
		e.log.Warn("portals: save gun", "gun", g.ID, "error", err)
	}
}

// setPortal stores p and logs failures.
func (e *Engine) setPortal(p Portal) {
	if err := e.portals.Set(p); err != nil {
		e.log.Warn("portals: store portal", "portal", p.ID, "error", err)
	}
}

// link pairs a and b and logs failures.
func (e *Engine) link(a, b EntityID) {
	if err := e.portals.Link(a, b); err != nil {
		e.log.Warn("portals: link", "a", a, "b", b, "error", err)
		return
	}
	e.emit(EventPortalsLinked{A: a, B: b})
}

// live reports whether id is a stored portal with a live entity.
func (e *Engine) live(id EntityID) bool {
	if _, ok := e.portals.Get(id); !ok {
		return false
	}
	_, ok := e.world.Entity(id)
	return ok
}

// livePortals drops ids of portals that no longer exist.
func (e *Engine) livePortals(ids []EntityID) []EntityID {
	return slices.DeleteFunc(slices.Clone(ids), func(id EntityID) bool {
		p, ok := e.portals.Get(id)
		return !ok || p.Closing || !e.live(id)
	})
}

// newGunID picks a random id not used by another stored gun.
func (e *Engine) newGunID() int {
	for {
		id := 1 + e.rand.IntN(9999)
		if _, ok := e.store.Property(GunOwner(id), keyGunID); !ok {
			return id
		}
	}
}

// gunFor returns the gun used in use, creating it on first use.
func (e *Engine) gunFor(use ItemUse) (Gun, error) {
	if use.GunID != 0 {
		g, err := LoadGun(e.store, use.GunID)
		if err == nil {
			return g, nil
		}
		if !errors.Is(err, ErrGunNotFound) {
			return g, err
		}
	}
	charge := 0
	if use.Charged {
		charge = e.Config().MaxCharge
	}
	id := use.GunID
	if id == 0 {
		id = e.newGunID()
	}
	g := newGun(id, charge)
	e.log.Debug("portals: new gun", "gun", g.ID, "user", use.User.Name)
	return g, nil
}

// HandleItemUse decides whether using a gun fires it or opens its menu.
// Sneaking opens the menu. A fired gun pays its cost up front.
func (e *Engine) HandleItemUse(use ItemUse) (UseResult, error) {
	g, err := e.gunFor(use)
	if err != nil {
		return UseResult{}, err
	}
	g.LastUser = use.User.Name
	g.ActivePortals = e.livePortals(g.ActivePortals)
	if err := PropsOf(e.store, use.User.ID).Set(keyPlayerGun, g.ID); err != nil {
		e.log.Warn("portals: record gun user", "player", use.User.ID, "error", err)
	}

	res := UseResult{Action: UseOpenMenu}
	switch {
	case use.User.Sneaking:
	case !g.CanFire():
		res.Action = UseEmpty
		e.world.PlayCue(use.User.ID, CueEmpty)
	default:
		res.Action = UseFired
		wasDischarged := g.Discharged
		g.consume()
		res.Projectile = Projectile{Bootleg: g.Bootlegged, HighPressure: g.HighPressure}
		e.world.PlayCue(use.User.ID, CueFire)
		if g.Discharged && !wasDischarged {
			e.emit(EventGunDischarged{GunID: g.ID})
		}
	}
	if err := SaveGun(e.store, g); err != nil {
		return UseResult{}, err
	}
	res.Gun = g
	return res, nil
}

// HandleProjectileHitBlock spawns a portal where a projectile landed and
// links it according to the gun's mode. It returns the new portal id.
func (e *Engine) HandleProjectileHitBlock(hit ProjectileHit) (EntityID, error) {
	g, err := LoadGun(e.store, hit.GunID)
	if err != nil {
		e.world.Message(hit.Shooter, "§cThis portal gun has no data. Use it again to set it up.")
		return "", err
	}
	kind, loaded := e.world.Block(hit.Hit.Dimension, hit.Hit.Block)
	if !loaded || kind == BlockAir {
		e.world.Message(hit.Shooter, "§cInvalid target.")
		return "", fmt.Errorf("hit %v: %w", hit.Hit.Block, ErrInvalidTarget)
	}

	p, err := e.spawnPortal(g, PlacementFor(hit.Hit), hit.Bootleg)
	if err != nil {
		e.world.Message(hit.Shooter, "§cThe portal could not be opened.")
		return "", err
	}
	g.ActivePortals = append(e.livePortals(g.ActivePortals), p.ID)
	e.onPortalCreated(&g, p.ID, hit.Shooter)
	return p.ID, nil
}

// spawnPortal creates and stores a portal for g at pl. Entities caught in
// the frame are crushed.
func (e *Engine) spawnPortal(g Gun, pl Placement, bootleg bool) (Portal, error) {
	conf := e.Config()
	pos := spawnPosition(e.world, pl.Dimension, pl.Position, pl.Orientation, g.Scale)
	id, err := e.world.SpawnPortal(pl.Dimension, pos)
	if err != nil {
		return Portal{}, fmt.Errorf("spawn portal: %w", err)
	}
	p := Portal{
		ID:          id,
		OwnerGunID:  g.ID,
		Rotation:    pl.Rotation,
		Orientation: pl.Orientation,
		Scale:       g.Scale,
		AutoClose:   g.AutoClose,
		Bootlegged:  bootleg,
	}
	if err := e.portals.Set(p); err != nil {
		e.world.RemoveEntity(id)
		return Portal{}, err
	}

	for _, ent := range e.world.EntitiesNear(pl.Dimension, pos, 1) {
		if ent.ID == id || ent.Player || ent.HasFamily(FamilyPortal) {
			continue
		}
		e.world.Damage(ent.ID, conf.SpawnDamage)
	}
	e.world.PlayCue(id, CuePortalOpen)
	e.emit(EventPortalCreated{Portal: p})
	return p, nil
}

// HandleProjectileHitEntity poisons an entity hit by portal fluid.
func (e *Engine) HandleProjectileHitEntity(hit ProjectileHitEntity) {
	if _, ok := e.portals.Get(hit.Target); ok {
		return
	}
	if _, ok := e.world.Entity(hit.Target); !ok {
		return
	}
	conf := e.Config()
	e.world.Poison(hit.Target, conf.PoisonTicks, conf.PoisonAmplifier)
}

// HandleAttackEntity removes a portal hit by a sneaking player. It reports
// whether the attack was consumed.
func (e *Engine) HandleAttackEntity(atk AttackEntity) bool {
	if !atk.Attacker.Sneaking {
		return false
	}
	if _, ok := e.portals.Get(atk.Target); !ok {
		return false
	}
	e.RemoveChainMember(atk.Target)
	return true
}

// HandleHitBlock cycles the custom location of a gun with fast location
// change enabled. The first hit outside custom mode only switches the mode.
// It reports whether the hit was consumed.
func (e *Engine) HandleHitBlock(hit HitBlock) bool {
	g, err := LoadGun(e.store, hit.GunID)
	if err != nil || !g.FastLocationChange {
		return false
	}
	if g.Mode != ModeCustom {
		e.changeMode(&g, ModeCustom)
		e.saveGun(g)
		e.world.Message(hit.User.ID, "Mode: §aCUSTOM§r")
		return true
	}
	l, err := g.CycleLocation(hit.User.Sneaking)
	if err != nil {
		e.world.Message(hit.User.ID, "§cNo saved locations.")
		return true
	}
	e.saveGun(g)
	e.world.PlayCue(hit.User.ID, CueSelect)
	dim, _ := l.Dimension()
	e.world.Message(hit.User.ID, fmt.Sprintf("Location: §a%s§r (%d/%d)\nDimension: §a%s§r",
		l.Name, g.CustomLocationIndex+1, len(g.SavedLocations), dim))
	return true
}
