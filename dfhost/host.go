// Package dfhost runs the portal engine on a dragonfly server.
//
// A Host owns a portals.Runner. Players are handed to Host.Accept, which
// installs a Handler that forwards gun use to the engine.
//
// Quick Start:
//
//	host, err := dfhost.New(dfhost.Options{
//	    Worlds: map[portals.Dimension]*world.World{portals.Overworld: srv.World()},
//	})
//	if err != nil {
//	    panic(err)
//	}
//	host.Start()
//	defer host.Stop()
//
//	for p := range srv.Accept() {
//	    host.Accept(p)
//	}
package dfhost

import (
	"fmt"
	"log/slog"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"

	"github.com/oriumgames/portals"
)

// Options configures a Host.
type Options struct {
	// Worlds maps each dimension to the world that hosts it. The overworld
	// is required.
	Worlds map[portals.Dimension]*world.World
	// Store holds portal and gun data. Defaults to a MemoryStore.
	Store portals.Store
	// Config defaults to portals.DefaultConfig().
	Config *portals.Config
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Listen is called on the Runner goroutine with every engine event.
	Listen func(portals.Event)
}

// Host connects an engine to dragonfly.
type Host struct {
	world  *World
	store  portals.Store
	engine *portals.Engine
	runner *portals.Runner
	log    *slog.Logger
}

// New creates a host. Call Start before accepting players.
func New(opts Options) (*Host, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	store := opts.Store
	if store == nil {
		store = portals.NewMemoryStore()
	}
	w, err := NewWorld(opts.Worlds, store, log)
	if err != nil {
		return nil, err
	}

	h := &Host{world: w, store: store, log: log}
	b := portals.NewBuilder().
		World(w).
		Store(store).
		Logger(log).
		Listen(h.logEvent)
	if opts.Config != nil {
		b.Config(*opts.Config)
	}
	if opts.Listen != nil {
		b.Listen(opts.Listen)
	}
	h.engine, err = b.Build()
	if err != nil {
		return nil, fmt.Errorf("dfhost: %w", err)
	}
	h.runner = portals.NewRunner(h.engine)
	return h, nil
}

// Start starts the Runner and registers the portalgun command.
func (h *Host) Start() {
	cmd.Register(NewCommand())
	h.runner.Start()
	h.log.Info("dfhost: started", "version", portals.Version)
}

// Stop stops the Runner.
func (h *Host) Stop() {
	h.runner.Stop()
	h.log.Info("dfhost: stopped")
}

// Engine returns the engine. It must only be used from the Runner goroutine,
// for example inside a function passed to Post.
func (h *Host) Engine() *portals.Engine { return h.engine }

// Runner returns the Runner driving the engine.
func (h *Host) Runner() *portals.Runner { return h.runner }

// World returns the dragonfly World adapter.
func (h *Host) World() *World { return h.world }

// Post runs fn on the Runner goroutine.
func (h *Host) Post(fn func()) bool {
	return h.post(fn)
}

func (h *Host) post(fn func()) bool {
	if !h.runner.Post(fn) {
		h.log.Warn("dfhost: runner rejected work")
		return false
	}
	return true
}

// Accept installs a Handler on p.
func (h *Host) Accept(p *player.Player) {
	id := h.world.Track(p.H())
	p.Handle(&Handler{host: h, id: id})
	h.log.Debug("dfhost: player joined", "player", p.Name(), "id", id)
}

// stampGun writes a newly assigned gun id onto the gun held by id. Runs on
// the Runner goroutine.
func (h *Host) stampGun(id portals.EntityID, gunID int) {
	h.world.withEntity(id, func(tx *world.Tx, e world.Entity) {
		p, ok := e.(*player.Player)
		if !ok {
			return
		}
		main, off := p.HeldItems()
		if cur, _, ok := GunItem(main); ok && cur == 0 {
			p.SetHeldItems(main.WithValue(itemKeyGun, gunID), off)
		}
	})
}

// logEvent logs engine events at debug level.
func (h *Host) logEvent(ev portals.Event) {
	switch ev := ev.(type) {
	case portals.EventPortalCreated:
		h.log.Debug("dfhost: portal opened", "portal", ev.Portal.ID, "gun", ev.Portal.OwnerGunID)
	case portals.EventPortalRemoved:
		h.log.Debug("dfhost: portal removed", "portal", ev.ID)
	case portals.EventTeleported:
		h.log.Debug("dfhost: teleported", "entity", ev.Entity, "from", ev.From, "to", ev.To)
	case portals.EventGunDischarged:
		h.log.Debug("dfhost: gun discharged", "gun", ev.GunID)
	}
}
