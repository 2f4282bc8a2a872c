package portals

import (
	"errors"
	"log/slog"
	"math/rand/v2"
)

// Builder configures an Engine before it is created.
// Use NewBuilder() to create a builder and chain configuration methods.
type Builder struct {
	world     World
	store     Store
	conf      *Config
	log       *slog.Logger
	rand      *rand.Rand
	listeners []func(Event)
}

// NewBuilder creates a new engine builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// World sets the host the engine acts on. It is required.
func (b *Builder) World(w World) *Builder {
	b.world = w
	return b
}

// Store sets the property store. Defaults to a new MemoryStore.
func (b *Builder) Store(s Store) *Builder {
	b.store = s
	return b
}

// Config sets the engine config. Defaults to DefaultConfig().
func (b *Builder) Config(c Config) *Builder {
	b.conf = &c
	return b
}

// Logger sets the logger. Defaults to slog.Default().
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.log = l
	return b
}

// Rand sets the source used for gun ids.
func (b *Builder) Rand(r *rand.Rand) *Builder {
	b.rand = r
	return b
}

// Listen registers a function called with every engine event.
//
// Example:
//
//	builder.Listen(func(ev portals.Event) {
//	    if created, ok := ev.(portals.EventPortalCreated); ok {
//	        log.Println("portal", created.Portal.ID)
//	    }
//	})
func (b *Builder) Listen(fn func(Event)) *Builder {
	if fn != nil {
		b.listeners = append(b.listeners, fn)
	}
	return b
}

// Build creates the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.world == nil {
		return nil, errors.New("portals: builder has no world")
	}
	conf := DefaultConfig()
	if b.conf != nil {
		conf = *b.conf
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		world:     b.world,
		store:     b.store,
		log:       b.log,
		rand:      b.rand,
		tasks:     newTaskQueue(),
		cooldowns: NewLedger(),
		autoClose: make(map[[2]EntityID]*TaskHandle),
		listeners: b.listeners,
	}
	if e.store == nil {
		e.store = NewMemoryStore()
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.rand == nil {
		e.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	e.portals = NewRegistry(e.store)
	e.conf.Store(&conf)
	return e, nil
}
