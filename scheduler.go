package portals

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Runner drives an Engine in real time. It owns the goroutine every engine
// call must come from: host callbacks hand work to it with Post, and it
// ticks the engine at 20 TPS.
type Runner struct {
	engine *Engine

	loops   []*loopState
	loopsMu sync.Mutex

	// queue carries work posted from other goroutines.
	queue chan func()

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	tickRate   time.Duration
	lastTick   time.Time
	tickNumber uint64
}

// loopState is a function the Runner repeats on its own interval.
type loopState struct {
	fn       func()
	interval time.Duration
	nextRun  time.Time
}

// due reports whether the loop wants to run at now. Loops without an
// interval run every tick.
func (l *loopState) due(now time.Time) bool {
	return l.interval <= 0 || !now.Before(l.nextRun)
}

// ran schedules the next run one interval after the previous deadline, or
// one interval from now when the loop fell behind.
func (l *loopState) ran(now time.Time) {
	if l.interval <= 0 {
		return
	}
	if l.nextRun = l.nextRun.Add(l.interval); l.nextRun.Before(now) {
		l.nextRun = now.Add(l.interval)
	}
}

// NewRunner creates a runner for e.
func NewRunner(e *Engine) *Runner {
	return &Runner{
		engine:   e,
		queue:    make(chan func(), 256),
		tickRate: 50 * time.Millisecond, // 20 TPS
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Engine returns the engine the runner drives.
func (r *Runner) Engine() *Engine { return r.engine }

// SetTickRate changes the tick interval. It must be called before Start.
func (r *Runner) SetTickRate(d time.Duration) {
	if d > 0 && !r.running.Load() {
		r.tickRate = d
	}
}

// Every runs fn on the runner goroutine after engine ticks, at most once per
// interval. An interval of zero runs fn after every tick.
func (r *Runner) Every(interval time.Duration, fn func()) {
	r.loopsMu.Lock()
	defer r.loopsMu.Unlock()
	r.loops = append(r.loops, &loopState{
		fn:       fn,
		interval: interval,
		nextRun:  time.Now().Add(interval),
	})
}

// Post queues fn to run on the runner goroutine. It never blocks and
// reports false when the runner is stopped or its queue is full.
func (r *Runner) Post(fn func()) bool {
	if fn == nil || !r.running.Load() {
		return false
	}
	select {
	case r.queue <- fn:
		return true
	default:
		r.engine.log.Warn("portals: runner queue full, dropping work")
		return false
	}
}

// Start begins the runner's tick loop.
func (r *Runner) Start() {
	if r.running.Swap(true) {
		return // Already running
	}
	go r.tickLoop()
}

// Stop shuts the tick loop down, running any work still queued first.
func (r *Runner) Stop() {
	if !r.running.Swap(false) {
		return // Not running
	}
	close(r.stopCh)
	<-r.doneCh
}

// Ticks returns the number of ticks run so far.
func (r *Runner) Ticks() uint64 {
	return atomic.LoadUint64(&r.tickNumber)
}

// tickLoop is the main runner loop.
func (r *Runner) tickLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.drain()
			return

		case now := <-ticker.C:
			r.tick(now)

		case fn := <-r.queue:
			r.safe("posted work", fn)
		}
	}
}

// drain runs everything left in the queue.
func (r *Runner) drain() {
	for {
		select {
		case fn := <-r.queue:
			r.safe("posted work", fn)
		default:
			return
		}
	}
}

// tick executes one runner tick.
func (r *Runner) tick(now time.Time) {
	atomic.AddUint64(&r.tickNumber, 1)
	r.lastTick = now

	r.safe("tick", r.engine.Tick)

	r.loopsMu.Lock()
	loops := append([]*loopState(nil), r.loops...)
	r.loopsMu.Unlock()
	for _, loop := range loops {
		if loop.due(now) {
			r.safe("loop", loop.fn)
			loop.ran(now)
		}
	}
}

// safe runs fn, logging a panic instead of letting it kill the loop.
func (r *Runner) safe(kind string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.engine.log.Error("portals: panic in "+kind, "panic", rec, "stack", string(debug.Stack()))
		}
	}()
	fn()
}
