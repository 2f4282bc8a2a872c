package portals

// Ledger maps entities to the ticks left on their teleport cooldown.
type Ledger struct {
	ticks map[EntityID]int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{ticks: make(map[EntityID]int)}
}

// Add starts or replaces the cooldown of id. Non-positive durations clear it.
func (l *Ledger) Add(id EntityID, ticks int) {
	if ticks <= 0 {
		delete(l.ticks, id)
		return
	}
	l.ticks[id] = ticks
}

// Active reports whether id is on cooldown.
func (l *Ledger) Active(id EntityID) bool {
	_, ok := l.ticks[id]
	return ok
}

// Remaining returns the ticks left for id.
func (l *Ledger) Remaining(id EntityID) int {
	return l.ticks[id]
}

// Decrement advances every cooldown by one tick. An entry added with n ticks
// is gone after exactly n calls.
func (l *Ledger) Decrement() {
	for id, t := range l.ticks {
		if t <= 1 {
			delete(l.ticks, id)
			continue
		}
		l.ticks[id] = t - 1
	}
}

// Len returns the number of entities on cooldown.
func (l *Ledger) Len() int {
	return len(l.ticks)
}
