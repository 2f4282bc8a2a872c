package portals

import (
	"fmt"
	"strings"
)

// Mode represents the linking policy of a portal gun.
// Modes are persisted by their String form.
type Mode int

const (
	// ModeFIFO keeps two portals. A third shot retires the oldest one.
	ModeFIFO Mode = iota

	// ModeLIFO keeps two portals. A third shot retires the previous shot
	// and keeps the first portal in place.
	ModeLIFO

	// ModeMultiPair links every two consecutive shots into their own pair.
	ModeMultiPair

	// ModeRoot anchors a chain on the first shot. Every later shot joins
	// the chain and becomes the one linked to the root.
	ModeRoot

	// ModeCustom behaves like ModeRoot, except the root is spawned at the
	// gun's selected location instead of at a shot.
	ModeCustom

	// modeCount is the total number of modes.
	modeCount
)

// String returns the persisted representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeFIFO:
		return "FIFO"
	case ModeLIFO:
		return "LIFO"
	case ModeMultiPair:
		return "Multi-Pair"
	case ModeRoot:
		return "Root"
	case ModeCustom:
		return "CUSTOM"
	default:
		return "Unknown"
	}
}

// Chained reports whether the mode builds root anchored chains.
func (m Mode) Chained() bool {
	return m == ModeRoot || m == ModeCustom
}

// Next returns the mode following m, wrapping around after ModeCustom.
func (m Mode) Next() Mode {
	return (m + 1) % modeCount
}

// ParseMode parses a persisted mode string. It also accepts the short names
// used by the terminal ("fifo", "lifo", "multi", "root", "custom").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fifo":
		return ModeFIFO, nil
	case "lifo":
		return ModeLIFO, nil
	case "multi-pair", "multipair", "multi":
		return ModeMultiPair, nil
	case "root":
		return ModeRoot, nil
	case "custom":
		return ModeCustom, nil
	}
	return ModeFIFO, fmt.Errorf("unknown mode %q", s)
}
