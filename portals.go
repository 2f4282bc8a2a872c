// Package portals implements portal gun logic for Bedrock servers.
//
// The package keeps a graph of paired portal anchors, decides how newly fired
// portals replace or link to older ones, and moves entities between linked
// portals once per tick. It does not own a world: everything it touches goes
// through the World and Store interfaces, so the same Engine runs against the
// dragonfly adapter in the dfhost package or against the in-memory fakes used
// by the tests.
//
// # Quick Start
//
//	eng, err := portals.NewBuilder().
//	    World(w).
//	    Store(portals.NewMemoryStore()).
//	    Config(portals.DefaultConfig()).
//	    Build()
//	if err != nil {
//	    return err
//	}
//
//	runner := portals.NewRunner(eng)
//	runner.Start()
//	defer runner.Stop()
//
// # Modes
//
// A gun links portals according to its Mode:
//
//	FIFO        two portals, the oldest is replaced
//	LIFO        two portals, the previous shot is replaced
//	Multi-Pair  every two shots form an independent pair
//	Root        the first shot anchors a chain, later shots join it
//	CUSTOM      like Root, with the anchor placed at a chosen location
//
// # Concurrency
//
// An Engine is not safe for concurrent use. All calls must come from one
// goroutine, usually the Runner's tick loop; other goroutines hand work to it
// with Runner.Post.
package portals

// Version is the portals version.
const Version = "1.0.0"
