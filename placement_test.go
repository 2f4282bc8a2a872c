package portals

import (
	"errors"
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

func TestRotationFromYaw(t *testing.T) {
	tests := []struct {
		yaw  float64
		want int
	}{
		{0, 2},
		{90, 3},
		{180, 0},
		{-90, 1},
		{270, 1},
		{-180, 0},
		{44, 2},
		{46, 3},
		{720, 2},
	}
	for _, tt := range tests {
		if got := RotationFromYaw(tt.yaw); got != tt.want {
			t.Fatalf("RotationFromYaw(%v): got %d, want %d", tt.yaw, got, tt.want)
		}
	}
}

func TestPlacementFor(t *testing.T) {
	tests := []struct {
		name        string
		face        cube.Face
		yaw         float64
		cell        cube.Pos
		orientation Orientation
		rotation    int
	}{
		{"floor", cube.FaceUp, 0, cube.Pos{3, 6, 7}, OrientationFloor, 2},
		{"ceiling", cube.FaceDown, 180, cube.Pos{3, 4, 7}, OrientationCeiling, 0},
		{"north", cube.FaceNorth, 0, cube.Pos{3, 5, 6}, OrientationWall, 2},
		{"south", cube.FaceSouth, 0, cube.Pos{3, 5, 8}, OrientationWall, 0},
		{"west", cube.FaceWest, 0, cube.Pos{2, 5, 7}, OrientationWall, 1},
		{"east", cube.FaceEast, 0, cube.Pos{4, 5, 7}, OrientationWall, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pl := PlacementFor(Hit{Dimension: Nether, Block: cube.Pos{3, 5, 7}, Face: tt.face, ShooterYaw: tt.yaw})
			want := mgl64.Vec3{float64(tt.cell[0]) + 0.5, float64(tt.cell[1]), float64(tt.cell[2]) + 0.5}
			if pl.Position != want {
				t.Fatalf("position: got %v, want %v", pl.Position, want)
			}
			if pl.Orientation != tt.orientation || pl.Rotation != tt.rotation {
				t.Fatalf("got orientation %d rotation %d", pl.Orientation, pl.Rotation)
			}
			if pl.Dimension != Nether {
				t.Fatalf("dimension: got %v", pl.Dimension)
			}
		})
	}
}

func TestSpawnPosition(t *testing.T) {
	w := NewMemoryWorld()
	ground := mgl64.Vec3{0.5, 0, 0.5}
	air := mgl64.Vec3{0.5, 10, 0.5}

	if got := spawnPosition(w, Overworld, ground, OrientationWall, 1); got[1] != 1 {
		t.Fatalf("scale 1 wall: got y %v, want 1", got[1])
	}
	if got := spawnPosition(w, Overworld, ground, OrientationWall, 2); got[1] != 2 {
		t.Fatalf("scale 2 wall: got y %v, want 2", got[1])
	}
	if got := spawnPosition(w, Overworld, ground, OrientationWall, 0.5); got != ground {
		t.Fatalf("small wall portal moved to %v", got)
	}
	if got := spawnPosition(w, Overworld, air, OrientationWall, 1); got != air {
		t.Fatalf("floating wall portal moved to %v", got)
	}
	if got := spawnPosition(w, Overworld, ground, OrientationFloor, 2); got != ground {
		t.Fatalf("floor portal moved to %v", got)
	}
}

func TestFindSafeCellDropsToGround(t *testing.T) {
	w := NewMemoryWorld()
	got, err := FindSafeCell(w, Overworld, cube.Pos{4, 12, 4}, 10, 40)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Pos != (cube.Pos{4, 0, 4}) || got.LavaBelow {
		t.Fatalf("got %+v", got)
	}
}

func TestFindSafeCellNearestOpen(t *testing.T) {
	w := NewMemoryWorld()
	target := cube.Pos{0, -10, 0}
	w.SetBlock(Overworld, cube.Pos{2, -10, 0}, BlockAir)
	w.SetBlock(Overworld, cube.Pos{0, -10, -1}, BlockWater)

	got, err := FindSafeCell(w, Overworld, target, 3, 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Pos != (cube.Pos{0, -10, -1}) {
		t.Fatalf("got %v, want the water cell", got.Pos)
	}
}

// blockWorld hides the BlockReader side of a MemoryWorld.
type blockWorld struct{ World }

func TestFindSafeCellReadsBlocksInOnePass(t *testing.T) {
	w := NewMemoryWorld()
	target := cube.Pos{0, -10, 0}
	w.SetBlock(Overworld, cube.Pos{3, -10, 2}, BlockWater)

	batched, err := FindSafeCell(w, Overworld, target, 10, 40)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if w.BlockReads != 1 {
		t.Fatalf("block passes: got %d, want 1", w.BlockReads)
	}
	single, err := FindSafeCell(blockWorld{w}, Overworld, target, 10, 40)
	if err != nil {
		t.Fatalf("find without batching: %v", err)
	}
	if single != batched || w.BlockReads != 1 {
		t.Fatalf("got %+v and %+v, passes %d", single, batched, w.BlockReads)
	}
}

func TestFindSafeCellTieBreak(t *testing.T) {
	w := NewMemoryWorld()
	target := cube.Pos{0, -10, 0}
	w.SetBlock(Overworld, cube.Pos{1, -10, 0}, BlockAir)
	w.SetBlock(Overworld, cube.Pos{-1, -10, 0}, BlockAir)

	got, err := FindSafeCell(w, Overworld, target, 2, 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Pos != (cube.Pos{-1, -10, 0}) {
		t.Fatalf("got %v, want the first cell in scan order", got.Pos)
	}
}

func TestFindSafeCellScansUp(t *testing.T) {
	w := NewMemoryWorld()
	got, err := FindSafeCell(w, Overworld, cube.Pos{0, -3, 0}, 0, 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Pos != (cube.Pos{0, 0, 0}) {
		t.Fatalf("got %v", got.Pos)
	}
}

func TestFindSafeCellFailures(t *testing.T) {
	w := NewMemoryWorld()
	if _, err := FindSafeCell(w, Overworld, cube.Pos{0, -20, 0}, 0, 5); !errors.Is(err, ErrNoSafeLocation) {
		t.Fatalf("buried target: got %v", err)
	}
	w.Unload(Overworld, cube.Pos{64, 0, 64})
	if _, err := FindSafeCell(w, Overworld, cube.Pos{64, 0, 64}, 3, 3); !errors.Is(err, ErrChunkTimeout) {
		t.Fatalf("unloaded target: got %v", err)
	}
}

func TestFindSafeCellLavaBelow(t *testing.T) {
	w := NewMemoryWorld()
	w.SetBlock(Overworld, cube.Pos{5, -1, 5}, BlockLava)
	got, err := FindSafeCell(w, Overworld, cube.Pos{5, 3, 5}, 10, 40)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Pos != (cube.Pos{5, 0, 5}) || !got.LavaBelow {
		t.Fatalf("got %+v", got)
	}
}

func TestDetectionRadius(t *testing.T) {
	tests := []struct {
		scale float64
		o     Orientation
		want  float64
	}{
		{0.5, OrientationWall, 0.8},
		{0.5, OrientationFloor, 0.8},
		{1, OrientationWall, 1.2},
		{1, OrientationCeiling, 1},
		{1.5, OrientationWall, 2.2},
		{2, OrientationFloor, 2},
		{0.75, OrientationWall, 1},
	}
	for _, tt := range tests {
		if got := DetectionRadius(tt.scale, tt.o); got != tt.want {
			t.Fatalf("DetectionRadius(%v, %d): got %v, want %v", tt.scale, tt.o, got, tt.want)
		}
	}
}

func TestDestinationFor(t *testing.T) {
	at := mgl64.Vec3{10, 5, 10}

	wall := DestinationFor(Portal{Orientation: OrientationWall, Rotation: 2, Scale: 1}, End, at)
	if wall.Position != (mgl64.Vec3{10, 4, 10}) || wall.Yaw != 180 || wall.KeepYaw || wall.Dimension != End {
		t.Fatalf("wall: %+v", wall)
	}
	east := DestinationFor(Portal{Orientation: OrientationWall, Rotation: 3, Scale: 0.5}, End, at)
	if east.Position != at || east.Yaw != -90 {
		t.Fatalf("small wall: %+v", east)
	}
	floor := DestinationFor(Portal{Orientation: OrientationFloor, Rotation: 1, Scale: 1}, Overworld, at)
	if floor.Position != at || !floor.KeepYaw {
		t.Fatalf("floor: %+v", floor)
	}
}

func TestEntryAndExitCues(t *testing.T) {
	wall := Portal{Orientation: OrientationWall, Rotation: 1}
	if got := EntryCue(wall, Entity{Yaw: 100}); got != CueEnterBack {
		t.Fatalf("facing the portal rotation: got %v", got)
	}
	if got := EntryCue(wall, Entity{Yaw: 270}); got != CueEnterFront {
		t.Fatalf("facing away: got %v", got)
	}
	if got := EntryCue(Portal{Orientation: OrientationCeiling}, Entity{}); got != CueEnterUp {
		t.Fatalf("ceiling: got %v", got)
	}
	if got := EntryCue(Portal{Orientation: OrientationFloor}, Entity{Sprinting: true}); got != CueDive {
		t.Fatalf("sprinting into a floor: got %v", got)
	}
	for o, want := range map[Orientation]Cue{
		OrientationWall:    CueExitFront,
		OrientationCeiling: CueExitUp,
		OrientationFloor:   CueExitDown,
	} {
		if got := ExitCue(o); got != want {
			t.Fatalf("ExitCue(%d): got %v, want %v", o, got, want)
		}
	}
}
