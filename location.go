package portals

import (
	"fmt"
	"math"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

// Location is a saved or typed custom mode target.
type Location struct {
	Name        string `json:"name"`
	ID          int    `json:"id"`
	DimensionID string `json:"dimensionId"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Z           int    `json:"z"`
}

// Dimension resolves the dimension of the location.
func (l Location) Dimension() (Dimension, bool) {
	return ParseDimension(l.DimensionID)
}

// Pos returns the block position of the location.
func (l Location) Pos() cube.Pos {
	return cube.Pos{l.X, l.Y, l.Z}
}

// Vec3 returns the bottom centre of the location's block.
func (l Location) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{float64(l.X) + 0.5, float64(l.Y), float64(l.Z) + 0.5}
}

// String formats the location for chat.
func (l Location) String() string {
	dim, _ := l.Dimension()
	return fmt.Sprintf("%s (%d, %d, %d) %s", l.Name, l.X, l.Y, l.Z, dim)
}

// LocationAt builds a location from an entity position.
func LocationAt(name string, dim Dimension, pos mgl64.Vec3) Location {
	return Location{
		Name:        name,
		DimensionID: dim.ID(),
		X:           int(math.Floor(pos[0])),
		Y:           int(math.Floor(pos[1])),
		Z:           int(math.Floor(pos[2])),
	}
}

// Bounds limits typed coordinates.
type Bounds struct {
	MaxHorizontal int `yaml:"max_horizontal" json:"max_horizontal"`
	MinY          int `yaml:"min_y" json:"min_y"`
	MaxY          int `yaml:"max_y" json:"max_y"`
}

// Check returns ErrOutOfBounds when l falls outside b.
func (b Bounds) Check(l Location) error {
	if abs(l.X) > b.MaxHorizontal || abs(l.Z) > b.MaxHorizontal {
		return fmt.Errorf("x and z must be within ±%d: %w", b.MaxHorizontal, ErrOutOfBounds)
	}
	if l.Y < b.MinY || l.Y > b.MaxY {
		return fmt.Errorf("y must be within %d and %d: %w", b.MinY, b.MaxY, ErrOutOfBounds)
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// pushHistory prepends l to history, keeping at most limit entries.
func pushHistory(history []Location, l Location, limit int) []Location {
	out := make([]Location, 0, min(len(history)+1, max(limit, 1)))
	out = append(out, l)
	out = append(out, history...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
