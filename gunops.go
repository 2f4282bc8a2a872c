package portals

import (
	"fmt"
	"slices"
)

// Setting names a boolean gun option.
type Setting int

const (
	SettingAutoClose Setting = iota
	SettingHighPressure
	SettingSafePlacement
	SettingFastLocationChange
)

// String returns the terminal name of the setting.
func (s Setting) String() string {
	switch s {
	case SettingAutoClose:
		return "autoclose"
	case SettingHighPressure:
		return "highpressure"
	case SettingSafePlacement:
		return "safeplacement"
	case SettingFastLocationChange:
		return "fastchange"
	default:
		return "unknown"
	}
}

// ParseSetting parses a terminal setting name.
func ParseSetting(s string) (Setting, error) {
	for st := SettingAutoClose; st <= SettingFastLocationChange; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown setting %q", s)
}

// Scales are the portal sizes a gun can be set to.
var Scales = []float64{0.5, 1, 1.5, 2}

// updateGun loads gun id, applies fn and saves the result.
func (e *Engine) updateGun(id int, fn func(g *Gun) error) (Gun, error) {
	g, err := LoadGun(e.store, id)
	if err != nil {
		return g, err
	}
	if err := fn(&g); err != nil {
		return g, err
	}
	return g, SaveGun(e.store, g)
}

// changeMode switches g to m. Changing mode closes every portal of the gun.
func (e *Engine) changeMode(g *Gun, m Mode) {
	if g.Mode == m {
		return
	}
	e.removeAll(g)
	g.Mode = m
}

// ChangeMode switches the linking mode of gun id, closing its portals.
func (e *Engine) ChangeMode(id int, m Mode) (Gun, error) {
	return e.updateGun(id, func(g *Gun) error {
		e.changeMode(g, m)
		return nil
	})
}

// SetScale sets the size of the portals gun id fires from now on.
func (e *Engine) SetScale(id int, scale float64) (Gun, error) {
	return e.updateGun(id, func(g *Gun) error {
		if !slices.Contains(Scales, scale) {
			return fmt.Errorf("scale %v is not one of %v", scale, Scales)
		}
		g.Scale = scale
		return nil
	})
}

// SetSetting turns a boolean option of gun id on or off.
func (e *Engine) SetSetting(id int, s Setting, on bool) (Gun, error) {
	return e.updateGun(id, func(g *Gun) error {
		switch s {
		case SettingAutoClose:
			g.AutoClose = on
		case SettingHighPressure:
			g.HighPressure = on
		case SettingSafePlacement:
			g.SafePlacement = on
		case SettingFastLocationChange:
			g.FastLocationChange = on
		default:
			return fmt.Errorf("unknown setting %d", s)
		}
		return nil
	})
}

// ResetGun closes every portal of gun id and restores its defaults. The id,
// charge and fluid type are kept.
func (e *Engine) ResetGun(id int) (Gun, error) {
	return e.updateGun(id, func(g *Gun) error {
		e.removeAll(g)
		g.reset()
		return nil
	})
}

// RechargeGun applies a fluid tube to gun id.
func (e *Engine) RechargeGun(id int, tube Tube, charge int) (Gun, error) {
	return e.updateGun(id, func(g *Gun) error {
		g.Recharge(tube, charge, e.Config().MaxCharge)
		return nil
	})
}

// SaveLocation stores the position of user as a named location of gun id.
func (e *Engine) SaveLocation(id int, user Entity, name string) (Location, error) {
	var saved Location
	_, err := e.updateGun(id, func(g *Gun) error {
		if name == "" {
			return fmt.Errorf("location name is empty")
		}
		saved = g.SaveLocation(LocationAt(name, user.Dimension, user.Position))
		return nil
	})
	return saved, err
}

// DeleteLocation removes the saved location at index i of gun id.
func (e *Engine) DeleteLocation(id, i int) (Location, error) {
	var deleted Location
	_, err := e.updateGun(id, func(g *Gun) error {
		var err error
		deleted, err = g.DeleteLocation(i)
		return err
	})
	return deleted, err
}

// SelectSavedLocation makes saved location i the custom target of gun id.
func (e *Engine) SelectSavedLocation(id, i int) (Gun, error) {
	return e.updateGun(id, func(g *Gun) error {
		if i < 0 || i >= len(g.SavedLocations) {
			return fmt.Errorf("no saved location at %d", i)
		}
		g.CustomLocationIndex = i
		g.SelectLocation(g.SavedLocations[i])
		return nil
	})
}

// SelectHistoryLocation makes history entry i the custom target of gun id.
func (e *Engine) SelectHistoryLocation(id, i int) (Gun, error) {
	return e.updateGun(id, func(g *Gun) error {
		if i < 0 || i >= len(g.History) {
			return fmt.Errorf("no history entry at %d", i)
		}
		g.SelectLocation(g.History[i])
		return nil
	})
}

// typedLocationID picks a negative id for typed coordinates that no location
// of g carries.
func (e *Engine) typedLocationID(g *Gun) int {
	for {
		if id := -(1 + e.rand.IntN(9999)); !g.locationIDInUse(id) {
			return id
		}
	}
}

// SelectCoordinates makes typed coordinates the custom target of gun id and
// switches it to custom mode.
func (e *Engine) SelectCoordinates(id int, dim Dimension, x, y, z int) (Gun, error) {
	return e.updateGun(id, func(g *Gun) error {
		l := Location{
			Name:        "Unnamed Location",
			ID:          e.typedLocationID(g),
			DimensionID: dim.ID(),
			X:           x,
			Y:           y,
			Z:           z,
		}
		if err := e.Config().Bounds.Check(l); err != nil {
			return err
		}
		g.SelectLocation(l)
		e.changeMode(g, ModeCustom)
		return nil
	})
}
