package portals

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Gun is the operator state of a portal gun. Guns are items rather than world
// entities, so their state lives in the store under GunOwner(ID).
type Gun struct {
	ID                  int
	LastUser            string
	Mode                Mode
	ActivePortals       []EntityID
	Charge              int
	Discharged          bool
	Scale               float64
	SavedLocations      []Location
	History             []Location
	CustomLocation      *Location
	CustomLocationIndex int
	AutoClose           bool
	HighPressure        bool
	SafePlacement       bool
	FastLocationChange  bool
	Bootlegged          bool
	InfiniteCharge      bool
	// NextLocationID is the id the next saved location gets. Ids are never
	// reused, so an anchor tagged with a deleted location never matches a
	// new one.
	NextLocationID int
}

// GunOwner returns the store owner holding the state of gun id.
func GunOwner(id int) EntityID {
	return EntityID("gun:" + strconv.Itoa(id))
}

// newGun returns a gun with default settings.
func newGun(id, charge int) Gun {
	return Gun{
		ID:            id,
		Mode:          ModeFIFO,
		Charge:        charge,
		Discharged:    charge <= 0,
		Scale:         1,
		SafePlacement: true,
	}
}

// Cost returns the charge one shot consumes.
func (g *Gun) Cost() int {
	return max(1, int(math.Ceil(g.Scale)))
}

// CanFire reports whether the gun has charge for a shot.
func (g *Gun) CanFire() bool {
	return g.InfiniteCharge || g.Charge > 0
}

// consume pays for one shot and flips the gun to discharged when it runs dry.
func (g *Gun) consume() {
	if g.InfiniteCharge {
		return
	}
	g.Charge = max(0, g.Charge-g.Cost())
	if g.Charge == 0 {
		g.Discharged = true
	}
}

// Tube is the kind of fluid tube used to recharge a gun.
type Tube int

const (
	// TubeCharged restores charge with clean fluid.
	TubeCharged Tube = iota
	// TubeEmpty drains the gun.
	TubeEmpty
	// TubeBootleg restores charge with bootleg fluid.
	TubeBootleg
)

// Recharge applies a tube to the gun. charge is the fluid held by the tube and
// is ignored for TubeEmpty.
func (g *Gun) Recharge(tube Tube, charge, maxCharge int) {
	charge = min(max(charge, 0), maxCharge)
	switch tube {
	case TubeCharged:
		g.Charge, g.Bootlegged = charge, false
	case TubeEmpty:
		g.Charge, g.Bootlegged = 0, false
	case TubeBootleg:
		g.Charge, g.Bootlegged = charge, true
	}
	g.Discharged = g.Charge == 0
}

// reset restores default settings, keeping the id, charge and fluid type.
func (g *Gun) reset() {
	*g = Gun{
		ID:            g.ID,
		Mode:          ModeFIFO,
		Charge:        g.Charge,
		Discharged:    g.Discharged,
		Bootlegged:     g.Bootlegged,
		Scale:          1,
		SafePlacement:  true,
		NextLocationID: g.NextLocationID,
	}
}

// SaveLocation appends l to the saved locations under a fresh id.
func (g *Gun) SaveLocation(l Location) Location {
	l.ID = g.nextLocationID()
	g.SavedLocations = append(g.SavedLocations, l)
	return l
}

// nextLocationID hands out a saved location id no location of the gun has
// used. Guns stored before the counter existed resume above their highest id.
func (g *Gun) nextLocationID() int {
	id := max(g.NextLocationID, 0)
	for _, l := range g.knownLocations() {
		if l.ID >= id {
			id = l.ID + 1
		}
	}
	g.NextLocationID = id + 1
	return id
}

// locationIDInUse reports whether a saved, history or selected location of
// the gun carries id.
func (g *Gun) locationIDInUse(id int) bool {
	return slices.ContainsFunc(g.knownLocations(), func(l Location) bool { return l.ID == id })
}

func (g *Gun) knownLocations() []Location {
	all := slices.Concat(g.SavedLocations, g.History)
	if g.CustomLocation != nil {
		all = append(all, *g.CustomLocation)
	}
	return all
}

// DeleteLocation removes the saved location at index i.
func (g *Gun) DeleteLocation(i int) (Location, error) {
	if i < 0 || i >= len(g.SavedLocations) {
		return Location{}, fmt.Errorf("no saved location at %d", i)
	}
	l := g.SavedLocations[i]
	g.SavedLocations = slices.Delete(g.SavedLocations, i, i+1)
	if g.CustomLocationIndex >= len(g.SavedLocations) {
		g.CustomLocationIndex = max(0, len(g.SavedLocations)-1)
	}
	return l, nil
}

// DeleteLocationNamed removes every saved location called name and returns
// how many were removed.
func (g *Gun) DeleteLocationNamed(name string) int {
	before := len(g.SavedLocations)
	g.SavedLocations = slices.DeleteFunc(g.SavedLocations, func(l Location) bool { return l.Name == name })
	if g.CustomLocationIndex >= len(g.SavedLocations) {
		g.CustomLocationIndex = max(0, len(g.SavedLocations)-1)
	}
	return before - len(g.SavedLocations)
}

// ClearLocations removes every saved location.
func (g *Gun) ClearLocations() {
	g.SavedLocations = nil
	g.CustomLocationIndex = 0
}

// SelectLocation makes l the custom mode target.
func (g *Gun) SelectLocation(l Location) {
	g.CustomLocation = &l
}

// CycleLocation moves the saved location cursor one step and selects the
// location under it.
func (g *Gun) CycleLocation(backwards bool) (Location, error) {
	n := len(g.SavedLocations)
	if n == 0 {
		return Location{}, errors.New("no saved locations")
	}
	i := g.CustomLocationIndex
	if backwards {
		i = (i - 1 + n) % n
	} else {
		i = (i + 1) % n
	}
	g.CustomLocationIndex = i
	l := g.SavedLocations[i]
	g.SelectLocation(l)
	return l, nil
}

// LoadGun reads the state of gun id from s.
func LoadGun(s Store, id int) (Gun, error) {
	props := PropsOf(s, GunOwner(id))
	if !props.Has(keyGunID) {
		return Gun{}, fmt.Errorf("load gun %d: %w", id, ErrGunNotFound)
	}

	g := newGun(id, 0)
	g.LastUser, _ = props.String(keyLastUser)
	if raw, ok := props.String(keyMode); ok {
		if m, err := ParseMode(raw); err == nil {
			g.Mode = m
		}
	}
	g.Charge, _ = props.Int(keyCharge)
	g.Discharged = props.Flag(keyDischarged)
	if scale, ok := props.Number(keyScale); ok {
		g.Scale = scale
	}
	g.CustomLocationIndex, _ = props.Int(keyCustomLocationIdx)
	g.AutoClose = props.Flag(keyAutoClose)
	g.HighPressure = props.Flag(keyHighPressure)
	if safe, ok := props.Bool(keySafePlacement); ok {
		g.SafePlacement = safe
	}
	g.FastLocationChange = props.Flag(keyFastLocationChange)
	g.Bootlegged = props.Flag(keyBootlegged)
	g.InfiniteCharge = props.Flag(keyInfiniteCharge)
	g.NextLocationID, _ = props.Int(keyNextLocationID)

	var errs []error
	if list, _, err := LoadJSON[[]EntityID](props, keyPortalList); err != nil {
		errs = append(errs, err)
	} else {
		g.ActivePortals = list
	}
	if saved, _, err := LoadJSON[[]Location](props, keySavedLocations); err != nil {
		errs = append(errs, err)
	} else {
		g.SavedLocations = saved
	}
	if history, _, err := LoadJSON[[]Location](props, keyHistoryLocations); err != nil {
		errs = append(errs, err)
	} else {
		g.History = history
	}
	if loc, ok, err := LoadJSON[Location](props, keyCustomLocation); err != nil {
		errs = append(errs, err)
	} else if ok {
		g.CustomLocation = &loc
	}
	if err := errors.Join(errs...); err != nil {
		return g, fmt.Errorf("load gun %d: %w", id, err)
	}
	return g, nil
}

// SaveGun writes the state of g to s.
func SaveGun(s Store, g Gun) error {
	props := PropsOf(s, GunOwner(g.ID))
	errs := []error{
		props.Set(keyGunID, g.ID),
		props.Set(keyLastUser, g.LastUser),
		props.Set(keyMode, g.Mode.String()),
		props.Set(keyCharge, g.Charge),
		props.Set(keyDischarged, g.Discharged),
		props.Set(keyScale, g.Scale),
		props.Set(keyCustomLocationIdx, g.CustomLocationIndex),
		props.Set(keyAutoClose, g.AutoClose),
		props.Set(keyHighPressure, g.HighPressure),
		props.Set(keySafePlacement, g.SafePlacement),
		props.Set(keyFastLocationChange, g.FastLocationChange),
		props.Set(keyBootlegged, g.Bootlegged),
		props.Set(keyInfiniteCharge, g.InfiniteCharge),
		props.Set(keyNextLocationID, g.NextLocationID),
		StoreJSON(props, keyPortalList, nonNil(g.ActivePortals)),
		StoreJSON(props, keySavedLocations, nonNil(g.SavedLocations)),
		StoreJSON(props, keyHistoryLocations, nonNil(g.History)),
	}
	if g.CustomLocation != nil {
		errs = append(errs, StoreJSON(props, keyCustomLocation, *g.CustomLocation))
	} else {
		errs = append(errs, props.Delete(keyCustomLocation))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("save gun %d: %w", g.ID, err)
	}
	return nil
}

// nonNil keeps empty lists encoding as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
