package portals

import (
	"encoding/json"
	"fmt"
	"math"
)

// Props gives typed access to the properties of a single owner.
// Missing or mistyped values read as the zero value with ok == false.
type Props struct {
	store Store
	owner EntityID
}

// PropsOf returns the property accessor for owner.
func PropsOf(s Store, owner EntityID) Props {
	return Props{store: s, owner: owner}
}

// Owner returns the owner the accessor reads from.
func (p Props) Owner() EntityID { return p.owner }

// Has reports whether key is set.
func (p Props) Has(key string) bool {
	_, ok := p.store.Property(p.owner, key)
	return ok
}

// String reads a string property.
func (p Props) String(key string) (string, bool) {
	v, ok := p.store.Property(p.owner, key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Number reads a numeric property.
func (p Props) Number(key string) (float64, bool) {
	v, ok := p.store.Property(p.owner, key)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Int reads a numeric property rounded to the nearest integer.
func (p Props) Int(key string) (int, bool) {
	f, ok := p.Number(key)
	if !ok {
		return 0, false
	}
	return int(math.Round(f)), true
}

// Bool reads a boolean property.
func (p Props) Bool(key string) (bool, bool) {
	v, ok := p.store.Property(p.owner, key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Flag reads a boolean property, treating a missing key as false.
func (p Props) Flag(key string) bool {
	b, _ := p.Bool(key)
	return b
}

// Set writes a property.
func (p Props) Set(key string, v any) error {
	return p.store.SetProperty(p.owner, key, v)
}

// Delete removes a property.
func (p Props) Delete(key string) error {
	return p.store.DeleteProperty(p.owner, key)
}

// Clear removes every property of the owner.
func (p Props) Clear() error {
	return p.store.ClearProperties(p.owner)
}

// LoadJSON decodes the JSON text blob stored under key.
// ok is false when the key is missing.
func LoadJSON[T any](p Props, key string) (v T, ok bool, err error) {
	raw, ok := p.String(key)
	if !ok {
		return v, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, true, fmt.Errorf("decode %s of %s: %w", key, p.owner, err)
	}
	return v, true, nil
}

// StoreJSON encodes v as a JSON text blob under key, replacing the previous
// value entirely.
func StoreJSON[T any](p Props, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s of %s: %w", key, p.owner, err)
	}
	return p.Set(key, string(raw))
}
