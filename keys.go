package portals

// Property key namespace.
const keyPrefix = "portalgun:"

// Portal keys.
const (
	keyDual        = keyPrefix + "dualityPortalId"
	keyOwnerGun    = keyPrefix + "owner_portal_gun"
	keyRotation    = keyPrefix + "rotation"
	keyOrientation = keyPrefix + "orientation"
	keyScale       = keyPrefix + "portal_scale"
	keyIsRoot      = keyPrefix + "is_root"
	keyChildList   = keyPrefix + "child_list"
	keyAutoClose   = keyPrefix + "auto_close"
	keyBootlegged  = keyPrefix + "bootlegged_fluid"
	keyLocationID  = keyPrefix + "location_id"
	keyLinked      = keyPrefix + "is_linked"
	keyClosing     = keyPrefix + "close"
)

// Entity keys, written on anything that used a portal or a gun.
const (
	keyLastPortal = keyPrefix + "lastPortalUsed"
	keyTeleported = keyPrefix + "teleported"
	keyPlayerGun  = keyPrefix + "portal_gun_id"
)

// Gun keys.
const (
	keyGunID              = keyPrefix + "portal_gun_id"
	keyLastUser           = keyPrefix + "last_user"
	keyPortalList         = keyPrefix + "portal_list"
	keyMode               = keyPrefix + "mode"
	keyCustomLocation     = keyPrefix + "custom_location"
	keyCustomLocationIdx  = keyPrefix + "custom_location_index"
	keySavedLocations     = keyPrefix + "saved_locations"
	keyHistoryLocations   = keyPrefix + "history_locations"
	keyHighPressure       = keyPrefix + "high_pressure"
	keySafePlacement      = keyPrefix + "safe_placement"
	keyCharge             = keyPrefix + "charge"
	keyDischarged         = keyPrefix + "discharged"
	keyFastLocationChange = keyPrefix + "fast_location_change"
	keyInfiniteCharge     = keyPrefix + "infinite_charge"
	keyNextLocationID     = keyPrefix + "next_location_id"
)

// ValueKind represents the type of a stored property value.
type ValueKind int

const (
	// KindString is a text value. JSON blobs are stored as KindString.
	KindString ValueKind = iota
	// KindNumber is a float64 value. Integers are stored as KindNumber.
	KindNumber
	// KindBool is a boolean value.
	KindBool
)

// String returns the string representation of ValueKind.
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindNumber:
		return "Number"
	case KindBool:
		return "Bool"
	default:
		return "Unknown"
	}
}

// KindOf returns the kind of a normalised property value.
func KindOf(v any) (ValueKind, bool) {
	switch v.(type) {
	case string:
		return KindString, true
	case float64:
		return KindNumber, true
	case bool:
		return KindBool, true
	}
	return 0, false
}

// NormalizeValue converts accepted property values to their stored form.
// Integers become float64, like host dynamic properties.
func NormalizeValue(v any) (any, bool) {
	switch t := v.(type) {
	case string, float64, bool:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint8:
		return float64(t), true
	}
	return nil, false
}
