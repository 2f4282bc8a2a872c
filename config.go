package portals

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Config holds the timings and limits of the engine. Durations are in ticks.
type Config struct {
	CloseDelay          int `yaml:"close_delay_ticks" json:"close_delay_ticks"`
	PlayerTeleportDelay int `yaml:"player_teleport_delay_ticks" json:"player_teleport_delay_ticks"`
	PlayerCooldown      int `yaml:"player_cooldown_ticks" json:"player_cooldown_ticks"`
	EntityCooldown      int `yaml:"entity_cooldown_ticks" json:"entity_cooldown_ticks"`
	BootlegCooldown     int `yaml:"bootleg_cooldown_ticks" json:"bootleg_cooldown_ticks"`
	AutoCloseDelay      int `yaml:"auto_close_delay_ticks" json:"auto_close_delay_ticks"`
	TagCleanupInterval  int `yaml:"tag_cleanup_interval_ticks" json:"tag_cleanup_interval_ticks"`
	ChunkLoadTimeout    int `yaml:"chunk_load_timeout_ticks" json:"chunk_load_timeout_ticks"`

	SafeSearchRadius int `yaml:"safe_search_radius" json:"safe_search_radius"`
	SafeSearchUp     int `yaml:"safe_search_up" json:"safe_search_up"`

	HistoryLimit      int `yaml:"history_limit" json:"history_limit"`
	MaxCharge         int `yaml:"max_charge" json:"max_charge"`
	MultiPairAdvisory int `yaml:"multi_pair_advisory" json:"multi_pair_advisory"`

	SpawnDamage     float64 `yaml:"spawn_damage" json:"spawn_damage"`
	PoisonTicks     int     `yaml:"poison_ticks" json:"poison_ticks"`
	PoisonAmplifier int     `yaml:"poison_amplifier" json:"poison_amplifier"`

	// SmallPortalsAllowPlayers lets players use portals below scale 1.
	SmallPortalsAllowPlayers bool `yaml:"small_portals_allow_players" json:"small_portals_allow_players"`

	Bounds  Bounds        `yaml:"bounds" json:"bounds"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
}

// StorageConfig selects where the property store lives.
type StorageConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the SQLite database file.
	Path string `yaml:"path" json:"path"`
	// Snapshot is the compressed snapshot file of the memory driver.
	Snapshot string `yaml:"snapshot" json:"snapshot"`
	// SnapshotEverySeconds is how often the memory driver writes its snapshot.
	SnapshotEverySeconds int `yaml:"snapshot_every_seconds" json:"snapshot_every_seconds"`
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{
		CloseDelay:          9,
		PlayerTeleportDelay: 8,
		PlayerCooldown:      38,
		EntityCooldown:      20,
		BootlegCooldown:     20,
		AutoCloseDelay:      30,
		TagCleanupInterval:  5,
		ChunkLoadTimeout:    100,
		SafeSearchRadius:    10,
		SafeSearchUp:        40,
		HistoryLimit:        30,
		MaxCharge:           100,
		MultiPairAdvisory:   10,
		SpawnDamage:         20,
		PoisonTicks:         300,
		PoisonAmplifier:     5,
		Bounds: Bounds{
			MaxHorizontal: 3_000_000,
			MinY:          -64,
			MaxY:          320,
		},
		Storage: StorageConfig{
			Driver:               "memory",
			Path:                 "portals.db",
			Snapshot:             "portals.snap.zst",
			SnapshotEverySeconds: 60,
		},
	}
}

const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "close_delay_ticks": {"type": "integer", "minimum": 0},
    "player_teleport_delay_ticks": {"type": "integer", "minimum": 0},
    "player_cooldown_ticks": {"type": "integer", "minimum": 1},
    "entity_cooldown_ticks": {"type": "integer", "minimum": 1},
    "bootleg_cooldown_ticks": {"type": "integer", "minimum": 1},
    "auto_close_delay_ticks": {"type": "integer", "minimum": 1},
    "tag_cleanup_interval_ticks": {"type": "integer", "minimum": 1},
    "chunk_load_timeout_ticks": {"type": "integer", "minimum": 1},
    "safe_search_radius": {"type": "integer", "minimum": 0, "maximum": 32},
    "safe_search_up": {"type": "integer", "minimum": 0, "maximum": 384},
    "history_limit": {"type": "integer", "minimum": 1},
    "max_charge": {"type": "integer", "minimum": 1},
    "multi_pair_advisory": {"type": "integer", "minimum": 2},
    "spawn_damage": {"type": "number", "minimum": 0},
    "poison_ticks": {"type": "integer", "minimum": 0},
    "poison_amplifier": {"type": "integer", "minimum": 0, "maximum": 255},
    "small_portals_allow_players": {"type": "boolean"},
    "bounds": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "max_horizontal": {"type": "integer", "minimum": 1},
        "min_y": {"type": "integer"},
        "max_y": {"type": "integer"}
      }
    },
    "storage": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "driver": {"enum": ["memory", "sqlite"]},
        "path": {"type": "string"},
        "snapshot": {"type": "string"},
        "snapshot_every_seconds": {"type": "integer", "minimum": 0}
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("config.schema.json", configSchema)

// LoadConfig reads a YAML config file. Keys missing from the file keep their
// DefaultConfig value.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(raw)
}

// ParseConfig decodes and validates YAML config data.
func ParseConfig(raw []byte) (Config, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if doc != nil {
		if err := validateDocument(doc); err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// validateDocument checks a decoded YAML document against the config schema.
// The document goes through JSON first so numbers reach the validator in the
// shape it expects.
func validateDocument(doc any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return compiledSchema.Validate(v)
}

// Validate checks relations between fields the schema cannot express.
func (c Config) Validate() error {
	var errs []error
	if c.Bounds.MinY > c.Bounds.MaxY {
		errs = append(errs, fmt.Errorf("bounds: min_y %d above max_y %d", c.Bounds.MinY, c.Bounds.MaxY))
	}
	if c.PlayerTeleportDelay >= c.PlayerCooldown {
		errs = append(errs, fmt.Errorf("player_teleport_delay_ticks %d must be below player_cooldown_ticks %d", c.PlayerTeleportDelay, c.PlayerCooldown))
	}
	switch strings.ToLower(c.Storage.Driver) {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("storage: unknown driver %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}
